// Package admincli implements the candrive-admin maintenance commands.
package admincli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"candrive/internal/app"
	"candrive/internal/config"
	"candrive/internal/drive"
)

// readPassword is swapped in tests.
var readPassword = term.ReadPassword

type cli struct {
	cfg config.App
	out io.Writer
}

// Execute runs the CLI against the environment configuration.
func Execute() error {
	return NewRoot(config.Load()).Execute()
}

// NewRoot builds the command tree for cfg.
func NewRoot(cfg config.App) *cobra.Command {
	c := &cli{cfg: cfg, out: os.Stdout}
	root := &cobra.Command{
		Use:           "candrive-admin",
		Short:         "Maintenance commands for the can drive backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			c.out = cmd.OutOrStdout()
		},
	}
	root.AddCommand(
		c.migrateCmd(),
		c.createAdminCmd(),
		c.resetPasswordCmd(),
		c.createEventCmd(),
		c.activateEventCmd(),
		c.listEventsCmd(),
	)
	return root
}

func (c *cli) withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := app.Open(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(*app.App) error {
				fmt.Fprintln(c.out, "schema up to date")
				return nil
			})
		},
	}
}

func (c *cli) createAdminCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account; the password is prompted when not given",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := promptPassword(c.out, password)
			if err != nil {
				return err
			}
			return c.withApp(cmd.Context(), func(a *app.App) error {
				admin, err := a.Service.CreateAdmin(cmd.Context(), username, pwd)
				if err != nil {
					return describe(err)
				}
				fmt.Fprintf(c.out, "created admin %s (%s)\n", admin.Username, admin.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "admin username")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (c *cli) resetPasswordCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password for an admin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pwd, err := promptPassword(c.out, password)
			if err != nil {
				return err
			}
			return c.withApp(cmd.Context(), func(a *app.App) error {
				if err := a.Service.ResetPassword(cmd.Context(), username, pwd); err != nil {
					return describe(err)
				}
				fmt.Fprintf(c.out, "password updated for %s\n", username)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "admin username")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func (c *cli) createEventCmd() *cobra.Command {
	var in drive.EventInput
	cmd := &cobra.Command{
		Use:   "create-event",
		Short: "Create a can drive event",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				evt, err := a.Service.CreateEvent(cmd.Context(), in)
				if err != nil {
					return describe(err)
				}
				fmt.Fprintf(c.out, "created event %s %q active=%t\n", evt.ID, evt.Name, evt.Active)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "event name")
	cmd.Flags().StringVar(&in.SchoolYear, "school-year", "", "school year, e.g. 2026-2027")
	cmd.Flags().BoolVar(&in.Active, "activate", false, "make this the active event")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (c *cli) activateEventCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate-event EVENT_ID",
		Short: "Make an event the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				if err := a.Service.ActivateEvent(cmd.Context(), args[0]); err != nil {
					return describe(err)
				}
				fmt.Fprintf(c.out, "event %s is active\n", args[0])
				return nil
			})
		},
	}
}

func (c *cli) listEventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-events",
		Short: "List events",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(a *app.App) error {
				events, err := a.Service.ListEvents(cmd.Context())
				if err != nil {
					return err
				}
				for _, e := range events {
					marker := " "
					if e.Active {
						marker = "*"
					}
					fmt.Fprintf(c.out, "%s %s  %s  %s\n", marker, e.ID, e.Name, e.SchoolYear)
				}
				return nil
			})
		},
	}
}

func promptPassword(out io.Writer, given string) (string, error) {
	if given != "" {
		return given, nil
	}
	fmt.Fprint(out, "Enter password: ")
	pwd, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(pwd) == 0 {
		return "", errors.New("empty password")
	}
	return string(pwd), nil
}

// describe flattens validation field messages for terminal output.
func describe(err error) error {
	var verr *drive.ValidationError
	if !errors.As(err, &verr) || len(verr.Fields) == 0 {
		return err
	}
	parts := make([]string, 0, len(verr.Fields))
	for field, msg := range verr.Fields {
		parts = append(parts, field+": "+msg)
	}
	return fmt.Errorf("%s (%s)", verr.Message, strings.Join(parts, ", "))
}
