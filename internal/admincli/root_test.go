package admincli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/term"

	"candrive/internal/app"
	"candrive/internal/config"
)

func testConfig(name string) config.App {
	return config.App{
		DatabaseDriver: "sqlite",
		DatabaseURL:    "file:" + name + "?mode=memory&cache=shared&_pragma=foreign_keys(1)",
		QueueBackend:   "memory",
		DayTimezone:    "UTC",
	}
}

// keepOpen holds the shared in-memory database alive between commands.
func keepOpen(t *testing.T, cfg config.App) *app.App {
	t.Helper()
	a, err := app.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func run(t *testing.T, cfg config.App, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRoot(cfg)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCreateAdminPromptsForPassword(t *testing.T) {
	cfg := testConfig("cli_admin")
	a := keepOpen(t, cfg)

	readPassword = func(int) ([]byte, error) { return []byte("prompted-pass"), nil }
	t.Cleanup(func() { readPassword = term.ReadPassword })

	out, err := run(t, cfg, "create-admin", "--username", "principal")
	require.NoError(t, err)
	assert.Contains(t, out, "created admin principal")

	_, err = a.Service.Authenticate(context.Background(), "principal", "prompted-pass")
	assert.NoError(t, err)

	out, err = run(t, cfg, "reset-password", "-u", "principal", "--password", "changed-pass")
	require.NoError(t, err)
	assert.Contains(t, out, "password updated")
	_, err = a.Service.Authenticate(context.Background(), "principal", "changed-pass")
	assert.NoError(t, err)
}

func TestCreateAdminRejectsWeakPassword(t *testing.T) {
	cfg := testConfig("cli_weak")
	keepOpen(t, cfg)

	_, err := run(t, cfg, "create-admin", "--username", "principal", "--password", "short")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password:")
}

func TestPromptErrors(t *testing.T) {
	readPassword = func(int) ([]byte, error) { return nil, errors.New("no tty") }
	t.Cleanup(func() { readPassword = term.ReadPassword })
	_, err := promptPassword(&bytes.Buffer{}, "")
	assert.ErrorContains(t, err, "no tty")

	readPassword = func(int) ([]byte, error) { return []byte{}, nil }
	_, err = promptPassword(&bytes.Buffer{}, "")
	assert.Error(t, err)
}

func TestEventCommands(t *testing.T) {
	cfg := testConfig("cli_events")
	a := keepOpen(t, cfg)

	out, err := run(t, cfg, "create-event", "--name", "Fall Drive", "--school-year", "2026-2027", "--activate")
	require.NoError(t, err)
	assert.Contains(t, out, `"Fall Drive" active=true`)

	_, err = run(t, cfg, "create-event", "--name", "Spring Drive")
	require.NoError(t, err)

	events, err := a.Service.ListEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	var spring string
	for _, e := range events {
		if e.Name == "Spring Drive" {
			spring = e.ID
		}
	}

	_, err = run(t, cfg, "activate-event", spring)
	require.NoError(t, err)
	out, err = run(t, cfg, "list-events")
	require.NoError(t, err)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.Contains(line, "Spring Drive") {
			assert.True(t, strings.HasPrefix(line, "*"), line)
		} else {
			assert.True(t, strings.HasPrefix(line, " "), line)
		}
	}

	_, err = run(t, cfg, "activate-event", "missing")
	assert.Error(t, err)
	_, err = run(t, cfg, "activate-event")
	assert.Error(t, err)
}

func TestMigrate(t *testing.T) {
	cfg := testConfig("cli_migrate")
	keepOpen(t, cfg)
	out, err := run(t, cfg, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema up to date")
}
