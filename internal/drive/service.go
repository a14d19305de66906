package drive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"candrive/internal/auth"
	"candrive/internal/leaderboard"
	"candrive/internal/queue"
)

// CurrentEventID is the path alias of the active event.
const CurrentEventID = "current"

// Cache stores rendered leaderboards. Implementations must be safe for
// concurrent use; a miss is reported with ok == false.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	DeletePrefix(ctx context.Context, prefix string)
}

// Publisher hands messages to the milestone worker.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Options configures a Service.
type Options struct {
	Leaderboard  leaderboard.Options
	DailyLimit   int
	Location     *time.Location
	DayResetHour int
	CacheTTL     time.Duration
	SearchLimit  int
}

// Service coordinates validation, persistence, caching and events.
type Service struct {
	repo  *Repository
	cache Cache
	pub   Publisher
	opts  Options
	clock func() time.Time
}

// NewService creates a service backed by a repository. cache and pub may be nil.
func NewService(repo *Repository, opts Options, cache Cache, pub Publisher) *Service {
	if opts.Leaderboard.Limit <= 0 {
		opts.Leaderboard.Limit = 50
	}
	if opts.Leaderboard.CansPerStudent <= 0 {
		opts.Leaderboard.CansPerStudent = 10
	}
	if opts.Leaderboard.AwardLimit <= 0 {
		opts.Leaderboard.AwardLimit = 20
	}
	if opts.DailyLimit <= 0 {
		opts.DailyLimit = 10
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 10
	}
	return &Service{repo: repo, cache: cache, pub: pub, opts: opts, clock: time.Now}
}

// Repo exposes the repository for maintenance tooling.
func (s *Service) Repo() *Repository {
	return s.repo
}

// --- events

// ResolveEventID maps "current" to the active event and checks that other
// ids exist.
func (s *Service) ResolveEventID(ctx context.Context, id string) (string, error) {
	if id == "" || id == CurrentEventID {
		evt, err := s.repo.ActiveEvent(ctx)
		if err != nil {
			return "", fmt.Errorf("active event: %w", err)
		}
		return evt.ID, nil
	}
	evt, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return "", fmt.Errorf("event %s: %w", id, err)
	}
	return evt.ID, nil
}

// CurrentEvent returns the active event.
func (s *Service) CurrentEvent(ctx context.Context) (Event, error) {
	return s.repo.ActiveEvent(ctx)
}

// ListEvents returns every event, newest first.
func (s *Service) ListEvents(ctx context.Context) ([]Event, error) {
	return s.repo.ListEvents(ctx)
}

// EventInput describes a new event.
type EventInput struct {
	Name       string
	SchoolYear string
	StartDate  *time.Time
	EndDate    *time.Time
	Active     bool
}

// CreateEvent validates and stores an event.
func (s *Service) CreateEvent(ctx context.Context, in EventInput) (Event, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Event{}, invalid("name", "event name is required")
	}
	evt := Event{Name: name, SchoolYear: strings.TrimSpace(in.SchoolYear), Active: in.Active}
	if in.StartDate != nil {
		evt.StartDate = in.StartDate.UTC()
	}
	if in.EndDate != nil {
		end := in.EndDate.UTC()
		if !evt.StartDate.IsZero() && end.Before(evt.StartDate) {
			return Event{}, invalid("end_date", "end date is before start date")
		}
		evt.EndDate = &end
	}
	return s.repo.InsertEvent(ctx, evt)
}

// ActivateEvent makes id the only active event.
func (s *Service) ActivateEvent(ctx context.Context, id string) error {
	if err := s.repo.ActivateEvent(ctx, id); err != nil {
		return fmt.Errorf("activate event %s: %w", id, err)
	}
	return nil
}

// ResetEvent wipes the event's roster, donations and reservations.
func (s *Service) ResetEvent(ctx context.Context, eventID string, confirm bool) (ResetResult, error) {
	if !confirm {
		return ResetResult{}, invalid("confirm", "reset requires confirm=true")
	}
	res, err := s.repo.ResetEvent(ctx, eventID)
	if err != nil {
		return ResetResult{}, err
	}
	s.invalidate(ctx, eventID)
	slog.Warn("event reset", "event_id", eventID,
		"students", res.Students, "teachers", res.Teachers, "donations", res.Donations, "reservations", res.Reservations)
	return res, nil
}

// Bootstrap creates a first active event when none exists and the configured
// admin when missing.
func (s *Service) Bootstrap(ctx context.Context, eventName, adminUser, adminPassword string) error {
	n, err := s.repo.CountEvents(ctx)
	if err != nil {
		return fmt.Errorf("count events: %w", err)
	}
	if n == 0 {
		if eventName == "" {
			eventName = fmt.Sprintf("Can Drive %d", s.clock().Year())
		}
		evt, err := s.CreateEvent(ctx, EventInput{Name: eventName, Active: true})
		if err != nil {
			return fmt.Errorf("create first event: %w", err)
		}
		slog.Info("created event", "event_id", evt.ID, "name", evt.Name)
	}
	if adminUser == "" || adminPassword == "" {
		return nil
	}
	if _, err := s.repo.GetAdminByUsername(ctx, adminUser); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}
	if _, err := s.CreateAdmin(ctx, adminUser, adminPassword); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	slog.Info("created admin", "username", adminUser)
	return nil
}

// --- admins

// CreateAdmin stores a new admin with a bcrypt hash.
func (s *Service) CreateAdmin(ctx context.Context, username, password string) (Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return Admin{}, invalid("username", "username is required")
	}
	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrWeakPassword) {
		return Admin{}, invalid("password", err.Error())
	}
	if err != nil {
		return Admin{}, err
	}
	return s.repo.InsertAdmin(ctx, username, hash)
}

// Authenticate checks credentials and records the login.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Admin, error) {
	a, err := s.repo.GetAdminByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrNotFound) {
		return Admin{}, ErrInvalidCredentials
	}
	if err != nil {
		return Admin{}, err
	}
	if !auth.CheckPassword(a.PasswordHash, password) {
		return Admin{}, ErrInvalidCredentials
	}
	if err := s.repo.TouchAdminLogin(ctx, a.ID); err != nil {
		slog.Warn("last login not recorded", "admin_id", a.ID, "error", err)
	}
	return a, nil
}

// ChangePassword replaces the password after verifying the old one.
func (s *Service) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	a, err := s.Authenticate(ctx, username, oldPassword)
	if err != nil {
		return err
	}
	return s.setPassword(ctx, a, newPassword)
}

// ResetPassword sets a password without the old one, for operators.
func (s *Service) ResetPassword(ctx context.Context, username, newPassword string) error {
	a, err := s.repo.GetAdminByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return fmt.Errorf("admin %s: %w", username, err)
	}
	return s.setPassword(ctx, a, newPassword)
}

func (s *Service) setPassword(ctx context.Context, a Admin, password string) error {
	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrWeakPassword) {
		return invalid("new_password", err.Error())
	}
	if err != nil {
		return err
	}
	return s.repo.UpdateAdminPassword(ctx, a.ID, hash)
}

// --- cache helpers

func cacheKey(eventID, view string) string {
	return "candrive:lb:" + eventID + ":" + view
}

func (s *Service) invalidate(ctx context.Context, eventID string) {
	if s.cache != nil {
		s.cache.DeletePrefix(ctx, cacheKey(eventID, ""))
	}
}
