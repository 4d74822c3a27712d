// Package session owns the affiliate-network session artifact: loading it
// from configuration or a file, hot-reloading it on expiry and rate-limiting
// invocations of the external re-authentication collaborator. Artifact values
// are opaque and never logged; only their presence and length are.
package session

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"linkmint/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

//go:generate mockgen -package mocksession -source=session.go -destination=mock/mocksession.go *

// Artifact is the proof of an authenticated partner-network session: a cookie
// header fragment, a bearer token, or both.
type Artifact struct {
	Cookie string
	Bearer string
}

// Empty reports whether the artifact carries no credentials at all.
func (a Artifact) Empty() bool {
	return a.Cookie == "" && a.Bearer == ""
}

// CredentialSource supplies the current session artifact. Load may block on
// I/O, so it takes a context.
type CredentialSource interface {
	Load(ctx context.Context) (Artifact, error)
}

// Refresher is the external re-authentication collaborator (for example an
// automated browser login) that rewrites the session artifact out of band.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// StaticSource returns a fixed artifact from configuration.
type StaticSource struct {
	Artifact Artifact
}

func (s StaticSource) Load(context.Context) (Artifact, error) {
	return s.Artifact, nil
}

// FileSource reads the cookie or session token from a file on every Load, so
// an out-of-process refresh becomes visible without a restart. Bearer, when
// set, is carried alongside the file contents.
type FileSource struct {
	Path   string
	Bearer string
}

func (f FileSource) Load(context.Context) (Artifact, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return Artifact{}, fmt.Errorf("could not read session file: %w", err)
	}

	return Artifact{
		Cookie: CookieHeader(strings.TrimSpace(string(b))),
		Bearer: f.Bearer,
	}, nil
}

// CookieHeader accepts either a raw session-token value or a full cookie
// header fragment ("a=b; c=d") and returns a cookie header fragment. A raw
// token is sent under both session-token cookie names since deployments vary
// on which one they read.
func CookieHeader(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ""
	}
	if strings.Contains(v, "=") && strings.Contains(v, ";") {
		return v
	}

	token := strings.NewReplacer(`"`, "", "'", "").Replace(v)

	return fmt.Sprintf("__Secure-next-auth.session-token=%s; next-auth.session-token=%s", token, token)
}

// ExecRefresher runs a configured command as the re-authentication
// collaborator. The command is expected to rewrite the artifact on disk.
type ExecRefresher struct {
	Command string
}

func (e ExecRefresher) Refresh(ctx context.Context) error {
	if e.Command == "" {
		return fmt.Errorf("no refresh command configured")
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", e.Command)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("refresh command failed: %w", err)
	}

	return nil
}

// Options configure a Manager.
type Options struct {
	Source    CredentialSource
	Refresher Refresher
	Cooldown  time.Duration
}

// Manager tracks the current session artifact and its freshness. Reload pulls
// a fresher artifact from the source; SignalExpired raises the external
// refresh collaborator at most once per cooldown window regardless of call
// volume.
type Manager struct {
	source    CredentialSource
	refresher Refresher
	cooldown  time.Duration
	now       func() time.Time

	mu            sync.Mutex
	artifact      Artifact
	lastValidated time.Time
	valid         bool
	lastSignal    time.Time
}

// NewManager constructs a Manager and performs an initial load. A load
// failure is not fatal: the manager starts with an empty artifact and the
// first Reload may still succeed.
func NewManager(ctx context.Context, opts Options) *Manager {
	m := &Manager{
		source:    opts.Source,
		refresher: opts.Refresher,
		cooldown:  opts.Cooldown,
		now:       time.Now,
	}
	if m.cooldown <= 0 {
		m.cooldown = 10 * time.Minute
	}

	if a, err := opts.Source.Load(ctx); err == nil {
		m.artifact = a
	} else {
		logger.Warn(ctx, "initial session load failed", zap.Error(err))
	}
	logger.Debug(ctx, "session manager ready",
		zap.Int("cookie_len", len(m.artifact.Cookie)),
		zap.Bool("has_bearer", m.artifact.Bearer != ""))

	return m
}

// Artifact returns the current session artifact.
func (m *Manager) Artifact() Artifact {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.artifact
}

// SetBearer replaces the bearer token, typically after deriving a fresh one
// from the session endpoint.
func (m *Manager) SetBearer(bearer string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.artifact.Bearer = strings.TrimSpace(bearer)
}

// MarkValidated records a successful authenticated call.
func (m *Manager) MarkValidated() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastValidated = m.now()
	m.valid = true
}

// Valid reports the last known session state and when it was observed.
func (m *Manager) Valid() (bool, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.valid, m.lastValidated
}

// Reload pulls a fresher artifact from the source. It reports whether the
// artifact actually changed, so callers can decide if a retry is worthwhile.
func (m *Manager) Reload(ctx context.Context) bool {
	a, err := m.source.Load(ctx)
	if err != nil {
		logger.Debug(ctx, "session reload failed", zap.Error(err))

		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	changed := a != m.artifact
	m.artifact = a
	if changed {
		logger.Info(ctx, "session artifact reloaded",
			zap.Int("cookie_len", len(a.Cookie)),
			zap.Bool("has_bearer", a.Bearer != ""))
	}

	return changed
}

// SignalExpired marks the session invalid and, when the cooldown window
// permits, invokes the external refresh collaborator. It reports whether the
// collaborator actually fired.
func (m *Manager) SignalExpired(ctx context.Context) bool {
	m.mu.Lock()
	m.valid = false
	now := m.now()
	if !m.lastSignal.IsZero() && now.Sub(m.lastSignal) < m.cooldown {
		m.mu.Unlock()

		return false
	}
	m.lastSignal = now
	refresher := m.refresher
	m.mu.Unlock()

	if refresher == nil {
		return false
	}

	logger.Warn(ctx, "session expired, invoking refresh collaborator")
	if err := refresher.Refresh(ctx); err != nil {
		logger.Error(ctx, "refresh collaborator failed", zap.Error(err))

		return true
	}

	m.Reload(ctx)

	return true
}

// BearerExpiringSoon reports whether the current bearer token is a JWT whose
// exp claim falls within skew from now. The signature is not verified; the
// claim is used only as a refresh hint, never for trust.
func (m *Manager) BearerExpiringSoon(skew time.Duration) bool {
	bearer := m.Artifact().Bearer
	if bearer == "" {
		return false
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(bearer, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}

	return !m.now().Before(claims.ExpiresAt.Time.Add(-skew))
}
