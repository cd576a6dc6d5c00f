package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/workerhub/internal/auth"
	"github.com/geocoder89/workerhub/internal/domain/account"
	"github.com/geocoder89/workerhub/internal/domain/session"
	"github.com/geocoder89/workerhub/internal/notifications"
	"github.com/geocoder89/workerhub/internal/repo/memory"
	"github.com/geocoder89/workerhub/internal/security"
	"github.com/geocoder89/workerhub/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strongPassword = "Tr1cky-Horse-42"

type captureSender struct {
	mu   sync.Mutex
	sent []notifications.Message
	err  error
}

func (c *captureSender) Send(_ context.Context, msg notifications.Message) error {
	if c.err != nil {
		return c.err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureSender) last(t *testing.T) notifications.Message {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.sent, "no message sent")
	return c.sent[len(c.sent)-1]
}

type harness struct {
	users    *memory.UsersRepo
	projects *memory.ProjectsRepo
	refresh  *memory.RefreshTokensRepo
	tokens   *auth.Manager
	sender   *captureSender
	accounts *AccountService
	svc      *ProjectService
}

func newHarness(t *testing.T, mutate ...func(*AccountsConfig)) *harness {
	t.Helper()

	cfg := AccountsConfig{
		PasswordPolicy:   security.DefaultPasswordPolicy(),
		ResetURL:         "https://app.example.com/reset-password",
		ResetTTL:         time.Hour,
		AdminInviteToken: "invite-123",
	}
	for _, m := range mutate {
		m(&cfg)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		users:    memory.NewUsersRepo(),
		projects: memory.NewProjectsRepo(),
		refresh:  memory.NewRefreshTokensRepo(),
		tokens:   auth.NewManager("service-test-secret", 15*time.Minute, 24*time.Hour, time.Hour),
		sender:   &captureSender{},
	}
	h.accounts = NewAccountService(h.users, h.refresh, h.tokens, h.sender, cfg, log)
	h.svc = NewProjectService(h.projects, h.users, log)
	return h
}

func (h *harness) worker(t *testing.T, username string) account.Worker {
	t.Helper()
	p, err := h.accounts.RegisterWorker(context.Background(), RegisterInput{
		Username: username, Email: username + "@example.com", Password: strongPassword,
	})
	require.NoError(t, err)
	return account.Worker{ID: p.ID}
}

func (h *harness) admin(t *testing.T, username string) account.Admin {
	t.Helper()
	p, err := h.accounts.RegisterAdmin(context.Background(), nil, "invite-123", RegisterInput{
		Username: username, Email: username + "@example.com", Password: strongPassword,
	})
	require.NoError(t, err)
	return account.Admin{ID: p.ID}
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	got, ok := KindOf(err)
	require.True(t, ok, "expected a service error, got %v", err)
	assert.Equal(t, kind, got, "error: %v", err)
}

func resetParts(t *testing.T, body string) (uid, token string) {
	t.Helper()
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "https://app.example.com/reset-password/") {
			parts := strings.Split(strings.TrimPrefix(line, "https://app.example.com/reset-password/"), "/")
			require.Len(t, parts, 2)
			return parts[0], parts[1]
		}
	}
	t.Fatalf("no reset link in body: %q", body)
	return "", ""
}

func refreshRow(id, userID, hash string, exp time.Time) session.RefreshToken {
	return session.RefreshToken{ID: id, UserID: userID, TokenHash: hash, ExpiresAt: exp, CreatedAt: time.Now().UTC()}
}

func encodeUIDForTest(id string) string {
	return utils.EncodeUID(id)
}
