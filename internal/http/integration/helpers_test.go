package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/workerhub/internal/auth"
	"github.com/geocoder89/workerhub/internal/db"
	apphttp "github.com/geocoder89/workerhub/internal/http"
	"github.com/geocoder89/workerhub/internal/notifications"
	"github.com/geocoder89/workerhub/internal/repo/memory"
	"github.com/geocoder89/workerhub/internal/security"
	"github.com/geocoder89/workerhub/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	testPassword  = "Corr3ct-Horse-Battery"
	adminUsername = "root-admin"
	inviteToken   = "test-invite"
	resetBase     = "http://reset.test/confirm"
)

// outbox records every message instead of delivering it.
type outbox struct {
	mu   sync.Mutex
	msgs []notifications.Message
}

func (o *outbox) Send(_ context.Context, msg notifications.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
	return nil
}

func (o *outbox) last(t *testing.T) notifications.Message {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.msgs) == 0 {
		t.Fatalf("no message was sent")
	}
	return o.msgs[len(o.msgs)-1]
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.msgs)
}

type testApp struct {
	router http.Handler
	mail   *outbox
}

func setupApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	users := memory.NewUsersRepo()
	projects := memory.NewProjectsRepo()
	refresh := memory.NewRefreshTokensRepo()
	mail := &outbox{}

	tokens := auth.NewManager("integration-secret", 15*time.Minute, 24*time.Hour, time.Hour)

	accounts := service.NewAccountService(users, refresh, tokens, mail, service.AccountsConfig{
		PasswordPolicy:   security.DefaultPasswordPolicy(),
		ResetURL:         resetBase,
		ResetTTL:         time.Hour,
		AdminInviteToken: inviteToken,
	}, logger)

	err := db.EnsureAdminUser(context.Background(), users, db.AdminSeed{
		Username: adminUsername,
		Email:    "root@example.com",
		Password: testPassword,
	}, logger)
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	router := apphttp.NewRouter(apphttp.Deps{
		Env:                "test",
		Log:                logger,
		Accounts:           accounts,
		Projects:           service.NewProjectService(projects, users, logger),
		Tokens:             tokens,
		RateLimitPerMinute: 1000,
		CORSAllowedOrigins: []string{"*"},
		MaxBodyBytes:       1 << 20,
	})

	return &testApp{router: router, mail: mail}
}

func (a *testApp) do(method, path, body, bearer string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	return w
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int, step string) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("%s got status %d, want %d, body=%s", step, w.Code, want, w.Body.String())
	}
}

type profileResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type loginResponse struct {
	Access  string          `json:"access"`
	Refresh string          `json:"refresh"`
	User    profileResponse `json:"user"`
}

type projectResponse struct {
	ID     string `json:"id"`
	Worker string `json:"worker"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type errorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Detail    string `json:"detail"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

func (a *testApp) registerWorker(t *testing.T, username, email string) profileResponse {
	t.Helper()

	body := `{"username":"` + username + `","email":"` + email + `","password":"` + testPassword + `"}`
	w := a.do(http.MethodPost, "/api/register/worker", body, "")
	expectStatus(t, w, http.StatusCreated, "register "+username)

	var p profileResponse
	mustReadJSON(t, w, &p)
	return p
}

func (a *testApp) login(t *testing.T, username string) loginResponse {
	t.Helper()

	w := a.do(http.MethodPost, "/api/login", `{"username":"`+username+`","password":"`+testPassword+`"}`, "")
	expectStatus(t, w, http.StatusOK, "login "+username)

	var out loginResponse
	mustReadJSON(t, w, &out)
	if strings.TrimSpace(out.Access) == "" || strings.TrimSpace(out.Refresh) == "" {
		t.Fatalf("login %s returned empty tokens: %s", username, w.Body.String())
	}
	return out
}

func (a *testApp) createProject(t *testing.T, bearer, body string) projectResponse {
	t.Helper()

	w := a.do(http.MethodPost, "/api/projects", body, bearer)
	expectStatus(t, w, http.StatusCreated, "create project")

	var p projectResponse
	mustReadJSON(t, w, &p)
	return p
}

// resetLinkParts pulls uid and token out of the {base}/{uid}/{token} link in a reset email.
func resetLinkParts(t *testing.T, msg notifications.Message) (string, string) {
	t.Helper()

	for _, line := range strings.Split(msg.Body, "\n") {
		if !strings.HasPrefix(line, resetBase+"/") {
			continue
		}
		parts := strings.Split(strings.TrimPrefix(line, resetBase+"/"), "/")
		if len(parts) != 2 {
			t.Fatalf("malformed reset link %q", line)
		}
		return parts[0], parts[1]
	}

	t.Fatalf("no reset link in message body: %q", msg.Body)
	return "", ""
}
