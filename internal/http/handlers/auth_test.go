package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/geocoder89/workerhub/internal/domain/account"
	"github.com/geocoder89/workerhub/internal/http/handlers"
	"github.com/geocoder89/workerhub/internal/service"
	"github.com/gin-gonic/gin"
)

type fakeAccounts struct {
	registerAdminFn func(ctx context.Context, caller account.Principal, invite string, in service.RegisterInput) (account.Profile, error)
	loginFn         func(ctx context.Context, in service.LoginInput) (service.LoginResult, error)
	loggedOut       []string
}

func (f *fakeAccounts) RegisterWorker(_ context.Context, in service.RegisterInput) (account.Profile, error) {
	return account.Profile{ID: "w1", Username: in.Username, Email: in.Email, Role: account.RoleWorker}, nil
}

func (f *fakeAccounts) RegisterAdmin(ctx context.Context, caller account.Principal, invite string, in service.RegisterInput) (account.Profile, error) {
	if f.registerAdminFn != nil {
		return f.registerAdminFn(ctx, caller, invite, in)
	}
	return account.Profile{}, nil
}

func (f *fakeAccounts) Login(ctx context.Context, in service.LoginInput) (service.LoginResult, error) {
	if f.loginFn != nil {
		return f.loginFn(ctx, in)
	}
	return service.LoginResult{}, nil
}

func (f *fakeAccounts) Refresh(context.Context, string) (service.TokenPair, error) {
	return service.TokenPair{Access: "a", Refresh: "r"}, nil
}

func (f *fakeAccounts) Logout(_ context.Context, token string) {
	f.loggedOut = append(f.loggedOut, token)
}

func (f *fakeAccounts) RequestPasswordReset(context.Context, string) (string, error) {
	return "sent", nil
}

func (f *fakeAccounts) ConfirmPasswordReset(context.Context, service.ResetConfirmInput) (string, error) {
	return "done", nil
}

func TestRegisterWorkerHandler_IgnoresRole(t *testing.T) {
	h := handlers.NewAuthHandler(&fakeAccounts{}, nil)
	r := setupRouter(http.MethodPost, "/register/worker", nil, h.RegisterWorker)

	w := doJSON(r, http.MethodPost, "/register/worker", `{"username":"ana","email":"ana@example.com","password":"x","role":"ADMIN"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
}

func TestRegisterAdminHandler_ForwardsInviteAndCaller(t *testing.T) {
	var (
		gotInvite string
		gotCaller account.Principal
	)

	fake := &fakeAccounts{
		registerAdminFn: func(_ context.Context, caller account.Principal, invite string, in service.RegisterInput) (account.Profile, error) {
			gotInvite, gotCaller = invite, caller
			if caller == nil && invite != "let-me-in" {
				return account.Profile{}, &service.Error{Kind: service.KindPermission, Detail: "nope"}
			}
			return account.Profile{ID: "a2", Username: in.Username, Role: account.RoleAdmin}, nil
		},
	}
	h := handlers.NewAuthHandler(fake, nil)

	anon := setupRouter(http.MethodPost, "/register/admin", nil, h.RegisterAdmin)
	w := doJSON(anon, http.MethodPost, "/register/admin", `{"username":"boss","password":"x"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("anonymous without invite: status = %d, want 403", w.Code)
	}

	r := gin.New()
	r.POST("/register/admin", h.RegisterAdmin)
	req := newJSONRequest(http.MethodPost, "/register/admin", `{"username":"boss","password":"x"}`)
	req.Header.Set("X-Admin-Invite", "let-me-in")
	w = serve(r, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("with invite: status = %d (%s)", w.Code, w.Body.String())
	}
	if gotInvite != "let-me-in" || gotCaller != nil {
		t.Fatalf("invite=%q caller=%v", gotInvite, gotCaller)
	}

	admin := setupRouter(http.MethodPost, "/register/admin", account.Admin{ID: "a1"}, h.RegisterAdmin)
	w = doJSON(admin, http.MethodPost, "/register/admin", `{"username":"boss2","password":"x"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("admin caller: status = %d", w.Code)
	}
	if gotCaller == nil || gotCaller.Role() != account.RoleAdmin {
		t.Fatalf("caller not forwarded: %v", gotCaller)
	}
}

func TestLoginHandler_AuthenticationFailure(t *testing.T) {
	fake := &fakeAccounts{
		loginFn: func(context.Context, service.LoginInput) (service.LoginResult, error) {
			return service.LoginResult{}, &service.Error{Kind: service.KindAuthentication, Detail: "No active account found with the given credentials"}
		},
	}
	h := handlers.NewAuthHandler(fake, nil)
	r := setupRouter(http.MethodPost, "/login", nil, h.Login)

	w := doJSON(r, http.MethodPost, "/login", `{"username":"ana","password":"wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if got := errorCode(t, w); got != string(service.KindAuthentication) {
		t.Fatalf("code = %q", got)
	}
}

func TestRefreshHandler_RequiresToken(t *testing.T) {
	h := handlers.NewAuthHandler(&fakeAccounts{}, nil)
	r := setupRouter(http.MethodPost, "/token/refresh", nil, h.Refresh)

	if w := doJSON(r, http.MethodPost, "/token/refresh", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if w := doJSON(r, http.MethodPost, "/token/refresh", `{"refresh":"r1"}`); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestLogoutHandler_AlwaysNoContent(t *testing.T) {
	fake := &fakeAccounts{}
	h := handlers.NewAuthHandler(fake, nil)
	r := setupRouter(http.MethodPost, "/logout", nil, h.Logout)

	if w := doJSON(r, http.MethodPost, "/logout", `not json`); w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if w := doJSON(r, http.MethodPost, "/logout", `{"refresh":"r1"}`); w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if len(fake.loggedOut) != 1 || fake.loggedOut[0] != "r1" {
		t.Fatalf("logged out = %v", fake.loggedOut)
	}
}
