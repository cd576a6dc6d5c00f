package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/workerhub/internal/domain/account"
	"github.com/geocoder89/workerhub/internal/domain/project"
	"github.com/geocoder89/workerhub/internal/http/handlers"
	"github.com/geocoder89/workerhub/internal/http/middlewares"
	"github.com/geocoder89/workerhub/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Make sure Gin does not spam the console during the test
func init() {
	gin.SetMode(gin.TestMode)
}

// Fake implementation of handlers.ProjectsService
type fakeProjects struct {
	listFn    func(ctx context.Context, p account.Principal) ([]project.Project, error)
	createFn  func(ctx context.Context, p account.Principal, req project.CreateRequest) (project.Project, error)
	getFn     func(ctx context.Context, p account.Principal, id string) (project.Project, error)
	updateFn  func(ctx context.Context, p account.Principal, id string, req project.UpdateRequest) (project.Project, error)
	deleteFn  func(ctx context.Context, p account.Principal, id string) error
	statusFn  func(ctx context.Context, p account.Principal, id string, s project.Status) (project.Project, error)
	groupedFn func(ctx context.Context, p account.Principal) ([]service.WorkerProjects, error)
	searchFn  func(ctx context.Context, p account.Principal, name string) ([]project.Project, error)
}

func (f *fakeProjects) List(ctx context.Context, p account.Principal) ([]project.Project, error) {
	if f.listFn != nil {
		return f.listFn(ctx, p)
	}
	return []project.Project{}, nil
}

func (f *fakeProjects) Create(ctx context.Context, p account.Principal, req project.CreateRequest) (project.Project, error) {
	if f.createFn != nil {
		return f.createFn(ctx, p, req)
	}
	return project.Project{}, nil
}

func (f *fakeProjects) Get(ctx context.Context, p account.Principal, id string) (project.Project, error) {
	if f.getFn != nil {
		return f.getFn(ctx, p, id)
	}
	return project.Project{}, nil
}

func (f *fakeProjects) Update(ctx context.Context, p account.Principal, id string, req project.UpdateRequest) (project.Project, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, p, id, req)
	}
	return project.Project{}, nil
}

func (f *fakeProjects) Delete(ctx context.Context, p account.Principal, id string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, p, id)
	}
	return nil
}

func (f *fakeProjects) UpdateStatus(ctx context.Context, p account.Principal, id string, s project.Status) (project.Project, error) {
	if f.statusFn != nil {
		return f.statusFn(ctx, p, id, s)
	}
	return project.Project{}, nil
}

func (f *fakeProjects) Grouped(ctx context.Context, p account.Principal) ([]service.WorkerProjects, error) {
	if f.groupedFn != nil {
		return f.groupedFn(ctx, p)
	}
	return nil, nil
}

func (f *fakeProjects) Search(ctx context.Context, p account.Principal, name string) ([]project.Project, error) {
	if f.searchFn != nil {
		return f.searchFn(ctx, p, name)
	}
	return nil, nil
}

// small helper which mounts one handler behind a fake identity
func setupRouter(method, path string, p account.Principal, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, func(c *gin.Context) {
		if p != nil {
			c.Set(middlewares.CtxPrincipal, p)
		}
		c.Next()
	}, h)

	return r
}

func newJSONRequest(method, target, body string) *http.Request {
	if body == "" {
		return httptest.NewRequest(method, target, nil)
	}

	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doJSON(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	return serve(r, newJSONRequest(method, target, body))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	var resp bindErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, w.Body.String())
	}
	return resp.Error.Code
}

func TestCreateProjectHandler(t *testing.T) {
	worker := account.Worker{ID: uuid.NewString()}
	now := time.Now().UTC()

	tests := []struct {
		name       string
		principal  account.Principal
		body       string
		createErr  error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "created",
			principal:  worker,
			body:       `{"name":"Bridge","latitude":45.1,"longitude":7.6,"start_date":"2026-05-01"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "owner field is ignored",
			principal:  worker,
			body:       `{"name":"Bridge","worker":"someone-else"}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing name",
			principal:  worker,
			body:       `{"description":"no name"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
		{
			name:       "admin forbidden",
			principal:  account.Admin{ID: uuid.NewString()},
			body:       `{"name":"Bridge"}`,
			createErr:  &service.Error{Kind: service.KindPermission, Detail: "Only workers can create projects"},
			wantStatus: http.StatusForbidden,
			wantCode:   string(service.KindPermission),
		},
		{
			name:       "store failure",
			principal:  worker,
			body:       `{"name":"Bridge"}`,
			createErr:  errors.New("db down"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
		{
			name:       "no identity",
			body:       `{"name":"Bridge"}`,
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthorized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeProjects{
				createFn: func(_ context.Context, p account.Principal, req project.CreateRequest) (project.Project, error) {
					if tt.createErr != nil {
						return project.Project{}, tt.createErr
					}
					return project.Project{
						ID:        uuid.NewString(),
						OwnerID:   p.AccountID(),
						Name:      req.Name,
						Status:    project.StatusPending,
						CreatedAt: now,
						UpdatedAt: now,
					}, nil
				},
			}

			h := handlers.NewProjectsHandler(fake, nil)
			r := setupRouter(http.MethodPost, "/projects", tt.principal, h.Create)

			w := doJSON(r, http.MethodPost, "/projects", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantCode != "" {
				if got := errorCode(t, w); got != tt.wantCode {
					t.Fatalf("code = %q, want %q", got, tt.wantCode)
				}
				return
			}

			var got project.Project
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode project: %v", err)
			}
			if got.OwnerID != worker.ID {
				t.Fatalf("owner = %q, want caller %q", got.OwnerID, worker.ID)
			}
			if w.Header().Get("Location") == "" {
				t.Fatal("expected Location header")
			}
		})
	}
}

func TestGetProjectHandler_ErrorMapping(t *testing.T) {
	worker := account.Worker{ID: uuid.NewString()}

	tests := []struct {
		name       string
		id         string
		err        error
		wantStatus int
	}{
		{name: "not uuid", id: "abc", wantStatus: http.StatusNotFound},
		{name: "not visible", id: uuid.NewString(), err: &service.Error{Kind: service.KindNotFound, Detail: "Project not found"}, wantStatus: http.StatusNotFound},
		{name: "found", id: uuid.NewString(), wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeProjects{
				getFn: func(_ context.Context, _ account.Principal, id string) (project.Project, error) {
					if tt.err != nil {
						return project.Project{}, tt.err
					}
					return project.Project{ID: id, OwnerID: worker.ID, Name: "Bridge", Status: project.StatusPending}, nil
				},
			}

			h := handlers.NewProjectsHandler(fake, nil)
			r := setupRouter(http.MethodGet, "/projects/:id", worker, h.Get)

			w := doJSON(r, http.MethodGet, "/projects/"+tt.id, "")
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestListProjectsHandler_ETag(t *testing.T) {
	worker := account.Worker{ID: uuid.NewString()}
	fake := &fakeProjects{
		listFn: func(context.Context, account.Principal) ([]project.Project, error) {
			return []project.Project{{ID: uuid.NewString(), OwnerID: worker.ID, Name: "Bridge", Status: project.StatusPending}}, nil
		},
	}

	h := handlers.NewProjectsHandler(fake, nil)
	r := setupRouter(http.MethodGet, "/projects", worker, h.List)

	w := doJSON(r, http.MethodGet, "/projects", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag header")
	}

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified {
		t.Fatalf("status = %d, want 304", w.Code)
	}
}

func TestReplaceProjectHandler_RequiresName(t *testing.T) {
	worker := account.Worker{ID: uuid.NewString()}

	var got project.UpdateRequest
	fake := &fakeProjects{
		updateFn: func(_ context.Context, _ account.Principal, id string, req project.UpdateRequest) (project.Project, error) {
			got = req
			return project.Project{ID: id, OwnerID: worker.ID, Name: *req.Name, Status: project.StatusPending}, nil
		},
	}

	h := handlers.NewProjectsHandler(fake, nil)
	r := setupRouter(http.MethodPut, "/projects/:id", worker, h.Replace)
	id := uuid.NewString()

	w := doJSON(r, http.MethodPut, "/projects/"+id, `{"description":"only"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("PUT without name: status = %d, want 400", w.Code)
	}

	w = doJSON(r, http.MethodPut, "/projects/"+id, `{"name":"Renamed"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if got.Name == nil || *got.Name != "Renamed" {
		t.Fatalf("name not forwarded: %+v", got)
	}
	if got.Status != nil {
		t.Fatalf("absent status must not be forwarded, got %v", *got.Status)
	}
}

func TestPatchProjectHandler_Partial(t *testing.T) {
	worker := account.Worker{ID: uuid.NewString()}

	var got project.UpdateRequest
	fake := &fakeProjects{
		updateFn: func(_ context.Context, _ account.Principal, id string, req project.UpdateRequest) (project.Project, error) {
			got = req
			return project.Project{ID: id}, nil
		},
	}

	h := handlers.NewProjectsHandler(fake, nil)
	r := setupRouter(http.MethodPatch, "/projects/:id", worker, h.Patch)

	w := doJSON(r, http.MethodPatch, "/projects/"+uuid.NewString(), `{"description":"new"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if got.Name != nil {
		t.Fatal("name should be left untouched")
	}
	if got.Description == nil || *got.Description != "new" {
		t.Fatalf("description not forwarded: %+v", got)
	}
}

func TestDeleteProjectHandler(t *testing.T) {
	worker := account.Worker{ID: uuid.NewString()}

	h := handlers.NewProjectsHandler(&fakeProjects{}, nil)
	r := setupRouter(http.MethodDelete, "/projects/:id", worker, h.Delete)

	w := doJSON(r, http.MethodDelete, "/projects/"+uuid.NewString(), "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
}

func TestUpdateStatusHandler(t *testing.T) {
	worker := account.Worker{ID: uuid.NewString()}

	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "ok", body: `{"status":"COMPLETED"}`, wantStatus: http.StatusOK},
		{
			name:       "forbidden",
			body:       `{"status":"COMPLETED"}`,
			err:        &service.Error{Kind: service.KindPermission, Detail: "You do not have permission to update this project"},
			wantStatus: http.StatusForbidden,
			wantCode:   string(service.KindPermission),
		},
		{
			name: "invalid status",
			body: `{"status":"DONE"}`,
			err: &service.Error{Kind: service.KindValidation, Detail: "Invalid status", Fields: []service.FieldError{
				{Field: "status", Rule: "oneof"},
			}},
			wantStatus: http.StatusBadRequest,
			wantCode:   string(service.KindValidation),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeProjects{
				statusFn: func(_ context.Context, _ account.Principal, id string, s project.Status) (project.Project, error) {
					if tt.err != nil {
						return project.Project{}, tt.err
					}
					return project.Project{ID: id, OwnerID: worker.ID, Status: s}, nil
				},
			}

			h := handlers.NewProjectsHandler(fake, nil)
			r := setupRouter(http.MethodPatch, "/projects/:id/status", worker, h.UpdateStatus)

			w := doJSON(r, http.MethodPatch, "/projects/"+uuid.NewString()+"/status", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantCode != "" {
				if got := errorCode(t, w); got != tt.wantCode {
					t.Fatalf("code = %q, want %q", got, tt.wantCode)
				}
			}
		})
	}
}

func TestSearchProjectsHandler_PassesQuery(t *testing.T) {
	worker := account.Worker{ID: uuid.NewString()}

	var gotName string
	fake := &fakeProjects{
		searchFn: func(_ context.Context, _ account.Principal, name string) ([]project.Project, error) {
			gotName = name
			return nil, &service.Error{Kind: service.KindNotFound, Detail: "No project found with that name"}
		},
	}

	h := handlers.NewProjectsHandler(fake, nil)
	r := setupRouter(http.MethodGet, "/projects/search", worker, h.Search)

	w := doJSON(r, http.MethodGet, "/projects/search?name=Bridge", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if gotName != "Bridge" {
		t.Fatalf("name = %q", gotName)
	}
}
