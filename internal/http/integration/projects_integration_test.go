package integration_test

import (
	"net/http"
	"testing"
)

func TestProjectsIntegration_WorkerLifecycle(t *testing.T) {
	app := setupApp(t)

	alice := app.registerWorker(t, "alice", "alice@example.com")
	if alice.Role != "WORKER" {
		t.Fatalf("register alice role = %q, want WORKER", alice.Role)
	}

	session := app.login(t, "alice")
	if session.User.Role != "WORKER" || session.User.Username != "alice" {
		t.Fatalf("login user = %+v, want alice/WORKER", session.User)
	}

	// owner in the body is ignored
	x := app.createProject(t, session.Access, `{"name":"X","worker":"00000000-0000-0000-0000-000000000000"}`)
	if x.Worker != alice.ID {
		t.Fatalf("project owner = %q, want %q", x.Worker, alice.ID)
	}
	if x.Status != "PENDING" {
		t.Fatalf("project status = %q, want PENDING", x.Status)
	}

	w := app.do(http.MethodPatch, "/api/projects/"+x.ID+"/status", `{"status":"IN_PROGRESS"}`, session.Access)
	expectStatus(t, w, http.StatusOK, "update status")

	var updated projectResponse
	mustReadJSON(t, w, &updated)
	if updated.Status != "IN_PROGRESS" {
		t.Fatalf("status after update = %q, want IN_PROGRESS", updated.Status)
	}

	// same value again is a no-op success
	w = app.do(http.MethodPatch, "/api/projects/"+x.ID+"/status", `{"status":"IN_PROGRESS"}`, session.Access)
	expectStatus(t, w, http.StatusOK, "repeat update status")

	w = app.do(http.MethodPatch, "/api/projects/"+x.ID+"/status", `{"status":"ARCHIVED"}`, session.Access)
	expectStatus(t, w, http.StatusBadRequest, "invalid status")

	app.registerWorker(t, "bob", "bob@example.com")
	bob := app.login(t, "bob")

	w = app.do(http.MethodPatch, "/api/projects/"+x.ID+"/status", `{"status":"IN_PROGRESS"}`, bob.Access)
	expectStatus(t, w, http.StatusForbidden, "update status as bob")

	// bob cannot see alice's project at all
	w = app.do(http.MethodGet, "/api/projects/"+x.ID, "", bob.Access)
	expectStatus(t, w, http.StatusNotFound, "get as bob")

	w = app.do(http.MethodPatch, "/api/projects/"+x.ID, `{"name":"stolen"}`, bob.Access)
	expectStatus(t, w, http.StatusNotFound, "patch as bob")

	w = app.do(http.MethodGet, "/api/projects", "", bob.Access)
	expectStatus(t, w, http.StatusOK, "list as bob")
	var bobList []projectResponse
	mustReadJSON(t, w, &bobList)
	if len(bobList) != 0 {
		t.Fatalf("bob sees %d projects, want 0", len(bobList))
	}

	w = app.do(http.MethodPut, "/api/projects/"+x.ID, `{"name":"X2","description":"renamed"}`, session.Access)
	expectStatus(t, w, http.StatusOK, "put as owner")
	mustReadJSON(t, w, &updated)
	if updated.Name != "X2" || updated.Status != "IN_PROGRESS" {
		t.Fatalf("after put got %+v, want name X2 and unchanged status", updated)
	}

	w = app.do(http.MethodDelete, "/api/projects/"+x.ID, "", session.Access)
	expectStatus(t, w, http.StatusNoContent, "delete as owner")

	w = app.do(http.MethodGet, "/api/projects/"+x.ID, "", session.Access)
	expectStatus(t, w, http.StatusNotFound, "get after delete")
}

func TestProjectsIntegration_AdminAccess(t *testing.T) {
	app := setupApp(t)

	app.registerWorker(t, "alice", "alice@example.com")
	app.registerWorker(t, "bob", "bob@example.com")
	app.registerWorker(t, "carol", "carol@example.com")

	alice := app.login(t, "alice")
	bob := app.login(t, "bob")
	admin := app.login(t, adminUsername)
	if admin.User.Role != "ADMIN" {
		t.Fatalf("seeded admin role = %q, want ADMIN", admin.User.Role)
	}

	a1 := app.createProject(t, alice.Access, `{"name":"Bridge"}`)
	app.createProject(t, alice.Access, `{"name":"Tunnel"}`)
	app.createProject(t, bob.Access, `{"name":"Bridge"}`)

	w := app.do(http.MethodPost, "/api/projects", `{"name":"nope"}`, admin.Access)
	expectStatus(t, w, http.StatusForbidden, "create as admin")

	w = app.do(http.MethodGet, "/api/projects", "", admin.Access)
	expectStatus(t, w, http.StatusOK, "list as admin")
	var all []projectResponse
	mustReadJSON(t, w, &all)
	if len(all) != 3 {
		t.Fatalf("admin sees %d projects, want 3", len(all))
	}

	w = app.do(http.MethodGet, "/api/projects/"+a1.ID, "", admin.Access)
	expectStatus(t, w, http.StatusOK, "get as admin")

	w = app.do(http.MethodPatch, "/api/projects/"+a1.ID+"/status", `{"status":"COMPLETED"}`, admin.Access)
	expectStatus(t, w, http.StatusForbidden, "update status as admin")

	w = app.do(http.MethodPut, "/api/projects/"+a1.ID, `{"name":"admin edit"}`, admin.Access)
	expectStatus(t, w, http.StatusForbidden, "put as admin")

	w = app.do(http.MethodGet, "/api/projects/grouped", "", alice.Access)
	expectStatus(t, w, http.StatusForbidden, "grouped as worker")

	w = app.do(http.MethodGet, "/api/projects/grouped", "", admin.Access)
	expectStatus(t, w, http.StatusOK, "grouped as admin")

	var grouped []struct {
		Worker   profileResponse   `json:"worker"`
		Projects []projectResponse `json:"projects"`
	}
	mustReadJSON(t, w, &grouped)
	if len(grouped) != 3 {
		t.Fatalf("grouped returned %d entries, want one per worker (3)", len(grouped))
	}

	counts := map[string]int{}
	for _, g := range grouped {
		counts[g.Worker.Username] = len(g.Projects)
	}
	if counts["alice"] != 2 || counts["bob"] != 1 || counts["carol"] != 0 {
		t.Fatalf("grouped counts = %v", counts)
	}
}

func TestProjectsIntegration_Search(t *testing.T) {
	app := setupApp(t)

	app.registerWorker(t, "alice", "alice@example.com")
	app.registerWorker(t, "bob", "bob@example.com")
	alice := app.login(t, "alice")
	bob := app.login(t, "bob")

	mine := app.createProject(t, alice.Access, `{"name":"Bridge"}`)
	app.createProject(t, bob.Access, `{"name":"Bridge"}`)

	w := app.do(http.MethodGet, "/api/projects/search?name=bridge", "", alice.Access)
	expectStatus(t, w, http.StatusOK, "search own")

	var found []projectResponse
	mustReadJSON(t, w, &found)
	if len(found) != 1 || found[0].ID != mine.ID {
		t.Fatalf("search returned %+v, want only alice's project", found)
	}

	w = app.do(http.MethodGet, "/api/projects/search?name=%20%20", "", alice.Access)
	expectStatus(t, w, http.StatusBadRequest, "search blank")

	w = app.do(http.MethodGet, "/api/projects/search", "", alice.Access)
	expectStatus(t, w, http.StatusBadRequest, "search missing")

	w = app.do(http.MethodGet, "/api/projects/search?name=Tunnel", "", alice.Access)
	expectStatus(t, w, http.StatusNotFound, "search no match")
}

func TestProjectsIntegration_RequiresAuth(t *testing.T) {
	app := setupApp(t)

	w := app.do(http.MethodGet, "/api/projects", "", "")
	expectStatus(t, w, http.StatusUnauthorized, "list without token")

	var e errorResponse
	mustReadJSON(t, w, &e)
	if e.Error.RequestID == "" {
		t.Fatalf("error envelope missing requestId: %s", w.Body.String())
	}

	w = app.do(http.MethodGet, "/api/projects", "", "not-a-jwt")
	expectStatus(t, w, http.StatusUnauthorized, "list with garbage token")
}
