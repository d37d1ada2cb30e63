package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ANTOSOJAN/task-management-system/domain"
	"github.com/ANTOSOJAN/task-management-system/storage/memory"
)

type testServer struct {
	e     *echo.Echo
	store *memory.Store
	hook  *test.Hook
}

func newTestServer(t *testing.T, health HealthCheck) *testServer {
	t.Helper()
	logger, hook := test.NewNullLogger()
	store := memory.New()
	n := 0
	svc := domain.NewService(store, logger, domain.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}))
	e := echo.New()
	if health == nil {
		health = store.Ping
	}
	if err := Register(e, svc, NewLocalAuth(testSecret), health, PageConfig{FirebaseProjectID: "demo"}, logger); err != nil {
		t.Fatalf("register: %v", err)
	}
	return &testServer{e: e, store: store, hook: hook}
}

func (s *testServer) do(method, path, token string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func expectRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(echo.HeaderLocation); got != location {
		t.Fatalf("expected redirect to %q, got %q", location, got)
	}
}

func TestAnonymousHomeShowsLogin(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(http.MethodGet, "/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `id="login-box"`) || !strings.Contains(body, "/static/firebase-login.js") {
		t.Fatalf("login page missing: %s", body)
	}
	if !strings.Contains(body, `"demo"`) {
		t.Fatalf("firebase project id not rendered: %s", body)
	}
	if strings.Contains(body, "My boards") {
		t.Fatal("anonymous home should not list boards")
	}
}

func TestInvalidTokenIsAnonymous(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(http.MethodPost, "/create-board", "a.b.c", url.Values{"title": {"x"}})
	expectRedirect(t, rec, "/")
	u, _ := s.store.GetUser(context.Background(), "a@example.com")
	if u != nil {
		t.Fatal("no user record expected")
	}
}

func TestAnonymousMutationsRedirectHome(t *testing.T) {
	s := newTestServer(t, nil)
	routes := []string{
		"/create-board",
		"/board/b1/add-user",
		"/board/b1/add-task",
		"/board/b1/task/t1/toggle",
		"/board/b1/task/t1/edit",
		"/board/b1/task/t1/delete",
		"/board/b1/rename",
		"/board/b1/delete",
		"/board/b1/remove-user",
	}
	for _, route := range routes {
		t.Run(route, func(t *testing.T) {
			rec := s.do(http.MethodPost, route, "", url.Values{"title": {"x"}, "email": {"b@example.com"}})
			expectRedirect(t, rec, "/")
		})
	}
	expectRedirect(t, s.do(http.MethodGet, "/board/b1", "", nil), "/")
	expectRedirect(t, s.do(http.MethodGet, "/create-board-form", "", nil), "/")
}

func TestBoardLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)
	alice := userToken(t, "uid-a", "alice@example.com")
	bob := userToken(t, "uid-b", "bob@example.com")

	if rec := s.do(http.MethodGet, "/create-board-form", alice, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected form, got %d", rec.Code)
	}
	expectRedirect(t, s.do(http.MethodPost, "/create-board", alice, url.Values{"title": {"Sprint 1"}}), "/")
	const board = "/board/id-1"

	// bob signs in once so a user record exists
	s.do(http.MethodGet, "/", bob, nil)
	expectRedirect(t, s.do(http.MethodPost, board+"/add-user", alice, url.Values{"email": {"Bob@Example.com"}}), board)

	rec := s.do(http.MethodGet, "/", bob, nil)
	if !strings.Contains(rec.Body.String(), "Sprint 1") || !strings.Contains(rec.Body.String(), "created by alice@example.com") {
		t.Fatalf("shared board missing from bob's home: %s", rec.Body.String())
	}

	expectRedirect(t, s.do(http.MethodPost, board+"/add-task", alice, url.Values{
		"title":       {"Draft roadmap"},
		"due_date":    {"2025-01-01"},
		"assignees[]": {"bob@example.com"},
	}), board)
	expectRedirect(t, s.do(http.MethodPost, board+"/add-task", bob, url.Values{
		"title":    {"Draft roadmap"},
		"due_date": {"2025-01-02"},
	}), board+"?error=task_exists")

	rec = s.do(http.MethodGet, board, alice, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected board view, got %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "Draft roadmap") || !strings.Contains(body, "1 tasks, 0 completed, 1 active") {
		t.Fatalf("unexpected board view: %s", body)
	}

	expectRedirect(t, s.do(http.MethodPost, board+"/task/id-2/toggle", bob, nil), board)
	task, _ := s.store.GetTask(context.Background(), "id-2")
	if task == nil || !task.Completed || task.CompletedAt == nil {
		t.Fatalf("expected completed task, got %+v", task)
	}

	expectRedirect(t, s.do(http.MethodPost, board+"/rename", bob, url.Values{"new_title": {"Hijack"}}), board+"?error=not_creator")
	expectRedirect(t, s.do(http.MethodPost, board+"/delete", alice, nil), board+"?error=board_has_tasks")
	expectRedirect(t, s.do(http.MethodPost, board+"/task/id-2/delete", alice, nil), board)
	expectRedirect(t, s.do(http.MethodPost, board+"/delete", alice, nil), board+"?error=board_has_members")
	expectRedirect(t, s.do(http.MethodPost, board+"/remove-user", alice, url.Values{"emails[]": {"bob@example.com"}}), board)
	expectRedirect(t, s.do(http.MethodGet, board, bob, nil), "/")
	expectRedirect(t, s.do(http.MethodPost, board+"/delete", alice, nil), "/")

	if b, _ := s.store.GetBoard(context.Background(), "id-1"); b != nil {
		t.Fatalf("board should be deleted, got %+v", b)
	}
}

func TestEditTaskReadsAssigneeLists(t *testing.T) {
	s := newTestServer(t, nil)
	alice := userToken(t, "uid-a", "alice@example.com")
	expectRedirect(t, s.do(http.MethodPost, "/create-board", alice, url.Values{"title": {"Board"}, "description": {"notes"}}), "/")
	expectRedirect(t, s.do(http.MethodPost, "/board/id-1/add-task", alice, url.Values{"title": {"T"}, "due_date": {"2025-01-01"}}), "/board/id-1")

	expectRedirect(t, s.do(http.MethodPost, "/board/id-1/task/id-2/edit", alice, url.Values{
		"title":       {"T2"},
		"due_date":    {"2025-02-01"},
		"assignees":   {"x@example.com"},
		"assignees[]": {"y@example.com", "x@example.com"},
	}), "/board/id-1")

	task, _ := s.store.GetTask(context.Background(), "id-2")
	if task == nil || task.Title != "T2" || task.DueDate != "2025-02-01" {
		t.Fatalf("unexpected task %+v", task)
	}
	if len(task.Assignees) != 2 || task.Assignees[0] != "x@example.com" || task.Assignees[1] != "y@example.com" {
		t.Fatalf("unexpected assignees %v", task.Assignees)
	}
}

func TestBoardViewShowsErrorMessage(t *testing.T) {
	s := newTestServer(t, nil)
	alice := userToken(t, "uid-a", "alice@example.com")
	expectRedirect(t, s.do(http.MethodPost, "/create-board", alice, url.Values{"title": {"Board"}}), "/")

	rec := s.do(http.MethodGet, "/board/id-1?error=board_has_tasks", alice, nil)
	if !strings.Contains(rec.Body.String(), errorMessages[domain.TagBoardHasTasks]) {
		t.Fatalf("error message missing: %s", rec.Body.String())
	}
}

func TestCreateBoardWithoutTitleFails(t *testing.T) {
	s := newTestServer(t, nil)
	alice := userToken(t, "uid-a", "alice@example.com")
	expectRedirect(t, s.do(http.MethodPost, "/create-board", alice, url.Values{"title": {"  "}}), "/create-board-form?error=creation_failed")
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)
	if rec := s.do(http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	s = newTestServer(t, func(context.Context) error { return errors.New("store down") })
	if rec := s.do(http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRequestMetricsLogged(t *testing.T) {
	s := newTestServer(t, nil)
	alice := userToken(t, "uid-a", "alice@example.com")
	s.do(http.MethodPost, "/board/missing/rename", alice, url.Values{"new_title": {"x"}})

	var entry *log.Entry
	for _, e := range s.hook.AllEntries() {
		if e.Message == "http.request.metrics" {
			entry = e
		}
	}
	if entry == nil {
		t.Fatal("expected http.request.metrics entry")
	}
	if entry.Data["route"] != "/board/:boardId/rename" || entry.Data["status"] != http.StatusSeeOther {
		t.Fatalf("unexpected route/status %#v", entry.Data)
	}
	if entry.Data["anonymous"] != false {
		t.Fatalf("expected identified request, got %#v", entry.Data)
	}
	if _, ok := entry.Data["auth_ms"]; !ok {
		t.Fatalf("expected auth timing, got %#v", entry.Data)
	}
	if entry.Data["outcome"] != string(domain.TagNotCreator) {
		t.Fatalf("expected not_creator outcome, got %#v", entry.Data["outcome"])
	}
}

func TestStaticLoginScript(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(http.MethodGet, "/static/firebase-login.js", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "firebase-config") {
		t.Fatalf("unexpected static response %d", rec.Code)
	}
}
