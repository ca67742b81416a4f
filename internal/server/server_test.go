package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nibzard/taskboard/internal/service"
	"github.com/nibzard/taskboard/internal/store"
	"github.com/nibzard/taskboard/internal/task"
	"github.com/nibzard/taskboard/internal/view"
)

var errMockStore = errors.New("disk on fire")

// mockService implements TaskService with overridable funcs.
type mockService struct {
	ListFunc   func(ctx context.Context) ([]task.Task, error)
	GetFunc    func(ctx context.Context, id string) (task.Task, error)
	CreateFunc func(ctx context.Context, draft task.Draft) (task.Task, error)
	UpdateFunc func(ctx context.Context, id string, patch task.Patch) (task.Task, error)
	DeleteFunc func(ctx context.Context, id string) error
}

func (m *mockService) List(ctx context.Context) ([]task.Task, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *mockService) Get(ctx context.Context, id string) (task.Task, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return task.Task{}, &task.NotFoundError{ID: id}
}

func (m *mockService) Create(ctx context.Context, draft task.Draft) (task.Task, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, draft)
	}
	return task.Task{}, nil
}

func (m *mockService) Update(ctx context.Context, id string, patch task.Patch) (task.Task, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, patch)
	}
	return task.Task{}, nil
}

func (m *mockService) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func newTestServer(t *testing.T, svc TaskService, opts ...Option) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv, err := New(svc, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv.Handler()
}

func newMemoryServer(t *testing.T, seed ...task.Task) (http.Handler, *store.Memory) {
	t.Helper()
	mem := store.NewMemory(seed...)
	n := 0
	svc := service.New(mem,
		service.WithClock(func() time.Time { return time.Date(2025, 5, 4, 12, 0, 0, 0, time.UTC) }),
		service.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)
	return newTestServer(t, svc), mem
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func postForm(t *testing.T, h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeTasks(t *testing.T, w *httptest.ResponseRecorder) []task.Task {
	t.Helper()
	var tasks []task.Task
	if err := json.Unmarshal(w.Body.Bytes(), &tasks); err != nil {
		t.Fatalf("decode tasks from %q: %v", w.Body.String(), err)
	}
	return tasks
}

func decodeTask(t *testing.T, w *httptest.ResponseRecorder) task.Task {
	t.Helper()
	var tk task.Task
	if err := json.Unmarshal(w.Body.Bytes(), &tk); err != nil {
		t.Fatalf("decode task from %q: %v", w.Body.String(), err)
	}
	return tk
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	if body.Error == "" {
		t.Fatalf("error body has no message: %q", w.Body.String())
	}
	return body.Error
}

func TestEndToEnd(t *testing.T) {
	h, _ := newMemoryServer(t)

	w := do(t, h, http.MethodPost, "/tasks", `{"title":"A"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST: status %d, body %s", w.Code, w.Body)
	}
	created := decodeTask(t, w)
	if created.ID == "" || created.Priority != task.PriorityLow || created.IsCompleted {
		t.Fatalf("unexpected created task: %+v", created)
	}

	w = do(t, h, http.MethodGet, "/tasks", "")
	if got := decodeTasks(t, w); len(got) != 1 || got[0].ID != created.ID {
		t.Fatalf("GET after POST: %+v", got)
	}

	w = do(t, h, http.MethodPut, "/tasks", fmt.Sprintf(`{"id":%q,"isCompleted":true}`, created.ID))
	if w.Code != http.StatusOK {
		t.Fatalf("PUT: status %d, body %s", w.Code, w.Body)
	}
	if updated := decodeTask(t, w); !updated.IsCompleted || updated.Title != "A" {
		t.Fatalf("unexpected updated task: %+v", updated)
	}

	w = do(t, h, http.MethodGet, "/tasks", "")
	if got := decodeTasks(t, w); len(got) != 1 || !got[0].IsCompleted {
		t.Fatalf("GET after PUT: %+v", got)
	}

	w = do(t, h, http.MethodDelete, "/tasks?id="+created.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("DELETE: status %d, body %s", w.Code, w.Body)
	}
	var ack map[string]bool
	if err := json.Unmarshal(w.Body.Bytes(), &ack); err != nil || !ack["success"] {
		t.Fatalf("DELETE body: %s", w.Body)
	}

	w = do(t, h, http.MethodGet, "/tasks", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("GET after DELETE: %s", w.Body)
	}
}

func TestListNeverNull(t *testing.T) {
	h := newTestServer(t, &mockService{})
	for _, path := range []string{"/tasks", "/api/tasks"} {
		w := do(t, h, http.MethodGet, path, "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, w.Code)
		}
		if got := strings.TrimSpace(w.Body.String()); got != "[]" {
			t.Errorf("%s: got %s, want []", path, got)
		}
	}
}

func TestAPIAlias(t *testing.T) {
	h, mem := newMemoryServer(t)
	w := do(t, h, http.MethodPost, "/api/tasks", `{"title":"Legacy","priority":"alta"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d, body %s", w.Code, w.Body)
	}
	if got := decodeTask(t, w); got.Priority != task.PriorityHigh {
		t.Errorf("priority: got %q, want high", got.Priority)
	}
	if mem.Saves() != 1 {
		t.Errorf("saves: got %d", mem.Saves())
	}
}

func TestCreateErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty title", `{"title":""}`},
		{"blank title", `{"title":"   "}`},
		{"missing title", `{"description":"x"}`},
		{"bad priority", `{"title":"A","priority":"urgent"}`},
		{"bad date", `{"title":"A","dueDate":"tomorrow"}`},
		{"malformed", `{"title":`},
		{"empty body", ``},
		{"wrong type", `{"title":5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mem := newMemoryServer(t)
			req := httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status %d, want 400; body %s", w.Code, w.Body)
			}
			errorBody(t, w)
			if mem.Saves() != 0 {
				t.Error("failed create must not save")
			}
		})
	}
}

func TestUpdateErrors(t *testing.T) {
	seed := task.Task{ID: "T1", Title: "Keep", Priority: task.PriorityMedium}
	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing id", `{"isCompleted":true}`, http.StatusNotFound},
		{"empty id", `{"id":"","title":"X"}`, http.StatusNotFound},
		{"unknown id", `{"id":"nope","title":"X"}`, http.StatusNotFound},
		{"unknown id with bad priority", `{"id":"nope","priority":"urgent"}`, http.StatusNotFound},
		{"unknown id with bad type", `{"id":"nope","isCompleted":"yes"}`, http.StatusNotFound},
		{"missing id with bad type", `{"title":42}`, http.StatusNotFound},
		{"bad type", `{"id":"T1","isCompleted":"yes"}`, http.StatusBadRequest},
		{"empty title", `{"id":"T1","title":""}`, http.StatusBadRequest},
		{"bad priority", `{"id":"T1","priority":"urgent"}`, http.StatusBadRequest},
		{"bad date", `{"id":"T1","dueDate":"31/12/2025"}`, http.StatusBadRequest},
		{"malformed", `{"id":`, http.StatusBadRequest},
		{"array body", `[]`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mem := newMemoryServer(t, seed)
			w := do(t, h, http.MethodPut, "/tasks", tt.body)
			if w.Code != tt.want {
				t.Fatalf("status %d, want %d; body %s", w.Code, tt.want, w.Body)
			}
			errorBody(t, w)
			tasks, _ := mem.LoadAll(context.Background())
			if len(tasks) != 1 || tasks[0] != seed {
				t.Errorf("collection changed: %+v", tasks)
			}
		})
	}
}

func TestUpdateIgnoresImmutableFields(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h, _ := newMemoryServer(t, task.Task{ID: "T1", Title: "Old", Priority: task.PriorityLow, CreatedAt: created})

	w := do(t, h, http.MethodPut, "/tasks", `{"id":"T1","title":"New","createdAt":"2030-01-01T00:00:00Z","dueDate":"2025-06-01"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body)
	}
	got := decodeTask(t, w)
	if got.ID != "T1" || !got.CreatedAt.Equal(created) {
		t.Errorf("immutable fields changed: %+v", got)
	}
	if got.Title != "New" || got.DueDate != "2025-06-01" {
		t.Errorf("patch not applied: %+v", got)
	}
}

func TestDeleteErrors(t *testing.T) {
	h, mem := newMemoryServer(t, task.Task{ID: "T1", Title: "Keep", Priority: task.PriorityLow})

	w := do(t, h, http.MethodDelete, "/tasks", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing id: status %d", w.Code)
	}
	errorBody(t, w)

	w = do(t, h, http.MethodDelete, "/tasks?id=nope", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown id: status %d", w.Code)
	}
	errorBody(t, w)

	if mem.Saves() != 0 {
		t.Error("failed delete must not save")
	}
}

func TestStoreFailureIs500(t *testing.T) {
	svc := &mockService{
		ListFunc: func(ctx context.Context) ([]task.Task, error) {
			return nil, fmt.Errorf("load tasks: %w", errMockStore)
		},
		CreateFunc: func(ctx context.Context, draft task.Draft) (task.Task, error) {
			return task.Task{}, fmt.Errorf("save tasks: %w", errMockStore)
		},
	}
	h := newTestServer(t, svc)

	for _, tc := range []struct{ method, body string }{
		{http.MethodGet, ""},
		{http.MethodPost, `{"title":"A"}`},
	} {
		w := do(t, h, tc.method, "/tasks", tc.body)
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("%s: status %d, want 500", tc.method, w.Code)
		}
		if msg := errorBody(t, w); strings.Contains(msg, "disk on fire") {
			t.Errorf("%s: internal error leaked: %q", tc.method, msg)
		}
	}
}

func TestHealthAndHeaders(t *testing.T) {
	h := newTestServer(t, &mockService{})
	w := do(t, h, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ok") {
		t.Fatalf("healthz: %d %s", w.Code, w.Body)
	}
	for _, header := range []string{"X-Content-Type-Options", "Content-Security-Policy", "Referrer-Policy"} {
		if w.Header().Get(header) == "" {
			t.Errorf("missing %s header", header)
		}
	}

	w = do(t, h, http.MethodGet, "/static/app.css", "")
	if w.Code != http.StatusOK || !strings.HasPrefix(w.Header().Get("Content-Type"), "text/css") {
		t.Errorf("css: %d %s", w.Code, w.Header().Get("Content-Type"))
	}

	w = do(t, h, http.MethodGet, "/missing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown route: status %d", w.Code)
	}
}

func TestBodyLimit(t *testing.T) {
	h, _ := newMemoryServer(t)
	big := fmt.Sprintf(`{"title":"A","description":%q}`, strings.Repeat("x", maxBodySize))
	w := do(t, h, http.MethodPost, "/tasks", big)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", w.Code)
	}
}

func TestBoardPage(t *testing.T) {
	h, _ := newMemoryServer(t,
		task.Task{ID: "a", Title: "Low soon", Priority: task.PriorityLow, DueDate: "2025-01-01"},
		task.Task{ID: "b", Title: "High later", Priority: task.PriorityHigh, DueDate: "2025-12-31"},
		task.Task{ID: "c", Title: "Finished", Priority: task.PriorityHigh, IsCompleted: true},
	)

	w := do(t, h, http.MethodGet, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"To do (2)", "Completed (1)", `badge danger`, `badge success`, `badge secondary`, "Due: Jan 1, 2025", "<s>Finished</s>"} {
		if !strings.Contains(body, want) {
			t.Errorf("board missing %q", want)
		}
	}
	if strings.Index(body, "High later") > strings.Index(body, "Low soon") {
		t.Error("priority sort should list high before low")
	}

	w = do(t, h, http.MethodGet, "/?sort=date", "")
	body = w.Body.String()
	if strings.Index(body, "Low soon") > strings.Index(body, "High later") {
		t.Error("date sort should list the earlier due date first")
	}
}

func TestBoardEmptyState(t *testing.T) {
	h, _ := newMemoryServer(t)
	w := do(t, h, http.MethodGet, "/", "")
	if !strings.Contains(w.Body.String(), "No pending tasks.") {
		t.Errorf("missing empty state: %s", w.Body)
	}
}

func TestBoardDefaultSort(t *testing.T) {
	mem := store.NewMemory(
		task.Task{ID: "a", Title: "Low soon", Priority: task.PriorityLow, DueDate: "2025-01-01"},
		task.Task{ID: "b", Title: "High later", Priority: task.PriorityHigh, DueDate: "2025-12-31"},
	)
	h := newTestServer(t, service.New(mem), WithDefaultSort(view.SortDate))
	body := do(t, h, http.MethodGet, "/", "").Body.String()
	if strings.Index(body, "Low soon") > strings.Index(body, "High later") {
		t.Error("configured date sort not applied")
	}
}

func TestCreateForm(t *testing.T) {
	h, mem := newMemoryServer(t)

	w := postForm(t, h, "/ui/tasks", url.Values{
		"title":    {"Write report"},
		"priority": {"medium"},
		"dueDate":  {"2025-07-01"},
		"sort":     {"date"},
	})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("status %d, body %s", w.Code, w.Body)
	}
	if loc := w.Header().Get("Location"); loc != "/?sort=date" {
		t.Errorf("Location: got %q", loc)
	}
	tasks, _ := mem.LoadAll(context.Background())
	if len(tasks) != 1 || tasks[0].Priority != task.PriorityMedium || tasks[0].DueDate != "2025-07-01" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

func TestCreateFormRejectsEmptyTitle(t *testing.T) {
	h, mem := newMemoryServer(t)
	w := postForm(t, h, "/ui/tasks", url.Values{"title": {" "}, "description": {"kept"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "title") || !strings.Contains(body, "kept") {
		t.Errorf("form should be re-rendered with the error and input: %s", body)
	}
	if mem.Saves() != 0 {
		t.Error("rejected form must not save")
	}
}

func TestToggleForm(t *testing.T) {
	h, mem := newMemoryServer(t, task.Task{ID: "T1", Title: "Flip", Priority: task.PriorityLow})

	for i, want := range []bool{true, false} {
		w := postForm(t, h, "/ui/tasks/T1/toggle", url.Values{"sort": {"priority"}})
		if w.Code != http.StatusSeeOther {
			t.Fatalf("toggle %d: status %d", i, w.Code)
		}
		tasks, _ := mem.LoadAll(context.Background())
		if tasks[0].IsCompleted != want {
			t.Fatalf("toggle %d: isCompleted = %v", i, tasks[0].IsCompleted)
		}
	}

	w := postForm(t, h, "/ui/tasks/nope/toggle", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown id: status %d", w.Code)
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	h, mem := newMemoryServer(t, task.Task{ID: "T1", Title: "Doomed", Priority: task.PriorityLow})

	w := do(t, h, http.MethodGet, "/ui/tasks/T1/delete?sort=date", "")
	if w.Code != http.StatusOK {
		t.Fatalf("confirm page: status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Doomed") {
		t.Error("confirm page should name the task")
	}
	if mem.Saves() != 0 {
		t.Fatal("confirmation page must not delete")
	}

	w = postForm(t, h, "/ui/tasks/T1/delete", url.Values{"sort": {"date"}})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("delete: status %d", w.Code)
	}
	tasks, _ := mem.LoadAll(context.Background())
	if len(tasks) != 0 {
		t.Errorf("task not deleted: %+v", tasks)
	}

	w = do(t, h, http.MethodGet, "/ui/tasks/T1/delete", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("deleted task confirm page: status %d", w.Code)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv, err := New(&mockService{}, WithShutdownTimeout(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
