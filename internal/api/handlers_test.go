package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"github.com/idilsaglam/tada/internal/logging"
	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/store"
)

func newTestApp(t *testing.T) (*echo.Echo, *store.Store) {
	t.Helper()
	st := store.New()
	return New(st, logging.Discard()), st
}

func do(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeTodo(t *testing.T, rec *httptest.ResponseRecorder) model.Todo {
	t.Helper()
	var td model.Todo
	if err := sonic.Unmarshal(rec.Body.Bytes(), &td); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return td
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) []model.Todo {
	t.Helper()
	var list []model.Todo
	if err := sonic.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return list
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return resp.Error
}

func TestListEmpty(t *testing.T) {
	e, _ := newTestApp(t)
	rec := do(t, e, http.MethodGet, "/todos", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("expected [], got %s", got)
	}
}

func TestCreateTrimsTitle(t *testing.T) {
	e, st := newTestApp(t)
	rec := do(t, e, http.MethodPost, "/todos", `{"title":"  Buy milk  "}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201 got %d: %s", rec.Code, rec.Body.String())
	}
	td := decodeTodo(t, rec)
	if td.Title != "Buy milk" || td.Completed || td.ID <= 0 {
		t.Fatalf("unexpected todo: %#v", td)
	}
	stored, err := st.Get(td.ID)
	if err != nil || stored != td {
		t.Fatalf("stored %#v (%v), want %#v", stored, err, td)
	}
}

func TestCreateIgnoresClientCompleted(t *testing.T) {
	e, _ := newTestApp(t)
	rec := do(t, e, http.MethodPost, "/todos", `{"title":"x","completed":true,"id":99}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201 got %d", rec.Code)
	}
	td := decodeTodo(t, rec)
	if td.Completed || td.ID != 1 {
		t.Fatalf("client fields leaked: %#v", td)
	}
}

func TestCreateValidation(t *testing.T) {
	bodies := map[string]string{
		"empty title":    `{"title":""}`,
		"blank title":    `{"title":"   "}`,
		"numeric title":  `{"title":123}`,
		"null title":     `{"title":null}`,
		"missing title":  `{}`,
		"title key case": `{"TITLE":"upper"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			e, st := newTestApp(t)
			rec := do(t, e, http.MethodPost, "/todos", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400 got %d", rec.Code)
			}
			if msg := decodeError(t, rec); msg != msgTitleRequired {
				t.Fatalf("unexpected error message %q", msg)
			}
			if st.Len() != 0 {
				t.Fatalf("store mutated: %d todos", st.Len())
			}
		})
	}
}

func TestCreateInvalidJSON(t *testing.T) {
	bodies := []string{`{"title":`, `not json`, "", `{"title":"a"} junk`, `{"title":"a"}{"title":"b"}`, `null`, ` null `}
	for _, body := range bodies {
		e, st := newTestApp(t)
		rec := do(t, e, http.MethodPost, "/todos", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected status 400 got %d", body, rec.Code)
		}
		if msg := decodeError(t, rec); msg != msgInvalidJSON {
			t.Fatalf("body %q: unexpected error message %q", body, msg)
		}
		if st.Len() != 0 {
			t.Fatalf("store mutated: %d todos", st.Len())
		}
	}
}

func TestUnknownIDIsNotFound(t *testing.T) {
	e, _ := newTestApp(t)
	cases := []struct {
		method, path, body string
	}{
		{http.MethodPut, "/todos/9999", `{"completed":true}`},
		{http.MethodPut, "/todos/9999", `{not json`},
		{http.MethodPut, "/todos/9999", ""},
		{http.MethodPut, "/todos/abc", `{"completed":true}`},
		{http.MethodDelete, "/todos/9999", ""},
		{http.MethodDelete, "/todos/abc", ""},
	}
	for _, tc := range cases {
		rec := do(t, e, tc.method, tc.path, tc.body)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s %s %q: expected status 404 got %d", tc.method, tc.path, tc.body, rec.Code)
		}
		if msg := decodeError(t, rec); msg != msgNotFound {
			t.Fatalf("unexpected error message %q", msg)
		}
	}
}

func TestUpdateFalsyValuesApply(t *testing.T) {
	e, st := newTestApp(t)
	td, _ := st.Insert("title")
	if _, err := st.Patch(td.ID, model.SetCompleted(true)); err != nil {
		t.Fatal(err)
	}

	rec := do(t, e, http.MethodPut, "/todos/1", `{"completed":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	got := decodeTodo(t, rec)
	if got.Completed {
		t.Fatal("completed=false was dropped")
	}
	if got.Title != "title" {
		t.Fatalf("title changed: %q", got.Title)
	}
}

func TestUpdateBadBody(t *testing.T) {
	e, st := newTestApp(t)
	_, _ = st.Insert("title")
	bodies := []string{`{oops`, `{"completed":"yes"}`, `{"title":5}`, `null`, `{"completed":true} junk`, `{"title":"x"} {}`}
	for _, body := range bodies {
		rec := do(t, e, http.MethodPut, "/todos/1", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected status 400 got %d", body, rec.Code)
		}
		if msg := decodeError(t, rec); msg != msgInvalidJSON {
			t.Fatalf("body %q: unexpected message %q", body, msg)
		}
	}
	if got, _ := st.Get(1); got.Title != "title" || got.Completed {
		t.Fatalf("store mutated: %#v", got)
	}
}

func TestUpdateKeysAreCaseSensitive(t *testing.T) {
	e, st := newTestApp(t)
	_, _ = st.Insert("title")
	rec := do(t, e, http.MethodPut, "/todos/1", `{"Completed":true,"TITLE":"renamed"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	if got := decodeTodo(t, rec); got.Completed || got.Title != "title" {
		t.Fatalf("mismatched keys were applied: %#v", got)
	}
}

func TestUpdateBlankTitleRejected(t *testing.T) {
	e, st := newTestApp(t)
	_, _ = st.Insert("title")
	rec := do(t, e, http.MethodPut, "/todos/1", `{"title":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != msgTitleEmpty {
		t.Fatalf("unexpected message %q", msg)
	}
	if got, _ := st.Get(1); got.Title != "title" {
		t.Fatalf("title changed: %q", got.Title)
	}
}

func TestUpdateIsIdempotent(t *testing.T) {
	e, st := newTestApp(t)
	_, _ = st.Insert("title")
	body := `{"title":" renamed ","completed":true}`
	first := decodeTodo(t, do(t, e, http.MethodPut, "/todos/1", body))
	second := decodeTodo(t, do(t, e, http.MethodPut, "/todos/1", body))
	if first != second {
		t.Fatalf("repeat update diverged: %#v vs %#v", first, second)
	}
	if list := st.List(); len(list) != 1 || list[0] != second {
		t.Fatalf("unexpected store: %#v", list)
	}
}

func TestRoundTrip(t *testing.T) {
	e, _ := newTestApp(t)

	created := decodeTodo(t, do(t, e, http.MethodPost, "/todos", `{"title":"Write tests"}`))

	list := decodeList(t, do(t, e, http.MethodGet, "/todos", ""))
	if len(list) != 1 || list[0] != created {
		t.Fatalf("list after create: %#v", list)
	}

	rec := do(t, e, http.MethodPut, "/todos/"+strconv.Itoa(created.ID), `{"title":"Write more tests"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d", rec.Code)
	}
	list = decodeList(t, do(t, e, http.MethodGet, "/todos", ""))
	if list[0].Title != "Write more tests" || list[0].Completed != created.Completed {
		t.Fatalf("list after update: %#v", list)
	}

	rec = do(t, e, http.MethodDelete, "/todos/"+strconv.Itoa(created.ID), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d", rec.Code)
	}
	if deleted := decodeTodo(t, rec); deleted.ID != created.ID || deleted.Title != "Write more tests" {
		t.Fatalf("delete returned %#v", deleted)
	}
	if list = decodeList(t, do(t, e, http.MethodGet, "/todos", "")); len(list) != 0 {
		t.Fatalf("list after delete: %#v", list)
	}
	if rec = do(t, e, http.MethodDelete, "/todos/"+strconv.Itoa(created.ID), ""); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404 got %d", rec.Code)
	}
}

func TestAPIPrefixRoutes(t *testing.T) {
	e, _ := newTestApp(t)
	rec := do(t, e, http.MethodPost, "/api/todos", `{"title":"prefixed"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201 got %d", rec.Code)
	}
	list := decodeList(t, do(t, e, http.MethodGet, "/todos", ""))
	if len(list) != 1 || list[0].Title != "prefixed" {
		t.Fatalf("routes do not share the store: %#v", list)
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	e, _ := newTestApp(t)
	rec := do(t, e, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg == "" {
		t.Fatal("expected error body")
	}
	rec = do(t, e, http.MethodPatch, "/todos", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405 got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	e, st := newTestApp(t)
	_, _ = st.Insert("a")
	rec := do(t, e, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	var resp healthResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Status != "ok" || resp.Todos != 1 {
		t.Fatalf("unexpected health: %#v", resp)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	e, _ := newTestApp(t)
	do(t, e, http.MethodGet, "/todos", "")
	do(t, e, http.MethodDelete, "/todos/1", "")

	rec := do(t, e, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`http_requests_total{method="GET",route="/todos",status="200"} 1`,
		`http_requests_total{method="DELETE",route="/todos/:id",status="404"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestHandlerDirect(t *testing.T) {
	e := echo.New()
	e.JSONSerializer = sonicSerializer{}
	st := store.New()
	req := httptest.NewRequest(http.MethodPost, "/todos", strings.NewReader(`{"title":"direct"}`))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := createTodo(st, logging.Discard())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201 got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/todos", strings.NewReader(`{}`))
	c = e.NewContext(req, httptest.NewRecorder())
	err := createTodo(st, logging.Discard())(c)
	apiErr, ok := err.(*Error)
	if !ok || apiErr.Kind != KindValidation || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("expected validation error, got %#v", err)
	}
}

