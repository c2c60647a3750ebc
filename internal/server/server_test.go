package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sverrirab/generic-rest/internal/auth"
	"github.com/sverrirab/generic-rest/internal/idgen"
	"github.com/sverrirab/generic-rest/internal/record"
	"github.com/sverrirab/generic-rest/internal/schema"
	"github.com/sverrirab/generic-rest/internal/store"
	"github.com/sverrirab/generic-rest/internal/testutil"
)

type testServer struct {
	t      *testing.T
	server *Server
	store  *store.Store
}

type serverConfig struct {
	api    string
	token  string
	strict bool
	path   string
	ids    []string
	fields []string
}

func newTestServer(t *testing.T, cfg serverConfig) *testServer {
	t.Helper()

	if cfg.api == "" {
		cfg.api = "/api"
	}
	var ids idgen.Generator
	if len(cfg.ids) > 0 {
		ids = idgen.NewFixed(cfg.ids...)
	}
	sch, err := schema.Parse(cfg.fields)
	require.NoError(t, err)

	st := testutil.StartStore(t, store.Options{
		Path:  cfg.path,
		Guard: auth.New(cfg.token),
		IDs:   ids,
	})
	srv := New(Options{API: cfg.api, Store: st, Schema: sch, StrictPut: cfg.strict})
	return &testServer{t: t, server: srv, store: st}
}

// do sends a request. body is sent as JSON unless it is url.Values.
func (ts *testServer) do(method, path string, body any, header ...string) *httptest.ResponseRecorder {
	ts.t.Helper()

	var req *http.Request
	switch b := body.(type) {
	case nil:
		req = httptest.NewRequest(method, path, nil)
	case url.Values:
		req = httptest.NewRequest(method, path, strings.NewReader(b.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	case string:
		req = httptest.NewRequest(method, path, strings.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	default:
		raw, err := json.Marshal(b)
		require.NoError(ts.t, err)
		req = httptest.NewRequest(method, path, strings.NewReader(string(raw)))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func TestNormalizeRoot(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/api", "api"},
		{"api", "api"},
		{"//api//", "api"},
		{"/v1/items/", "v1/items"},
		{"/", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeRoot(tt.in), "NormalizeRoot(%q)", tt.in)
	}
}

func TestServer_CreateThenGet(t *testing.T) {
	ts := newTestServer(t, serverConfig{ids: []string{"BBBBBB"}})

	rec := ts.do(http.MethodPost, "/api", map[string]any{"text": "hello"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "BBBBBB", decode[string](t, rec))
	assert.Equal(t, "/api/BBBBBB", rec.Header().Get("Location"))

	rec = ts.do(http.MethodGet, "/api/BBBBBB", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{
		"text":  "hello",
		"count": float64(0),
		"help":  "",
	}, decode[map[string]any](t, rec))
	assert.NotEmpty(t, rec.Header().Get("ETag"))
}

func TestServer_CreateReturnsValidID(t *testing.T) {
	ts := newTestServer(t, serverConfig{})

	rec := ts.do(http.MethodPost, "/api", map[string]any{"text": "x"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, idgen.Valid(decode[string](t, rec)))
}

func TestServer_ListRecords(t *testing.T) {
	ts := newTestServer(t, serverConfig{ids: []string{"BBBBBB", "CCCCCC"}})

	rec := ts.do(http.MethodGet, "/api", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())

	ts.do(http.MethodPost, "/api", map[string]any{"text": "one"})
	ts.do(http.MethodPost, "/api", map[string]any{"text": "two", "count": 2})

	rec = ts.do(http.MethodGet, "/api", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"BBBBBB": {"text": "one", "count": 0, "help": ""},
		"CCCCCC": {"text": "two", "count": 2, "help": ""}
	}`, rec.Body.String())
}

func TestServer_ValidationErrors(t *testing.T) {
	ts := newTestServer(t, serverConfig{})

	tests := []struct {
		name  string
		body  any
		field string
	}{
		{"missing required", map[string]any{}, "text"},
		{"null required", map[string]any{"text": nil}, "text"},
		{"wrong int type", map[string]any{"text": "x", "count": "many"}, "count"},
		{"fractional int", map[string]any{"text": "x", "count": 1.5}, "count"},
		{"not an object", `[1, 2]`, "body"},
		{"not json", `{"text":`, "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/api", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			body := decode[map[string]map[string]string](t, rec)
			assert.Contains(t, body["message"], tt.field)
		})
	}
	assert.Equal(t, 0, ts.store.Len())
}

func TestServer_MissingRequiredMessage(t *testing.T) {
	ts := newTestServer(t, serverConfig{})

	rec := ts.do(http.MethodPost, "/api", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message": {"text": "Missing required parameter text"}}`, rec.Body.String())
}

func TestServer_UnknownFieldsDropped(t *testing.T) {
	ts := newTestServer(t, serverConfig{ids: []string{"BBBBBB"}})

	rec := ts.do(http.MethodPost, "/api", map[string]any{"text": "x", "extra": "ignored"})
	require.Equal(t, http.StatusCreated, rec.Code)

	got, err := ts.store.Get("BBBBBB")
	require.NoError(t, err)
	assert.NotContains(t, got, "extra")
}

func TestServer_FormBody(t *testing.T) {
	ts := newTestServer(t, serverConfig{ids: []string{"BBBBBB"}})

	rec := ts.do(http.MethodPost, "/api", url.Values{"text": {"from form"}, "count": {"7"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/BBBBBB/count", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7", rec.Body.String())
}

func TestServer_QueryParameters(t *testing.T) {
	ts := newTestServer(t, serverConfig{ids: []string{"BBBBBB"}})

	rec := ts.do(http.MethodPost, "/api?text=from+query", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/BBBBBB/text", nil)
	assert.JSONEq(t, `"from query"`, rec.Body.String())
}

func TestServer_QueryInvalidUTF8MatchesStoredValue(t *testing.T) {
	ts := newTestServer(t, serverConfig{ids: []string{"BBBBBB"}})

	rec := ts.do(http.MethodPut, "/api/BBBBBB?text=a%FFb", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "a\uFFFDb")

	got, err := ts.store.Get("BBBBBB")
	require.NoError(t, err)
	assert.Equal(t, record.String("a\uFFFDb"), got["text"])
}

func TestServer_GetMissing(t *testing.T) {
	ts := newTestServer(t, serverConfig{})

	rec := ts.do(http.MethodGet, "/api/ZZZZZZ", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message": "Item with id 'ZZZZZZ' does not exist."}`, rec.Body.String())
}

func TestServer_GetField(t *testing.T) {
	ts := newTestServer(t, serverConfig{ids: []string{"BBBBBB"}})
	ts.do(http.MethodPost, "/api", map[string]any{"text": "hello", "count": 3})

	rec := ts.do(http.MethodGet, "/api/BBBBBB/text", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"hello"`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/BBBBBB/count", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `3`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/BBBBBB/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message": "field 'nope' not found!"}`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/ZZZZZZ/text", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message": "Item with id 'ZZZZZZ' does not exist."}`, rec.Body.String())
}

func TestServer_PutUpserts(t *testing.T) {
	ts := newTestServer(t, serverConfig{})

	rec := ts.do(http.MethodPut, "/api/custom", map[string]any{"text": "new"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"text": "new", "count": 0, "help": ""}`, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/custom/text", nil)
	assert.JSONEq(t, `"new"`, rec.Body.String())
}

func TestServer_StrictPut(t *testing.T) {
	ts := newTestServer(t, serverConfig{strict: true, ids: []string{"BBBBBB"}})

	rec := ts.do(http.MethodPut, "/api/missing", map[string]any{"text": "x"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message": "Item with id 'missing' does not exist."}`, rec.Body.String())
	assert.False(t, ts.store.Exists("missing"))

	ts.do(http.MethodPost, "/api", map[string]any{"text": "old"})
	rec = ts.do(http.MethodPut, "/api/BBBBBB", map[string]any{"text": "new"})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestServer_PutValidatesBeforeStrictCheck(t *testing.T) {
	ts := newTestServer(t, serverConfig{strict: true})

	rec := ts.do(http.MethodPut, "/api/missing", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_PostValidatesBeforeAuthorization(t *testing.T) {
	ts := newTestServer(t, serverConfig{token: "secret"})

	rec := ts.do(http.MethodPost, "/api", map[string]any{}, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api", map[string]any{"text": "x"}, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_DeleteThenGet(t *testing.T) {
	ts := newTestServer(t, serverConfig{ids: []string{"BBBBBB"}})
	ts.do(http.MethodPost, "/api", map[string]any{"text": "bye"})

	rec := ts.do(http.MethodDelete, "/api/BBBBBB", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/BBBBBB", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/BBBBBB", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Authorization(t *testing.T) {
	ts := newTestServer(t, serverConfig{token: "secret", ids: []string{"BBBBBB"}})
	body := map[string]any{"text": "x"}

	tests := []struct {
		name   string
		header []string
		want   int
	}{
		{"no header", nil, http.StatusUnauthorized},
		{"wrong token", []string{"Authorization", "Bearer nope"}, http.StatusUnauthorized},
		{"wrong scheme", []string{"Authorization", "Basic secret"}, http.StatusUnauthorized},
		{"extra space", []string{"Authorization", "Bearer  secret"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/api", body, tt.header...)
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, decode[map[string]string](t, rec)["message"], "authorized")
		})
	}
	assert.Equal(t, 0, ts.store.Len())

	rec := ts.do(http.MethodPost, "/api", body, "Authorization", "bearer secret")
	require.Equal(t, http.StatusCreated, rec.Code)

	// Reads are open.
	rec = ts.do(http.MethodGet, "/api/BBBBBB", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Auth is checked before existence.
	rec = ts.do(http.MethodDelete, "/api/missing", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = ts.do(http.MethodPut, "/api/BBBBBB", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/BBBBBB", nil, "Authorization", "Bearer secret")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestServer_ETag(t *testing.T) {
	ts := newTestServer(t, serverConfig{ids: []string{"BBBBBB"}})
	ts.do(http.MethodPost, "/api", map[string]any{"text": "v1"})

	first := ts.do(http.MethodGet, "/api/BBBBBB", nil).Header().Get("ETag")
	require.NotEmpty(t, first)

	rec := ts.do(http.MethodGet, "/api/BBBBBB", nil, "If-None-Match", first)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	ts.do(http.MethodPut, "/api/BBBBBB", map[string]any{"text": "v2"})
	second := ts.do(http.MethodGet, "/api/BBBBBB", nil).Header().Get("ETag")
	assert.NotEqual(t, first, second)
}

func TestServer_ETagListsAndWeakTags(t *testing.T) {
	ts := newTestServer(t, serverConfig{ids: []string{"BBBBBB"}})
	ts.do(http.MethodPost, "/api", map[string]any{"text": "v1"})
	etag := ts.do(http.MethodGet, "/api/BBBBBB", nil).Header().Get("ETag")

	tests := []struct {
		header string
		want   int
	}{
		{`"other", ` + etag, http.StatusNotModified},
		{"W/" + etag, http.StatusNotModified},
		{"*", http.StatusNotModified},
		{`"other"`, http.StatusOK},
		{"W/\"other\", \"again\"", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			rec := ts.do(http.MethodGet, "/api/BBBBBB", nil, "If-None-Match", tt.header)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestServer_RequestID(t *testing.T) {
	ts := newTestServer(t, serverConfig{})

	rec := ts.do(http.MethodGet, "/api", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = ts.do(http.MethodGet, "/api", nil, "X-Request-Id", "abc-123")
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))

	rec = ts.do(http.MethodGet, "/nowhere", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestServer_UnknownRouteAndMethod(t *testing.T) {
	ts := newTestServer(t, serverConfig{})

	rec := ts.do(http.MethodGet, "/other", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["message"], "not found")

	rec = ts.do(http.MethodPatch, "/api/BBBBBB", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_CustomRoots(t *testing.T) {
	for _, api := range []string{"/v1/things/", "v1/things", "//v1/things"} {
		t.Run(api, func(t *testing.T) {
			ts := newTestServer(t, serverConfig{api: api, ids: []string{"BBBBBB"}})

			rec := ts.do(http.MethodPost, "/v1/things", map[string]any{"text": "x"})
			require.Equal(t, http.StatusCreated, rec.Code)
			rec = ts.do(http.MethodGet, "/v1/things/BBBBBB/text", nil)
			assert.JSONEq(t, `"x"`, rec.Body.String())
		})
	}
}

func TestServer_EmptyRoot(t *testing.T) {
	ts := newTestServer(t, serverConfig{api: "/", ids: []string{"BBBBBB"}})

	rec := ts.do(http.MethodPost, "/", map[string]any{"text": "x"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/BBBBBB", rec.Header().Get("Location"))

	rec = ts.do(http.MethodGet, "/BBBBBB/text", nil)
	assert.JSONEq(t, `"x"`, rec.Body.String())
}

func TestServer_CustomSchema(t *testing.T) {
	ts := newTestServer(t, serverConfig{
		fields: []string{"name", "age_int_optional", "tag_optional"},
		ids:    []string{"BBBBBB"},
	})

	rec := ts.do(http.MethodPost, "/api", map[string]any{"name": "ann", "age": "41"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/BBBBBB", nil)
	assert.JSONEq(t, `{"name": "ann", "age": 41, "tag": ""}`, rec.Body.String())
}

func TestServer_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	ts := newTestServer(t, serverConfig{path: path, ids: []string{"BBBBBB"}})

	rec := ts.do(http.MethodPost, "/api", map[string]any{"text": "saved"})
	require.Equal(t, http.StatusCreated, rec.Code)

	loaded, err := store.NewJSONFile(path).Load()
	require.NoError(t, err)
	assert.Contains(t, loaded, "BBBBBB")
}

func TestServer_LogsRequests(t *testing.T) {
	logs := testutil.CaptureLogs(t)
	ts := newTestServer(t, serverConfig{})

	ts.do(http.MethodGet, "/api/missing", nil)

	out := logs.String()
	assert.Contains(t, out, "msg=request")
	assert.Contains(t, out, "status=404")
}
