//go:build !integration

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridfeed/gridfeed/internal/model"
	"github.com/gridfeed/gridfeed/internal/session"
	"github.com/gridfeed/gridfeed/internal/store"
	"github.com/gridfeed/gridfeed/internal/view"
)

// stubSource serves fixed columns and records, or fails on demand.
type stubSource struct {
	cols    []model.ColumnDescriptor
	recs    []model.RawRecord
	colsErr error
	recsErr error
}

func (s *stubSource) Columns(ctx context.Context) ([]model.ColumnDescriptor, error) {
	return s.cols, s.colsErr
}

func (s *stubSource) Records(ctx context.Context) ([]model.RawRecord, error) {
	return s.recs, s.recsErr
}

func testRecords() []model.RawRecord {
	return []model.RawRecord{
		{"Title": "Go Meetup", "Category": "Talks", "Date": "2026-06-10"},
		{"Title": "Jazz Night", "Category": "Music", "Date": "2026-05-01"},
	}
}

func testColumns() []model.ColumnDescriptor {
	return []model.ColumnDescriptor{
		{ID: "c1", Name: "Title", Format: model.ColumnFormat{Type: "text"}},
		{ID: "c2", Name: "Date", Format: model.ColumnFormat{Type: "date"}},
		{ID: "c3", Name: "Tickets", Format: model.ColumnFormat{Type: "button"}},
	}
}

// newTestAPI wires a serveAPI over a stub source and a tempdir sqlite store,
// and points the global config at the stub's request key.
func newTestAPI(t *testing.T, src *stubSource) *serveAPI {
	t.Helper()

	cfg = tableConfig("https://src.example.com/rows")

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	env := &feedEnv{
		src: src,
		mgr: session.New(func(ctx context.Context, _ string) ([]model.RawRecord, error) {
			return src.Records(ctx)
		}),
	}
	return &serveAPI{ctx: context.Background(), env: env, st: st}
}

func getJSON(t *testing.T, h http.Handler, target string, out any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), out))
	return rr.Code
}

func TestServe_HealthEndpoint(t *testing.T) {
	api := newTestAPI(t, &stubSource{})

	var body map[string]string
	code := getJSON(t, api.router(), "/health", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestServe_ViewIdleBeforeFirstFetch(t *testing.T) {
	api := newTestAPI(t, &stubSource{recs: testRecords()})

	var resp viewResponse
	code := getJSON(t, api.router(), "/api/view", &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "idle", resp.Status)
	assert.Empty(t, resp.Records)
}

func TestServe_ViewAfterRefresh(t *testing.T) {
	api := newTestAPI(t, &stubSource{cols: testColumns(), recs: testRecords()})
	require.NoError(t, api.refresh(context.Background()))

	var resp viewResponse
	code := getJSON(t, api.router(), "/api/view", &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", resp.Status)
	assert.False(t, resp.Stale)
	require.Len(t, resp.Records, 2)
	// Sorted ascending by date.
	assert.Equal(t, "Jazz Night", resp.Records[0].Title)
	assert.Equal(t, "Go Meetup", resp.Records[1].Title)
}

func TestServe_ViewCategoryFilter(t *testing.T) {
	api := newTestAPI(t, &stubSource{cols: testColumns(), recs: testRecords()})
	require.NoError(t, api.refresh(context.Background()))

	var resp viewResponse
	code := getJSON(t, api.router(), "/api/view?category=music", &resp)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "Jazz Night", resp.Records[0].Title)

	code = getJSON(t, api.router(), "/api/view?category="+view.AllCategories, &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, resp.Records, 2)
}

func TestServe_ViewErrorFallsBackToCachedSnapshot(t *testing.T) {
	src := &stubSource{cols: testColumns(), recs: testRecords()}
	api := newTestAPI(t, src)

	// Seed the cache via a successful refresh, then break the source.
	require.NoError(t, api.refresh(context.Background()))
	src.recsErr = eris.New("connection refused")
	require.NoError(t, api.refresh(context.Background()))

	var resp viewResponse
	code := getJSON(t, api.router(), "/api/view", &resp)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "error", resp.Status)
	assert.True(t, resp.Stale)
	assert.NotEmpty(t, resp.Error)
	require.NotNil(t, resp.FetchedAt)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, "Jazz Night", resp.Records[0].Title)
}

func TestServe_ViewErrorWithoutCacheIs502(t *testing.T) {
	src := &stubSource{cols: testColumns(), recsErr: eris.New("connection refused")}
	api := newTestAPI(t, src)
	require.NoError(t, api.refresh(context.Background()))

	var resp viewResponse
	code := getJSON(t, api.router(), "/api/view", &resp)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "error", resp.Status)
	assert.NotEmpty(t, resp.Error)
	assert.Empty(t, resp.Records)
}

func TestServe_SchemaOnDemand(t *testing.T) {
	api := newTestAPI(t, &stubSource{cols: testColumns()})

	var body struct {
		Fields []model.Field `json:"fields"`
	}
	code := getJSON(t, api.router(), "/api/schema", &body)
	assert.Equal(t, http.StatusOK, code)
	// The button column is skipped by classification.
	require.Len(t, body.Fields, 2)
	assert.Equal(t, model.FieldString, body.Fields[0].Type)
	assert.Equal(t, model.FieldDate, body.Fields[1].Type)
}

func TestServe_SchemaFetchFailure(t *testing.T) {
	api := newTestAPI(t, &stubSource{colsErr: eris.New("boom")})

	var body map[string]string
	code := getJSON(t, api.router(), "/api/schema", &body)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.NotEmpty(t, body["error"])
}

func TestServe_Categories(t *testing.T) {
	api := newTestAPI(t, &stubSource{cols: testColumns(), recs: testRecords()})
	require.NoError(t, api.refresh(context.Background()))

	var body struct {
		Categories []string `json:"categories"`
	}
	code := getJSON(t, api.router(), "/api/categories", &body)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{view.AllCategories, "Music", "Talks"}, body.Categories)
}

func TestServe_RefreshAccepted(t *testing.T) {
	api := newTestAPI(t, &stubSource{cols: testColumns(), recs: testRecords()})

	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	rr := httptest.NewRecorder()
	api.router().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusAccepted, rr.Code)

	// The refresh runs asynchronously; wait for it to settle.
	assert.Eventually(t, func() bool {
		return api.env.mgr.Snapshot().Status == session.StatusSuccess
	}, time.Second, 10*time.Millisecond)
}
