package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridfeed/gridfeed/internal/fetcher"
)

func newTableFetcher() fetcher.Fetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 5 * time.Second, MaxRetries: 1})
}

func TestTableSource_RecordsDirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rows", r.URL.Path)
		w.Write([]byte(`{"data":[{"Title":"a"},{"Title":"b"}]}`))
	}))
	defer srv.Close()

	src := NewTableSource(newTableFetcher(), TableOptions{RecordsURL: srv.URL + "/rows"})
	records, err := src.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0]["Title"])
}

func TestTableSource_RecordsThroughProxy(t *testing.T) {
	const realSource = "https://tables.example.com/apps/123/rows"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The proxy receives the real source URL as a query parameter.
		assert.Equal(t, "/worker", r.URL.Path)
		assert.Equal(t, realSource, r.URL.Query().Get("url"))
		w.Write([]byte(`[{"Title":"proxied"}]`))
	}))
	defer srv.Close()

	src := NewTableSource(newTableFetcher(), TableOptions{
		RecordsURL: realSource,
		ProxyURL:   srv.URL + "/worker",
	})
	records, err := src.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "proxied", records[0]["Title"])
}

func TestTableSource_Columns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"columns":[{"id":"c1","name":"Title","format":{"type":"text"}}]}`))
	}))
	defer srv.Close()

	src := NewTableSource(newTableFetcher(), TableOptions{ColumnsURL: srv.URL + "/schema"})
	cols, err := src.Columns(context.Background())
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "text", cols[0].DeclaredType())
}

func TestTableSource_UnconfiguredURLs(t *testing.T) {
	src := NewTableSource(newTableFetcher(), TableOptions{})

	_, err := src.Records(context.Background())
	require.Error(t, err)

	_, err = src.Columns(context.Background())
	require.Error(t, err)
}
