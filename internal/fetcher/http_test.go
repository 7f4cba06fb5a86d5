package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		UserAgent:  "test-agent",
		Timeout:    5 * time.Second,
		MaxRetries: 3,
	})
}

func TestFetchJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`[{"Title":"a"}]`))
	}))
	defer srv.Close()

	f := newTestFetcher()
	body, err := f.FetchJSON(context.Background(), srv.URL+"/records")
	require.NoError(t, err)

	arr, ok := body.([]any)
	require.True(t, ok)
	require.Len(t, arr, 1)
}

func TestFetchJSON_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	f := newTestFetcher()
	_, err := f.FetchJSON(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestFetchJSON_TerminalStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher()
	_, err := f.FetchJSON(context.Background(), srv.URL+"/missing")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Status)
	assert.Contains(t, statusErr.Error(), "404")
}

func TestFetchJSON_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	f := newTestFetcher()
	_, err := f.FetchJSON(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode body")
}

func TestFetchJSON_NetworkFailure(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{Timeout: time.Second, MaxRetries: 1})
	_, err := f.FetchJSON(context.Background(), "http://127.0.0.1:1/none")
	require.Error(t, err)
}
