package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridfeed/gridfeed/internal/fetcher"
	"github.com/gridfeed/gridfeed/internal/model"
)

func records(titles ...string) []model.RawRecord {
	out := make([]model.RawRecord, len(titles))
	for i, title := range titles {
		out[i] = model.RawRecord{"Title": title}
	}
	return out
}

func titlesOf(recs []model.RawRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i], _ = r["Title"].(string)
	}
	return out
}

// gatedFetch blocks each call until its release channel fires, so tests can
// resolve fetches in any order they like.
type gatedFetch struct {
	mu    sync.Mutex
	calls []chan fetchResult
}

type fetchResult struct {
	records []model.RawRecord
	err     error
}

func (g *gatedFetch) fetch(ctx context.Context, _ string) ([]model.RawRecord, error) {
	ch := make(chan fetchResult, 1)
	g.mu.Lock()
	g.calls = append(g.calls, ch)
	g.mu.Unlock()

	select {
	case res := <-ch:
		return res.records, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// call waits for call n to exist and returns its release channel.
func (g *gatedFetch) call(t *testing.T, n int) chan fetchResult {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		g.mu.Lock()
		if len(g.calls) > n {
			ch := g.calls[n]
			g.mu.Unlock()
			return ch
		}
		g.mu.Unlock()
		select {
		case <-deadline:
			t.Fatalf("fetch call %d never started", n)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestManager_StartsIdle(t *testing.T) {
	m := New(func(context.Context, string) ([]model.RawRecord, error) { return nil, nil })
	snap := m.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Empty(t, snap.Records)
}

func TestManager_EmptySourceStaysIdle(t *testing.T) {
	called := false
	m := New(func(context.Context, string) ([]model.RawRecord, error) {
		called = true
		return nil, nil
	})
	m.Trigger(context.Background(), Request{SourceURL: ""})

	snap, err := m.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, snap.Status)
	assert.False(t, called)
}

func TestManager_SuccessPublishesSortedLimitedRecords(t *testing.T) {
	m := New(func(context.Context, string) ([]model.RawRecord, error) {
		return []model.RawRecord{
			{"Title": "b", "Date": "2024-05-01"},
			{"Title": "c", "Date": "2024-09-01"},
			{"Title": "a", "Date": "2024-01-01"},
		}, nil
	})
	m.Trigger(context.Background(), Request{SourceURL: "https://src", DateField: "Date", Limit: 2})

	snap, err := m.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, snap.Status)
	assert.Equal(t, []string{"a", "b"}, titlesOf(snap.Records))
	assert.Equal(t, "https://src|2", snap.RequestKey)
}

func TestManager_ClearingSourceInvalidatesInflightFetch(t *testing.T) {
	g := &gatedFetch{}
	m := New(g.fetch)
	ctx := context.Background()

	m.Trigger(ctx, Request{SourceURL: "https://src"})
	// The configuration is cleared while the fetch is still in flight.
	m.Trigger(ctx, Request{SourceURL: ""})
	assert.Equal(t, StatusIdle, m.Snapshot().Status)

	// The old fetch resolves late; the idled machine must not wake up.
	g.call(t, 0) <- fetchResult{records: records("stale")}
	time.Sleep(50 * time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Empty(t, snap.Records)
	assert.Empty(t, snap.RequestKey)
}

func TestManager_SupersededResultDiscarded(t *testing.T) {
	g := &gatedFetch{}
	m := New(g.fetch)
	ctx := context.Background()

	m.Trigger(ctx, Request{SourceURL: "https://first"})
	// Wait for the first fetch to register so call indices match trigger order.
	g.call(t, 0)
	m.Trigger(ctx, Request{SourceURL: "https://second"})

	// Resolve out of order: second (newer) first, then first (stale) with
	// different data.
	g.call(t, 1) <- fetchResult{records: records("new")}
	snap, err := m.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, snap.Status)
	assert.Equal(t, []string{"new"}, titlesOf(snap.Records))

	g.call(t, 0) <- fetchResult{records: records("stale")}

	// The stale result must never overwrite published state.
	assert.Eventually(t, func() bool {
		return len(titlesOf(m.Snapshot().Records)) == 1
	}, time.Second, 10*time.Millisecond)
	snap = m.Snapshot()
	assert.Equal(t, []string{"new"}, titlesOf(snap.Records))
	assert.Equal(t, "https://second|0", snap.RequestKey)
}

func TestManager_SupersededErrorDiscarded(t *testing.T) {
	g := &gatedFetch{}
	m := New(g.fetch)
	ctx := context.Background()

	m.Trigger(ctx, Request{SourceURL: "https://first"})
	// Wait for the first fetch to register so call indices match trigger order.
	g.call(t, 0)
	m.Trigger(ctx, Request{SourceURL: "https://second"})

	g.call(t, 1) <- fetchResult{records: records("ok")}
	snap, err := m.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, snap.Status)

	// A stale failure must not flip the machine to error.
	g.call(t, 0) <- fetchResult{err: eris.New("boom")}
	time.Sleep(50 * time.Millisecond)
	snap = m.Snapshot()
	assert.Equal(t, StatusSuccess, snap.Status)
	assert.Empty(t, snap.ErrMessage)
}

func TestManager_ErrorThenRetrySucceeds(t *testing.T) {
	g := &gatedFetch{}
	m := New(g.fetch)
	ctx := context.Background()

	m.Trigger(ctx, Request{SourceURL: "https://src"})
	g.call(t, 0) <- fetchResult{err: &fetcher.StatusError{Status: 502, URL: "https://src"}}

	snap, err := m.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusError, snap.Status)
	assert.Contains(t, snap.ErrMessage, "502")

	// Retrigger: error -> loading -> success.
	m.Trigger(ctx, Request{SourceURL: "https://src"})
	assert.Equal(t, StatusLoading, m.Snapshot().Status)
	assert.Empty(t, m.Snapshot().ErrMessage)

	g.call(t, 1) <- fetchResult{records: records("recovered")}
	snap, err = m.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, snap.Status)
	assert.Equal(t, []string{"recovered"}, titlesOf(snap.Records))
}

func TestManager_ErrorKeepsPreviousRecords(t *testing.T) {
	g := &gatedFetch{}
	m := New(g.fetch)
	ctx := context.Background()

	m.Trigger(ctx, Request{SourceURL: "https://src"})
	g.call(t, 0) <- fetchResult{records: records("kept")}
	_, err := m.Wait(ctx)
	require.NoError(t, err)

	m.Trigger(ctx, Request{SourceURL: "https://src"})
	// While loading, the previous records are still published.
	assert.Equal(t, []string{"kept"}, titlesOf(m.Snapshot().Records))

	g.call(t, 1) <- fetchResult{err: eris.New("network down")}
	snap, err := m.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusError, snap.Status)
	assert.Equal(t, "network down", snap.ErrMessage)
	assert.Equal(t, []string{"kept"}, titlesOf(snap.Records))
}

func TestManager_WaitHonorsContext(t *testing.T) {
	g := &gatedFetch{}
	m := New(g.fetch)
	m.Trigger(context.Background(), Request{SourceURL: "https://src"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	snap, err := m.Wait(ctx)
	require.Error(t, err)
	assert.Equal(t, StatusLoading, snap.Status)

	// Unblock the fetch goroutine.
	g.call(t, 0) <- fetchResult{}
}
