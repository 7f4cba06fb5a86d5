// Package session owns the fetch lifecycle for one record view: idle until a
// source is configured, loading while a fetch is in flight, then success or
// error. Re-triggering supersedes any outstanding fetch; only the most
// recently triggered fetch may publish, even when the network resolves out
// of order.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/gridfeed/gridfeed/internal/fetcher"
	"github.com/gridfeed/gridfeed/internal/model"
	"github.com/gridfeed/gridfeed/internal/view"
)

// Status is the lifecycle state of the current fetch session.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Request is the configuration snapshot that triggers one fetch.
type Request struct {
	SourceURL string
	DateField string
	Limit     int
}

// Key identifies the request for caching and supersession bookkeeping.
func (r Request) Key() string {
	return r.SourceURL + "|" + strconv.Itoa(r.Limit)
}

// Snapshot is an atomic copy of the published state. Records are only
// meaningful once Status is StatusSuccess and must be treated as read-only.
type Snapshot struct {
	Status     Status
	RequestKey string
	Records    []model.RawRecord
	ErrMessage string
}

// FetchFunc fetches the raw record set for a source URL.
type FetchFunc func(ctx context.Context, sourceURL string) ([]model.RawRecord, error)

// Manager is the fetch state machine. All published state lives behind one
// mutex; the token issued at trigger time is re-checked under that mutex at
// publication, which is what enforces last-request-wins.
type Manager struct {
	fetch FetchFunc

	mu         sync.Mutex
	token      uint64
	status     Status
	requestKey string
	records    []model.RawRecord
	errMsg     string
	settled    chan struct{}
}

// New creates an idle Manager over the given fetch function.
func New(fetch FetchFunc) *Manager {
	return &Manager{fetch: fetch, status: StatusIdle}
}

// Trigger starts a new fetch for the given request and returns immediately.
// Any outstanding fetch is superseded: its eventual result will be dropped.
// An empty source URL leaves the machine idle.
//
// Previously published records are intentionally kept while loading so the
// consumer never flashes to empty between refreshes.
func (m *Manager) Trigger(ctx context.Context, req Request) {
	m.mu.Lock()

	if req.SourceURL == "" {
		// Invalidate any in-flight fetch so its late resolution fails the
		// token check in publish instead of reviving an idled machine.
		m.token++
		m.status = StatusIdle
		m.errMsg = ""
		m.requestKey = ""
		m.releaseWaitersLocked()
		m.mu.Unlock()
		return
	}

	m.token++
	tok := m.token
	m.status = StatusLoading
	m.errMsg = ""
	m.requestKey = req.Key()
	m.releaseWaitersLocked()
	ch := make(chan struct{})
	m.settled = ch
	m.mu.Unlock()

	zap.L().Debug("session: fetch triggered",
		zap.String("request_key", req.Key()),
		zap.Uint64("token", tok),
	)

	go m.run(ctx, tok, req, ch)
}

// releaseWaitersLocked wakes waiters parked on a superseded session so they
// re-check state against the new one. Caller holds mu.
func (m *Manager) releaseWaitersLocked() {
	if m.settled != nil {
		close(m.settled)
		m.settled = nil
	}
}

func (m *Manager) run(ctx context.Context, tok uint64, req Request, ch chan struct{}) {
	records, err := m.fetch(ctx, req.SourceURL)
	if err == nil {
		records = view.Build(records, req.DateField, req.Limit)
	}
	m.publish(tok, records, err, ch)
}

// publish writes the outcome of one fetch, unless a newer fetch has been
// triggered since. The token comparison and the state write happen under the
// same lock, so the consumer can never observe records from one fetch with
// the status of another.
func (m *Manager) publish(tok uint64, records []model.RawRecord, err error, ch chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tok != m.token {
		zap.L().Debug("session: discarding superseded fetch result",
			zap.Uint64("token", tok),
			zap.Uint64("latest", m.token),
			zap.Bool("was_error", err != nil),
		)
		return
	}

	if m.settled == ch {
		close(ch)
		m.settled = nil
	}

	if err != nil {
		m.status = StatusError
		m.errMsg = errorMessage(err)
		return
	}
	m.status = StatusSuccess
	m.records = records
}

// errorMessage renders a fetch failure for the consumer, embedding the HTTP
// status when the transport reported one.
func errorMessage(err error) string {
	var statusErr *fetcher.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("source request failed with status %d", statusErr.Status)
	}
	if msg := eris.Cause(err).Error(); msg != "" {
		return msg
	}
	return "failed to fetch records"
}

// Snapshot returns an atomic copy of the published state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Status:     m.status,
		RequestKey: m.requestKey,
		Records:    m.records,
		ErrMessage: m.errMsg,
	}
}

// Wait blocks until the most recently triggered session settles (success or
// error), the machine is idle, or ctx is done. It returns the snapshot at
// that point.
func (m *Manager) Wait(ctx context.Context) (Snapshot, error) {
	for {
		m.mu.Lock()
		status := m.status
		ch := m.settled
		m.mu.Unlock()

		if status != StatusLoading || ch == nil {
			return m.Snapshot(), nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return m.Snapshot(), eris.Wrap(ctx.Err(), "session: wait")
		}
	}
}
