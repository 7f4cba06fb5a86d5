package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gridfeed/gridfeed/internal/model"
	"github.com/gridfeed/gridfeed/internal/schema"
	"github.com/gridfeed/gridfeed/internal/session"
	"github.com/gridfeed/gridfeed/internal/store"
	"github.com/gridfeed/gridfeed/internal/view"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the record view over HTTP",
	Long:  "Starts the view API server. Records are fetched from the configured source, kept in memory, and cached in the snapshot store so the view survives source outages.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := newFeedEnv(cfg)
		if err != nil {
			return err
		}

		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		api := &serveAPI{ctx: ctx, env: env, st: st}

		// Warm the view and schema before the first request lands.
		go func() {
			if err := api.refresh(ctx); err != nil {
				zap.L().Warn("initial refresh failed", zap.Error(err))
			}
		}()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// serveAPI holds the server-side state: the live fetch session, the snapshot
// store used as a stale fallback, and the last classified schema.
type serveAPI struct {
	ctx context.Context
	env *feedEnv
	st  store.Store

	mu          sync.Mutex
	schemaCache []model.Field
}

func (s *serveAPI) router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/view", s.handleView)
		r.Get("/schema", s.handleSchema)
		r.Get("/categories", s.handleCategories)
		r.Post("/refresh", s.handleRefresh)
	})
	return r
}

// refresh re-fetches the schema and the record set concurrently. A successful
// record fetch is persisted to the snapshot store for outage fallback.
func (s *serveAPI) refresh(ctx context.Context) error {
	req := sessionRequest(cfg)
	if req.SourceURL == "" {
		return eris.New("serve: no source configured, set source.url or notion.database_id")
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cols, err := s.env.src.Columns(ctx)
		if err != nil {
			return eris.Wrap(err, "serve: fetch columns")
		}
		fields := schema.ClassifyAll(cols)
		s.mu.Lock()
		s.schemaCache = fields
		s.mu.Unlock()
		return nil
	})

	g.Go(func() error {
		s.env.mgr.Trigger(ctx, req)
		snap, err := s.env.mgr.Wait(ctx)
		if err != nil {
			return err
		}
		if snap.Status != session.StatusSuccess {
			return nil
		}
		if err := s.st.SaveSnapshot(ctx, snap.RequestKey, snap.Records); err != nil {
			zap.L().Warn("save snapshot failed", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}

// viewResponse is the payload of GET /api/view.
type viewResponse struct {
	Status     string      `json:"status"`
	RequestKey string      `json:"requestKey,omitempty"`
	Stale      bool        `json:"stale,omitempty"`
	Error      string      `json:"error,omitempty"`
	FetchedAt  *time.Time  `json:"fetchedAt,omitempty"`
	Records    []view.Card `json:"records"`
}

func (s *serveAPI) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *serveAPI) handleView(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	snap := s.env.mgr.Snapshot()

	resolve := func(records []model.RawRecord) []view.Card {
		filtered := view.FilterByCategory(records, cfg.Fields.Category, category)
		return view.ResolveAll(filtered, cfg.Fields)
	}

	switch snap.Status {
	case session.StatusSuccess, session.StatusLoading:
		// While loading, any previously published records keep serving so
		// the consumer never flashes to empty between refreshes.
		writeJSON(w, http.StatusOK, viewResponse{
			Status:     string(snap.Status),
			RequestKey: snap.RequestKey,
			Records:    resolve(snap.Records),
		})
	case session.StatusError:
		cached, err := s.st.GetSnapshot(r.Context(), sessionRequest(cfg).Key())
		if err != nil {
			zap.L().Warn("snapshot lookup failed", zap.Error(err))
		}
		if cached != nil {
			writeJSON(w, http.StatusOK, viewResponse{
				Status:     string(snap.Status),
				RequestKey: snap.RequestKey,
				Stale:      true,
				Error:      snap.ErrMessage,
				FetchedAt:  &cached.FetchedAt,
				Records:    resolve(cached.Records),
			})
			return
		}
		writeJSON(w, http.StatusBadGateway, viewResponse{
			Status:  string(snap.Status),
			Error:   snap.ErrMessage,
			Records: []view.Card{},
		})
	default:
		writeJSON(w, http.StatusOK, viewResponse{
			Status:  string(session.StatusIdle),
			Records: []view.Card{},
		})
	}
}

func (s *serveAPI) handleSchema(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	fields := s.schemaCache
	s.mu.Unlock()

	if fields == nil {
		cols, err := s.env.src.Columns(r.Context())
		if err != nil {
			writeError(w, http.StatusBadGateway, "failed to fetch schema")
			zap.L().Warn("schema fetch failed", zap.Error(err))
			return
		}
		fields = schema.ClassifyAll(cols)
		s.mu.Lock()
		s.schemaCache = fields
		s.mu.Unlock()
	}

	writeJSON(w, http.StatusOK, map[string]any{"fields": fields})
}

func (s *serveAPI) handleCategories(w http.ResponseWriter, r *http.Request) {
	snap := s.env.mgr.Snapshot()
	records := snap.Records
	if len(records) == 0 && snap.Status == session.StatusError {
		if cached, err := s.st.GetSnapshot(r.Context(), sessionRequest(cfg).Key()); err == nil && cached != nil {
			records = cached.Records
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": view.Categories(records, cfg.Fields.Category),
	})
}

func (s *serveAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	// Detached from the request context so the fetch outlives the response.
	go func() {
		if err := s.refresh(s.ctx); err != nil {
			zap.L().Warn("refresh failed", zap.Error(err))
		}
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
