package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/gridfeed/gridfeed/internal/config"
	"github.com/gridfeed/gridfeed/internal/fetcher"
	"github.com/gridfeed/gridfeed/internal/model"
	"github.com/gridfeed/gridfeed/internal/session"
	"github.com/gridfeed/gridfeed/internal/source"
	"github.com/gridfeed/gridfeed/pkg/notion"
)

// feedEnv bundles the source adapter and fetch session built from config.
type feedEnv struct {
	src source.Source
	mgr *session.Manager
}

// newSource builds the configured source adapter.
func newSource(cfg *config.Config) (source.Source, error) {
	switch cfg.Source.Kind {
	case "table":
		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  cfg.Fetch.UserAgent,
			Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Fetch.MaxRetries,
		})
		return source.NewTableSource(f, source.TableOptions{
			RecordsURL: cfg.Source.URL,
			ColumnsURL: cfg.Source.SchemaURL,
			ProxyURL:   cfg.Source.ProxyURL,
		}), nil
	case "notion":
		if cfg.Notion.Token == "" || cfg.Notion.DatabaseID == "" {
			return nil, eris.New("notion source requires notion.token and notion.database_id")
		}
		client := notion.NewClient(cfg.Notion.Token)
		return source.NewNotionSource(client, cfg.Notion.DatabaseID), nil
	default:
		return nil, eris.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

// sourceURL is the configuration identity of the current source, used as the
// session request key. Notion sources have no HTTP URL of their own.
func sourceURL(cfg *config.Config) string {
	if cfg.Source.Kind == "notion" {
		if cfg.Notion.DatabaseID == "" {
			return ""
		}
		return "notion://" + cfg.Notion.DatabaseID
	}
	return cfg.Source.URL
}

// sessionRequest snapshots the fetch-triggering configuration.
func sessionRequest(cfg *config.Config) session.Request {
	return session.Request{
		SourceURL: sourceURL(cfg),
		DateField: cfg.Fields.Date,
		Limit:     cfg.Source.Limit,
	}
}

// newFeedEnv builds the source and a session manager fetching from it.
func newFeedEnv(cfg *config.Config) (*feedEnv, error) {
	src, err := newSource(cfg)
	if err != nil {
		return nil, err
	}
	mgr := session.New(func(ctx context.Context, _ string) ([]model.RawRecord, error) {
		return src.Records(ctx)
	})
	return &feedEnv{src: src, mgr: mgr}, nil
}
