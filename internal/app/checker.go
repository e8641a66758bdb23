package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samvad-hq/samvad-claim-checker/internal/config"
	"github.com/samvad-hq/samvad-claim-checker/internal/history"
	"github.com/samvad-hq/samvad-claim-checker/internal/logger"
	"github.com/samvad-hq/samvad-claim-checker/pkg/claimapi"
	"github.com/samvad-hq/samvad-claim-checker/pkg/httpclient"
	"github.com/samvad-hq/samvad-claim-checker/pkg/publishers"
)

// Request is a single claim to check.
type Request struct {
	ClaimText string
	File      *claimapi.File
	// Multimodal forces the multimodal endpoint even without a file.
	Multimodal bool
}

func (r Request) multimodal() bool { return r.Multimodal || r.File != nil }

// Checker submits claims and handles the local side effects around each
// submission: history journaling and verdict publishing.
type Checker struct {
	client *claimapi.Client
	store  history.Store
	fanout *publishers.Fanout
	log    logger.Logger
}

// NewChecker builds a checker runtime from config.
func NewChecker(ctx context.Context, cfg *config.Config, log logger.Logger) (*Checker, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	opts := httpclient.Options{Timeout: cfg.HTTPTimeout, Origin: cfg.APIOrigin}
	if z, ok := log.(*logger.Zap); ok {
		opts.Logger = z.Sugar()
	}
	client, err := claimapi.New(claimapi.Config{
		BaseURL: cfg.APIURL,
		DevMode: cfg.DevMode(),
	}, httpclient.NewRestyClient(opts), log)
	if err != nil {
		return nil, fmt.Errorf("init claim client: %w", err)
	}

	store, err := history.NewStore(cfg.HistoryStorageType(), cfg.BBoltPath, history.Options{
		EntryTTL:        cfg.HistoryTTL,
		CleanupInterval: cfg.HistoryCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init history: %w", err)
	}
	log.DebugObj("history initialized", "history_config", map[string]any{
		"type":                     cfg.HistoryStorageType(),
		"path":                     cfg.BBoltPath,
		"entry_ttl_seconds":        int(cfg.HistoryTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.HistoryCleanupInterval.Seconds()),
	})

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	return NewCheckerWith(client, store, fanout, log), nil
}

// NewCheckerWith assembles a checker from already-built parts. A nil store or
// fanout disables that side effect.
func NewCheckerWith(client *claimapi.Client, store history.Store, fanout *publishers.Fanout, log logger.Logger) *Checker {
	if store == nil {
		store, _ = history.NewStore("none", "", history.Options{})
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Checker{client: client, store: store, fanout: fanout, log: log}
}

func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if path == "" {
		return publishers.NewFanout(nil), nil
	}

	sinks, err := publishers.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers: %w", err)
	}
	fanout, err := publishers.Build(ctx, sinks, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]any, 0, len(sinks))
	for _, sink := range sinks {
		summaries = append(summaries, map[string]any{
			"id":       sink.ID,
			"type":     sink.Type,
			"kinds":    sink.Route.Kinds,
			"statuses": sink.Route.Statuses,
		})
	}
	log.DebugObj("publishers loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return fanout, nil
}

// Check submits req and returns the service's response. History and publish
// failures are logged and never fail the check.
func (c *Checker) Check(ctx context.Context, req Request) (*claimapi.Result, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("checker is not initialized")
	}

	start := time.Now()
	var (
		res      *claimapi.Result
		err      error
		endpoint string
	)
	if req.multimodal() {
		endpoint = claimapi.MultimodalClaimPath
		res, err = c.client.SubmitMultimodalClaim(ctx, req.ClaimText, req.File)
	} else {
		endpoint = claimapi.TextClaimPath
		res, err = c.client.SubmitTextClaim(ctx, req.ClaimText)
	}

	entry := history.Entry{
		SubmittedAt: start.UTC(),
		Endpoint:    endpoint,
		ClaimText:   req.ClaimText,
	}
	if req.File != nil {
		entry.FileName = req.File.Name
		entry.FileType = req.File.ContentType
	}
	outcome := ""
	if err != nil {
		entry.Error = err.Error()
		if status, ok := claimapi.StatusCode(err); ok {
			entry.StatusCode = status
		}
	} else {
		if fc, ferr := res.FactCheck(); ferr == nil {
			outcome = fc.Outcome()
		}
		entry.Outcome = outcome
	}
	if rerr := c.store.Record(entry); rerr != nil {
		c.log.WarnObj("history record failed", "error", rerr.Error())
	}

	c.log.DebugObj("claim checked", "check_meta", map[string]any{
		"endpoint":   endpoint,
		"elapsed_ms": time.Since(start).Milliseconds(),
		"failed":     err != nil,
	})
	if err != nil {
		return nil, err
	}

	c.publish(ctx, publishers.NewEvent(req.ClaimText, entry.FileName, endpoint, outcome, res.Raw))
	return res, nil
}

func (c *Checker) publish(ctx context.Context, evt publishers.Event) {
	if c.fanout == nil || c.fanout.Size() == 0 {
		return
	}
	d, err := c.fanout.Publish(ctx, evt)
	if err != nil {
		c.log.ErrorObj("verdict publish failed", "publish_error", map[string]any{
			"delivered": d.Delivered,
			"skipped":   d.Skipped,
			"error":     err.Error(),
		})
		return
	}
	c.log.DebugObj("verdict published", "publish_meta", map[string]any{
		"delivered": d.Delivered,
		"skipped":   d.Skipped,
	})
}

// History returns up to limit recent submissions, newest first.
func (c *Checker) History(limit int) ([]history.Entry, error) {
	if c == nil || c.store == nil {
		return nil, nil
	}
	return c.store.Recent(limit)
}

// Close releases the history store and publishers.
func (c *Checker) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close history: %w", err))
		}
	}
	if err := c.fanout.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publishers: %w", err))
	}
	return errors.Join(errs...)
}
