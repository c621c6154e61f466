package tracker

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rohankatakam/paycheck/internal/errors"
	"github.com/rohankatakam/paycheck/internal/worklog"
)

// Source is the read side of the tracker used by the Fetcher
type Source interface {
	Search(ctx context.Context, jql string, fields []string, maxResults int) ([]worklog.IssueRef, error)
	Worklogs(ctx context.Context, issueKey string) ([]worklog.Record, error)
}

// Sink receives issues and their work logs. Ingest may be called from
// several goroutines at once.
type Sink interface {
	AddIssue(ref worklog.IssueRef) error
	Ingest(issueKey string, records []worklog.Record) (int, error)
}

// FetcherConfig tunes the work-log fan-out
type FetcherConfig struct {
	Concurrency    int
	RateLimit      float64 // requests per second, <= 0 disables
	RequestTimeout time.Duration
	MaxResults     int
	// FailFast aborts the run on the first failed issue. When false the
	// failure is recorded as a Gap and the other issues continue.
	FailFast bool
}

// Gap is an issue whose work logs could not be fetched
type Gap struct {
	IssueKey string
	Err      error
}

// FetchStats tracks fetching statistics
type FetchStats struct {
	Issues   int
	Worklogs int
	Gaps     []Gap
}

// Fetcher retrieves every issue with time logged since a date, then its
// work logs through a bounded, rate-limited worker pool.
type Fetcher struct {
	source  Source
	cfg     FetcherConfig
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewFetcher creates a fetcher. Zero config values fall back to defaults.
func NewFetcher(source Source, cfg FetcherConfig, logger *slog.Logger) *Fetcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Fetcher{
		source:  source,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, cfg.Concurrency),
		logger:  logger.With("component", "fetcher"),
	}
}

// Fetch registers every matching issue with sink before any work-log request
// starts, then fetches work logs concurrently. It returns only after every
// request has finished.
func (f *Fetcher) Fetch(ctx context.Context, since time.Time, sink Sink) (*FetchStats, error) {
	stats := &FetchStats{}
	jql := BuildJQL(since)
	f.logger.Info("searching issues", "jql", jql)

	refs, err := f.source.Search(ctx, jql, []string{"summary"}, f.cfg.MaxResults)
	if err != nil {
		return stats, err
	}
	for _, ref := range refs {
		if err := sink.AddIssue(ref); err != nil {
			return stats, errors.InternalErrorf("register issue %s: %v", ref.Key, err)
		}
	}
	stats.Issues = len(refs)
	f.logger.Info("issues found", "count", len(refs))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Concurrency)

	for _, ref := range refs {
		key := ref.Key
		g.Go(func() error {
			added, err := f.fetchIssue(gctx, key, sink)
			if err == nil {
				mu.Lock()
				stats.Worklogs += added
				mu.Unlock()
				return nil
			}
			if f.cfg.FailFast {
				return err
			}
			f.logger.Warn("worklog fetch failed, continuing", "issue", key, "error", err)
			mu.Lock()
			stats.Gaps = append(stats.Gaps, Gap{IssueKey: key, Err: err})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}
	// an aborted run is not a per-issue gap
	if err := ctx.Err(); err != nil {
		return stats, errors.NetworkError(err, "fetch cancelled")
	}

	sort.Slice(stats.Gaps, func(i, j int) bool {
		return stats.Gaps[i].IssueKey < stats.Gaps[j].IssueKey
	})
	return stats, nil
}

func (f *Fetcher) fetchIssue(ctx context.Context, key string, sink Sink) (int, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return 0, errors.NetworkError(err, "rate limiter").WithContext("issue", key)
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.cfg.RequestTimeout)
	defer cancel()

	records, err := f.source.Worklogs(reqCtx, key)
	if err != nil {
		return 0, err
	}

	added, err := sink.Ingest(key, records)
	if err != nil {
		return 0, errors.InternalErrorf("ingest worklogs of %s: %v", key, err)
	}
	if dup := len(records) - added; dup > 0 {
		f.logger.Debug("dropped duplicate worklogs", "issue", key, "count", dup)
	}
	f.logger.Debug("worklogs fetched", "issue", key, "count", added)
	return added, nil
}
