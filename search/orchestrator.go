// Package search owns the concurrent task graph of a run: a first wave of
// enrichment and web-search lookups, and a second wave of page-analysis
// tasks spawned dynamically from web-search completions.
package search

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/eantrace/eantrace/config"
	"github.com/eantrace/eantrace/ean"
	"github.com/eantrace/eantrace/models"
)

// seenURLCacheSize bounds the per-run set of already-scheduled URLs.
const seenURLCacheSize = 1024

// EnrichmentSource is a single-shot lookup against one external source.
// A nil result with a nil error is a valid "nothing found" outcome.
type EnrichmentSource interface {
	Name() string
	Lookup(ctx context.Context, code ean.Code) (*models.SourceResult, error)
}

// WebSearcher runs one term against the web-search source and returns
// candidates deduplicated by link.
type WebSearcher interface {
	Search(ctx context.Context, term string) ([]models.Candidate, error)
}

// PageAnalyzer fetches a candidate URL and extracts findings from it.
type PageAnalyzer interface {
	Analyze(ctx context.Context, url string, code ean.Code) (*models.SourceResult, error)
}

// Orchestrator fans a code out into all lookups and joins the results.
type Orchestrator struct {
	cfg      *config.Config
	sources  []EnrichmentSource
	searcher WebSearcher
	analyzer PageAnalyzer
}

// New builds an orchestrator over the given collaborators.
func New(cfg *config.Config, sources []EnrichmentSource, searcher WebSearcher, analyzer PageAnalyzer) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		sources:  sources,
		searcher: searcher,
		analyzer: analyzer,
	}
}

// Run validates the raw code and drains the full two-wave task set. The
// returned set is the union of every non-empty source result; membership is
// independent of task completion order. Individual task failures are dropped
// and never abort the join. Only an invalid code makes the run itself fail.
func (o *Orchestrator) Run(ctx context.Context, raw string) (*models.ResultSet, error) {
	code, err := ean.Parse(raw)
	if err != nil {
		return &models.ResultSet{Code: raw}, err
	}

	terms := ean.Terms(code)
	rs := &models.ResultSet{Code: code.String()}
	rs.Stats.StartTime = time.Now()
	rs.Stats.TermCount = len(terms)

	slog.Info("starting search",
		slog.String("code", code.String()),
		slog.String("format", code.Format()),
		slog.Int("terms", len(terms)),
		slog.Int("workers", o.cfg.Parallelism),
	)

	run := newRunState(o.cfg.Parallelism)
	seen, _ := lru.New[string, struct{}](seenURLCacheSize)

	for _, src := range o.sources {
		src := src
		run.submit(func() {
			res, err := src.Lookup(ctx, code)
			if err != nil {
				run.drop("enrichment lookup failed", slog.String("source", src.Name()), slog.Any("error", err))
				return
			}
			run.collect(res)
		})
	}

	for _, term := range terms {
		term := term
		run.submit(func() {
			candidates, err := o.searcher.Search(ctx, term)
			if err != nil {
				run.drop("term search failed", slog.String("term", term), slog.Any("error", err))
				return
			}
			slog.Debug("term complete", slog.String("term", term), slog.Int("candidates", len(candidates)))

			// Second wave: the task set grows while the join is still open.
			// The new wait-group entries are added from inside this live
			// first-wave task, so the counter can never drain early.
			scheduled := 0
			for _, candidate := range candidates {
				if scheduled >= o.cfg.TopCandidates {
					break
				}
				if ctx.Err() != nil {
					return
				}
				link := candidate.Link
				if link == "" {
					continue
				}
				if already, _ := seen.ContainsOrAdd(link, struct{}{}); already {
					continue
				}
				scheduled++
				run.countURL()
				run.submit(func() {
					res, err := o.analyzer.Analyze(ctx, link, code)
					if err != nil {
						run.drop("page analysis failed", slog.String("url", link), slog.Any("error", err))
						return
					}
					run.collect(res)
				})
			}
		})
	}

	run.wait()

	rs.Sources = run.snapshot()
	rs.Stats.EndTime = time.Now()
	rs.Stats.URLCount = int(atomic.LoadInt64(&run.urls))
	rs.Stats.ErrorCount = int(atomic.LoadInt64(&run.dropped))
	rs.Stats.FindingCount = rs.TotalFindings()

	slog.Info("search complete",
		slog.String("code", code.String()),
		slog.Int("findings", rs.Stats.FindingCount),
		slog.Int("sources", len(rs.Sources)),
		slog.Int("urls", rs.Stats.URLCount),
		slog.Int("dropped", rs.Stats.ErrorCount),
		slog.Duration("elapsed", rs.Stats.Elapsed()),
	)
	return rs, nil
}

// runState is the shared mutable core of one run: the growable join, the
// worker-bounding semaphore and the result accumulator.
type runState struct {
	wg  sync.WaitGroup
	sem chan struct{}

	mu      sync.Mutex
	results []*models.SourceResult

	urls    int64
	dropped int64
}

func newRunState(parallelism int) *runState {
	if parallelism <= 0 {
		parallelism = 1
	}
	return &runState{sem: make(chan struct{}, parallelism)}
}

// submit registers a task with the join before it starts, then bounds its
// execution with the worker semaphore.
func (r *runState) submit(task func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.sem <- struct{}{}
		defer func() { <-r.sem }()
		task()
	}()
}

func (r *runState) collect(res *models.SourceResult) {
	if res == nil || len(res.Findings) == 0 {
		return
	}
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
}

func (r *runState) drop(msg string, attrs ...any) {
	atomic.AddInt64(&r.dropped, 1)
	slog.Debug(msg, attrs...)
}

func (r *runState) countURL() {
	atomic.AddInt64(&r.urls, 1)
}

func (r *runState) wait() {
	r.wg.Wait()
}

func (r *runState) snapshot() []*models.SourceResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.SourceResult, len(r.results))
	copy(out, r.results)
	return out
}
