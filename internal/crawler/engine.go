package crawler

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"

	"github.com/nao1215/sitespider/internal/config"
	"github.com/nao1215/sitespider/internal/extract"
	"github.com/nao1215/sitespider/internal/fetch"
	spiderlog "github.com/nao1215/sitespider/internal/log"
	"github.com/nao1215/sitespider/internal/model"
	"github.com/nao1215/sitespider/internal/output"
)

// Observer is notified as the crawl progresses. ResourceProcessed is called
// from worker goroutines, so implementations must be safe for concurrent use.
type Observer interface {
	// GenerationStarted is called before the URLs of a generation are fetched.
	GenerationStarted(generation, pending int)

	// ResourceProcessed is called once per URL of the generation.
	ResourceProcessed(r *model.Resource)

	// GenerationFinished is called after the barrier with the size of the
	// next frontier.
	GenerationFinished(generation, next int)
}

// Recorder persists processed resources. It is called sequentially after
// each generation's barrier.
type Recorder interface {
	RecordResource(ctx context.Context, runID string, r *model.Resource) error
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration)

// Engine runs a crawl. An Engine can run several crawls one after another;
// each Run gets its own VisitedSet.
type Engine struct {
	fetcher   fetch.Fetcher
	registry  *extract.Registry
	out       *output.Layout
	filter    *Filter
	channels  *spiderlog.Channels
	maxDepth  int
	workers   int
	cooldown  time.Duration
	sleep     SleepFunc
	observers []Observer
	recorder  Recorder
	runID     string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxDepth sets the number of link hops followed from the seed.
// 0 fetches only the seed.
func WithMaxDepth(depth int) EngineOption {
	return func(e *Engine) {
		e.maxDepth = depth
	}
}

// WithWorkers sets how many URLs of one generation are processed at once.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithCooldown sets the pause after a failed fetch.
func WithCooldown(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.cooldown = d
	}
}

// WithSleep replaces the function used to wait out the cooldown.
func WithSleep(sleep SleepFunc) EngineOption {
	return func(e *Engine) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

// WithChannels sets the category loggers.
func WithChannels(channels *spiderlog.Channels) EngineOption {
	return func(e *Engine) {
		if channels != nil {
			e.channels = channels
		}
	}
}

// WithObserver adds an observer. It may be given several times.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// WithRecorder sets where processed resources are persisted.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithRunID sets the run identifier instead of generating one.
func WithRunID(id string) EngineOption {
	return func(e *Engine) {
		e.runID = id
	}
}

// NewEngine creates an Engine that fetches with fetcher, dispatches with
// registry and writes under out. filter scopes discovered links; a nil
// filter admits every link.
func NewEngine(fetcher fetch.Fetcher, registry *extract.Registry, out *output.Layout, filter *Filter, opts ...EngineOption) *Engine {
	if filter == nil {
		filter = NewFilter(Rules{})
	}
	e := &Engine{
		fetcher:  fetcher,
		registry: registry,
		out:      out,
		filter:   filter,
		channels: spiderlog.NewDiscardChannels(),
		maxDepth: config.DefaultMaxDepth,
		workers:  config.DefaultWorkers,
		cooldown: config.DefaultFailureCooldown,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Run crawls from seed until the depth bound is reached or no unvisited
// URL is left. The summary is returned even when Run fails; the only
// error is the cancellation of ctx.
func (e *Engine) Run(ctx context.Context, seed string) (*model.RunSummary, error) {
	runID := e.runID
	if runID == "" {
		runID = uuid.NewString()
	}

	maxDepth := e.maxDepth
	if maxDepth < 0 {
		maxDepth = 0
	}
	if maxDepth > config.MaxDepthLimit {
		e.channels.Main.Warn("max depth clamped", "requested", maxDepth, "limit", config.MaxDepthLimit)
		maxDepth = config.MaxDepthLimit
	}

	summary := model.NewRunSummary(runID, seed, maxDepth)
	visited := NewVisitedSet()
	discovered := make(map[string]struct{})

	e.channels.Main.Info("crawl started",
		"run_id", runID,
		"seed", seed,
		"max_depth", maxDepth,
		"workers", e.workers,
	)

	var runErr error
	frontier := []string{seed}
	for generation := 0; ; generation++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		pending := visited.Claim(frontier)
		if len(pending) == 0 {
			break
		}
		summary.Generations++

		for _, o := range e.observers {
			o.GenerationStarted(generation, len(pending))
		}
		e.channels.Main.Info("generation started", "generation", generation, "urls", len(pending))

		results, err := e.processGeneration(ctx, generation, pending)

		next := make(map[string]struct{})
		for _, res := range results {
			if res.resource == nil {
				continue
			}
			summary.Record(res.resource)
			e.record(ctx, runID, res.resource)
			for _, link := range res.links {
				discovered[link] = struct{}{}
				if !visited.Contains(link) {
					next[link] = struct{}{}
				}
			}
		}
		frontier = sortedKeys(next)

		for _, o := range e.observers {
			o.GenerationFinished(generation, len(frontier))
		}
		e.channels.Main.Info("generation finished", "generation", generation, "next", len(frontier))

		if err != nil {
			runErr = err
			break
		}
		if generation >= maxDepth {
			if len(frontier) > 0 {
				e.channels.Main.Info("depth bound reached", "max_depth", maxDepth, "unfetched", len(frontier))
			}
			break
		}
	}

	summary.Visited = visited.Len()
	summary.Discovered = len(discovered)
	summary.FinishedAt = time.Now()

	e.channels.Main.Info("crawl finished",
		"run_id", runID,
		"generations", summary.Generations,
		"resources", summary.Total(),
		"saved", summary.Saved(),
		"duration", summary.Duration(),
	)

	if runErr != nil {
		return summary, fmt.Errorf("crawl cancelled: %w", runErr)
	}
	return summary, nil
}

// result is what one worker hands back across the generation barrier.
type result struct {
	resource *model.Resource
	links    []string
}

// processGeneration processes every pending URL and waits for all of them.
func (e *Engine) processGeneration(ctx context.Context, generation int, pending []string) ([]result, error) {
	return runPool(ctx, e.workers, pending,
		func(ctx context.Context, rawURL string) result {
			r, links := e.process(ctx, generation, rawURL)
			e.notifyProcessed(r)
			return result{resource: r, links: links}
		},
		func(rawURL string, recovered any) result {
			r := model.NewResource(rawURL, generation)
			r.Outcome = model.OutcomeExtractFailed
			r.Error = fmt.Sprintf("panic: %v", recovered)
			r.FetchedAt = time.Now()
			e.channels.Errors.Error("resource processing panicked", "url", rawURL, "panic", recovered)
			e.notifyProcessed(r)
			return result{resource: r}
		},
	)
}

// notifyProcessed reports one finished URL to every observer.
func (e *Engine) notifyProcessed(r *model.Resource) {
	for _, o := range e.observers {
		o.ResourceProcessed(r)
	}
}

// process fetches one URL, saves its artifacts and returns the in-scope
// links of markup resources.
func (e *Engine) process(ctx context.Context, generation int, rawURL string) (*model.Resource, []string) {
	r := model.NewResource(rawURL, generation)
	start := time.Now()
	defer func() {
		r.FetchedAt = time.Now()
		r.Duration = r.FetchedAt.Sub(start)
	}()

	if e.out.HasArtifact(r.ID) {
		r.Outcome = model.OutcomeCached
		e.channels.Downloaded.Info("already downloaded", "url", rawURL, "id", r.ID)
		return r, nil
	}

	resp, err := e.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		r.Outcome = model.OutcomeFetchFailed
		r.Error = err.Error()
		e.channels.Errors.Error("fetch failed", "url", rawURL, "error", err, "cooldown", e.cooldown)
		e.sleep(ctx, e.cooldown)
		return r, nil
	}

	r.StatusCode = resp.StatusCode
	r.ContentType = resp.ContentType
	r.Size = len(resp.Body)
	r.Digest = digest(resp.Body)
	e.channels.Downloaded.Info("fetched", "url", rawURL, "status", resp.StatusCode, "bytes", r.Size)

	if !resp.OK() {
		r.Outcome = model.OutcomeHTTPError
		r.Error = fmt.Sprintf("status %d", resp.StatusCode)
		e.channels.Errors.Warn("unsuccessful response", "url", rawURL, "status", resp.StatusCode)
		return r, nil
	}

	r.Kind = e.registry.Classify(resp.ContentType)
	extractor, ok := e.registry.For(r.Kind)
	if r.Kind == model.KindUnrecognized || !ok {
		r.Outcome = model.OutcomeUnhandled
		e.channels.ContentType.Warn("unhandled content type", "url", rawURL, "content_type", resp.ContentType)
		return r, nil
	}

	var links []string
	if markup, isMarkup := extractor.(extract.MarkupSaver); isMarkup && r.Kind == model.KindMarkup {
		links, err = e.saveMarkup(markup, r, resp)
	} else {
		err = extractor.Save(e.out, r.ID, resp.Body)
	}
	if err != nil {
		r.Outcome = model.OutcomeExtractFailed
		r.Error = err.Error()
		e.channels.Errors.Error("failed to save resource", "url", rawURL, "kind", r.Kind.String(), "error", err)
		return r, nil
	}

	r.Outcome = model.OutcomeSaved
	r.Links = len(links)
	return r, links
}

// saveMarkup saves a page and collects its links from the same parse.
func (e *Engine) saveMarkup(markup extract.MarkupSaver, r *model.Resource, resp *model.Response) ([]string, error) {
	doc, err := markup.Parse(resp.Body, resp.ContentType)
	if err != nil {
		return nil, err
	}
	if err := markup.SaveDocument(e.out, r.ID, resp.Body, doc); err != nil {
		return nil, err
	}
	return ExtractLinks(doc, r.URL, e.filter), nil
}

// record hands r to the recorder, logging failures.
func (e *Engine) record(ctx context.Context, runID string, r *model.Resource) {
	if e.recorder == nil {
		return
	}
	// Resources processed before a cancellation are still recorded.
	if err := e.recorder.RecordResource(context.WithoutCancel(ctx), runID, r); err != nil {
		e.channels.Errors.Error("failed to record resource", "url", r.URL, "error", err)
	}
}

// digest returns the hex SHA3-256 of data.
func digest(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
