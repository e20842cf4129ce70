package pipeline

import (
	"context"
	"sync"

	"github.com/nao1215/sitespider/internal/crawler"
	"github.com/nao1215/sitespider/internal/model"
)

// Collector keeps every resource the engine records so the report can list
// them, and forwards each one to an optional next Recorder.
type Collector struct {
	mu        sync.Mutex
	resources []*model.Resource
	next      crawler.Recorder
}

// NewCollector creates a Collector. next may be nil.
func NewCollector(next crawler.Recorder) *Collector {
	return &Collector{next: next}
}

// RecordResource implements crawler.Recorder.
func (c *Collector) RecordResource(ctx context.Context, runID string, r *model.Resource) error {
	c.mu.Lock()
	c.resources = append(c.resources, r)
	c.mu.Unlock()

	if c.next == nil {
		return nil
	}
	return c.next.RecordResource(ctx, runID, r)
}

// Resources returns the recorded resources in recording order.
func (c *Collector) Resources() []*model.Resource {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*model.Resource, len(c.resources))
	copy(out, c.resources)
	return out
}
