package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/nao1215/sitespider/internal/model"
)

// progressObserver draws one progress bar per crawl generation.
// It implements crawler.Observer.
type progressObserver struct {
	mu  sync.Mutex
	out io.Writer
	bar *progressbar.ProgressBar
}

func newProgressObserver(out io.Writer) *progressObserver {
	return &progressObserver{out: out}
}

func (p *progressObserver) GenerationStarted(generation, pending int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.bar = progressbar.NewOptions(pending,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(fmt.Sprintf("generation %d", generation)),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

func (p *progressObserver) ResourceProcessed(_ *model.Resource) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		_ = p.bar.Add(1) //nolint:errcheck // drawing errors do not affect the crawl
	}
}

func (p *progressObserver) GenerationFinished(_, next int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		return
	}
	_ = p.bar.Finish() //nolint:errcheck // drawing errors do not affect the crawl
	p.bar = nil
	fmt.Fprintf(p.out, "\n%d new URL(s) queued\n", next)
}
