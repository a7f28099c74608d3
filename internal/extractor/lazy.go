package extractor

import (
	"context"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/facematch"
)

// Lazy builds an Extractor on first use and shares it afterwards.
// A failed build is not cached, so the next call retries.
type Lazy struct {
	mu    sync.Mutex
	model string
	build func(ctx context.Context) (*Extractor, error)
	ext   *Extractor
}

// NewLazy wraps a constructor. model is reported before the extractor is built.
func NewLazy(model string, build func(ctx context.Context) (*Extractor, error)) *Lazy {
	return &Lazy{model: model, build: build}
}

// Get returns the shared extractor, building it if needed.
func (l *Lazy) Get(ctx context.Context) (*Extractor, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ext != nil {
		return l.ext, nil
	}
	ext, err := l.build(ctx)
	if err != nil {
		return nil, err
	}
	l.ext = ext
	return ext, nil
}

// Model returns the embedding model name.
func (l *Lazy) Model() string {
	return l.model
}

// Extract builds the extractor if needed and extracts an embedding.
func (l *Lazy) Extract(ctx context.Context, image []byte) (facematch.Embedding, error) {
	ext, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}
	return ext.Extract(ctx, image)
}
