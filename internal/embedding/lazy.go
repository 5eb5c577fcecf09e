package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Lazy defers construction of an expensive embedder until first use and keeps
// the single instance for the process lifetime. A failed construction is
// remembered: every later call returns the same ErrUnavailable error.
type Lazy struct {
	factory    func() (Embedder, error)
	dimensions int

	mu   sync.Mutex
	done atomic.Bool
	emb  Embedder
	err  error
}

// NewLazy returns a lazy embedder. dimensions is reported until the model is
// loaded; afterwards the model's own dimension is used.
func NewLazy(dimensions int, factory func() (Embedder, error)) *Lazy {
	return &Lazy{factory: factory, dimensions: dimensions}
}

func (l *Lazy) get() (Embedder, error) {
	if l.done.Load() {
		return l.emb, l.err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.done.Load() {
		emb, err := l.factory()
		if err != nil {
			l.err = fmt.Errorf("%w: %v", ErrUnavailable, err)
		} else {
			l.emb = emb
		}
		l.done.Store(true)
	}
	return l.emb, l.err
}

// Ready triggers initialization and reports its outcome.
func (l *Lazy) Ready() error {
	_, err := l.get()
	return err
}

// Loaded reports whether initialization has already run successfully.
func (l *Lazy) Loaded() bool {
	return l.done.Load() && l.emb != nil
}

func (l *Lazy) Embed(ctx context.Context, text string) ([]float32, error) {
	emb, err := l.get()
	if err != nil {
		return nil, err
	}
	return emb.Embed(ctx, text)
}

func (l *Lazy) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	emb, err := l.get()
	if err != nil {
		return nil, err
	}
	return emb.EmbedBatch(ctx, texts)
}

func (l *Lazy) Dimensions() int {
	if l.Loaded() {
		return l.emb.Dimensions()
	}
	return l.dimensions
}

var errClosed = errors.New("closed before first use")

// Close closes the underlying embedder if it was created. A Lazy closed before
// first use stays unavailable.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.done.Load() {
		l.err = fmt.Errorf("%w: %v", ErrUnavailable, errClosed)
		l.done.Store(true)
		return nil
	}
	if l.emb == nil {
		return nil
	}
	return l.emb.Close()
}
