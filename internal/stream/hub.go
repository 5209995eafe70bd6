// Package stream shares server-streaming RPCs between subscribers.
//
// A Hub keeps at most one upstream stream per key. The first subscriber opens
// it; later subscribers with the same key attach to the running stream. Each
// upstream message is converted once and delivered to every receiver. A slow
// receiver loses its oldest buffered message rather than stalling the others.
//
// Streams are not reopened. When the upstream ends, every receiver channel is
// closed and the key is forgotten, so the next Subscribe opens a fresh stream.
package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
)

// Source is the receiving half of a server stream.
type Source[W any] interface {
	Recv() (W, error)
}

// Opener starts an upstream stream. The context is cancelled when the last
// receiver of the stream closes or the hub shuts down.
type Opener[W any] func(ctx context.Context) (Source[W], error)

// Config tunes a Hub.
type Config struct {
	// Buffer is the channel capacity of each receiver.
	Buffer int

	// OnStreamsChanged, if set, is called with the number of open upstream
	// streams whenever it changes.
	OnStreamsChanged func(active int)
}

// Hub multiplexes upstream streams of W, delivered to receivers as T.
type Hub[W, T any] struct {
	convert func(W) T
	cfg     Config
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	streams map[string]*broadcast[W, T]
	wg      sync.WaitGroup
}

// NewHub creates a hub that converts each upstream message with convert.
func NewHub[W, T any](convert func(W) T, cfg Config, logger *slog.Logger) *Hub[W, T] {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 50
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub[W, T]{
		convert: convert,
		cfg:     cfg,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		streams: make(map[string]*broadcast[W, T]),
	}
}

// ErrHubClosed is returned by Subscribe after Close.
var ErrHubClosed = errors.New("stream hub closed")

// Subscribe returns a new receiver for the stream identified by key, opening
// the upstream with open if no stream for key is running. The ctx only bounds
// opening the stream; the stream itself lives until its last receiver closes.
//
// open runs without the hub lock held. If two subscribers race to open the
// same key, the first to register wins and the other upstream is cancelled.
func (h *Hub[W, T]) Subscribe(ctx context.Context, key string, open Opener[W]) (*Receiver[T], error) {
	if r, err := h.attach(key); r != nil || err != nil {
		return r, err
	}

	streamCtx, cancel := context.WithCancel(h.ctx)
	stop := context.AfterFunc(ctx, cancel)
	src, err := open(streamCtx)
	stopped := stop()
	if err != nil || !stopped {
		cancel()
		if err == nil {
			err = ctx.Err()
		}
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx.Err() != nil {
		cancel()
		return nil, ErrHubClosed
	}
	if b, ok := h.streams[key]; ok {
		if r := b.attach(h.cfg.Buffer); r != nil {
			cancel()
			h.logger.Debug("stream opened concurrently, using existing", "key", key)
			return r, nil
		}
	}

	b := &broadcast[W, T]{
		hub:       h,
		key:       key,
		cancel:    cancel,
		receivers: make(map[*Receiver[T]]struct{}),
	}
	r := b.attach(h.cfg.Buffer)
	h.streams[key] = b
	h.notify()

	h.wg.Add(1)
	go b.run(src)

	h.logger.Info("stream opened", "key", key)
	return r, nil
}

// attach joins a running stream for key. It returns nil, nil when none runs.
func (h *Hub[W, T]) attach(key string) (*Receiver[T], error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctx.Err() != nil {
		return nil, ErrHubClosed
	}
	if b, ok := h.streams[key]; ok {
		return b.attach(h.cfg.Buffer), nil
	}
	return nil, nil
}

// Active returns the number of open upstream streams.
func (h *Hub[W, T]) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.streams)
}

// Close cancels every upstream stream and waits for them to finish.
func (h *Hub[W, T]) Close() {
	h.mu.Lock()
	h.cancel()
	h.mu.Unlock()
	h.wg.Wait()
}

// forget drops b from the hub if it is still the stream registered for its key.
func (h *Hub[W, T]) forget(b *broadcast[W, T]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.streams[b.key] == b {
		delete(h.streams, b.key)
		h.notify()
	}
}

// notify must be called with h.mu held.
func (h *Hub[W, T]) notify() {
	if h.cfg.OnStreamsChanged != nil {
		h.cfg.OnStreamsChanged(len(h.streams))
	}
}

type broadcast[W, T any] struct {
	hub    *Hub[W, T]
	key    string
	cancel context.CancelFunc

	mu        sync.Mutex
	done      bool
	receivers map[*Receiver[T]]struct{}
}

// attach adds a receiver, or returns nil if the stream already ended.
func (b *broadcast[W, T]) attach(buffer int) *Receiver[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return nil
	}
	r := &Receiver[T]{ch: make(chan T, buffer), b: b}
	b.receivers[r] = struct{}{}
	return r
}

func (b *broadcast[W, T]) run(src Source[W]) {
	defer b.hub.wg.Done()
	defer b.cancel()

	for {
		msg, err := src.Recv()
		if err != nil {
			b.finish(err)
			return
		}
		b.publish(b.hub.convert(msg))
	}
}

func (b *broadcast[W, T]) publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for r := range b.receivers {
		select {
		case r.ch <- v:
			continue
		default:
		}
		// Full: drop the oldest message to make room.
		select {
		case <-r.ch:
			r.dropped++
		default:
		}
		select {
		case r.ch <- v:
		default:
		}
		b.hub.logger.Warn("receiver buffer full, dropped oldest message",
			"key", b.key,
			"dropped_total", r.dropped,
		)
	}
}

func (b *broadcast[W, T]) finish(err error) {
	b.hub.forget(b)

	b.mu.Lock()
	detached := b.done
	b.done = true
	for r := range b.receivers {
		close(r.ch)
		delete(b.receivers, r)
	}
	b.mu.Unlock()

	switch {
	case detached:
		b.hub.logger.Debug("stream closed, no receivers left", "key", b.key)
	case errors.Is(err, io.EOF):
		b.hub.logger.Info("stream ended", "key", b.key)
	case errors.Is(err, context.Canceled) || b.hub.ctx.Err() != nil:
		b.hub.logger.Info("stream cancelled", "key", b.key)
	default:
		b.hub.logger.Error("stream failed", "key", b.key, "error", err)
	}
}

// detach removes r and stops the upstream once no receivers remain.
func (b *broadcast[W, T]) detach(r *Receiver[T]) {
	b.mu.Lock()
	if _, ok := b.receivers[r]; !ok {
		b.mu.Unlock()
		return
	}
	delete(b.receivers, r)
	close(r.ch)
	last := len(b.receivers) == 0 && !b.done
	if last {
		b.done = true
	}
	b.mu.Unlock()

	if last {
		b.hub.forget(b)
		b.cancel()
	}
}

// Receiver delivers converted messages of one upstream stream.
type Receiver[T any] struct {
	ch      chan T
	b       closer[T]
	dropped int
}

type closer[T any] interface {
	detach(r *Receiver[T])
}

// C returns the delivery channel. It is closed when the upstream ends or the
// receiver is closed.
func (r *Receiver[T]) C() <-chan T {
	return r.ch
}

// Close detaches the receiver. It is safe to call more than once.
func (r *Receiver[T]) Close() {
	r.b.detach(r)
}
