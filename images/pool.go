package images

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	// ErrPoolClosed is returned when submitting to a closed pool.
	ErrPoolClosed = errors.New("decode pool is closed")
	// ErrQueueFull is returned when the decode queue has no room left.
	ErrQueueFull = errors.New("decode queue is full")
)

// Source reads raw image bytes by package path.
type Source func(path string) ([]byte, error)

// Pool decodes images with a fixed number of workers and publishes results
// into entry slots. Painters never wait for it.
type Pool struct {
	log      *zap.Logger
	source   Source
	maxWidth int
	broken   []byte // SVG placeholder for undecodable images, may be nil

	queue  chan *Entry
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
	errs   error
}

// NewPool starts workers. When broken is not empty it is rasterized in place
// of images which cannot be read or decoded.
func NewPool(ctx context.Context, workers, queueSize, maxWidth int, source Source, broken []byte, log *zap.Logger) *Pool {
	if log == nil {
		log = zap.NewNop()
	}
	workers = max(workers, 1)
	if queueSize <= 0 {
		queueSize = workers * 16
	}
	p := &Pool{
		log:      log.Named("images"),
		source:   source,
		maxWidth: maxWidth,
		broken:   broken,
		queue:    make(chan *Entry, queueSize),
	}

	workerCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	for range workers {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case e, ok := <-p.queue:
					if !ok {
						return
					}
					p.process(e)
				}
			}
		}()
	}
	return p
}

// Submit queues entry for decoding. Entries which already have a result are
// ignored.
func (p *Pool) Submit(e *Entry) error {
	if _, done := e.Slot.Load(); done {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.queue <- e:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrQueueFull, e.Path)
	}
}

// SubmitAll queues every entry of the table in natural path order.
func (p *Pool) SubmitAll(t *Table) error {
	var errs error
	for _, k := range t.Keys() {
		e, _ := t.Lookup(k)
		errs = multierr.Append(errs, p.Submit(e))
	}
	return errs
}

// Close drains the queue, stops workers and returns accumulated decode
// failures.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.errs
}

// Abort stops workers without draining the queue.
func (p *Pool) Abort() {
	p.cancel()
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) process(e *Entry) {
	if _, done := e.Slot.Load(); done {
		return
	}
	img, err := p.decode(e)
	if err == nil {
		e.Slot.Store(Decoded{Image: img})
		return
	}

	err = fmt.Errorf("image %q: %w", e.Path, err)
	p.log.Debug("Unable to decode image", zap.Error(err))
	p.mu.Lock()
	p.errs = multierr.Append(p.errs, err)
	p.mu.Unlock()

	d := Decoded{Err: err}
	if len(p.broken) > 0 {
		if placeholder, perr := Decode(p.broken, KindSVG, max(e.Width, 1)); perr == nil {
			d.Image = placeholder
		}
	}
	e.Slot.Store(d)
}

func (p *Pool) decode(e *Entry) (image.Image, error) {
	data, err := p.source(e.Path)
	if err != nil {
		return nil, err
	}
	return Decode(data, e.Kind, p.maxWidth)
}
