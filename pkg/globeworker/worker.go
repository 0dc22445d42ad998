package globeworker

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
)

var (
	ErrQueueFull  = errors.New("worker queue full")
	ErrTerminated = errors.New("worker terminated")
)

const DefaultQueueSize = 8

// Worker runs data preparation jobs on its own goroutine. Requests and responses
// cross over bounded channels; the worker shares nothing else with its caller.
type Worker struct {
	rng       *rand.Rand
	requests  chan Request
	responses chan Response
	done      chan struct{}
	stopOnce  sync.Once
	startOnce sync.Once
	wg        sync.WaitGroup
}

// NewWorker returns a worker that samples ring indices from rng. rng is only ever used
// from the worker goroutine.
func NewWorker(rng *rand.Rand, queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Worker{
		rng:       rng,
		requests:  make(chan Request, queueSize),
		responses: make(chan Response, queueSize),
		done:      make(chan struct{}),
	}
}

// Start launches the job loop. It stops when ctx is cancelled or Terminate is called.
func (w *Worker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.wg.Add(1)
		go w.loop(ctx)
	})
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			w.Terminate()
			return
		case <-w.done:
			return
		case req := <-w.requests:
			select {
			case <-w.done:
				return
			default:
			}
			resp := Handle(w.rng, req)
			if resp.Err != nil {
				log.Printf("[WORKER] %s job failed: %v", req.Kind, resp.Err)
			}
			select {
			case w.responses <- resp:
			case <-w.done:
				return
			case <-ctx.Done():
				w.Terminate()
				return
			}
		}
	}
}

// Post queues a job without blocking.
func (w *Worker) Post(req Request) error {
	select {
	case <-w.done:
		return ErrTerminated
	default:
	}
	select {
	case w.requests <- req:
		return nil
	default:
		return ErrQueueFull
	}
}

// Responses delivers one Response per accepted Request, in request order. The
// channel is never closed.
func (w *Worker) Responses() <-chan Response { return w.responses }

// Terminate stops the loop. Queued jobs are abandoned. Safe to call more than once.
func (w *Worker) Terminate() {
	w.stopOnce.Do(func() { close(w.done) })
}

// Wait blocks until the job loop has exited.
func (w *Worker) Wait() { w.wg.Wait() }

// Handle runs one job synchronously.
func Handle(rng *rand.Rand, req Request) Response {
	switch req.Kind {
	case JobProcessData:
		return Response{Kind: ResultPoints, Points: ResolvePoints(req.Arcs)}
	case JobNumbersOfRings:
		rings, err := SampleRingIndices(rng, req.Rings)
		return Response{Kind: ResultRings, Rings: rings, Err: err}
	}
	return Response{Kind: ResultRings, Err: ErrUnknownMessage}
}
