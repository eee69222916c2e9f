package coverage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"backend-coastpath/internal/stream"

	"github.com/paulmach/orb"
)

// ErrWorkerStopped is returned by Submit after Stop.
var ErrWorkerStopped = errors.New("coverage worker stopped")

// Request asks the worker to analyze one activity. A nil Trace recomputes
// the derived state from Prior without matching anything new.
type Request struct {
	ActivityID string
	Trace      []orb.Point
	Prior      []orb.Point
}

type progressEvent struct {
	ActivityID string `json:"activity_id"`
	Percent    int    `json:"percent"`
}

type reply struct {
	result Result
	err    error
}

type workItem struct {
	req Request
	// buffered so the loop never blocks on a caller that gave up
	replyCh chan reply
}

// Worker runs the engine off the request path. One goroutine drains a
// request channel in strict arrival order; progress events for the request
// being processed fan out through the hub, and each request gets exactly one
// terminal reply, either a result or an error.
type Worker struct {
	engine   *Engine
	hub      *stream.Hub
	requests chan workItem
	quit     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewWorker(engine *Engine, hub *stream.Hub) *Worker {
	return &Worker{
		engine:   engine,
		hub:      hub,
		requests: make(chan workItem),
		quit:     make(chan struct{}),
	}
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop prevents further submissions and waits for the in-flight request, if
// any, to finish. There is no way to abort work already started.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.quit)
	})
	w.wg.Wait()
}

// Submit enqueues a request and blocks until its terminal reply. When ctx
// expires after the request was accepted, the work still runs to completion
// and its result is discarded.
func (w *Worker) Submit(ctx context.Context, req Request) (Result, error) {
	item := workItem{req: req, replyCh: make(chan reply, 1)}

	select {
	case w.requests <- item:
	case <-w.quit:
		return Result{}, ErrWorkerStopped
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	select {
	case r := <-item.replyCh:
		return r.result, r.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case item := <-w.requests:
			result, err := w.engine.Analyze(item.req.Trace, item.req.Prior, func(percent int) {
				w.publishProgress(item.req.ActivityID, percent)
			})
			item.replyCh <- reply{result: result, err: err}
		case <-w.quit:
			return
		}
	}
}

func (w *Worker) publishProgress(activityID string, percent int) {
	if w.hub == nil {
		return
	}
	payload, _ := json.Marshal(progressEvent{ActivityID: activityID, Percent: percent})
	w.hub.Broadcast(activityID, payload)
}
