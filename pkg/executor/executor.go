package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/facebookincubator/go-belt/tool/experimental/errmon"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/streamclient/pkg/metrics"
	"github.com/xaionaro-go/xcontext"
)

// Task is a unit of work executed on an Executor. The ctx passed to it
// is the executor's own context, not the submitter's.
type Task func(ctx context.Context)

// Executor is a single-threaded run context: all tasks submitted to it
// run one by one on the same goroutine, in FIFO submission order.
type Executor struct {
	Name string

	// queueLocker is a plain mutex: it is taken for every submitted task.
	queueLocker sync.Mutex
	queue       []Task
	isClosed    bool

	load     atomic.Int64
	wakeupCh chan struct{}
	doneCh   chan struct{}
}

func New(
	ctx context.Context,
	name string,
) *Executor {
	e := &Executor{
		Name:     name,
		wakeupCh: make(chan struct{}, 1),
		doneCh:   make(chan struct{}),
	}
	ctx = CtxWithExecutor(xcontext.DetachDone(ctx), e)
	observability.Go(ctx, func(ctx context.Context) {
		e.loop(ctx)
	})
	return e
}

func (e *Executor) String() string {
	return fmt.Sprintf("executor '%s'", e.Name)
}

// Async enqueues the task. Checking whether the executor is still open
// and enqueueing happen under the same lock, so a task accepted here is
// guaranteed to run, after everything accepted before it.
func (e *Executor) Async(
	ctx context.Context,
	task Task,
) error {
	e.queueLocker.Lock()
	if e.isClosed {
		e.queueLocker.Unlock()
		return ErrClosed{Name: e.Name}
	}
	e.queue = append(e.queue, task)
	e.load.Add(1)
	e.queueLocker.Unlock()

	select {
	case e.wakeupCh <- struct{}{}:
	default:
	}
	return nil
}

// Sync runs the task on the executor and waits for it to finish. If
// called from a task already running on this executor, the task is run
// inline.
func (e *Executor) Sync(
	ctx context.Context,
	task Task,
) error {
	if e.IsCurrent(ctx) {
		task(ctx)
		return nil
	}

	doneCh := make(chan struct{})
	err := e.Async(ctx, func(ctx context.Context) {
		defer close(doneCh)
		task(ctx)
	})
	if err != nil {
		return err
	}

	select {
	case <-doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Load is the amount of tasks queued or running.
func (e *Executor) Load() int64 {
	return e.load.Load()
}

func (e *Executor) IsClosed() bool {
	e.queueLocker.Lock()
	defer e.queueLocker.Unlock()
	return e.isClosed
}

func (e *Executor) Done() <-chan struct{} {
	return e.doneCh
}

// Close stops accepting new tasks; the tasks already queued are still
// executed. Close waits for the loop to finish unless it is called
// from the executor itself.
func (e *Executor) Close(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Close(ctx): %s", e)
	defer func() { logger.Debugf(ctx, "/Close(ctx): %s: %v", e, _err) }()

	e.queueLocker.Lock()
	e.isClosed = true
	e.queueLocker.Unlock()

	select {
	case e.wakeupCh <- struct{}{}:
	default:
	}

	if e.IsCurrent(ctx) {
		return nil
	}

	select {
	case <-e.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) loop(ctx context.Context) {
	logger.Debugf(ctx, "%s: started", e)
	defer logger.Debugf(ctx, "%s: finished", e)
	defer close(e.doneCh)

	for {
		e.queueLocker.Lock()
		tasks, isClosed := e.queue, e.isClosed
		e.queue = nil
		e.queueLocker.Unlock()

		for _, task := range tasks {
			e.run(ctx, task)
			e.load.Add(-1)
		}

		if len(tasks) > 0 {
			continue
		}
		if isClosed {
			return
		}
		<-e.wakeupCh
	}
}

func (e *Executor) run(
	ctx context.Context,
	task Task,
) {
	defer func() {
		r := recover()
		if r == nil {
			metrics.ExecutorTasks.WithLabelValues(metrics.TaskResultOK).Inc()
			return
		}
		metrics.ExecutorTasks.WithLabelValues(metrics.TaskResultPanic).Inc()
		logger.Errorf(ctx, "%s: task panicked: %v", e, r)
		errmon.ObserveRecoverCtx(ctx, r)
	}()
	task(ctx)
}
