package executor

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/xsync"
)

// Pool is a fixed set of executors players can be spread across.
type Pool struct {
	Locker    xsync.Mutex
	Executors []*Executor
	IsClosed  bool
}

// NewPool creates size executors; a non-positive size means one
// executor per CPU.
func NewPool(
	ctx context.Context,
	name string,
	size int,
) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	logger.Debugf(ctx, "NewPool(ctx, '%s', %d)", name, size)

	p := &Pool{
		Executors: make([]*Executor, 0, size),
	}
	for i := range size {
		p.Executors = append(p.Executors, New(ctx, fmt.Sprintf("%s-%d", name, i)))
	}
	return p
}

// Get returns the least loaded executor of the pool.
func (p *Pool) Get(ctx context.Context) (*Executor, error) {
	return xsync.DoR2(ctx, &p.Locker, func() (*Executor, error) {
		if p.IsClosed {
			return nil, ErrPoolClosed{}
		}

		var best *Executor
		for _, e := range p.Executors {
			if e.IsClosed() {
				continue
			}
			if best == nil || e.Load() < best.Load() {
				best = e
			}
		}
		if best == nil {
			return nil, ErrPoolClosed{}
		}
		return best, nil
	})
}

func (p *Pool) Close(ctx context.Context) error {
	logger.Debugf(ctx, "Pool.Close(ctx)")
	defer logger.Debugf(ctx, "/Pool.Close(ctx)")

	executors := xsync.DoR1(ctx, &p.Locker, func() []*Executor {
		p.IsClosed = true
		return p.Executors
	})

	var mErr *multierror.Error
	for _, e := range executors {
		if err := e.Close(ctx); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to close %s: %w", e, err))
		}
	}
	return mErr.ErrorOrNil()
}

var defaultPool = sync.OnceValue(func() *Pool {
	return NewPool(context.Background(), "default", 0)
})

// DefaultPool is the process-wide pool used when no executor is given
// explicitly. It is created on first use and never closed.
func DefaultPool() *Pool {
	return defaultPool()
}
