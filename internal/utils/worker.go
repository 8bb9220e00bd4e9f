package utils

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const (
	TASK_CHAN_SIZE = 100
)

var (
	ErrPoolClosed = errors.New("worker pool closed")
)

type WorkerFunction = func(t *tomb.Tomb, task any) error
type WorkerPool struct {
	n         int      // number of workers
	tasks     chan any // queued tasks
	closeOnce sync.Once
	closed    chan struct{}
}

func NewWorkerPool(size uint) *WorkerPool {
	return &WorkerPool{
		n:      max(1, int(size)),
		tasks:  make(chan any, TASK_CHAN_SIZE),
		closed: make(chan struct{}),
	}
}

// Size returns the number of workers Setup starts.
func (pool *WorkerPool) Size() int {
	return pool.n
}

// Setup starts the workers under t. A worker returning an error kills t,
// which stops every other worker once it finishes its current task.
//
// Workers are spawned from a goroutine already tracked by t, so t cannot
// die part way through the spawning even if it is killed meanwhile.
func (pool *WorkerPool) Setup(t *tomb.Tomb, work WorkerFunction) {
	t.Go(func() error {
		for id := 0; id < pool.n; id++ {
			t.Go(func() error {
				return pool.worker(t, id, work)
			})
		}
		return nil
	})
}

// AddTask queues a task, blocking while the queue is full. It gives up when
// ctx is done or the pool has been closed.
func (pool *WorkerPool) AddTask(ctx context.Context, task any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-pool.closed:
		return ErrPoolClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-pool.closed:
		return ErrPoolClosed
	case pool.tasks <- task:
		return nil
	}
}

// Close stops intake. Workers drain what is already queued and then exit.
// Close must not race with AddTask.
func (pool *WorkerPool) Close() {
	pool.closeOnce.Do(func() {
		close(pool.closed)
		close(pool.tasks)
	})
}

// Workers wait on tasks in the task pool and action them.
func (pool *WorkerPool) worker(t *tomb.Tomb, id int, work WorkerFunction) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case task, ok := <-pool.tasks:
			if !ok {
				return nil
			}
			if err := work(t, task); err != nil {
				log.Error().Err(err).Int("id", id).Msg("worker exiting")
				return err
			}
		}
	}
}
