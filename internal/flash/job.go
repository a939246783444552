package flash

import (
	"context"
	"golang.org/x/sync/errgroup"
	"sync"
)

// Job is an attempt running on its own goroutine.
type Job struct {
	ID string

	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	progress Progress
	err      error
}

// Start runs an attempt in the background. The returned job finishes when the
// attempt reaches a terminal state or returns to Idle.
func (f *Flash) Start(ctx context.Context, req Request, sink ProgressFunc) (*Job, error) {
	if !f.acquire() {
		return nil, ErrBusy
	}
	req = f.prepare(req)

	jobCtx, cancel := context.WithCancel(ctx)
	job := &Job{
		ID:       req.ID,
		cancel:   cancel,
		done:     make(chan struct{}),
		progress: Progress{RequestID: req.ID, Device: req.Device, State: Idle},
	}
	f.mu.Lock()
	f.current = job
	f.mu.Unlock()

	updates := make(chan Progress, 16)
	var g errgroup.Group
	g.Go(func() error {
		defer close(updates)
		return f.run(jobCtx, req, func(p Progress) {
			updates <- p
		})
	})
	g.Go(func() error {
		for p := range updates {
			job.update(p)
			if sink != nil {
				sink(p)
			}
		}
		return nil
	})

	go func() {
		err := g.Wait()
		cancel()
		f.release()
		job.finish(err)
	}()
	return job, nil
}

// Current returns the most recently started job, or nil.
func (f *Flash) Current() *Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (j *Job) update(p Progress) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.progress = p
}

func (j *Job) finish(err error) {
	j.mu.Lock()
	j.err = err
	j.mu.Unlock()
	close(j.done)
}

// Cancel asks the writer to stop at the next block boundary.
func (j *Job) Cancel() {
	j.cancel()
}

func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes and returns its result.
func (j *Job) Wait() error {
	<-j.done
	return j.Err()
}

func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

func (j *Job) State() State {
	return j.Progress().State
}

func (j *Job) Progress() Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}
