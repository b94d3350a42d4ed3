package endpoint

import (
	"context"
	"sync"
)

// Scheduler is a thin wrapper over goroutine spawning that tracks the
// set of currently-live jobs it started, grounded on the Python
// source's Scheduler (a asyncio.AbstractEventLoop plus a set of
// running Tasks). Go has no event loop to hold, so a Scheduler here
// is just the task-set bookkeeping: StartJob launches fn in its own
// goroutine, tracks a Job for it, and untracks it when fn returns.
type Scheduler struct {
	mu   sync.Mutex
	jobs map[*Job]struct{}
}

// Job is a single unit of work started by a Scheduler, the Go
// equivalent of the asyncio.Task that start_job returns.
type Job struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewScheduler creates an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{jobs: make(map[*Job]struct{})}
}

// StartJob schedules fn to run in its own goroutine, the Go
// equivalent of start_job(coro, name=...). fn receives a context
// derived from ctx that Job.Cancel cancels; the job is removed from
// the scheduler's tracked set as soon as fn returns, mirroring the
// Python source's task.add_done_callback(self.tasks.discard).
func (s *Scheduler) StartJob(ctx context.Context, name string, fn func(context.Context) error) *Job {
	jobCtx, cancel := context.WithCancel(ctx)
	j := &Job{
		name:   name,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.jobs[j] = struct{}{}
	s.mu.Unlock()

	go func() {
		defer close(j.done)
		defer func() {
			s.mu.Lock()
			delete(s.jobs, j)
			s.mu.Unlock()
		}()
		j.err = fn(jobCtx)
	}()

	return j
}

// Jobs returns the set of currently-live jobs.
func (s *Scheduler) Jobs() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]*Job, 0, len(s.jobs))
	for j := range s.jobs {
		jobs = append(jobs, j)
	}
	return jobs
}

// Wait blocks until every job currently tracked by the scheduler has
// finished.
func (s *Scheduler) Wait() {
	for _, j := range s.Jobs() {
		<-j.done
	}
}

// Name returns the job's name, as passed to StartJob.
func (j *Job) Name() string { return j.name }

// Cancel cancels the job's context. It does not wait for the job to
// observe cancellation; use Done for that.
func (j *Job) Cancel() { j.cancel() }

// Done returns a channel that's closed once the job's function has
// returned.
func (j *Job) Done() <-chan struct{} { return j.done }

// Err returns the error fn returned, valid only after Done is closed.
func (j *Job) Err() error { return j.err }
