package pipeline

import (
	"context"
	"sync"
	"time"
)

// Job adapts the pipeline service to the scheduler. Overlapping triggers
// are skipped rather than queued: a run that outlasts its schedule interval
// must not stack a second full load behind it.
type Job struct {
	service *Service
	timeout time.Duration
	mu      sync.Mutex
}

// NewJob creates a scheduled pipeline job
func NewJob(service *Service, timeout time.Duration) *Job {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Job{
		service: service,
		timeout: timeout,
	}
}

// Name returns the job name
func (j *Job) Name() string {
	return "pipeline"
}

// Run executes one pipeline run
func (j *Job) Run() error {
	if !j.mu.TryLock() {
		j.service.log.Warn().Msg("Previous pipeline run still in progress, skipping")
		return nil
	}
	defer j.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	_, err := j.service.Run(ctx)
	return err
}
