// Package service contains the document pipeline and batch orchestration.
package service

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/docparse-go/internal/models"
)

// JobManager tracks in-flight and finished parse jobs in memory. Job state is
// not persisted across restarts. All methods are safe for concurrent use.
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*models.Job
	subscribers map[int]chan models.JobEvent
	nextSub     int
	logger      *slog.Logger
}

// NewJobManager creates an empty job registry.
func NewJobManager(logger *slog.Logger) *JobManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobManager{
		jobs:        make(map[string]*models.Job),
		subscribers: make(map[int]chan models.JobEvent),
		logger:      logger,
	}
}

// Create registers a new job in submitted state and returns a snapshot.
func (m *JobManager) Create(inputPath, outputTarget string) models.Job {
	job := &models.Job{
		ID:           uuid.New().String()[:8], // Short ID for convenience
		InputPath:    inputPath,
		OutputTarget: outputTarget,
		Status:       models.JobStatusSubmitted,
		StartedAt:    time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	m.logger.Info("job created", "job_id", job.ID, "input", inputPath)
	m.publish(*job)
	return *job
}

// SetRequestID records the remote request ID once submission succeeds.
func (m *JobManager) SetRequestID(id, requestID string) {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if ok {
		job.RequestID = requestID
	}
	var snapshot models.Job
	if ok {
		snapshot = *job
	}
	m.mu.Unlock()

	if ok {
		m.publish(snapshot)
	}
}

// Complete marks a job completed. A job already in a terminal state is left
// untouched: terminal states are exclusive.
func (m *JobManager) Complete(id string) {
	m.finish(id, models.JobStatusCompleted, "")
}

// Fail marks a job failed with a message. No-op on terminal jobs.
func (m *JobManager) Fail(id, message string) {
	m.finish(id, models.JobStatusFailed, message)
}

func (m *JobManager) finish(id string, status models.JobStatus, message string) {
	m.mu.Lock()
	job, ok := m.jobs[id]
	if !ok || job.Status.Terminal() {
		m.mu.Unlock()
		return
	}
	job.Status = status
	job.Error = message
	now := time.Now()
	job.CompletedAt = &now
	snapshot := *job
	m.mu.Unlock()

	if status == models.JobStatusFailed {
		m.logger.Error("job failed", "job_id", id, "error", message)
	} else {
		m.logger.Info("job completed", "job_id", id)
	}
	m.publish(snapshot)
}

// Get returns a snapshot of the job with the given ID.
func (m *JobManager) Get(id string) (models.Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return models.Job{}, false
	}
	return *job, true
}

// List returns snapshots of all jobs, most recent first.
func (m *JobManager) List() []models.Job {
	m.mu.RLock()
	jobs := make([]models.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, *job)
	}
	m.mu.RUnlock()

	slices.SortFunc(jobs, func(a, b models.Job) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return jobs
}

// Subscribe registers a watch channel receiving an event per job mutation.
// The returned cancel function must be called to release the subscription.
// Slow subscribers drop events rather than stalling pipelines.
func (m *JobManager) Subscribe() (<-chan models.JobEvent, func()) {
	ch := make(chan models.JobEvent, 64)

	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subscribers[id] = ch
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		if sub, ok := m.subscribers[id]; ok {
			delete(m.subscribers, id)
			close(sub)
		}
		m.mu.Unlock()
	}
	return ch, cancel
}

func (m *JobManager) publish(job models.Job) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- models.JobEvent{Job: job}:
		default:
		}
	}
}
