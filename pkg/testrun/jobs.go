package testrun

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sriram-PR/source-wizard/pkg/models"
	"github.com/Sriram-PR/source-wizard/pkg/wizard"
)

// JobStatus represents the current state of a test job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether the job has stopped.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job is one simulated discovery or extraction test
type Job struct {
	ID          string             `json:"id"`
	Phase       wizard.Phase       `json:"phase"`
	Technique   models.Technique   `json:"technique"`
	Status      JobStatus          `json:"status"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt time.Time          `json:"completed_at,omitempty"`
	Error       string             `json:"error_message,omitempty"`
	RetryOf     string             `json:"retry_of,omitempty"`
	Result      *models.TestResult `json:"result,omitempty"`

	// Internal fields
	cfg    models.SourceConfig
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// snapshot copies the exported fields so callers never share state with the runner.
func (j *Job) snapshot() Job {
	out := Job{
		ID:          j.ID,
		Phase:       j.Phase,
		Technique:   j.Technique,
		Status:      j.Status,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		Error:       j.Error,
		RetryOf:     j.RetryOf,
	}
	if j.Result != nil {
		r := *j.Result
		out.Result = &r
	}
	return out
}

// JobManager tracks test jobs. At most one job per phase is active; starting
// another supersedes (cancels) it.
type JobManager struct {
	jobs    map[string]*Job
	mu      sync.RWMutex
	byPhase map[wizard.Phase]string // phase -> jobID for active jobs
}

// NewJobManager creates a new job manager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:    make(map[string]*Job),
		byPhase: make(map[wizard.Phase]string),
	}
}

// CreateJob registers a pending job for phase, cancelling any job still active for it.
// The returned superseded ID is empty when nothing was cancelled.
func (m *JobManager) CreateJob(cfg models.SourceConfig, phase wizard.Phase, technique models.Technique, retryOf string) (job *Job, superseded string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existingID, exists := m.byPhase[phase]; exists {
		if existing := m.jobs[existingID]; existing != nil && !existing.Status.IsTerminal() {
			m.cancelLocked(existing)
			superseded = existingID
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	job = &Job{
		ID:        uuid.New().String(),
		Phase:     phase,
		Technique: technique,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
		RetryOf:   retryOf,
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	m.jobs[job.ID] = job
	m.byPhase[phase] = job.ID
	return job, superseded
}

// GetJob returns a snapshot of a job
func (m *JobManager) GetJob(jobID string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return job.snapshot(), true
}

// Active returns the job currently running for phase, if any
func (m *JobManager) Active(phase wizard.Phase) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if jobID, exists := m.byPhase[phase]; exists {
		if job := m.jobs[jobID]; job != nil && !job.Status.IsTerminal() {
			return job.snapshot(), true
		}
	}
	return Job{}, false
}

// markRunning moves a pending job to running. It fails once the job was cancelled.
func (m *JobManager) markRunning(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok || job.Status != JobStatusPending {
		return false
	}
	job.Status = JobStatusRunning
	return true
}

// finish records the outcome of a running job. A cancelled job keeps its
// status and never receives a result.
func (m *JobManager) finish(jobID string, result *models.TestResult, err error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok || job.Status.IsTerminal() {
		return false
	}
	job.CompletedAt = time.Now()
	if err != nil {
		job.Status = JobStatusFailed
		job.Error = err.Error()
	} else {
		job.Status = JobStatusCompleted
	}
	job.Result = result
	m.releaseLocked(job)
	return true
}

// CancelJob cancels a pending or running job
func (m *JobManager) CancelJob(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, exists := m.jobs[jobID]; exists && !job.Status.IsTerminal() {
		m.cancelLocked(job)
		return true
	}
	return false
}

// CancelAll cancels all active jobs
func (m *JobManager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, job := range m.jobs {
		if !job.Status.IsTerminal() {
			m.cancelLocked(job)
		}
	}
}

func (m *JobManager) cancelLocked(job *Job) {
	job.cancel()
	job.Status = JobStatusCancelled
	job.CompletedAt = time.Now()
	m.releaseLocked(job)
}

// releaseLocked frees the phase slot and wakes waiters.
func (m *JobManager) releaseLocked(job *Job) {
	if m.byPhase[job.Phase] == job.ID {
		delete(m.byPhase, job.Phase)
	}
	select {
	case <-job.done:
	default:
		close(job.done)
	}
}

// ListJobs returns snapshots of all jobs, oldest first
func (m *JobManager) ListJobs() []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job.snapshot())
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].StartedAt.Before(jobs[j].StartedAt) })
	return jobs
}

// Sweep drops finished jobs completed before cutoff and returns how many went.
func (m *JobManager) Sweep(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, job := range m.jobs {
		if job.Status.IsTerminal() && job.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}

// internal returns the live job for the runner.
func (m *JobManager) internal(jobID string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[jobID]
	return job, ok
}
