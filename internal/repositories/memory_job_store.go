package repositories

import (
	"context"
	"sync"
	"time"

	"brainlattice/internal/models"
)

// MemoryJobStore implements JobStore in process memory. It is the fallback
// when no redis credentials are configured; records survive across requests
// within one process and expire after the same 24h window.
type MemoryJobStore struct {
	mu      sync.RWMutex
	jobs    map[string]*models.Job
	caches  map[string][]models.GraphFragment
	expires map[string]time.Time
	now     func() time.Time
}

// NewMemoryJobStore creates a new in-process job store
func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{
		jobs:    make(map[string]*models.Job),
		caches:  make(map[string][]models.GraphFragment),
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

// CreateJob initializes a new job
func (s *MemoryJobStore) CreateJob(ctx context.Context, jobID string, jobType models.JobType, metadata map[string]interface{}) (*models.Job, error) {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	now := s.now()
	job := &models.Job{
		ID:        jobID,
		Type:      jobType,
		Status:    models.JobStatusPending,
		Progress:  0,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[jobID] = job
	s.expires[jobID] = now.Add(JobTTLSeconds * time.Second)

	return copyJob(job), nil
}

// GetJob retrieves a job by ID
func (s *MemoryJobStore) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok || s.expired(jobID) {
		return nil, JobNotFoundError(jobID)
	}
	return copyJob(job), nil
}

// UpdateProgress sets status and progress; progress never decreases and
// details reach the result only on a terminal status.
func (s *MemoryJobStore) UpdateProgress(ctx context.Context, jobID string, status models.JobStatus, progress int, details map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || s.expired(jobID) {
		return JobNotFoundError(jobID)
	}

	job.Status = status
	job.UpdatedAt = s.now()
	if progress >= 0 && progress > job.Progress {
		job.Progress = progress
	}
	if details != nil && status.IsTerminal() {
		if job.Result == nil {
			job.Result = map[string]interface{}{}
		}
		for k, v := range details {
			job.Result[k] = v
		}
	}
	return nil
}

// UpdateMetadata merges patch into the job's metadata map
func (s *MemoryJobStore) UpdateMetadata(ctx context.Context, jobID string, patch map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || s.expired(jobID) {
		return JobNotFoundError(jobID)
	}

	if job.Metadata == nil {
		job.Metadata = map[string]interface{}{}
	}
	for k, v := range patch {
		job.Metadata[k] = v
	}
	job.UpdatedAt = s.now()
	return nil
}

// ResetJob returns a job to pending at progress 0 for a retry
func (s *MemoryJobStore) ResetJob(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || s.expired(jobID) {
		return JobNotFoundError(jobID)
	}
	job.Status = models.JobStatusPending
	job.Progress = 0
	job.UpdatedAt = s.now()
	return nil
}

// SetExtractionCache stores the extraction checkpoint
func (s *MemoryJobStore) SetExtractionCache(ctx context.Context, jobID string, fragments []models.GraphFragment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caches[jobID] = fragments
	return nil
}

// GetExtractionCache returns the cached fragments, or nil if none exist
func (s *MemoryJobStore) GetExtractionCache(ctx context.Context, jobID string) ([]models.GraphFragment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fragments, ok := s.caches[jobID]
	if !ok {
		return nil, nil
	}
	return fragments, nil
}

// Ping always succeeds for the in-process store
func (s *MemoryJobStore) Ping(ctx context.Context) error {
	return nil
}

// Close releases all stored jobs
func (s *MemoryJobStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = make(map[string]*models.Job)
	s.caches = make(map[string][]models.GraphFragment)
	s.expires = make(map[string]time.Time)
	return nil
}

// expired must be called with the lock held
func (s *MemoryJobStore) expired(jobID string) bool {
	exp, ok := s.expires[jobID]
	return ok && s.now().After(exp)
}

func copyJob(job *models.Job) *models.Job {
	out := *job
	if job.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(job.Metadata))
		for k, v := range job.Metadata {
			out.Metadata[k] = v
		}
	}
	if job.Result != nil {
		out.Result = make(map[string]interface{}, len(job.Result))
		for k, v := range job.Result {
			out.Result[k] = v
		}
	}
	return &out
}
