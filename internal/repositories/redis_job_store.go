package repositories

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"brainlattice/internal/models"
)

const (
	jobKeyPrefix   = "jobs:"
	jobCacheSuffix = ":cache"
)

// RedisJobStore implements JobStore on a hash-per-job wire model:
// jobs:{id} holds the job fields, jobs:{id}:cache holds the serialized
// extraction checkpoint. Both expire after JobTTLSeconds.
type RedisJobStore struct {
	client *redis.Client
}

// NewRedisJobStore creates a new Redis-based job store
func NewRedisJobStore(client *redis.Client) *RedisJobStore {
	return &RedisJobStore{
		client: client,
	}
}

// CreateJob initializes a new job hash with TTL
func (s *RedisJobStore) CreateJob(ctx context.Context, jobID string, jobType models.JobType, metadata map[string]interface{}) (*models.Job, error) {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, NewJobStoreError("create_job", jobID, err, "failed to marshal metadata")
	}

	now := time.Now()
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

	key := jobKeyPrefix + jobID
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		"id", jobID,
		"type", string(jobType),
		"status", string(models.JobStatusPending),
		"progress", 0,
		"created_at", now.Unix(),
		"updated_at", now.Unix(),
		"metadata", string(metaJSON),
	)
	pipe.Expire(ctx, key, JobTTLSeconds*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, NewJobStoreError("create_job", jobID, err, "")
	}

	return job, nil
}

// GetJob retrieves a job by ID
func (s *RedisJobStore) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	key := jobKeyPrefix + jobID
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, NewJobStoreError("get_job", jobID, err, "")
	}
	if len(fields) == 0 {
		return nil, JobNotFoundError(jobID)
	}
	return jobFromHash(fields), nil
}

// UpdateProgress sets status and progress; details are merged into the
// result field only when the status is terminal. Progress never decreases.
func (s *RedisJobStore) UpdateProgress(ctx context.Context, jobID string, status models.JobStatus, progress int, details map[string]interface{}) error {
	key := jobKeyPrefix + jobID

	current, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	values := []interface{}{
		"status", string(status),
		"updated_at", time.Now().Unix(),
	}

	if progress >= 0 {
		if progress < current.Progress {
			progress = current.Progress
		}
		values = append(values, "progress", progress)
	}

	if details != nil && status.IsTerminal() {
		result := current.Result
		if result == nil {
			result = map[string]interface{}{}
		}
		for k, v := range details {
			result[k] = v
		}
		resultJSON, err := json.Marshal(result)
		if err != nil {
			return NewJobStoreError("update_progress", jobID, err, "failed to marshal result")
		}
		values = append(values, "result", string(resultJSON))
	}

	if err := s.client.HSet(ctx, key, values...).Err(); err != nil {
		return NewJobStoreError("update_progress", jobID, err, "")
	}
	return nil
}

// UpdateMetadata merges patch into the stored metadata map
func (s *RedisJobStore) UpdateMetadata(ctx context.Context, jobID string, patch map[string]interface{}) error {
	key := jobKeyPrefix + jobID

	current, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	metadata := current.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	for k, v := range patch {
		metadata[k] = v
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return NewJobStoreError("update_metadata", jobID, err, "failed to marshal metadata")
	}

	if err := s.client.HSet(ctx, key, "metadata", string(metaJSON), "updated_at", time.Now().Unix()).Err(); err != nil {
		return NewJobStoreError("update_metadata", jobID, err, "")
	}
	return nil
}

// ResetJob returns a job to pending at progress 0 for a retry
func (s *RedisJobStore) ResetJob(ctx context.Context, jobID string) error {
	if _, err := s.GetJob(ctx, jobID); err != nil {
		return err
	}
	key := jobKeyPrefix + jobID
	err := s.client.HSet(ctx, key,
		"status", string(models.JobStatusPending),
		"progress", 0,
		"updated_at", time.Now().Unix(),
	).Err()
	if err != nil {
		return NewJobStoreError("reset_job", jobID, err, "")
	}
	return nil
}

// SetExtractionCache stores the serialized extraction checkpoint
func (s *RedisJobStore) SetExtractionCache(ctx context.Context, jobID string, fragments []models.GraphFragment) error {
	data, err := json.Marshal(fragments)
	if err != nil {
		return NewJobStoreError("set_extraction_cache", jobID, err, "failed to marshal fragments")
	}
	key := jobKeyPrefix + jobID + jobCacheSuffix
	if err := s.client.Set(ctx, key, data, JobTTLSeconds*time.Second).Err(); err != nil {
		return NewJobStoreError("set_extraction_cache", jobID, err, "")
	}
	return nil
}

// GetExtractionCache returns the cached fragments, or nil if none exist
func (s *RedisJobStore) GetExtractionCache(ctx context.Context, jobID string) ([]models.GraphFragment, error) {
	key := jobKeyPrefix + jobID + jobCacheSuffix
	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, NewJobStoreError("get_extraction_cache", jobID, err, "")
	}

	var fragments []models.GraphFragment
	if err := json.Unmarshal([]byte(data), &fragments); err != nil {
		return nil, NewJobStoreError("get_extraction_cache", jobID, err, "failed to unmarshal fragments")
	}
	return fragments, nil
}

// Ping checks if Redis connection is alive
func (s *RedisJobStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisJobStore) Close() error {
	return s.client.Close()
}

// jobFromHash reconstructs a job from its redis hash fields
func jobFromHash(fields map[string]string) *models.Job {
	job := &models.Job{
		ID:     fields["id"],
		Type:   models.JobType(fields["type"]),
		Status: models.JobStatus(fields["status"]),
	}

	if v, err := strconv.Atoi(fields["progress"]); err == nil {
		job.Progress = v
	}
	if v, err := strconv.ParseInt(fields["created_at"], 10, 64); err == nil {
		job.CreatedAt = time.Unix(v, 0)
	}
	if v, err := strconv.ParseInt(fields["updated_at"], 10, 64); err == nil {
		job.UpdatedAt = time.Unix(v, 0)
	}
	if raw, ok := fields["metadata"]; ok && raw != "" {
		var meta map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &meta); err == nil {
			job.Metadata = meta
		}
	}
	if raw, ok := fields["result"]; ok && raw != "" {
		var result map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &result); err == nil {
			job.Result = result
		}
	}

	return job
}
