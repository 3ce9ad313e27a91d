package workers

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"brainlattice/internal/queue"
)

// Worker defines the interface for task-processing workers
type Worker interface {
	// Start begins accepting tasks
	Start(ctx context.Context) error

	// Stop gracefully shuts down the worker
	Stop(ctx context.Context) error

	// Name returns the worker's name
	Name() string

	// IsRunning returns whether the worker is currently running
	IsRunning() bool

	// Stats returns worker statistics
	Stats() WorkerStats
}

// Logger defines the interface for logging
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// DefaultLogger is a simple logger implementation
type DefaultLogger struct{}

func (l *DefaultLogger) Info(msg string, args ...interface{}) {
	log.Printf("[INFO] "+msg, args...)
}

func (l *DefaultLogger) Error(msg string, args ...interface{}) {
	log.Printf("[ERROR] "+msg, args...)
}

func (l *DefaultLogger) Warn(msg string, args ...interface{}) {
	log.Printf("[WARN] "+msg, args...)
}

func (l *DefaultLogger) Debug(msg string, args ...interface{}) {
	log.Printf("[DEBUG] "+msg, args...)
}

// WorkerStats represents statistics about a worker
type WorkerStats struct {
	WorkerName         string        `json:"worker_name"`
	TasksProcessed     int64         `json:"tasks_processed"`
	TasksSucceeded     int64         `json:"tasks_succeeded"`
	TasksFailed        int64         `json:"tasks_failed"`
	AverageProcessTime time.Duration `json:"average_process_time"`
	LastTaskTime       time.Time     `json:"last_task_time,omitempty"`
	Uptime             time.Duration `json:"uptime"`
	IsRunning          bool          `json:"is_running"`
}

// WorkerConfig holds configuration for workers
type WorkerConfig struct {
	// WorkerName is a unique identifier for this worker instance
	WorkerName string

	// Concurrency is the number of tasks to process concurrently
	Concurrency int

	// ShutdownTimeout is how long to wait for graceful shutdown
	ShutdownTimeout time.Duration

	// MaxRetries is the maximum number of retries for failed tasks
	MaxRetries int

	// RetryDelay is the delay between retries
	RetryDelay time.Duration
}

// DefaultWorkerConfig returns a worker configuration with sensible
// defaults. MaxRetries mirrors the Upstash-Retries count sent to QStash
// so the inline queue behaves like the hosted one.
func DefaultWorkerConfig(workerName string) WorkerConfig {
	return WorkerConfig{
		WorkerName:      workerName,
		Concurrency:     3,
		ShutdownTimeout: 30 * time.Second,
		MaxRetries:      3,
		RetryDelay:      5 * time.Second,
	}
}

// BaseWorker provides common functionality for workers
type BaseWorker struct {
	config  WorkerConfig
	running bool
	mu      sync.RWMutex

	// Stats tracking
	tasksProcessed   int64
	tasksSucceeded   int64
	tasksFailed      int64
	totalProcessTime time.Duration
	startTime        time.Time
	lastTaskTime     time.Time
	statsMu          sync.RWMutex
}

// NewBaseWorker creates a new base worker
func NewBaseWorker(config WorkerConfig) *BaseWorker {
	return &BaseWorker{
		config: config,
	}
}

// Name returns the worker's name
func (w *BaseWorker) Name() string {
	return w.config.WorkerName
}

// IsRunning returns whether the worker is currently running
func (w *BaseWorker) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// setRunning sets the running state
func (w *BaseWorker) setRunning(running bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.running = running
	if running {
		w.startTime = time.Now()
	}
}

// Stats returns worker statistics
func (w *BaseWorker) Stats() WorkerStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()

	var avgProcessTime time.Duration
	if w.tasksProcessed > 0 {
		avgProcessTime = w.totalProcessTime / time.Duration(w.tasksProcessed)
	}

	var uptime time.Duration
	if !w.startTime.IsZero() {
		uptime = time.Since(w.startTime)
	}

	return WorkerStats{
		WorkerName:         w.config.WorkerName,
		TasksProcessed:     w.tasksProcessed,
		TasksSucceeded:     w.tasksSucceeded,
		TasksFailed:        w.tasksFailed,
		AverageProcessTime: avgProcessTime,
		LastTaskTime:       w.lastTaskTime,
		Uptime:             uptime,
		IsRunning:          w.IsRunning(),
	}
}

// recordTaskStart records the start of task processing
func (w *BaseWorker) recordTaskStart() time.Time {
	return time.Now()
}

// recordTaskSuccess records a successful task completion
func (w *BaseWorker) recordTaskSuccess(startTime time.Time) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()

	duration := time.Since(startTime)
	w.tasksProcessed++
	w.tasksSucceeded++
	w.totalProcessTime += duration
	w.lastTaskTime = time.Now()
}

// recordTaskFailure records a failed task
func (w *BaseWorker) recordTaskFailure(startTime time.Time) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()

	duration := time.Since(startTime)
	w.tasksProcessed++
	w.tasksFailed++
	w.totalProcessTime += duration
	w.lastTaskTime = time.Now()
}

// WorkerPool manages the server's workers as one unit
type WorkerPool struct {
	workers []Worker
	mu      sync.RWMutex
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool() *WorkerPool {
	return &WorkerPool{
		workers: make([]Worker, 0),
	}
}

// AddWorker adds a worker to the pool
func (p *WorkerPool) AddWorker(worker Worker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.workers = append(p.workers, worker)
}

// StartAll starts all workers in the pool
func (p *WorkerPool) StartAll(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, worker := range p.workers {
		if err := worker.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// StopAll stops all workers in the pool
func (p *WorkerPool) StopAll(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var wg sync.WaitGroup
	errChan := make(chan error, len(p.workers))

	for _, worker := range p.workers {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			if err := w.Stop(ctx); err != nil {
				errChan <- err
			}
		}(worker)
	}

	wg.Wait()
	close(errChan)

	// Return first error if any
	select {
	case err := <-errChan:
		return err
	default:
		return nil
	}
}

// GetAllStats returns statistics for all workers
func (p *WorkerPool) GetAllStats() []WorkerStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := make([]WorkerStats, 0, len(p.workers))
	for _, worker := range p.workers {
		stats = append(stats, worker.Stats())
	}
	return stats
}

// Count returns the number of workers in the pool
func (p *WorkerPool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.workers)
}

// TaskProcessor defines a function that processes one queue task
type TaskProcessor func(ctx context.Context, payload queue.TaskPayload) error

// WithRetries wraps a task processor with the retry policy QStash applies
// on the hosted path, so inline-queue tasks get the same redelivery
// behavior. The final error is returned after MaxRetries re-attempts.
func WithRetries(config WorkerConfig, logger Logger, processor TaskProcessor) TaskProcessor {
	if logger == nil {
		logger = &DefaultLogger{}
	}
	return func(ctx context.Context, payload queue.TaskPayload) error {
		var err error
		for attempt := 0; attempt <= config.MaxRetries; attempt++ {
			if attempt > 0 {
				logger.Warn("retrying %s task (attempt %d/%d): %v",
					payload.Action, attempt, config.MaxRetries, err)
				select {
				case <-time.After(config.RetryDelay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if err = processor(ctx, payload); err == nil {
				return nil
			}
		}
		return err
	}
}

// WorkerError represents a worker-specific error
type WorkerError struct {
	WorkerName string
	Operation  string
	Err        error
	Message    string
}

func (e *WorkerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	prefix := e.WorkerName + ":" + e.Operation
	if e.Err != nil {
		return prefix + ": " + e.Err.Error()
	}
	return prefix + ": unknown error"
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// NewWorkerError creates a new worker error
func NewWorkerError(workerName, operation string, err error, message string) *WorkerError {
	return &WorkerError{
		WorkerName: workerName,
		Operation:  operation,
		Err:        err,
		Message:    message,
	}
}

// WorkerPanicError represents a panic that occurred during task processing
type WorkerPanicError struct {
	Panic interface{}
}

func (e *WorkerPanicError) Error() string {
	return "worker panic: " + formatPanic(e.Panic)
}

func formatPanic(p interface{}) string {
	switch v := p.(type) {
	case string:
		return v
	case error:
		return v.Error()
	default:
		return fmt.Sprintf("%v", v)
	}
}
