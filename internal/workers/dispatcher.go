package workers

import (
	"context"

	"brainlattice/internal/queue"
)

// TaskDispatcher routes queue payloads to the matching processor. It is
// driven by the worker HTTP ingress (or the inline queue), not by
// polling, so Start and Stop only flip the running state.
type TaskDispatcher struct {
	*BaseWorker
	ingestion *IngestionProcessor
	export    *ExportProcessor
	logger    Logger
}

// TaskDispatcherConfig holds dependencies for the dispatcher
type TaskDispatcherConfig struct {
	WorkerConfig WorkerConfig
	Ingestion    *IngestionProcessor
	Export       *ExportProcessor
	Logger       Logger
}

// NewTaskDispatcher creates a dispatcher over the two processors
func NewTaskDispatcher(config TaskDispatcherConfig) *TaskDispatcher {
	logger := config.Logger
	if logger == nil {
		logger = &DefaultLogger{}
	}
	return &TaskDispatcher{
		BaseWorker: NewBaseWorker(config.WorkerConfig),
		ingestion:  config.Ingestion,
		export:     config.Export,
		logger:     logger,
	}
}

// Start marks the dispatcher as accepting tasks
func (d *TaskDispatcher) Start(ctx context.Context) error {
	if d.IsRunning() {
		return NewWorkerError(d.Name(), "start", nil, "worker already running")
	}
	d.setRunning(true)
	d.logger.Info("Starting task dispatcher: %s", d.Name())
	return nil
}

// Stop marks the dispatcher as stopped
func (d *TaskDispatcher) Stop(ctx context.Context) error {
	if !d.IsRunning() {
		return nil
	}
	d.setRunning(false)
	d.logger.Info("Task dispatcher stopped: %s", d.Name())
	return nil
}

// Handle runs one task with panic recovery and stats tracking. It is the
// single entry point shared by the HTTP ingress and the inline queue.
func (d *TaskDispatcher) Handle(ctx context.Context, payload queue.TaskPayload) (err error) {
	start := d.recordTaskStart()
	defer func() {
		if r := recover(); r != nil {
			err = &WorkerPanicError{Panic: r}
		}
		if err != nil {
			d.recordTaskFailure(start)
		} else {
			d.recordTaskSuccess(start)
		}
	}()

	switch payload.Action {
	case queue.ActionIngest:
		d.logger.Info("dispatching ingest task for job %s", payload.JobID)
		return d.ingestion.Process(ctx, payload)
	case queue.ActionPrepareExport:
		d.logger.Info("dispatching export task for project %s", payload.ProjectID)
		return d.export.Process(ctx, payload)
	default:
		return NewWorkerError(d.Name(), "dispatch", nil, "unknown task action: "+payload.Action)
	}
}
