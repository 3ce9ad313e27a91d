package workers

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"brainlattice/internal/llm"
	"brainlattice/internal/models"
	"brainlattice/internal/queue"
	"brainlattice/internal/repositories"
)

// exportBatchSize bounds one invocation so it fits a host timeout budget;
// the processor re-enqueues itself until no nodes are missing content.
const exportBatchSize = 10

// ExportProcessor generates study notes for every graph node of a
// project in batches, then assembles the vault zip and uploads it.
type ExportProcessor struct {
	blob      repositories.BlobStore
	repo      repositories.ProjectRepository
	queue     queue.TaskQueue
	workerURL string
	pipeline  PipelineFactory
	logger    Logger
}

// ExportProcessorConfig holds dependencies for the export processor
type ExportProcessorConfig struct {
	BlobStore repositories.BlobStore
	Repo      repositories.ProjectRepository
	Queue     queue.TaskQueue
	WorkerURL string
	Pipeline  PipelineFactory
	Logger    Logger
}

// NewExportProcessor creates an export processor
func NewExportProcessor(config ExportProcessorConfig) *ExportProcessor {
	logger := config.Logger
	if logger == nil {
		logger = &DefaultLogger{}
	}
	return &ExportProcessor{
		blob:      config.BlobStore,
		repo:      config.Repo,
		queue:     config.Queue,
		workerURL: config.WorkerURL,
		pipeline:  config.Pipeline,
		logger:    logger,
	}
}

// Process runs one export step: generate a batch of missing notes and
// re-enqueue, or assemble the vault when nothing is missing. Failures
// land in project_metadata.export.
func (p *ExportProcessor) Process(ctx context.Context, payload queue.TaskPayload) (err error) {
	projectID := payload.ProjectID
	if projectID == "" {
		return NewWorkerError("export", "process", nil, "payload has no project_id")
	}

	defer func() {
		if err == nil {
			return
		}
		p.logger.Error("export processing failed for project %s: %v", projectID, err)
		if merr := p.repo.MergeExportMeta(ctx, projectID, map[string]interface{}{
			"status": string(models.ExportStatusFailed),
			"error":  err.Error(),
		}); merr != nil {
			p.logger.Error("failed to record export failure for %s: %v", projectID, merr)
		}
	}()

	components, err := p.pipeline(ctx, payload.GeminiKey, payload.OpenAIKey)
	if err != nil {
		return err
	}
	defer components.Close()

	cacheHandle := p.ensureDocumentCache(ctx, components, projectID)

	missing, err := p.repo.ListMissingContentNodes(ctx, projectID, exportBatchSize)
	if err != nil {
		return err
	}

	if len(missing) > 0 {
		if err = p.processBatch(ctx, components, projectID, missing, cacheHandle); err != nil {
			return err
		}
		// more nodes may remain; hand the next batch to the queue
		if _, err = p.queue.Publish(ctx, p.workerURL, payload); err != nil {
			return err
		}
		return nil
	}

	return p.assembleVault(ctx, components, projectID, cacheHandle)
}

// ensureDocumentCache returns a live cache handle, recreating it from the
// stored document content when the persisted one is dead. Returns ""
// when no cache can be had; note generation then runs in RAG mode.
func (p *ExportProcessor) ensureDocumentCache(ctx context.Context, components *PipelineComponents, projectID string) string {
	project, err := p.repo.GetProject(ctx, projectID)
	if err != nil {
		p.logger.Warn("could not load project %s for cache check: %v", projectID, err)
		return ""
	}

	handle := project.ProjectMetadata.GeminiCacheName
	if handle != "" {
		if err := components.Cache.Verify(ctx, handle); err == nil {
			return handle
		}
		p.logger.Info("cache %s for project %s is dead, recreating", handle, projectID)
	}

	content, err := p.repo.GetProjectContent(ctx, projectID)
	if err != nil || content == "" {
		return ""
	}
	handle, err = components.Cache.CreateDocumentCache(ctx, content, projectID, llm.DefaultCacheTTLSeconds)
	if err != nil {
		p.logger.Warn("failed to recreate document cache for %s: %v", projectID, err)
		return ""
	}
	if err := p.repo.SetGeminiCacheName(ctx, projectID, handle); err != nil {
		p.logger.Warn("failed to persist cache handle for %s: %v", projectID, err)
	}
	return handle
}

// processBatch generates notes for the batch concurrently. Per-node
// failures are logged and skipped; the node stays missing and a later
// invocation retries it.
func (p *ExportProcessor) processBatch(ctx context.Context, components *PipelineComponents, projectID string, nodes []models.GraphNode, cacheHandle string) error {
	total, stillMissing, err := p.repo.CountGraphNodes(ctx, projectID)
	if err != nil {
		return err
	}
	progress := 0
	if total > 0 {
		progress = (total - stillMissing) * 100 / total
	}
	if err := p.repo.MergeExportMeta(ctx, projectID, map[string]interface{}{
		"status":   string(models.ExportStatusGenerating),
		"progress": progress,
		"message":  fmt.Sprintf("generating notes: %d/%d", total-stillMissing, total),
	}); err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, node := range nodes {
		wg.Add(1)
		go func(node models.GraphNode) {
			defer wg.Done()
			content, err := components.Notes.Generate(ctx, projectID, node.ConceptID, node.OutboundLinks, cacheHandle)
			if err != nil {
				p.logger.Error("failed to generate note for %s: %v", node.ConceptID, err)
				return
			}
			if err := p.repo.SetNodeContent(ctx, node.ID, content); err != nil {
				p.logger.Error("failed to store note for %s: %v", node.ConceptID, err)
				return
			}
			p.logger.Info("generated note for %s", node.ConceptID)
		}(node)
	}
	wg.Wait()
	return nil
}

// assembleVault renders every node as a markdown file, zips them, and
// uploads the archive. The document cache is deleted afterwards.
func (p *ExportProcessor) assembleVault(ctx context.Context, components *PipelineComponents, projectID string, cacheHandle string) error {
	p.logger.Info("all notes generated for project %s, assembling vault", projectID)

	nodes, err := p.repo.ListGraphNodes(ctx, projectID)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return NewWorkerError("export", "assemble", nil, "no nodes found for project export")
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, node := range nodes {
		w, err := zw.Create(node.ConceptID + ".md")
		if err != nil {
			return NewWorkerError("export", "assemble", err, "")
		}
		if _, err := w.Write([]byte(formatNodeMarkdown(node))); err != nil {
			return NewWorkerError("export", "assemble", err, "")
		}
	}
	if err := zw.Close(); err != nil {
		return NewWorkerError("export", "assemble", err, "")
	}

	zipKey := fmt.Sprintf("exports/%s.zip", projectID)
	if err := p.blob.Put(ctx, zipKey, buf.Bytes()); err != nil {
		return err
	}

	if err := p.repo.MergeExportMeta(ctx, projectID, map[string]interface{}{
		"status":       string(models.ExportStatusComplete),
		"progress":     100,
		"message":      "vault assembly complete.",
		"download_url": zipKey,
	}); err != nil {
		return err
	}

	if cacheHandle != "" {
		components.Cache.DeleteCache(ctx, cacheHandle)
		if err := p.repo.ClearGeminiCacheName(ctx, projectID); err != nil {
			p.logger.Warn("failed to clear cache handle for %s: %v", projectID, err)
		}
	}

	p.logger.Info("assembled and uploaded vault for project %s (%d notes)", projectID, len(nodes))
	return nil
}

// formatNodeMarkdown renders the vault file for one node: frontmatter
// with aliases when present, then the note body.
func formatNodeMarkdown(node models.GraphNode) string {
	var b strings.Builder
	b.WriteString("---\n")
	if len(node.Aliases) > 0 {
		b.WriteString("aliases: [" + strings.Join(node.Aliases, ", ") + "]\n")
	}
	b.WriteString("---\n\n")
	if node.Content != "" {
		b.WriteString(node.Content)
		b.WriteString("\n")
	}
	return b.String()
}
