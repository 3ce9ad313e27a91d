package workers

import (
	"context"
	"time"

	"brainlattice/internal/graph"
	"brainlattice/internal/llm"
	"brainlattice/internal/models"
	"brainlattice/internal/queue"
	"brainlattice/internal/repositories"
	"brainlattice/internal/services"
)

// Progress milestones for the ingestion stages
const (
	progressDownloading = 10
	progressReadingJob  = 20
	progressMarkdown    = 40
	progressEmbedded    = 60
	progressExtracted   = 80
	progressDone        = 100
)

// IngestionProcessor runs the full pipeline for one uploaded PDF:
// download, parse, chunk, embed, extract the concept graph, resolve and
// connect it, and persist. Progress is checkpointed in the JobStore so a
// queue-driven retry of the same job skips the expensive extraction.
type IngestionProcessor struct {
	blob     repositories.BlobStore
	jobs     repositories.JobStore
	repo     repositories.ProjectRepository
	pdf      PDFExtractor
	splitter *services.RecursiveMarkdownSplitter
	pipeline PipelineFactory
	logger   Logger
}

// PDFExtractor converts PDF bytes into markdown text.
type PDFExtractor interface {
	Extract(data []byte) (string, error)
}

// IngestionProcessorConfig holds dependencies for the ingestion processor
type IngestionProcessorConfig struct {
	BlobStore repositories.BlobStore
	JobStore  repositories.JobStore
	Repo      repositories.ProjectRepository
	PDF       PDFExtractor
	Pipeline  PipelineFactory
	Logger    Logger
}

// NewIngestionProcessor creates an ingestion processor
func NewIngestionProcessor(config IngestionProcessorConfig) *IngestionProcessor {
	logger := config.Logger
	if logger == nil {
		logger = &DefaultLogger{}
	}
	pdf := config.PDF
	if pdf == nil {
		pdf = services.NewPDFService()
	}
	return &IngestionProcessor{
		blob:     config.BlobStore,
		jobs:     config.JobStore,
		repo:     config.Repo,
		pdf:      pdf,
		splitter: services.NewRecursiveMarkdownSplitter(0, -1),
		pipeline: config.Pipeline,
		logger:   logger,
	}
}

// Process runs the pipeline for one task. On any failure the job and the
// project are marked failed before the error propagates so the queue
// provider can observe and retry.
func (p *IngestionProcessor) Process(ctx context.Context, payload queue.TaskPayload) (err error) {
	jobID := payload.JobID
	projectID := ""

	defer func() {
		if err == nil {
			return
		}
		p.logger.Error("ingestion pipeline failed for job %s: %v", jobID, err)
		if uerr := p.jobs.UpdateProgress(ctx, jobID, models.JobStatusFailed, -1, map[string]interface{}{
			"error": err.Error(),
		}); uerr != nil {
			p.logger.Error("failed to mark job %s failed: %v", jobID, uerr)
		}
		if projectID != "" {
			if perr := p.repo.UpdateProjectStatus(ctx, projectID, models.ProjectStatusFailed); perr != nil {
				p.logger.Error("failed to mark project %s failed: %v", projectID, perr)
			}
		}
	}()

	timings := make(map[string]interface{})
	stageStart := time.Now()
	mark := func(stage string) {
		timings[stage] = time.Since(stageStart).Milliseconds()
		stageStart = time.Now()
	}

	// downloading
	if err = p.jobs.UpdateProgress(ctx, jobID, models.JobStatusProcessing, progressDownloading, nil); err != nil {
		return err
	}
	p.logger.Info("downloading %s", payload.FileKey)
	fileBytes, err := p.blob.Get(ctx, payload.FileKey)
	if err != nil {
		return err
	}
	mark("download_ms")

	// reading job: payload keys take precedence over stored metadata
	job, err := p.jobs.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	projectID = job.MetadataString("project_id")
	if projectID == "" {
		return NewWorkerError("ingestion", "read_job", nil, "job "+jobID+" has no project_id in metadata")
	}
	filename := job.MetadataString("filename")
	if filename == "" {
		filename = "unknown.pdf"
	}
	geminiKey := payload.GeminiKey
	if geminiKey == "" {
		geminiKey = job.MetadataString("gemini_key")
	}
	openaiKey := payload.OpenAIKey
	if openaiKey == "" {
		openaiKey = job.MetadataString("openai_key")
	}
	components, err := p.pipeline(ctx, geminiKey, openaiKey)
	if err != nil {
		return err
	}
	defer components.Close()

	if err = p.jobs.UpdateProgress(ctx, jobID, models.JobStatusProcessing, progressReadingJob, nil); err != nil {
		return err
	}

	// ensure file row, idempotent across retries
	file, err := p.repo.GetFileByBlobKey(ctx, projectID, payload.FileKey)
	if err != nil {
		return err
	}
	if file == nil {
		if file, err = p.repo.CreateFile(ctx, projectID, filename, payload.FileKey); err != nil {
			return err
		}
	} else {
		p.logger.Info("file %s already exists in project %s, reusing", filename, projectID)
	}

	// pdf to markdown
	p.logger.Info("parsing pdf for job %s", jobID)
	markdown, err := p.pdf.Extract(fileBytes)
	if err != nil {
		return err
	}
	if err = p.repo.UpdateFileContent(ctx, file.ID, markdown); err != nil {
		return err
	}
	mark("parse_ms")
	if err = p.jobs.UpdateProgress(ctx, jobID, models.JobStatusProcessing, progressMarkdown, nil); err != nil {
		return err
	}

	// document cache is optional; extraction and notes degrade to the
	// uncached path without it
	cacheHandle, cacheErr := components.Cache.CreateDocumentCache(ctx, markdown, projectID, llm.DefaultCacheTTLSeconds)
	if cacheErr != nil {
		p.logger.Warn("document cache unavailable for project %s: %v", projectID, cacheErr)
		cacheHandle = ""
	} else if err = p.repo.SetGeminiCacheName(ctx, projectID, cacheHandle); err != nil {
		return err
	}

	// chunk and embed in one batch
	p.logger.Info("chunking and embedding for job %s", jobID)
	textChunks := p.splitter.SplitText(markdown)
	texts := make([]string, len(textChunks))
	for i, c := range textChunks {
		texts[i] = c.Text
	}
	vectors, err := components.Embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}
	chunks := make([]models.Chunk, len(textChunks))
	for i, c := range textChunks {
		chunks[i] = models.Chunk{
			FileID:        file.ID,
			Content:       c.Text,
			Embedding:     vectors[i],
			ChunkMetadata: c.Metadata,
		}
	}
	if err = p.repo.InsertChunks(ctx, file.ID, chunks); err != nil {
		return err
	}
	mark("embed_ms")
	if err = p.jobs.UpdateProgress(ctx, jobID, models.JobStatusProcessing, progressEmbedded, nil); err != nil {
		return err
	}

	// graph extraction, checkpointed per job
	fragments, err := p.jobs.GetExtractionCache(ctx, jobID)
	if err != nil {
		return err
	}
	if fragments != nil {
		p.logger.Info("using cached extraction results for job %s", jobID)
	} else {
		p.logger.Info("extracting conceptual graph for job %s", jobID)
		if fragments, err = components.Extractor.Extract(ctx, markdown, cacheHandle); err != nil {
			return err
		}
		if err = p.jobs.SetExtractionCache(ctx, jobID, fragments); err != nil {
			return err
		}
	}
	mark("extract_ms")
	if err = p.jobs.UpdateProgress(ctx, jobID, models.JobStatusProcessing, progressExtracted, nil); err != nil {
		return err
	}

	// resolve, merge, and bridge orphans
	p.logger.Info("resolving concepts for job %s", jobID)
	builder := graph.NewBuilder(graph.NewEntityResolver(components.Embedder))
	merged, err := builder.Build(ctx, fragments)
	if err != nil {
		return err
	}
	connected := graph.NewConnector(components.Embedder, p.logger).ConnectOrphans(ctx, merged)
	mark("resolve_ms")

	// persist atomically, with pagerank scores in node metadata
	p.logger.Info("persisting graph for project %s", projectID)
	ranks := graph.PageRank(connected)
	nodes := make([]models.GraphNode, len(connected.Nodes))
	for i, node := range connected.Nodes {
		nodes[i] = models.GraphNode{
			ProjectID:     projectID,
			ConceptID:     node.ID,
			Aliases:       node.Aliases,
			OutboundLinks: node.OutboundLinks,
			InboundLinks:  node.InboundLinks,
			NodeMetadata:  map[string]interface{}{"pagerank": ranks[node.ID]},
		}
	}
	if err = p.repo.ReplaceGraph(ctx, projectID, nodes); err != nil {
		return err
	}
	mark("persist_ms")

	// finalize
	if err = p.jobs.UpdateProgress(ctx, jobID, models.JobStatusCompleted, progressDone, map[string]interface{}{
		"chunks_count":  len(chunks),
		"graph_nodes":   len(connected.Nodes),
		"graph_preview": connected,
		"timings":       timings,
	}); err != nil {
		return err
	}
	if err = p.repo.UpdateProjectStatus(ctx, projectID, models.ProjectStatusComplete); err != nil {
		return err
	}

	p.logger.Info("pipeline complete: project %s is now live (%d nodes, %d chunks)",
		projectID, len(connected.Nodes), len(chunks))
	return nil
}
