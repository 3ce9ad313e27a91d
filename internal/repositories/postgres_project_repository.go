package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"brainlattice/internal/models"
)

// PostgresProjectRepository implements ProjectRepository using pgx/pgvector
type PostgresProjectRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresProjectRepository creates a new Postgres-backed repository
func NewPostgresProjectRepository(pool *pgxpool.Pool) *PostgresProjectRepository {
	return &PostgresProjectRepository{pool: pool}
}

// CreateProject inserts a new project row in processing state
func (r *PostgresProjectRepository) CreateProject(ctx context.Context, title string, userID string) (*models.Project, error) {
	var (
		id        string
		createdAt time.Time
	)
	err := r.pool.QueryRow(ctx,
		`INSERT INTO projects (user_id, title, status)
		 VALUES (NULLIF($1, '')::uuid, $2, $3)
		 RETURNING id, created_at`,
		userID, title, string(models.ProjectStatusProcessing),
	).Scan(&id, &createdAt)
	if err != nil {
		return nil, NewProjectRepositoryError("create_project", "", err, "")
	}

	return &models.Project{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Status:    models.ProjectStatusProcessing,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}, nil
}

// GetProject retrieves a project with decoded metadata
func (r *PostgresProjectRepository) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	var (
		p        models.Project
		userID   *string
		metaJSON []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, title, status, project_metadata, created_at, updated_at
		 FROM projects WHERE id = $1`,
		projectID,
	).Scan(&p.ID, &userID, &p.Title, &p.Status, &metaJSON, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ProjectNotFoundError(projectID)
	}
	if err != nil {
		return nil, NewProjectRepositoryError("get_project", projectID, err, "")
	}
	if userID != nil {
		p.UserID = *userID
	}
	p.ProjectMetadata = decodeProjectMetadata(metaJSON)
	return &p, nil
}

// UpdateProjectStatus sets the project lifecycle state
func (r *PostgresProjectRepository) UpdateProjectStatus(ctx context.Context, projectID string, status models.ProjectStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE projects SET status = $2, updated_at = now() WHERE id = $1`,
		projectID, string(status),
	)
	if err != nil {
		return NewProjectRepositoryError("update_project_status", projectID, err, "")
	}
	if tag.RowsAffected() == 0 {
		return ProjectNotFoundError(projectID)
	}
	return nil
}

// SetGeminiCacheName persists the document cache handle into project_metadata
func (r *PostgresProjectRepository) SetGeminiCacheName(ctx context.Context, projectID string, cacheName string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE projects
		 SET project_metadata = jsonb_set(COALESCE(project_metadata, '{}'::jsonb), '{gemini_cache_name}', to_jsonb($2::text)),
		     updated_at = now()
		 WHERE id = $1`,
		projectID, cacheName,
	)
	if err != nil {
		return NewProjectRepositoryError("set_gemini_cache_name", projectID, err, "")
	}
	return nil
}

// ClearGeminiCacheName removes the cache handle from project_metadata
func (r *PostgresProjectRepository) ClearGeminiCacheName(ctx context.Context, projectID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE projects
		 SET project_metadata = COALESCE(project_metadata, '{}'::jsonb) - 'gemini_cache_name',
		     updated_at = now()
		 WHERE id = $1`,
		projectID,
	)
	if err != nil {
		return NewProjectRepositoryError("clear_gemini_cache_name", projectID, err, "")
	}
	return nil
}

// MergeExportMeta merges patch into project_metadata.export as one atomic
// jsonb update so unrelated export fields survive.
func (r *PostgresProjectRepository) MergeExportMeta(ctx context.Context, projectID string, patch map[string]interface{}) error {
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return NewProjectRepositoryError("merge_export_meta", projectID, err, "failed to marshal patch")
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE projects
		 SET project_metadata = jsonb_set(COALESCE(project_metadata, '{}'::jsonb), '{export}',
		         COALESCE(project_metadata->'export', '{}'::jsonb) || $2::jsonb),
		     updated_at = now()
		 WHERE id = $1`,
		projectID, patchJSON,
	)
	if err != nil {
		return NewProjectRepositoryError("merge_export_meta", projectID, err, "")
	}
	return nil
}

// GetFileByBlobKey returns the file for (project, blob_key), or nil if absent
func (r *PostgresProjectRepository) GetFileByBlobKey(ctx context.Context, projectID string, blobKey string) (*models.File, error) {
	var f models.File
	err := r.pool.QueryRow(ctx,
		`SELECT id, project_id, filename, blob_key, content, created_at
		 FROM files WHERE project_id = $1 AND blob_key = $2`,
		projectID, blobKey,
	).Scan(&f.ID, &f.ProjectID, &f.Filename, &f.BlobKey, &f.Content, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, NewProjectRepositoryError("get_file_by_blob_key", projectID, err, "")
	}
	return &f, nil
}

// CreateFile inserts a file row with empty content
func (r *PostgresProjectRepository) CreateFile(ctx context.Context, projectID string, filename string, blobKey string) (*models.File, error) {
	var (
		id        string
		createdAt time.Time
	)
	err := r.pool.QueryRow(ctx,
		`INSERT INTO files (project_id, filename, blob_key, content)
		 VALUES ($1, $2, $3, '')
		 RETURNING id, created_at`,
		projectID, filename, blobKey,
	).Scan(&id, &createdAt)
	if err != nil {
		return nil, NewProjectRepositoryError("create_file", projectID, err, "")
	}
	return &models.File{
		ID:        id,
		ProjectID: projectID,
		Filename:  filename,
		BlobKey:   blobKey,
		CreatedAt: createdAt,
	}, nil
}

// UpdateFileContent writes the extracted markdown onto the file row
func (r *PostgresProjectRepository) UpdateFileContent(ctx context.Context, fileID string, content string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE files SET content = $2 WHERE id = $1`,
		fileID, content,
	)
	if err != nil {
		return NewProjectRepositoryError("update_file_content", fileID, err, "")
	}
	if tag.RowsAffected() == 0 {
		return NewProjectRepositoryError("update_file_content", fileID, nil, "file not found: "+fileID)
	}
	return nil
}

// GetProjectContent returns the markdown of the project's first file, or ""
func (r *PostgresProjectRepository) GetProjectContent(ctx context.Context, projectID string) (string, error) {
	var content string
	err := r.pool.QueryRow(ctx,
		`SELECT content FROM files WHERE project_id = $1 ORDER BY created_at LIMIT 1`,
		projectID,
	).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", NewProjectRepositoryError("get_project_content", projectID, err, "")
	}
	return content, nil
}

// InsertChunks bulk-inserts chunk rows with their embeddings
func (r *PostgresProjectRepository) InsertChunks(ctx context.Context, fileID string, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		metaJSON, err := json.Marshal(chunk.ChunkMetadata)
		if err != nil {
			return NewProjectRepositoryError("insert_chunks", fileID, err, "failed to marshal chunk metadata")
		}
		batch.Queue(
			`INSERT INTO chunks (file_id, content, embedding, chunk_metadata)
			 VALUES ($1, $2, $3, $4)`,
			fileID, chunk.Content, pgvector.NewVector(chunk.Embedding), metaJSON,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range chunks {
		if _, err := results.Exec(); err != nil {
			return NewProjectRepositoryError("insert_chunks", fileID, err, "")
		}
	}
	return nil
}

// SearchChunks returns the top chunks of a project by cosine distance
func (r *PostgresProjectRepository) SearchChunks(ctx context.Context, projectID string, embedding []float32, limit int) ([]models.Chunk, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.file_id, c.content, c.chunk_metadata, c.created_at
		 FROM chunks c
		 JOIN files f ON f.id = c.file_id
		 WHERE f.project_id = $1
		 ORDER BY c.embedding <=> $2
		 LIMIT $3`,
		projectID, pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, NewProjectRepositoryError("search_chunks", projectID, err, "")
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var (
			c        models.Chunk
			metaJSON []byte
		)
		if err := rows.Scan(&c.ID, &c.FileID, &c.Content, &metaJSON, &c.CreatedAt); err != nil {
			return nil, NewProjectRepositoryError("search_chunks", projectID, err, "")
		}
		_ = json.Unmarshal(metaJSON, &c.ChunkMetadata)
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, NewProjectRepositoryError("search_chunks", projectID, err, "")
	}
	return chunks, nil
}

// ReplaceGraph atomically purges and re-inserts the project's graph nodes.
// Readers never observe a partial graph.
func (r *PostgresProjectRepository) ReplaceGraph(ctx context.Context, projectID string, nodes []models.GraphNode) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return NewProjectRepositoryError("replace_graph", projectID, err, "")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM graph_nodes WHERE project_id = $1`, projectID); err != nil {
		return NewProjectRepositoryError("replace_graph", projectID, err, "failed to purge old nodes")
	}

	for i := range nodes {
		node := &nodes[i]
		node.ProjectID = projectID
		if err := node.Validate(); err != nil {
			return err
		}

		aliasesJSON, err := json.Marshal(emptyIfNil(node.Aliases))
		if err != nil {
			return NewProjectRepositoryError("replace_graph", projectID, err, "failed to marshal aliases")
		}
		outboundJSON, err := json.Marshal(emptyIfNil(node.OutboundLinks))
		if err != nil {
			return NewProjectRepositoryError("replace_graph", projectID, err, "failed to marshal outbound links")
		}
		inboundJSON, err := json.Marshal(emptyIfNil(node.InboundLinks))
		if err != nil {
			return NewProjectRepositoryError("replace_graph", projectID, err, "failed to marshal inbound links")
		}
		metaJSON, err := json.Marshal(node.NodeMetadata)
		if err != nil {
			return NewProjectRepositoryError("replace_graph", projectID, err, "failed to marshal node metadata")
		}
		if node.NodeMetadata == nil {
			metaJSON = []byte("{}")
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO graph_nodes (project_id, concept_id, content, aliases, outbound_links, inbound_links, node_metadata)
			 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)`,
			projectID, node.ConceptID, node.Content, aliasesJSON, outboundJSON, inboundJSON, metaJSON,
		)
		if err != nil {
			return NewProjectRepositoryError("replace_graph", projectID, err, "")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return NewProjectRepositoryError("replace_graph", projectID, err, "failed to commit")
	}
	return nil
}

// ListGraphNodes returns all persisted nodes of a project
func (r *PostgresProjectRepository) ListGraphNodes(ctx context.Context, projectID string) ([]models.GraphNode, error) {
	return r.queryNodes(ctx, projectID,
		`SELECT id, project_id, concept_id, COALESCE(content, ''), aliases, outbound_links, inbound_links, node_metadata, created_at, updated_at
		 FROM graph_nodes WHERE project_id = $1 ORDER BY concept_id`)
}

// ListMissingContentNodes returns up to limit nodes without note content
func (r *PostgresProjectRepository) ListMissingContentNodes(ctx context.Context, projectID string, limit int) ([]models.GraphNode, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, project_id, concept_id, COALESCE(content, ''), aliases, outbound_links, inbound_links, node_metadata, created_at, updated_at
		 FROM graph_nodes
		 WHERE project_id = $1 AND (content IS NULL OR content = '')
		 ORDER BY concept_id
		 LIMIT $2`,
		projectID, limit,
	)
	if err != nil {
		return nil, NewProjectRepositoryError("list_missing_content_nodes", projectID, err, "")
	}
	defer rows.Close()
	return scanNodes(rows, projectID)
}

// CountGraphNodes returns the total node count and how many lack content
func (r *PostgresProjectRepository) CountGraphNodes(ctx context.Context, projectID string) (int, int, error) {
	var total, missing int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*), count(*) FILTER (WHERE content IS NULL OR content = '')
		 FROM graph_nodes WHERE project_id = $1`,
		projectID,
	).Scan(&total, &missing)
	if err != nil {
		return 0, 0, NewProjectRepositoryError("count_graph_nodes", projectID, err, "")
	}
	return total, missing, nil
}

// SetNodeContent writes the generated note onto a node
func (r *PostgresProjectRepository) SetNodeContent(ctx context.Context, nodeID string, content string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE graph_nodes SET content = $2, updated_at = now() WHERE id = $1`,
		nodeID, content,
	)
	if err != nil {
		return NewProjectRepositoryError("set_node_content", nodeID, err, "")
	}
	if tag.RowsAffected() == 0 {
		return NewProjectRepositoryError("set_node_content", nodeID, nil, "node not found: "+nodeID)
	}
	return nil
}

// ValidConceptIDs returns the set of concept ids persisted for a project
func (r *PostgresProjectRepository) ValidConceptIDs(ctx context.Context, projectID string) (map[string]struct{}, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT concept_id FROM graph_nodes WHERE project_id = $1`, projectID)
	if err != nil {
		return nil, NewProjectRepositoryError("valid_concept_ids", projectID, err, "")
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, NewProjectRepositoryError("valid_concept_ids", projectID, err, "")
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, NewProjectRepositoryError("valid_concept_ids", projectID, err, "")
	}
	return ids, nil
}

// Ping checks database connectivity
func (r *PostgresProjectRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close releases the connection pool
func (r *PostgresProjectRepository) Close() error {
	r.pool.Close()
	return nil
}

// Helper methods

func (r *PostgresProjectRepository) queryNodes(ctx context.Context, projectID string, sql string) ([]models.GraphNode, error) {
	rows, err := r.pool.Query(ctx, sql, projectID)
	if err != nil {
		return nil, NewProjectRepositoryError("list_graph_nodes", projectID, err, "")
	}
	defer rows.Close()
	return scanNodes(rows, projectID)
}

func scanNodes(rows pgx.Rows, projectID string) ([]models.GraphNode, error) {
	var nodes []models.GraphNode
	for rows.Next() {
		var (
			n            models.GraphNode
			aliasesJSON  []byte
			outboundJSON []byte
			inboundJSON  []byte
			metaJSON     []byte
		)
		if err := rows.Scan(&n.ID, &n.ProjectID, &n.ConceptID, &n.Content,
			&aliasesJSON, &outboundJSON, &inboundJSON, &metaJSON,
			&n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, NewProjectRepositoryError("scan_graph_nodes", projectID, err, "")
		}
		_ = json.Unmarshal(aliasesJSON, &n.Aliases)
		_ = json.Unmarshal(outboundJSON, &n.OutboundLinks)
		_ = json.Unmarshal(inboundJSON, &n.InboundLinks)
		_ = json.Unmarshal(metaJSON, &n.NodeMetadata)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, NewProjectRepositoryError("scan_graph_nodes", projectID, err, "")
	}
	return nodes, nil
}

func decodeProjectMetadata(raw []byte) models.ProjectMetadata {
	meta := models.ProjectMetadata{}
	if len(raw) == 0 {
		return meta
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(raw, &all); err != nil {
		return meta
	}

	if v, ok := all["gemini_cache_name"]; ok {
		_ = json.Unmarshal(v, &meta.GeminiCacheName)
		delete(all, "gemini_cache_name")
	}
	if v, ok := all["export"]; ok {
		var export models.ExportMeta
		if err := json.Unmarshal(v, &export); err == nil {
			meta.Export = &export
		}
		delete(all, "export")
	}
	if len(all) > 0 {
		meta.Extra = make(map[string]interface{}, len(all))
		for k, v := range all {
			var val interface{}
			_ = json.Unmarshal(v, &val)
			meta.Extra[k] = val
		}
	}
	return meta
}

func emptyIfNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
