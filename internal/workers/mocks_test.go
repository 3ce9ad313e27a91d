package workers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"brainlattice/internal/models"
	"brainlattice/internal/queue"
)

// fakeBlobStore is an in-memory BlobStore
type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (s *fakeBlobStore) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *fakeBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", key)
	}
	return data, nil
}

func (s *fakeBlobStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeBlobStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://signed.example.com/" + key, nil
}

// fakeQueue records published payloads
type fakeQueue struct {
	mu        sync.Mutex
	published []queue.TaskPayload
}

func (q *fakeQueue) Publish(ctx context.Context, destURL string, payload queue.TaskPayload) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, payload)
	return fmt.Sprintf("msg-%d", len(q.published)), nil
}

func (q *fakeQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.published)
}

// fakeRepo is a stateful in-memory ProjectRepository
type fakeRepo struct {
	mu sync.Mutex

	projects    map[string]*models.Project
	filesByBlob map[string]*models.File
	content     string
	chunks      []models.Chunk

	nodeOrder []string
	nodes     map[string]*models.GraphNode

	exportPatches []map[string]interface{}
	statuses      []models.ProjectStatus
	cacheCleared  bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		projects:    make(map[string]*models.Project),
		filesByBlob: make(map[string]*models.File),
		nodes:       make(map[string]*models.GraphNode),
	}
}

func (r *fakeRepo) addProject(id string) *models.Project {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := &models.Project{ID: id, Title: "t", Status: models.ProjectStatusProcessing}
	r.projects[id] = p
	return p
}

func (r *fakeRepo) addNodes(projectID string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("node-%03d", i)
		r.nodes[id] = &models.GraphNode{
			ID:        id,
			ProjectID: projectID,
			ConceptID: fmt.Sprintf("concept %03d", i),
		}
		r.nodeOrder = append(r.nodeOrder, id)
	}
}

func (r *fakeRepo) CreateProject(ctx context.Context, title string, userID string) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := &models.Project{ID: "project-" + title, Title: title, UserID: userID, Status: models.ProjectStatusProcessing}
	r.projects[p.ID] = p
	return p, nil
}

func (r *fakeRepo) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok {
		return nil, fmt.Errorf("project not found: %s", projectID)
	}
	return p, nil
}

func (r *fakeRepo) UpdateProjectStatus(ctx context.Context, projectID string, status models.ProjectStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
	if p, ok := r.projects[projectID]; ok {
		p.Status = status
	}
	return nil
}

func (r *fakeRepo) SetGeminiCacheName(ctx context.Context, projectID string, cacheName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.projects[projectID]; ok {
		p.ProjectMetadata.GeminiCacheName = cacheName
	}
	return nil
}

func (r *fakeRepo) ClearGeminiCacheName(ctx context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cacheCleared = true
	if p, ok := r.projects[projectID]; ok {
		p.ProjectMetadata.GeminiCacheName = ""
	}
	return nil
}

func (r *fakeRepo) MergeExportMeta(ctx context.Context, projectID string, patch map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exportPatches = append(r.exportPatches, patch)
	return nil
}

func (r *fakeRepo) GetFileByBlobKey(ctx context.Context, projectID string, blobKey string) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.filesByBlob[blobKey], nil
}

func (r *fakeRepo) CreateFile(ctx context.Context, projectID string, filename string, blobKey string) (*models.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := &models.File{ID: "file-" + blobKey, ProjectID: projectID, Filename: filename, BlobKey: blobKey}
	r.filesByBlob[blobKey] = f
	return f, nil
}

func (r *fakeRepo) UpdateFileContent(ctx context.Context, fileID string, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.content = content
	return nil
}

func (r *fakeRepo) GetProjectContent(ctx context.Context, projectID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.content, nil
}

func (r *fakeRepo) InsertChunks(ctx context.Context, fileID string, chunks []models.Chunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, chunks...)
	return nil
}

func (r *fakeRepo) SearchChunks(ctx context.Context, projectID string, embedding []float32, limit int) ([]models.Chunk, error) {
	return nil, nil
}

func (r *fakeRepo) ReplaceGraph(ctx context.Context, projectID string, nodes []models.GraphNode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes = make(map[string]*models.GraphNode)
	r.nodeOrder = nil
	for i := range nodes {
		node := nodes[i]
		node.ID = "node-" + node.ConceptID
		r.nodes[node.ID] = &node
		r.nodeOrder = append(r.nodeOrder, node.ID)
	}
	return nil
}

func (r *fakeRepo) ListGraphNodes(ctx context.Context, projectID string) ([]models.GraphNode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.GraphNode, 0, len(r.nodeOrder))
	for _, id := range r.nodeOrder {
		out = append(out, *r.nodes[id])
	}
	return out, nil
}

func (r *fakeRepo) ListMissingContentNodes(ctx context.Context, projectID string, limit int) ([]models.GraphNode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.GraphNode
	for _, id := range r.nodeOrder {
		if r.nodes[id].Content == "" {
			out = append(out, *r.nodes[id])
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *fakeRepo) CountGraphNodes(ctx context.Context, projectID string) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	missing := 0
	for _, node := range r.nodes {
		if node.Content == "" {
			missing++
		}
	}
	return len(r.nodes), missing, nil
}

func (r *fakeRepo) SetNodeContent(ctx context.Context, nodeID string, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if node, ok := r.nodes[nodeID]; ok {
		node.Content = content
	}
	return nil
}

func (r *fakeRepo) ValidConceptIDs(ctx context.Context, projectID string) (map[string]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]struct{})
	for _, node := range r.nodes {
		out[node.ConceptID] = struct{}{}
	}
	return out, nil
}

func (r *fakeRepo) Ping(ctx context.Context) error { return nil }
func (r *fakeRepo) Close() error                   { return nil }

func (r *fakeRepo) exportStatuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, patch := range r.exportPatches {
		if s, ok := patch["status"].(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (r *fakeRepo) exportProgresses() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int
	for _, patch := range r.exportPatches {
		if p, ok := patch["progress"].(int); ok {
			out = append(out, p)
		}
	}
	return out
}

// fakeEmbedder assigns a distinct one-hot vector per unseen text
type fakeEmbedder struct {
	mu      sync.Mutex
	dim     int
	indices map[string]int
}

func newFakeEmbedder(dim int) *fakeEmbedder {
	return &fakeEmbedder{dim: dim, indices: make(map[string]int)}
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]float32, len(texts))
	for i, text := range texts {
		idx, ok := f.indices[text]
		if !ok {
			idx = len(f.indices)
			f.indices[text] = idx
		}
		v := make([]float32, f.dim)
		v[idx%f.dim] = 1
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dim }

// fakeExtractor returns canned fragments and records invocations
type fakeExtractor struct {
	mu        sync.Mutex
	fragments []models.GraphFragment
	err       error
	calls     int
	handles   []string
}

func (e *fakeExtractor) Extract(ctx context.Context, document string, cacheHandle string) ([]models.GraphFragment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.handles = append(e.handles, cacheHandle)
	if e.err != nil {
		return nil, e.err
	}
	return e.fragments, nil
}

// fakeCache simulates provider-side document caches
type fakeCache struct {
	mu        sync.Mutex
	handle    string
	createErr error
	verifyErr error
	created   int
	deleted   []string
}

func (c *fakeCache) CreateDocumentCache(ctx context.Context, documentText string, projectID string, ttlSeconds int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.createErr != nil {
		return "", c.createErr
	}
	c.created++
	return c.handle, nil
}

func (c *fakeCache) Verify(ctx context.Context, handle string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verifyErr
}

func (c *fakeCache) DeleteCache(ctx context.Context, handle string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, handle)
}

// fakeNotes generates deterministic note content
type fakeNotes struct {
	mu        sync.Mutex
	err       error
	generated []string
}

func (n *fakeNotes) Generate(ctx context.Context, projectID, conceptID string, outboundLinks []string, cacheHandle string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return "", n.err
	}
	n.generated = append(n.generated, conceptID)
	return "note for " + conceptID, nil
}

func (n *fakeNotes) generatedSorted() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := append([]string{}, n.generated...)
	sort.Strings(out)
	return out
}

// fakePipeline bundles the fakes behind a PipelineFactory
type fakePipeline struct {
	embedder  *fakeEmbedder
	cache     *fakeCache
	extractor *fakeExtractor
	notes     *fakeNotes

	factoryErr error
	closed     int
	geminiKeys []string
	openaiKeys []string
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{
		embedder:  newFakeEmbedder(8),
		cache:     &fakeCache{handle: "caches/test"},
		extractor: &fakeExtractor{},
		notes:     &fakeNotes{},
	}
}

func (p *fakePipeline) factory() PipelineFactory {
	return func(ctx context.Context, geminiKey, openaiKey string) (*PipelineComponents, error) {
		if p.factoryErr != nil {
			return nil, p.factoryErr
		}
		p.geminiKeys = append(p.geminiKeys, geminiKey)
		p.openaiKeys = append(p.openaiKeys, openaiKey)
		return &PipelineComponents{
			Embedder:  p.embedder,
			Cache:     p.cache,
			Extractor: p.extractor,
			Notes:     p.notes,
			Close:     func() { p.closed++ },
		}, nil
	}
}

// fakePDF skips real parsing and returns fixed markdown
type fakePDF struct {
	markdown string
	err      error
}

func (f *fakePDF) Extract(data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.markdown, nil
}
