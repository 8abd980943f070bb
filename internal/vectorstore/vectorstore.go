package vectorstore

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"medical-rag/internal/models"
)

const (
	indexFile     = "index.gob"
	documentsFile = "documents.gob"
)

// Store is a flat inner-product similarity index over embedded chunks.
// Vectors and chunks are paired positionally and always replaced in
// lockstep; a rebuild swaps both under the write lock so readers observe
// either the old or the new state, never a torn one.
type Store struct {
	mu        sync.RWMutex
	embedder  embeddings.Embedder
	dir       string
	dimension int
	vectors   [][]float32
	chunks    []models.Chunk
}

// New creates a store backed by dir and reloads any prior persisted state.
// Missing or corrupt state is treated as an empty index.
func New(embedder embeddings.Embedder, dir string, dimension int) *Store {
	s := &Store{embedder: embedder, dir: dir, dimension: dimension}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("error creating vector store directory")
	}
	s.load()
	return s
}

// Encode runs the embedding model over texts.
func (s *Store) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	return s.embedder.EmbedDocuments(ctx, texts)
}

// Build replaces the index wholesale with the given chunks and persists it.
// An empty chunk list is a no-op and leaves any prior state in place.
func (s *Store) Build(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		log.Info().Msg("no chunks provided to build index")
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := s.Encode(ctx, texts)
	if err != nil {
		return fmt.Errorf("encoding %d chunks: %w", len(chunks), err)
	}
	for i := range vectors {
		normalize(vectors[i])
	}

	s.mu.Lock()
	s.vectors = vectors
	s.chunks = append([]models.Chunk(nil), chunks...)
	s.mu.Unlock()

	log.Info().Int("vectors", len(vectors)).Msg("vector index built")
	s.save()
	return nil
}

// Update rebuilds the index over the existing chunks plus newChunks.
// Duplicate chunk IDs may coexist across rebuilds; no deduplication is done.
func (s *Store) Update(ctx context.Context, newChunks []models.Chunk) error {
	if len(newChunks) == 0 {
		return nil
	}
	s.mu.RLock()
	all := make([]models.Chunk, 0, len(s.chunks)+len(newChunks))
	all = append(all, s.chunks...)
	all = append(all, newChunks...)
	s.mu.RUnlock()
	return s.Build(ctx, all)
}

// Search returns up to min(k, indexed) chunks ordered by descending cosine
// similarity to the query. An absent or empty index yields an empty result.
func (s *Store) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	if k <= 0 || s.Count() == 0 {
		return nil, nil
	}

	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}
	normalize(queryVector)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.chunks) == 0 {
		return nil, nil
	}

	scores := make([]float64, len(s.vectors))
	order := make([]int, len(s.vectors))
	for i, v := range s.vectors {
		scores[i] = dot(v, queryVector)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	if k > len(order) {
		k = len(order)
	}
	results := make([]models.SearchResult, 0, k)
	for _, idx := range order[:k] {
		results = append(results, models.SearchResult{Chunk: s.chunks[idx], Score: scores[idx]})
	}
	return results, nil
}

// RelevantContext retrieves up to maxChunks chunks for the query and returns
// their joined text plus deduplicated "source (Page N)" citation strings.
func (s *Store) RelevantContext(ctx context.Context, query string, maxChunks int) (string, []string, error) {
	results, err := s.Search(ctx, query, maxChunks)
	if err != nil {
		return "", nil, err
	}
	if len(results) == 0 {
		return "", nil, nil
	}

	contextParts := make([]string, 0, len(results))
	var citations []string
	seen := make(map[string]bool)
	for _, r := range results {
		contextParts = append(contextParts, r.Chunk.Text)
		citation := fmt.Sprintf("%s (Page %d)", r.Chunk.Source, r.Chunk.Page)
		if !seen[citation] {
			seen[citation] = true
			citations = append(citations, citation)
		}
	}
	return strings.Join(contextParts, "\n\n"), citations, nil
}

// Count reports the number of indexed chunks.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Chunks returns a copy of the indexed chunk records.
func (s *Store) Chunks() []models.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Chunk(nil), s.chunks...)
}

// save persists the vector blob and the chunk records as two artifacts
// under the store directory. Failures are logged, not raised.
func (s *Store) save() {
	s.mu.RLock()
	vectors := s.vectors
	chunks := s.chunks
	s.mu.RUnlock()

	if err := writeGob(filepath.Join(s.dir, indexFile), vectors); err != nil {
		log.Warn().Err(err).Msg("error saving vector index")
		return
	}
	if err := writeGob(filepath.Join(s.dir, documentsFile), chunks); err != nil {
		log.Warn().Err(err).Msg("error saving chunk records")
		return
	}
	log.Info().Str("dir", s.dir).Msg("vector index saved")
}

// load restores prior persisted state if both artifacts are present and
// readable, otherwise leaves the index empty.
func (s *Store) load() {
	var vectors [][]float32
	var chunks []models.Chunk
	if err := readGob(filepath.Join(s.dir, indexFile), &vectors); err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("error loading vector index, starting empty")
		}
		return
	}
	if err := readGob(filepath.Join(s.dir, documentsFile), &chunks); err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("error loading chunk records, starting empty")
		}
		return
	}
	if len(vectors) != len(chunks) {
		log.Warn().Int("vectors", len(vectors)).Int("chunks", len(chunks)).
			Msg("persisted index is inconsistent, starting empty")
		return
	}

	s.mu.Lock()
	s.vectors = vectors
	s.chunks = chunks
	s.mu.Unlock()
	log.Info().Int("chunks", len(chunks)).Msg("loaded vector index")
}

func writeGob(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(v)
}

func readGob(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v)
}

// normalize scales v to unit L2 norm in place. A zero vector is left as is.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return
	}
	inv := float32(1 / norm)
	for i := range v {
		v[i] *= inv
	}
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
