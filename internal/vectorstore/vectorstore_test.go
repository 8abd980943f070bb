package vectorstore

import (
	"context"
	"errors"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medical-rag/internal/models"
)

// fakeEmbedder returns fixed vectors for known texts and a deterministic
// bag-of-words vector otherwise.
type fakeEmbedder struct {
	fixed     map[string][]float32
	failQuery bool
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = f.vector(t)
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if f.failQuery {
		return nil, errors.New("embedding backend unavailable")
	}
	return f.vector(text), nil
}

func (f *fakeEmbedder) vector(text string) []float32 {
	if v, ok := f.fixed[text]; ok {
		return append([]float32(nil), v...)
	}
	v := make([]float32, 8)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(strings.Trim(w, ".,?!")))
		v[h.Sum32()%8]++
	}
	return v
}

func chunk(id, text string) models.Chunk {
	return models.Chunk{Text: text, Source: "doc.pdf", Page: 1, ChunkID: id}
}

func TestSearchOrdering(t *testing.T) {
	emb := &fakeEmbedder{fixed: map[string][]float32{
		"alpha": {1, 0, 0},
		"beta":  {0, 1, 0},
		"gamma": {1, 1, 0},
		"query": {1, 0, 0},
	}}
	s := New(emb, t.TempDir(), 3)
	require.NoError(t, s.Build(context.Background(), []models.Chunk{
		chunk("a", "alpha"), chunk("b", "beta"), chunk("g", "gamma"),
	}))

	results, err := s.Search(context.Background(), "query", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Chunk.ChunkID)
	assert.Equal(t, "g", results[1].Chunk.ChunkID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)

	// k larger than the index returns everything, still ordered
	results, err = s.Search(context.Background(), "query", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	s := New(&fakeEmbedder{}, t.TempDir(), 8)

	results, err := s.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBuildEmptyKeepsPriorState(t *testing.T) {
	s := New(&fakeEmbedder{}, t.TempDir(), 8)
	require.NoError(t, s.Build(context.Background(), []models.Chunk{chunk("a", "alpha")}))

	require.NoError(t, s.Build(context.Background(), nil))
	assert.Equal(t, 1, s.Count())
}

func TestUpdateEmptyIsIdempotent(t *testing.T) {
	s := New(&fakeEmbedder{}, t.TempDir(), 8)
	require.NoError(t, s.Build(context.Background(), []models.Chunk{chunk("a", "alpha"), chunk("b", "beta")}))

	before, err := s.Search(context.Background(), "alpha", 2)
	require.NoError(t, err)

	require.NoError(t, s.Update(context.Background(), nil))
	assert.Equal(t, 2, s.Count())

	after, err := s.Search(context.Background(), "alpha", 2)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUpdateKeepsDuplicates(t *testing.T) {
	s := New(&fakeEmbedder{}, t.TempDir(), 8)
	chunks := []models.Chunk{chunk("a", "alpha"), chunk("b", "beta")}
	require.NoError(t, s.Build(context.Background(), chunks))
	require.NoError(t, s.Update(context.Background(), chunks))

	// rebuilds do not deduplicate chunk ids
	assert.Equal(t, 4, s.Count())
}

func TestPersistReloadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	emb := &fakeEmbedder{}
	s := New(emb, dir, 8)
	require.NoError(t, s.Build(context.Background(), []models.Chunk{
		chunk("a", "dosage information"), chunk("b", "storage advice"), chunk("c", "side effects"),
	}))

	reloaded := New(emb, dir, 8)
	assert.Equal(t, 3, reloaded.Count())

	want, err := s.Search(context.Background(), "dosage", 3)
	require.NoError(t, err)
	got, err := reloaded.Search(context.Background(), "dosage", 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadCorruptStateFallsBackToEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, indexFile), []byte("garbage"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, documentsFile), []byte("garbage"), 0o644))

	s := New(&fakeEmbedder{}, dir, 8)
	assert.Equal(t, 0, s.Count())

	results, err := s.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRelevantContextDeduplicatesCitations(t *testing.T) {
	s := New(&fakeEmbedder{}, t.TempDir(), 8)
	require.NoError(t, s.Build(context.Background(), []models.Chunk{
		{Text: "dosage part one", Source: "humira.pdf", Page: 1, ChunkID: "c1"},
		{Text: "dosage part two", Source: "humira.pdf", Page: 1, ChunkID: "c2"},
		{Text: "dosage details", Source: "humira.pdf", Page: 2, ChunkID: "c3"},
	}))

	contextText, citations, err := s.RelevantContext(context.Background(), "dosage", 5)
	require.NoError(t, err)
	assert.Contains(t, contextText, "dosage part one")
	assert.Contains(t, contextText, "\n\n")
	assert.ElementsMatch(t, []string{"humira.pdf (Page 1)", "humira.pdf (Page 2)"}, citations)
}

func TestSearchQueryEncodeError(t *testing.T) {
	emb := &fakeEmbedder{}
	s := New(emb, t.TempDir(), 8)
	require.NoError(t, s.Build(context.Background(), []models.Chunk{chunk("a", "alpha")}))

	emb.failQuery = true
	_, err := s.Search(context.Background(), "alpha", 1)
	require.Error(t, err)
}
