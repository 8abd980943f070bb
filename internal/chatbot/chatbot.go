package chatbot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"medical-rag/internal/config"
	"medical-rag/internal/models"
	"medical-rag/internal/pdfproc"
	"medical-rag/internal/session"
	"medical-rag/internal/vectorstore"
)

const notInitializedMessage = "Chatbot is not initialized. Please initialize with PDF documents first."

// Generator produces chat responses and gates out-of-domain queries.
type Generator interface {
	InDomain(query string) bool
	Refusal() string
	Generate(ctx context.Context, query, contextText string, citations []string, history []session.Entry) string
}

// Chatbot wires the document processor, vector store, response generator and
// session store into the chat, ingestion and search operations.
type Chatbot struct {
	processor   *pdfproc.Processor
	store       *vectorstore.Store
	generator   Generator
	sessions    *session.Manager
	cfg         *config.Config
	initialized atomic.Bool
}

func New(processor *pdfproc.Processor, store *vectorstore.Store, generator Generator, sessions *session.Manager, cfg *config.Config) *Chatbot {
	return &Chatbot{
		processor: processor,
		store:     store,
		generator: generator,
		sessions:  sessions,
		cfg:       cfg,
	}
}

// Initialize ingests every PDF in dir and builds the vector index. When no
// chunks are found the chatbot still becomes initialized, keeping whatever
// index state was reloaded from disk.
func (b *Chatbot) Initialize(ctx context.Context, dir string) error {
	log.Info().Str("dir", dir).Msg("initializing chatbot")

	chunks := b.processor.ExtractAll(dir)
	if len(chunks) == 0 {
		log.Warn().Msg("no documents found, chatbot will have limited functionality")
		b.initialized.Store(true)
		return nil
	}

	if err := b.store.Build(ctx, chunks); err != nil {
		return fmt.Errorf("building index: %w", err)
	}
	b.initialized.Store(true)
	log.Info().Int("chunks", len(chunks)).Msg("chatbot initialized")
	return nil
}

// Initialized reports whether Initialize has completed.
func (b *Chatbot) Initialized() bool {
	return b.initialized.Load()
}

// AddPDF ingests a single PDF into the knowledge base. Failures are reported
// as a (false, message) pair and leave the index unchanged.
func (b *Chatbot) AddPDF(ctx context.Context, path string) (bool, string) {
	if _, err := os.Stat(path); err != nil {
		return false, fmt.Sprintf("PDF file not found: %s", path)
	}

	chunks := b.processor.Extract(path)
	if len(chunks) == 0 {
		return false, "Failed to extract text from PDF"
	}

	if err := b.store.Update(ctx, chunks); err != nil {
		return false, fmt.Sprintf("Error adding PDF: %v", err)
	}
	return true, fmt.Sprintf("Successfully added %d chunks from %s", len(chunks), filepath.Base(path))
}

// Chat processes one user message within a session. The turn is always
// recorded once the chatbot is initialized, including on internal failure,
// so conversational continuity survives errors. Callers must adopt the
// returned session id, which may differ from the one passed in.
func (b *Chatbot) Chat(ctx context.Context, sessionID, userMessage string) models.TurnResult {
	if !b.Initialized() {
		return models.TurnResult{
			Response:  notInitializedMessage,
			Citations: []string{},
			SessionID: sessionID,
			Error:     true,
		}
	}

	if !b.sessions.Exists(sessionID) {
		sessionID = b.sessions.Create()
	}

	if !b.generator.InDomain(userMessage) {
		response := b.generator.Refusal()
		b.sessions.Append(sessionID, userMessage, response, nil)
		return models.TurnResult{
			Response:  response,
			Citations: []string{},
			SessionID: sessionID,
		}
	}

	contextText, citations, err := b.store.RelevantContext(ctx, userMessage, b.cfg.RAG.MaxContextChunks)
	if err != nil {
		log.Error().Err(err).Msg("error retrieving context")
		response := fmt.Sprintf("I apologize, but I encountered an error: %v", err)
		b.sessions.Append(sessionID, userMessage, response, nil)
		return models.TurnResult{
			Response:  response,
			Citations: []string{},
			SessionID: sessionID,
			Error:     true,
		}
	}

	history := b.sessions.History(sessionID, 3)
	response := b.generator.Generate(ctx, userMessage, contextText, citations, history)
	b.sessions.Append(sessionID, userMessage, response, citations)

	if citations == nil {
		citations = []string{}
	}
	return models.TurnResult{
		Response:     response,
		Citations:    citations,
		SessionID:    sessionID,
		ContextFound: contextText != "",
	}
}

// CreateSession starts a fresh chat session.
func (b *Chatbot) CreateSession() string {
	return b.sessions.Create()
}

// History returns the full conversation history of a session.
func (b *Chatbot) History(sessionID string) []session.Entry {
	return b.sessions.History(sessionID, 0)
}

// ClearSession resets a session's conversation history.
func (b *Chatbot) ClearSession(sessionID string) {
	b.sessions.Clear(sessionID)
}

// SessionStats reports counters for one session.
func (b *Chatbot) SessionStats(sessionID string) (session.Stats, bool) {
	return b.sessions.Stats(sessionID)
}

// ExpireSessions removes sessions idle longer than maxAge and returns the
// count removed.
func (b *Chatbot) ExpireSessions(maxAge time.Duration) int {
	return b.sessions.Expire(maxAge)
}

// Documents summarizes the indexed chunks grouped by source file.
func (b *Chatbot) Documents() []models.DocumentSummary {
	type group struct {
		chunks int
		pages  map[int]bool
	}
	groups := make(map[string]*group)
	for _, c := range b.store.Chunks() {
		g, ok := groups[c.Source]
		if !ok {
			g = &group{pages: make(map[int]bool)}
			groups[c.Source] = g
		}
		g.chunks++
		g.pages[c.Page] = true
	}

	summaries := make([]models.DocumentSummary, 0, len(groups))
	for source, g := range groups {
		minPage, maxPage := 0, 0
		for p := range g.pages {
			if minPage == 0 || p < minPage {
				minPage = p
			}
			if p > maxPage {
				maxPage = p
			}
		}
		summaries = append(summaries, models.DocumentSummary{
			Filename:    source,
			TotalChunks: g.chunks,
			TotalPages:  len(g.pages),
			PageRange:   fmt.Sprintf("%d-%d", minPage, maxPage),
		})
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Filename < summaries[j].Filename })
	return summaries
}

// SearchDocuments returns ranked snippets for a query, each truncated to 200
// characters.
func (b *Chatbot) SearchDocuments(ctx context.Context, query string, limit int) []models.SearchHit {
	if !b.Initialized() {
		return nil
	}
	if limit <= 0 {
		limit = b.cfg.RAG.TopK
	}

	results, err := b.store.Search(ctx, query, limit)
	if err != nil {
		log.Error().Err(err).Msg("error searching documents")
		return nil
	}

	hits := make([]models.SearchHit, 0, len(results))
	for _, r := range results {
		text := r.Chunk.Text
		if len(text) > 200 {
			text = text[:200] + "..."
		}
		hits = append(hits, models.SearchHit{
			Text:            text,
			Source:          r.Chunk.Source,
			Page:            r.Chunk.Page,
			SimilarityScore: r.Score,
			ChunkID:         r.Chunk.ChunkID,
		})
	}
	return hits
}

// Status reports system state and statistics.
func (b *Chatbot) Status() models.SystemStatus {
	return models.SystemStatus{
		Initialized:        b.Initialized(),
		TotalChunks:        b.store.Count(),
		ActiveSessions:     b.sessions.Count(),
		AvailableDocuments: len(b.Documents()),
	}
}
