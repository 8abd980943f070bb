package models

// Chunk is a bounded span of extracted page text plus its source metadata.
// Chunks are immutable once created and live as long as the index entry
// they back.
type Chunk struct {
	Text    string `json:"text"`
	Source  string `json:"source"`
	Page    int    `json:"page"`
	ChunkID string `json:"chunk_id"`
}

// SearchResult pairs an indexed chunk with its cosine similarity score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// TurnResult is the structured reply for a single chat turn.
type TurnResult struct {
	Response     string   `json:"response"`
	Citations    []string `json:"citations"`
	SessionID    string   `json:"session_id"`
	ContextFound bool     `json:"context_found"`
	Error        bool     `json:"error"`
}

// DocumentSummary describes the indexed chunks of one source file.
type DocumentSummary struct {
	Filename    string `json:"filename"`
	TotalChunks int    `json:"total_chunks"`
	TotalPages  int    `json:"total_pages"`
	PageRange   string `json:"page_range"`
}

// SearchHit is one ranked snippet returned by document search.
type SearchHit struct {
	Text            string  `json:"text"`
	Source          string  `json:"source"`
	Page            int     `json:"page"`
	SimilarityScore float64 `json:"similarity_score"`
	ChunkID         string  `json:"chunk_id"`
}

// SystemStatus reports orchestrator state and index statistics.
type SystemStatus struct {
	Initialized        bool `json:"initialized"`
	TotalChunks        int  `json:"total_chunks"`
	ActiveSessions     int  `json:"active_sessions"`
	AvailableDocuments int  `json:"available_documents"`
}
