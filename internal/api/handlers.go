package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"medical-rag/internal/chatbot"
	"medical-rag/internal/models"
)

// Handler holds the endpoint implementations over the chatbot orchestrator.
type Handler struct {
	bot *chatbot.Chatbot
}

func NewHandler(bot *chatbot.Chatbot) *Handler {
	return &Handler{bot: bot}
}

// ChatRequest is the chat turn input contract.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// Chat handles one chat turn.
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty message"})
		return
	}

	result := h.bot.Chat(c.Request.Context(), req.SessionID, req.Message)
	c.JSON(http.StatusOK, result)
}

// IngestRequest is the document ingestion input contract.
type IngestRequest struct {
	Path string `json:"path" binding:"required"`
}

// IngestDocument adds a single PDF to the knowledge base.
func (h *Handler) IngestDocument(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ok, msg := h.bot.AddPDF(c.Request.Context(), req.Path)
	c.JSON(http.StatusOK, gin.H{"success": ok, "message": msg})
}

// ListDocuments summarizes the indexed documents.
func (h *Handler) ListDocuments(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"documents": h.bot.Documents()})
}

// Search returns ranked snippets for a query.
func (h *Handler) Search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	hits := h.bot.SearchDocuments(c.Request.Context(), query, limit)
	if hits == nil {
		hits = []models.SearchHit{}
	}
	c.JSON(http.StatusOK, gin.H{"results": hits})
}

// CreateSession starts a new chat session.
func (h *Handler) CreateSession(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"session_id": h.bot.CreateSession()})
}

// SessionHistory returns the conversation history of a session.
func (h *Handler) SessionHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"history": h.bot.History(c.Param("id"))})
}

// SessionStats reports counters for one session.
func (h *Handler) SessionStats(c *gin.Context) {
	stats, ok := h.bot.SessionStats(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ClearSession resets a session's history.
func (h *Handler) ClearSession(c *gin.Context) {
	id := c.Param("id")
	h.bot.ClearSession(id)
	c.JSON(http.StatusOK, gin.H{"message": "session cleared", "session_id": id})
}

// ExpireRequest configures session expiry.
type ExpireRequest struct {
	MaxAgeHours int `json:"max_age_hours"`
}

// ExpireSessions removes sessions idle longer than the requested age.
func (h *Handler) ExpireSessions(c *gin.Context) {
	req := ExpireRequest{MaxAgeHours: 24}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MaxAgeHours <= 0 {
		req.MaxAgeHours = 24
	}

	removed := h.bot.ExpireSessions(time.Duration(req.MaxAgeHours) * time.Hour)
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// Health reports service status.
func (h *Handler) Health(c *gin.Context) {
	status := h.bot.Status()
	state := "healthy"
	if !status.Initialized {
		state = "unhealthy"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    state,
		"details":   status,
		"timestamp": time.Now().UTC(),
	})
}
