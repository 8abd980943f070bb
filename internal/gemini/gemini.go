package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"medical-rag/internal/config"
	"medical-rag/internal/session"
)

const systemPrompt = `You are a specialized medical information assistant focused on drug and medication information.
Your role is to provide accurate, evidence-based information about medications, including:

- Prescribing information (dosage, administration, contraindications)
- Drug interactions and precautions
- Side effects and adverse reactions
- Patient-specific advice and safety information
- Therapeutic indications and usage guidelines

IMPORTANT GUIDELINES:
1. Only respond to medical and drug-related queries
2. Always provide citations from the source documents when available
3. If a question is not medical/drug-related, politely redirect the user
4. Never provide personal medical advice - always recommend consulting healthcare professionals
5. Be precise and factual, avoiding speculation
6. If information is not available in the provided context, clearly state this limitation

Format your responses with:
- Clear, structured information
- Proper citations in the format [Source: filename (Page X)]
- Appropriate medical disclaimers when necessary`

const refusalMessage = `I'm a specialized medical information assistant focused on drug and medication information.
I can only help with medical and drug-related queries such as:
- Medication dosages and administration
- Drug interactions and contraindications
- Side effects and precautions
- Prescribing information
- Patient safety information

Please ask a medical or drug-related question, and I'll be happy to help!`

// maximum history entries carried into the prompt, assistant turns truncated
const (
	historyLimit        = 3
	historyAssistantCap = 200
)

// Client generates chat responses with the hosted Gemini model. Out-of-domain
// queries are answered with a fixed redirect and never reach the model.
type Client struct {
	keywords []string
	call     func(ctx context.Context, prompt string) (string, error)
}

// New builds a Gemini-backed client. A missing API key is a fatal
// construction error.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	if cfg.Gemini.APIKey == "" {
		return nil, errors.New("GOOGLE_API_KEY not found in environment variables")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.Gemini.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	model := client.GenerativeModel(cfg.Gemini.Model)
	model.SetTemperature(cfg.Gemini.Temperature)
	model.SetMaxOutputTokens(cfg.Gemini.MaxOutputTokens)

	c := &Client{keywords: cfg.RAG.DomainKeywords}
	c.call = func(ctx context.Context, prompt string) (string, error) {
		return generateContent(ctx, model, prompt)
	}
	return c, nil
}

// InDomain reports whether the query mentions any configured domain keyword,
// case-insensitive.
func (c *Client) InDomain(query string) bool {
	lower := strings.ToLower(query)
	for _, kw := range c.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Refusal is the fixed redirect returned for out-of-domain queries.
func (c *Client) Refusal() string {
	return refusalMessage
}

// Generate produces a response for an in-domain query from the retrieved
// context, citations and recent history. A model call failure surfaces as a
// user-facing apology string, never as an error.
func (c *Client) Generate(ctx context.Context, query, contextText string, citations []string, history []session.Entry) string {
	if !c.InDomain(query) {
		return refusalMessage
	}

	prompt := buildPrompt(query, contextText, citations, history)
	text, err := c.call(ctx, prompt)
	if err != nil {
		return fmt.Sprintf("I apologize, but I encountered an error while processing your request: %v. Please try again or rephrase your question.", err)
	}
	return text
}

func buildPrompt(query, contextText string, citations []string, history []session.Entry) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nContext from medical documents:\n")
	b.WriteString(contextText)

	if len(citations) > 0 {
		b.WriteString("\n\nAvailable sources: ")
		b.WriteString(strings.Join(citations, ", "))
	}

	if len(history) > 0 {
		if len(history) > historyLimit {
			history = history[len(history)-historyLimit:]
		}
		b.WriteString("\n\nPrevious conversation context:\n")
		for _, e := range history {
			b.WriteString("User: " + e.UserMessage + "\n")
			b.WriteString("Assistant: " + truncate(e.AssistantResponse, historyAssistantCap) + "\n\n")
		}
	}

	b.WriteString("\nUser Question: ")
	b.WriteString(query)
	b.WriteString("\n\nPlease provide a comprehensive response based on the available context. Include proper citations for any information you reference from the documents.")
	return b.String()
}

func generateContent(ctx context.Context, model *genai.GenerativeModel, prompt string) (string, error) {
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response from model")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
