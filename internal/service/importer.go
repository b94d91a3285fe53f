package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"github.com/appetora/backend/config"
)

var (
	// ErrNotEnoughText means the source page or upload yielded too little
	// content to attempt an extraction.
	ErrNotEnoughText = errors.New("could not extract enough text")

	// ErrUnreadableRecipe means the model answered but found no recipe.
	ErrUnreadableRecipe = errors.New("source did not contain a readable recipe")

	// ErrEmptyModelResponse means the model returned no content at all.
	ErrEmptyModelResponse = errors.New("empty model response")
)

// minSourceLength guards against feeding the model a near-empty page.
const minSourceLength = 80

// maxSourceLength caps how much page text is sent per extraction.
const maxSourceLength = 12000

// ExtractedRecipe is the structured result of an AI import.
type ExtractedRecipe struct {
	Name         string   `json:"name"`
	Category     string   `json:"category,omitempty"`
	Ingredients  []string `json:"ingredients"`
	Instructions string   `json:"instructions"`
}

// TokenUsage reports the units consumed by one extraction call.
type TokenUsage struct {
	InputUnits  int64
	OutputUnits int64
}

// ImportService extracts structured recipes from web pages, raw text and
// photos via an OpenAI-compatible chat-completions endpoint.
type ImportService struct {
	apiKey string
	apiURL string
	model  string
	client *http.Client
}

func NewImportService(cfg *config.Config) *ImportService {
	return &ImportService{
		apiKey: cfg.AIAPIKey,
		apiURL: cfg.AIAPIURL,
		model:  cfg.AIModel,
		// The model call carries its own timeout, independent of the
		// usage bookkeeping around it.
		client: &http.Client{Timeout: cfg.ImportTimeout},
	}
}

// chatMessage is one message in a chat-completions request. Content is
// either a plain string or a list of content parts for image input.
type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
	Temperature    float64           `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
}

const extractionSystemPrompt = `You are a culinary extraction assistant. Extract the main recipe from the provided content and respond ONLY with JSON like {"name":"","category":"","ingredients":[""],"instructions":""}. Do not invent fields that are missing; leave them empty. Do not translate the source language.`

// ExtractFromText runs the extraction over raw recipe text.
func (s *ImportService) ExtractFromText(ctx context.Context, source, origin string) (*ExtractedRecipe, TokenUsage, error) {
	if len(strings.TrimSpace(source)) < minSourceLength {
		return nil, TokenUsage{}, ErrNotEnoughText
	}
	if len(source) > maxSourceLength {
		// Back up to a rune boundary so the cut never produces a
		// malformed UTF-8 tail.
		cut := maxSourceLength
		for cut > 0 && !utf8.RuneStart(source[cut]) {
			cut--
		}
		source = source[:cut]
	}

	if origin == "" {
		origin = "(text upload)"
	}
	userPrompt := fmt.Sprintf("SOURCE: %s\n\nCONTENT:\n%s\n\nExtract the main recipe.", origin, source)

	messages := []chatMessage{
		{Role: "system", Content: extractionSystemPrompt},
		{Role: "user", Content: userPrompt},
	}
	return s.extract(ctx, messages)
}

// ExtractFromURL fetches the page, reduces it to text and runs the
// extraction over it.
func (s *ImportService) ExtractFromURL(ctx context.Context, pageURL string) (*ExtractedRecipe, TokenUsage, error) {
	text, err := s.fetchPageText(ctx, pageURL)
	if err != nil {
		return nil, TokenUsage{}, err
	}
	return s.ExtractFromText(ctx, text, pageURL)
}

// ExtractFromImage runs the extraction over a photo supplied as a data URL.
func (s *ImportService) ExtractFromImage(ctx context.Context, dataURL string) (*ExtractedRecipe, TokenUsage, error) {
	prompt := "Extract the recipe fields from the attached image, in the language of the text in the photo: " +
		"name, category (if present), ingredients (one per line) and instructions. " +
		"Do not invent anything; leave missing fields empty. Respond ONLY with JSON."

	messages := []chatMessage{
		{Role: "user", Content: []contentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &imageRef{URL: dataURL}},
		}},
	}
	return s.extract(ctx, messages)
}

func (s *ImportService) extract(ctx context.Context, messages []chatMessage) (*ExtractedRecipe, TokenUsage, error) {
	reqBody := chatRequest{
		Model:          s.model,
		Messages:       messages,
		ResponseFormat: map[string]string{"type": "json_object"},
		Temperature:    0.1,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, TokenUsage{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, TokenUsage{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, TokenUsage{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, TokenUsage{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, TokenUsage{}, fmt.Errorf("model request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, TokenUsage{}, fmt.Errorf("failed to decode response: %w", err)
	}
	usage := TokenUsage{
		InputUnits:  result.Usage.PromptTokens,
		OutputUnits: result.Usage.CompletionTokens,
	}

	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return nil, usage, ErrEmptyModelResponse
	}

	recipe, err := parseExtraction(result.Choices[0].Message.Content)
	if err != nil {
		return nil, usage, err
	}
	return recipe, usage, nil
}

func parseExtraction(content string) (*ExtractedRecipe, error) {
	var recipe ExtractedRecipe
	if err := json.Unmarshal([]byte(content), &recipe); err != nil {
		// Salvage a trailing JSON object when the model wrapped it in prose.
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("failed to parse model output: %w", err)
		}
		if err := json.Unmarshal([]byte(content[start:end+1]), &recipe); err != nil {
			return nil, fmt.Errorf("failed to parse model output: %w", err)
		}
	}

	recipe.Name = strings.TrimSpace(recipe.Name)
	recipe.Category = strings.TrimSpace(recipe.Category)
	recipe.Instructions = strings.TrimSpace(recipe.Instructions)
	cleaned := make([]string, 0, len(recipe.Ingredients))
	for _, ing := range recipe.Ingredients {
		if ing = strings.TrimSpace(ing); ing != "" {
			cleaned = append(cleaned, ing)
		}
	}
	recipe.Ingredients = cleaned

	if recipe.Name == "" && len(recipe.Ingredients) == 0 && recipe.Instructions == "" {
		return nil, ErrUnreadableRecipe
	}
	return &recipe, nil
}

// fetchPageText downloads a page and reduces its HTML to readable text.
func (s *ImportService) fetchPageText(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 AppetoraBot/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch failed (%d)", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}
	return htmlToText(doc), nil
}

// htmlToText walks the parse tree collecting visible text.
func htmlToText(doc *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				b.WriteString(text)
				b.WriteByte('\n')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return b.String()
}
