package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Vision models on a laptop can take a while per receipt
const ollamaTimeout = 120 * time.Second

const ollamaSystemPrompt = "Tu es expert en lecture de tickets de caisse et de factures."

// Ollama reads receipts with a vision model served by Ollama.
// llava and qwen2-vl both read receipts well.
type Ollama struct {
	chatURL string
	model   string
	client  *http.Client
}

// NewOllama targets the Ollama chat API at baseURL
func NewOllama(baseURL string, modelName string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llava"
	}

	return &Ollama{
		chatURL: strings.TrimSuffix(baseURL, "/") + "/api/chat",
		model:   modelName,
		client:  &http.Client{Timeout: ollamaTimeout},
	}, nil
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// ask posts one non-streaming chat turn with the receipt attached
func (o *Ollama) ask(ctx context.Context, png []byte) (string, error) {
	body, err := json.Marshal(ollamaChatRequest{
		Model:  o.model,
		Format: "json",
		Messages: []ollamaMessage{
			{Role: "system", Content: ollamaSystemPrompt},
			{Role: "user", Content: scanPrompt, Images: []string{base64.StdEncoding.EncodeToString(png)}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.chatURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, msg)
	}

	var chat ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return chat.Message.Content, nil
}

// ScanReceipt implements Scanner
func (o *Ollama) ScanReceipt(ctx context.Context, data []byte, contentType string) (*Suggestion, error) {
	return scan(ctx, ollamaTimeout, o.ask, data, contentType)
}

// Close is a no-op; the HTTP client holds no resources
func (o *Ollama) Close() error {
	return nil
}
