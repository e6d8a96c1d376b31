// Package watsonx implements the per-page extraction call against the
// watsonx.ai multimodal chat API.
package watsonx

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/celiksa/ocr-entity-extraction/internal/domain"
	"github.com/celiksa/ocr-entity-extraction/internal/metrics"
)

const chatPath = "/ml/v1/text/chat?version=2023-05-29"

// Config holds the remote model endpoint settings.
type Config struct {
	BaseURL   string
	ProjectID string
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Client sends one synchronous chat request per page. Pages are never batched:
// per-page failure stays isolated and response size stays bounded.
type Client struct {
	baseURL    string
	projectID  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a watsonx chat client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Minute
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		projectID:  cfg.ProjectID,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
	}
}

// chatMessage content is a plain string for the system turn and a part list
// for the user turn, matching the watsonx chat schema.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Messages         []chatMessage `json:"messages"`
	ProjectID        string        `json:"project_id"`
	ModelID          string        `json:"model_id"`
	FrequencyPenalty float64       `json:"frequency_penalty"`
	MaxTokens        int           `json:"max_tokens"`
	PresencePenalty  float64       `json:"presence_penalty"`
	Temperature      float64       `json:"temperature"`
	TopP             float64       `json:"top_p"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Extract sends one page image with the fixed instruction contract and returns
// the model's raw textual output. Non-2xx responses fail with a
// *domain.RemoteServiceError; a success response missing the content field
// fails wrapping domain.ErrProtocol. No automatic retry.
func (c *Client) Extract(
	ctx context.Context,
	page domain.PageImage,
	contract domain.ExtractionContract,
	cred domain.Credential,
) (string, error) {
	body, err := json.Marshal(c.buildRequest(page, contract))
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+cred.Token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ModelRequestsTotal.WithLabelValues(contract.ModelID, "error").Inc()
		return "", fmt.Errorf("chat request: %v: %w", err, domain.ErrRemoteService)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ModelRequestsTotal.WithLabelValues(contract.ModelID, "error").Inc()
		return "", fmt.Errorf("read chat response: %v: %w", err, domain.ErrRemoteService)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.ModelRequestsTotal.WithLabelValues(contract.ModelID, "error").Inc()
		c.logger.Error("Model API error",
			zap.Int("status", resp.StatusCode),
			zap.Int("page", page.Number),
			zap.ByteString("body", respBody),
		)
		return "", domain.NewRemoteServiceError(resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		metrics.ModelRequestsTotal.WithLabelValues(contract.ModelID, "error").Inc()
		return "", fmt.Errorf("parse chat response: %v: %w", err, domain.ErrProtocol)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		metrics.ModelRequestsTotal.WithLabelValues(contract.ModelID, "error").Inc()
		return "", fmt.Errorf("response has no message content: %w", domain.ErrProtocol)
	}

	metrics.ModelRequestsTotal.WithLabelValues(contract.ModelID, "success").Inc()
	metrics.ModelRequestDuration.WithLabelValues(contract.ModelID).Observe(time.Since(start).Seconds())

	return parsed.Choices[0].Message.Content, nil
}

// buildRequest embeds the page image as a base64 data URI into the two-turn
// chat payload: a system turn with the taxonomy instruction and a user turn
// with the directive plus the image reference.
func (c *Client) buildRequest(page domain.PageImage, contract domain.ExtractionContract) chatRequest {
	dataURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(page.PNG)

	return chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: contract.SystemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: domain.UserDirective},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURI}},
			}},
		},
		ProjectID:        c.projectID,
		ModelID:          contract.ModelID,
		FrequencyPenalty: contract.FrequencyPenalty,
		MaxTokens:        contract.MaxTokens,
		PresencePenalty:  contract.PresencePenalty,
		Temperature:      contract.Temperature,
		TopP:             contract.TopP,
	}
}
