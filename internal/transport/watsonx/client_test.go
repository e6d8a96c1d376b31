package watsonx

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/celiksa/ocr-entity-extraction/internal/domain"
)

var testContract = domain.ExtractionContract{
	SystemPrompt: "Extract entities as JSON.",
	ModelID:      "mistralai/mistral-medium-2505",
	MaxTokens:    16000,
	Temperature:  0.1,
	TopP:         0.95,
}

var testPage = domain.PageImage{Number: 1, PNG: []byte{0x89, 'P', 'N', 'G'}}

var testCred = domain.Credential{Token: "bearer-tok", Expiry: time.Now().Add(time.Hour)}

func TestExtract_RequestShape(t *testing.T) {
	var captured chatRequest
	var authHeader string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ml/v1/text/chat" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("version"); got != "2023-05-29" {
			t.Errorf("unexpected version %q", got)
		}
		authHeader = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"document_type\":\"invoice\"}"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, ProjectID: "proj-123", Logger: zap.NewNop()})

	out, err := c.Extract(t.Context(), testPage, testContract, testCred)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"document_type":"invoice"}` {
		t.Errorf("unexpected content %q", out)
	}

	if authHeader != "Bearer bearer-tok" {
		t.Errorf("unexpected Authorization header %q", authHeader)
	}
	if captured.ProjectID != "proj-123" {
		t.Errorf("unexpected project_id %q", captured.ProjectID)
	}
	if captured.ModelID != testContract.ModelID {
		t.Errorf("unexpected model_id %q", captured.ModelID)
	}
	if captured.MaxTokens != 16000 || captured.Temperature != 0.1 || captured.TopP != 0.95 {
		t.Errorf("unexpected sampling parameters: %+v", captured)
	}

	if len(captured.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" {
		t.Errorf("first turn role %q", captured.Messages[0].Role)
	}
	if got, ok := captured.Messages[0].Content.(string); !ok || got != testContract.SystemPrompt {
		t.Errorf("system content must be a plain string, got %v", captured.Messages[0].Content)
	}

	if captured.Messages[1].Role != "user" {
		t.Errorf("second turn role %q", captured.Messages[1].Role)
	}
	parts, ok := captured.Messages[1].Content.([]any)
	if !ok || len(parts) != 2 {
		t.Fatalf("user content must be a two-part list, got %v", captured.Messages[1].Content)
	}
	img, _ := parts[1].(map[string]any)
	imgURL, _ := img["image_url"].(map[string]any)
	uri, _ := imgURL["url"].(string)
	wantURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(testPage.PNG)
	if uri != wantURI {
		t.Errorf("unexpected image data URI %q", uri)
	}
}

func TestExtract_RemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"errors":[{"message":"rate limited"}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, ProjectID: "p", Logger: zap.NewNop()})

	_, err := c.Extract(t.Context(), testPage, testContract, testCred)
	if !errors.Is(err, domain.ErrRemoteService) {
		t.Fatalf("expected ErrRemoteService, got %v", err)
	}

	var remoteErr *domain.RemoteServiceError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected *RemoteServiceError, got %T", err)
	}
	if remoteErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", remoteErr.StatusCode)
	}
	if !strings.Contains(remoteErr.Detail, "rate limited") {
		t.Errorf("detail must carry the response body, got %q", remoteErr.Detail)
	}
}

func TestExtract_ProtocolErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>gateway timeout</html>`},
		{"no choices", `{"choices":[]}`},
		{"empty content", `{"choices":[{"message":{"content":""}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(Config{BaseURL: srv.URL, ProjectID: "p", Logger: zap.NewNop()})

			_, err := c.Extract(t.Context(), testPage, testContract, testCred)
			if !errors.Is(err, domain.ErrProtocol) {
				t.Fatalf("expected ErrProtocol, got %v", err)
			}
		})
	}
}
