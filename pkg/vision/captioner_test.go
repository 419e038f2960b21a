package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRequiresAPIKey(t *testing.T) {
	captioner := NewCaptioner(CaptionerConfig{})
	_, err := captioner.Generate(context.Background(), &CaptionRequest{ImageBase64: "aGk="})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewCaptionerDefaults(t *testing.T) {
	captioner := NewCaptioner(CaptionerConfig{APIKey: "sk-test"})
	assert.Equal(t, "gpt-4o", captioner.model)
	assert.Equal(t, 300, captioner.maxTokens)
}

func TestGenerate(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Authorization"), "sk-test")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [{"index":0,"message":{"role":"assistant","content":"  A red barn at sunset.  "},"finish_reason":"stop"}]
		}`))
	}))
	defer server.Close()

	captioner := NewCaptioner(CaptionerConfig{
		APIKey:  "sk-test",
		BaseURL: server.URL + "/v1",
	})
	got, err := captioner.Generate(context.Background(), &CaptionRequest{
		ImageBase64: "aGVsbG8=",
		ImageURL:    "https://site.example/barn.jpg",
		Filename:    "barn.jpg",
		Language:    "en",
	})
	require.NoError(t, err)
	assert.Equal(t, "A red barn at sunset.", got, "model output is trimmed")

	assert.Equal(t, "gpt-4o", gotBody["model"])
	assert.Equal(t, float64(300), gotBody["max_tokens"])

	// The single user message carries the prompt text plus the inline
	// image payload.
	messages := gotBody["messages"].([]interface{})
	require.Len(t, messages, 1)
	content := messages[0].(map[string]interface{})["content"].([]interface{})
	require.Len(t, content, 2)

	text := content[0].(map[string]interface{})["text"].(string)
	assert.Contains(t, text, "barn.jpg")

	imagePart := content[1].(map[string]interface{})["image_url"].(map[string]interface{})
	url := imagePart["url"].(string)
	assert.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"), "image sent as data URL")
	assert.Contains(t, url, "aGVsbG8=")
}

func TestGenerateUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	captioner := NewCaptioner(CaptionerConfig{APIKey: "sk-bad", BaseURL: server.URL + "/v1"})
	_, err := captioner.Generate(context.Background(), &CaptionRequest{ImageBase64: "aGk="})
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Contains(t, upstream.Message, "Incorrect API key")
}

func TestGenerateEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	captioner := NewCaptioner(CaptionerConfig{APIKey: "sk-test", BaseURL: server.URL + "/v1"})
	_, err := captioner.Generate(context.Background(), &CaptionRequest{ImageBase64: "aGk="})
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
}
