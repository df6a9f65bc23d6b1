package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tbqa/internal/core/domain"
	"github.com/custodia-labs/tbqa/internal/core/ports/driven"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewLLMService(LLMConfig{BaseURL: srv.URL, Model: "qwen-test", RequestsPerSecond: 1000})
}

func TestNewLLMService_Defaults(t *testing.T) {
	svc := NewLLMService(LLMConfig{})

	assert.Equal(t, DefaultBaseURL, svc.baseURL)
	assert.Equal(t, DefaultLLMModel, svc.ModelName())
}

func TestNewLLMService_DropsOpenAISuffix(t *testing.T) {
	svc := NewLLMService(LLMConfig{BaseURL: "http://gpu:11434/v1/"})

	assert.Equal(t, "http://gpu:11434", svc.baseURL)
}

func TestLLMService_Chat_SendsRequest(t *testing.T) {
	var got map[string]any
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": `{"intent": "Target"}`},
			"done":    true,
		})
	})

	content, err := svc.Chat(context.Background(), []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: "classify"},
		{Role: driven.RoleUser, Content: "What are its targets?"},
	}, driven.ChatOptions{MaxTokens: 128, JSONMode: true})

	require.NoError(t, err)
	assert.Equal(t, `{"intent": "Target"}`, content)
	assert.Equal(t, "qwen-test", got["model"])
	assert.Equal(t, false, got["stream"])
	assert.Equal(t, "json", got["format"])
	opts := got["options"].(map[string]any)
	assert.Equal(t, 0.0, opts["temperature"], "zero temperature is sent explicitly")
	assert.Equal(t, 128.0, opts["num_predict"])
	assert.Len(t, got["messages"], 2)
}

func TestLLMService_Chat_PlainTextOmitsFormat(t *testing.T) {
	var got map[string]any
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{"message": map[string]string{"content": "Rv1484"}})
	})

	content, err := svc.Generate(context.Background(), "targets?", driven.GenerateOptions{StopWords: []string{"\n"}})

	require.NoError(t, err)
	assert.Equal(t, "Rv1484", content)
	assert.NotContains(t, got, "format")
	assert.Equal(t, []any{"\n"}, got["options"].(map[string]any)["stop"])
}

func TestLLMService_Chat_ErrorStatus(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	})

	_, err := svc.Chat(context.Background(), nil, driven.ChatOptions{})

	require.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.Contains(t, err.Error(), "model not found")
}

func TestLLMService_Chat_ErrorBody(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "out of memory"})
	})

	_, err := svc.Chat(context.Background(), nil, driven.ChatOptions{})

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestLLMService_Ping(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models": [{"name": "llama3:latest"}, {"name": "qwen-test:latest"}]}`))
	})

	assert.NoError(t, svc.Ping(context.Background()))
}

func TestLLMService_Ping_ModelNotPulled(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models": [{"name": "llama3:latest"}]}`))
	})

	err := svc.Ping(context.Background())

	require.ErrorIs(t, err, ErrModelNotPulled)
	assert.Contains(t, err.Error(), "ollama pull qwen-test")
}

func TestLLMService_Ping_TaggedModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models": [{"name": "qwen2.5:7b"}]}`))
	}))
	defer srv.Close()

	assert.NoError(t, NewLLMService(LLMConfig{BaseURL: srv.URL, Model: "qwen2.5:7b"}).Ping(context.Background()))
	assert.ErrorIs(t, NewLLMService(LLMConfig{BaseURL: srv.URL, Model: "qwen2.5:14b"}).Ping(context.Background()), ErrModelNotPulled)
}

func TestLLMService_Chat_KeepAlive(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message": {"role": "assistant", "content": "ok"}, "done": true}`))
	}))
	defer srv.Close()
	svc := NewLLMService(LLMConfig{BaseURL: srv.URL, KeepAlive: "10m", RequestsPerSecond: 1000})

	_, err := svc.Chat(context.Background(), []driven.ChatMessage{{Role: driven.RoleUser, Content: "q"}}, driven.ChatOptions{})

	require.NoError(t, err)
	assert.Equal(t, "10m", got["keep_alive"])
}

func TestLLMService_Chat_MissingMessage(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"done": true}`))
	})

	_, err := svc.Chat(context.Background(), nil, driven.ChatOptions{})

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestLLMService_PingFailure(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	assert.Error(t, svc.Ping(context.Background()))
}
