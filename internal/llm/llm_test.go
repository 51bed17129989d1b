package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/TobiSchelling/CommentGender/internal/config"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{"plain object", `{"a":"M"}`, `{"a":"M"}`, false},
		{"surrounding prose", "Here you go:\n{\"a\":\"F\"}\nDone.", `{"a":"F"}`, false},
		{"code fence", "```json\n{\"a\":\"U\"}\n```", `{"a":"U"}`, false},
		{"last closing brace wins", `{"a":"M"} and {"b":"F"}`, `{"a":"M"} and {"b":"F"}`, false},
		{"truncated keeps up to last comma", `{"x":"M","y":"F"`, `{"x":"M"}`, false},
		{"truncated mid pair", `{"x":"M","y":"F","z":"`, `{"x":"M","y":"F"}`, false},
		{"truncated no comma drops last byte", "{\"x\":\"M\"\n", `{"x":"M"}`, false},
		{"no opening brace", "I cannot help with that.", "", true},
		{"empty", "", "", true},
		{"comma only before brace", `Sure, {"x":"M"`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSONObject(tt.text)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSONObjectRepairedTextParses(t *testing.T) {
	got, err := ExtractJSONObject(`{"alice":"F","bob":"M","carol":"U","dave":"M`)
	require.NoError(t, err)

	var m map[string]string
	require.NoError(t, json.Unmarshal([]byte(got), &m))
	assert.Equal(t, map[string]string{"alice": "F", "bob": "M", "carol": "U"}, m)
}

func TestGeminiGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "classify these", req.Contents[0].Parts[0].Text)
		assert.Equal(t, 256, req.GenerationConfig.MaxOutputTokens)

		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"a\":\"M\"}"}]}}]}`))
	}))
	defer srv.Close()

	p := NewGeminiProvider("gemini-test", srv.URL+"/", "k")
	text, err := p.Generate(context.Background(), "classify these", 256)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"M"}`, text)
}

func TestGeminiErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusTooManyRequests, `{"error":"quota"}`},
		{"no candidates", http.StatusOK, `{"candidates":[]}`},
		{"no parts", http.StatusOK, `{"candidates":[{"content":{"parts":[]}}]}`},
		{"bad json", http.StatusOK, `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewGeminiProvider("m", srv.URL, "k").Generate(context.Background(), "p", 10)
			assert.Error(t, err)
		})
	}
}

func TestGeminiWithoutKey(t *testing.T) {
	p := NewGeminiProvider("m", "http://unused", "")
	assert.False(t, p.IsConfigured())
	_, err := p.Generate(context.Background(), "p", 10)
	assert.Error(t, err)
}

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk", r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"b\":\"F\"}"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("gpt", "sk")
	p.BaseURL = srv.URL
	text, err := p.Generate(context.Background(), "prompt", 100)
	require.NoError(t, err)
	assert.Equal(t, `{"b":"F"}`, text)
}

func TestOllamaGenerateAndIsConfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.Write([]byte(`{"models":[{"name":"qwen2.5:7b"}]}`))
		case "/api/chat":
			w.Write([]byte(`{"message":{"content":"{\"c\":\"U\"}"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewOllamaProvider("qwen2.5:7b", srv.URL)
	assert.True(t, p.IsConfigured())

	text, err := p.Generate(context.Background(), "prompt", 100)
	require.NoError(t, err)
	assert.Equal(t, `{"c":"U"}`, text)

	missing := NewOllamaProvider("llama3", srv.URL)
	assert.False(t, missing.IsConfigured())
}

func TestAnthropicGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/messages"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "{\"d\":\"M\"}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 1, "output_tokens": 1}
		}`))
	}))
	defer srv.Close()

	p := NewAnthropicProvider("claude-test", "key", option.WithBaseURL(srv.URL))
	text, err := p.Generate(context.Background(), "prompt", 100)
	require.NoError(t, err)
	assert.Equal(t, `{"d":"M"}`, text)
}

type stubProvider struct {
	calls int
	err   error
}

func (s *stubProvider) Generate(_ context.Context, _ string, _ int) (string, error) {
	s.calls++
	return "{}", s.err
}
func (s *stubProvider) IsConfigured() bool { return true }
func (s *stubProvider) Name() string       { return "stub" }

func TestInstrumentPassesThrough(t *testing.T) {
	inner := &stubProvider{err: errors.New("boom")}
	p := Instrument(inner)

	_, err := p.Generate(context.Background(), "p", 1)
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, "stub", p.Name())
}

func TestRateLimitHonorsContext(t *testing.T) {
	inner := &stubProvider{}
	p := RateLimit(inner, 1)

	_, err := p.Generate(context.Background(), "p", 1)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Generate(ctx, "p", 1)
	assert.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestCreateProvider(t *testing.T) {
	logger := zap.NewNop()

	_, err := CreateProvider(config.Classification{Provider: "mystery"}, logger)
	assert.Error(t, err)

	t.Setenv("TEST_GEMINI_KEY", "")
	_, err = CreateProvider(config.Classification{Provider: "gemini", APIKeyEnv: "TEST_GEMINI_KEY"}, logger)
	assert.ErrorIs(t, err, ErrNoProvider)

	t.Setenv("TEST_GEMINI_KEY", "set")
	p, err := CreateProvider(config.Classification{
		Provider:          "gemini",
		APIKeyEnv:         "TEST_GEMINI_KEY",
		RequestsPerMinute: 60,
	}, logger)
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.Name())
}
