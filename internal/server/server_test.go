package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/go-utterance/internal/lexicon"
	"github.com/example/go-utterance/internal/pipeline"
	"github.com/example/go-utterance/internal/server"
	"github.com/example/go-utterance/internal/utterance"
)

func newTestHandler(opts ...server.Option) http.Handler {
	return server.NewHandler(pipeline.Default(lexicon.New()), opts...)
}

// errBuilder fails every build with err.
type errBuilder struct{ err error }

func (b errBuilder) Build(context.Context, string) (*utterance.Utterance, error) {
	return nil, b.err
}

// blockingBuilder waits until its context is cancelled.
type blockingBuilder struct{}

func (blockingBuilder) Build(ctx context.Context, _ string) (*utterance.Utterance, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body["error"]
}

func TestHealth(t *testing.T) {
	h := newTestHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q; want ok", body["status"])
	}
	if body["version"] == "" {
		t.Error("version is empty")
	}
}

func TestLevels(t *testing.T) {
	h := newTestHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/levels", nil))

	var got []string
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(pipeline.Levels()) || got[0] != "PARAGRAPHS" {
		t.Errorf("levels = %v; want %v", got, pipeline.Levels())
	}
}

func TestBuild_ReturnsSummary(t *testing.T) {
	h := newTestHandler()

	rec := post(t, h, "/build", `{"text":"Hello world."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Utterances []pipeline.Summary `json:"utterances"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Utterances) != 1 {
		t.Fatalf("utterances = %d; want 1", len(resp.Utterances))
	}

	sizes := map[string]int{}
	for _, l := range resp.Utterances[0].Levels {
		sizes[l.Name] = l.Size
	}
	if sizes["WORDS"] != 2 || sizes["PHONES"] != 10 {
		t.Errorf("sizes = %v; want WORDS=2 PHONES=10", sizes)
	}
	if resp.Utterances[0].Text != "Hello world." {
		t.Errorf("text = %q", resp.Utterances[0].Text)
	}
}

func TestBuild_ChunksText(t *testing.T) {
	h := newTestHandler(server.WithMaxChunkChars(15))

	rec := post(t, h, "/build", `{"text":"Hello world. How are you? Fine thanks.","chunk":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Utterances []pipeline.Summary `json:"utterances"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Utterances) != 3 {
		t.Fatalf("utterances = %d; want 3", len(resp.Utterances))
	}
	if resp.Utterances[0].ID == resp.Utterances[1].ID {
		t.Error("chunks share an utterance id")
	}
}

func TestAlign_WordsToPhones(t *testing.T) {
	h := newTestHandler()

	rec := post(t, h, "/align", `{"text":"Hello world.","from":"WORDS","to":"PHONES"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		From string                 `json:"from"`
		To   string                 `json:"to"`
		Rows []pipeline.AlignedItem `json:"rows"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Rows) != 2 {
		t.Fatalf("rows = %d; want 2", len(resp.Rows))
	}
	if resp.Rows[1].Label != "world" || len(resp.Rows[1].Related) != 5 {
		t.Errorf("row 1 = %+v; want world with 5 phones", resp.Rows[1])
	}
}

func TestRequestValidation(t *testing.T) {
	tests := []struct {
		name   string
		h      http.Handler
		path   string
		body   string
		method string
		want   int
	}{
		{"build wrong method", newTestHandler(), "/build", "", http.MethodGet, http.StatusMethodNotAllowed},
		{"build invalid JSON", newTestHandler(), "/build", `{"text":`, http.MethodPost, http.StatusBadRequest},
		{"build missing text", newTestHandler(), "/build", `{}`, http.MethodPost, http.StatusBadRequest},
		{"build oversized text", newTestHandler(server.WithMaxTextBytes(4)), "/build", `{"text":"hello"}`, http.MethodPost, http.StatusRequestEntityTooLarge},
		{"build text at limit", newTestHandler(server.WithMaxTextBytes(5)), "/build", `{"text":"hello"}`, http.MethodPost, http.StatusOK},
		{"align missing levels", newTestHandler(), "/align", `{"text":"hello"}`, http.MethodPost, http.StatusBadRequest},
		{"align unknown level", newTestHandler(), "/align", `{"text":"hello","from":"WORDS","to":"FRAMES"}`, http.MethodPost, http.StatusBadRequest},
		{"whitespace text", newTestHandler(), "/build", `{"text":"   "}`, http.MethodPost, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			tt.h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("want %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if tt.want != http.StatusOK && decodeError(t, rec) == "" {
				t.Error("want non-empty error field")
			}
		})
	}
}

func TestBuilderErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no relation", utterance.ErrNoRelation, http.StatusUnprocessableEntity},
		{"unknown level", utterance.ErrNotFound, http.StatusBadRequest},
		{"other failure", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := server.NewHandler(errBuilder{err: tt.err})

			rec := post(t, h, "/build", `{"text":"hello"}`)
			if rec.Code != tt.want {
				t.Fatalf("want %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestRequestTimeoutCancelsBuild(t *testing.T) {
	h := server.NewHandler(blockingBuilder{}, server.WithRequestTimeout(20*time.Millisecond))

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- post(t, h, "/build", `{"text":"hello"}`)
	}()

	select {
	case rec := <-done:
		if rec.Code != http.StatusGatewayTimeout {
			t.Fatalf("want 504, got %d", rec.Code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("request did not time out")
	}
}
