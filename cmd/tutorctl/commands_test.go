package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apihttp "github.com/PandyaSumit/mini--AI-tutor-sub008/internal/http"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/tutor"
)

// execute runs tutorctl against srv and returns stdout.
func execute(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--server", srv.URL}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		writeJSON(w, http.StatusOK, apihttp.HealthResponse{
			Status:   "ok",
			Version:  "1.2.3",
			Services: map[string]string{"tutor": "ok", "index": "not ready"},
		})
	}))
	defer srv.Close()

	out, err := execute(t, srv, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "Server Status: ok")
	assert.Contains(t, out, "Version: 1.2.3")
	assert.Contains(t, out, "not ready")
}

func TestClassify(t *testing.T) {
	var got apihttp.ClassifyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/classify", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{
			"mode":       "retrieval",
			"confidence": 0.9,
			"method":     "rule",
			"rationale":  "asks about course material",
		})
	}))
	defer srv.Close()

	out, err := execute(t, srv, "classify", "--semantic", "what", "is", "chapter", "3")
	require.NoError(t, err)
	assert.Equal(t, "what is chapter 3", got.Query)
	assert.True(t, got.Semantic)
	assert.Contains(t, out, "Mode:       retrieval")
	assert.Contains(t, out, "Confidence: 0.90")
}

func TestServerErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, apihttp.ErrorResponse{Error: "session not found"})
	}))
	defer srv.Close()

	_, err := execute(t, srv, "session", "show", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "session not found")
}

func TestTokenHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer s3cret" {
			writeJSON(w, http.StatusUnauthorized, apihttp.ErrorResponse{Error: "unauthorized"})
			return
		}
		writeJSON(w, http.StatusOK, apihttp.CountResponse{Collection: "course_content", Count: 7})
	}))
	defer srv.Close()

	_, err := execute(t, srv, "count", "course_content")
	require.Error(t, err)

	out, err := execute(t, srv, "--token", "s3cret", "count", "course_content")
	require.NoError(t, err)
	assert.Contains(t, out, "course_content: 7")
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/collections/course_content/search", r.URL.Path)
		var req apihttp.SearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 3, req.TopK)
		writeJSON(w, http.StatusOK, map[string]any{
			"collection": "course_content",
			"results": []map[string]any{
				{"id": "doc-1", "content": "Recursion is a function calling itself.", "score": 0.82},
			},
		})
	}))
	defer srv.Close()

	out, err := execute(t, srv, "search", "-k", "3", "course_content", "recursion")
	require.NoError(t, err)
	assert.Contains(t, out, "1. [0.820] doc-1")
	assert.Contains(t, out, "Recursion is a function calling itself.")
}

func TestIngestText(t *testing.T) {
	var got apihttp.DocumentsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/collections/course_content/documents", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusCreated, apihttp.DocumentsResponse{IDs: []string{"a", "b"}})
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("First paragraph.\n\n\nSecond\nparagraph.\n"), 0o600))

	out, err := execute(t, srv, "ingest", "course_content", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Added 2 document(s) to course_content")
	require.Len(t, got.Documents, 2)
	assert.Equal(t, "First paragraph.", got.Documents[0].Content)
	assert.Equal(t, "Second\nparagraph.", got.Documents[1].Content)
	assert.Equal(t, "notes.md", got.Documents[1].Metadata["source"])
	assert.EqualValues(t, 1, got.Documents[1].Metadata["chunk"])
}

func TestReadDocuments(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "docs.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"id":"x","content":"hello","metadata":{"week":1}}]`), 0o600))
	docs, err := readDocuments(jsonPath, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "x", docs[0].ID)

	emptyPath := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(emptyPath, []byte(`[]`), 0o600))
	_, err = readDocuments(emptyPath, nil)
	assert.Error(t, err)

	docs, err = readDocuments("-", bytes.NewBufferString("one\n\ntwo"))
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	_, err = readDocuments(filepath.Join(dir, "missing.txt"), nil)
	assert.Error(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		var req apihttp.StartSessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ada", req.UserID)
		assert.Equal(t, "python loops", req.Topic)
		assert.Equal(t, "beginner", req.Level)
		writeJSON(w, http.StatusCreated, tutor.Reply{
			SessionID: "s-1",
			Messages:  []string{"Let's talk about for loops."},
			Concept:   "for loops",
		})
	})
	mux.HandleFunc("POST /api/v1/sessions/s-1/messages", func(w http.ResponseWriter, r *http.Request) {
		var req apihttp.MessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "i think it repeats", req.Message)
		writeJSON(w, http.StatusOK, tutor.Reply{SessionID: "s-1", Messages: []string{"Correct!"}})
	})
	mux.HandleFunc("DELETE /api/v1/sessions/s-1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, tutor.Reply{SessionID: "s-1", Messages: []string{"Goodbye."}, Ended: true})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	out, err := execute(t, srv, "session", "start", "-u", "ada", "-l", "beginner", "python", "loops")
	require.NoError(t, err)
	assert.Contains(t, out, "Let's talk about for loops.")
	assert.Contains(t, out, `concept "for loops"`)

	out, err = execute(t, srv, "session", "say", "s-1", "i think it repeats")
	require.NoError(t, err)
	assert.Contains(t, out, "Correct!")

	out, err = execute(t, srv, "session", "end", "s-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Session ended.")
}
