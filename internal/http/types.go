package http

import (
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/classifier"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/embeddings"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/vectorstore"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version,omitempty"`
	Services map[string]string `json:"services"`
}

// ClassifyRequest is the body of POST /api/v1/classify.
type ClassifyRequest struct {
	Query          string   `json:"query" validate:"required,max=4000"`
	History        []string `json:"history,omitempty" validate:"max=50"`
	KnowledgeCheck bool     `json:"knowledge_check,omitempty"`
	Semantic       bool     `json:"semantic,omitempty"`
	ForceMode      string   `json:"force_mode,omitempty" validate:"omitempty,oneof=retrieval conversational session-memory platform-action"`
}

// ClassifyResponse wraps a routing decision.
type ClassifyResponse struct {
	classifier.Result
}

// EmbedRequest is the body of POST /api/v1/embed.
type EmbedRequest struct {
	Text string `json:"text" validate:"required"`
}

// EmbedBatchRequest is the body of POST /api/v1/embed/batch.
type EmbedBatchRequest struct {
	Texts []string `json:"texts" validate:"required,min=1,max=256,dive,required"`
}

// EmbedBatchResponse holds results in input order.
type EmbedBatchResponse struct {
	Results []embeddings.Result `json:"results"`
}

// SearchRequest is the body of POST /api/v1/collections/:name/search.
type SearchRequest struct {
	Query    string              `json:"query" validate:"required"`
	TopK     int                 `json:"top_k" validate:"omitempty,min=1,max=100"`
	MinScore float32             `json:"min_score" validate:"omitempty,min=0,max=1"`
	Filter   *vectorstore.Filter `json:"filter,omitempty"`
}

// SearchResponse lists ranked matches.
type SearchResponse struct {
	Collection string                     `json:"collection"`
	Results    []vectorstore.SearchResult `json:"results"`
}

// DocumentInput is one document to add or update.
type DocumentInput struct {
	ID       string         `json:"id,omitempty"`
	Content  string         `json:"content" validate:"required"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DocumentsRequest is the body of document add and update.
type DocumentsRequest struct {
	Documents []DocumentInput `json:"documents" validate:"required,min=1,max=1000,dive"`
}

// DocumentsResponse lists the affected document ids.
type DocumentsResponse struct {
	IDs []string `json:"ids"`
}

// DeleteDocumentsRequest is the body of document delete.
type DeleteDocumentsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// CountResponse is the body of GET /api/v1/collections/:name/count.
type CountResponse struct {
	Collection string `json:"collection"`
	Count      int    `json:"count"`
}

// StartSessionRequest is the body of POST /api/v1/sessions.
type StartSessionRequest struct {
	UserID string `json:"user_id" validate:"required,max=128"`
	Topic  string `json:"topic" validate:"required,max=200"`
	Level  string `json:"level,omitempty" validate:"omitempty,oneof=beginner intermediate advanced"`
}

// MessageRequest is the body of POST /api/v1/sessions/:id/messages.
type MessageRequest struct {
	Message string `json:"message" validate:"required,max=8000"`
}
