// Package models contains shared data models used across the Lumina codebase.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const (
	TraceStatusSuccess = "success"
	TraceStatusError   = "error"
)

// Trace represents one observed LLM API call. Traces are produced by the
// ingestion layer and are read-only from the analysis pipeline's perspective.
type Trace struct {
	TraceID          string            `db:"trace_id"          json:"trace_id"`
	SpanID           string            `db:"span_id"           json:"span_id"`
	ParentSpanID     *string           `db:"parent_span_id"    json:"parent_span_id,omitempty"`
	CustomerID       string            `db:"customer_id"       json:"customer_id"`
	ServiceName      string            `db:"service_name"      json:"service_name"`
	Endpoint         string            `db:"endpoint"          json:"endpoint"`
	Environment      string            `db:"environment"       json:"environment"`
	Model            string            `db:"model"             json:"model"`
	Provider         *string           `db:"provider"          json:"provider,omitempty"`
	Prompt           string            `db:"prompt"            json:"prompt"`
	Response         string            `db:"response"          json:"response"`
	ResponseHash     string            `db:"response_hash"     json:"response_hash,omitempty"`
	PromptTokens     *int              `db:"prompt_tokens"     json:"prompt_tokens,omitempty"`
	CompletionTokens *int              `db:"completion_tokens" json:"completion_tokens,omitempty"`
	TotalTokens      *int              `db:"total_tokens"      json:"total_tokens,omitempty"`
	LatencyMs        int64             `db:"latency_ms"        json:"latency_ms"`
	CostUsd          float64           `db:"cost_usd"          json:"cost_usd"`
	Timestamp        time.Time         `db:"timestamp"         json:"timestamp"`
	Status           string            `db:"status"            json:"status"`
	ErrorMessage     *string           `db:"error_message"     json:"error_message,omitempty"`
	Metadata         map[string]string `db:"metadata"          json:"metadata,omitempty"`
	Tags             []string          `db:"tags"              json:"tags,omitempty"`
}

// ContentHash returns a stable hash of the (prompt, response) pair, used as
// the cache key for quality judgments.
func (t *Trace) ContentHash() string {
	h := sha256.New()
	h.Write([]byte(t.Prompt))
	h.Write([]byte{0})
	h.Write([]byte(t.Response))
	return hex.EncodeToString(h.Sum(nil))
}

// CostSample is one historical cost observation used for baselining.
type CostSample struct {
	CostUsd   float64   `db:"cost_usd"  json:"cost_usd"`
	LatencyMs int64     `db:"latency_ms" json:"latency_ms"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}
