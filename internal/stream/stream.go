package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lumina-ai/lumina/pkg/models"
)

// traceField is the stream entry field holding the JSON-encoded trace.
const traceField = "trace"

// Publisher appends trace events to the analysis stream. The stream is
// capped at MaxLen entries (approximate trim), discarding oldest first.
type Publisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewPublisher(client *redis.Client, stream string, maxLen int64) *Publisher {
	return &Publisher{client: client, stream: stream, maxLen: maxLen}
}

// Publish appends one trace to the stream and returns its entry ID.
func (p *Publisher) Publish(ctx context.Context, trace *models.Trace) (string, error) {
	payload, err := json.Marshal(trace)
	if err != nil {
		return "", fmt.Errorf("encode trace: %w", err)
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{traceField: payload},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("publish trace: %w", err)
	}
	return id, nil
}
