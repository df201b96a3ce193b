package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lumina-ai/lumina/internal/config"
	"github.com/lumina-ai/lumina/pkg/models"
)

// Message is one delivery handed to the handler.
type Message struct {
	ID            string
	Trace         *models.Trace
	DeliveryCount int64
}

type outcomeKind int

const (
	outcomeAck outcomeKind = iota
	outcomeRetry
	outcomeDrop
)

// Outcome is the handler's verdict on a message. The consumer loop owns all
// acknowledgment calls; handlers only state what should happen.
type Outcome struct {
	kind   outcomeKind
	after  time.Duration
	reason string
}

// Ack marks the message fully processed.
func Ack() Outcome { return Outcome{kind: outcomeAck} }

// Retry leaves the message pending for redelivery. The message becomes
// claimable once it has been idle for at least the consumer's retry delay;
// after is advisory and logged.
func Retry(after time.Duration) Outcome { return Outcome{kind: outcomeRetry, after: after} }

// Drop permanently discards the message, recording why.
func Drop(reason string) Outcome { return Outcome{kind: outcomeDrop, reason: reason} }

// Handler processes one delivered trace.
type Handler func(ctx context.Context, msg Message) Outcome

// Consumer is a durable competing-consumers reader over a Redis Stream
// consumer group. Each run claims stale pending messages first, then blocks
// on new deliveries. Messages exceeding the delivery limit are dropped and
// acknowledged, never retried indefinitely.
type Consumer struct {
	client  *redis.Client
	cfg     config.StreamConfig
	handler Handler
}

func NewConsumer(client *redis.Client, cfg config.StreamConfig, handler Handler) *Consumer {
	return &Consumer{client: client, cfg: cfg, handler: handler}
}

// Run consumes until ctx is cancelled. Returns ctx.Err() on shutdown.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}
	slog.Info("stream consumer started",
		"stream", c.cfg.Name, "group", c.cfg.Group, "consumer", c.cfg.Consumer)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := c.claimStale(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("claim pending messages", "error", err)
		}
		if err := c.readNew(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("read stream", "error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Name, c.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// readNew blocks for new deliveries and processes them in order.
func (c *Consumer) readNew(ctx context.Context) error {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Name, ">"},
		Count:    16,
		Block:    c.cfg.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	for _, s := range streams {
		for _, msg := range s.Messages {
			c.process(ctx, msg, 1)
		}
	}
	return nil
}

// claimStale takes over messages left pending longer than the retry delay,
// either by this consumer's earlier Retry outcomes or by a crashed peer.
func (c *Consumer) claimStale(ctx context.Context) error {
	msgs, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.cfg.Name,
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		MinIdle:  c.cfg.RetryDelay,
		Start:    "0-0",
		Count:    16,
	}).Result()
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	counts, err := c.deliveryCounts(ctx, msgs)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		c.process(ctx, msg, counts[msg.ID])
	}
	return nil
}

func (c *Consumer) deliveryCounts(ctx context.Context, msgs []redis.XMessage) (map[string]int64, error) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.cfg.Name,
		Group:  c.cfg.Group,
		Start:  msgs[0].ID,
		End:    msgs[len(msgs)-1].ID,
		Count:  int64(len(msgs)),
	}).Result()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(pending))
	for _, p := range pending {
		counts[p.ID] = p.RetryCount
	}
	return counts, nil
}

func (c *Consumer) process(ctx context.Context, msg redis.XMessage, deliveries int64) {
	trace, err := decodeTrace(msg)
	if err != nil {
		slog.Warn("dropping undecodable message", "id", msg.ID, "error", err)
		c.ack(ctx, msg.ID)
		return
	}

	if deliveries > int64(c.cfg.MaxRetries) {
		slog.Error("dropping message after max deliveries",
			"id", msg.ID, "trace_id", trace.TraceID, "deliveries", deliveries)
		c.ack(ctx, msg.ID)
		return
	}

	outcome := c.handler(ctx, Message{ID: msg.ID, Trace: trace, DeliveryCount: deliveries})
	switch outcome.kind {
	case outcomeAck:
		c.ack(ctx, msg.ID)
	case outcomeDrop:
		slog.Warn("message dropped by handler",
			"id", msg.ID, "trace_id", trace.TraceID, "reason", outcome.reason)
		c.ack(ctx, msg.ID)
	case outcomeRetry:
		slog.Info("message left pending for retry",
			"id", msg.ID, "trace_id", trace.TraceID,
			"delivery", deliveries, "retry_after", outcome.after)
	}
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.cfg.Name, c.cfg.Group, id).Err(); err != nil {
		slog.Warn("ack message", "id", id, "error", err)
	}
}

func decodeTrace(msg redis.XMessage) (*models.Trace, error) {
	raw, ok := msg.Values[traceField]
	if !ok {
		return nil, fmt.Errorf("missing %q field", traceField)
	}
	str, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected %q field type %T", traceField, raw)
	}

	var trace models.Trace
	if err := json.Unmarshal([]byte(str), &trace); err != nil {
		return nil, fmt.Errorf("decode trace: %w", err)
	}
	if trace.TraceID == "" {
		return nil, errors.New("trace missing trace_id")
	}
	return &trace, nil
}
