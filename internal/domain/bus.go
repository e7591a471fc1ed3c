package domain

import (
	"context"
)

// EventBus defines the interface for cycle and alert notifications.
// Supports Go channels (in-process, default) or NATS.
type EventBus interface {
	// Publish sends a message to a topic, scoped by intermediary code.
	Publish(ctx context.Context, intermediary string, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, intermediary string, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID           string            `json:"id"`
	Intermediary string            `json:"intermediary"`
	Topic        string            `json:"topic"`
	Payload      []byte            `json:"payload"`
	Metadata     map[string]string `json:"metadata"`
	Timestamp    int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string

	// Channel settings
	ChannelBufferSize int

	// NATS settings
	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds
}

// Topics published by the scoring pipeline.
const (
	TopicCycleCompleted  = "kestrel.cycle.completed"
	TopicCustomerAlerted = "kestrel.customer.alerted"
)

// CycleCompletedEvent is the payload for TopicCycleCompleted.
type CycleCompletedEvent struct {
	RunID         string `json:"runId"`
	RefMonth      string `json:"refMonth"`
	EligibleCount int    `json:"eligibleCount"`
	ScoredCount   int    `json:"scoredCount"`
	AlertedCount  int    `json:"alertedCount"`
}

// CustomerAlertedEvent is the payload for TopicCustomerAlerted.
type CustomerAlertedEvent struct {
	RunID      string  `json:"runId"`
	CustomerID string  `json:"customerId"`
	Score      float64 `json:"score"`
	ModelName  string  `json:"modelName"`
}
