package notify

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Kind is the notification severity.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Placement hints where the shell shows a notification.
type Placement string

const (
	PlacementTop    Placement = "top"
	PlacementBottom Placement = "bottom"
)

// DefaultDuration is how long a notification stays visible unless set.
const DefaultDuration = 3 * time.Second

// Notification is a transient message for the user.
type Notification struct {
	Timestamp time.Time     `json:"timestamp"`
	Kind      Kind          `json:"kind"`
	Message   string        `json:"message"`
	Event     string        `json:"event,omitempty"`
	Duration  time.Duration `json:"duration"`
	Placement Placement     `json:"placement"`
}

// Sink receives notifications.
type Sink interface {
	Emit(ctx context.Context, n Notification)
}

// NoOpSink drops notifications.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Notification) {}

// ChannelSink writes notifications into a buffered channel.
type ChannelSink struct {
	notifications chan Notification
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		notifications: make(chan Notification, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, n Notification) {
	select {
	case s.notifications <- n:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Notifications() <-chan Notification {
	return s.notifications
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, n Notification) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(n)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n Notification)

func (f SinkFunc) Emit(ctx context.Context, n Notification) { f(ctx, n) }
