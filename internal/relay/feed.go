package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"opsboard/internal/upstream"
)

// FeedOpener connects to the CI host's global build-event feed.
type FeedOpener func(ctx context.Context) (upstream.Stream, error)

// EventPublisher forwards parsed build events to the analytics pipeline.
// Publishing is best-effort; failures never reach the broadcast path.
type EventPublisher interface {
	PublishBuildEvent(payload []byte) error
}

// buildEvent is the slice of an upstream feed message the multiplexer needs
// for routing. The full raw payload is what subscribers receive.
type buildEvent struct {
	Owner  Coordinate `json:"owner"`
	Name   Coordinate `json:"name"`
	Number Coordinate `json:"number"`
}

// FeedMultiplexer owns the process-wide singleton feed stream. The stream is
// created lazily by the first subscriber and shared by everyone after; no
// individual client can close it. There is no reconnect: if the upstream feed
// ends, the multiplexer keeps running with a stalled feed until the process
// restarts.
type FeedMultiplexer struct {
	registry  *Registry
	open      FeedOpener
	publisher EventPublisher

	ctx context.Context

	// once guards singleton creation: racing first subscribers block on the
	// same in-flight connection attempt instead of opening duplicates.
	once    sync.Once
	openErr error
}

func NewFeedMultiplexer(ctx context.Context, registry *Registry, open FeedOpener, publisher EventPublisher) *FeedMultiplexer {
	return &FeedMultiplexer{
		registry:  registry,
		open:      open,
		publisher: publisher,
		ctx:       ctx,
	}
}

// Subscribe joins the client to the build's feed channel, establishing the
// upstream feed stream first if this is the first subscription in the
// process's lifetime.
func (m *FeedMultiplexer) Subscribe(c *Client, owner, name, number string) error {
	key := FeedChannel(owner, name, number)
	m.registry.Join(key, c)
	return m.ensureStream()
}

func (m *FeedMultiplexer) ensureStream() error {
	m.once.Do(func() {
		stream, err := m.open(m.ctx)
		if err != nil {
			slog.Error("failed to open upstream feed stream", "error", err)
			m.openErr = err
			return
		}
		slog.Info("upstream feed stream established")
		go m.run(stream)
	})
	return m.openErr
}

func (m *FeedMultiplexer) run(stream upstream.Stream) {
	for payload := range stream.Messages() {
		var event buildEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			slog.Debug("dropping malformed feed message", "error", err)
			continue
		}
		if event.Owner == "" || event.Name == "" || event.Number == "" {
			slog.Debug("dropping feed message without build coordinates")
			continue
		}
		if event.Owner.hasSeparator() || event.Name.hasSeparator() || event.Number.hasSeparator() {
			slog.Debug("dropping feed message with separator in coordinates")
			continue
		}

		key := FeedChannel(event.Owner.String(), event.Name.String(), event.Number.String())
		m.registry.Broadcast(key, payload)

		if m.publisher != nil {
			if err := m.publisher.PublishBuildEvent(payload); err != nil {
				slog.Warn("failed to publish build event", "error", err)
			}
		}
	}

	// No reconnect. The feed stays stalled until the process restarts.
	if err := stream.Err(); err != nil {
		slog.Error("upstream feed stream failed, feed is stalled", "error", err)
	} else {
		slog.Warn("upstream feed stream closed, feed is stalled")
	}
}

// Unsubscribe removes the client from one feed channel. The singleton stream
// is unaffected.
func (m *FeedMultiplexer) Unsubscribe(c *Client, owner, name, number string) {
	m.registry.Leave(FeedChannel(owner, name, number), c)
}
