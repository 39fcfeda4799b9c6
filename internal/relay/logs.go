package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"opsboard/internal/upstream"
)

var (
	ErrClientDisconnected = errors.New("client disconnected")
)

// LogOpener connects to the live log tail of one job.
type LogOpener func(ctx context.Context, owner, name, number, job string) (upstream.Stream, error)

// LogMultiplexer relays per-job log streams to their single owning client.
// A client holds at most one active log subscription: a second subscribe
// request while one is active is a benign no-op. Teardown fires exactly once
// on whichever comes first of upstream close, upstream error or client
// disconnect, after which the client may subscribe again.
type LogMultiplexer struct {
	open LogOpener

	mu sync.Mutex
	// Subscription guard: client connection ID -> its one active subscription
	active map[string]*logSubscription
}

func NewLogMultiplexer(open LogOpener) *LogMultiplexer {
	return &LogMultiplexer{
		open:   open,
		active: make(map[string]*logSubscription),
	}
}

type logSubscription struct {
	mux    *LogMultiplexer
	client *Client
	key    string
	cancel context.CancelFunc

	mu     sync.Mutex
	stream upstream.Stream
	done   bool

	teardownOnce sync.Once
}

// Subscribe opens a log stream for the client. If the client already has one
// active, nothing happens: the guard entry is reserved before the upstream
// connection is attempted so rapid duplicate requests cannot race a second
// stream open.
func (m *LogMultiplexer) Subscribe(c *Client, owner, name, number, job string) error {
	key := LogChannel(owner, name, number, job)

	ctx, cancel := context.WithCancel(context.Background())
	sub := &logSubscription{
		mux:    m,
		client: c,
		key:    key,
		cancel: cancel,
	}

	m.mu.Lock()
	if _, exists := m.active[c.ID()]; exists {
		m.mu.Unlock()
		cancel()
		slog.Debug("duplicate log subscription ignored", "clientID", c.ID(), "channel", key)
		return nil
	}
	m.active[c.ID()] = sub
	m.mu.Unlock()

	stream, err := m.open(ctx, owner, name, number, job)
	if err != nil {
		sub.teardown()
		slog.Error("failed to open upstream log stream", "clientID", c.ID(), "channel", key, "error", err)
		return err
	}

	if !sub.attach(stream) {
		// Client disconnected while the stream was being opened.
		stream.Close()
		return ErrClientDisconnected
	}

	slog.Info("log subscription established", "clientID", c.ID(), "channel", key)
	go sub.run(stream)
	return nil
}

// CancelClient tears down the client's active log subscription, if any.
// Called on disconnect; a no-op for idle clients.
func (m *LogMultiplexer) CancelClient(c *Client) {
	m.mu.Lock()
	sub := m.active[c.ID()]
	m.mu.Unlock()

	if sub != nil {
		sub.teardown()
	}
}

// Active reports whether the client currently holds a log subscription.
func (m *LogMultiplexer) Active(c *Client) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[c.ID()]
	return ok
}

func (m *LogMultiplexer) remove(clientID string, sub *logSubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active[clientID] == sub {
		delete(m.active, clientID)
	}
}

// attach hands the opened stream to the subscription. Returns false if the
// subscription was torn down while the open was in flight.
func (s *logSubscription) attach(stream upstream.Stream) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return false
	}
	s.stream = stream
	return true
}

// teardown is the single Active -> Idle transition. Whichever terminal event
// fires first wins; later calls are no-ops.
func (s *logSubscription) teardown() {
	s.teardownOnce.Do(func() {
		s.mu.Lock()
		s.done = true
		stream := s.stream
		s.mu.Unlock()

		s.cancel()
		if stream != nil {
			stream.Close()
		}
		s.mux.remove(s.client.ID(), s)
		slog.Debug("log subscription torn down", "clientID", s.client.ID(), "channel", s.key)
	})
}

func (s *logSubscription) run(stream upstream.Stream) {
	defer s.teardown()

	for line := range stream.Messages() {
		// Point-to-point: log streams have exactly one owner, never a
		// broadcast group.
		if err := s.client.Deliver(s.key, line); err != nil {
			slog.Debug("log delivery stopped", "clientID", s.client.ID(), "channel", s.key, "error", err)
			return
		}
	}

	if err := stream.Err(); err != nil {
		slog.Warn("upstream log stream error", "clientID", s.client.ID(), "channel", s.key, "error", err)
	} else {
		slog.Debug("upstream log stream closed", "clientID", s.client.ID(), "channel", s.key)
	}
}
