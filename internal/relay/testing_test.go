package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"opsboard/internal/upstream"
)

// mockConn implements the Conn interface for testing
type mockConn struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
}

var errClosedConn = errors.New("connection closed")

func (m *mockConn) ReadMessage() (int, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, nil, errClosedConn
	}
	return 0, nil, errClosedConn
}

func (m *mockConn) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errClosedConn
	}
	m.messages = append(m.messages, data)
	return nil
}

func (m *mockConn) SetReadLimit(limit int64)            {}
func (m *mockConn) SetReadDeadline(t time.Time) error   { return nil }
func (m *mockConn) SetWriteDeadline(t time.Time) error  { return nil }
func (m *mockConn) SetPongHandler(h func(string) error) {}
func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// fakeStream is a hand-driven upstream.Stream. Emit drops messages once the
// stream is closed, the way a real closed connection stops delivering.
type fakeStream struct {
	mu     sync.Mutex
	msgs   chan []byte
	err    error
	closed bool
}

func newFakeStream() *fakeStream {
	return &fakeStream{msgs: make(chan []byte, 64)}
}

func (s *fakeStream) Messages() <-chan []byte { return s.msgs }

func (s *fakeStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.msgs)
	}
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeStream) emit(payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.msgs <- []byte(payload)
}

// end terminates the stream from the upstream side, optionally with an error.
func (s *fakeStream) end(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.err = err
		close(s.msgs)
	}
}

func newTestClient(userID string) *Client {
	return NewClient(nil, &mockConn{}, userID)
}

// recvEnvelope pulls the next queued delivery off the client's send buffer.
func recvEnvelope(t *testing.T, c *Client, timeout time.Duration) (Envelope, bool) {
	t.Helper()
	select {
	case data, ok := <-c.send:
		if !ok {
			return Envelope{}, false
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			t.Fatalf("failed to unmarshal envelope: %v", err)
		}
		return env, true
	case <-time.After(timeout):
		return Envelope{}, false
	}
}

// waitFor polls until the condition holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func staticFeedOpener(stream upstream.Stream) FeedOpener {
	return func(ctx context.Context) (upstream.Stream, error) {
		return stream, nil
	}
}
