package upstream

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
)

// Stream is a live message source: the CI host's global event feed or one
// job's log tail. Messages is closed when the stream ends for any reason;
// Err reports what ended it (nil on a clean close). Close is idempotent.
type Stream interface {
	Messages() <-chan []byte
	Err() error
	Close() error
}

// sseStream adapts a text/event-stream HTTP response into a Stream. Each
// "data:" field becomes one message; comment and event-name fields are
// skipped. The reader goroutine owns the response body.
type sseStream struct {
	body   io.ReadCloser
	cancel context.CancelFunc
	msgs   chan []byte

	mu  sync.Mutex
	err error

	closeOnce sync.Once
}

func newSSEStream(body io.ReadCloser, cancel context.CancelFunc, buffer int) *sseStream {
	s := &sseStream{
		body:   body,
		cancel: cancel,
		msgs:   make(chan []byte, buffer),
	}
	go s.read()
	return s
}

var dataPrefix = []byte("data:")

func (s *sseStream) read() {
	defer close(s.msgs)
	defer s.body.Close()

	scanner := bufio.NewScanner(s.body)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if !bytes.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := bytes.TrimSpace(line[len(dataPrefix):])
		if len(payload) == 0 {
			continue
		}
		msg := make([]byte, len(payload))
		copy(msg, payload)
		s.msgs <- msg
	}
	if err := scanner.Err(); err != nil {
		s.setErr(err)
	}
}

func (s *sseStream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *sseStream) Messages() <-chan []byte {
	return s.msgs
}

func (s *sseStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *sseStream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.body.Close()
	})
	return nil
}

// openSSE issues the request and wraps the response body. The derived context
// outlives this call; cancelling it through Close aborts the body read.
func openSSE(ctx context.Context, client *http.Client, req *http.Request, buffer int) (Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, &StatusError{Code: resp.StatusCode, URL: req.URL.String()}
	}
	return newSSEStream(resp.Body, cancel, buffer), nil
}
