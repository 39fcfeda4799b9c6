package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func collect(t *testing.T, stream Stream, want int, timeout time.Duration) []string {
	t.Helper()
	var out []string
	deadline := time.After(timeout)
	for len(out) < want {
		select {
		case msg, ok := <-stream.Messages():
			if !ok {
				return out
			}
			out = append(out, string(msg))
		case <-deadline:
			t.Fatalf("timed out after %d of %d messages", len(out), want)
		}
	}
	return out
}

func TestOpenLogStream(t *testing.T) {
	var gotPath, gotAuth, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keepalive comment\n")
		fmt.Fprint(w, "data: build start\n\n")
		fmt.Fprint(w, "data: compiling\n\n")
		fmt.Fprint(w, "event: line\n")
		fmt.Fprint(w, "data: done\n\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, "s3cret")
	stream, err := client.OpenLogStream(context.Background(), "O", "R", "12", "1")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer stream.Close()

	if gotPath != "/api/repos/O/R/builds/12/jobs/1/stream" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer s3cret" {
		t.Errorf("expected bearer token header, got %q", gotAuth)
	}
	if gotAccept != "text/event-stream" {
		t.Errorf("expected event-stream accept header, got %q", gotAccept)
	}

	lines := collect(t, stream, 3, 2*time.Second)
	want := []string{"build start", "compiling", "done"}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}

	// Handler returned, so the stream ends cleanly.
	if _, ok := <-stream.Messages(); ok {
		t.Error("expected message channel to be closed after upstream EOF")
	}
	if err := stream.Err(); err != nil {
		t.Errorf("clean close should leave no error, got %v", err)
	}
}

func TestOpenFeedStreamRejectsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	if _, err := client.OpenFeedStream(context.Background()); err == nil {
		t.Fatal("expected an error for a 403 response")
	}
}

func TestStreamCloseStopsDelivery(t *testing.T) {
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: first\n\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-blocked
	}))
	defer server.Close()
	defer close(blocked)

	client := NewClient(server.URL, "")
	stream, err := client.OpenFeedStream(context.Background())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	collect(t, stream, 1, 2*time.Second)
	stream.Close()
	stream.Close() // idempotent

	select {
	case _, ok := <-stream.Messages():
		if ok {
			t.Error("received a message after Close")
		}
	case <-time.After(2 * time.Second):
		t.Error("message channel not closed after Close")
	}
}

func TestListProjects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/repos" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[{"owner":"O","name":"R","active":true,"last_build_number":"42","last_build_state":"passed"}]`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	projects, err := client.ListProjects(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("expected 1 project, got %d", len(projects))
	}
	if projects[0].Owner != "O" || projects[0].Name != "R" || projects[0].LastBuild != "42" {
		t.Errorf("unexpected project %+v", projects[0])
	}
}
