package relay

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDeliverPlainTextPayload(t *testing.T) {
	client := newTestClient("x")

	// Raw log lines are not JSON and must still make it into the envelope.
	if err := client.Deliver("LOGS_O_R_12_1", []byte("build start")); err != nil {
		t.Fatalf("plain text delivery failed: %v", err)
	}

	env, ok := recvEnvelope(t, client, time.Second)
	if !ok {
		t.Fatal("no envelope was queued")
	}
	if env.Type != "LOGS_O_R_12_1" {
		t.Errorf("expected topic LOGS_O_R_12_1, got %q", env.Type)
	}
	var line string
	if err := json.Unmarshal(env.Data, &line); err != nil {
		t.Fatalf("data is not a JSON string: %v", err)
	}
	if line != "build start" {
		t.Errorf("expected %q, got %q", "build start", line)
	}
}

func TestDeliverJSONPayloadUntouched(t *testing.T) {
	client := newTestClient("x")
	payload := `{"owner":"O","name":"R","number":"5","status":"running"}`

	if err := client.Deliver("FEED_O_R_5", []byte(payload)); err != nil {
		t.Fatalf("delivery failed: %v", err)
	}

	env, ok := recvEnvelope(t, client, time.Second)
	if !ok {
		t.Fatal("no envelope was queued")
	}
	if string(env.Data) != payload {
		t.Errorf("JSON payload must pass through unmodified, got %s", env.Data)
	}
}
