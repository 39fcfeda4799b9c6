package relay

import (
	"encoding/json"
	"testing"
)

func TestChannelKeys(t *testing.T) {
	t.Run("FeedChannel", func(t *testing.T) {
		if got := FeedChannel("O", "R", "5"); got != "FEED_O_R_5" {
			t.Errorf("expected FEED_O_R_5, got %q", got)
		}
	})

	t.Run("LogChannel", func(t *testing.T) {
		if got := LogChannel("O", "R", "12", "1"); got != "LOGS_O_R_12_1" {
			t.Errorf("expected LOGS_O_R_12_1, got %q", got)
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		a := FeedChannel("owner", "repo", "42")
		b := FeedChannel("owner", "repo", "42")
		if a != b {
			t.Errorf("same coordinates produced different keys: %q vs %q", a, b)
		}
	})

	t.Run("DistinctCoordinatesDistinctKeys", func(t *testing.T) {
		keys := map[string]bool{
			FeedChannel("A", "B", "1"):  true,
			FeedChannel("A", "B", "2"):  true,
			FeedChannel("A", "C", "1"):  true,
			LogChannel("A", "B", "1", "1"): true,
			LogChannel("A", "B", "1", "2"): true,
		}
		if len(keys) != 5 {
			t.Errorf("expected 5 distinct keys, got %d", len(keys))
		}
	})
}

func TestCoordinateUnmarshal(t *testing.T) {
	var req SubscribeRequest

	t.Run("StringCoordinates", func(t *testing.T) {
		data := `{"type":"LOGS_SUBSCRIBE","owner":"O","name":"R","number":"12","job":"1"}`
		if err := json.Unmarshal([]byte(data), &req); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if req.Number != "12" || req.Job != "1" {
			t.Errorf("expected number=12 job=1, got number=%s job=%s", req.Number, req.Job)
		}
	})

	t.Run("NumericCoordinates", func(t *testing.T) {
		data := `{"type":"FEED_SUBSCRIBE","owner":"O","name":"R","number":12}`
		if err := json.Unmarshal([]byte(data), &req); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if req.Number != "12" {
			t.Errorf("expected number=12, got %s", req.Number)
		}
	})
}

func TestSubscribeRequestValidate(t *testing.T) {
	cases := []struct {
		name    string
		req     SubscribeRequest
		wantErr bool
	}{
		{"ValidFeed", SubscribeRequest{Type: MessageTypeFeedSubscribe, Owner: "O", Name: "R", Number: "1"}, false},
		{"ValidLogs", SubscribeRequest{Type: MessageTypeLogsSubscribe, Owner: "O", Name: "R", Number: "1", Job: "2"}, false},
		{"UnknownType", SubscribeRequest{Type: "PING", Owner: "O", Name: "R", Number: "1"}, true},
		{"MissingNumber", SubscribeRequest{Type: MessageTypeFeedSubscribe, Owner: "O", Name: "R"}, true},
		{"LogsWithoutJob", SubscribeRequest{Type: MessageTypeLogsSubscribe, Owner: "O", Name: "R", Number: "1"}, true},
		{"SeparatorInOwner", SubscribeRequest{Type: MessageTypeFeedSubscribe, Owner: "my_org", Name: "R", Number: "1"}, true},
		{"SeparatorInName", SubscribeRequest{Type: MessageTypeLogsSubscribe, Owner: "O", Name: "my_repo", Number: "1", Job: "2"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("expected valid request, got %v", err)
			}
		})
	}
}
