package relay

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MessageType identifies an inbound client request over the WebSocket.
type MessageType string

const (
	MessageTypeFeedSubscribe MessageType = "FEED_SUBSCRIBE"
	MessageTypeLogsSubscribe MessageType = "LOGS_SUBSCRIBE"

	// Error events
	MessageTypeError MessageType = "error"
)

// String returns the string representation of the MessageType.
func (mt MessageType) String() string {
	return string(mt)
}

// IsValid checks if the MessageType is a valid enum value.
func (mt MessageType) IsValid() bool {
	switch mt {
	case MessageTypeFeedSubscribe, MessageTypeLogsSubscribe:
		return true
	default:
		return false
	}
}

// Coordinate is a build coordinate component that browsers send either as a
// JSON string or a bare number ("12" and 12 both decode to "12").
type Coordinate string

func (c *Coordinate) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*c = ""
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*c = Coordinate(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = Coordinate(n.String())
	return nil
}

func (c Coordinate) String() string {
	return string(c)
}

// hasSeparator reports whether the coordinate would corrupt a channel key.
func (c Coordinate) hasSeparator() bool {
	return strings.Contains(string(c), channelSeparator)
}

// SubscribeRequest is a client -> server message. Owner, Name and Number are
// required for both request types; Job only for LOGS_SUBSCRIBE.
type SubscribeRequest struct {
	Type   MessageType `json:"type"`
	Owner  Coordinate  `json:"owner"`
	Name   Coordinate  `json:"name"`
	Number Coordinate  `json:"number"`
	Job    Coordinate  `json:"job,omitempty"`
}

// Validate checks the coordinates required by the request type.
func (r *SubscribeRequest) Validate() error {
	if !r.Type.IsValid() {
		return fmt.Errorf("unknown message type %q", r.Type)
	}
	if r.Owner == "" || r.Name == "" || r.Number == "" {
		return fmt.Errorf("%s requires owner, name and number", r.Type)
	}
	if r.Type == MessageTypeLogsSubscribe && r.Job == "" {
		return fmt.Errorf("%s requires a job number", r.Type)
	}
	for _, c := range []Coordinate{r.Owner, r.Name, r.Number, r.Job} {
		if c.hasSeparator() {
			return fmt.Errorf("coordinate %q must not contain %q", c, channelSeparator)
		}
	}
	return nil
}

// Envelope is a server -> client message. Type carries the channel key the
// payload was delivered under, so the browser can route it to the right view.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ErrorData is the payload of an "error" envelope.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	feedChannelPrefix = "FEED"
	logChannelPrefix  = "LOGS"
	channelSeparator  = "_"
)

// FeedChannel derives the channel key for a build's status feed. Keys are pure
// functions of their coordinates; Validate and the feed parser reject
// coordinates containing the separator, so distinct coordinates cannot
// collide.
func FeedChannel(owner, name, number string) string {
	return strings.Join([]string{feedChannelPrefix, owner, name, number}, channelSeparator)
}

// LogChannel derives the channel key for one job's log stream.
func LogChannel(owner, name, number, job string) string {
	return strings.Join([]string{logChannelPrefix, owner, name, number, job}, channelSeparator)
}
