package relay

import (
	"log/slog"
	"sync"
)

// channel is one live broadcast group. Its mutex serializes membership
// changes against broadcasts so every delivery observes a consistent
// membership snapshot.
type channel struct {
	mu      sync.Mutex
	members map[*Client]struct{}
}

// Registry maps channel keys to their current member sets. It knows nothing
// about message shapes; the multiplexers own key derivation and payloads.
// Channels are created lazily on first join and dropped when the last member
// leaves. Delivery is serialized per channel key, not globally.
type Registry struct {
	mu       sync.RWMutex
	channels map[string]*channel
}

func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[string]*channel),
	}
}

// Join adds the client to the channel, creating it if needed. Joining a
// channel the client is already in is a no-op.
func (r *Registry) Join(key string, c *Client) {
	r.mu.Lock()
	ch, ok := r.channels[key]
	if !ok {
		ch = &channel{members: make(map[*Client]struct{})}
		r.channels[key] = ch
	}

	// Membership is added under the registry lock so a concurrent Leave
	// cannot drop the channel between lookup and insert.
	ch.mu.Lock()
	ch.members[c] = struct{}{}
	ch.mu.Unlock()
	r.mu.Unlock()

	c.addChannel(key)
	slog.Debug("client joined channel", "clientID", c.id, "channel", key)
}

// Leave removes the client from the channel. Leaving a channel the client is
// not in is a no-op. The channel itself is removed once empty.
func (r *Registry) Leave(key string, c *Client) {
	r.mu.Lock()
	ch, ok := r.channels[key]
	if !ok {
		r.mu.Unlock()
		return
	}

	ch.mu.Lock()
	delete(ch.members, c)
	empty := len(ch.members) == 0
	ch.mu.Unlock()

	if empty {
		delete(r.channels, key)
	}
	r.mu.Unlock()

	c.removeChannel(key)
	slog.Debug("client left channel", "clientID", c.id, "channel", key)
}

// LeaveAll removes the client from every channel it belongs to. Called on
// disconnect.
func (r *Registry) LeaveAll(c *Client) {
	for _, key := range c.Channels() {
		r.Leave(key, c)
	}
}

// Broadcast delivers the payload to every current member of the channel.
// Broadcasting to an unknown or empty channel is a no-op. Members that join
// after the membership snapshot was taken do not receive the payload.
func (r *Registry) Broadcast(key string, payload []byte) {
	r.mu.RLock()
	ch, ok := r.channels[key]
	r.mu.RUnlock()
	if !ok {
		return
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	for member := range ch.members {
		if err := member.Deliver(key, payload); err != nil {
			slog.Debug("broadcast delivery skipped", "clientID", member.id, "channel", key, "error", err)
		}
	}
}

// MemberCount reports the current membership size of a channel.
func (r *Registry) MemberCount(key string) int {
	r.mu.RLock()
	ch, ok := r.channels[key]
	r.mu.RUnlock()
	if !ok {
		return 0
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.members)
}
