package relay

import (
	"context"
	"log/slog"
)

// Presence tracks which users are watching which builds. Implemented by the
// redis presence service; nil disables tracking.
type Presence interface {
	ViewerOnline(ctx context.Context, userID string) error
	ViewerOffline(ctx context.Context, userID string) error
	JoinBuild(ctx context.Context, userID, channelKey string) error
	LeaveBuild(ctx context.Context, userID, channelKey string) error
}

// Hub tracks connected clients and routes their subscribe requests to the
// multiplexers. Register and unregister run on a single goroutine so
// disconnect cleanup (channel membership, log teardown, presence) is
// serialized per client.
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client

	registry *Registry
	feed     *FeedMultiplexer
	logs     *LogMultiplexer
	presence Presence

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(registry *Registry, feed *FeedMultiplexer, logs *LogMultiplexer, presence Presence) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		registry:   registry,
		feed:       feed,
		logs:       logs,
		presence:   presence,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.ctx.Done():
			slog.Info("relay hub shutting down")
			return
		}
	}
}

func (h *Hub) Stop() {
	h.cancel()
}

func (h *Hub) registerClient(client *Client) {
	h.clients[client] = true
	slog.Info("client registered", "clientID", client.id, "userID", client.userID)

	if h.presence != nil {
		if err := h.presence.ViewerOnline(h.ctx, client.userID); err != nil {
			slog.Error("failed to set viewer online", "userID", client.userID, "error", err)
		}
	}
}

func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)

	// Disconnect is the cancellation signal for everything the client held:
	// feed channel membership and any active log subscription.
	channels := client.Channels()
	h.registry.LeaveAll(client)
	h.logs.CancelClient(client)

	if h.presence != nil {
		for _, key := range channels {
			if err := h.presence.LeaveBuild(h.ctx, client.userID, key); err != nil {
				slog.Error("failed to update build viewers", "userID", client.userID, "channel", key, "error", err)
			}
		}
		if err := h.presence.ViewerOffline(h.ctx, client.userID); err != nil {
			slog.Error("failed to set viewer offline", "userID", client.userID, "error", err)
		}
	}

	client.close()
	client.closeSendChannel()
	slog.Info("client unregistered", "clientID", client.id, "userID", client.userID)
}

func (h *Hub) handleSubscribe(c *Client, req *SubscribeRequest) error {
	switch req.Type {
	case MessageTypeFeedSubscribe:
		if err := h.feed.Subscribe(c, req.Owner.String(), req.Name.String(), req.Number.String()); err != nil {
			return err
		}
		if h.presence != nil {
			key := FeedChannel(req.Owner.String(), req.Name.String(), req.Number.String())
			if err := h.presence.JoinBuild(h.ctx, c.userID, key); err != nil {
				slog.Error("failed to update build viewers", "userID", c.userID, "channel", key, "error", err)
			}
		}
		return nil

	case MessageTypeLogsSubscribe:
		return h.logs.Subscribe(c, req.Owner.String(), req.Name.String(), req.Number.String(), req.Job.String())

	default:
		c.sendError("UNKNOWN_TYPE", "unknown message type")
		return nil
	}
}
