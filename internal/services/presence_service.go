package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"opsboard/internal/database"
)

// PresenceService tracks which users have a dashboard tab open and which
// builds they are watching. Best-effort: the relay never blocks on it.
type PresenceService struct {
	client *database.RedisClient
}

func NewPresenceService(client *database.RedisClient) *PresenceService {
	return &PresenceService{client: client}
}

func (p *PresenceService) ViewerOnline(ctx context.Context, userID string) error {
	pipe := p.client.GetClient().Pipeline()

	pipe.SAdd(ctx, "online_viewers", userID)
	pipe.HSet(ctx, fmt.Sprintf("viewer:%s:status", userID), map[string]interface{}{
		"status":     "online",
		"last_seen":  time.Now().Unix(),
		"updated_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, fmt.Sprintf("viewer:%s:status", userID), 5*time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("failed to set viewer online", "userID", userID, "error", err)
		return err
	}
	return nil
}

func (p *PresenceService) ViewerOffline(ctx context.Context, userID string) error {
	pipe := p.client.GetClient().Pipeline()

	pipe.SRem(ctx, "online_viewers", userID)
	pipe.HSet(ctx, fmt.Sprintf("viewer:%s:status", userID), map[string]interface{}{
		"status":     "offline",
		"last_seen":  time.Now().Unix(),
		"updated_at": time.Now().Unix(),
	})
	pipe.Expire(ctx, fmt.Sprintf("viewer:%s:status", userID), 24*time.Hour)

	if _, err := pipe.Exec(ctx); err != nil {
		slog.Error("failed to set viewer offline", "userID", userID, "error", err)
		return err
	}
	return nil
}

func (p *PresenceService) IsViewerOnline(ctx context.Context, userID string) (bool, error) {
	return p.client.GetClient().SIsMember(ctx, "online_viewers", userID).Result()
}

func (p *PresenceService) OnlineViewers(ctx context.Context) ([]string, error) {
	return p.client.GetClient().SMembers(ctx, "online_viewers").Result()
}

func (p *PresenceService) JoinBuild(ctx context.Context, userID, channelKey string) error {
	pipe := p.client.GetClient().Pipeline()

	pipe.SAdd(ctx, fmt.Sprintf("build:%s:viewers", channelKey), userID)
	pipe.SAdd(ctx, fmt.Sprintf("viewer:%s:builds", userID), channelKey)

	_, err := pipe.Exec(ctx)
	return err
}

func (p *PresenceService) LeaveBuild(ctx context.Context, userID, channelKey string) error {
	pipe := p.client.GetClient().Pipeline()

	pipe.SRem(ctx, fmt.Sprintf("build:%s:viewers", channelKey), userID)
	pipe.SRem(ctx, fmt.Sprintf("viewer:%s:builds", userID), channelKey)

	_, err := pipe.Exec(ctx)
	return err
}

// BuildViewers lists the users currently watching a build's feed channel.
func (p *PresenceService) BuildViewers(ctx context.Context, channelKey string) ([]string, error) {
	return p.client.GetClient().SMembers(ctx, fmt.Sprintf("build:%s:viewers", channelKey)).Result()
}
