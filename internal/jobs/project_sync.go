package jobs

import (
	"context"
	"log/slog"
	"time"

	"opsboard/internal/models"
	"opsboard/internal/upstream"
)

// ProjectLister is the CI-host side of the sync job.
type ProjectLister interface {
	ListProjects(ctx context.Context) ([]upstream.RemoteProject, error)
}

// ProjectStore is the persistence side of the sync job.
type ProjectStore interface {
	Upsert(ctx context.Context, project *models.Project) error
}

// ProjectSyncer periodically pulls the repository listing from the CI host
// and refreshes the local project rows. A failed cycle is logged and retried
// on the next tick.
type ProjectSyncer struct {
	ci       ProjectLister
	store    ProjectStore
	interval time.Duration
}

func NewProjectSyncer(ci ProjectLister, store ProjectStore, interval time.Duration) *ProjectSyncer {
	return &ProjectSyncer{
		ci:       ci,
		store:    store,
		interval: interval,
	}
}

// Run blocks until the context is cancelled. One sync happens immediately so
// a fresh deployment is not empty until the first tick.
func (s *ProjectSyncer) Run(ctx context.Context) {
	if err := s.SyncOnce(ctx); err != nil {
		slog.Error("project sync failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.SyncOnce(ctx); err != nil {
				slog.Error("project sync failed", "error", err)
			}
		case <-ctx.Done():
			slog.Info("project syncer shutting down")
			return
		}
	}
}

func (s *ProjectSyncer) SyncOnce(ctx context.Context) error {
	remote, err := s.ci.ListProjects(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	synced := 0
	for _, rp := range remote {
		project := &models.Project{
			Owner:           rp.Owner,
			Name:            rp.Name,
			LastBuildNumber: rp.LastBuild,
			LastBuildState:  rp.LastState,
			SyncedAt:        now,
		}
		if err := s.store.Upsert(ctx, project); err != nil {
			slog.Error("failed to upsert project", "owner", rp.Owner, "name", rp.Name, "error", err)
			continue
		}
		synced++
	}

	slog.Info("project sync complete", "remote", len(remote), "synced", synced)
	return nil
}
