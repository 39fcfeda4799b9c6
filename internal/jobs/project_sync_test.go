package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"opsboard/internal/models"
	"opsboard/internal/upstream"
)

type fakeLister struct {
	projects []upstream.RemoteProject
	err      error
}

func (f *fakeLister) ListProjects(ctx context.Context) ([]upstream.RemoteProject, error) {
	return f.projects, f.err
}

type fakeStore struct {
	upserted []*models.Project
	failFor  string
}

func (f *fakeStore) Upsert(ctx context.Context, project *models.Project) error {
	if project.Name == f.failFor {
		return errors.New("constraint violation")
	}
	f.upserted = append(f.upserted, project)
	return nil
}

func TestSyncOnce(t *testing.T) {
	lister := &fakeLister{projects: []upstream.RemoteProject{
		{Owner: "O", Name: "alpha", LastBuild: "10", LastState: "passed"},
		{Owner: "O", Name: "beta", LastBuild: "3", LastState: "failed"},
	}}
	store := &fakeStore{}
	syncer := NewProjectSyncer(lister, store, time.Minute)

	if err := syncer.SyncOnce(context.Background()); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if len(store.upserted) != 2 {
		t.Fatalf("expected 2 upserts, got %d", len(store.upserted))
	}
	if store.upserted[0].LastBuildNumber != "10" || store.upserted[0].LastBuildState != "passed" {
		t.Errorf("unexpected first row %+v", store.upserted[0])
	}
	if store.upserted[0].SyncedAt.IsZero() {
		t.Error("SyncedAt must be stamped")
	}
}

func TestSyncOnceSkipsFailedRows(t *testing.T) {
	lister := &fakeLister{projects: []upstream.RemoteProject{
		{Owner: "O", Name: "bad"},
		{Owner: "O", Name: "good"},
	}}
	store := &fakeStore{failFor: "bad"}
	syncer := NewProjectSyncer(lister, store, time.Minute)

	if err := syncer.SyncOnce(context.Background()); err != nil {
		t.Fatalf("a single bad row must not fail the cycle: %v", err)
	}
	if len(store.upserted) != 1 || store.upserted[0].Name != "good" {
		t.Errorf("expected only the good row upserted, got %+v", store.upserted)
	}
}

func TestSyncOnceListFailure(t *testing.T) {
	lister := &fakeLister{err: errors.New("ci host unreachable")}
	syncer := NewProjectSyncer(lister, &fakeStore{}, time.Minute)

	if err := syncer.SyncOnce(context.Background()); err == nil {
		t.Fatal("expected the listing error to surface")
	}
}
