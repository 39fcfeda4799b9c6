package models

import (
	"time"

	"gorm.io/gorm"
)

// Project mirrors a repository on the CI host. Rows are upserted by the sync
// job; the last-build columns are a display cache, not a build history.
type Project struct {
	gorm.Model
	Owner   string `gorm:"index:idx_project_slug,unique;not null" json:"owner"`
	Name    string `gorm:"index:idx_project_slug,unique;not null" json:"name"`
	Enabled bool   `json:"enabled"`

	LastBuildNumber string    `json:"last_build_number"`
	LastBuildState  string    `json:"last_build_state"`
	SyncedAt        time.Time `json:"synced_at"`

	Members []*User `gorm:"many2many:project_members" json:"-"`
}

type ProjectResponse struct {
	ID              uint      `json:"id"`
	Owner           string    `json:"owner"`
	Name            string    `json:"name"`
	Enabled         bool      `json:"enabled"`
	LastBuildNumber string    `json:"last_build_number"`
	LastBuildState  string    `json:"last_build_state"`
	SyncedAt        time.Time `json:"synced_at"`
}

func (p *Project) ToResponse() ProjectResponse {
	return ProjectResponse{
		ID:              p.ID,
		Owner:           p.Owner,
		Name:            p.Name,
		Enabled:         p.Enabled,
		LastBuildNumber: p.LastBuildNumber,
		LastBuildState:  p.LastBuildState,
		SyncedAt:        p.SyncedAt,
	}
}
