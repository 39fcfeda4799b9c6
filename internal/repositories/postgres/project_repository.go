package postgres

import (
	"context"

	"opsboard/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) List(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := r.db.WithContext(ctx).Order("owner, name").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) FindBySlug(ctx context.Context, owner, name string) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).Where("owner = ? AND name = ?", owner, name).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) SetEnabled(ctx context.Context, id uint, enabled bool) error {
	return r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).
		Update("enabled", enabled).Error
}

// Upsert inserts or refreshes a synced project row, keyed by (owner, name).
// The enabled flag is operator state and is left untouched on conflict.
func (r *ProjectRepository) Upsert(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "owner"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"last_build_number", "last_build_state", "synced_at", "updated_at",
		}),
	}).Create(project).Error
}
