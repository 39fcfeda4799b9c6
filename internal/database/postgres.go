package database

import (
	"fmt"

	"opsboard/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func NewPostgresConnection(dburi string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dburi), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.NewsItem{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := addIndexes(db); err != nil {
		return nil, fmt.Errorf("failed to add indexes: %w", err)
	}

	return db, nil
}

func addIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		columns []string
	}{
		{"users", []string{"email"}},
		{"projects", []string{"owner", "name"}},
	}

	for _, idx := range indexes {
		for _, column := range idx.columns {
			indexName := fmt.Sprintf("idx_%s_%s", idx.table, column)
			if err := db.Exec(fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
				indexName, idx.table, column)).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
