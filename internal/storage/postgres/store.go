package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	collectionDatamodel "github.com/frahmantamala/key-management/internal/core/datamodel/collection"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store keeps every collection as one row of the collections table.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates the collections table. Production postgres
// deployments run the goose migrations instead.
func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(&collectionDatamodel.Collection{})
}

func (s *Store) Load(ctx context.Context, name string) ([]byte, error) {
	var rec collectionDatamodel.Collection
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load collection %s: %w", name, err)
	}
	return rec.Data, nil
}

func (s *Store) Save(ctx context.Context, name string, data []byte) error {
	rec := collectionDatamodel.Collection{
		Name:      name,
		Data:      data,
		UpdatedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to save collection %s: %w", name, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
