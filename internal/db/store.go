package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"v2desk/internal/model"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("server not found")
	ErrDuplicate = errors.New("server name already exists")
)

// Store keeps server profiles in the database, keyed by name.
type Store struct {
	db *gorm.DB
}

func NewStore(database *gorm.DB) *Store {
	return &Store{db: database}
}

func (s *Store) Get(ctx context.Context, name string) (*model.Server, error) {
	var server model.Server
	result := s.db.WithContext(ctx).Where("name = ?", name).Limit(1).Find(&server)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return &server, nil
}

func (s *Store) List(ctx context.Context) ([]model.Server, error) {
	var servers []model.Server
	if err := s.db.WithContext(ctx).Order("id").Find(&servers).Error; err != nil {
		return nil, err
	}
	return servers, nil
}

func (s *Store) Create(ctx context.Context, server *model.Server) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureFree(tx, server.Name, 0); err != nil {
			return err
		}
		return tx.Create(server).Error
	})
}

// Replace overwrites the server called name with server, which may carry a
// new name. Connection state and probe results are kept.
func (s *Store) Replace(ctx context.Context, name string, server *model.Server) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Server
		result := tx.Where("name = ?", name).Limit(1).Find(&existing)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		if err := ensureFree(tx, server.Name, existing.ID); err != nil {
			return err
		}

		server.ID = existing.ID
		server.CreatedAt = existing.CreatedAt
		server.Connected = existing.Connected
		server.LatencyMs = existing.LatencyMs
		server.LastProbed = existing.LastProbed
		return tx.Save(server).Error
	})
}

func (s *Store) Delete(ctx context.Context, name string) error {
	result := s.db.WithContext(ctx).Where("name = ?", name).Delete(&model.Server{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

func (s *Store) SetConnected(ctx context.Context, name string, connected bool) error {
	result := s.db.WithContext(ctx).Model(&model.Server{}).Where("name = ?", name).Update("connected", connected)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// SetLatency records probe results. Names that no longer exist are skipped.
func (s *Store) SetLatency(ctx context.Context, latency map[string]int64) error {
	now := time.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for name, ms := range latency {
			err := tx.Model(&model.Server{}).Where("name = ?", name).Updates(map[string]interface{}{
				"latency_ms":  ms,
				"last_probed": now,
			}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureFree(tx *gorm.DB, name string, selfID uint) error {
	var count int64
	if err := tx.Model(&model.Server{}).Where("name = ? AND id != ?", name, selfID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	return nil
}
