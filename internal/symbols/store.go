// Package symbols manages the symbol registry backing the REST service.
package symbols

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"tickphysics-lab/internal/models"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("symbol not found")
	ErrConflict = errors.New("symbol name already exists")
	ErrInvalid  = errors.New("invalid symbol")
)

const (
	maxNameLength        = 64
	maxDescriptionLength = 255
)

// CreateInput is the payload for a new symbol.
type CreateInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// UpdateInput is a partial update. Nil fields are left unchanged; an empty
// description clears it.
type UpdateInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Store is the gorm-backed symbol repository.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// List returns symbols ordered by id.
func (s *Store) List(ctx context.Context, offset, limit int) ([]models.Symbol, error) {
	var out []models.Symbol
	err := s.db.WithContext(ctx).Order("id asc").Offset(offset).Limit(limit).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	return out, nil
}

// Get returns the symbol with the given id.
func (s *Store) Get(ctx context.Context, id uint) (*models.Symbol, error) {
	return get(s.db.WithContext(ctx), id)
}

// Create inserts a new symbol. Names are unique.
func (s *Store) Create(ctx context.Context, in CreateInput) (*models.Symbol, error) {
	name, err := validateName(in.Name)
	if err != nil {
		return nil, err
	}
	desc, err := validateDescription(in.Description)
	if err != nil {
		return nil, err
	}

	sym := &models.Symbol{Name: name, Description: desc}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureNameFree(tx, name, 0); err != nil {
			return err
		}
		return tx.Create(sym).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return sym, nil
}

// Update applies a partial update. Renaming onto another symbol's name fails
// with ErrConflict.
func (s *Store) Update(ctx context.Context, id uint, in UpdateInput) (*models.Symbol, error) {
	updates := make(map[string]interface{})
	if in.Name != nil {
		name, err := validateName(*in.Name)
		if err != nil {
			return nil, err
		}
		updates["name"] = name
	}
	if in.Description != nil {
		desc, err := validateDescription(in.Description)
		if err != nil {
			return nil, err
		}
		if desc == nil {
			updates["description"] = nil
		} else {
			updates["description"] = *desc
		}
	}

	var sym *models.Symbol
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		sym, err = get(tx, id)
		if err != nil {
			return err
		}
		if name, ok := updates["name"].(string); ok && name != sym.Name {
			if err := ensureNameFree(tx, name, id); err != nil {
				return err
			}
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(sym).Updates(updates).Error; err != nil {
			return err
		}
		sym, err = get(tx, id)
		return err
	})
	if err != nil {
		return nil, translate(err)
	}
	return sym, nil
}

// Delete removes the symbol with the given id.
func (s *Store) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Symbol{}, id)
	if res.Error != nil {
		return fmt.Errorf("delete symbol %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks that the database answers queries.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.WithContext(ctx).Exec("SELECT 1").Error
}

func get(tx *gorm.DB, id uint) (*models.Symbol, error) {
	var sym models.Symbol
	if err := tx.First(&sym, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get symbol %d: %w", id, err)
	}
	return &sym, nil
}

func ensureNameFree(tx *gorm.DB, name string, exceptID uint) error {
	var count int64
	q := tx.Model(&models.Symbol{}).Where("name = ?", name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("check symbol name: %w", err)
	}
	if count > 0 {
		return ErrConflict
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}

func validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if n := utf8.RuneCountInString(name); n == 0 || n > maxNameLength {
		return "", fmt.Errorf("%w: name must be 1 to %d characters", ErrInvalid, maxNameLength)
	}
	return name, nil
}

func validateDescription(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	desc := strings.TrimSpace(*raw)
	if desc == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(desc) > maxDescriptionLength {
		return nil, fmt.Errorf("%w: description must be at most %d characters", ErrInvalid, maxDescriptionLength)
	}
	return &desc, nil
}
