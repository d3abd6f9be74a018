// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes the store
//
// Services take repository interfaces, never a concrete store, so the same
// code runs against SQLite, MongoDB or a hand-written mock in tests.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/sakif/secondchance/internal/apperror"
	"github.com/sakif/secondchance/internal/model"
	"github.com/sakif/secondchance/internal/repository"
)

// ItemService handles business logic for catalog items.
//
// Unlike AuthService, store failures are not masked here: they are wrapped
// and returned as-is, and the item handler reports their text.
type ItemService struct {
	repo   repository.ItemRepository
	logger *slog.Logger
}

// NewItemService creates a new ItemService.
func NewItemService(repo repository.ItemRepository, logger *slog.Logger) *ItemService {
	return &ItemService{
		repo:   repo,
		logger: logger,
	}
}

// CreateItemInput carries the fields of a new item. AgeDays is a pointer so
// that "not sent" can be told apart from zero.
type CreateItemInput struct {
	Name        string
	Category    string
	Condition   string
	PostedBy    string
	Zipcode     string
	AgeDays     *float64
	Description string
}

// UpdateItemInput carries the four attributes an update overwrites.
type UpdateItemInput struct {
	Category    string
	Condition   string
	AgeDays     float64
	Description string
}

// List returns the whole catalog, unordered and unpaginated.
func (s *ItemService) List(ctx context.Context) ([]model.Item, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list items", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

// ValidateCreate checks the fields a new item must carry. The handler calls
// it before storing an upload, so a rejected item never touches the image
// store; Create calls it again for every other caller.
func ValidateCreate(in CreateItemInput) error {
	if strings.TrimSpace(in.Category) == "" ||
		strings.TrimSpace(in.Condition) == "" ||
		in.AgeDays == nil ||
		strings.TrimSpace(in.Description) == "" {
		return apperror.MissingFields()
	}
	return validateAge(*in.AgeDays)
}

// validateAge rejects ages that cannot be stored or encoded as JSON.
func validateAge(days float64) error {
	if math.IsNaN(days) || math.IsInf(days, 0) {
		return apperror.ValidationFailed("age_days", "age_days must be a finite number")
	}
	if days < 0 {
		return apperror.ValidationFailed("age_days", "age_days must not be negative")
	}
	return nil
}

// Create validates and saves a new item.
//
// attachment is the stored name of an already persisted upload, or "" when
// none was sent. The store assigns id and date_added.
func (s *ItemService) Create(ctx context.Context, in CreateItemInput, attachment string) (*model.Item, error) {
	if err := ValidateCreate(in); err != nil {
		s.logger.Warn("item rejected", slog.String("reason", err.Error()))
		return nil, err
	}
	in.Category = strings.TrimSpace(in.Category)
	in.Condition = strings.TrimSpace(in.Condition)
	in.Description = strings.TrimSpace(in.Description)

	item := &model.Item{
		Name:        strings.TrimSpace(in.Name),
		Category:    in.Category,
		Condition:   in.Condition,
		PostedBy:    strings.TrimSpace(in.PostedBy),
		Zipcode:     strings.TrimSpace(in.Zipcode),
		AgeDays:     *in.AgeDays,
		Description: in.Description,
		Image:       attachment,
	}

	if err := s.repo.Create(ctx, item); err != nil {
		s.logger.Error("failed to create item", slog.String("error", err.Error()))
		return nil, fmt.Errorf("creating item: %w", err)
	}

	s.logger.Info("item created",
		slog.String("id", item.ID),
		slog.String("category", item.Category),
	)
	return item, nil
}

// GetByID returns one item or apperror.ErrNotFound.
func (s *ItemService) GetByID(ctx context.Context, id string) (*model.Item, error) {
	item, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("item not found", slog.String("id", id))
		}
		return nil, err // already an apperror, or a wrapped store error
	}
	return item, nil
}

// Update overwrites category, condition, age_days and description of an
// existing item, recomputes age_years from age_days and stamps updatedAt.
// age_days follows the same rule as on create.
func (s *ItemService) Update(ctx context.Context, id string, in UpdateItemInput) (*model.Item, error) {
	if err := validateAge(in.AgeDays); err != nil {
		s.logger.Warn("item update rejected", slog.String("id", id), slog.String("reason", err.Error()))
		return nil, err
	}

	item, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	years := model.AgeInYears(in.AgeDays)
	item.Category = in.Category
	item.Condition = in.Condition
	item.AgeDays = in.AgeDays
	item.AgeYears = &years
	item.Description = in.Description

	if err := s.repo.Update(ctx, item); err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Error("failed to update item",
				slog.String("id", item.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("updating item: %w", err)
	}

	s.logger.Info("item updated", slog.String("id", item.ID))
	return item, nil
}

// Delete removes an item. Deleting an id that does not exist, including one
// deleted a moment ago, yields apperror.ErrNotFound.
func (s *ItemService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("item not found", slog.String("id", id))
			return err
		}
		s.logger.Error("failed to delete item",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting item: %w", err)
	}

	s.logger.Info("item deleted", slog.String("id", id))
	return nil
}
