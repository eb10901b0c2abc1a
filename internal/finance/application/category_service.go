package application

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/Flashmaxi/expense-tracker/internal/finance/domain"
	financeErrors "github.com/Flashmaxi/expense-tracker/internal/finance/errors"
)

type CategoryService struct {
	repo domain.CategoryRepository
}

func NewCategoryService(repo domain.CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	if category.Color == "" {
		category.Color = domain.DefaultCategoryColor
	}
	if err := category.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, category.ID)
}

func (s *CategoryService) GetCategories(ctx context.Context, userID int64, categoryType string) ([]domain.Category, error) {
	if categoryType != "" && !domain.IsValidTransactionType(categoryType) {
		return nil, financeErrors.NewValidationError("Type must be either income or expense")
	}
	categories, err := s.repo.FindByUser(ctx, userID, categoryType)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		return []domain.Category{}, nil
	}
	return categories, nil
}

// GetCategory returns the category if userID owns it.
func (s *CategoryService) GetCategory(ctx context.Context, userID, categoryID int64) (*domain.Category, error) {
	category, err := s.repo.FindByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if category.UserID != userID {
		return nil, financeErrors.ErrAccessDenied
	}
	return category, nil
}

// UpdateCategory changes name and color only; a category keeps its type
// for life.
func (s *CategoryService) UpdateCategory(ctx context.Context, userID, categoryID int64, update domain.CategoryUpdate) (*domain.Category, error) {
	category, err := s.GetCategory(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return nil, financeErrors.ErrNoFieldsToUpdate
	}

	if update.Name != nil {
		category.Name = *update.Name
	}
	if update.Color != nil {
		category.Color = *update.Color
	}
	if err := category.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, category); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, categoryID)
}

func (s *CategoryService) DeleteCategory(ctx context.Context, userID, categoryID int64) error {
	if _, err := s.GetCategory(ctx, userID, categoryID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, categoryID)
}

// CreateDefaultCategories seeds the starter income and expense categories
// for a new user.
func (s *CategoryService) CreateDefaultCategories(ctx context.Context, userID int64) error {
	for _, def := range domain.DefaultCategories {
		category := &domain.Category{
			Name:   def.Name,
			Type:   def.Type,
			Color:  def.Color,
			UserID: userID,
		}
		if err := s.repo.Create(ctx, category); err != nil {
			return fmt.Errorf("could not create default category %q: %w", def.Name, err)
		}
	}
	log.WithField("user_id", userID).Infof("Created %d default categories", len(domain.DefaultCategories))
	return nil
}
