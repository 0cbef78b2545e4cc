package service

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"photoshare/internal/models"
	"photoshare/internal/repository"
)

const maxCategoryNameLength = 100

// CategoryDef is a category to seed.
type CategoryDef struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// CategoryService manages gallery categories and the Uncategorized fallback.
type CategoryService struct {
	categoryRepo repository.CategoryRepository
}

func NewCategoryService(categoryRepo repository.CategoryRepository) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo}
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	return s.categoryRepo.List(ctx)
}

// Resolve finds a category by numeric id or, failing that, by case-insensitive name.
func (s *CategoryService) Resolve(ctx context.Context, ref string) (*models.Category, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, models.NewNotFoundError("Category", ref)
	}
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		category, err := s.categoryRepo.GetByID(ctx, uint(id))
		if err == nil || !models.HasCode(err, models.CodeNotFound) {
			return category, err
		}
	}
	category, err := s.categoryRepo.GetByName(ctx, ref)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, models.NewNotFoundError("Category", ref)
		}
		return nil, err
	}
	return category, nil
}

// Uncategorized returns the fallback category, creating it when missing.
func (s *CategoryService) Uncategorized(ctx context.Context) (*models.Category, error) {
	category, _, err := s.categoryRepo.Ensure(ctx, models.UncategorizedName, models.UncategorizedDescription)
	return category, err
}

// resolveForPhoto picks the category a photo is filed under. An unknown or empty id yields Uncategorized.
func (s *CategoryService) resolveForPhoto(ctx context.Context, id uint) (*models.Category, error) {
	if id != 0 {
		category, err := s.categoryRepo.GetByID(ctx, id)
		if err == nil {
			return category, nil
		}
		if !models.HasCode(err, models.CodeNotFound) {
			return nil, err
		}
	}
	return s.Uncategorized(ctx)
}

func (s *CategoryService) Create(ctx context.Context, name, description string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("Category name is required.")
	}
	if utf8.RuneCountInString(name) > maxCategoryNameLength {
		return nil, models.NewValidationError("Category name is too long.")
	}
	if existing, err := s.categoryRepo.GetByName(ctx, name); err == nil && existing != nil {
		return nil, models.NewValidationError("Category already exists.")
	}

	category := &models.Category{Name: name, Description: strings.TrimSpace(description)}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// Delete removes a category and files its photos under Uncategorized.
func (s *CategoryService) Delete(ctx context.Context, id uint) (int64, error) {
	fallback, err := s.Uncategorized(ctx)
	if err != nil {
		return 0, err
	}
	if fallback.ID == id {
		return 0, models.NewValidationError("The Uncategorized category cannot be deleted.")
	}
	return s.categoryRepo.DeleteAndReassign(ctx, id, fallback.ID)
}

// ReassignMissing moves photos whose category no longer exists to Uncategorized.
func (s *CategoryService) ReassignMissing(ctx context.Context) (int64, error) {
	fallback, err := s.Uncategorized(ctx)
	if err != nil {
		return 0, err
	}
	return s.categoryRepo.ReassignMissing(ctx, fallback.ID)
}

// Seed creates every missing category in defs plus Uncategorized and reports how many were new.
// Running it again creates nothing.
func (s *CategoryService) Seed(ctx context.Context, defs []CategoryDef) (int, error) {
	created := 0
	for _, def := range append(defs, CategoryDef{Name: models.UncategorizedName, Description: models.UncategorizedDescription}) {
		name := strings.TrimSpace(def.Name)
		if name == "" {
			continue
		}
		_, isNew, err := s.categoryRepo.Ensure(ctx, name, def.Description)
		if err != nil {
			return created, err
		}
		if isNew {
			created++
		}
	}
	return created, nil
}
