package services

import (
	"context"
	"strings"

	"organify/internal/core"
)

type CategoryStore interface {
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	GetCategory(ctx context.Context, userID, id string) (core.Category, error)
	ListCategories(ctx context.Context, userID string) ([]core.Category, error)
	UpdateCategory(ctx context.Context, userID, id string, p core.CategoryPatch) (core.Category, error)
	DeleteCategory(ctx context.Context, userID, id string) error
	SeedCategories(ctx context.Context, userID string, defaults []core.DefaultCategory) (int, error)
}

// CategoryService manages per user categories. Names are unique per owner
// after normalization, so "Aluguél" and "aluguel" collide.
type CategoryService struct {
	store CategoryStore
}

func NewCategoryService(store CategoryStore) *CategoryService {
	return &CategoryService{store: store}
}

func (s *CategoryService) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	list, err := s.store.ListCategories(ctx, userID)
	if err != nil {
		return nil, translate(ctx, "list categories", err)
	}
	return list, nil
}

func (s *CategoryService) CreateCategory(ctx context.Context, userID string, c core.Category) (core.Category, error) {
	if err := requireUser(userID); err != nil {
		return core.Category{}, err
	}
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.UserID = userID

	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, translate(ctx, "create category", err)
	}
	return created, nil
}

func (s *CategoryService) UpdateCategory(ctx context.Context, userID, id string, p core.CategoryPatch) (core.Category, error) {
	if err := requireUser(userID); err != nil {
		return core.Category{}, err
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		p.Name = &name
	}
	if err := p.Validate(); err != nil {
		return core.Category{}, err
	}

	updated, err := s.store.UpdateCategory(ctx, userID, id, p)
	if err != nil {
		return core.Category{}, translate(ctx, "update category", err)
	}
	return updated, nil
}

// DeleteCategory removes the category. Transactions that used it stay and
// lose their category.
func (s *CategoryService) DeleteCategory(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := s.store.DeleteCategory(ctx, userID, id); err != nil {
		return translate(ctx, "delete category", err)
	}
	return nil
}

// SeedDefaultCategories adds the starter set, skipping names the user
// already has. It returns how many categories were added.
func (s *CategoryService) SeedDefaultCategories(ctx context.Context, userID string) (int, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	added, err := s.store.SeedCategories(ctx, userID, core.DefaultCategories)
	if err != nil {
		return 0, translate(ctx, "seed categories", err)
	}
	return added, nil
}
