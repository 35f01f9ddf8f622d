package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/Skotchmaster/checkout/internal/cache"
	"github.com/Skotchmaster/checkout/internal/logging"
	"github.com/Skotchmaster/checkout/internal/models"
	"github.com/Skotchmaster/checkout/internal/repo"
)

const (
	subtreeKeyPrefix        = "category_tree:"
	recommendationKeyPrefix = "product_recommendations:"

	subtreeTTL        = time.Hour
	recommendationTTL = time.Hour
)

// CategoryService resolves category subtrees and subtree-based product
// recommendations, memoizing both in the cache store. Cached entries hold
// id lists only; hits are rehydrated into full rows because callers read
// fields beyond id and name.
type CategoryService struct {
	Repo  *repo.GormRepo
	Cache cache.Store

	sf singleflight.Group
}

func subtreeKey(categoryID uint) string {
	return fmt.Sprintf("%s%d", subtreeKeyPrefix, categoryID)
}

func recommendationKey(productID uint) string {
	return fmt.Sprintf("%s%d", recommendationKeyPrefix, productID)
}

func (s *CategoryService) Get(ctx context.Context, categoryID uint) (*models.Category, error) {
	category, err := s.Repo.GetCategory(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: category %d", ErrNotFound, categoryID)
		}
		return nil, err
	}
	return category, nil
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	return s.Repo.ListCategories(ctx)
}

// Subtree returns the categories reachable from categoryID via child edges,
// root first, in pre-order.
func (s *CategoryService) Subtree(ctx context.Context, categoryID uint) ([]models.Category, error) {
	key := subtreeKey(categoryID)

	var ids []uint
	hit, err := s.Cache.Get(ctx, key, &ids)
	if err != nil {
		logging.FromContext(ctx).Warn("subtree cache read failed", "key", key, "error", err)
	}
	if hit {
		return s.categoriesInOrder(ctx, ids)
	}

	v, err, _ := s.sf.Do(key, func() (any, error) {
		return s.traverse(ctx, categoryID)
	})
	if err != nil {
		return nil, err
	}
	categories := v.([]models.Category)

	ids = make([]uint, len(categories))
	for i := range categories {
		ids[i] = categories[i].ID
	}
	if err := s.Cache.Set(ctx, key, ids, subtreeTTL); err != nil {
		logging.FromContext(ctx).Warn("subtree cache write failed", "key", key, "error", err)
	}

	return categories, nil
}

// traverse is an iterative pre-order DFS with an explicit worklist. The
// visited set guards against accidental cycles in the parent/child graph;
// cycles are tolerated, not assumed.
func (s *CategoryService) traverse(ctx context.Context, rootID uint) ([]models.Category, error) {
	stack := []uint{rootID}
	visited := make(map[uint]bool)
	var out []models.Category

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true

		category, err := s.Repo.GetCategory(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, *category)

		children, err := s.Repo.ListChildCategories(ctx, id)
		if err != nil {
			return nil, err
		}
		// Pushed in reverse so the lowest-id child is visited first.
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i].ID)
		}
	}

	return out, nil
}

// RelatedProducts returns up to limit active products sharing any category
// in the subtree of the product's category, excluding the product itself.
func (s *CategoryService) RelatedProducts(ctx context.Context, productID uint, limit int) ([]models.Product, error) {
	key := recommendationKey(productID)

	var ids []uint
	hit, err := s.Cache.Get(ctx, key, &ids)
	if err != nil {
		logging.FromContext(ctx).Warn("recommendation cache read failed", "key", key, "error", err)
	}
	if hit {
		return s.productsInOrder(ctx, ids)
	}

	product, err := s.Repo.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, productID)
		}
		return nil, err
	}
	if product.CategoryID == nil {
		return nil, nil
	}

	subtree, err := s.Subtree(ctx, *product.CategoryID)
	if err != nil {
		return nil, err
	}
	categoryIDs := make([]uint, len(subtree))
	for i := range subtree {
		categoryIDs[i] = subtree[i].ID
	}

	related, err := s.Repo.ListProductsByCategories(ctx, categoryIDs, productID, limit)
	if err != nil {
		return nil, err
	}

	ids = make([]uint, len(related))
	for i := range related {
		ids[i] = related[i].ID
	}
	if err := s.Cache.Set(ctx, key, ids, recommendationTTL); err != nil {
		logging.FromContext(ctx).Warn("recommendation cache write failed", "key", key, "error", err)
	}

	return related, nil
}

// Invalidate clears the cached subtree for one category and, since a
// recommendation list may span many categories, every recommendation entry.
func (s *CategoryService) Invalidate(ctx context.Context, categoryID uint) {
	l := logging.FromContext(ctx)
	if err := s.Cache.Delete(ctx, subtreeKey(categoryID)); err != nil {
		l.Warn("subtree cache invalidation failed", "category_id", categoryID, "error", err)
	}
	if err := s.Cache.DeletePattern(ctx, recommendationKeyPrefix+"*"); err != nil {
		l.Warn("recommendation cache invalidation failed", "error", err)
	}
}

// Create adds a category and invalidates the cached subtrees of its
// ancestor chain, which all gained a descendant.
func (s *CategoryService) Create(ctx context.Context, category *models.Category) (*models.Category, error) {
	if category.ParentID != nil {
		if _, err := s.Repo.GetCategory(ctx, *category.ParentID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: parent category %d", ErrNotFound, *category.ParentID)
			}
			return nil, err
		}
	}

	if err := s.Repo.CreateCategory(ctx, category); err != nil {
		return nil, err
	}

	seen := make(map[uint]bool)
	for parentID := category.ParentID; parentID != nil && !seen[*parentID]; {
		seen[*parentID] = true
		s.Invalidate(ctx, *parentID)
		parent, err := s.Repo.GetCategory(ctx, *parentID)
		if err != nil {
			break
		}
		parentID = parent.ParentID
	}

	return category, nil
}

func (s *CategoryService) categoriesInOrder(ctx context.Context, ids []uint) ([]models.Category, error) {
	rows, err := s.Repo.ListCategoriesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Category, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	out := make([]models.Category, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *CategoryService) productsInOrder(ctx context.Context, ids []uint) ([]models.Product, error) {
	rows, err := s.Repo.ListProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.Product, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	out := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}
