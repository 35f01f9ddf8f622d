package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/checkout/internal/models"
)

func seedCategory(t *testing.T, db *gorm.DB, name string, parentID *uint) *models.Category {
	t.Helper()
	category := &models.Category{Name: name, ParentID: parentID}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to seed category: %v", err)
	}
	return category
}

// seedTree builds:
//
//	electronics
//	├── phones
//	│   └── android
//	└── laptops
func seedTree(t *testing.T, db *gorm.DB) (root, phones, android, laptops *models.Category) {
	t.Helper()
	root = seedCategory(t, db, "electronics", nil)
	phones = seedCategory(t, db, "phones", &root.ID)
	android = seedCategory(t, db, "android", &phones.ID)
	laptops = seedCategory(t, db, "laptops", &root.ID)
	return
}

func treeIDs(tree []models.Category) []uint {
	ids := make([]uint, len(tree))
	for i := range tree {
		ids[i] = tree[i].ID
	}
	return ids
}

func TestSubtreePreOrder(t *testing.T) {
	svc, db := newCategoryService(t)
	ctx := context.Background()

	root, phones, android, laptops := seedTree(t, db)

	tree, err := svc.Subtree(ctx, root.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{root.ID, phones.ID, android.ID, laptops.ID}, treeIDs(tree))

	tree, err = svc.Subtree(ctx, phones.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{phones.ID, android.ID}, treeIDs(tree))

	tree, err = svc.Subtree(ctx, laptops.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{laptops.ID}, treeIDs(tree))
}

func TestSubtreeMissingRoot(t *testing.T) {
	svc, _ := newCategoryService(t)

	tree, err := svc.Subtree(context.Background(), 12345)
	require.NoError(t, err)
	require.Empty(t, tree)
}

func TestSubtreeTerminatesOnCycle(t *testing.T) {
	svc, db := newCategoryService(t)
	ctx := context.Background()

	a := seedCategory(t, db, "a", nil)
	b := seedCategory(t, db, "b", &a.ID)
	require.NoError(t, db.Model(&models.Category{}).Where("id = ?", a.ID).
		Update("parent_id", b.ID).Error)

	tree, err := svc.Subtree(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{a.ID, b.ID}, treeIDs(tree))
}

func TestSubtreeServedFromCache(t *testing.T) {
	svc, db := newCategoryService(t)
	ctx := context.Background()

	root, phones, android, laptops := seedTree(t, db)

	first, err := svc.Subtree(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, first, 4)

	// A child added after caching is invisible until invalidation.
	extra := seedCategory(t, db, "tablets", &root.ID)

	cached, err := svc.Subtree(ctx, root.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{root.ID, phones.ID, android.ID, laptops.ID}, treeIDs(cached))

	svc.Invalidate(ctx, root.ID)

	fresh, err := svc.Subtree(ctx, root.ID)
	require.NoError(t, err)
	require.Contains(t, treeIDs(fresh), extra.ID)
}

func TestCreateCategoryInvalidatesAncestors(t *testing.T) {
	svc, db := newCategoryService(t)
	ctx := context.Background()

	root, phones, _, _ := seedTree(t, db)

	// Warm the root's subtree cache.
	_, err := svc.Subtree(ctx, root.ID)
	require.NoError(t, err)

	created, err := svc.Create(ctx, &models.Category{Name: "ios", ParentID: &phones.ID})
	require.NoError(t, err)

	tree, err := svc.Subtree(ctx, root.ID)
	require.NoError(t, err)
	require.Contains(t, treeIDs(tree), created.ID)
}

func TestCreateCategoryUnknownParent(t *testing.T) {
	svc, _ := newCategoryService(t)

	missing := uint(777)
	_, err := svc.Create(context.Background(), &models.Category{Name: "orphan", ParentID: &missing})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRelatedProducts(t *testing.T) {
	svc, db := newCategoryService(t)
	ctx := context.Background()

	_, phones, android, laptops := seedTree(t, db)

	target := seedProduct(t, db, "sku-target", "10.00", 5)
	require.NoError(t, db.Model(target).Update("category_id", phones.ID).Error)

	sibling := seedProduct(t, db, "sku-sibling", "11.00", 5)
	require.NoError(t, db.Model(sibling).Update("category_id", android.ID).Error)

	other := seedProduct(t, db, "sku-other", "12.00", 5)
	require.NoError(t, db.Model(other).Update("category_id", laptops.ID).Error)

	inactive := seedProduct(t, db, "sku-dead", "13.00", 5)
	require.NoError(t, db.Model(inactive).
		Updates(map[string]any{"category_id": android.ID, "status": models.ProductStatusInactive}).Error)

	related, err := svc.RelatedProducts(ctx, target.ID, 10)
	require.NoError(t, err)
	require.Len(t, related, 1)
	require.Equal(t, sibling.ID, related[0].ID)

	// Second call hits the cached id list and rehydrates the same rows.
	cached, err := svc.RelatedProducts(ctx, target.ID, 10)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	require.Equal(t, sibling.ID, cached[0].ID)
}

func TestRelatedProductsNoCategory(t *testing.T) {
	svc, db := newCategoryService(t)
	ctx := context.Background()

	product := seedProduct(t, db, "sku-loose", "1.00", 1)

	related, err := svc.RelatedProducts(ctx, product.ID, 10)
	require.NoError(t, err)
	require.Empty(t, related)

	_, err = svc.RelatedProducts(ctx, 999, 10)
	require.ErrorIs(t, err, ErrNotFound)
}
