package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/Skotchmaster/checkout/internal/logging"
	"github.com/Skotchmaster/checkout/internal/models"
	"github.com/Skotchmaster/checkout/internal/mykafka"
	"github.com/Skotchmaster/checkout/internal/repo"
	"github.com/Skotchmaster/checkout/internal/transport"
)

// ProductIndexer mirrors catalog mutations into the search index.
type ProductIndexer interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
}

type ProductService struct {
	Repo       *repo.GormRepo
	Categories *CategoryService
	Index      ProductIndexer
	Events     mykafka.Publisher
}

func (s *ProductService) Get(ctx context.Context, productID uint) (*models.Product, error) {
	product, err := s.Repo.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d", ErrNotFound, productID)
		}
		return nil, err
	}
	return product, nil
}

func (s *ProductService) List(ctx context.Context, status string, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.ListProducts(ctx, status, offset, limit)
}

func (s *ProductService) Create(ctx context.Context, req transport.CreateProductRequest) (*models.Product, error) {
	if req.SKU == "" {
		return nil, fmt.Errorf("%w: sku required", ErrInvalidState)
	}
	if _, err := s.Repo.GetProductBySKU(ctx, req.SKU); err == nil {
		return nil, fmt.Errorf("%w: sku %q already exists", ErrConflict, req.SKU)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.ProductStatusActive
	}

	product := &models.Product{
		Name:        req.Name,
		SKU:         req.SKU,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Status:      status,
		CategoryID:  req.CategoryID,
	}
	if err := s.Repo.CreateProduct(ctx, product); err != nil {
		return nil, err
	}

	s.reindex(ctx, product)
	s.invalidateRecommendations(ctx)

	publish(ctx, s.Events, TopicProductEvents, strconv.FormatUint(uint64(product.ID), 10), map[string]any{
		"type":       "product_created",
		"product_id": product.ID,
		"sku":        product.SKU,
	})

	return product, nil
}

func (s *ProductService) Patch(ctx context.Context, productID uint, req transport.PatchProductRequest) (*models.Product, error) {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	if req.SKU != nil && *req.SKU != product.SKU {
		if _, err := s.Repo.GetProductBySKU(ctx, *req.SKU); err == nil {
			return nil, fmt.Errorf("%w: sku %q already exists", ErrConflict, *req.SKU)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		product.SKU = *req.SKU
	}
	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return nil, fmt.Errorf("%w: price cannot be negative", ErrInvalidState)
		}
		product.Price = *req.Price
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, fmt.Errorf("%w: stock cannot be negative", ErrInvalidState)
		}
		product.Stock = *req.Stock
	}
	if req.Status != nil {
		product.Status = *req.Status
	}
	if req.CategoryID != nil {
		product.CategoryID = req.CategoryID
	}

	if err := s.Repo.SaveProduct(ctx, product); err != nil {
		return nil, err
	}

	s.reindex(ctx, product)
	s.invalidateRecommendations(ctx)

	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, productID uint) error {
	if err := s.Repo.DeleteProduct(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: product %d", ErrNotFound, productID)
		}
		return err
	}

	if s.Index != nil {
		if err := s.Index.DeleteProduct(ctx, productID); err != nil {
			logging.FromContext(ctx).Warn("search index delete failed", "product_id", productID, "error", err)
		}
	}
	s.invalidateRecommendations(ctx)

	return nil
}

func (s *ProductService) reindex(ctx context.Context, product *models.Product) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexProduct(ctx, product); err != nil {
		logging.FromContext(ctx).Warn("search index update failed", "product_id", product.ID, "error", err)
	}
}

func (s *ProductService) invalidateRecommendations(ctx context.Context) {
	if s.Categories == nil {
		return
	}
	if err := s.Categories.Cache.DeletePattern(ctx, recommendationKeyPrefix+"*"); err != nil {
		logging.FromContext(ctx).Warn("recommendation cache invalidation failed", "error", err)
	}
}
