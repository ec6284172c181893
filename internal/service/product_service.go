package service

import (
	"context"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// ProductService инкапсулирует бизнес-логику вокруг товаров
type ProductService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

func validateProduct(p domain.Product) error {
	if strings.TrimSpace(p.Name) == "" || p.Price.IsNegative() {
		return ErrInvalidInput
	}
	return p.Stock.Validate()
}

func (s *ProductService) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(p.SKU) == "" {
		return nil, ErrInvalidInput
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	cp := p
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *ProductService) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if p.ID <= 0 {
		return nil, ErrInvalidInput
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	cp := p
	if err := s.repo.Update(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}

func (s *ProductService) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error) {
	return s.repo.List(ctx, f)
}
