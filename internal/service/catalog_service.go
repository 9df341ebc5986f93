package service

import (
	"context"

	"github.com/d60-Lab/venda-certa/internal/model"
	"github.com/d60-Lab/venda-certa/internal/repository"
)

// CatalogService 商品、分类、客户的只读查询
type CatalogService interface {
	Product(ctx context.Context, id string) (*model.Product, error)
	Categories(ctx context.Context) ([]model.Category, error)
	Customer(ctx context.Context, id string) (*model.Customer, error)
}

type catalogService struct {
	store *repository.Store
}

func NewCatalogService(store *repository.Store) CatalogService {
	return &catalogService{store: store}
}

func (s *catalogService) Product(ctx context.Context, id string) (*model.Product, error) {
	p, err := s.store.Products.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "produto %s não encontrado", id)
	}
	return p, nil
}

func (s *catalogService) Categories(ctx context.Context) ([]model.Category, error) {
	return s.store.Categories.Tree(ctx)
}

func (s *catalogService) Customer(ctx context.Context, id string) (*model.Customer, error) {
	c, err := s.store.Customers.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "cliente %s não encontrado", id)
	}
	return c, nil
}
