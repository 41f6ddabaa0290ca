// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"context"
	"time"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/platform/database/schema"
	"github.com/taibuivan/mknursery/internal/repository"
)

// FeaturedCount is how many new arrivals the home page shows.
const FeaturedCount = 3

// NewRepository binds a plant repository to the data provider.
func NewRepository(data backend.Data, timeout time.Duration) *repository.Repository[Plant] {
	return repository.New[Plant](data, schema.Plants.Table, Resource, timeout)
}

// Service is the storefront's read side of the catalog.
type Service struct {
	plants *repository.Repository[Plant]
}

func NewService(plants *repository.Repository[Plant]) *Service {
	return &Service{plants: plants}
}

// Featured returns the newest plants for the home page.
func (service *Service) Featured(context context.Context) ([]Plant, error) {
	return service.plants.List(context, repository.Newest(FeaturedCount))
}

// Catalog returns every plant, newest first.
func (service *Service) Catalog(context context.Context) ([]Plant, error) {
	return service.plants.List(context, repository.Newest(0))
}

// Plant returns one plant or "Plant not found".
func (service *Service) Plant(context context.Context, id string) (Plant, error) {
	return service.plants.Get(context, id)
}

// OutOfStock filters plants that cannot be bought.
func OutOfStock() backend.Filter {
	return backend.Lte(schema.Plants.Stock, 0)
}
