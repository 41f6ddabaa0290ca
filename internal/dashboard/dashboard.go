// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package dashboard computes the counters on the admin landing page.
package dashboard

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/mknursery/internal/backend"
	"github.com/taibuivan/mknursery/internal/catalog"
)

// Counter counts the rows of one collection.
type Counter interface {
	Count(ctx context.Context, filters ...backend.Filter) (int, error)
}

// Stats are the dashboard tiles.
type Stats struct {
	Plants       int
	OutOfStock   int
	Blogs        int
	Testimonials int
}

// Service gathers [Stats] from the entity repositories.
type Service struct {
	plants       Counter
	blogs        Counter
	testimonials Counter
}

func NewService(plants, blogs, testimonials Counter) *Service {
	return &Service{plants: plants, blogs: blogs, testimonials: testimonials}
}

// Stats runs the four counts concurrently. The first failure cancels the rest.
func (service *Service) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	group, groupCtx := errgroup.WithContext(ctx)

	count := func(name string, counter Counter, target *int, filters ...backend.Filter) {
		group.Go(func() error {
			total, err := counter.Count(groupCtx, filters...)
			if err != nil {
				return fmt.Errorf("dashboard: count %s: %w", name, err)
			}
			*target = total
			return nil
		})
	}

	count("plants", service.plants, &stats.Plants)
	count("out_of_stock", service.plants, &stats.OutOfStock, catalog.OutOfStock())
	count("blogs", service.blogs, &stats.Blogs)
	count("testimonials", service.testimonials, &stats.Testimonials)

	if err := group.Wait(); err != nil {
		return Stats{}, err
	}
	return stats, nil
}
