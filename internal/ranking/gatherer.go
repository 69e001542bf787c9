package ranking

import (
	"context"
	"fmt"

	"github.com/Ayash-Bera/archivist/internal/models"
	"github.com/Ayash-Bera/archivist/internal/query"
)

// Gatherer pulls candidate archives from the archive repository.
type Gatherer struct {
	archives models.ArchiveRepository
}

func NewGatherer(archives models.ArchiveRepository) *Gatherer {
	return &Gatherer{archives: archives}
}

// Gather returns the union of the time-range, keyword, category and location
// lookups, in that order. An archive found by several lookups keeps the
// position of its first occurrence.
func (g *Gatherer) Gather(ctx context.Context, intent *query.Intent) ([]models.Archive, error) {
	seen := make(map[uint]bool)
	var union []models.Archive
	merge := func(batch []models.Archive) {
		for _, a := range batch {
			if !seen[a.ID] {
				seen[a.ID] = true
				union = append(union, a)
			}
		}
	}

	for _, r := range intent.TimeRanges {
		batch, err := g.archives.FindByCreationTimeBetween(ctx, r.Start, r.End)
		if err != nil {
			return nil, fmt.Errorf("time range lookup failed: %w", err)
		}
		merge(batch)
	}

	for _, kw := range intent.Keywords {
		batch, err := g.archives.SearchByTitleOrDescription(ctx, kw)
		if err != nil {
			return nil, fmt.Errorf("keyword lookup %q failed: %w", kw, err)
		}
		merge(batch)
	}

	for _, c := range intent.Categories {
		batch, err := g.archives.FindByCategory(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("category lookup %q failed: %w", c, err)
		}
		merge(batch)
	}

	for _, l := range intent.Locations {
		batch, err := g.archives.FindByLocation(ctx, l)
		if err != nil {
			return nil, fmt.Errorf("location lookup %q failed: %w", l, err)
		}
		merge(batch)
	}

	return union, nil
}
