package app

import (
	"context"

	"braincraft/internal/domain"
)

const (
	discoverPopularLimit = 20
	discoverShelfLimit   = 6
	discoverRecentLimit  = 10
)

// CatalogService assembles the discover page.
type CatalogService struct {
	catalog CatalogReader
}

func NewCatalogService(catalog CatalogReader) *CatalogService {
	return &CatalogService{catalog: catalog}
}

// Discover lists popular and recent quizzes by other creators and one shelf
// of popular quizzes per published category.
func (s *CatalogService) Discover(ctx context.Context, userID string) (domain.Discover, error) {
	popular, err := s.catalog.ListPublished(ctx, domain.CatalogFilter{
		ExcludeCreator: userID,
		OrderBy:        domain.OrderPopular,
		Limit:          discoverPopularLimit,
	})
	if err != nil {
		return domain.Discover{}, err
	}
	recent, err := s.catalog.ListPublished(ctx, domain.CatalogFilter{
		ExcludeCreator: userID,
		OrderBy:        domain.OrderRecent,
		Limit:          discoverRecentLimit,
	})
	if err != nil {
		return domain.Discover{}, err
	}

	categories, err := s.catalog.PublishedCategories(ctx)
	if err != nil {
		return domain.Discover{}, err
	}
	shelves := make([]domain.CategoryShelf, 0, len(categories))
	for _, c := range categories {
		quizzes, err := s.catalog.ListPublished(ctx, domain.CatalogFilter{
			Category: c.Category,
			OrderBy:  domain.OrderPopular,
			Limit:    discoverShelfLimit,
		})
		if err != nil {
			return domain.Discover{}, err
		}
		shelves = append(shelves, domain.CategoryShelf{Category: c.Category, Quizzes: quizzes})
	}

	if popular == nil {
		popular = []domain.QuizSummary{}
	}
	if recent == nil {
		recent = []domain.QuizSummary{}
	}
	return domain.Discover{
		PopularQuizzes:    popular,
		QuizzesByCategory: shelves,
		RecentQuizzes:     recent,
	}, nil
}
