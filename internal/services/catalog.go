package services

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"tesoreria/internal/core"
	"tesoreria/internal/storage"
)

// Catalog cache keys. The catalog changes rarely and is read on almost every
// form render, so listings are cached and invalidated on writes.
const (
	cacheKeyGenerals  = "generals"
	cacheKeyProviders = "providers"

	catalogCacheTTL = 5 * time.Minute
)

// CatalogService serves the general/concept/subconcept hierarchy and the
// provider registry, with a read-through cache in front of SQLite.
type CatalogService struct {
	storage *storage.SQLiteRepository
	cache   *gocache.Cache
}

func NewCatalogService(st *storage.SQLiteRepository) *CatalogService {
	return &CatalogService{
		storage: st,
		cache:   gocache.New(catalogCacheTTL, 10*time.Minute),
	}
}

func (s *CatalogService) ListGenerals(ctx context.Context) ([]core.General, error) {
	if cached, ok := s.cache.Get(cacheKeyGenerals); ok {
		return cached.([]core.General), nil
	}
	generals, err := s.storage.ListGenerals(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(cacheKeyGenerals, generals)
	return generals, nil
}

func (s *CatalogService) ListConcepts(ctx context.Context, generalID string) ([]core.Concept, error) {
	key := "concepts:" + generalID
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]core.Concept), nil
	}
	concepts, err := s.storage.ListConcepts(ctx, generalID)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, concepts)
	return concepts, nil
}

func (s *CatalogService) ListSubconcepts(ctx context.Context, conceptID string) ([]core.Subconcept, error) {
	key := "subconcepts:" + conceptID
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]core.Subconcept), nil
	}
	subconcepts, err := s.storage.ListSubconcepts(ctx, conceptID)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, subconcepts)
	return subconcepts, nil
}

func (s *CatalogService) ListProviders(ctx context.Context) ([]core.Provider, error) {
	if cached, ok := s.cache.Get(cacheKeyProviders); ok {
		return cached.([]core.Provider), nil
	}
	providers, err := s.storage.ListProviders(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(cacheKeyProviders, providers)
	return providers, nil
}

func (s *CatalogService) CreateGeneral(ctx context.Context, g core.General) (core.General, error) {
	created, err := s.storage.CreateGeneral(ctx, g)
	if err != nil {
		return core.General{}, err
	}
	s.cache.Delete(cacheKeyGenerals)
	return created, nil
}

func (s *CatalogService) CreateConcept(ctx context.Context, c core.Concept) (core.Concept, error) {
	created, err := s.storage.CreateConcept(ctx, c)
	if err != nil {
		return core.Concept{}, err
	}
	s.cache.Delete("concepts:" + c.GeneralID)
	return created, nil
}

func (s *CatalogService) CreateSubconcept(ctx context.Context, sc core.Subconcept) (core.Subconcept, error) {
	created, err := s.storage.CreateSubconcept(ctx, sc)
	if err != nil {
		return core.Subconcept{}, err
	}
	s.cache.Delete("subconcepts:" + sc.ConceptID)
	return created, nil
}

func (s *CatalogService) CreateProvider(ctx context.Context, p core.Provider) (core.Provider, error) {
	created, err := s.storage.CreateProvider(ctx, p)
	if err != nil {
		return core.Provider{}, err
	}
	s.cache.Delete(cacheKeyProviders)
	return created, nil
}

func (s *CatalogService) DeleteGeneral(ctx context.Context, id string) error {
	if err := s.storage.DeleteGeneral(ctx, id); err != nil {
		return err
	}
	s.cache.Flush()
	return nil
}

func (s *CatalogService) DeleteConcept(ctx context.Context, id string) error {
	if err := s.storage.DeleteConcept(ctx, id); err != nil {
		return err
	}
	s.cache.Flush()
	return nil
}

func (s *CatalogService) DeleteSubconcept(ctx context.Context, id string) error {
	if err := s.storage.DeleteSubconcept(ctx, id); err != nil {
		return err
	}
	s.cache.Flush()
	return nil
}

func (s *CatalogService) DeleteProvider(ctx context.Context, id string) error {
	if err := s.storage.DeleteProvider(ctx, id); err != nil {
		return err
	}
	s.cache.Delete(cacheKeyProviders)
	return nil
}
