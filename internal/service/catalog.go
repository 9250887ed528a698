package service

import (
	"context"
	"strings"

	"mergeanddown/internal/core/domain"
	"mergeanddown/internal/core/ports"
)

// CatalogService answers "what encodings does this media have". It never
// retries; callers own retry policy.
type CatalogService struct {
	source ports.MediaSource
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(source ports.MediaSource) *CatalogService {
	return &CatalogService{source: source}
}

// Validate turns raw input into a MediaID the source accepts.
func (c *CatalogService) Validate(raw string) (domain.MediaID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !c.source.Validate(raw) {
		return "", domain.Errorf(domain.InvalidIdentifier, "validate", "unrecognised media locator %q", raw)
	}
	return domain.MediaID(raw), nil
}

// Get validates id and queries the live catalog.
func (c *CatalogService) Get(ctx context.Context, id domain.MediaID) (*domain.Catalog, error) {
	if _, err := c.Validate(string(id)); err != nil {
		return nil, err
	}
	catalog, err := c.source.Info(ctx, id)
	if err != nil {
		switch domain.KindOf(err) {
		case domain.InvalidIdentifier, domain.SourceUnavailable:
			return nil, err
		default:
			return nil, domain.E(domain.SourceUnavailable, "catalog", err)
		}
	}
	return catalog, nil
}

// Classified fetches the catalog and partitions it.
func (c *CatalogService) Classified(ctx context.Context, id domain.MediaID) (domain.Classified, error) {
	catalog, err := c.Get(ctx, id)
	if err != nil {
		return domain.Classified{}, err
	}
	return Classify(catalog), nil
}
