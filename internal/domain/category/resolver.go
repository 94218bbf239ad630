package category

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Fallback category names used when an imported row carries no usable
// source category.
const (
	FallbackExpenseName = "Imported Expense"
	FallbackIncomeName  = "Imported Income"
)

// Cache avoids duplicate lookups and creates within one import call. It is
// passed explicitly through the pipeline rather than held on the resolver,
// so the resolver stays free of cross-call state. Keys are "TYPE|name"
// with the name lowercased.
type Cache map[string]uuid.UUID

// NewCache returns an empty per-import cache.
func NewCache() Cache {
	return make(Cache)
}

// Resolver maps source-category text to persisted categories, creating them
// on first use.
type Resolver struct {
	repo Repository
}

// NewResolver creates a category resolver.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the category id for (owner, type, name), creating the
// category when it does not exist yet. An empty name falls back to the
// fixed import category for the type.
func (r *Resolver) Resolve(ctx context.Context, cache Cache, ownerID uuid.UUID, catType Type, name string) (uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = FallbackName(catType)
	}

	key := string(catType) + "|" + strings.ToLower(name)
	if id, ok := cache[key]; ok {
		return id, nil
	}

	existing, err := r.repo.FindByName(ctx, ownerID, catType, name)
	if err != nil {
		return uuid.Nil, err
	}
	if existing != nil {
		cache[key] = existing.ID
		return existing.ID, nil
	}

	created := &Category{
		OwnerID: ownerID,
		Name:    name,
		Type:    catType,
		Active:  true,
	}
	if err := r.repo.Create(ctx, created); err != nil {
		return uuid.Nil, err
	}

	cache[key] = created.ID
	return created.ID, nil
}

// FallbackName returns the import fallback category name for a type.
func FallbackName(catType Type) string {
	if catType == TypeIncome {
		return FallbackIncomeName
	}
	return FallbackExpenseName
}
