package category

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepository implements Repository in memory with call counters.
type mockRepository struct {
	categories  []*Category
	findCalls   int
	createCalls int
}

func (m *mockRepository) FindByName(_ context.Context, ownerID uuid.UUID, catType Type, name string) (*Category, error) {
	m.findCalls++
	for _, c := range m.categories {
		if c.OwnerID == ownerID && c.Type == catType && strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockRepository) GetByID(_ context.Context, ownerID, id uuid.UUID) (*Category, error) {
	for _, c := range m.categories {
		if c.OwnerID == ownerID && c.ID == id {
			return c, nil
		}
	}
	return nil, nil
}

func (m *mockRepository) Create(_ context.Context, cat *Category) error {
	m.createCalls++
	cat.ID = uuid.New()
	cat.SortOrder = len(m.categories) + 1
	m.categories = append(m.categories, cat)
	return nil
}

func (m *mockRepository) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]Category, error) {
	var out []Category
	for _, c := range m.categories {
		if c.OwnerID == ownerID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func TestResolve_CreatesOnFirstUse(t *testing.T) {
	repo := &mockRepository{}
	resolver := NewResolver(repo)
	owner := uuid.New()

	id, err := resolver.Resolve(context.Background(), NewCache(), owner, TypeExpense, "Groceries")

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	require.Len(t, repo.categories, 1)
	assert.Equal(t, "Groceries", repo.categories[0].Name)
	assert.Equal(t, TypeExpense, repo.categories[0].Type)
	assert.True(t, repo.categories[0].Active)
}

func TestResolve_ReusesExistingCaseInsensitively(t *testing.T) {
	repo := &mockRepository{}
	resolver := NewResolver(repo)
	owner := uuid.New()

	first, err := resolver.Resolve(context.Background(), NewCache(), owner, TypeExpense, "Groceries")
	require.NoError(t, err)

	second, err := resolver.Resolve(context.Background(), NewCache(), owner, TypeExpense, "GROCERIES")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.createCalls)
}

func TestResolve_CacheShortCircuitsRepository(t *testing.T) {
	repo := &mockRepository{}
	resolver := NewResolver(repo)
	owner := uuid.New()
	cache := NewCache()

	first, err := resolver.Resolve(context.Background(), cache, owner, TypeExpense, "Rent")
	require.NoError(t, err)
	callsAfterFirst := repo.findCalls

	second, err := resolver.Resolve(context.Background(), cache, owner, TypeExpense, "rent")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, callsAfterFirst, repo.findCalls)
}

func TestResolve_TypeSeparatesNamespaces(t *testing.T) {
	repo := &mockRepository{}
	resolver := NewResolver(repo)
	owner := uuid.New()
	cache := NewCache()

	expense, err := resolver.Resolve(context.Background(), cache, owner, TypeExpense, "Consulting")
	require.NoError(t, err)
	income, err := resolver.Resolve(context.Background(), cache, owner, TypeIncome, "Consulting")
	require.NoError(t, err)

	assert.NotEqual(t, expense, income)
	assert.Equal(t, 2, repo.createCalls)
}

func TestResolve_EmptyNameFallsBack(t *testing.T) {
	repo := &mockRepository{}
	resolver := NewResolver(repo)
	owner := uuid.New()
	cache := NewCache()

	_, err := resolver.Resolve(context.Background(), cache, owner, TypeExpense, "   ")
	require.NoError(t, err)
	_, err = resolver.Resolve(context.Background(), cache, owner, TypeIncome, "")
	require.NoError(t, err)

	require.Len(t, repo.categories, 2)
	assert.Equal(t, FallbackExpenseName, repo.categories[0].Name)
	assert.Equal(t, FallbackIncomeName, repo.categories[1].Name)
}

func TestFallbackName(t *testing.T) {
	assert.Equal(t, "Imported Expense", FallbackName(TypeExpense))
	assert.Equal(t, "Imported Income", FallbackName(TypeIncome))
}
