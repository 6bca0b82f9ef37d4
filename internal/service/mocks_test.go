package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/maternity-risk-server/internal/assessment"
	"github.com/maternity-risk-server/internal/domain"
)

// MockCategoryStore is a mock implementation of domain.CategoryStore
type MockCategoryStore struct {
	mock.Mock
}

func (m *MockCategoryStore) CategoryIDsByName(ctx context.Context) (map[domain.CategoryName]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[domain.CategoryName]int64), args.Error(1)
}

func (m *MockCategoryStore) ListCategories(ctx context.Context) ([]domain.RiskCategory, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RiskCategory), args.Error(1)
}

// MockConditionLookup is a mock implementation of domain.ConditionLookup
type MockConditionLookup struct {
	mock.Mock
}

func (m *MockConditionLookup) ConditionNames(ctx context.Context, ids []int64) ([]string, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockSharedCache is a mock implementation of SharedCache
type MockSharedCache struct {
	mock.Mock
}

func (m *MockSharedCache) GetCategoryIDs(ctx context.Context, key string) (domain.CategoryIDs, bool, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(domain.CategoryIDs), args.Bool(1), args.Error(2)
}

func (m *MockSharedCache) SetCategoryIDs(ctx context.Context, key string, ids domain.CategoryIDs, ttl time.Duration) error {
	args := m.Called(ctx, key, ids, ttl)
	return args.Error(0)
}

func (m *MockSharedCache) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

// MockRecorder is a mock implementation of Recorder
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Save(ctx context.Context, record *assessment.Record) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// staticResolver serves a fixed identifier mapping.
type staticResolver struct {
	ids domain.CategoryIDs
	err error
}

func (r staticResolver) ResolveCategoryIDs(ctx context.Context) (domain.CategoryIDs, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.ids.Clone(), nil
}

// storedIDs deliberately differ from the fallback identifiers.
var storedIDs = map[domain.CategoryName]int64{
	domain.CategoryNormal: 21,
	domain.CategoryMedio:  22,
	domain.CategoryAlto:   23,
	domain.CategoryAborto: 24,
}

func int64Ptr(v int64) *int64 { return &v }
