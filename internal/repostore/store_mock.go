package repostore

import (
	"context"
	"time"

	"github.com/repowatch/repowatch/internal/contract"
	"github.com/repowatch/repowatch/schema"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store for testing.
type MockStore struct {
	mock.Mock
}

var _ contract.Store = &MockStore{} // Compile-time check

// GetEntry implements the EntryStore interface.
func (m *MockStore) GetEntry(ctx context.Context, mappingID string) (*schema.CacheEntry, error) {
	args := m.Called(ctx, mappingID)
	entry, _ := args.Get(0).(*schema.CacheEntry)
	return entry, args.Error(1)
}

// UpsertEntry implements the EntryStore interface.
func (m *MockStore) UpsertEntry(ctx context.Context, entry *schema.CacheEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// RecordScanFailure implements the EntryStore interface.
func (m *MockStore) RecordScanFailure(ctx context.Context, mapping schema.RepositoryMapping, scanErr string, valid bool, state *schema.RepoState, at time.Time) error {
	args := m.Called(ctx, mapping, scanErr, valid, state, at)
	return args.Error(0)
}

// ListOlderThan implements the EntryStore interface.
func (m *MockStore) ListOlderThan(ctx context.Context, threshold time.Duration) ([]schema.StaleEntryRef, error) {
	args := m.Called(ctx, threshold)
	refs, _ := args.Get(0).([]schema.StaleEntryRef)
	return refs, args.Error(1)
}

// ListByProject implements the EntryStore interface.
func (m *MockStore) ListByProject(ctx context.Context, projectID string) ([]*schema.CacheEntry, error) {
	args := m.Called(ctx, projectID)
	entries, _ := args.Get(0).([]*schema.CacheEntry)
	return entries, args.Error(1)
}

// ProjectHealth implements the EntryStore interface.
func (m *MockStore) ProjectHealth(ctx context.Context, projectID string, staleThreshold time.Duration) (schema.ProjectCacheHealth, error) {
	args := m.Called(ctx, projectID, staleThreshold)
	health, _ := args.Get(0).(schema.ProjectCacheHealth)
	return health, args.Error(1)
}

// Status implements the EntryStore interface.
func (m *MockStore) Status(ctx context.Context) (schema.StoreStatus, error) {
	args := m.Called(ctx)
	status, _ := args.Get(0).(schema.StoreStatus)
	return status, args.Error(1)
}

// Close implements the EntryStore interface.
func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// AddMapping implements the MappingStore interface.
func (m *MockStore) AddMapping(ctx context.Context, mapping schema.RepositoryMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

// RemoveMapping implements the MappingStore interface.
func (m *MockStore) RemoveMapping(ctx context.Context, mappingID string) error {
	args := m.Called(ctx, mappingID)
	return args.Error(0)
}

// ListMappings implements the MappingStore interface.
func (m *MockStore) ListMappings(ctx context.Context) ([]schema.RepositoryMapping, error) {
	args := m.Called(ctx)
	mappings, _ := args.Get(0).([]schema.RepositoryMapping)
	return mappings, args.Error(1)
}

// ListMappingsByProject implements the MappingStore interface.
func (m *MockStore) ListMappingsByProject(ctx context.Context, projectID string) ([]schema.RepositoryMapping, error) {
	args := m.Called(ctx, projectID)
	mappings, _ := args.Get(0).([]schema.RepositoryMapping)
	return mappings, args.Error(1)
}
