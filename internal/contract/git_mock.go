package contract

import (
	"context"

	"github.com/repowatch/repowatch/schema"
	"github.com/stretchr/testify/mock"
)

// MockGitClient is a mock implementation of GitClient for testing.
type MockGitClient struct {
	mock.Mock
}

var _ GitClient = &MockGitClient{} // Compile-time check

// Run implements the GitClient interface.
func (m *MockGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	callArgs := make([]any, 0, len(args)+2)
	callArgs = append(callArgs, ctx, repoPath)
	for _, a := range args {
		callArgs = append(callArgs, a)
	}
	ret := m.Called(callArgs...)
	out, _ := ret.Get(0).([]byte)
	return out, ret.Error(1)
}

// ProbeState implements the GitClient interface.
func (m *MockGitClient) ProbeState(ctx context.Context, repoPath string) (*schema.RepoState, error) {
	ret := m.Called(ctx, repoPath)
	state, _ := ret.Get(0).(*schema.RepoState)
	return state, ret.Error(1)
}

// ReadHistory implements the GitClient interface.
func (m *MockGitClient) ReadHistory(ctx context.Context, repoPath string, opts schema.HistoryOptions) (*schema.RepoHistory, error) {
	ret := m.Called(ctx, repoPath, opts)
	history, _ := ret.Get(0).(*schema.RepoHistory)
	return history, ret.Error(1)
}
