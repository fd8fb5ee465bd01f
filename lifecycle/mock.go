package lifecycle

import (
	"context"

	"github.com/ruteri/vault-bootstrap/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockControlPlane mocks the ControlPlane interface
type MockControlPlane struct {
	mock.Mock
}

// Address mocks the Address method
func (m *MockControlPlane) Address() string {
	return "http://mock:8200"
}

// Probe mocks the Probe method
func (m *MockControlPlane) Probe(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// SealStatus mocks the SealStatus method
func (m *MockControlPlane) SealStatus(ctx context.Context) (*interfaces.SealStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.SealStatus), args.Error(1)
}

// Init mocks the Init method
func (m *MockControlPlane) Init(ctx context.Context, req interfaces.InitRequest) (*interfaces.InitResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.InitResult), args.Error(1)
}

// Unseal mocks the Unseal method
func (m *MockControlPlane) Unseal(ctx context.Context, req interfaces.UnsealRequest) (*interfaces.SealStatus, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.SealStatus), args.Error(1)
}

// RestoreSnapshot mocks the RestoreSnapshot method
func (m *MockControlPlane) RestoreSnapshot(ctx context.Context, snapshot *interfaces.Snapshot, token string) error {
	args := m.Called(ctx, snapshot, token)
	return args.Error(0)
}

// MockSnapshotSource mocks the SnapshotSource interface
type MockSnapshotSource struct {
	mock.Mock
}

// Open mocks the Open method
func (m *MockSnapshotSource) Open(ctx context.Context) (*interfaces.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.Snapshot), args.Error(1)
}

// Name mocks the Name method
func (m *MockSnapshotSource) Name() string {
	return "mock-source"
}

// LocationURI mocks the LocationURI method
func (m *MockSnapshotSource) LocationURI() string {
	return "mock://snapshot"
}

// MockSnapshotSourceFactory mocks the SnapshotSourceFactory interface
type MockSnapshotSourceFactory struct {
	mock.Mock
}

// SourceFor mocks the SourceFor method
func (m *MockSnapshotSourceFactory) SourceFor(location interfaces.SnapshotLocation) (interfaces.SnapshotSource, error) {
	args := m.Called(location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(interfaces.SnapshotSource), args.Error(1)
}

// CreateMultiSource mocks the CreateMultiSource method
func (m *MockSnapshotSourceFactory) CreateMultiSource(locations []interfaces.SnapshotLocation) (interfaces.SnapshotSource, error) {
	args := m.Called(locations)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(interfaces.SnapshotSource), args.Error(1)
}
