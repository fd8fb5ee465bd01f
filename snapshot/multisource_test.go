package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/ruteri/vault-bootstrap/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSnapshotSource implements interfaces.SnapshotSource for testing
type MockSnapshotSource struct {
	mock.Mock
	name string
}

func (m *MockSnapshotSource) Open(ctx context.Context) (*interfaces.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.Snapshot), args.Error(1)
}

func (m *MockSnapshotSource) Name() string {
	return m.name
}

func (m *MockSnapshotSource) LocationURI() string {
	return "mock://" + m.name
}

func snapshotBytes(data string) *interfaces.Snapshot {
	return &interfaces.Snapshot{
		ReadCloser: io.NopCloser(bytes.NewReader([]byte(data))),
		Size:       int64(len(data)),
		Location:   "mock://" + data,
	}
}

func TestMultiSource_Open(t *testing.T) {
	testErr := errors.New("test error")

	tests := []struct {
		name          string
		setupMocks    func() []*MockSnapshotSource
		expectedData  string
		expectedError bool
	}{
		{
			name: "first source successful",
			setupMocks: func() []*MockSnapshotSource {
				mock1 := &MockSnapshotSource{name: "mock-A"}
				mock1.On("Open", mock.Anything).Return(snapshotBytes("from A"), nil)
				mock2 := &MockSnapshotSource{name: "mock-B"}
				return []*MockSnapshotSource{mock1, mock2}
			},
			expectedData: "from A",
		},
		{
			name: "fallback to second source",
			setupMocks: func() []*MockSnapshotSource {
				mock1 := &MockSnapshotSource{name: "mock-A"}
				mock1.On("Open", mock.Anything).Return(nil, testErr)
				mock2 := &MockSnapshotSource{name: "mock-B"}
				mock2.On("Open", mock.Anything).Return(snapshotBytes("from B"), nil)
				return []*MockSnapshotSource{mock1, mock2}
			},
			expectedData: "from B",
		},
		{
			name: "all sources fail",
			setupMocks: func() []*MockSnapshotSource {
				var mocks []*MockSnapshotSource
				for i := 0; i < 3; i++ {
					m := &MockSnapshotSource{name: fmt.Sprintf("mock-%d", i)}
					m.On("Open", mock.Anything).Return(nil, testErr)
					mocks = append(mocks, m)
				}
				return mocks
			},
			expectedError: true,
		},
		{
			name: "no sources",
			setupMocks: func() []*MockSnapshotSource {
				return nil
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mocks := tt.setupMocks()
			sources := make([]interfaces.SnapshotSource, 0, len(mocks))
			for _, m := range mocks {
				sources = append(sources, m)
			}

			multi := NewMultiSource(sources, testLogger())
			snap, err := multi.Open(context.Background())

			if tt.expectedError {
				require.Error(t, err)
				var resErr *interfaces.SourceResolutionError
				assert.True(t, errors.As(err, &resErr))
				if len(mocks) > 0 {
					assert.ErrorIs(t, err, testErr)
				}
			} else {
				require.NoError(t, err)
				data, err := io.ReadAll(snap)
				require.NoError(t, err)
				assert.Equal(t, tt.expectedData, string(data))
			}

			for _, m := range mocks {
				m.AssertExpectations(t)
			}
		})
	}
}

func TestMultiSource_CanceledContext(t *testing.T) {
	mock1 := &MockSnapshotSource{name: "mock-A"}
	multi := NewMultiSource([]interfaces.SnapshotSource{mock1}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := multi.Open(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	mock1.AssertNotCalled(t, "Open", mock.Anything)
}

func TestMultiSource_NameAndURI(t *testing.T) {
	multi := NewMultiSource([]interfaces.SnapshotSource{
		&MockSnapshotSource{name: "a"},
		&MockSnapshotSource{name: "b"},
	}, nil)

	assert.Equal(t, "multi-source", multi.Name())
	assert.Equal(t, "multi:[mock://a,mock://b]", multi.LocationURI())
}
