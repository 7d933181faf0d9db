package flags

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	overrides map[string]bool
	err       error
}

func (f *fakeSource) FlagOverride(ctx context.Context, key string) (bool, bool, error) {
	if f.err != nil {
		return false, false, f.err
	}

	value, ok := f.overrides[key]
	return value, ok, nil
}

func (f *fakeSource) SetFlagOverride(ctx context.Context, key string, value bool) error {
	if f.err != nil {
		return f.err
	}

	if f.overrides == nil {
		f.overrides = map[string]bool{}
	}
	f.overrides[key] = value

	return nil
}

func TestEnabledUsesDefaults(t *testing.T) {
	store := NewStore(slog.Default(), map[string]bool{EnableHTTPNode: true}, nil, nil)

	assert.True(t, store.Enabled(context.Background(), EnableHTTPNode))
	assert.False(t, store.Enabled(context.Background(), EnableCodeNode))
	assert.False(t, store.Enabled(context.Background(), "UNKNOWN"))
}

func TestEnabledOverrideWins(t *testing.T) {
	source := &fakeSource{overrides: map[string]bool{EnableHTTPNode: false, EnableCodeNode: true}}
	store := NewStore(slog.Default(), map[string]bool{EnableHTTPNode: true}, source, nil)

	assert.False(t, store.Enabled(context.Background(), EnableHTTPNode))
	assert.True(t, store.Enabled(context.Background(), EnableCodeNode))
}

func TestEnabledSourceFailureFallsBackToDefault(t *testing.T) {
	source := &fakeSource{err: errors.New("db down")}
	store := NewStore(slog.Default(), map[string]bool{EnableHTTPNode: true}, source, nil)

	assert.True(t, store.Enabled(context.Background(), EnableHTTPNode))
}

func TestSetWritesOverride(t *testing.T) {
	source := &fakeSource{}
	store := NewStore(slog.Default(), nil, source, nil)

	require.NoError(t, store.Set(context.Background(), EnableCodeNode, true))
	assert.True(t, store.Enabled(context.Background(), EnableCodeNode))
}

func TestSetWithoutSource(t *testing.T) {
	store := NewStore(slog.Default(), nil, nil, nil)

	assert.Error(t, store.Set(context.Background(), EnableCodeNode, true))
}
