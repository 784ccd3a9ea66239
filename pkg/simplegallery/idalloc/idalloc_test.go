package idalloc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSource struct {
	max int
	err error
}

func (f fixedSource) MaxImageSuffix(ctx context.Context) (int, error) {
	return f.max, f.err
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "cabo-001", Format("cabo", 1))
	assert.Equal(t, "cabo-042", Format("cabo", 42))
	assert.Equal(t, "cabo-1000", Format("cabo", 1000))
}

func TestSuffix(t *testing.T) {
	tests := []struct {
		name    string
		imageID string
		want    int
		ok      bool
	}{
		{"padded", "cabo-007", 7, true},
		{"wide", "cabo-1204", 1204, true},
		{"other collection", "baja-007", 0, false},
		{"nested collection", "cabo-norte-001", 0, false},
		{"no suffix", "cabo-", 0, false},
		{"zero", "cabo-000", 0, false},
		{"letters", "cabo-00a", 0, false},
		{"sign", "cabo-+01", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := Suffix("cabo", tt.imageID)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestMaxSuffixIgnoresLexicalOrder(t *testing.T) {
	ids := []string{"cabo-999", "cabo-1000", "cabo-002", "cabo-norte-5000"}
	assert.Equal(t, 1000, MaxSuffix("cabo", ids))
	assert.Equal(t, 0, MaxSuffix("cabo", nil))
}

func TestAllocate(t *testing.T) {
	a := New()
	ctx := context.Background()

	id, err := a.Allocate(ctx, fixedSource{max: 7}, "cabo", 0)
	require.NoError(t, err)
	assert.Equal(t, "cabo-008", id)

	id, err = a.Allocate(ctx, fixedSource{}, "baja", 0)
	require.NoError(t, err)
	assert.Equal(t, "baja-001", id)

	id, err = a.Allocate(ctx, fixedSource{max: 7}, "cabo", 2)
	require.NoError(t, err)
	assert.Equal(t, "cabo-010", id)

	_, err = a.Allocate(ctx, fixedSource{err: errors.New("boom")}, "cabo", 0)
	assert.Error(t, err)
}
