package objectkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFileName(t *testing.T) {
	assert.Equal(t, "cabo-008-thumb.jpg", FileName("cabo-008", "thumb"))
	assert.Equal(t, "cabo-008-placeholder.jpg", FileName("cabo-008", "placeholder"))
}

func TestStagingBase(t *testing.T) {
	a, b := StagingBase(), StagingBase()
	assert.NotEqual(t, a, b)
	assert.True(t, IsStaging(a))
	assert.True(t, IsStaging(FileName(a, "full")))
	assert.False(t, IsStaging("cabo-001-full.jpg"))
}

func TestPublicPath(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		expected string
	}{
		{"default prefix", "", "/assets/images/collections/cabo/cabo-001-thumb.jpg"},
		{"custom prefix", "/media", "/media/cabo/cabo-001-thumb.jpg"},
		{"trailing slash", "/media/", "/media/cabo/cabo-001-thumb.jpg"},
		{"relative prefix", "media", "/media/cabo/cabo-001-thumb.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PublicPath(tt.prefix, "cabo", "cabo-001-thumb.jpg"))
		})
	}
}
