package qr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	img, err := Generate("https://example.org/poster/42", 200)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestGenerateEmptyData(t *testing.T) {
	_, err := Generate("", 200)
	assert.Error(t, err)
}
