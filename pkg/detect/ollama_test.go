package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posterface/posterface/pkg/geometry"
)

func TestSanitizeModelJSON(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			"clean json",
			`{"faces": []}`,
			`{"faces": []}`,
		},
		{
			"code fences",
			"```json\n{\"faces\": []}\n```",
			`{"faces": []}`,
		},
		{
			"trailing comma",
			`{"faces": [{"x": 0.1, "y": 0.1, "w": 0.2, "h": 0.2,}]}`,
			`{"faces": [{"x": 0.1, "y": 0.1, "w": 0.2, "h": 0.2}]}`,
		},
		{
			"surrounding chatter",
			`Here is the result: {"faces": []} I hope it helps!`,
			`{"faces": []}`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, sanitizeModelJSON(tc.raw))
		})
	}
}

func TestParseFaceList(t *testing.T) {
	faces, err := parseFaceList(`{"faces": [
		{"x": 0.4, "y": 0.3, "w": 0.2, "h": 0.2, "confidence": 0.9},
		{"x": 0.1, "y": 0.1, "w": 0.05, "h": 0.05, "confidence": 0.6}
	]}`)
	require.NoError(t, err)
	require.Len(t, faces, 2)
	assert.Equal(t, 0.4, faces[0].X)
	assert.Equal(t, 0.9, faces[0].Confidence)
}

func TestParseFaceListEmpty(t *testing.T) {
	faces, err := parseFaceList(`{"faces": []}`)
	require.NoError(t, err)
	assert.Empty(t, faces)
}

func TestParseFaceListNonJSON(t *testing.T) {
	// Chatter with no JSON at all means "no face", not an error.
	faces, err := parseFaceList("I cannot see any face in this image.")
	require.NoError(t, err)
	assert.Empty(t, faces)
}

func TestParseFaceListDropsDegenerateBoxes(t *testing.T) {
	faces, err := parseFaceList(`{"faces": [
		{"x": 0.4, "y": 0.3, "w": 0.0, "h": 0.2},
		{"x": 0.4, "y": 0.3, "w": 0.2, "h": 0.2}
	]}`)
	require.NoError(t, err)
	require.Len(t, faces, 1)
	assert.Equal(t, 0.2, faces[0].W)
}

func TestFacesToCandidates(t *testing.T) {
	faces := []normalizedFace{
		{X: 0.4, Y: 0.4, W: 0.2, H: 0.2},
		{X: 0.0, Y: 0.0, W: 0.1, H: 0.1},
	}
	candidates := facesToCandidates(faces, 1000, 1000)
	require.Len(t, candidates, 2)

	// Ascending area order.
	assert.True(t, candidates[0].Area() < candidates[1].Area())
	for _, c := range candidates {
		assert.True(t, c.IsSquare())
	}

	// The 0.2 x 0.2 box on a 1000px image becomes a 200px square centered
	// on (500, 500).
	assert.Equal(t, geometry.NewSquare(400, 400, 200), candidates[1])
}

func TestFacesToCandidatesNonSquareBox(t *testing.T) {
	// A 100 x 400 pixel box squares off at its equivalent side (200),
	// keeping the same center.
	faces := []normalizedFace{{X: 0.45, Y: 0.3, W: 0.1, H: 0.4}}
	candidates := facesToCandidates(faces, 1000, 1000)
	require.Len(t, candidates, 1)
	assert.Equal(t, geometry.NewSquare(400, 400, 200), candidates[0])
}

func TestNewOllamaDetectorBadURL(t *testing.T) {
	_, err := NewOllamaDetector("http://%zz", "llava")
	assert.Error(t, err)
}
