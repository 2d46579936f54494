package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/ollama/ollama/api"

	"github.com/posterface/posterface/pkg/geometry"
)

// facePrompt instructs the vision model to return face boxes only, in a
// machine-friendly shape.
const facePrompt = `You are a face locator.

Return JSON only:
{"faces": [{"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0, "confidence": 0.0}]}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels).
- One entry per clearly visible human face, tightly boxing the face from
  chin to forehead. Do not include hair, hats or shoulders.
- If no face is visible, return {"faces": []}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// defaultOllamaTimeout bounds a single vision call when the caller's
// context carries no deadline. Vision models on CPU are slow.
const defaultOllamaTimeout = 300 * time.Second

// maxModelImageSide is the long-side limit of the image sent to the model;
// full-resolution photos only waste tokens.
const maxModelImageSide = 1536

// OllamaDetector locates faces by asking a vision model served by Ollama.
// It is the remote alternative to the local pigo cascade, useful for
// photos the cascade struggles with (profiles, partial occlusion).
type OllamaDetector struct {
	client *api.Client
	model  string
}

// NewOllamaDetector creates a detector talking to the given Ollama server
// URL and using the given vision model.
func NewOllamaDetector(serverURL, model string) (*OllamaDetector, error) {
	parsed, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama URL: %w", err)
	}
	base := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}
	return &OllamaDetector{
		client: api.NewClient(base, http.DefaultClient),
		model:  model,
	}, nil
}

// DetectFaces sends a scaled-down copy of the image to the vision model and
// converts the returned normalized boxes into square pixel candidates,
// sorted by ascending area.
func (d *OllamaDetector) DetectFaces(ctx context.Context, img image.Image) ([]geometry.Rectangle, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultOllamaTimeout)
		defer cancel()
	}

	payload, err := encodeForModel(img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image for the model: %w", err)
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: d.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: facePrompt,
				Images:  []api.ImageData{api.ImageData(payload)},
			},
		},
		Stream: &streamFalse,
	}

	var response string
	err = d.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		response = resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat error: %w", err)
	}

	faces, err := parseFaceList(response)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	return facesToCandidates(faces, bounds.Dx(), bounds.Dy()), nil
}

// encodeForModel downsizes the image to the model's working resolution and
// encodes it as jpeg.
func encodeForModel(img image.Image) ([]byte, error) {
	b := img.Bounds()
	if w, h := b.Dx(), b.Dy(); w > maxModelImageSide || h > maxModelImageSide {
		if w >= h {
			img = imaging.Resize(img, maxModelImageSide, 0, imaging.Lanczos)
		} else {
			img = imaging.Resize(img, 0, maxModelImageSide, imaging.Lanczos)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// normalizedFace is one face box as reported by the model, in [0,1]
// coordinates.
type normalizedFace struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	W          float64 `json:"w"`
	H          float64 `json:"h"`
	Confidence float64 `json:"confidence"`
}

type faceListResponse struct {
	Faces []normalizedFace `json:"faces"`
}

// parseFaceList extracts the face list from a model response, tolerating
// the code fences and comments vision models like to wrap their JSON in.
func parseFaceList(raw string) ([]normalizedFace, error) {
	raw = sanitizeModelJSON(raw)
	if !strings.HasPrefix(raw, "{") {
		// Non-JSON chatter counts as "no face found" rather than an
		// error: the pipeline has a fallback for empty candidate lists.
		return nil, nil
	}
	var parsed faceListResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("unparseable model response: %w", err)
	}
	var faces []normalizedFace
	for _, face := range parsed.Faces {
		if face.W <= 0 || face.H <= 0 {
			continue
		}
		faces = append(faces, face)
	}
	return faces, nil
}

var (
	reBlockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment   = regexp.MustCompile(`(?m)//.*$`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// sanitizeModelJSON strips code fences, comments, and trailing commas, and
// keeps only the outermost JSON object.
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.Trim(strings.TrimSpace(raw), "`")
	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reTrailingComma.ReplaceAllString(raw, "$1")
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}

// facesToCandidates converts normalized face boxes to square pixel
// candidates sorted by ascending area. The square side is the equivalent
// square side of the pixel box, centered on the box center, so slightly
// non-square model output still honors the detector contract.
func facesToCandidates(faces []normalizedFace, imageWidth, imageHeight int) []geometry.Rectangle {
	var candidates []geometry.Rectangle
	for _, face := range faces {
		w := face.W * float64(imageWidth)
		h := face.H * float64(imageHeight)
		cx := (face.X + face.W/2) * float64(imageWidth)
		cy := (face.Y + face.H/2) * float64(imageHeight)
		side := geometry.Rectangle{Width: int(w), Height: int(h)}.EquivalentSquareSide()
		if side <= 0 {
			continue
		}
		candidates = append(candidates, squareAround(cx, cy, float64(side)))
	}
	sortByArea(candidates)
	return candidates
}
