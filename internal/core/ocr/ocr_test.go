package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/challan-processor/constants"
	"github.com/joseph-ayodele/challan-processor/internal/common"
	"github.com/joseph-ayodele/challan-processor/internal/core/document"
	"github.com/joseph-ayodele/challan-processor/internal/core/extract/text"
)

type stubRecognizer struct {
	rec Recognition
	err error
	got image.Image
}

func (s *stubRecognizer) Recognize(_ context.Context, img image.Image) (Recognition, error) {
	s.got = img
	return s.rec, s.err
}

func whitePage(w, h int) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = 255
	}
	return g
}

// rotatedRect draws a filled dark rectangle centred on the page, rotated by deg
// in image coordinates.
func rotatedRect(w, h int, halfW, halfH, deg float64) *image.Gray {
	g := whitePage(w, h)
	cx, cy := float64(w)/2, float64(h)/2
	rad := deg * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			u := dx*cos + dy*sin
			v := -dx*sin + dy*cos
			if math.Abs(u) <= halfW && math.Abs(v) <= halfH {
				g.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return g
}

func newParser(t *testing.T) *text.Extractor {
	t.Helper()
	p, err := text.NewExtractor(text.Config{}, zap.NewNop())
	require.NoError(t, err)
	return p
}

func TestEstimateSkew(t *testing.T) {
	tests := []struct {
		name string
		deg  float64
	}{
		{"level", 0},
		{"clockwise", 5},
		{"counter clockwise", -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			angle, ok := EstimateSkew(rotatedRect(500, 400, 150, 60, tt.deg))
			require.True(t, ok)
			assert.InDelta(t, tt.deg, angle, 0.75)
		})
	}
}

func TestEstimateSkewBlankPage(t *testing.T) {
	_, ok := EstimateSkew(whitePage(50, 50))
	assert.False(t, ok)
}

func TestDeskew(t *testing.T) {
	level := rotatedRect(300, 200, 100, 40, 0)
	out, angle := Deskew(level)
	assert.Zero(t, angle)
	assert.Same(t, level, out)

	skewed := rotatedRect(300, 200, 100, 40, 6)
	out, angle = Deskew(skewed)
	assert.InDelta(t, 6, angle, 0.75)

	after, ok := EstimateSkew(out)
	require.True(t, ok)
	assert.InDelta(t, 0, after, 1.0)
}

func TestAdaptiveThreshold(t *testing.T) {
	g := whitePage(40, 40)
	for y := 18; y < 21; y++ {
		for x := 18; x < 21; x++ {
			g.SetGray(x, y, color.Gray{Y: 30})
		}
	}
	out := AdaptiveThreshold(g, 11, 2)

	assert.Equal(t, uint8(0), out.GrayAt(19, 19).Y)
	assert.Equal(t, uint8(255), out.GrayAt(2, 2).Y)
	assert.Equal(t, uint8(255), out.GrayAt(30, 30).Y)
}

func TestPreprocessKeepsLevelPage(t *testing.T) {
	page := rotatedRect(120, 80, 30, 3, 0)
	out, angle := Preprocess(page, PreprocessOptions{DenoiseStrength: 10, BlockSize: 11, C: 2})
	assert.Zero(t, angle)
	assert.Equal(t, page.Bounds().Size(), out.Bounds().Size())
}

func TestExtractCapsConfidences(t *testing.T) {
	rec := &stubRecognizer{rec: Recognition{
		Text: "TAN : BLRS05586H\r\nCIN  :  25100700517216HDFC\n\n\n\nA Tax ₹ 500\n",
		Words: []Word{
			{Text: "TAN", Confidence: 0.9},
			{Text: ":", Confidence: 0},
			{Text: "BLRS05586H", Confidence: 0.7},
		},
	}}
	doc := document.FromImage("scan.png", whitePage(60, 40))
	e := NewExtractor(Config{Preprocess: PreprocessOptions{BlockSize: 11, C: 2}}, rec, newParser(t), zap.NewNop())

	require.True(t, e.Available())
	res, err := e.Extract(context.Background(), doc)
	require.NoError(t, err)
	require.NotNil(t, rec.got)

	assert.InDelta(t, 0.8, res.AvgConfidence, 1e-9)
	assert.Equal(t, "TAN : BLRS05586H\nCIN : 25100700517216HDFC\n\nA Tax ₹ 500", res.Text)

	tan := res.Fields[constants.FieldTAN]
	assert.Equal(t, "BLRS05586H", tan.Value)
	assert.InDelta(t, 0.7, tan.Confidence, 1e-9)
	assert.Equal(t, constants.StrategyOCR, tan.Strategy)

	assert.Equal(t, "25100700517216HDFC", res.Fields[constants.FieldCIN].Value)

	taxA := res.Fields[constants.FieldTaxA]
	assert.Equal(t, 500.0, taxA.Value)
	assert.InDelta(t, 0.75, taxA.Confidence, 1e-9)
	assert.Equal(t, constants.StrategyOCR, taxA.Strategy)

	taxB := res.Fields[constants.FieldTaxB]
	assert.Equal(t, 0.0, taxB.Value)
	assert.InDelta(t, 0.6, taxB.Confidence, 1e-9)
	assert.Equal(t, constants.StrategyDefault, taxB.Strategy)
}

func TestExtractErrors(t *testing.T) {
	parser := newParser(t)

	_, err := NewExtractor(Config{}, nil, parser, nil).Extract(context.Background(), document.FromImage("x", whitePage(10, 10)))
	assert.True(t, errors.Is(err, common.ErrOCRUnavailable))

	rec := &stubRecognizer{}
	_, err = NewExtractor(Config{}, rec, parser, zap.NewNop()).Extract(context.Background(), document.FromImage("x", nil))
	assert.Error(t, err)
	assert.Nil(t, rec.got)

	rec = &stubRecognizer{err: errors.New("tesseract crashed")}
	_, err = NewExtractor(Config{}, rec, parser, zap.NewNop()).Extract(context.Background(), document.FromImage("x", whitePage(10, 10)))
	assert.ErrorContains(t, err, "tesseract crashed")
}

func TestAverageConfidence(t *testing.T) {
	assert.Zero(t, AverageConfidence(nil))
	assert.InDelta(t, 0.5, AverageConfidence([]Word{{Confidence: 0.5}, {Confidence: -1}}), 1e-9)
}

func TestNormalize(t *testing.T) {
	in := "Amount (in Rs.) : % 19,395\t\tOnly\n-----\n\n\n\nEnd  "
	assert.Equal(t, "Amount (in Rs.) : ₹ 19,395 Only\n\nEnd", Normalize(in))
	assert.Equal(t, "", Normalize(""))
}
