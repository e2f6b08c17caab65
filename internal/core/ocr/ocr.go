// Package ocr recognizes challan fields from a rendered page image. It is the fallback
// strategy for scanned receipts whose text layer is missing or incomplete.
package ocr

import (
	"context"
	"image"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/challan-processor/constants"
	"github.com/joseph-ayodele/challan-processor/internal/common"
	"github.com/joseph-ayodele/challan-processor/internal/core/document"
	"github.com/joseph-ayodele/challan-processor/internal/core/extract/text"
	"github.com/joseph-ayodele/challan-processor/internal/entity"
)

const (
	mainFieldCap   = 0.7
	taxFieldCap    = 0.75
	taxMissingConf = 0.6
)

// Word is one recognized word with its pixel bounds and confidence in [0,1].
type Word struct {
	Text       string
	Bounds     image.Rectangle
	Confidence float64
}

// Recognition is the raw output of a recognizer.
type Recognition struct {
	Text  string
	Words []Word
}

// Recognizer turns an image into text.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (Recognition, error)
}

// Config controls rendering and preprocessing.
type Config struct {
	DPI        int
	Preprocess PreprocessOptions
}

// Result is what the OCR strategy contributes to a document.
type Result struct {
	Fields        entity.FieldMap
	Text          string
	AvgConfidence float64
	Words         []Word
	SkewAngle     float64
	Duration      time.Duration
}

// Extractor renders page one, cleans it up, recognizes it and re-applies the text patterns.
type Extractor struct {
	cfg        Config
	recognizer Recognizer
	parser     *text.Extractor
	logger     *zap.Logger
}

// NewExtractor wires a recognizer and the text pattern extractor. A nil recognizer yields an
// extractor that reports itself unavailable.
func NewExtractor(cfg Config, recognizer Recognizer, parser *text.Extractor, logger *zap.Logger) *Extractor {
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, recognizer: recognizer, parser: parser, logger: common.LoggerOrDefault(logger)}
}

// Available reports whether OCR can run at all.
func (e *Extractor) Available() bool {
	return e != nil && e.recognizer != nil && e.parser != nil
}

// Extract runs OCR over page one of doc.
func (e *Extractor) Extract(ctx context.Context, doc document.Document) (Result, error) {
	start := time.Now()
	if !e.Available() {
		return Result{}, common.NewAppError("OCR_UNAVAILABLE", "no recognizer configured", common.ErrOCRUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	img, err := doc.Render(ctx, 1, e.cfg.DPI)
	if err != nil {
		return Result{}, eris.Wrap(err, "ocr: render page")
	}
	binary, angle := Preprocess(img, e.cfg.Preprocess)

	rec, err := e.recognizer.Recognize(ctx, binary)
	if err != nil {
		return Result{}, eris.Wrap(err, "ocr: recognize")
	}

	normalized := Normalize(rec.Text)
	res := Result{
		Fields:        e.fieldsFrom(normalized),
		Text:          normalized,
		AvgConfidence: AverageConfidence(rec.Words),
		Words:         rec.Words,
		SkewAngle:     angle,
		Duration:      time.Since(start),
	}
	e.logger.Info("ocr extraction done",
		zap.String("source_file", doc.Name()),
		zap.Int("text_len", len(res.Text)),
		zap.Int("words", len(res.Words)),
		zap.Float64("avg_confidence", res.AvgConfidence),
		zap.Float64("skew_deg", angle),
		zap.Int64("duration_ms", res.Duration.Milliseconds()),
	)
	return res, nil
}

// fieldsFrom applies the text patterns and caps confidences to reflect recognition noise.
func (e *Extractor) fieldsFrom(s string) entity.FieldMap {
	parsed := e.parser.Extract(s)
	out := make(entity.FieldMap, len(parsed))
	for name, fv := range parsed {
		if constants.IsTaxField(name) {
			if fv.Strategy == constants.StrategyDefault || fv.Value == nil {
				out[name] = entity.NewFieldValue(0.0, taxMissingConf, constants.StrategyDefault, "")
				continue
			}
			out[name] = fv.WithConfidence(math.Min(fv.Confidence, taxFieldCap), constants.StrategyOCR)
			continue
		}
		out[name] = fv.WithConfidence(math.Min(fv.Confidence, mainFieldCap), constants.StrategyOCR)
	}
	return out
}

// AverageConfidence is the mean confidence of words that reported one.
func AverageConfidence(words []Word) float64 {
	var sum float64
	var n int
	for _, w := range words {
		if w.Confidence > 0 {
			sum += w.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
