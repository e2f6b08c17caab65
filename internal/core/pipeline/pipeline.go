// Package pipeline runs the text, layout and OCR strategies over a challan and reconciles
// their output into one record.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/challan-processor/constants"
	"github.com/joseph-ayodele/challan-processor/internal/common"
	"github.com/joseph-ayodele/challan-processor/internal/core/document"
	"github.com/joseph-ayodele/challan-processor/internal/core/extract/layout"
	"github.com/joseph-ayodele/challan-processor/internal/core/extract/text"
	"github.com/joseph-ayodele/challan-processor/internal/core/ocr"
	"github.com/joseph-ayodele/challan-processor/internal/entity"
)

// Config holds scoring parameters.
type Config struct {
	CompletenessThreshold float64
	Weights               map[string]float64
	WeightOther           float64
	DateFormats           []string
	PDF                   document.PDFConfig
}

// Pipeline is safe for concurrent use; each call works on its own maps.
type Pipeline struct {
	cfg    Config
	text   *text.Extractor
	layout *layout.Extractor
	ocr    *ocr.Extractor
	logger *zap.Logger
}

// New builds a pipeline. ocrExtractor may be nil, which disables the OCR fallback.
func New(cfg Config, textExtractor *text.Extractor, layoutExtractor *layout.Extractor, ocrExtractor *ocr.Extractor, logger *zap.Logger) *Pipeline {
	if cfg.CompletenessThreshold <= 0 {
		cfg.CompletenessThreshold = 0.7
	}
	if len(cfg.Weights) == 0 {
		cfg.Weights = common.DefaultWeights
	}
	if cfg.WeightOther <= 0 {
		cfg.WeightOther = 1.0
	}
	if len(cfg.DateFormats) == 0 {
		cfg.DateFormats = textExtractor.DateFormats()
	}
	return &Pipeline{
		cfg:    cfg,
		text:   textExtractor,
		layout: layoutExtractor,
		ocr:    ocrExtractor,
		logger: common.LoggerOrDefault(logger),
	}
}

// ProcessPath opens the PDF at path and processes it.
func (p *Pipeline) ProcessPath(ctx context.Context, path string) *entity.ExtractionResult {
	start := time.Now()
	doc, err := document.OpenPDF(path, p.cfg.PDF, p.logger)
	if err != nil {
		p.logger.Error("open document failed", zap.String("path", path), zap.Error(err))
		return failed(err, start)
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			p.logger.Warn("close document failed", zap.String("path", path), zap.Error(cerr))
		}
	}()
	return p.Process(ctx, doc)
}

// Process extracts page one of doc. Strategy failures degrade to empty results; only a
// document that yields nothing at all is reported as failed.
func (p *Pipeline) Process(ctx context.Context, doc document.Document) (res *entity.ExtractionResult) {
	start := time.Now()
	source := doc.Name()
	logger := p.logger.With(zap.String("source_file", source))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("extraction panicked", zap.Any("panic", r))
			res = failed(eris.Errorf("extraction panicked: %v", r), start)
		}
	}()

	if err := ctx.Err(); err != nil {
		return failed(err, start)
	}
	if doc.PageCount() < 1 {
		return failed(common.NewAppError("UNREADABLE_DOCUMENT", "document has no pages", common.ErrUnreadableDocument), start)
	}

	res = &entity.ExtractionResult{ExtractionMethod: constants.MethodText}

	raw, textErr := doc.Text(1)
	if textErr != nil {
		logger.Warn("text extraction failed", zap.Error(textErr))
	}
	textFields := p.text.Extract(raw)

	frags, layoutErr := doc.Fragments(1)
	if layoutErr != nil {
		logger.Warn("layout extraction failed", zap.Error(layoutErr))
	}
	layoutFields := p.layout.Extract(frags)

	merged := Merge(textFields, layoutFields)
	completeness := Completeness(merged)
	ocrUsed := false

	if completeness < p.cfg.CompletenessThreshold && p.ocr.Available() {
		logger.Info("low completeness, trying ocr", zap.Float64("completeness", completeness))
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("Low text extraction completeness (%.2f%%), used OCR fallback", completeness*100))
		ocrRes, err := p.ocr.Extract(ctx, doc)
		if err != nil {
			logger.Warn("ocr extraction failed", zap.Error(err))
		} else {
			merged = Merge(merged, ocrRes.Fields)
			ocrUsed = true
		}
		res.ExtractionMethod = constants.MethodTextOCR
	}

	if textErr != nil && layoutErr != nil && !ocrUsed {
		return failed(textErr, start)
	}

	record := BuildRecord(merged, source, p.cfg.DateFormats)
	record.RowConfidence = RowConfidence(merged, p.cfg.Weights, p.cfg.WeightOther)
	record.FieldConfidences = merged

	res.Success = true
	res.Record = record
	res.ProcessingTime = time.Since(start)

	logger.Info("extraction complete",
		zap.String("method", res.ExtractionMethod),
		zap.Float64("completeness", completeness),
		zap.Float64("row_confidence", record.RowConfidence),
		zap.Int64("duration_ms", res.ProcessingTime.Milliseconds()),
	)
	return res
}

func failed(err error, start time.Time) *entity.ExtractionResult {
	return &entity.ExtractionResult{
		Success:          false,
		ErrorMessage:     err.Error(),
		ExtractionMethod: constants.MethodFailed,
		ProcessingTime:   time.Since(start),
	}
}
