package pipeline

import (
	"go.uber.org/zap"

	"github.com/joseph-ayodele/challan-processor/internal/common"
	"github.com/joseph-ayodele/challan-processor/internal/core/document"
	"github.com/joseph-ayodele/challan-processor/internal/core/extract/layout"
	"github.com/joseph-ayodele/challan-processor/internal/core/extract/text"
	"github.com/joseph-ayodele/challan-processor/internal/core/ocr"
)

// FromConfig wires every strategy from application config. recognizer may be nil.
func FromConfig(cfg *common.Config, recognizer ocr.Recognizer, logger *zap.Logger) (*Pipeline, error) {
	textExtractor, err := text.NewExtractor(text.Config{
		DateFormats:  cfg.Validation.DateFormats,
		TANPattern:   cfg.Validation.TANPattern,
		CINMinLength: cfg.Validation.CINMinLength,
	}, logger)
	if err != nil {
		return nil, err
	}

	layoutExtractor := layout.NewExtractor(cfg.Extraction.LineTolerance, logger)

	var ocrExtractor *ocr.Extractor
	if recognizer != nil {
		ocrExtractor = ocr.NewExtractor(ocr.Config{
			DPI: cfg.Extraction.OCRDPI,
			Preprocess: ocr.PreprocessOptions{
				DenoiseStrength: cfg.Extraction.DenoiseStrength,
				BlockSize:       cfg.Extraction.ThresholdBlockSize,
				C:               cfg.Extraction.ThresholdC,
			},
		}, recognizer, textExtractor, logger)
	}

	return New(Config{
		CompletenessThreshold: cfg.Extraction.CompletenessThreshold,
		Weights:               cfg.Extraction.Weights,
		WeightOther:           cfg.Extraction.WeightOther,
		DateFormats:           cfg.Validation.DateFormats,
		PDF: document.PDFConfig{
			Pdftoppm:      cfg.Tools.Pdftoppm,
			WordGap:       cfg.Extraction.WordGap,
			LineTolerance: cfg.Extraction.LineTolerance,
		},
	}, textExtractor, layoutExtractor, ocrExtractor, logger), nil
}
