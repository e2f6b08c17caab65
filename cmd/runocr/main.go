package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/challan-processor/internal/common"
	"github.com/joseph-ayodele/challan-processor/internal/core/document"
	"github.com/joseph-ayodele/challan-processor/internal/core/extract/text"
	"github.com/joseph-ayodele/challan-processor/internal/core/ocr"
	"github.com/joseph-ayodele/challan-processor/internal/core/ocr/tesseract"
)

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	logger, err := common.InitLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if len(os.Args) != 2 {
		logger.Error("usage", zap.String("cmd", "runocr <file.pdf>"))
		os.Exit(2)
	}
	path := os.Args[1]

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	doc, err := document.OpenPDF(path, document.PDFConfig{
		Pdftoppm:      cfg.Tools.Pdftoppm,
		WordGap:       cfg.Extraction.WordGap,
		LineTolerance: cfg.Extraction.LineTolerance,
	}, logger)
	if err != nil {
		logger.Error("open pdf", zap.String("file", path), zap.Error(err))
		os.Exit(1)
	}
	defer func() { _ = doc.Close() }()

	parser, err := text.NewExtractor(text.Config{
		DateFormats:  cfg.Validation.DateFormats,
		TANPattern:   cfg.Validation.TANPattern,
		CINMinLength: cfg.Validation.CINMinLength,
	}, logger)
	if err != nil {
		logger.Error("build text patterns", zap.Error(err))
		os.Exit(1)
	}

	recognizer := tesseract.New(tesseract.Config{
		Language:       cfg.Extraction.OCRLanguage,
		PSM:            cfg.Extraction.OCRPSM,
		TessdataPrefix: cfg.Tools.TessdataDir,
	})
	extractor := ocr.NewExtractor(ocr.Config{
		DPI: cfg.Extraction.OCRDPI,
		Preprocess: ocr.PreprocessOptions{
			DenoiseStrength: cfg.Extraction.DenoiseStrength,
			BlockSize:       cfg.Extraction.ThresholdBlockSize,
			C:               cfg.Extraction.ThresholdC,
		},
	}, recognizer, parser, logger)

	res, err := extractor.Extract(ctx, doc)
	if err != nil {
		logger.Error("ocr failed", zap.String("file", path), zap.Error(err))
		os.Exit(1)
	}

	fmt.Println(res.Text)
	fmt.Printf("\n--- %d words, average confidence %.3f, skew %.2f deg, %d fields, %s\n",
		len(res.Words), res.AvgConfidence, res.SkewAngle, len(res.Fields), res.Duration.Round(time.Millisecond))
	for name, fv := range res.Fields {
		fmt.Printf("%-20s %-30v %.2f\n", name, fv.Value, fv.Confidence)
	}
}
