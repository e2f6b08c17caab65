package main

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/challan-processor/internal/core"
	"github.com/joseph-ayodele/challan-processor/internal/core/ocr"
	"github.com/joseph-ayodele/challan-processor/internal/core/ocr/tesseract"
	"github.com/joseph-ayodele/challan-processor/internal/core/pipeline"
	"github.com/joseph-ayodele/challan-processor/internal/core/validation"
	"github.com/joseph-ayodele/challan-processor/internal/repository"
	"github.com/joseph-ayodele/challan-processor/internal/services/export"
	"github.com/joseph-ayodele/challan-processor/internal/services/review"
)

// appEnv holds the components shared by the processing commands.
type appEnv struct {
	DB        *sql.DB
	Records   repository.RecordRepository
	Batches   repository.BatchRepository
	Pipeline  *pipeline.Pipeline
	Processor *core.Processor
	Export    *export.Service
	Review    *review.Service
}

// initStore opens the record store named by the loaded config.
func initStore(ctx context.Context) (*sql.DB, error) {
	return repository.Open(ctx, repository.ConfigFrom(cfg.Store), zap.L())
}

// initEnv wires store, pipeline and processor. withOCR=false leaves the OCR fallback out.
func initEnv(ctx context.Context, withOCR bool) (*appEnv, error) {
	db, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	var recognizer ocr.Recognizer
	if withOCR {
		recognizer = tesseract.New(tesseract.Config{
			Language:       cfg.Extraction.OCRLanguage,
			PSM:            cfg.Extraction.OCRPSM,
			TessdataPrefix: cfg.Tools.TessdataDir,
		})
	} else {
		zap.L().Info("ocr fallback disabled")
	}

	p, err := pipeline.FromConfig(cfg, recognizer, zap.L())
	if err != nil {
		repository.Close(db, zap.L())
		return nil, err
	}

	records := repository.NewRecordRepository(db, zap.L())
	batches := repository.NewBatchRepository(db, zap.L())
	validCfg := validation.ConfigFrom(cfg.Validation)

	proc, err := core.NewProcessor(p, validCfg, zap.L(),
		core.WithStore(records, batches),
		core.WithHashScope(func(batchID string) validation.HashSet {
			return repository.NewSeenHashes(db, batchID)
		}),
		core.WithWorkers(cfg.Pipeline.Workers),
		core.WithProcessTimeout(cfg.Pipeline.ProcessTimeout),
	)
	if err != nil {
		repository.Close(db, zap.L())
		return nil, err
	}

	return &appEnv{
		DB:        db,
		Records:   records,
		Batches:   batches,
		Pipeline:  p,
		Processor: proc,
		Export:    export.NewService(records, zap.L()),
		Review:    review.NewService(validCfg, zap.L(), review.WithStore(records)),
	}, nil
}

// Close releases the store.
func (e *appEnv) Close() {
	repository.Close(e.DB, zap.L())
}
