package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/challan-processor/constants"
	"github.com/joseph-ayodele/challan-processor/internal/common"
	"github.com/joseph-ayodele/challan-processor/internal/core/validation"
	"github.com/joseph-ayodele/challan-processor/internal/entity"
	"github.com/joseph-ayodele/challan-processor/internal/repository"
)

// Extractor turns a document path into an extraction result. *pipeline.Pipeline implements it.
type Extractor interface {
	ProcessPath(ctx context.Context, path string) *entity.ExtractionResult
}

// HashScope returns the duplicate scope for a batch.
type HashScope func(batchID string) validation.HashSet

// Processor coordinates extraction, validation and persistence.
type Processor struct {
	logger    *zap.Logger
	extractor Extractor
	validCfg  validation.Config
	validator *validation.Validator
	records   repository.RecordRepository
	batches   repository.BatchRepository
	scope     HashScope
	workers   int
	timeout   time.Duration
	clock     func() time.Time
}

type Option func(*Processor)

// WithStore persists records and batch summaries. Either repository may be nil.
func WithStore(records repository.RecordRepository, batches repository.BatchRepository) Option {
	return func(p *Processor) {
		p.records = records
		p.batches = batches
	}
}

// WithHashScope backs each batch's duplicate detection with the set scope returns.
func WithHashScope(scope HashScope) Option {
	return func(p *Processor) {
		if scope != nil {
			p.scope = scope
		}
	}
}

func WithWorkers(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(p *Processor) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithClock fixes "today" for the validators the processor builds.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.clock = now
		}
	}
}

// NewProcessor builds a processor. The long-lived validator used by ProcessFile keeps
// its duplicate scope in memory for the life of the processor.
func NewProcessor(extractor Extractor, validCfg validation.Config, logger *zap.Logger, opts ...Option) (*Processor, error) {
	p := &Processor{
		logger:    common.LoggerOrDefault(logger),
		extractor: extractor,
		validCfg:  validCfg,
		scope:     func(string) validation.HashSet { return validation.NewMemoryHashSet() },
		workers:   4,
		timeout:   3 * time.Minute,
		clock:     time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	v, err := p.newValidator(validation.NewMemoryHashSet())
	if err != nil {
		return nil, err
	}
	p.validator = v
	return p, nil
}

func (p *Processor) newValidator(seen validation.HashSet) (*validation.Validator, error) {
	return validation.New(p.validCfg, p.logger,
		validation.WithHashSet(seen),
		validation.WithClock(p.clock),
	)
}

// ProcessFile extracts, validates and (when a store is configured) saves one document.
// The batch ID on ctx, if any, is stored with the record.
func (p *Processor) ProcessFile(ctx context.Context, path string) (*entity.ExtractionResult, error) {
	ctx, cancel := common.WithTimeout(ctx, p.timeout)
	defer cancel()

	res := p.extractor.ProcessPath(common.WithSourceFile(ctx, path), path)
	if !res.Success {
		p.logger.Error("extraction failed", zap.String("source_file", path), zap.String("error", res.ErrorMessage))
		return res, common.NewAppError("EXTRACTION_FAILED", res.ErrorMessage, common.ErrUnreadableDocument)
	}
	if _, err := p.validator.Validate(ctx, res.Record); err != nil {
		return res, err
	}
	if err := p.save(ctx, common.BatchIDFromContext(ctx), res.Record); err != nil {
		return res, err
	}
	p.logger.Info("processed challan",
		zap.String("source_file", path),
		zap.String("record_id", res.Record.ID),
		zap.String("method", res.ExtractionMethod),
		zap.String("flag", string(res.Record.ValidationFlag)),
		zap.Float64("row_confidence", res.Record.RowConfidence),
		zap.Int64("duration_ms", res.ProcessingTime.Milliseconds()),
	)
	return res, nil
}

// ProcessBatch extracts every path concurrently (bounded by the worker count and the
// per-document timeout), then validates the records in input order against a fresh
// duplicate scope. A document that fails never aborts the batch; its error is recorded
// under its path.
func (p *Processor) ProcessBatch(ctx context.Context, paths []string) (*entity.BatchResult, error) {
	batchID := uuid.NewString()
	ctx = common.WithBatchID(ctx, batchID)
	logger := p.logger.With(zap.String("batch_id", batchID))
	start := p.clock()

	batch := &entity.BatchResult{
		BatchID:    batchID,
		TotalFiles: len(paths),
		Records:    make([]*entity.Record, 0, len(paths)),
		Errors:     make(map[string]string),
	}
	if p.batches != nil {
		if err := p.batches.Create(ctx, batchID); err != nil {
			return nil, err
		}
	}

	seen := p.scope(batchID)
	validator, err := p.newValidator(seen)
	if err != nil {
		return nil, err
	}
	if err := validator.Reset(ctx); err != nil {
		return nil, err
	}

	results := make([]*entity.ExtractionResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, path := range paths {
		g.Go(func() error {
			dctx, cancel := common.WithTimeout(common.WithSourceFile(gctx, path), p.timeout)
			defer cancel()
			results[i] = p.extractor.ProcessPath(dctx, path)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, common.NewAppError("BATCH_CANCELLED", "batch "+batchID+" cancelled", err)
	}

	for i, res := range results {
		path := paths[i]
		if res == nil || !res.Success {
			msg := "no result"
			if res != nil {
				msg = res.ErrorMessage
			}
			batch.Failed++
			batch.Errors[path] = msg
			logger.Warn("document failed", zap.String("source_file", path), zap.String("error", msg))
			continue
		}
		if _, err := validator.Validate(ctx, res.Record); err != nil {
			return nil, err
		}
		if err := p.save(ctx, batchID, res.Record); err != nil {
			batch.Failed++
			batch.Errors[path] = err.Error()
			logger.Error("save record failed", zap.String("source_file", path), zap.Error(err))
			continue
		}
		batch.Successful++
		if res.Record.ValidationFlag == constants.ValidationFlag {
			batch.Flagged++
		}
		batch.Records = append(batch.Records, res.Record)
	}

	if p.batches != nil {
		if err := p.batches.Finish(ctx, batch); err != nil {
			return batch, err
		}
	}
	logger.Info("batch processed",
		zap.Int("total_files", batch.TotalFiles),
		zap.Int("successful", batch.Successful),
		zap.Int("failed", batch.Failed),
		zap.Int("flagged", batch.Flagged),
		zap.Int64("duration_ms", p.clock().Sub(start).Milliseconds()),
	)
	return batch, nil
}

func (p *Processor) save(ctx context.Context, batchID string, r *entity.Record) error {
	if p.records == nil {
		return nil
	}
	return p.records.Save(ctx, batchID, r)
}
