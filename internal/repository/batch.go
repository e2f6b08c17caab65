package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/challan-processor/internal/common"
	"github.com/joseph-ayodele/challan-processor/internal/entity"
)

// Batch is the stored summary of one batch run.
type Batch struct {
	ID         string
	TotalFiles int
	Successful int
	Failed     int
	Flagged    int
	Errors     map[string]string
	CreatedAt  time.Time
	FinishedAt *time.Time
}

type BatchRepository interface {
	Create(ctx context.Context, batchID string) error
	Finish(ctx context.Context, result *entity.BatchResult) error
	Get(ctx context.Context, batchID string) (*Batch, error)
	Latest(ctx context.Context) (*Batch, error)
}

type batchRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewBatchRepository(db *sql.DB, logger *zap.Logger) BatchRepository {
	return &batchRepository{db: db, logger: common.LoggerOrDefault(logger)}
}

func (r *batchRepository) Create(ctx context.Context, batchID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO batches (id, created_at) VALUES (?, ?)`,
		batchID, time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert batch %s", batchID)
	}
	r.logger.Debug("batch created", zap.String("batch_id", batchID))
	return nil
}

func (r *batchRepository) Finish(ctx context.Context, result *entity.BatchResult) error {
	errorsJSON, err := json.Marshal(result.Errors)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal batch errors")
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE batches SET total_files = ?, successful = ?, failed = ?, flagged = ?, errors = ?, finished_at = ?
		 WHERE id = ?`,
		result.TotalFiles, result.Successful, result.Failed, result.Flagged, string(errorsJSON), time.Now().UTC(),
		result.BatchID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish batch %s", result.BatchID)
	}
	if err := checkRowsAffected(res, "batch", result.BatchID); err != nil {
		return err
	}
	r.logger.Info("batch finished",
		zap.String("batch_id", result.BatchID),
		zap.Int("total_files", result.TotalFiles),
		zap.Int("flagged", result.Flagged),
	)
	return nil
}

const batchColumns = `id, total_files, successful, failed, flagged, errors, created_at, finished_at`

func (r *batchRepository) Get(ctx context.Context, batchID string) (*Batch, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batches WHERE id = ?`, batchID)
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("NOT_FOUND", "batch not found: "+batchID, common.ErrNotFound)
	}
	return b, err
}

func (r *batchRepository) Latest(ctx context.Context) (*Batch, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+batchColumns+` FROM batches ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("NOT_FOUND", "no batches stored", common.ErrNotFound)
	}
	return b, err
}

func scanBatch(row scannable) (*Batch, error) {
	var (
		b          Batch
		errorsJSON sql.NullString
		finished   sql.NullTime
	)
	if err := row.Scan(&b.ID, &b.TotalFiles, &b.Successful, &b.Failed, &b.Flagged, &errorsJSON, &b.CreatedAt, &finished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan batch")
	}
	if errorsJSON.Valid && errorsJSON.String != "" {
		if err := json.Unmarshal([]byte(errorsJSON.String), &b.Errors); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal batch errors")
		}
	}
	if finished.Valid {
		t := finished.Time
		b.FinishedAt = &t
	}
	return &b, nil
}

type scannable interface {
	Scan(dest ...any) error
}
