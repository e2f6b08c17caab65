package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/challan-processor/constants"
	"github.com/joseph-ayodele/challan-processor/internal/common"
	"github.com/joseph-ayodele/challan-processor/internal/entity"
)

// RecordFilter narrows List. Zero values match everything.
type RecordFilter struct {
	BatchID         string
	Flag            constants.ValidationStatus
	ExcludeRejected bool
	Limit           int
}

type RecordRepository interface {
	// Save inserts or replaces the record; batchID may be empty for ad-hoc runs.
	Save(ctx context.Context, batchID string, r *entity.Record) error
	Get(ctx context.Context, id string) (*entity.Record, error)
	List(ctx context.Context, filter RecordFilter) ([]*entity.Record, error)
}

type recordRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewRecordRepository(db *sql.DB, logger *zap.Logger) RecordRepository {
	return &recordRepository{db: db, logger: common.LoggerOrDefault(logger)}
}

func (r *recordRepository) Save(ctx context.Context, batchID string, rec *entity.Record) error {
	data, err := entity.MarshalValidated(rec)
	if err != nil {
		return common.NewAppError("INVALID_RECORD", "record "+rec.ID+" rejected by schema", err)
	}
	batch := sql.NullString{String: batchID, Valid: batchID != ""}
	var amount sql.NullFloat64
	if rec.TotalAmount != nil {
		amount = sql.NullFloat64{Float64: *rec.TotalAmount, Valid: true}
	}
	now := time.Now().UTC()

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO records (id, batch_id, source_file, tan, total_amount, record_hash, validation_flag, review_status, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			batch_id = COALESCE(excluded.batch_id, records.batch_id),
			source_file = excluded.source_file,
			tan = excluded.tan,
			total_amount = excluded.total_amount,
			record_hash = excluded.record_hash,
			validation_flag = excluded.validation_flag,
			review_status = excluded.review_status,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		rec.ID, batch, rec.SourceFile, rec.TAN, amount, rec.RecordHash,
		string(rec.ValidationFlag), string(rec.ReviewStatus), string(data), now, now,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save record %s", rec.ID)
	}
	r.logger.Debug("record saved",
		zap.String("record_id", rec.ID),
		zap.String("batch_id", batchID),
		zap.String("source_file", rec.SourceFile),
	)
	return nil
}

func (r *recordRepository) Get(ctx context.Context, id string) (*entity.Record, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM records WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("NOT_FOUND", "record not found: "+id, common.ErrNotFound)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get record %s", id)
	}
	return decodeRecord(data)
}

func (r *recordRepository) List(ctx context.Context, filter RecordFilter) ([]*entity.Record, error) {
	query := `SELECT data FROM records WHERE 1=1`
	var args []any

	if filter.BatchID != "" {
		query += ` AND batch_id = ?`
		args = append(args, filter.BatchID)
	}
	if filter.Flag != "" {
		query += ` AND validation_flag = ?`
		args = append(args, string(filter.Flag))
	}
	if filter.ExcludeRejected {
		query += ` AND review_status != ?`
		args = append(args, string(constants.ReviewRejected))
	}
	query += ` ORDER BY created_at, source_file`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close()

	var out []*entity.Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list records iterate")
}

func decodeRecord(data string) (*entity.Record, error) {
	var rec entity.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal record")
	}
	return &rec, nil
}
