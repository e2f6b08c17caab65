// Package review applies manual corrections and accept/reject decisions to challan records.
package review

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/challan-processor/constants"
	"github.com/joseph-ayodele/challan-processor/internal/common"
	"github.com/joseph-ayodele/challan-processor/internal/core/validation"
	"github.com/joseph-ayodele/challan-processor/internal/entity"
	"github.com/joseph-ayodele/challan-processor/internal/repository"
)

const maxNotesLength = 1000

// RecordUpdate carries the corrections a reviewer may make. Nil fields are left alone.
type RecordUpdate struct {
	TAN           *string
	DeductorName  *string
	TotalAmount   *float64
	CIN           *string
	ChallanNo     *string
	DateOfDeposit *string // YYYY-MM-DD
	Notes         *string
	ReviewStatus  *string
}

// IsEmpty reports whether the update carries nothing.
func (u RecordUpdate) IsEmpty() bool {
	return u.TAN == nil && u.DeductorName == nil && u.TotalAmount == nil && u.CIN == nil &&
		u.ChallanNo == nil && u.DateOfDeposit == nil && u.Notes == nil && u.ReviewStatus == nil
}

// Service handles review business logic. The record store is optional; without it the
// service only mutates the records it is handed.
type Service struct {
	records  repository.RecordRepository
	validCfg validation.Config
	clock    func() time.Time
	logger   *zap.Logger
}

type Option func(*Service)

func WithStore(records repository.RecordRepository) Option {
	return func(s *Service) { s.records = records }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.clock = now
		}
	}
}

// NewService creates a new review service.
func NewService(validCfg validation.Config, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{validCfg: validCfg, clock: time.Now, logger: common.LoggerOrDefault(logger)}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Update applies u to r, then re-hashes and re-validates it against an empty duplicate
// scope. Any changed value without an explicit status marks the record CORRECTED. A note in
// u replaces the notes validation would write.
func (s *Service) Update(ctx context.Context, r *entity.Record, u RecordUpdate) (validation.Result, error) {
	v := common.NewValidator()
	if u.DateOfDeposit != nil {
		v.Field("date_of_deposit", *u.DateOfDeposit, common.Required, common.ISODate)
	}
	if u.Notes != nil {
		v.Field("notes", *u.Notes, common.MaxLength(maxNotesLength))
	}
	var status constants.ReviewStatus
	if u.ReviewStatus != nil {
		parsed, ok := constants.ParseReviewStatus(*u.ReviewStatus)
		if !ok {
			return validation.Result{}, common.NewAppError("INVALID_INPUT", "unknown review status: "+*u.ReviewStatus, common.ErrInvalidInput)
		}
		status = parsed
	}
	if err := v.Error(); err != nil {
		return validation.Result{}, err
	}

	changed := false
	setString := func(dst *string, src *string) {
		if src == nil {
			return
		}
		val := strings.TrimSpace(*src)
		if val != *dst {
			*dst = val
			changed = true
		}
	}
	setString(&r.TAN, u.TAN)
	setString(&r.DeductorName, u.DeductorName)
	setString(&r.CIN, u.CIN)
	setString(&r.ChallanNo, u.ChallanNo)
	if u.TotalAmount != nil && (r.TotalAmount == nil || *r.TotalAmount != *u.TotalAmount) {
		r.TotalAmount = entity.Float64(*u.TotalAmount)
		changed = true
	}
	if u.DateOfDeposit != nil {
		t, _ := time.Parse(entity.DateLayout, strings.TrimSpace(*u.DateOfDeposit))
		d := entity.DateOf(t)
		if r.DateOfDeposit == nil || !r.DateOfDeposit.Equal(d.Time) {
			r.DateOfDeposit = &d
			changed = true
		}
	}

	switch {
	case u.ReviewStatus != nil:
		r.ReviewStatus = status
	case changed:
		r.ReviewStatus = constants.ReviewCorrected
	}

	r.ComputeHash()
	res, err := s.revalidate(ctx, r)
	if err != nil {
		return res, err
	}
	if u.Notes != nil {
		r.Notes = strings.TrimSpace(*u.Notes)
	}
	if err := s.save(ctx, r); err != nil {
		return res, err
	}
	s.logger.Info("record updated",
		zap.String("record_id", r.ID),
		zap.Bool("changed", changed),
		zap.String("review_status", string(r.ReviewStatus)),
		zap.String("flag", string(r.ValidationFlag)),
	)
	return res, nil
}

// Accept marks r as reviewed and correct.
func (s *Service) Accept(ctx context.Context, r *entity.Record) error {
	return s.setStatus(ctx, r, constants.ReviewAccepted)
}

// Reject marks r as excluded from exports.
func (s *Service) Reject(ctx context.Context, r *entity.Record) error {
	return s.setStatus(ctx, r, constants.ReviewRejected)
}

// UpdateByID loads, updates and saves a stored record.
func (s *Service) UpdateByID(ctx context.Context, id string, u RecordUpdate) (*entity.Record, validation.Result, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, validation.Result{}, err
	}
	res, err := s.Update(ctx, r, u)
	return r, res, err
}

// AcceptByID accepts a stored record.
func (s *Service) AcceptByID(ctx context.Context, id string) (*entity.Record, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return r, s.Accept(ctx, r)
}

// RejectByID rejects a stored record.
func (s *Service) RejectByID(ctx context.Context, id string) (*entity.Record, error) {
	r, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return r, s.Reject(ctx, r)
}

func (s *Service) setStatus(ctx context.Context, r *entity.Record, status constants.ReviewStatus) error {
	r.ReviewStatus = status
	if err := s.save(ctx, r); err != nil {
		return err
	}
	s.logger.Info("record reviewed", zap.String("record_id", r.ID), zap.String("review_status", string(status)))
	return nil
}

func (s *Service) revalidate(ctx context.Context, r *entity.Record) (validation.Result, error) {
	v, err := validation.New(s.validCfg, s.logger, validation.WithClock(s.clock))
	if err != nil {
		return validation.Result{}, err
	}
	return v.Validate(ctx, r)
}

func (s *Service) load(ctx context.Context, id string) (*entity.Record, error) {
	if s.records == nil {
		return nil, common.NewAppError("NO_STORE", "review by id needs a record store", common.ErrInvalidInput)
	}
	if err := common.NewValidator().Field("record_id", id, common.Required, common.UUID).Error(); err != nil {
		return nil, err
	}
	return s.records.Get(ctx, id)
}

func (s *Service) save(ctx context.Context, r *entity.Record) error {
	if s.records == nil {
		return nil
	}
	return s.records.Save(ctx, "", r)
}
