package review

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/challan-processor/constants"
	"github.com/joseph-ayodele/challan-processor/internal/common"
	"github.com/joseph-ayodele/challan-processor/internal/core/validation"
	"github.com/joseph-ayodele/challan-processor/internal/repository"
	"github.com/joseph-ayodele/challan-processor/internal/testfixture"
)

var fixedNow = func() time.Time { return time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC) }

func ptr[T any](v T) *T { return &v }

func newService(opts ...Option) *Service {
	return NewService(validation.Config{SumCheckTolerance: 1}, nil, append([]Option{WithClock(fixedNow)}, opts...)...)
}

func TestUpdateFixesMismatch(t *testing.T) {
	s := newService()
	r := testfixture.Mismatched().Record()
	r.ValidationFlag = constants.ValidationFlag
	oldHash := r.RecordHash

	res, err := s.Update(context.Background(), r, RecordUpdate{TotalAmount: ptr(5000.0)})
	require.NoError(t, err)

	assert.True(t, res.IsValid)
	assert.Equal(t, constants.ValidationOK, r.ValidationFlag)
	assert.Equal(t, constants.ReviewCorrected, r.ReviewStatus)
	assert.Equal(t, oldHash, r.RecordHash, "amount is not part of the hash")
	assert.Empty(t, r.Notes)
}

func TestUpdateRehashes(t *testing.T) {
	s := newService()
	r := testfixture.Samples()[0].Record()
	oldHash := r.RecordHash

	_, err := s.Update(context.Background(), r, RecordUpdate{
		ChallanNo:     ptr(" 12867 "),
		DateOfDeposit: ptr("2025-10-08"),
	})
	require.NoError(t, err)

	assert.Equal(t, "12867", r.ChallanNo)
	assert.Equal(t, "2025-10-08", r.DateOfDeposit.String())
	assert.NotEqual(t, oldHash, r.RecordHash)
	assert.Equal(t, constants.ReviewCorrected, r.ReviewStatus)
}

func TestUpdateWithoutChangesKeepsStatus(t *testing.T) {
	s := newService()
	r := testfixture.Samples()[0].Record()

	_, err := s.Update(context.Background(), r, RecordUpdate{TAN: ptr(r.TAN)})
	require.NoError(t, err)
	assert.Equal(t, constants.ReviewPending, r.ReviewStatus)
}

func TestUpdateExplicitStatusWins(t *testing.T) {
	s := newService()
	r := testfixture.Samples()[0].Record()

	_, err := s.Update(context.Background(), r, RecordUpdate{
		DeductorName: ptr("SYAMBHAVAN FOODS"),
		ReviewStatus: ptr("accepted"),
	})
	require.NoError(t, err)
	assert.Equal(t, "SYAMBHAVAN FOODS", r.DeductorName)
	assert.Equal(t, constants.ReviewAccepted, r.ReviewStatus)
}

func TestUpdateRevalidatesWithFreshScope(t *testing.T) {
	s := newService()
	r := testfixture.Samples()[0].Record()

	for i := 0; i < 2; i++ {
		res, err := s.Update(context.Background(), r, RecordUpdate{})
		require.NoError(t, err)
		assert.True(t, res.IsValid, "an update never sees the record as its own duplicate")
	}

	res, err := s.Update(context.Background(), r, RecordUpdate{TAN: ptr("bad")})
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.Equal(t, constants.ValidationFlag, r.ValidationFlag)
	assert.Contains(t, r.Notes, "Invalid TAN format: bad")
}

func TestUpdateNotesOverrideValidation(t *testing.T) {
	s := newService()
	r := testfixture.Mismatched().Record()

	_, err := s.Update(context.Background(), r, RecordUpdate{Notes: ptr("bank confirmed 10,000")})
	require.NoError(t, err)
	assert.Equal(t, constants.ValidationFlag, r.ValidationFlag)
	assert.Equal(t, "bank confirmed 10,000", r.Notes)
}

func TestUpdateRejectsBadInput(t *testing.T) {
	s := newService()
	tests := []struct {
		name string
		u    RecordUpdate
	}{
		{"bad date", RecordUpdate{DateOfDeposit: ptr("07-Oct-2025")}},
		{"bad status", RecordUpdate{ReviewStatus: ptr("maybe")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testfixture.Samples()[0].Record()
			before := *r
			_, err := s.Update(context.Background(), r, tt.u)
			require.Error(t, err)
			assert.Equal(t, before.DateOfDeposit, r.DateOfDeposit)
			assert.Equal(t, before.ReviewStatus, r.ReviewStatus)
		})
	}
}

func TestAcceptReject(t *testing.T) {
	s := newService()
	r := testfixture.Samples()[0].Record()

	require.NoError(t, s.Accept(context.Background(), r))
	assert.Equal(t, constants.ReviewAccepted, r.ReviewStatus)

	require.NoError(t, s.Reject(context.Background(), r))
	assert.Equal(t, constants.ReviewRejected, r.ReviewStatus)
}

func TestByIDWithStore(t *testing.T) {
	ctx := context.Background()
	db, err := repository.Open(ctx, repository.Config{DSN: filepath.Join(t.TempDir(), "review.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(db, nil) })
	records := repository.NewRecordRepository(db, nil)

	r := testfixture.Mismatched().Record()
	r.ValidationFlag = constants.ValidationFlag
	require.NoError(t, records.Save(ctx, "", r))

	s := newService(WithStore(records))
	updated, res, err := s.UpdateByID(ctx, r.ID, RecordUpdate{TotalAmount: ptr(5000.0)})
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.Equal(t, constants.ReviewCorrected, updated.ReviewStatus)

	stored, err := records.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.ValidationOK, stored.ValidationFlag)
	assert.InDelta(t, 5000.0, stored.Amount(), 0.001)

	_, err = s.RejectByID(ctx, r.ID)
	require.NoError(t, err)
	stored, err = records.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.ReviewRejected, stored.ReviewStatus)

	accepted, err := s.AcceptByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.ReviewAccepted, accepted.ReviewStatus)

	_, err = s.AcceptByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = s.AcceptByID(ctx, "not-a-record-id")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestByIDWithoutStore(t *testing.T) {
	_, err := newService().AcceptByID(context.Background(), "x")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestUpdateRejectsLongNotes(t *testing.T) {
	r := testfixture.Samples()[0].Record()
	_, err := newService().Update(context.Background(), r, RecordUpdate{Notes: ptr(strings.Repeat("n", maxNotesLength+1))})
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Equal(t, constants.ReviewPending, r.ReviewStatus)
}

func TestRecordUpdateIsEmpty(t *testing.T) {
	assert.True(t, RecordUpdate{}.IsEmpty())
	assert.False(t, RecordUpdate{Notes: ptr("")}.IsEmpty())
}
