package statemachine

import (
	"context"
	"errors"
	"testing"

	"github.com/sjperalta/comisiones-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFortnightFSM_ClosesOnce(t *testing.T) {
	ctx := context.Background()
	f := &models.Fortnight{Status: models.FortnightStatusDraft}

	require.NoError(t, NewFortnightFSM(f).Close(ctx))
	assert.Equal(t, models.FortnightStatusPaid, f.Status)

	err := NewFortnightFSM(f).Close(ctx)
	assert.True(t, errors.Is(err, ErrTransition))
	assert.Equal(t, models.FortnightStatusPaid, f.Status)
}

func TestRetainedFSM_Lifecycle(t *testing.T) {
	ctx := context.Background()
	r := &models.RetainedCommission{Status: models.RetainedStatusPending}

	err := NewRetainedFSM(r).Pay(ctx)
	assert.ErrorIs(t, err, ErrTransition, "cannot pay before association")

	require.NoError(t, NewRetainedFSM(r).Associate(ctx, 7))
	assert.Equal(t, models.RetainedStatusAssociated, r.Status)
	require.NotNil(t, r.FortnightID)
	assert.Equal(t, uint(7), *r.FortnightID)

	require.NoError(t, NewRetainedFSM(r).Pay(ctx))
	assert.Equal(t, models.RetainedStatusPaid, r.Status)
	assert.ErrorIs(t, NewRetainedFSM(r).Release(ctx), ErrTransition, "paid is final")
}

func TestRetainedFSM_ReleaseBackToPending(t *testing.T) {
	ctx := context.Background()
	r := &models.RetainedCommission{Status: models.RetainedStatusPending}

	assert.ErrorIs(t, NewRetainedFSM(r).Release(ctx), ErrTransition)

	require.NoError(t, NewRetainedFSM(r).Associate(ctx, 3))
	require.NoError(t, NewRetainedFSM(r).Release(ctx))
	assert.Equal(t, models.RetainedStatusPending, r.Status)
	assert.Nil(t, r.FortnightID)

	require.NoError(t, NewRetainedFSM(r).Associate(ctx, 4), "a released amount can be associated again")
}

func TestAdvanceFSM_SettleAndReopen(t *testing.T) {
	ctx := context.Background()
	a := &models.Advance{Status: models.AdvanceStatusPending}

	require.NoError(t, NewAdvanceFSM(a).Reopen(ctx), "reopen of pending is a no-op")
	assert.Equal(t, models.AdvanceStatusPending, a.Status)

	require.NoError(t, NewAdvanceFSM(a).Settle(ctx))
	assert.Equal(t, models.AdvanceStatusPaid, a.Status)
	assert.ErrorIs(t, NewAdvanceFSM(a).Settle(ctx), ErrTransition)

	require.NoError(t, NewAdvanceFSM(a).Reopen(ctx))
	assert.Equal(t, models.AdvanceStatusPending, a.Status)
}

func TestPendingPaymentFSM(t *testing.T) {
	ctx := context.Background()
	logID := uint(3)
	p := &models.PendingPayment{Status: models.PendingPaymentStatusPending}

	assert.ErrorIs(t, NewPendingPaymentFSM(p).Pay(ctx), ErrTransition)
	require.NoError(t, NewPendingPaymentFSM(p).Conciliate(ctx))
	p.AdvanceLogID = &logID

	require.NoError(t, NewPendingPaymentFSM(p).Deconciliate(ctx))
	assert.Equal(t, models.PendingPaymentStatusPending, p.Status)
	assert.Nil(t, p.AdvanceLogID)

	require.NoError(t, NewPendingPaymentFSM(p).Conciliate(ctx))
	require.NoError(t, NewPendingPaymentFSM(p).Pay(ctx))
	assert.Equal(t, models.PendingPaymentStatusPaid, p.Status)
	assert.ErrorIs(t, NewPendingPaymentFSM(p).Deconciliate(ctx), ErrTransition)
}
