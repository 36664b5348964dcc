package lifecycle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gym-contracts-backend/internal/contract"
	"gym-contracts-backend/internal/notification"
)

func TestActivateSuspension(t *testing.T) {
	ctx := context.Background()

	c := baseContract()
	c.PendingSuspensionDays = 5
	svc, st, rec := newTestService("2025-08-01", c)
	st.suspensions["ct-1"] = []contract.Suspension{{
		ID: "s-1", ContractID: "ct-1", Status: contract.SuspensionScheduled,
		StartDate: d("2025-08-01"), EndDate: d("2025-08-05"), DaysUsed: 5,
	}}

	require.NoError(t, svc.ActivateSuspension(ctx, "ct-1", "s-1"))

	stored, _ := st.GetContract(ctx, "ct-1")
	assert.Equal(t, contract.StatusSuspended, stored.Status)
	assert.Zero(t, stored.PendingSuspensionDays)
	assert.Equal(t, 5, stored.TotalSuspendedDays)
	assert.Equal(t, d("2025-07-05"), stored.EndDate)
	assert.Equal(t, contract.SuspensionActive, st.suspensions["ct-1"][0].Status)
	assert.Equal(t, []notification.Kind{notification.SuspensionStarted}, rec.kinds())

	// Running again is rejected; the suspension is no longer scheduled.
	assert.ErrorIs(t, svc.ActivateSuspension(ctx, "ct-1", "s-1"), contract.ErrInvalidSuspensionState)
}

func TestActivateSuspension_CanceledContract(t *testing.T) {
	ctx := context.Background()

	c := baseContract()
	c.Status = contract.StatusCanceled
	c.PendingSuspensionDays = 5
	svc, st, rec := newTestService("2025-08-01", c)
	st.suspensions["ct-1"] = []contract.Suspension{{
		ID: "s-1", ContractID: "ct-1", Status: contract.SuspensionScheduled,
		StartDate: d("2025-08-01"), EndDate: d("2025-08-05"), DaysUsed: 5,
	}}

	require.NoError(t, svc.ActivateSuspension(ctx, "ct-1", "s-1"))

	stored, _ := st.GetContract(ctx, "ct-1")
	assert.Equal(t, contract.StatusCanceled, stored.Status)
	assert.Zero(t, stored.PendingSuspensionDays)
	assert.Equal(t, contract.SuspensionCancelled, st.suspensions["ct-1"][0].Status)
	assert.Empty(t, rec.kinds())
}

func TestCompleteSuspension(t *testing.T) {
	ctx := context.Background()

	c := baseContract()
	c.Status = contract.StatusSuspended
	c.TotalSuspendedDays = 10
	c.EndDate = d("2025-07-10")
	svc, st, rec := newTestService("2025-05-11", c)
	st.suspensions["ct-1"] = []contract.Suspension{{
		ID: "s-1", ContractID: "ct-1", Status: contract.SuspensionActive,
		StartDate: d("2025-05-01"), EndDate: d("2025-05-10"), DaysUsed: 10,
	}}

	require.NoError(t, svc.CompleteSuspension(ctx, "ct-1", "s-1"))

	stored, _ := st.GetContract(ctx, "ct-1")
	assert.Equal(t, contract.StatusActive, stored.Status)
	assert.Equal(t, 10, stored.TotalSuspendedDays)
	assert.Equal(t, d("2025-07-10"), stored.EndDate)
	assert.Equal(t, contract.SuspensionCompleted, st.suspensions["ct-1"][0].Status)
	assert.Equal(t, []notification.Kind{notification.SuspensionCompleted}, rec.kinds())

	_, err := svc.StopSuspension(ctx, "ct-1", "s-1", d("2025-05-11"))
	assert.ErrorIs(t, err, contract.ErrInvalidSuspensionState)
}

func TestFinalizeCancellation(t *testing.T) {
	ctx := context.Background()

	c := baseContract()
	c.Status = contract.StatusScheduledCancellation
	c.CancelReason = "moving"
	c.CancelDate = d("2025-05-31")

	svc, st, rec := newTestService("2025-05-30", c)
	assert.ErrorIs(t, svc.FinalizeCancellation(ctx, "ct-1"), contract.ErrInvalidTransition)

	svc, st, rec = newTestService("2025-05-31", c)
	require.NoError(t, svc.FinalizeCancellation(ctx, "ct-1"))
	stored, _ := st.GetContract(ctx, "ct-1")
	assert.Equal(t, contract.StatusCanceled, stored.Status)
	assert.Equal(t, []notification.Kind{notification.ContractCanceled}, rec.kinds())
}

func TestOnSweepCommit(t *testing.T) {
	ctx := context.Background()

	c := baseContract()
	c.Status = contract.StatusScheduledCancellation
	c.CancelReason = "moving"
	c.CancelDate = d("2025-05-31")
	svc, _, _ := newTestService("2025-05-31", c)

	var seen []contract.Instance
	svc.OnSweepCommit(func(c contract.Instance) { seen = append(seen, c) })

	// Request commands are not reported.
	_, err := svc.CancelContract(ctx, "ct-1", contract.CancelRequest{Reason: "moving", Schedule: true, CancelDate: d("2025-06-15")})
	require.NoError(t, err)
	assert.Empty(t, seen)

	// Failed sweeps are not reported either.
	assert.Error(t, svc.FinalizeCancellation(ctx, "ct-1"))
	assert.Empty(t, seen)

	svc, _, _ = newTestService("2025-05-31", c)
	svc.OnSweepCommit(func(c contract.Instance) { seen = append(seen, c) })
	require.NoError(t, svc.FinalizeCancellation(ctx, "ct-1"))
	require.Len(t, seen, 1)
	assert.Equal(t, "ct-1", seen[0].ID)
	assert.Equal(t, "cl-1", seen[0].ClientID)
	assert.Equal(t, contract.StatusCanceled, seen[0].Status)
}
