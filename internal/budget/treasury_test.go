package budget

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithdrawDailyLimitGuard(t *testing.T) {
	tr := NewTreasury(40, TreasuryLimits{MinReserve: 10, MaxSingle: 50, DailyLimit: 100}, nil)
	tr.dailySpent = 80

	_, err := tr.Withdraw(25, "test spend", "")
	require.Error(t, err)
	var limitErr *LimitError
	require.ErrorAs(t, err, &limitErr)
	require.Equal(t, "daily", limitErr.Guard)
	require.Equal(t, 40.0, tr.Snapshot().Balance)
}

func TestWithdrawSucceedsWithinLimits(t *testing.T) {
	tr := NewTreasury(100, TreasuryLimits{MinReserve: 10, MaxSingle: 50, DailyLimit: 200, MonthlyLimit: 1000}, nil)
	_, err := tr.Withdraw(30, "spend", "ref-1")
	require.NoError(t, err)
	require.Equal(t, 70.0, tr.Snapshot().Balance)
}

func TestReserveAndReleaseRoundTrip(t *testing.T) {
	tr := NewTreasury(100, TreasuryLimits{}, nil)
	tr.Reserve(20, "task-1")
	require.Equal(t, 80.0, tr.Snapshot().Available)

	_, err := tr.Release("task-1")
	require.NoError(t, err)
	require.Equal(t, 100.0, tr.Snapshot().Available)
}

func TestReleaseUnknownRefErrors(t *testing.T) {
	tr := NewTreasury(100, TreasuryLimits{}, nil)
	_, err := tr.Release("missing")
	require.Error(t, err)
}

func TestConservationInvariantAfterMixedOps(t *testing.T) {
	tr := NewTreasury(100, TreasuryLimits{MaxSingle: 1000, DailyLimit: 1000, MonthlyLimit: 1000}, nil)
	tr.Deposit(50, "top up")
	tr.Reserve(20, "r1")
	_, err := tr.Withdraw(30, "spend", "r1")
	require.NoError(t, err)
	_, _ = tr.Release("r1")

	snap := tr.Snapshot()
	require.GreaterOrEqual(t, snap.Available, 0.0)
	require.Equal(t, snap.Balance-snap.Reserved, snap.Available)
}
