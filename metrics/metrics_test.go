package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bitfsorg/stakeledger-go/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReason(t *testing.T) {
	assert.Equal(t, "zero_amount", Reason(ledger.ErrZeroAmount))
	assert.Equal(t, "no_shares", Reason(fmt.Errorf("wrap: %w", ledger.ErrNoShares)))
	assert.Equal(t, "transfer_failed", Reason(fmt.Errorf("%w: %w", ledger.ErrTransferFailed, ledger.ErrRecipientRefused)))
	assert.Equal(t, "other", Reason(errors.New("boom")))
}

func TestDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg, "")
	require.NoError(t, err)
	_, err = New(reg, "")
	assert.Error(t, err)
}

func TestCollectorObservesLedger(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg, "test")
	require.NoError(t, err)

	ctx := context.Background()
	l := ledger.New(ledger.WithObserver(c))
	a := common.HexToAddress("0x01")
	b := common.HexToAddress("0x02")

	_, err = l.Deposit(ctx, a, uint256.NewInt(300))
	require.NoError(t, err)
	_, err = l.Deposit(ctx, b, uint256.NewInt(100))
	require.NoError(t, err)
	require.NoError(t, l.ReceiveReward(ctx, b, uint256.NewInt(40)))
	paid, err := l.Claim(ctx, a, a)
	require.NoError(t, err)
	require.Equal(t, uint64(30), paid.Uint64())

	_, err = l.Deposit(ctx, a, uint256.NewInt(0))
	require.ErrorIs(t, err, ledger.ErrZeroAmount)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.events.WithLabelValues("Deposit")))
	assert.Equal(t, 400.0, testutil.ToFloat64(c.volume.WithLabelValues("Deposit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.events.WithLabelValues("RewardsReceived")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.events.WithLabelValues("RewardClaimed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.failures.WithLabelValues("deposit", "zero_amount")))

	assert.Equal(t, 400.0, testutil.ToFloat64(c.totalShares))
	assert.Equal(t, 400.0, testutil.ToFloat64(c.pooledValue))
	assert.Equal(t, 40.0, testutil.ToFloat64(c.totalRewards))
	assert.Equal(t, 30.0, testutil.ToFloat64(c.totalClaimed))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.holders))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.eventSeq))

	count, err := testutil.GatherAndCount(reg, "test_events_total")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}
