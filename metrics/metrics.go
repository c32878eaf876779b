// Package metrics exports ledger activity as prometheus collectors.
package metrics

import (
	"errors"
	"math/big"

	"github.com/bitfsorg/stakeledger-go/ledger"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "stakeledger"

// Collector implements ledger.Observer on top of prometheus metrics.
type Collector struct {
	events   *prometheus.CounterVec
	volume   *prometheus.CounterVec
	failures *prometheus.CounterVec

	totalShares  prometheus.Gauge
	pooledValue  prometheus.Gauge
	totalRewards prometheus.Gauge
	totalClaimed prometheus.Gauge
	holders      prometheus.Gauge
	eventSeq     prometheus.Gauge
}

// New creates a collector and registers it on reg.
func New(reg prometheus.Registerer, namespace string) (*Collector, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	}
	c := &Collector{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Committed ledger events by kind.",
		}, []string{"kind"}),
		volume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_amount_total",
			Help:      "Sum of event amounts by kind, in base units.",
		}, []string{"kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Rejected or aborted ledger operations.",
		}, []string{"op", "reason"}),
		totalShares:  gauge("total_shares", "Shares outstanding."),
		pooledValue:  gauge("pooled_value", "Principal backing the outstanding shares."),
		totalRewards: gauge("rewards_received", "Cumulative rewards distributed."),
		totalClaimed: gauge("rewards_claimed", "Cumulative rewards paid out."),
		holders:      gauge("holders", "Holder records."),
		eventSeq:     gauge("event_seq", "Sequence number of the last committed event."),
	}
	for _, col := range []prometheus.Collector{
		c.events, c.volume, c.failures,
		c.totalShares, c.pooledValue, c.totalRewards, c.totalClaimed, c.holders, c.eventSeq,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveEvent counts a committed event.
func (c *Collector) ObserveEvent(ev *ledger.Event) {
	kind := ev.Kind.String()
	c.events.WithLabelValues(kind).Inc()
	if ev.Amount != nil && !ev.Amount.IsZero() {
		c.volume.WithLabelValues(kind).Add(toFloat(ev.Amount))
	}
}

// ObserveState records the totals after a commit.
func (c *Collector) ObserveState(st *ledger.State, holders int) {
	c.totalShares.Set(toFloat(st.TotalShares))
	c.pooledValue.Set(toFloat(st.TotalPooledValue))
	c.totalRewards.Set(toFloat(st.TotalRewards))
	c.totalClaimed.Set(toFloat(st.TotalClaimed))
	c.holders.Set(float64(holders))
	c.eventSeq.Set(float64(st.EventSeq))
}

// ObserveFailure counts a failed operation by cause.
func (c *Collector) ObserveFailure(op string, err error) {
	c.failures.WithLabelValues(op, Reason(err)).Inc()
}

var reasons = []struct {
	err  error
	name string
}{
	{ledger.ErrZeroAmount, "zero_amount"},
	{ledger.ErrInsufficientShares, "insufficient_shares"},
	{ledger.ErrNoShares, "no_shares"},
	{ledger.ErrTransferFailed, "transfer_failed"},
	{ledger.ErrPaymentFailed, "payment_failed"},
	{ledger.ErrDepositTooSmall, "deposit_too_small"},
	{ledger.ErrOverflow, "overflow"},
	{ledger.ErrInvariant, "invariant"},
	{ledger.ErrNilParam, "nil_param"},
}

// Reason maps an operation error to a low-cardinality label value.
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.name
		}
	}
	return "other"
}

// toFloat converts x for export; precision loss above 2^53 is acceptable.
func toFloat(x *uint256.Int) float64 {
	if x == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(x.ToBig()).Float64()
	return f
}
