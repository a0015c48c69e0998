package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/raykavin/signalrun/pkg/core"
)

func buySignal() *core.Signal {
	return &core.Signal{
		ID:          "EURUSD-BUY-20240101120000",
		Symbol:      "EURUSD",
		Direction:   core.DirectionBuy,
		EntryPrice:  1.0750,
		StopLoss:    1.0720,
		TakeProfits: []float64{1.0800},
		CreatedAt:   time.Now().UTC(),
	}
}

func sellSignal() *core.Signal {
	return &core.Signal{
		ID:          "GBPUSD-SELL-20240101120000",
		Symbol:      "GBPUSD",
		Direction:   core.DirectionSell,
		EntryPrice:  1.2500,
		StopLoss:    1.2530,
		TakeProfits: []float64{1.2450},
		CreatedAt:   time.Now().UTC(),
	}
}

func TestEvaluate_BuyProfitConvention(t *testing.T) {
	status := Evaluate(buySignal(), 1.0775)

	require.InDelta(t, 0.0025, status.Profit, 1e-9)
	require.True(t, status.InProfit)
	require.InDelta(t, 50, status.PctToTargets[0], 1e-9)
	require.False(t, status.StopHit)
	require.False(t, status.TargetsHit[0])
}

func TestEvaluate_SellProfitConvention(t *testing.T) {
	status := Evaluate(sellSignal(), 1.2475)

	require.InDelta(t, 0.0025, status.Profit, 1e-9)
	require.True(t, status.InProfit)
	require.InDelta(t, 50, status.PctToTargets[0], 1e-9)
	require.False(t, status.StopHit)
	require.False(t, status.TargetsHit[0])
}

func TestEvaluate_BuyMonotonicity(t *testing.T) {
	signal := buySignal()

	last := -1e9
	for price := 1.0700; price <= 1.0800; price += 0.0005 {
		status := Evaluate(signal, price)
		require.GreaterOrEqual(t, status.PctToTargets[0], last,
			"pct-to-target must not decrease as price rises toward the target")
		last = status.PctToTargets[0]
	}
}

func TestEvaluate_SellMonotonicity(t *testing.T) {
	signal := sellSignal()

	last := -1e9
	for price := 1.2550; price >= 1.2450; price -= 0.0005 {
		status := Evaluate(signal, price)
		require.GreaterOrEqual(t, status.PctToTargets[0], last,
			"pct-to-target must not decrease as price falls toward the target")
		last = status.PctToTargets[0]
	}
}

func TestEvaluate_StopHit(t *testing.T) {
	require.True(t, Evaluate(buySignal(), 1.0720).StopHit)
	require.True(t, Evaluate(buySignal(), 1.0700).StopHit)
	require.False(t, Evaluate(buySignal(), 1.0721).StopHit)

	require.True(t, Evaluate(sellSignal(), 1.2530).StopHit)
	require.True(t, Evaluate(sellSignal(), 1.2560).StopHit)
	require.False(t, Evaluate(sellSignal(), 1.2529).StopHit)
}

func TestEvaluate_TargetHit(t *testing.T) {
	require.True(t, Evaluate(buySignal(), 1.0800).TargetsHit[0])
	require.False(t, Evaluate(buySignal(), 1.0799).TargetsHit[0])

	require.True(t, Evaluate(sellSignal(), 1.2450).TargetsHit[0])
	require.False(t, Evaluate(sellSignal(), 1.2451).TargetsHit[0])
}

func TestEvaluate_DegenerateTargetEqualsEntry(t *testing.T) {
	signal := buySignal()
	signal.TakeProfits = []float64{signal.EntryPrice}

	status := Evaluate(signal, 1.0760)
	require.Zero(t, status.PctToTargets[0])
}

func TestEvaluate_MultipleTargets(t *testing.T) {
	signal := buySignal()
	signal.TakeProfits = []float64{1.0800, 1.0850, 1.0900}

	status := Evaluate(signal, 1.0825)
	require.True(t, status.TargetsHit[0])
	require.False(t, status.TargetsHit[1])
	require.False(t, status.TargetsHit[2])
	require.InDelta(t, 150, status.PctToTargets[0], 1e-9)
	require.InDelta(t, 75, status.PctToTargets[1], 1e-9)
	require.InDelta(t, 50, status.PctToTargets[2], 1e-9)
	require.False(t, status.AllTargetsHit())
}
