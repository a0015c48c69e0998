// Package tracker contains the signal tracking engine: status evaluation,
// update-worthiness policy, lifecycle sweeping and the dispatch loop.
package tracker

import "github.com/raykavin/signalrun/pkg/core"

// Evaluate derives the current status of a signal from a price. It is a pure
// computation with no side effects.
//
// Sign conventions: for BUY, profit is price minus entry; for SELL, entry
// minus price. Progress toward target i is profit over the entry-to-target
// distance, in percent. A target equal to the entry would divide by zero and
// evaluates to 0 instead.
func Evaluate(signal *core.Signal, price float64) *core.Status {
	status := &core.Status{
		Price:        price,
		PctToTargets: make([]float64, len(signal.TakeProfits)),
		TargetsHit:   make([]bool, len(signal.TakeProfits)),
	}

	switch signal.Direction {
	case core.DirectionBuy:
		status.Profit = price - signal.EntryPrice
		status.StopHit = price <= signal.StopLoss
		for i, target := range signal.TakeProfits {
			status.PctToTargets[i] = pctToTarget(status.Profit, target-signal.EntryPrice)
			status.TargetsHit[i] = price >= target
		}
	case core.DirectionSell:
		status.Profit = signal.EntryPrice - price
		status.StopHit = price >= signal.StopLoss
		for i, target := range signal.TakeProfits {
			status.PctToTargets[i] = pctToTarget(status.Profit, signal.EntryPrice-target)
			status.TargetsHit[i] = price <= target
		}
	}

	status.InProfit = status.Profit > 0
	return status
}

func pctToTarget(profit, distance float64) float64 {
	if distance == 0 {
		return 0
	}
	return profit / distance * 100
}
