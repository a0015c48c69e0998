package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Direction is the side of a trading signal.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// ParseDirection converts a user supplied string into a Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToUpper(strings.TrimSpace(s))) {
	case DirectionBuy:
		return DirectionBuy, nil
	case DirectionSell:
		return DirectionSell, nil
	}
	return "", &ValidationError{Field: "direction", Reason: fmt.Sprintf("unknown direction %q", s)}
}

// Signal is a tracked trade idea. The body is immutable after creation;
// per-signal notification bookkeeping lives in UpdateState.
type Signal struct {
	ID          string    `json:"signal_id"`
	Symbol      string    `json:"symbol"`
	Direction   Direction `json:"direction"`
	EntryPrice  float64   `json:"entry_price"`
	StopLoss    float64   `json:"stop_loss"`
	TakeProfits []float64 `json:"take_profit_levels"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewSignalID derives an identifier from the signal coordinates and creation
// time. It is unique enough for in-process bookkeeping, nothing more.
func NewSignalID(symbol string, direction Direction, createdAt time.Time) string {
	return fmt.Sprintf("%s-%s-%s",
		strings.ToUpper(symbol),
		direction,
		createdAt.UTC().Format("20060102150405"),
	)
}

// Age returns how long the signal has been alive at the given instant.
func (s *Signal) Age(now time.Time) time.Duration {
	return now.Sub(s.CreatedAt)
}

// Validate checks the signal for ingestion. Missing required fields and
// stop/target levels on the wrong side of the entry are both rejected.
func (s *Signal) Validate() error {
	if s.Symbol == "" {
		return &ValidationError{Field: "symbol", Reason: "required"}
	}
	if s.Direction != DirectionBuy && s.Direction != DirectionSell {
		return &ValidationError{Field: "direction", Reason: "must be BUY or SELL"}
	}
	if s.EntryPrice <= 0 {
		return &ValidationError{Field: "entry_price", Reason: "required and positive"}
	}
	if s.StopLoss <= 0 {
		return &ValidationError{Field: "stop_loss", Reason: "required and positive"}
	}
	if len(s.TakeProfits) < 1 || len(s.TakeProfits) > 3 {
		return &ValidationError{Field: "take_profit_levels", Reason: "expected 1 to 3 levels"}
	}

	switch s.Direction {
	case DirectionBuy:
		if s.StopLoss >= s.EntryPrice {
			return &ValidationError{Field: "stop_loss", Reason: "must be below entry for BUY"}
		}
		last := s.EntryPrice
		for i, tp := range s.TakeProfits {
			if tp <= last {
				return &ValidationError{
					Field:  "take_profit_levels",
					Reason: fmt.Sprintf("level %d must be above %.5f for BUY", i+1, last),
				}
			}
			last = tp
		}
	case DirectionSell:
		if s.StopLoss <= s.EntryPrice {
			return &ValidationError{Field: "stop_loss", Reason: "must be above entry for SELL"}
		}
		last := s.EntryPrice
		for i, tp := range s.TakeProfits {
			if tp >= last {
				return &ValidationError{
					Field:  "take_profit_levels",
					Reason: fmt.Sprintf("level %d must be below %.5f for SELL", i+1, last),
				}
			}
			last = tp
		}
	}

	return nil
}

func (s *Signal) String() string {
	return fmt.Sprintf("%s %s @ %.5f (SL %.5f, TP %v)",
		s.Direction, s.Symbol, s.EntryPrice, s.StopLoss, s.TakeProfits)
}

// UpdateState is the notification bookkeeping companion of a Signal.
type UpdateState struct {
	LastUpdateTime   time.Time `json:"last_update_time"`
	LastUpdatePct    float64   `json:"last_update_pct"`
	UpdatesSent      int       `json:"updates_sent"`
	CompletedTargets []int     `json:"completed_targets"`
}

// NewUpdateState returns a fresh state whose last update time lies far enough
// in the past that the first eligibility check always passes.
func NewUpdateState() *UpdateState {
	return &UpdateState{LastUpdateTime: time.Unix(0, 0).UTC()}
}

// TargetCompleted reports whether the take-profit level at index i has
// already been announced.
func (u *UpdateState) TargetCompleted(i int) bool {
	for _, c := range u.CompletedTargets {
		if c == i {
			return true
		}
	}
	return false
}

// MarkTargetCompleted records a take-profit index as announced. Duplicate
// marks are ignored.
func (u *UpdateState) MarkTargetCompleted(i int) {
	if u.TargetCompleted(i) {
		return
	}
	u.CompletedTargets = append(u.CompletedTargets, i)
	sort.Ints(u.CompletedTargets)
}

// Status is the ephemeral evaluation of a signal against a current price.
// It is recomputed on every tick and never persisted.
type Status struct {
	Price        float64
	InProfit     bool
	Profit       float64
	PctToTargets []float64
	StopHit      bool
	TargetsHit   []bool
}

// AllTargetsHit reports whether every take-profit level has been reached.
func (s *Status) AllTargetsHit() bool {
	if len(s.TargetsHit) == 0 {
		return false
	}
	for _, hit := range s.TargetsHit {
		if !hit {
			return false
		}
	}
	return true
}

// PctToPrimary returns progress toward the first take-profit level.
func (s *Status) PctToPrimary() float64 {
	if len(s.PctToTargets) == 0 {
		return 0
	}
	return s.PctToTargets[0]
}
