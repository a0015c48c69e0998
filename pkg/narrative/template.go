// Package narrative turns signal statuses into human-readable update
// messages, either through an LLM or a deterministic template.
package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/raykavin/signalrun/pkg/core"
)

// Template is a deterministic narrator. It is the fallback when no LLM is
// configured and the renderer used by tests.
type Template struct{}

// NewTemplate creates a template narrator.
func NewTemplate() *Template {
	return &Template{}
}

// Render implements core.Narrator. It never fails.
func (t *Template) Render(_ context.Context, signal *core.Signal, status *core.Status) (string, error) {
	var sb strings.Builder

	switch {
	case status.StopHit:
		fmt.Fprintf(&sb, "🛑 STOP LOSS HIT — %s %s\n", signal.Direction, signal.Symbol)
	case status.AllTargetsHit():
		fmt.Fprintf(&sb, "🏁 ALL TARGETS HIT — %s %s\n", signal.Direction, signal.Symbol)
	case status.InProfit:
		fmt.Fprintf(&sb, "📈 SIGNAL UPDATE — %s %s\n", signal.Direction, signal.Symbol)
	default:
		fmt.Fprintf(&sb, "📉 SIGNAL UPDATE — %s %s\n", signal.Direction, signal.Symbol)
	}

	fmt.Fprintf(&sb, "Entry: %.5f | Current: %.5f\n", signal.EntryPrice, status.Price)
	fmt.Fprintf(&sb, "Stop: %.5f\n", signal.StopLoss)

	for i, target := range signal.TakeProfits {
		marker := "…"
		if status.TargetsHit[i] {
			marker = "✅"
		}
		fmt.Fprintf(&sb, "TP%d %.5f — %.1f%% %s\n", i+1, target, status.PctToTargets[i], marker)
	}

	return strings.TrimRight(sb.String(), "\n"), nil
}
