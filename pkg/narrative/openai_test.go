package narrative

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/raykavin/signalrun/pkg/core"
)

func openAISignalStatus() (*core.Signal, *core.Status) {
	signal := &core.Signal{
		ID:          "EURUSD-BUY-20240101120000",
		Symbol:      "EURUSD",
		Direction:   core.DirectionBuy,
		EntryPrice:  1.0750,
		StopLoss:    1.0720,
		TakeProfits: []float64{1.0800},
		CreatedAt:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	status := &core.Status{
		Price:        1.0775,
		InProfit:     true,
		Profit:       0.0025,
		PctToTargets: []float64{50},
		TargetsHit:   []bool{false},
	}
	return signal, status
}

func newStubNarrator(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewOpenAI(core.OpenAISettings{
		APIKey:  "test-key",
		BaseURL: server.URL + "/v1",
	})
}

func TestOpenAIRender_ReturnsCompletion(t *testing.T) {
	n := newStubNarrator(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  EURUSD halfway to TP1.  "}}]}`))
	})

	signal, status := openAISignalStatus()
	text, err := n.Render(context.Background(), signal, status)
	require.NoError(t, err)
	require.Equal(t, "EURUSD halfway to TP1.", text)
}

func TestOpenAIRender_APIFailure(t *testing.T) {
	n := newStubNarrator(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
	})

	signal, status := openAISignalStatus()
	_, err := n.Render(context.Background(), signal, status)
	require.ErrorIs(t, err, core.ErrRenderFailed)
}

func TestOpenAIRender_EmptyChoices(t *testing.T) {
	n := newStubNarrator(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	})

	signal, status := openAISignalStatus()
	_, err := n.Render(context.Background(), signal, status)
	require.ErrorIs(t, err, core.ErrRenderFailed)
}

func TestOpenAIRender_BlankCompletion(t *testing.T) {
	n := newStubNarrator(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"   "}}]}`))
	})

	signal, status := openAISignalStatus()
	_, err := n.Render(context.Background(), signal, status)
	require.ErrorIs(t, err, core.ErrRenderFailed)
}
