package signalrun

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/raykavin/signalrun/pkg/core"
	"github.com/raykavin/signalrun/pkg/exchange"
	"github.com/raykavin/signalrun/pkg/narrative"
	"github.com/raykavin/signalrun/pkg/storage"
)

// flatFeeder serves trendless candles, which never produce a signal.
type flatFeeder struct{}

func (flatFeeder) CandlesByLimit(_ context.Context, symbol, _ string, limit int) ([]core.Candle, error) {
	candles := make([]core.Candle, limit)
	start := time.Now().Add(-time.Duration(limit) * time.Hour)
	for i := range candles {
		candles[i] = core.Candle{
			Symbol:   symbol,
			Time:     start.Add(time.Duration(i) * time.Hour),
			Open:     100,
			High:     100.5,
			Low:      99.5,
			Close:    100,
			Volume:   1000,
			Complete: true,
		}
	}
	return candles, nil
}

// recordingNotifier captures announced signals.
type recordingNotifier struct {
	mu      sync.Mutex
	signals []*core.Signal
}

func (r *recordingNotifier) Notify(string) {}

func (r *recordingNotifier) OnSignal(signal *core.Signal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, signal)
}

func (r *recordingNotifier) OnError(error) {}

func (r *recordingNotifier) announced() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.signals)
}

func testSuiteSettings(t *testing.T) core.Settings {
	t.Helper()
	return core.Settings{
		Tracker: core.DefaultTrackerSettings(),
		Storage: core.StorageSettings{
			Backend: "file",
			Path:    filepath.Join(t.TempDir(), "signals.json"),
		},
	}
}

func TestNewSuite_OptionsOverrideDefaults(t *testing.T) {
	store, err := storage.FromMemory()
	require.NoError(t, err)
	prices := exchange.NewStatic(nil)

	suite, err := NewSuite(testSuiteSettings(t),
		WithStorage(store),
		WithPriceSource(prices),
		WithNarrator(narrative.NewTemplate()),
	)
	require.NoError(t, err)
	require.Same(t, store, suite.Storage())
	require.NotNil(t, suite.Dispatcher())
}

func TestNewSuite_GeneratorWiredWhenSymbolsConfigured(t *testing.T) {
	settings := testSuiteSettings(t)
	settings.Symbols = []string{"BTCUSDT"}

	store, err := storage.FromMemory()
	require.NoError(t, err)

	suite, err := NewSuite(settings,
		WithStorage(store),
		WithPriceSource(exchange.NewStatic(nil)),
		WithCandleFeeder(flatFeeder{}),
		WithNarrator(narrative.NewTemplate()),
	)
	require.NoError(t, err)
	require.NotNil(t, suite.generator, "configured symbols must enable the scanner")
	require.Equal(t, time.Hour, suite.scanEvery, "scan cadence follows the candle period")

	// A trendless market produces no signals.
	suite.scanOnce(context.Background())
	signals, err := store.Signals()
	require.NoError(t, err)
	require.Empty(t, signals)
}

func TestNewSuite_NoGeneratorWithoutSymbols(t *testing.T) {
	store, err := storage.FromMemory()
	require.NoError(t, err)

	suite, err := NewSuite(testSuiteSettings(t),
		WithStorage(store),
		WithPriceSource(exchange.NewStatic(nil)),
		WithNarrator(narrative.NewTemplate()),
	)
	require.NoError(t, err)
	require.Nil(t, suite.generator)
}

func TestPublish_StoresAndAnnounces(t *testing.T) {
	store, err := storage.FromMemory()
	require.NoError(t, err)

	sink := &recordingNotifier{}
	suite, err := NewSuite(testSuiteSettings(t),
		WithStorage(store),
		WithPriceSource(exchange.NewStatic(nil)),
		WithNarrator(narrative.NewTemplate()),
		WithNotifier(sink),
	)
	require.NoError(t, err)

	valid := &core.Signal{
		Symbol:      "BTCUSDT",
		Direction:   core.DirectionBuy,
		EntryPrice:  100,
		StopLoss:    97,
		TakeProfits: []float64{102, 104},
	}
	invalid := &core.Signal{Symbol: "ETHUSDT"} // fails validation

	suite.publish([]*core.Signal{valid, invalid})

	signals, err := store.Signals()
	require.NoError(t, err)
	require.Len(t, signals, 1)
	require.Equal(t, "BTCUSDT", signals[0].Symbol)
	require.Equal(t, 1, sink.announced(), "only stored signals are announced")
}

func TestOpenStorage_UnknownBackend(t *testing.T) {
	_, err := OpenStorage(core.StorageSettings{Backend: "redis"})
	require.Error(t, err)
}

func TestOpenStorage_FileDefault(t *testing.T) {
	store, err := OpenStorage(core.StorageSettings{
		Backend: "file",
		Path:    filepath.Join(t.TempDir(), "signals.json"),
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	store, err := storage.FromMemory()
	require.NoError(t, err)

	suite, err := NewSuite(testSuiteSettings(t),
		WithStorage(store),
		WithPriceSource(exchange.NewStatic(nil)),
		WithNarrator(narrative.NewTemplate()),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- suite.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("suite did not stop after context cancellation")
	}
}
