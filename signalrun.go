// Package signalrun wires the Telegram signal suite together: signal store,
// price source, tracking dispatcher, narrative generation and the Telegram
// surface.
package signalrun

import (
	"context"
	"fmt"
	"sync"
	"time"

	str2duration "github.com/xhit/go-str2duration/v2"

	"github.com/raykavin/signalrun/pkg/account"
	"github.com/raykavin/signalrun/pkg/core"
	"github.com/raykavin/signalrun/pkg/exchange"
	"github.com/raykavin/signalrun/pkg/generator"
	"github.com/raykavin/signalrun/pkg/giveaway"
	"github.com/raykavin/signalrun/pkg/logger"
	"github.com/raykavin/signalrun/pkg/logger/zerolog"
	"github.com/raykavin/signalrun/pkg/narrative"
	"github.com/raykavin/signalrun/pkg/notification"
	"github.com/raykavin/signalrun/pkg/storage"
	"github.com/raykavin/signalrun/pkg/tracker"
)

const defaultStoreFile = "signalrun.json"

// Suite is the assembled application.
type Suite struct {
	settings core.Settings
	log      logger.Logger

	storage    core.SignalStorage
	prices     core.PriceSource
	feeder     core.CandleFeeder
	narrator   core.Narrator
	notifier   core.Notifier
	telegram   core.NotifierWithStart
	dispatcher *tracker.Dispatcher
	generator  *generator.Generator
	scanEvery  time.Duration
	accounts   *account.Service
	giveaway   *giveaway.Service
}

// Option customizes suite construction.
type Option func(*Suite)

// WithStorage overrides the signal store.
func WithStorage(s core.SignalStorage) Option {
	return func(suite *Suite) { suite.storage = s }
}

// WithPriceSource overrides the price source.
func WithPriceSource(p core.PriceSource) Option {
	return func(suite *Suite) { suite.prices = p }
}

// WithCandleFeeder overrides the candle source used for signal generation.
func WithCandleFeeder(f core.CandleFeeder) Option {
	return func(suite *Suite) { suite.feeder = f }
}

// WithNarrator overrides the narrative generator.
func WithNarrator(n core.Narrator) Option {
	return func(suite *Suite) { suite.narrator = n }
}

// WithNotifier overrides the notification sink.
func WithNotifier(n core.Notifier) Option {
	return func(suite *Suite) { suite.notifier = n }
}

// WithLogger overrides the logger.
func WithLogger(log logger.Logger) Option {
	return func(suite *Suite) { suite.log = log }
}

// NewSuite builds the suite from settings, applying defaults for every
// component that was not overridden by an option.
func NewSuite(settings core.Settings, options ...Option) (*Suite, error) {
	suite := &Suite{settings: settings}

	for _, option := range options {
		option(suite)
	}

	if err := suite.initLogger(); err != nil {
		return nil, err
	}
	if err := suite.initStorage(); err != nil {
		return nil, err
	}
	suite.initPriceSource()
	suite.initGenerator()
	suite.initNarrator()
	if err := suite.initServices(); err != nil {
		return nil, err
	}
	if err := suite.initTelegram(); err != nil {
		return nil, err
	}

	if suite.notifier == nil {
		suite.notifier = noopNotifier{log: suite.log}
	}

	suite.dispatcher = tracker.NewDispatcher(
		settings.Tracker,
		suite.storage,
		suite.prices,
		suite.narrator,
		suite.notifier,
		suite.log,
	)

	return suite, nil
}

func (s *Suite) initLogger() error {
	if s.log != nil {
		return nil
	}
	log, err := zerolog.New("info", "2006-01-02 15:04:05", true, false)
	if err != nil {
		return err
	}
	s.log = log
	return nil
}

func (s *Suite) initStorage() error {
	if s.storage != nil {
		return nil
	}

	store, err := OpenStorage(s.settings.Storage)
	if err != nil {
		return err
	}
	s.storage = store
	return nil
}

// OpenStorage opens the signal store described by the settings. It is also
// used by CLI subcommands that need the store without the full suite.
func OpenStorage(settings core.StorageSettings) (core.SignalStorage, error) {
	switch settings.Backend {
	case "", "file":
		path := settings.Path
		if path == "" {
			path = defaultStoreFile
		}
		return storage.FromJSON(path)
	case "buntdb":
		return storage.FromFile(settings.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", settings.Backend)
	}
}

func (s *Suite) initPriceSource() {
	if s.prices == nil {
		s.prices = exchange.NewBinance(s.settings.Binance, s.log)
	}
}

// initGenerator builds the signal scanner when symbols are configured. The
// candle feeder defaults to the price source when it can serve candles.
func (s *Suite) initGenerator() {
	if len(s.settings.Symbols) == 0 {
		return
	}

	if s.feeder == nil {
		if f, ok := s.prices.(core.CandleFeeder); ok {
			s.feeder = f
		} else {
			s.feeder = exchange.NewBinance(s.settings.Binance, s.log)
		}
	}

	cfg := generator.DefaultConfig()
	s.generator = generator.New(s.feeder, cfg, s.log)

	// One scan per candle period keeps the generator aligned with closed bars.
	s.scanEvery = time.Hour
	if d, err := str2duration.ParseDuration(cfg.Period); err == nil {
		s.scanEvery = d
	}
}

func (s *Suite) initNarrator() {
	if s.narrator != nil {
		return
	}
	if s.settings.OpenAI.APIKey != "" {
		s.narrator = narrative.NewOpenAI(s.settings.OpenAI)
		return
	}
	s.narrator = narrative.NewTemplate()
}

func (s *Suite) initServices() error {
	var err error
	if s.settings.MySQL.Enabled {
		s.accounts, err = account.NewService(s.settings.MySQL.DSN, s.log)
		if err != nil {
			return err
		}
	}
	if s.settings.Giveaway.Enabled {
		s.giveaway, err = giveaway.NewService(s.settings.Giveaway.DataDir, s.log)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Suite) initTelegram() error {
	if !s.settings.Telegram.IsEnabled() {
		return nil
	}

	var opts []notification.Option
	if s.accounts != nil {
		opts = append(opts, notification.WithAccountService(s.accounts))
	}
	if s.giveaway != nil {
		opts = append(opts, notification.WithGiveawayService(s.giveaway))
	}

	telegram, err := notification.NewTelegram(s.settings.Telegram, s.storage, s.log, opts...)
	if err != nil {
		return err
	}
	s.telegram = telegram
	s.notifier = telegram
	return nil
}

// Storage exposes the signal store for CLI subcommands.
func (s *Suite) Storage() core.SignalStorage { return s.storage }

// Dispatcher exposes the tracking loop.
func (s *Suite) Dispatcher() *tracker.Dispatcher { return s.dispatcher }

// Run starts the Telegram surface, the signal scanner and the tracking loop,
// then blocks until the context is canceled. The in-flight tick finishes
// before Run returns.
func (s *Suite) Run(ctx context.Context) error {
	if s.telegram != nil {
		s.telegram.Start()
	}

	var scanWG sync.WaitGroup
	if s.generator != nil {
		scanWG.Add(1)
		go func() {
			defer scanWG.Done()
			s.runScanner(ctx)
		}()
	}

	s.dispatcher.Start(ctx)
	s.log.Info("signalrun suite started")

	<-ctx.Done()

	scanWG.Wait()
	s.dispatcher.Stop()
	if err := s.storage.Close(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	if s.accounts != nil {
		if err := s.accounts.Close(); err != nil {
			s.log.WithError(err).Warn("failed to close accounts database")
		}
	}

	s.log.Info("signalrun suite stopped")
	return nil
}

// runScanner scans the configured symbols once at startup, then once per
// candle period, publishing whatever the generator finds.
func (s *Suite) runScanner(ctx context.Context) {
	ticker := time.NewTicker(s.scanEvery)
	defer ticker.Stop()

	s.scanOnce(ctx)
	for {
		select {
		case <-ticker.C:
			s.scanOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Suite) scanOnce(ctx context.Context) {
	s.publish(s.generator.Scan(ctx, s.settings.Symbols))
}

// publish stores generated signals and announces them. A signal the store
// rejects is logged and skipped, never announced.
func (s *Suite) publish(signals []*core.Signal) {
	for _, signal := range signals {
		id, err := s.storage.Add(signal)
		if err != nil {
			s.log.WithError(err).Errorf("failed to store generated signal %s", signal)
			continue
		}
		s.log.Infof("generated signal stored: %s", id)
		s.notifier.OnSignal(signal)
	}
}

// noopNotifier drops messages, used when no Telegram surface is configured.
type noopNotifier struct {
	log logger.Logger
}

func (n noopNotifier) Notify(text string)           { n.log.Debugf("notification dropped: %s", text) }
func (n noopNotifier) OnSignal(signal *core.Signal) {}
func (n noopNotifier) OnError(err error)            { n.log.WithError(err).Error("notifier error") }
