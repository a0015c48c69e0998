package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	signalrun "github.com/raykavin/signalrun"
	"github.com/raykavin/signalrun/internal/config"
	"github.com/raykavin/signalrun/pkg/core"
)

// Command line flags
var (
	configPath string

	// add command flags
	symbol    string
	direction string
	entry     float64
	stop      float64
	targets   []float64
)

func main() {
	// .env is optional, ignore a missing file
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:     "signalrun",
		Short:   "Telegram trading-signal suite",
		Version: "1.0.0",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(buildRunCmd())
	rootCmd.AddCommand(buildAddCmd())
	rootCmd.AddCommand(buildListCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the signal tracking suite",
		RunE:  runSuite,
	}
}

func runSuite(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	suite, err := signalrun.NewSuite(*settings)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return suite.Run(ctx)
}

func buildAddCmd() *cobra.Command {
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new signal",
		RunE:  runAdd,
	}

	addCmd.Flags().StringVarP(&symbol, "symbol", "s", "", "Instrument symbol (e.g. EURUSD)")
	addCmd.Flags().StringVarP(&direction, "direction", "d", "", "BUY or SELL")
	addCmd.Flags().Float64VarP(&entry, "entry", "e", 0, "Entry price")
	addCmd.Flags().Float64VarP(&stop, "stop", "l", 0, "Stop-loss price")
	addCmd.Flags().Float64SliceVarP(&targets, "targets", "t", nil, "Take-profit levels (1 to 3)")

	addCmd.MarkFlagRequired("symbol")
	addCmd.MarkFlagRequired("direction")
	addCmd.MarkFlagRequired("entry")
	addCmd.MarkFlagRequired("stop")
	addCmd.MarkFlagRequired("targets")

	return addCmd
}

func runAdd(_ *cobra.Command, _ []string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := signalrun.OpenStorage(settings.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	dir, err := core.ParseDirection(direction)
	if err != nil {
		return err
	}

	id, err := store.Add(&core.Signal{
		Symbol:      strings.ToUpper(symbol),
		Direction:   dir,
		EntryPrice:  entry,
		StopLoss:    stop,
		TakeProfits: targets,
	})
	if err != nil {
		return err
	}

	fmt.Printf("signal registered: %s\n", id)
	return nil
}

func buildListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active signals",
		RunE:  runList,
	}
}

func runList(_ *cobra.Command, _ []string) error {
	settings, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := signalrun.OpenStorage(settings.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	signals, err := store.Signals()
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Symbol", "Direction", "Entry", "Stop", "Targets", "Created"})
	for _, s := range signals {
		var tps []string
		for _, tp := range s.TakeProfits {
			tps = append(tps, strconv.FormatFloat(tp, 'f', -1, 64))
		}
		table.Append([]string{
			s.ID,
			s.Symbol,
			string(s.Direction),
			strconv.FormatFloat(s.EntryPrice, 'f', -1, 64),
			strconv.FormatFloat(s.StopLoss, 'f', -1, 64),
			strings.Join(tps, ", "),
			s.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	table.Render()
	return nil
}
