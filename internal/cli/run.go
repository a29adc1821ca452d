package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marketlab/stocksim/config"
	"github.com/marketlab/stocksim/feed"
	"github.com/marketlab/stocksim/journal"
	"github.com/marketlab/stocksim/ledger"
	"github.com/marketlab/stocksim/metrics"
	"github.com/marketlab/stocksim/risk"
	"github.com/marketlab/stocksim/sim"
	"github.com/marketlab/stocksim/strategies"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run a scripted simulation from the config's feed steps",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts)
			if err != nil {
				return err
			}
			defer s.close()

			s.start()
			err = feed.Steps(cmd.Context(), s.engine, s.cfg.Feed.Steps, time.Now())
			s.stop()
			if err != nil {
				return fmt.Errorf("replay feed: %w", err)
			}

			s.printSummary(cmd.OutOrStdout())
			return nil
		},
	}
}

func newReplayCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <ticks.csv>",
		Short: "Replay recorded ticks or bars from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(opts)
			if err != nil {
				return err
			}
			defer s.close()

			s.start()
			err = feed.CSV(cmd.Context(), args[0], s.engine)
			s.stop()
			if err != nil {
				return fmt.Errorf("replay %s: %w", args[0], err)
			}

			s.printSummary(cmd.OutOrStdout())
			return nil
		},
	}
}

func newInitCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(out); err == nil {
				return fmt.Errorf("%s already exists", out)
			}
			if err := config.Default().SaveToFile(out); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "stocksim.yaml", "Output path")
	return cmd
}

// session is one fully wired simulation: engine, journal, strategies.
type session struct {
	cfg    *config.Config
	log    *zap.Logger
	jrnl   journal.Journal
	engine *sim.Engine
	hosted []strategies.Strategy
}

func openSession(opts *rootOptions) (*session, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		var err error
		cfg, err = config.LoadFromFile(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
	}

	log, err := buildLogger(opts.LogLevel)
	if err != nil {
		return nil, err
	}

	jrnl, err := buildJournal(cfg.Journal)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	engine := sim.NewEngine(
		ledger.New(),
		risk.Policy{MaxPositionRatio: cfg.Risk.MaxPositionRatio},
		sim.FeeModel{
			CommissionRate: cfg.Fees.CommissionRate,
			MinCommission:  cfg.Fees.MinCommission,
			SlippageRate:   cfg.Fees.SlippageRate,
		},
		jrnl,
		log,
	)
	if err := engine.Connect(); err != nil {
		jrnl.Close()
		return nil, err
	}

	for _, a := range cfg.Accounts {
		if _, err := engine.CreateAccount(a.ID, a.InitialCapital); err != nil {
			jrnl.Close()
			return nil, fmt.Errorf("create account %s: %w", a.ID, err)
		}
	}

	hosted, err := buildStrategies(cfg, engine, log)
	if err != nil {
		jrnl.Close()
		return nil, err
	}
	for _, st := range hosted {
		engine.Subscribe(st)
	}

	return &session{cfg: cfg, log: log, jrnl: jrnl, engine: engine, hosted: hosted}, nil
}

func (s *session) start() {
	for _, st := range s.hosted {
		st.OnStart()
	}
}

func (s *session) stop() {
	for _, st := range s.hosted {
		st.OnStop()
	}
}

func (s *session) close() {
	s.engine.Disconnect()
	if err := s.jrnl.Close(); err != nil {
		s.log.Warn("close journal", zap.Error(err))
	}
	_ = s.log.Sync()
}

func buildJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "csv":
		return journal.NewCSV(jc.FillsFile, jc.EquityFile)
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	default:
		return journal.Nop{}, nil
	}
}

func buildStrategies(cfg *config.Config, engine *sim.Engine, log *zap.Logger) ([]strategies.Strategy, error) {
	var out []strategies.Strategy
	for i, sc := range cfg.Strategies {
		trader := strategies.Trader{AccountID: sc.Account, Broker: engine}
		switch sc.Type {
		case "grid":
			timeout, err := sc.ParseSellTimeout()
			if err != nil {
				return nil, fmt.Errorf("strategy %d: %w", i, err)
			}
			out = append(out, strategies.NewGrid(strategies.GridConfig{
				Symbol:       sc.Symbol,
				Quantity:     sc.Quantity,
				ProfitTarget: sc.ProfitTarget,
				SellTimeout:  timeout,
			}, trader, log))
		case "ma_cross":
			out = append(out, strategies.NewMACross(strategies.MACrossConfig{
				Symbol:     sc.Symbol,
				Quantity:   sc.Quantity,
				FastPeriod: sc.FastPeriod,
				SlowPeriod: sc.SlowPeriod,
			}, trader, log))
		default:
			return nil, fmt.Errorf("strategy %d: unknown type %q", i, sc.Type)
		}
	}
	return out, nil
}

func (s *session) printSummary(w io.Writer) {
	fmt.Fprintln(w, "=== simulation summary ===")
	for _, id := range s.engine.Ledger().AccountIDs() {
		a, err := s.engine.GetAccount(id)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "account %s\n", a.ID)
		fmt.Fprintf(w, "  capital: total=%.2f available=%.2f frozen=%.2f (start %.2f)\n",
			a.TotalCapital, a.AvailableCapital, a.FrozenCapital, a.InitialCapital)
		for _, p := range a.Positions {
			if p.Quantity == 0 && p.RealizedPnL == 0 {
				continue
			}
			fmt.Fprintf(w, "  %s: qty=%.0f avg=%.4f realized=%.2f unrealized=%.2f\n",
				p.Symbol, p.Quantity, p.AvgPrice, p.RealizedPnL, p.UnrealizedPnL)
		}
		fmt.Fprintf(w, "  fills: %d\n", len(a.Fills))
	}
	fmt.Fprintf(w, "orders: submitted=%d filled=%d cancelled=%d rejected=%d\n",
		metrics.OrdersSubmitted(), metrics.OrdersFilled(),
		metrics.OrdersCancelled(), metrics.OrdersRejected())
}
