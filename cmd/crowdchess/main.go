// Command crowdchess drives crowd-voted chess boards stored in a local
// Badger database.
//
//	crowdchess --caller <hex> init --region 0,0
//	crowdchess --caller <hex> start --region 0,0 --white quorum:3 --black pk:<hex>
//	crowdchess --caller <hex> --space 1,2 register 1,2 white
//	crowdchess --caller <hex> --space 1,2 vote 1,2 e2e4
//	crowdchess show --region 0,0
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"crowd-chess/board"
	"crowd-chess/config"
	"crowd-chess/engine"
	"crowd-chess/host"
	"crowd-chess/store"
)

// app carries flag values and the service opened for one invocation.
type app struct {
	configPath string
	callerHex  string
	spaceArgs  []string
	now        uint64

	cfg    config.Config
	logger *slog.Logger
	store  store.Store
	svc    *host.Service
	caller board.Identity
	owned  map[board.Space]bool
}

func main() {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		pterm.DisableStyling()
	}
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	a := &app{}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.Execute()
	if a.store != nil {
		if cerr := a.store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "crowdchess",
		Short: "Run crowd-voted chess games on partitioned boards",
		Long: `crowdchess manages one chess game per board partition. Each side is
played either by a single key or by the quorum of spaces registered to it,
whose votes are tallied when the move deadline passes.

Space ownership is supplied with repeated --space flags: the caller is
treated as controlling exactly those spaces.`,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.open(cmd) },
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "crowdchess.yaml", "Path to the YAML config, created with defaults if missing")
	pf.StringVar(&a.callerHex, "caller", "", "Caller identity as 64 hex characters")
	pf.StringArrayVar(&a.spaceArgs, "space", nil, "Space x,y the caller controls (repeatable)")
	pf.Uint64Var(&a.now, "now", 0, "Override the clock with this unix time")
	_ = pf.MarkHidden("now")

	root.AddCommand(
		a.initCmd(),
		a.startCmd(),
		a.registerCmd(),
		a.voteCmd(),
		a.showCmd(),
		a.movesCmd(),
	)
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.Logger(cmd.ErrOrStderr())

	if a.callerHex != "" {
		if a.caller, err = board.ParseIdentity(a.callerHex); err != nil {
			return fmt.Errorf("--caller: %w", err)
		}
	}
	a.owned = make(map[board.Space]bool, len(a.spaceArgs))
	for _, s := range a.spaceArgs {
		sp, err := board.ParseSpace(s)
		if err != nil {
			return fmt.Errorf("--space: %w", err)
		}
		a.owned[sp] = true
	}

	st, err := store.OpenBadger(store.BadgerConfig{
		Path:       cfg.Store.Path,
		InMemory:   cfg.Store.InMemory,
		SyncWrites: cfg.Store.SyncWrites,
		Logger:     a.logger.With(slog.String("component", "badger")),
	})
	if err != nil {
		return err
	}
	a.store = st

	a.svc, err = host.New(st, engine.ClockFunc(a.clock), engine.AuthorityFunc(a.controls),
		host.WithLayout(cfg.Layout),
		host.WithLogger(a.logger),
	)
	return err
}

func (a *app) clock() uint64 {
	if a.now != 0 {
		return a.now
	}
	return uint64(time.Now().Unix())
}

func (a *app) controls(caller board.Identity, s board.Space) bool {
	return caller == a.caller && a.owned[s]
}
