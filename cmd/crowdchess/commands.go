package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"crowd-chess/board"
	"crowd-chess/engine"
	"crowd-chess/ledger"
	"crowd-chess/oracle"
)

func parseRegion(s string) (board.Region, error) {
	sp, err := board.ParseSpace(s)
	if err != nil {
		return board.Region{}, fmt.Errorf("region: %w", err)
	}
	return board.Region{NX: sp.X, NY: sp.Y}, nil
}

// parsePlayer reads "pk:<hex>", "quorum" or "quorum:<min>".
func parsePlayer(s string) (board.Player, error) {
	kind, arg, _ := strings.Cut(s, ":")
	switch kind {
	case "pk":
		key, err := board.ParseIdentity(arg)
		if err != nil {
			return board.Player{}, err
		}
		return board.Player{Mode: board.ModePubkey, Key: key}, nil
	case "quorum":
		least := uint64(1)
		if arg != "" {
			var err error
			if least, err = strconv.ParseUint(arg, 10, 16); err != nil {
				return board.Player{}, fmt.Errorf("quorum minimum %q: %w", arg, err)
			}
		}
		return board.Player{Mode: board.ModeQuorum, MinRegistrants: uint16(least)}, nil
	}
	return board.Player{}, fmt.Errorf("player %q: want pk:<hex> or quorum[:min]", s)
}

func success(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprint(cmd.OutOrStdout(), pterm.Success.Sprintfln(format, args...))
}

func (a *app) initCmd() *cobra.Command {
	var region string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the inactive board for a region, owned by the caller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := parseRegion(region)
			if err != nil {
				return err
			}
			if err := a.svc.InitBoard(cmd.Context(), a.caller, r); err != nil {
				return err
			}
			success(cmd, "board %s initialized", r)
			return nil
		},
	}
	cmd.Flags().StringVar(&region, "region", "0,0", "Board region nx,ny")
	return cmd
}

func (a *app) startCmd() *cobra.Command {
	var (
		region, white, black string
		regInterval, moveInt uint64
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a new game on a board (owner only)",
		Long: `Start a new game. Each side is either a single key or a quorum:

  --white pk:<hex>     one identity moves for white immediately
  --white quorum:3     registered spaces vote; at least 3 must register

Any earlier registrations and votes on the board are discarded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := parseRegion(region)
			if err != nil {
				return err
			}
			p := engine.StartParams{
				RegisterInterval: a.cfg.Game.RegisterInterval,
				MoveInterval:     a.cfg.Game.MoveInterval,
			}
			if p.White, err = parsePlayer(white); err != nil {
				return fmt.Errorf("--white: %w", err)
			}
			if p.Black, err = parsePlayer(black); err != nil {
				return fmt.Errorf("--black: %w", err)
			}
			if cmd.Flags().Changed("register-interval") {
				p.RegisterInterval = regInterval
			}
			if cmd.Flags().Changed("move-interval") {
				p.MoveInterval = moveInt
			}
			if err := a.svc.StartGame(cmd.Context(), a.caller, r, p); err != nil {
				return err
			}
			success(cmd, "game started on %s", r)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&region, "region", "0,0", "Board region nx,ny")
	f.StringVar(&white, "white", "quorum", "White player: pk:<hex> or quorum[:min]")
	f.StringVar(&black, "black", "quorum", "Black player: pk:<hex> or quorum[:min]")
	f.Uint64Var(&regInterval, "register-interval", 0, "Registration window in seconds (default from config)")
	f.Uint64Var(&moveInt, "move-interval", 0, "Move window in seconds (default from config)")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register X,Y white|black",
		Short: "Register a space the caller controls for one side",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := board.ParseSpace(args[0])
			if err != nil {
				return err
			}
			side, err := ledger.ParseSide(args[1])
			if err != nil {
				return err
			}
			if err := a.svc.Register(cmd.Context(), a.caller, s, side); err != nil {
				return err
			}
			success(cmd, "space %d,%d registered for %s", s.X, s.Y, side)
			return nil
		},
	}
}

func (a *app) voteCmd() *cobra.Command {
	var ply string
	cmd := &cobra.Command{
		Use:   "vote X,Y [MOVE|resign]",
		Short: "Vote a move for the board covering a space",
		Long: `Vote a move in long algebraic form (e2e4, e7e8q) or "resign".

--ply defaults to the board's current ply. Pass --ply update with no move to
settle registration and deadline transitions without voting.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := board.ParseSpace(args[0])
			if err != nil {
				return err
			}
			var m oracle.Move
			var n uint16
			switch ply {
			case "update":
				n = engine.PlyUpdateOnly
			case "":
				b, err := a.svc.Snapshot(cmd.Context(), a.svc.Layout().RegionOf(s))
				if err != nil {
					return err
				}
				n = uint16(b.Position.Ply())
			default:
				v, err := strconv.ParseUint(ply, 10, 16)
				if err != nil {
					return fmt.Errorf("--ply %q: %w", ply, err)
				}
				n = uint16(v)
			}
			if n != engine.PlyUpdateOnly {
				if len(args) < 2 {
					return errors.New("a move is required unless --ply update")
				}
				if m, err = oracle.ParseMove(args[1]); err != nil {
					return err
				}
			}
			out, err := a.svc.Vote(cmd.Context(), a.caller, s, n, m)
			if err != nil {
				return err
			}
			success(cmd, "vote %s", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&ply, "ply", "", `Ply the vote is for, or "update"`)
	return cmd
}
