package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"crowd-chess/board"
	"crowd-chess/oracle"
)

func (a *app) showCmd() *cobra.Command {
	var region string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a board's state and current tally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := parseRegion(region)
			if err != nil {
				return err
			}
			b, err := a.svc.Snapshot(cmd.Context(), r)
			if err != nil {
				return err
			}
			out, err := renderBoard(b)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&region, "region", "0,0", "Board region nx,ny")
	return cmd
}

func (a *app) movesCmd() *cobra.Command {
	var region string
	cmd := &cobra.Command{
		Use:   "moves",
		Short: "List the legal moves for the side to move",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := parseRegion(region)
			if err != nil {
				return err
			}
			b, err := a.svc.Snapshot(cmd.Context(), r)
			if err != nil {
				return err
			}
			ev := oracle.Evaluate(&b.Position)
			names := make([]string, len(ev.Moves))
			for i, m := range ev.Moves {
				names[i] = m.String()
			}
			sort.Strings(names)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s to move, %d legal moves", b.Position.SideToMove(), len(names))
			if ev.KingAttacked {
				fmt.Fprint(w, " (in check)")
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, strings.Join(names, " "))
			return nil
		},
	}
	cmd.Flags().StringVar(&region, "region", "0,0", "Board region nx,ny")
	return cmd
}

func playerString(p board.Player, registered uint32) string {
	if p.Mode == board.ModePubkey {
		return "pk " + p.Key.String()[:16] + "…"
	}
	return fmt.Sprintf("quorum %d/%d", registered, p.MinRegistrants)
}

// diagram draws the position from White's side, rank 8 first.
func diagram(p *oracle.Position) string {
	placement, _, _ := strings.Cut(p.FEN(), " ")
	var sb strings.Builder
	for i, row := range strings.Split(placement, "/") {
		sb.WriteString(strconv.Itoa(8 - i))
		for _, c := range row {
			if c >= '1' && c <= '8' {
				sb.WriteString(strings.Repeat(" .", int(c-'0')))
				continue
			}
			sb.WriteByte(' ')
			sb.WriteRune(c)
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h\n")
	return sb.String()
}

func renderBoard(b *board.Board) (string, error) {
	summary := pterm.TableData{
		{"Field", "Value"},
		{"Region", b.Region.String()},
		{"Owner", b.Owner.String()},
		{"Phase", b.Phase.String()},
		{"Result", b.Result.String()},
		{"Generation", strconv.Itoa(int(b.Generation()))},
		{"White", playerString(b.White, b.Registered(oracle.White))},
		{"Black", playerString(b.Black, b.Registered(oracle.Black))},
		{"Register deadline", strconv.FormatUint(b.RegisterDeadline, 10)},
		{"Move deadline", strconv.FormatUint(b.MoveDeadline, 10)},
		{"Ply", strconv.Itoa(b.Position.Ply())},
		{"FEN", b.Position.FEN()},
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(summary).Srender()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(table)
	sb.WriteString("\n\n")
	sb.WriteString(diagram(&b.Position))

	if regs := registrations(b); len(regs) > 1 {
		table, err := pterm.DefaultTable.WithHasHeader().WithData(regs).Srender()
		if err != nil {
			return "", err
		}
		sb.WriteString("\n")
		sb.WriteString(table)
		sb.WriteString("\n")
	}

	entries := b.Tally.Entries()
	if len(entries) == 0 {
		return sb.String(), nil
	}
	votes := pterm.TableData{{"Move", "Votes"}}
	for _, e := range entries {
		votes = append(votes, []string{e.Move.String(), strconv.FormatUint(uint64(e.Count), 10)})
	}
	tally, err := pterm.DefaultTable.WithHasHeader().WithData(votes).Srender()
	if err != nil {
		return "", err
	}
	sb.WriteString("\n")
	sb.WriteString(tally)
	sb.WriteString("\n")
	return sb.String(), nil
}

// registrations lists the live registrations and each space's vote for the
// current ply.
func registrations(b *board.Board) pterm.TableData {
	data := pterm.TableData{{"Space", "Side", "Vote"}}
	ply := uint16(b.Position.Ply())
	for idx := 0; idx < b.Ledger.Spaces(); idx++ {
		side, live := b.Ledger.SideOf(idx)
		if !live {
			continue
		}
		s := b.Layout().SpaceAt(b.Region, idx)
		vote := "-"
		if m, ok := b.Ledger.LiveVote(idx, ply); ok {
			vote = m.String()
		}
		data = append(data, []string{fmt.Sprintf("%d,%d", s.X, s.Y), side.String(), vote})
	}
	return data
}
