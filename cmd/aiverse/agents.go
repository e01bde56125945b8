package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"aiverse/internal/client"
)

func newJoinCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "join [agent-id]",
		Short: "Join the world as a new agent",
		Long: `Join registers an agent and prints its starting state. Joining twice
with the same id is harmless; the existing agent comes back.

Examples:
  aiverse join alice
  aiverse join alice --name "Alice the Trader"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent, err := apiClient().Join(cmd.Context(), args[0], name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome to AIVERSE, %s!\n\n", agent.Name)
			printAgent(cmd.OutOrStdout(), agent)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the agent id)")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [agent-id]",
		Short: "Show an agent's state, or the world's when no agent is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				agent, err := apiClient().Agent(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printAgent(out, agent)
				return nil
			}

			state, err := apiClient().State(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Tick:      %d (up %.1fh)\n", state.Tick, state.UptimeHours)
			fmt.Fprintf(out, "Agents:    %d\n", state.TotalAgents)
			fmt.Fprintf(out, "Companies: %d\n", state.TotalCompanies)
			fmt.Fprintf(out, "Trades:    %d\n", state.TotalTrades)
			if len(state.Leaderboard) > 0 {
				fmt.Fprintln(out, "\nTop agents:")
				for i, e := range state.Leaderboard {
					fmt.Fprintf(out, "  %d. %-24s %s₳\n", i+1, e.Name, e.NetWorth.StringFixed(2))
				}
			}
			return nil
		},
	}
}

func newLeaderboardCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the net-worth ranking",
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := apiClient().Leaderboard(cmd.Context(), limit)
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("Rank", "Name", "Agent", "Net Worth", "Trades")
			for _, r := range board {
				table.Append(
					fmt.Sprintf("%d", r.Rank),
					r.Name,
					r.AgentID,
					r.NetWorth.StringFixed(2)+"₳",
					fmt.Sprintf("%d", r.Trades),
				)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "number of rows")
	return cmd
}

func printAgent(w io.Writer, a *client.Agent) {
	fmt.Fprintf(w, "Agent:      %s (%s)\n", a.Name, a.ID)
	fmt.Fprintf(w, "Balance:    %s₳ (reserved %s₳)\n", a.Balance.StringFixed(2), a.Reserved.StringFixed(2))
	fmt.Fprintf(w, "Reputation: %s\n", a.Reputation)
	fmt.Fprintf(w, "Trades:     %d\n", a.TotalTrades)

	if len(a.Portfolio) == 0 {
		return
	}
	tickers := make([]string, 0, len(a.Portfolio))
	for t := range a.Portfolio {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	fmt.Fprintln(w, "\nPortfolio:")
	table := tablewriter.NewWriter(w)
	table.Header("Ticker", "Shares")
	for _, t := range tickers {
		table.Append(t, a.Portfolio[t].String())
	}
	table.Render()
}
