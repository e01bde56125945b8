package main

import (
	"fmt"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func newMarketCmd() *cobra.Command {
	var trades int
	cmd := &cobra.Command{
		Use:   "market [ticker]",
		Short: "Show the quote and recent trades for a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			md, err := apiClient().Market(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "$%s\n", md.Ticker)
			fmt.Fprintf(out, "Last:    %s₳ (%s%% 24h)\n", md.LastPrice, signed(md.Change24h))
			fmt.Fprintf(out, "Bid/Ask: %s / %s\n", orDash(md.Bid), orDash(md.Ask))
			fmt.Fprintf(out, "Range:   %s .. %s\n", md.Low24h, md.High24h)
			fmt.Fprintf(out, "Volume:  %s₳\n", md.Volume24h.StringFixed(2))
			fmt.Fprintf(out, "Cap:     %s₳\n", md.MarketCap.StringFixed(2))

			if trades <= 0 {
				return nil
			}
			rows, err := apiClient().Trades(ctx, md.Ticker, trades)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return nil
			}
			fmt.Fprintln(out, "\nRecent trades:")
			table := tablewriter.NewWriter(out)
			table.Header("Time", "Quantity", "Price", "Buyer", "Seller")
			for _, tr := range rows {
				table.Append(
					tr.Timestamp.Local().Format("15:04:05"),
					tr.Quantity.String(),
					tr.Price.String()+"₳",
					tr.Buyer,
					tr.Seller,
				)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&trades, "trades", 5, "recent trades to list (0 to hide)")
	return cmd
}

func newCompaniesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "companies",
		Short: "List every company on the exchange",
		RunE: func(cmd *cobra.Command, args []string) error {
			companies, err := apiClient().Companies(cmd.Context())
			if err != nil {
				return err
			}
			sort.Slice(companies, func(i, j int) bool { return companies[i].Ticker < companies[j].Ticker })

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("Ticker", "Name", "Status", "Price", "Market Cap", "Service", "Cost", "Calls")
			for _, c := range companies {
				table.Append(
					"$"+c.Ticker,
					c.Name,
					string(c.Status),
					c.SharePrice.StringFixed(2),
					c.MarketCap.StringFixed(2),
					c.ServiceType,
					c.ServiceCost.String(),
					fmt.Sprintf("%d", c.TotalAPICalls),
				)
			}
			table.Render()
			return nil
		},
	}
}

// signed renders a change percentage with an explicit plus on gains.
func signed(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}

// orDash hides an empty side of the book.
func orDash(d decimal.Decimal) string {
	if d.IsZero() {
		return "-"
	}
	return d.String() + "₳"
}
