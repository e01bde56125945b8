package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"aiverse/internal/client"
)

func newBuyCmd() *cobra.Command {
	return newOrderCmd("buy", "Place a buy order")
}

func newSellCmd() *cobra.Command {
	return newOrderCmd("sell", "Place a sell order")
}

// newOrderCmd builds the buy and sell commands; they differ only in side.
// Two args make a market order, a third is the limit price.
func newOrderCmd(side, short string) *cobra.Command {
	var agentID string
	cmd := &cobra.Command{
		Use:   side + " [ticker] [quantity] [price]",
		Short: short,
		Long: fmt.Sprintf(`%s places an order for the acting agent. With a price the order
rests on the book as a limit; without one it executes at market.

Examples:
  aiverse %s NOVA 100 12.5 --agent alice
  aiverse %s NOVA 100 --agent alice`, short, side, side),
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if agentID == "" {
				return fmt.Errorf("--agent is required (or set AIVERSE_AGENT)")
			}

			quantity, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity: %v", err)
			}

			orderType := "market"
			price := decimal.Zero
			if len(args) == 3 {
				orderType = "limit"
				price, err = decimal.NewFromString(args[2])
				if err != nil {
					return fmt.Errorf("invalid price: %v", err)
				}
			}

			res, err := apiClient().SubmitOrder(cmd.Context(), client.OrderRequest{
				AgentID:   agentID,
				Ticker:    args[0],
				Side:      side,
				OrderType: orderType,
				Quantity:  quantity,
				Price:     price,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case res.FilledQuantity.IsPositive():
				fmt.Fprintf(out, "Order %s %s: filled %s @ %s₳\n",
					res.OrderID, res.Status, res.FilledQuantity, res.FilledPrice)
			default:
				fmt.Fprintf(out, "Order %s %s\n", res.OrderID, res.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", os.Getenv("AIVERSE_AGENT"), "acting agent id (env AIVERSE_AGENT)")
	return cmd
}
