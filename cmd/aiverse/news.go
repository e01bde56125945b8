package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"aiverse/internal/client"
)

func newNewsCmd() *cobra.Command {
	var limit int
	var follow bool
	cmd := &cobra.Command{
		Use:   "news",
		Short: "Show the latest world events",
		Long: `News prints the latest events, newest first. With --follow it prints
the history oldest first and then streams new events live until
interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			items, err := apiClient().News(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if !follow {
				for _, it := range items {
					fmt.Fprintln(out, eventLine(it.Timestamp, it.Type, it.Ticker, it.Message))
				}
				return nil
			}

			// Chronological reads better when tailing
			for i := len(items) - 1; i >= 0; i-- {
				it := items[i]
				fmt.Fprintln(out, eventLine(it.Timestamp, it.Type, it.Ticker, it.Message))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			stream := client.NewEventStream(client.WSURL(serverURL), cliLogger())
			go func() { _ = stream.Run(ctx) }()

			for {
				select {
				case <-ctx.Done():
					return nil
				case ev := <-stream.Events():
					fmt.Fprintln(out, eventLine(ev.Timestamp, ev.EventType, ev.Ticker, ev.Message))
				}
			}
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "events to fetch")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "stream new events as they happen")
	return cmd
}

func eventLine(ts time.Time, typ, ticker, msg string) string {
	label := typ
	if ticker != "" {
		label = typ + "/" + ticker
	}
	return fmt.Sprintf("%s  %-20s %s", ts.Local().Format("15:04:05"), label, msg)
}
