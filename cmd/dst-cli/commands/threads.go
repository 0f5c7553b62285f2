package commands

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"dstclient/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(threadsCmd)
}

var threadsCmd = &cobra.Command{
	Use:   "threads <ticker-id>",
	Short: "Lists the discussion threads of a live ticker.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tickerID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			serviceutil.Fatal("invalid ticker id", err)
		}

		client := createClient(cmd.Context())
		threads, err := client.TickerThreads(cmd.Context(), tickerID)
		if err != nil {
			serviceutil.Fatal("failed to fetch ticker threads", err)
		}
		slog.Info("fetched ticker threads", "count", len(threads))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Thread", "Published", "User", "Title", "+", "-"})

		for _, th := range threads {
			t.AppendRow(table.Row{
				th.ID,
				th.Published.Format(time.RFC3339),
				th.User.Name,
				formatOptional(th.Title),
				th.Upvotes,
				th.Downvotes,
			})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
