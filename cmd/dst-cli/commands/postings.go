package commands

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"dstclient/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(postingsCmd)
}

var postingsCmd = &cobra.Command{
	Use:   "postings <ticker-id> <thread-id>",
	Short: "Lists every posting in one ticker thread.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		tickerID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			serviceutil.Fatal("invalid ticker id", err)
		}
		threadID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			serviceutil.Fatal("invalid thread id", err)
		}

		client := createClient(cmd.Context())
		postings, err := client.ThreadPostings(cmd.Context(), tickerID, threadID)
		if err != nil {
			serviceutil.Fatal("failed to fetch thread postings", err)
		}
		slog.Info("fetched thread postings", "count", len(postings))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Posting", "Parent", "Published", "User", "Message", "+", "-"})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Name: "Message", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		})

		for _, p := range postings {
			t.AppendRow(table.Row{
				p.ID,
				formatOptional(p.ParentID),
				p.Published.Format(time.RFC3339),
				p.User.Name,
				formatOptional(p.Message),
				p.Upvotes,
				p.Downvotes,
			})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
