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
	rootCmd.AddCommand(forumCmd)
}

var forumCmd = &cobra.Command{
	Use:   "forum <article-id>",
	Short: "Lists every published posting in an article's forum.",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			cmd.Help()
			os.Exit(1)
		}
		articleID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			serviceutil.Fatal("invalid article id", err)
		}

		client := createClient(cmd.Context())

		info, err := client.ForumInfo(cmd.Context(), articleID)
		if err != nil {
			serviceutil.Fatal("failed to resolve forum", err)
		}
		slog.Info("resolved forum", "forum_id", info.ID, "total_postings", info.TotalPostingCount)

		postings, err := client.ForumPostings(cmd.Context(), articleID)
		if err != nil {
			serviceutil.Fatal("failed to fetch forum postings", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Posting", "Parent", "Published", "User", "Title", "+", "-"})
		t.SetColumnConfigs([]table.ColumnConfig{
			{Name: "Title", WidthMax: 40, WidthMaxEnforcer: text.WrapSoft},
		})

		for _, p := range postings {
			t.AppendRow(table.Row{
				p.ID,
				formatOptional(p.ParentID),
				p.Published.Format(time.RFC3339),
				p.User.Name,
				formatOptional(p.Title),
				p.Upvotes,
				p.Downvotes,
			})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
