package commands

import (
	"log/slog"
	"time"

	"dstclient/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(consentCmd)
}

var consentCmd = &cobra.Command{
	Use:   "consent",
	Short: "Accepts the cookie consent dialog and prints the captured cookies.",
	Run: func(cmd *cobra.Command, args []string) {
		client := createClient(cmd.Context())

		t1 := time.Now()
		if err := client.RefreshConsentCookies(cmd.Context()); err != nil {
			serviceutil.Fatal("failed to refresh consent cookies", err)
		}
		slog.Info("accepted consent dialog", "seconds", time.Since(t1).Seconds())

		for name := range client.Cookies() {
			slog.Info("captured cookie", "name", name)
		}
	},
}
