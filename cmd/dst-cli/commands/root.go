package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"dstclient/lib/configutil"
	"dstclient/lib/consent"
	"dstclient/lib/platforms/derstandard"
	"dstclient/lib/serviceutil"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dst-cli",
	Short: "dst-cli fetches live-ticker and forum discussions from derstandard.at.",
}

var refreshConsent *bool

func init() {
	refreshConsent = rootCmd.PersistentFlags().Bool(
		"consent", false,
		"Accept the cookie consent dialog with a browser before fetching.",
	)
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type Config struct {
	TickerBaseURL         string `json:"ticker_base_url"`
	ForumBaseURL          string `json:"forum_base_url"`
	StoryBaseURL          string `json:"story_base_url"`
	ConsentURL            string `json:"consent_url"`
	ConsentTimeoutSeconds int    `json:"consent_timeout_seconds"`
}

// createClient builds a client from config.json5, falling back on the
// production defaults when no config exists.
func createClient(ctx context.Context) *derstandard.Client {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to read config", err)
	}
	if cfg.ConsentTimeoutSeconds == 0 {
		// the library waits forever by default, the cli should not
		cfg.ConsentTimeoutSeconds = 120
	}

	client := derstandard.NewClient(derstandard.ClientOptions{
		TickerBaseURL: cfg.TickerBaseURL,
		ForumBaseURL:  cfg.ForumBaseURL,
		StoryBaseURL:  cfg.StoryBaseURL,
		Consent: consent.Browser{
			URL: cfg.ConsentURL,
		},
		ConsentTimeout: time.Duration(cfg.ConsentTimeoutSeconds) * time.Second,
	})

	if *refreshConsent {
		if err := client.RefreshConsentCookies(ctx); err != nil {
			serviceutil.Fatal("failed to refresh consent cookies", err)
		}
	}
	return client
}

func formatOptional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
