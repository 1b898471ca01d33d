// Copyright 2026 Mreoch1
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Mreoch1/siteaudit"
	"github.com/Mreoch1/siteaudit/storage"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "siteaudit <url>",
	Short: "Crawl and audit a website",
	Long: `siteaudit crawls a website with a headless browser, extracts metadata,
content and performance signals from every page, and reports the
consolidated issues it found.`,
	Args:    cobra.ExactArgs(1),
	RunE:    runAudit,
	Version: version,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./siteaudit.yml)")

	rootCmd.Flags().IntP("max-pages", "p", 200, "Stop after N pages")
	rootCmd.Flags().Int("max-depth", 5, "Maximum link depth from the seed")
	rootCmd.Flags().Duration("max-duration", 15*time.Minute, "Wall-clock budget for the crawl")
	rootCmd.Flags().Int("max-links-per-page", 200, "Maximum links one page may enqueue")
	rootCmd.Flags().DurationP("delay", "r", 200*time.Millisecond, "Delay between page loads")
	rootCmd.Flags().DurationP("timeout", "t", 10*time.Second, "HTTP request timeout")
	rootCmd.Flags().StringP("user-agent", "u", "siteaudit/1.0", "HTTP User-Agent header")
	rootCmd.Flags().Bool("no-render", false, "Skip browser rendering, use plain fetches only")
	rootCmd.Flags().Bool("no-sitemap", false, "Do not seed the crawl from the sitemap")
	rootCmd.Flags().Bool("ignore-robots", false, "Ignore robots.txt rules")
	rootCmd.Flags().StringSlice("exclude", nil, "Glob patterns of URLs to skip")
	rootCmd.Flags().StringP("database", "d", "", "SQLite file to store the result in")
	rootCmd.Flags().Bool("json", false, "Print the full result as JSON")
	rootCmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")

	binds := []struct{ key, flag string }{
		{"max_pages", "max-pages"},
		{"max_depth", "max-depth"},
		{"max_duration", "max-duration"},
		{"max_links_per_page", "max-links-per-page"},
		{"request_delay", "delay"},
		{"request_timeout", "timeout"},
		{"user_agent", "user-agent"},
		{"no_render", "no-render"},
		{"no_sitemap", "no-sitemap"},
		{"ignore_robots", "ignore-robots"},
		{"exclude_patterns", "exclude"},
		{"database_path", "database"},
	}
	for _, b := range binds {
		if err := viper.BindPFlag(b.key, rootCmd.Flags().Lookup(b.flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind flag %s: %v\n", b.flag, err)
		}
	}
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("siteaudit")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SITEAUDIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func buildConfig() siteaudit.Config {
	cfg := siteaudit.DefaultConfig()
	cfg.MaxPages = viper.GetInt("max_pages")
	cfg.MaxDepth = viper.GetInt("max_depth")
	cfg.MaxDuration = viper.GetDuration("max_duration")
	cfg.MaxLinksPerPage = viper.GetInt("max_links_per_page")
	cfg.RequestDelay = viper.GetDuration("request_delay")
	cfg.FetchTimeout = viper.GetDuration("request_timeout")
	cfg.UserAgent = viper.GetString("user_agent")
	cfg.RenderEnabled = !viper.GetBool("no_render")
	cfg.UseSitemap = !viper.GetBool("no_sitemap")
	cfg.RespectRobots = !viper.GetBool("ignore_robots")
	cfg.ExcludePatterns = viper.GetStringSlice("exclude_patterns")
	return cfg
}

func runAudit(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	asJSON, _ := cmd.Flags().GetBool("json")

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := buildConfig()
	auditor := siteaudit.NewAuditor(cfg, siteaudit.WithLogger(log))

	result, err := auditor.Run(cmd.Context(), args[0])
	if err != nil {
		if result == nil {
			return err
		}
		log.Warn("audit ended early", "error", err)
	}

	if dbPath := viper.GetString("database_path"); dbPath != "" {
		store, err := storage.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening result store: %w", err)
		}
		defer store.Close()
		id, err := store.SaveResult(result)
		if err != nil {
			return fmt.Errorf("saving result: %w", err)
		}
		log.Info("result stored", "database", dbPath, "run", id)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printSummary(result)
	return nil
}

func printSummary(result *siteaudit.AuditResult) {
	fmt.Printf("Audited %s (%d pages, %s)\n", result.SeedURL, len(result.Pages), result.Duration.Round(time.Millisecond))
	if result.StopReason != "" {
		fmt.Printf("Crawl stopped early: %s\n", result.StopReason)
	}
	if len(result.Issues) == 0 {
		fmt.Println("No issues found.")
		return
	}

	fmt.Printf("\n%d issues:\n", len(result.Issues))
	for _, issue := range result.Issues {
		fmt.Printf("  [%-6s] %-16s %s (%d pages)\n",
			issue.Severity, issue.Category, issue.Message, issue.Count())
		if issue.Detail != "" {
			fmt.Printf("           %s\n", issue.Detail)
		}
	}
}
