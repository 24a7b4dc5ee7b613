// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the scolar CLI: prompt-driven
// research over web pages and discussion threads.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/niderhoff/scolar/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// exitCode carries the workflow's exit status out to os.Exit.
var exitCode int

// rootCmd is the base command for the scolar CLI.
var rootCmd = &cobra.Command{
	Use:   "scolar",
	Short: "Research assistant over web pages and discussion threads",
	Long: `scolar takes a research prompt and a set of URLs (supplied directly or
discovered via subreddit search), fetches each resource, converts it to
markdown, asks a language model to assess its relevance, and synthesizes a
final answer citing the best sources.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./scolar.yaml or ~/.config/scolar/scolar.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("scolar")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "scolar"))
		}
	}

	viper.SetEnvPrefix("SCOLAR")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setDefaults() {
	viper.SetDefault("fetch.timeout", 15*time.Second)
	viper.SetDefault("fetch.user_agent", "scolar/1.0 (research assistant)")
	viper.SetDefault("fetch.retries", 2)
	viper.SetDefault("fetch.backoff", 500*time.Millisecond)
	viper.SetDefault("fetch.concurrency", 5)
	viper.SetDefault("fetch.max_comment_depth", 50)

	viper.SetDefault("content.max_markdown_chars", 20000)
	viper.SetDefault("content.max_links_inspected", 100)

	viper.SetDefault("openai.model", "gpt-4.1-mini")
	viper.SetDefault("openai.temperature", 0.2)
	viper.SetDefault("openai.timeout", 120*time.Second)
	viper.SetDefault("openai.concurrency", 1)
	viper.SetDefault("openai.max_recommended_links", 5)

	viper.SetDefault("answer.max_pages", 5)
	viper.SetDefault("answer.excerpt_chars", 2000)

	viper.SetDefault("discovery.endpoint", "")
	viper.SetDefault("discovery.result_limit", 10)

	viper.SetDefault("cache.page_ttl", 24*time.Hour)
	viper.SetDefault("cache.search_ttl", 72*time.Hour)

	viper.SetDefault("output_dir", "artifacts")
}

// loadSettings assembles the run configuration from viper.
func loadSettings() types.Settings {
	return types.Settings{
		Fetch: types.FetchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("fetch.timeout"),
				UserAgent: viper.GetString("fetch.user_agent"),
				Retries:   viper.GetInt("fetch.retries"),
				Backoff:   viper.GetDuration("fetch.backoff"),
			},
			Concurrency:     viper.GetInt("fetch.concurrency"),
			MaxCommentDepth: viper.GetInt("fetch.max_comment_depth"),
		},
		Content: types.ContentConfig{
			MaxMarkdownChars:  viper.GetInt("content.max_markdown_chars"),
			MaxLinksInspected: viper.GetInt("content.max_links_inspected"),
		},
		OpenAI: types.OpenAIConfig{
			Model:               viper.GetString("openai.model"),
			Temperature:         viper.GetFloat64("openai.temperature"),
			Timeout:             viper.GetDuration("openai.timeout"),
			Concurrency:         viper.GetInt("openai.concurrency"),
			MaxRecommendedLinks: viper.GetInt("openai.max_recommended_links"),
		},
		Answer: types.AnswerConfig{
			MaxPages:     viper.GetInt("answer.max_pages"),
			ExcerptChars: viper.GetInt("answer.excerpt_chars"),
		},
		Discovery: types.DiscoveryConfig{
			Endpoint:    viper.GetString("discovery.endpoint"),
			ResultLimit: viper.GetInt("discovery.result_limit"),
		},
		Cache: types.CacheConfig{
			PageTTL:   viper.GetDuration("cache.page_ttl"),
			SearchTTL: viper.GetDuration("cache.search_ttl"),
		},
		OutputDir: viper.GetString("output_dir"),
	}
}

// newLogger builds the CLI logger, writing to stderr so reports on
// stdout stay clean.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.Encoding = "console"
	}
	return cfg.Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}
