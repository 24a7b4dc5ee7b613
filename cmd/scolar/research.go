// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/niderhoff/scolar/internal/answer"
	"github.com/niderhoff/scolar/internal/assess"
	"github.com/niderhoff/scolar/internal/cache"
	"github.com/niderhoff/scolar/internal/convert"
	"github.com/niderhoff/scolar/internal/discovery"
	"github.com/niderhoff/scolar/internal/fetch"
	"github.com/niderhoff/scolar/internal/library"
	"github.com/niderhoff/scolar/internal/llm"
	"github.com/niderhoff/scolar/internal/pipeline"
	"github.com/niderhoff/scolar/internal/report"
	"github.com/niderhoff/scolar/internal/search"
	"github.com/niderhoff/scolar/internal/secrets"
	"github.com/niderhoff/scolar/internal/storage"
	"github.com/niderhoff/scolar/internal/workflow"
	"github.com/niderhoff/scolar/pkg/types"
)

const secretsDir = ".secrets/"

var researchCmd = &cobra.Command{
	Use:   "research",
	Short: "Assess URLs against a research prompt and synthesize an answer",
	Long: `Research fetches each URL, converts it to markdown, asks the model how well
it serves the prompt, and synthesizes a final answer over the best pages.
When no URLs are supplied, candidates are discovered via subreddit search.`,
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().String("prompt", "", "research prompt to evaluate pages against")
	researchCmd.Flags().StringArray("url", nil, "URL to include (repeat for multiple)")
	researchCmd.Flags().String("urls-file", "", "path to a file containing newline-delimited URLs")
	researchCmd.Flags().Bool("suggest-queries", false, "generate a search plan for the prompt")
	researchCmd.Flags().Bool("refresh-cache", false, "refetch and reassess even when cached")
	researchCmd.Flags().String("output-dir", "", "directory for markdown artifacts (overrides config)")
	researchCmd.Flags().String("json-output", "", "optional path for a JSON summary report")
	researchCmd.MarkFlagRequired("prompt")

	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, _ []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	settings := loadSettings()
	if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
		settings.OutputDir = dir
	}
	settings.OpenAI.APIKey = secrets.OpenAIKey(secretsDir)
	if settings.OpenAI.APIKey == "" {
		return fmt.Errorf("no OpenAI API key: set OPENAI_API_KEY or %sopenai-api-key", secretsDir)
	}

	prompt, _ := cmd.Flags().GetString("prompt")
	urlFlags, _ := cmd.Flags().GetStringArray("url")
	urlsFile, _ := cmd.Flags().GetString("urls-file")
	suggestQueries, _ := cmd.Flags().GetBool("suggest-queries")
	refreshCache, _ := cmd.Flags().GetBool("refresh-cache")
	jsonOutput, _ := cmd.Flags().GetString("json-output")

	urls, err := collectURLs(urlFlags, urlsFile)
	if err != nil {
		return err
	}

	w, err := buildWorkflow(settings, logger)
	if err != nil {
		return err
	}

	result := w.Run(cmd.Context(), workflow.Request{
		Prompt:         prompt,
		URLs:           urls,
		SuggestQueries: suggestQueries,
		RefreshCache:   refreshCache,
	})

	if result.SearchPlan != nil {
		fmt.Fprintln(cmd.OutOrStdout(), search.Render(result.SearchPlan))
		fmt.Fprintln(cmd.OutOrStdout())
	}
	if len(result.ProcessedPages) > 0 {
		if err := report.Write(cmd.OutOrStdout(), result); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
	}
	for _, msg := range result.Errors {
		fmt.Fprintln(os.Stderr, "error:", msg)
	}

	if jsonOutput != "" {
		if err := report.WriteJSON(jsonOutput, report.BuildJSONReport(result)); err != nil {
			return err
		}
		logger.Info("wrote JSON summary", zap.String("path", jsonOutput))
	}

	recordRun(cmd, settings, result, logger)

	exitCode = result.ExitCode
	return nil
}

// buildWorkflow wires the research stages from the settings.
func buildWorkflow(settings types.Settings, logger *zap.Logger) (*workflow.Workflow, error) {
	pageCache, err := cache.NewPageCache(settings.OutputDir, settings.Cache.PageTTL, logger)
	if err != nil {
		return nil, err
	}
	searchCache, err := cache.NewSearchHitCache(settings.OutputDir, settings.Cache.SearchTTL, logger)
	if err != nil {
		return nil, err
	}
	store, err := storage.New(settings.OutputDir)
	if err != nil {
		return nil, err
	}

	backend := llm.NewOpenAIBackend(settings.OpenAI)
	fetcher := fetch.NewClient(nil, settings.Fetch, logger)
	converter := convert.New(settings.Content)
	assessor := assess.New(backend, settings.Content, settings.OpenAI.MaxRecommendedLinks, logger)

	pipe := pipeline.New(pipeline.Config{
		FetchConcurrency: settings.Fetch.Concurrency,
		LLMConcurrency:   settings.OpenAI.Concurrency,
	}, fetcher, converter, store, assessor, pageCache, logger)

	expander := search.New(backend, settings.Answer.MaxPages, logger)
	discoverer := discovery.New(settings.Discovery, settings.Fetch.HTTPConfig, searchCache, logger)
	synthesizer := answer.New(backend, settings.Answer, logger)

	return workflow.New(expander, discoverer, pipe, synthesizer, logger), nil
}

// recordRun appends the result to the run library; failures only warn.
func recordRun(cmd *cobra.Command, settings types.Settings, result *types.ResearchResult, logger *zap.Logger) {
	store, err := library.Open(filepath.Join(settings.OutputDir, "library"))
	if err != nil {
		logger.Warn("could not open run library", zap.Error(err))
		return
	}
	defer store.Close()

	if _, err := store.Record(cmd.Context(), result); err != nil {
		logger.Warn("could not record run", zap.Error(err))
	}
}

// collectURLs merges --url flags with the optional urls file, keeping
// first-occurrence order.
func collectURLs(urls []string, urlsFile string) ([]string, error) {
	collected := append([]string(nil), urls...)
	if urlsFile != "" {
		data, err := os.ReadFile(urlsFile)
		if err != nil {
			return nil, fmt.Errorf("reading urls file: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				collected = append(collected, trimmed)
			}
		}
	}

	seen := make(map[string]struct{}, len(collected))
	var deduped []string
	for _, u := range collected {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		deduped = append(deduped, u)
	}
	return deduped, nil
}
