package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/CTaiDeng/open-meta-mathematical-theory/internal/config"
	"github.com/CTaiDeng/open-meta-mathematical-theory/internal/corpus"
	"github.com/CTaiDeng/open-meta-mathematical-theory/internal/oracle"
	"github.com/CTaiDeng/open-meta-mathematical-theory/internal/pipeline"
	"github.com/CTaiDeng/open-meta-mathematical-theory/internal/report"
)

var (
	mergeConfigPath string
	mergeOutDir     string
	mergeDryRun     bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Scan, order and digest the configured corpus",
	Long: `Scan the configured source directories for <unix-seconds>_*.md files,
order them by timestamp, and write the digest artifacts.

Exit codes:
  0  corpus fully processed, or request quota reached after a consistent persist
  1  configuration or terminal oracle failure
  2  oracle retry budget exhausted (resume later; completed work is persisted)

Examples:
  mdmerge merge                          # use ./mdmerge.yaml
  mdmerge merge --config corpus.yaml     # explicit config
  mdmerge merge --dry-run                # scan and count only
  mdmerge merge --out-dir /tmp/digest    # override the output directory`,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runMerge(context.Background()))
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)
	mergeCmd.Flags().StringVar(&mergeConfigPath, "config", "mdmerge.yaml", "Path to the YAML configuration file")
	mergeCmd.Flags().StringVar(&mergeOutDir, "out-dir", "", "Override the output directory")
	mergeCmd.Flags().BoolVar(&mergeDryRun, "dry-run", false, "Scan and count matches without writing output")
}

func runMerge(ctx context.Context) int {
	cyan := color.New(color.FgCyan).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	cfg, err := config.Load(mergeConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", red(fmt.Sprintf("Error: %v", err)))
		return 1
	}
	fmt.Println(cyan(fmt.Sprintf("[merge] using config: %s", mergeConfigPath)))

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", red(fmt.Sprintf("Error: %v", err)))
		return 1
	}
	root := guessRepoRoot(cwd)
	dirs := corpus.ResolveSourceDirs(root, cfg.SourceDirs)
	fmt.Println(cyan(fmt.Sprintf("[merge] repo root: %s", root)))
	fmt.Println(cyan(fmt.Sprintf("[merge] source dirs: %v", dirs)))

	docs := corpus.Scan(root, dirs)
	fmt.Println(cyan(fmt.Sprintf("[merge] matched files: %d", len(docs))))

	if mergeDryRun {
		fmt.Printf("Found %d matching files (showing up to 10):\n", len(docs))
		for i, d := range docs {
			if i == 10 {
				break
			}
			fmt.Printf("- %d/%d %d %s\n", i+1, len(docs), d.Timestamp, d.RelPath)
		}
		return 0
	}

	outDir := mergeOutDir
	if outDir == "" {
		outDir = cfg.OutputDir
	}
	if !filepath.IsAbs(outDir) {
		outDir = filepath.Join(root, outDir)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", red(fmt.Sprintf("Error: creating output dir: %v", err)))
		return 1
	}

	base := strings.TrimSuffix(filepath.Base(mergeConfigPath), filepath.Ext(mergeConfigPath))
	outJSON := filepath.Join(outDir, base+".json")
	outMD := filepath.Join(outDir, base+".md")
	outAll := filepath.Join(outDir, base+"_all.json")

	title := cfg.Title
	if title == "" {
		title = base + " digest"
	}
	info := &report.CompressionInfo{
		Enabled:       cfg.Compression.Enabled,
		Provider:      report.Provider,
		ModelAlias:    cfg.Compression.Model,
		ModelResolved: oracle.ResolveModel(cfg.Compression.Model),
		MaxChars:      cfg.Compression.MaxChars,
		Principles:    cfg.Compression.Principles,
	}
	writer := report.NewWriter(outJSON, outMD, title, uuid.NewString(), cfg.SourceDirs, info)

	// The unabridged artifact goes first; it never depends on the oracle.
	if err := writer.WriteCorpusJSON(outAll, docs); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", red(fmt.Sprintf("Error: %v", err)))
		return 1
	}
	fmt.Println(green(fmt.Sprintf("[merge] wrote unabridged JSON: %s", outAll)))

	var prior []report.SummaryRecord
	if fileExists(outMD) && fileExists(outJSON) {
		if prior = report.LoadPriorRecords(outJSON); prior != nil {
			fmt.Println(yellow("[resume] prior digest output found, reconciling"))
		}
	}

	var client oracle.Client
	if cfg.Compression.Enabled {
		c, err := oracle.NewAnthropicClient("", cfg.Compression.Model)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", red(fmt.Sprintf("Error: %v", err)))
			return 1
		}
		client = c
	}

	runner := pipeline.NewRunner(cfg, client, writer)
	runner.Progressf = func(format string, args ...any) {
		fmt.Println(cyan(fmt.Sprintf(format, args...)))
	}

	result, err := runner.Run(ctx, docs, prior)
	if err != nil {
		var exhausted *pipeline.ExhaustedError
		if errors.As(err, &exhausted) {
			fmt.Fprintf(os.Stderr, "%s\n", red(fmt.Sprintf(
				"Retry budget exhausted at document %d (%s). Stopping so a later run can resume.",
				exhausted.Index+1, exhausted.Name)))
			return 2
		}
		fmt.Fprintf(os.Stderr, "%s\n", red(fmt.Sprintf("Error: %v", err)))
		return 1
	}

	if result.Stop == pipeline.QuotaReached {
		fmt.Printf("Processed %d documents (per-run request cap: %d).\n",
			result.Processed, cfg.Compression.MaxRequestsPerRun)
		fmt.Printf("Intermediate output: %s and %s. Remaining: %d; the next run resumes from here.\n",
			outMD, outJSON, result.Remaining)
		return 0
	}

	fmt.Println(green(fmt.Sprintf("[merge] wrote Markdown: %s", outMD)))
	fmt.Println(green(fmt.Sprintf("[merge] wrote JSON digest: %s", outJSON)))
	fmt.Printf("Done: %d files merged (%d processed this run).\n", result.Total, result.Processed)
	return 0
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
