// mdmerge merges timestamp-named Markdown documents from configured
// directories and produces policy-filtered, oracle-compressed digests.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mdmerge",
	Short: "Merge timestamp-named Markdown documents into compressed digests",
	Long: `mdmerge scans configured directories for files named <unix-seconds>_*.md,
orders them by timestamp, and writes merged JSON and Markdown artifacts.

With compression enabled, each document is condensed through an LLM with
optional topic-based exclusion. Progress is persisted after every document,
so an interrupted run (crash, request quota, outage) resumes where it
stopped on the next invocation.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
