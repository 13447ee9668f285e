package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	envFiles []string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "seedradar",
		Short:         "Find and rank content previews related to seed items",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default: ./.env)")

	root.AddCommand(seedCmd())
	root.AddCommand(queriesCmd())
	root.AddCommand(normalizeCmd())
	root.AddCommand(collectCmd())
	root.AddCommand(scoreCmd())
	root.AddCommand(leaderboardCmd())
	root.AddCommand(sampleCmd())
	root.AddCommand(calibrateCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Manage seed items",
	}

	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import seeds from a YAML or JSON file (one seed or a list)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeedImport(cmd.Context(), args[0])
		},
	}

	var (
		jsonOutput bool
		limit      int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored seeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeedList(cmd.Context(), jsonOutput, limit)
		},
	}
	listCmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	listCmd.Flags().IntVar(&limit, "limit", 100, "max seeds to show")

	cmd.AddCommand(importCmd, listCmd)
	return cmd
}

func queriesCmd() *cobra.Command {
	var (
		platforms  []string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "queries SEED_ID",
		Short: "Show the search queries generated for a seed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueries(cmd.Context(), args[0], platforms, jsonOutput)
		},
	}

	cmd.Flags().StringSliceVar(&platforms, "platform", nil, "platforms to generate for (default: all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func normalizeCmd() *cobra.Command {
	var platform string

	cmd := &cobra.Command{
		Use:   "normalize [FILE]",
		Short: "Normalize raw provider JSON (an object or array) from FILE or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runNormalize(platform, path)
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "", "platform the records came from (e.g., youtube,reddit)")
	return cmd
}

func collectCmd() *cobra.Command {
	var (
		platforms []string
		seedID    string
	)

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Search providers for previews of stored seeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd.Context(), platforms, seedID)
		},
	}

	cmd.Flags().StringSliceVar(&platforms, "platform", nil, "specific providers to search (e.g., youtube,reddit,rss)")
	cmd.Flags().StringVar(&seedID, "seed", "", "collect for a single seed")
	return cmd
}

func scoreCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score stored previews that have no score yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd.Context(), limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "max previews to score (default: pipeline.batch_size)")
	return cmd
}

func leaderboardCmd() *cobra.Command {
	var (
		minScore int
		topK     int
		csvPath  string
	)

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top scored previews per seed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLeaderboard(cmd.Context(), minScore, topK, csvPath)
		},
	}

	cmd.Flags().IntVar(&minScore, "min-score", -1, "minimum score (default: keep threshold)")
	cmd.Flags().IntVar(&topK, "top-k", 10, "previews per seed")
	cmd.Flags().StringVar(&csvPath, "csv", "", "write the leaderboard as CSV to this file")
	return cmd
}

func sampleCmd() *cobra.Command {
	var (
		n       int
		bins    int
		rngSeed uint64
		out     string
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write a score-stratified labeling sample as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSample(cmd.Context(), n, bins, rngSeed, out)
		},
	}

	cmd.Flags().IntVar(&n, "n", 200, "sample size")
	cmd.Flags().IntVar(&bins, "bins", 8, "score bins")
	cmd.Flags().Uint64Var(&rngSeed, "rng-seed", 42, "random seed for reproducible samples")
	cmd.Flags().StringVar(&out, "out", "labeling_sample.csv", "output CSV file (- for stdout)")
	return cmd
}

func calibrateCmd() *cobra.Command {
	var (
		reportPath string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "calibrate DEVSET_CSV",
		Short: "Recommend a keep threshold from a labeled devset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalibrate(args[0], reportPath, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&reportPath, "report", "", "write the full threshold sweep as CSV to this file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output the summary as JSON")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
