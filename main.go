package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/virtual-hpc/hpcctl/config"
	"github.com/virtual-hpc/hpcctl/internal/builder"
	"github.com/virtual-hpc/hpcctl/internal/executor"
	"github.com/virtual-hpc/hpcctl/internal/export"
	"github.com/virtual-hpc/hpcctl/internal/store"
	"github.com/virtual-hpc/hpcctl/internal/topology"
	"github.com/virtual-hpc/hpcctl/internal/validate"
)

var (
	path    string
	verbose bool
)

var root = &cobra.Command{
	Use:   "hpcctl",
	Short: "Artifact generator for virtual HPC clusters",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the cluster configuration from directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if err := validate.New().Run(cfg.Cluster, cfg.Queues); err != nil {
			return fmt.Errorf("failed to validate cluster: %w", err)
		}

		if _, err := topology.Synthesize(cfg.Cluster.StaticNetwork, cfg.Queues); err != nil {
			return fmt.Errorf("failed to synthesize topology: %w", err)
		}

		slog.Info("configuration is valid", "queues", len(cfg.Queues))

		return nil
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the per-role artifact sets from the cluster configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if err := validate.New().Run(cfg.Cluster, cfg.Queues); err != nil {
			return fmt.Errorf("failed to validate cluster: %w", err)
		}

		clusterTopology, err := topology.Synthesize(cfg.Cluster.StaticNetwork, cfg.Queues)
		if err != nil {
			return fmt.Errorf("failed to synthesize topology: %w", err)
		}

		templates := store.NewDir(cfg.Cluster.TemplateDir, cfg.Cluster.KeysDir)
		results := builder.New(templates, cfg.Cluster, clusterTopology, slog.Default()).
			BuildAll(cmd.Context())

		manifest := export.WriteAll(cfg.Cluster.OutputDir, results, slog.Default())

		if err := export.WriteManifest(cfg.Cluster.OutputDir, manifest); err != nil {
			return fmt.Errorf("failed to write render manifest: %w", err)
		}

		if len(manifest.Failed) > 0 {
			return fmt.Errorf("%d of %d role instances failed",
				len(manifest.Failed), len(results))
		}

		slog.Info("render complete",
			"instances", len(manifest.Rendered), "output", cfg.Cluster.OutputDir)

		return nil
	},
}

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Run the external key-generation script",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if cfg.Cluster.KeygenScript == "" {
			return fmt.Errorf("no keygen script configured")
		}

		if entries, err := os.ReadDir(cfg.Cluster.KeysDir); err == nil && len(entries) > 0 {
			slog.Info("keys already present, skipping generation", "dir", cfg.Cluster.KeysDir)
			return nil
		}

		if err := executor.New().Execute(cmd.Context(), cfg.Cluster.KeygenScript, []string{cfg.Cluster.KeysDir}); err != nil {
			return fmt.Errorf("failed to run keygen script: %w", err)
		}

		return nil
	},
}

func init() {
	root.PersistentFlags().StringVar(&path, "config", "", "Path to cluster configuration directory")
	root.MarkPersistentFlagRequired("config")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	root.AddCommand(validateCmd, renderCmd, keygenCmd)
}

func main() {
	root.Execute()
}
