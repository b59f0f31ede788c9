package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mlexplainer/backend/internal/config"
	"github.com/mlexplainer/backend/internal/logging"
	"github.com/mlexplainer/backend/internal/storage"
	"github.com/mlexplainer/backend/internal/validate"
)

type options struct {
	configFile  string
	threshold   float64
	maxFeatures int
	maxSize     string
	format      string

	cfg *config.AppConfig
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "mlexplain",
		Short:         "Profile CSV prediction files and rank their features",
		Long:          `mlexplain runs the same validation and analysis as the ML Results Explainer server against local CSV files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.SetLevel("off")
			return opts.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file supplying analysis defaults")
	root.PersistentFlags().StringVar(&opts.maxSize, "max-size", "", "maximum file size, e.g. 50MiB (overrides config)")

	root.AddCommand(newValidateCmd(opts), newAnalyzeCmd(opts))
	return root
}

// load reads the optional config file and applies flag overrides.
func (o *options) load(cmd *cobra.Command) error {
	o.cfg = config.DefaultConfig()
	if o.configFile != "" {
		c, err := config.LoadConfig(o.configFile)
		if err != nil {
			return err
		}
		o.cfg = c
	}

	f := cmd.Flags()
	if f.Changed("max-size") {
		o.cfg.Storage.MaxUploadSize = o.maxSize
	}
	if f.Changed("threshold") {
		o.cfg.Analysis.AnomalyThreshold = o.threshold
	}
	if f.Changed("max-features") {
		o.cfg.Analysis.MaxFeaturesDisplay = o.maxFeatures
	}
	if o.format != "" && o.format != "text" && o.format != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", o.format)
	}
	return o.cfg.Validate()
}

func (o *options) validator() *validate.Validator {
	return validate.NewValidator(o.cfg.GetMaxUploadSize(), o.cfg.Analysis.SampleRows)
}

// openLocal exposes a single local file through the storage interface.
func openLocal(path string) (*storage.LocalStore, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", err
	}
	store, err := storage.NewLocalStore(filepath.Dir(abs))
	if err != nil {
		return nil, "", err
	}
	return store, filepath.Base(abs), nil
}

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file.csv>",
		Short: "Check that a CSV file would be accepted for upload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, key, err := openLocal(args[0])
			if err != nil {
				return err
			}
			ctx := context.Background()
			v := opts.validator()
			if err := v.Validate(ctx, store, key); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			_, meta, err := v.LoadAndAnalyze(ctx, store, key)
			if err != nil {
				return fmt.Errorf("processing failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ %s is valid: %d rows, %d columns\n", key, meta.RowCount, meta.ColumnCount)
			if meta.PredictionColumn != nil {
				fmt.Fprintf(out, "  prediction column: %s\n", *meta.PredictionColumn)
			}
			fmt.Fprintf(out, "  ground truth: %t, timestamp: %t\n", meta.HasGroundTruth, meta.HasTimestamp)
			return nil
		},
	}
}
