package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mlexplainer/backend/internal/importance"
	"github.com/mlexplainer/backend/internal/ingest"
	"github.com/mlexplainer/backend/internal/models"
	"github.com/mlexplainer/backend/internal/profile"
)

type analyzeOutput struct {
	File              string                     `json:"file"`
	RowCount          int                        `json:"row_count"`
	ColumnCount       int                        `json:"column_count"`
	ColumnTypes       map[string]string          `json:"column_types"`
	PredictionColumn  *string                    `json:"prediction_column"`
	HasGroundTruth    bool                       `json:"has_ground_truth"`
	HasTimestamp      bool                       `json:"has_timestamp"`
	Profile           *models.DataProfile        `json:"profile"`
	FeatureImportance []models.FeatureImportance `json:"feature_importance"`
	Anomalies         *models.AnomalyReport      `json:"anomalies"`
	Insights          []string                   `json:"insights"`
	Explanation       string                     `json:"explanation"`

	columnOrder []string
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	var predictionColumn string

	cmd := &cobra.Command{
		Use:   "analyze <file.csv>",
		Short: "Profile a CSV file, flag outliers and rank features",
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
			t, meta, err := v.LoadAndAnalyze(ctx, store, key)
			if err != nil {
				return fmt.Errorf("processing failed: %w", err)
			}

			pred := ""
			if meta.PredictionColumn != nil {
				pred = *meta.PredictionColumn
			}
			if predictionColumn != "" {
				if _, ok := t.Column(predictionColumn); !ok {
					return fmt.Errorf("column %q not found", predictionColumn)
				}
				pred = predictionColumn
				meta.PredictionColumn = &pred
			}

			pipeline := ingest.NewPipeline(
				profile.NewProfiler(opts.cfg.Analysis.AnomalyThreshold),
				importance.NewCalculator(opts.cfg.Analysis.MaxFeaturesDisplay),
			)
			report := pipeline.Run(t, pred)

			out := &analyzeOutput{
				File:              key,
				RowCount:          meta.RowCount,
				ColumnCount:       meta.ColumnCount,
				ColumnTypes:       meta.ColumnTypes,
				PredictionColumn:  meta.PredictionColumn,
				HasGroundTruth:    meta.HasGroundTruth,
				HasTimestamp:      meta.HasTimestamp,
				Profile:           report.Profile,
				FeatureImportance: report.Features,
				Anomalies:         report.Anomalies,
				Insights:          report.Insights,
				Explanation:       report.Explanation,
				columnOrder:       meta.ColumnNames,
			}

			if opts.format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			writeText(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().Float64Var(&opts.threshold, "threshold", profile.DefaultAnomalyThreshold, "absolute z-score above which a value is anomalous")
	cmd.Flags().IntVar(&opts.maxFeatures, "max-features", importance.DefaultMaxFeatures, "maximum number of ranked features")
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format: text or json")
	cmd.Flags().StringVar(&predictionColumn, "prediction", "", "prediction column (default: inferred from column names)")
	return cmd
}

func writeText(w io.Writer, out *analyzeOutput) {
	fmt.Fprintf(w, "%s: %d rows, %d columns\n", out.File, out.RowCount, out.ColumnCount)
	if out.PredictionColumn != nil {
		fmt.Fprintf(w, "Prediction column: %s\n", *out.PredictionColumn)
	}
	fmt.Fprintln(w)

	cols := tablewriter.NewWriter(w)
	cols.SetHeader([]string{"Column", "Type", "Missing", "Missing %"})
	cols.SetAutoFormatHeaders(false)
	for _, name := range out.columnOrder {
		cols.Append([]string{
			name,
			out.ColumnTypes[name],
			strconv.Itoa(out.Profile.MissingValues[name]),
			strconv.FormatFloat(out.Profile.MissingPercentages[name], 'f', 2, 64),
		})
	}
	cols.Render()
	fmt.Fprintln(w)

	if len(out.FeatureImportance) > 0 {
		feats := tablewriter.NewWriter(w)
		feats.SetHeader([]string{"Rank", "Feature", "Importance"})
		feats.SetAutoFormatHeaders(false)
		for _, f := range out.FeatureImportance {
			feats.Append([]string{strconv.Itoa(f.Rank), f.Feature, strconv.FormatFloat(f.Importance, 'f', 4, 64)})
		}
		feats.Render()
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Anomalous rows: %d\n", out.Anomalies.Total)
	if len(out.Anomalies.Details) > 0 {
		names := make([]string, 0, len(out.Anomalies.Details))
		for name := range out.Anomalies.Details {
			names = append(names, name)
		}
		sort.Strings(names)

		anoms := tablewriter.NewWriter(w)
		anoms.SetHeader([]string{"Column", "Count", "First rows"})
		anoms.SetAutoFormatHeaders(false)
		for _, name := range names {
			d := out.Anomalies.Details[name]
			anoms.Append([]string{name, strconv.Itoa(d.Count), joinInts(d.Indices)})
		}
		anoms.Render()
	}
	fmt.Fprintln(w)

	for _, s := range out.Insights {
		fmt.Fprintf(w, "• %s\n", s)
	}
}

func joinInts(v []int) string {
	b := make([]byte, 0, len(v)*4)
	for i, n := range v {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = strconv.AppendInt(b, int64(n), 10)
	}
	return string(b)
}
