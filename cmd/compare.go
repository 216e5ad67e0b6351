package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/policyengine/simprof/internal/compare"
	"github.com/policyengine/simprof/internal/harness"
	"github.com/policyengine/simprof/internal/model"
	"github.com/policyengine/simprof/internal/report"
	"github.com/policyengine/simprof/internal/scenario"
)

var (
	compareCountry      string
	compareReform       string
	compareSituation    string
	compareIncomePoints int
	compareTopN         int
	compareCalculate    string
	comparePeriod       string
	compareFormat       string
	compareOutput       string
	compareSave         bool
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Profile a reform build against a baseline build",
	Long:  "Constructs the baseline simulation and the reformed simulation under the CPU profiler and reports the overhead the reform adds to construction.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, err := report.ParseFormat(compareFormat)
		if err != nil {
			return err
		}

		h, err := harness.New(compareCountry)
		if err != nil {
			return err
		}

		situation, err := scenario.ResolveSituation(compareCountry, compareSituation, compareIncomePoints)
		if err != nil {
			return err
		}

		reformSpec := compareReform
		if reformSpec == "" {
			reformSpec, err = scenario.DefaultReformName(compareCountry)
			if err != nil {
				return err
			}
		}
		reform, err := scenario.ResolveReform(reformSpec)
		if err != nil {
			return err
		}

		topN := compareTopN
		if topN == 0 {
			topN = cfg.Profiler.TopN
		}

		result, err := compare.New(h).Run(ctx, compare.Options{
			Situation:  situation,
			Reform:     reform,
			ReformName: reformLabel(reformSpec),
			TopN:       topN,
			Epsilon:    cfg.Profiler.EpsilonSeconds,
			Variable:   compareCalculate,
			Period:     comparePeriod,
		})
		if err != nil {
			fmt.Fprint(os.Stderr, report.FormatFailureText(err))
			return eris.Wrap(err, "compare")
		}

		if compareSave {
			if err := saveRun(ctx, result); err != nil {
				return err
			}
		}

		out := os.Stdout
		if compareOutput != "" {
			f, err := os.Create(compareOutput)
			if err != nil {
				return eris.Wrapf(err, "create %s", compareOutput)
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		return report.WriteComparison(out, format, result)
	},
}

func init() {
	compareCmd.Flags().StringVar(&compareCountry, "country", "", "country engine to profile (required)")
	compareCmd.Flags().StringVar(&compareReform, "reform", "", "reform fixture name or .yaml/.json file (default: the country's built-in reform)")
	compareCmd.Flags().StringVar(&compareSituation, "situation", "", "situation .yaml/.json file (default: the country's built-in household)")
	compareCmd.Flags().IntVar(&compareIncomePoints, "income-points", scenario.DefaultIncomePoints, "points on the built-in household's income axis")
	compareCmd.Flags().IntVar(&compareTopN, "top-n", 0, "bottleneck functions to report (default from config)")
	compareCmd.Flags().StringVar(&compareCalculate, "calculate", "", "variable to additionally time on both built simulations")
	compareCmd.Flags().StringVar(&comparePeriod, "period", "2025", "period for --calculate")
	compareCmd.Flags().StringVar(&compareFormat, "format", "text", "output format: text, json, markdown or xlsx")
	compareCmd.Flags().StringVar(&compareOutput, "output", "", "write the report to a file instead of stdout")
	compareCmd.Flags().BoolVar(&compareSave, "save", false, "persist the result to the run-history store")
	_ = compareCmd.MarkFlagRequired("country")
	rootCmd.AddCommand(compareCmd)
}

// reformLabel names a run after its reform: a fixture name as given, a
// file by its base name without extension.
func reformLabel(spec string) string {
	switch strings.ToLower(filepath.Ext(spec)) {
	case ".yaml", ".yml", ".json":
		base := filepath.Base(spec)
		return strings.TrimSuffix(base, filepath.Ext(base))
	default:
		return spec
	}
}

// saveRun persists a completed comparison so the runs subcommands can find it.
func saveRun(ctx context.Context, result *model.Comparison) error {
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return eris.Wrap(err, "migrate store")
	}

	run, err := st.CreateRun(ctx, result.Country, result.ReformName)
	if err != nil {
		return eris.Wrap(err, "save run")
	}
	if err := st.UpdateRunResult(ctx, run.ID, result); err != nil {
		return eris.Wrap(err, "save run result")
	}

	zap.L().Info("run saved", zap.String("run_id", run.ID))
	return nil
}
