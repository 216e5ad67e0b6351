package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/policyengine/simprof/internal/harness"
	"github.com/policyengine/simprof/internal/probe"
	"github.com/policyengine/simprof/internal/report"
	"github.com/policyengine/simprof/internal/scenario"
	"github.com/policyengine/simprof/pkg/engine"
)

var (
	variableCountry      string
	variableName         string
	variablePeriod       string
	variablePoints       int
	variableReform       string
	variableSituation    string
	variableIncomePoints int
	variableFormat       string
)

var variableCmd = &cobra.Command{
	Use:   "variable",
	Short: "Time repeated calculations of one variable",
	Long:  "Builds one simulation and calculates a single variable repeatedly on it, reporting per-point timings. By default the baseline is profiled; --reform profiles the reformed handle instead.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, err := report.ParseFormat(variableFormat)
		if err != nil {
			return err
		}

		h, err := harness.New(variableCountry)
		if err != nil {
			return err
		}

		situation, err := scenario.ResolveSituation(variableCountry, variableSituation, variableIncomePoints)
		if err != nil {
			return err
		}

		var sim engine.Simulation
		if variableReform != "" {
			reform, rerr := scenario.ResolveReform(variableReform)
			if rerr != nil {
				return rerr
			}
			sim, err = h.BuildReform(ctx, situation, reform)
		} else {
			sim, err = h.BuildBaseline(ctx, situation)
		}
		if err != nil {
			return err
		}

		points := variablePoints
		if points == 0 {
			points = cfg.Variable.Points
		}

		vp, err := probe.ProfileVariable(ctx, variableCountry, sim, variableName, variablePeriod, points)
		if err != nil {
			return err
		}
		return report.WriteVariable(os.Stdout, format, vp)
	},
}

func init() {
	variableCmd.Flags().StringVar(&variableCountry, "country", "", "country engine to profile (required)")
	variableCmd.Flags().StringVar(&variableName, "variable", "", "variable to calculate (required)")
	variableCmd.Flags().StringVar(&variablePeriod, "period", "2025", "period to calculate for")
	variableCmd.Flags().IntVar(&variablePoints, "points", 0, "number of timed calculations (default from config)")
	variableCmd.Flags().StringVar(&variableReform, "reform", "", "profile on the reformed simulation (fixture name or file)")
	variableCmd.Flags().StringVar(&variableSituation, "situation", "", "situation .yaml/.json file (default: the country's built-in household)")
	variableCmd.Flags().IntVar(&variableIncomePoints, "income-points", scenario.DefaultIncomePoints, "points on the built-in household's income axis")
	variableCmd.Flags().StringVar(&variableFormat, "format", "text", "output format: text, json, markdown or xlsx")
	_ = variableCmd.MarkFlagRequired("country")
	_ = variableCmd.MarkFlagRequired("variable")
	rootCmd.AddCommand(variableCmd)
}
