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
	memoryCountry      string
	memoryBuilds       int
	memoryReform       string
	memorySituation    string
	memoryIncomePoints int
	memoryFormat       string
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Measure heap growth across repeated builds",
	Long:  "Constructs the same simulation repeatedly and reports heap usage before and after, isolating what construction retains. --reform measures reformed builds instead of baseline ones.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, err := report.ParseFormat(memoryFormat)
		if err != nil {
			return err
		}

		h, err := harness.New(memoryCountry)
		if err != nil {
			return err
		}

		situation, err := scenario.ResolveSituation(memoryCountry, memorySituation, memoryIncomePoints)
		if err != nil {
			return err
		}

		var reform engine.Reform
		if memoryReform != "" {
			reform, err = scenario.ResolveReform(memoryReform)
			if err != nil {
				return err
			}
		}

		buildFn := func() error {
			if reform != nil {
				_, berr := h.BuildReform(ctx, situation, reform)
				return berr
			}
			_, berr := h.BuildBaseline(ctx, situation)
			return berr
		}

		builds := memoryBuilds
		if builds == 0 {
			builds = cfg.Memory.Builds
		}

		mp, err := probe.ProfileMemory(ctx, memoryCountry, buildFn, builds)
		if err != nil {
			return err
		}
		return report.WriteMemory(os.Stdout, format, mp)
	},
}

func init() {
	memoryCmd.Flags().StringVar(&memoryCountry, "country", "", "country engine to profile (required)")
	memoryCmd.Flags().IntVar(&memoryBuilds, "builds", 0, "number of repeated builds (default from config)")
	memoryCmd.Flags().StringVar(&memoryReform, "reform", "", "measure reformed builds (fixture name or file)")
	memoryCmd.Flags().StringVar(&memorySituation, "situation", "", "situation .yaml/.json file (default: the country's built-in household)")
	memoryCmd.Flags().IntVar(&memoryIncomePoints, "income-points", scenario.DefaultIncomePoints, "points on the built-in household's income axis")
	memoryCmd.Flags().StringVar(&memoryFormat, "format", "text", "output format: text, json, markdown or xlsx")
	_ = memoryCmd.MarkFlagRequired("country")
	rootCmd.AddCommand(memoryCmd)
}
