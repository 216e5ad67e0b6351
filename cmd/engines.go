package main

import (
	"fmt"
	"os"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/policyengine/simprof/pkg/engine"
	"github.com/policyengine/simprof/pkg/engine/synthetic"
)

var registerEnginesOnce sync.Once

// registerEngines installs the engines this binary can profile. The us and
// uk entries are synthetic stand-ins sized like those countries' models;
// real engine bindings replace them here when they exist.
func registerEngines() {
	registerEnginesOnce.Do(func() {
		engine.Register(synthetic.New())
		engine.Register(synthetic.New(
			synthetic.WithCountryID("us"),
			synthetic.WithVersion("1.455.0+synthetic"),
		))
		engine.Register(synthetic.New(
			synthetic.WithCountryID("uk"),
			synthetic.WithVersion("2.616.0+synthetic"),
		))
	})
}

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "List registered country engines",
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "COUNTRY\tVERSION")
		_, _ = fmt.Fprintln(w, "-------\t-------")

		for _, id := range engine.Countries() {
			eng, err := engine.Lookup(id)
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\n", eng.CountryID(), eng.Version())
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(enginesCmd)
}
