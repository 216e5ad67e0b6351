package report

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/policyengine/simprof/internal/harness"
	"github.com/policyengine/simprof/internal/model"
)

const bannerWidth = 80

// prn groups thousands in the percentage figures ("149,400% slower").
var prn = message.NewPrinter(language.English)

func banner(b *strings.Builder, title string) {
	line := strings.Repeat("=", bannerWidth)
	b.WriteString(line + "\n")
	b.WriteString(title + "\n")
	b.WriteString(line + "\n")
}

// FormatComparisonText renders the classic CLI report: summary metrics,
// the reform run's top functions, optional per-variable timings, and a
// closing recommendation.
func FormatComparisonText(cmp *model.Comparison) string {
	var b strings.Builder

	banner(&b, "PROFILING REFORM SIMULATION OVERHEAD")
	fmt.Fprintf(&b, "Country:        %s\n", cmp.Country)
	if cmp.EngineVersion != "" {
		fmt.Fprintf(&b, "Engine version: %s\n", cmp.EngineVersion)
	}
	if cmp.ReformName != "" {
		fmt.Fprintf(&b, "Reform:         %s\n", cmp.ReformName)
	}
	if !cmp.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Captured:       %s\n", cmp.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	}
	b.WriteString("\n")

	banner(&b, "SUMMARY")
	fmt.Fprintf(&b, "Baseline time:   %.3fs\n", cmp.BaselineSeconds)
	fmt.Fprintf(&b, "Reform time:     %.3fs\n", cmp.ReformSeconds)
	if cmp.RatiosDefined {
		prn.Fprintf(&b, "Overhead:        %.3fs (%.0f%% slower)\n", cmp.OverheadSeconds, *cmp.OverheadPct)
		fmt.Fprintf(&b, "Slowdown factor: %.1fx\n", *cmp.SlowdownFactor)
	} else {
		fmt.Fprintf(&b, "Overhead:        %.3fs\n", cmp.OverheadSeconds)
		b.WriteString("Slowdown factor: n/a (baseline at or below the comparison floor)\n")
	}
	b.WriteString("\n")

	banner(&b, fmt.Sprintf("TOP %d FUNCTIONS BY CUMULATIVE TIME", len(cmp.TopFunctions)))
	writeRecordTable(&b, cmp.TopFunctions)
	b.WriteString("\n")

	if len(cmp.Calculations) > 0 {
		banner(&b, "VARIABLE CALCULATIONS")
		for _, calc := range cmp.Calculations {
			fmt.Fprintf(&b, "%s @ %s\n", calc.Variable, calc.Period)
			fmt.Fprintf(&b, "  baseline: %.3fs\n", calc.BaselineSeconds)
			fmt.Fprintf(&b, "  reform:   %.3fs\n", calc.ReformSeconds)
		}
		b.WriteString("\n")
	}

	banner(&b, "RECOMMENDATION")
	b.WriteString(recommendation(cmp))

	return b.String()
}

func writeRecordTable(b *strings.Builder, records []model.ProfileRecord) {
	if len(records) == 0 {
		b.WriteString("(no samples captured)\n")
		return
	}

	tw := tabwriter.NewWriter(b, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "samples\tself(s)\tcum(s)\tcum%\tfunction")
	for _, r := range records {
		loc := ""
		if r.File != "" {
			loc = fmt.Sprintf("  %s:%d", r.File, r.Line)
		}
		fmt.Fprintf(tw, "%d\t%.3f\t%.3f\t%.1f\t%s%s\n",
			r.Samples, r.SelfSeconds, r.CumSeconds, r.CumPercent, r.Function, loc)
	}
	tw.Flush() //nolint:errcheck
}

func recommendation(cmp *model.Comparison) string {
	if !cmp.RatiosDefined {
		return fmt.Sprintf(`Baseline construction finished at or below the comparison floor, so the
ratio metrics are undefined. Absolute overhead: %.3fs.
`, cmp.OverheadSeconds)
	}
	if *cmp.SlowdownFactor < 2 {
		return prn.Sprintf(`Reform construction adds %.3fs (%.0f%% slower than baseline). Overhead at
this level does not indicate a parameter-uprating pathology.
`, cmp.OverheadSeconds, *cmp.OverheadPct)
	}
	return prn.Sprintf(`The reform simulation takes %.1fs to create, which is %.0f%% slower
than baseline. This is primarily due to parameter uprating overhead.

See: https://github.com/PolicyEngine/policyengine-core/issues/397

Potential fixes:
1. Cache uprated parameters at the tax-benefit-system level
2. Pre-compute uprating at build time
3. Uprate lazily, only for parameters actually read
`, cmp.ReformSeconds, *cmp.OverheadPct)
}

// FormatFailureText renders a failed profiling run. A construction error
// gets its spec details spelled out; a failed run never shows timings.
func FormatFailureText(err error) string {
	var b strings.Builder

	banner(&b, "PROFILE FAILED")

	var cerr *harness.ConstructionError
	if errors.As(err, &cerr) {
		fmt.Fprintf(&b, "Kind:    %s construction\n", cerr.Kind)
		fmt.Fprintf(&b, "Country: %s\n", cerr.Country)
		fmt.Fprintf(&b, "Spec:    %d entities, %d overrides\n", cerr.Entities, cerr.Overrides)
		fmt.Fprintf(&b, "Error:   %v\n", cerr.Unwrap())
	} else {
		fmt.Fprintf(&b, "Error:   %v\n", err)
	}
	b.WriteString("\nNo timings are reported for a failed build.\n")

	return b.String()
}

// FormatVariableText renders repeated single-variable calculation timings.
func FormatVariableText(vp *model.VariableProfile) string {
	var b strings.Builder

	banner(&b, "VARIABLE CALCULATION PROFILE")
	fmt.Fprintf(&b, "Country:  %s\n", vp.Country)
	fmt.Fprintf(&b, "Variable: %s\n", vp.Variable)
	fmt.Fprintf(&b, "Period:   %s\n", vp.Period)
	fmt.Fprintf(&b, "Points:   %d (series length %d)\n\n", vp.Points, vp.SeriesLength)

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "point\ttime(s)\t")
	for i, secs := range vp.PointSeconds {
		fmt.Fprintf(tw, "%d\t%.4f\t\n", i+1, secs)
	}
	tw.Flush() //nolint:errcheck

	fmt.Fprintf(&b, "\nTotal %.3fs   mean %.4fs   min %.4fs   max %.4fs\n",
		vp.TotalSeconds, vp.MeanSeconds, vp.MinSeconds, vp.MaxSeconds)

	return b.String()
}

// FormatMemoryText renders heap growth across repeated builds.
func FormatMemoryText(mp *model.MemoryProfile) string {
	var b strings.Builder

	banner(&b, "MEMORY GROWTH PROFILE")
	fmt.Fprintf(&b, "Country: %s\n", mp.Country)
	fmt.Fprintf(&b, "Builds:  %d\n\n", mp.Builds)

	fmt.Fprintf(&b, "Heap before:  %s\n", humanize.IBytes(mp.HeapBeforeBytes))
	fmt.Fprintf(&b, "Heap after:   %s\n", humanize.IBytes(mp.HeapAfterBytes))
	fmt.Fprintf(&b, "Heap delta:   %s (%s per build)\n",
		signedBytes(mp.HeapDeltaBytes), signedBytes(mp.AvgPerBuildBytes))
	fmt.Fprintf(&b, "GC cycles:    %d\n", mp.GCCycles)
	if mp.Builds > 0 {
		fmt.Fprintf(&b, "Build time:   total %.3fs, mean %.3fs\n",
			mp.TotalSeconds, mp.TotalSeconds/float64(mp.Builds))
	}

	return b.String()
}

// signedBytes renders a possibly negative byte count in IEC units.
func signedBytes(n int64) string {
	if n < 0 {
		return "-" + humanize.IBytes(uint64(-n))
	}
	return humanize.IBytes(uint64(n))
}
