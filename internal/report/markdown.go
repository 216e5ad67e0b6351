package report

import (
	"fmt"
	"strings"

	"github.com/policyengine/simprof/internal/model"
)

// FormatComparisonMarkdown generates a Markdown overhead report.
func FormatComparisonMarkdown(cmp *model.Comparison) string {
	var b strings.Builder

	title := cmp.Country
	if cmp.ReformName != "" {
		title += " / " + cmp.ReformName
	}
	fmt.Fprintf(&b, "# Reform Overhead Report: %s\n\n", title)

	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Baseline time: %.3fs\n", cmp.BaselineSeconds)
	fmt.Fprintf(&b, "- Reform time: %.3fs\n", cmp.ReformSeconds)
	fmt.Fprintf(&b, "- Overhead: %.3fs\n", cmp.OverheadSeconds)
	if cmp.RatiosDefined {
		b.WriteString(prn.Sprintf("- Overhead: %.0f%% slower\n", *cmp.OverheadPct))
		fmt.Fprintf(&b, "- Slowdown factor: %.1fx\n", *cmp.SlowdownFactor)
	} else {
		b.WriteString("- Ratios: undefined (baseline at or below the comparison floor)\n")
	}
	if cmp.EngineVersion != "" {
		fmt.Fprintf(&b, "- Engine version: %s\n", cmp.EngineVersion)
	}
	b.WriteString("\n")

	b.WriteString("## Top Functions by Cumulative Time\n")
	if len(cmp.TopFunctions) == 0 {
		b.WriteString("No samples captured.\n\n")
	} else {
		b.WriteString("| # | Function | Samples | Self (s) | Cumulative (s) | Cum % |\n")
		b.WriteString("|---|----------|---------|----------|----------------|-------|\n")
		for i, r := range cmp.TopFunctions {
			name := r.Function
			if r.File != "" {
				name = fmt.Sprintf("%s (%s:%d)", r.Function, r.File, r.Line)
			}
			fmt.Fprintf(&b, "| %d | %s | %d | %.3f | %.3f | %.1f |\n",
				i+1, name, r.Samples, r.SelfSeconds, r.CumSeconds, r.CumPercent)
		}
		b.WriteString("\n")
	}

	if len(cmp.Calculations) > 0 {
		b.WriteString("## Variable Calculations\n")
		for _, calc := range cmp.Calculations {
			fmt.Fprintf(&b, "- **%s** @ %s: baseline %.3fs, reform %.3fs\n",
				calc.Variable, calc.Period, calc.BaselineSeconds, calc.ReformSeconds)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// FormatVariableMarkdown generates a Markdown variable-timing report.
func FormatVariableMarkdown(vp *model.VariableProfile) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Variable Profile: %s\n\n", vp.Variable)

	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Country: %s\n", vp.Country)
	fmt.Fprintf(&b, "- Period: %s\n", vp.Period)
	fmt.Fprintf(&b, "- Points: %d\n", vp.Points)
	fmt.Fprintf(&b, "- Series length: %d\n", vp.SeriesLength)
	fmt.Fprintf(&b, "- Total: %.3fs (mean %.4fs, min %.4fs, max %.4fs)\n\n",
		vp.TotalSeconds, vp.MeanSeconds, vp.MinSeconds, vp.MaxSeconds)

	b.WriteString("## Per-Point Timings\n")
	b.WriteString("| Point | Time (s) |\n")
	b.WriteString("|-------|----------|\n")
	for i, secs := range vp.PointSeconds {
		fmt.Fprintf(&b, "| %d | %.4f |\n", i+1, secs)
	}
	b.WriteString("\n")

	return b.String()
}

// FormatMemoryMarkdown generates a Markdown memory-growth report.
func FormatMemoryMarkdown(mp *model.MemoryProfile) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Memory Profile: %s\n\n", mp.Country)

	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Builds: %d\n", mp.Builds)
	fmt.Fprintf(&b, "- Heap before: %s\n", signedBytes(int64(mp.HeapBeforeBytes)))
	fmt.Fprintf(&b, "- Heap after: %s\n", signedBytes(int64(mp.HeapAfterBytes)))
	fmt.Fprintf(&b, "- Heap delta: %s (%s per build)\n",
		signedBytes(mp.HeapDeltaBytes), signedBytes(mp.AvgPerBuildBytes))
	fmt.Fprintf(&b, "- GC cycles: %d\n", mp.GCCycles)
	fmt.Fprintf(&b, "- Build time: %.3fs total\n\n", mp.TotalSeconds)

	return b.String()
}
