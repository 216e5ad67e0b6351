package report

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/policyengine/simprof/internal/model"
)

// WriteComparisonXLSX writes a workbook with a summary sheet, the reform
// run's top functions, and per-variable timings when present.
func WriteComparisonXLSX(w io.Writer, cmp *model.Comparison) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	kvString(summary, "country", cmp.Country)
	kvString(summary, "reform", cmp.ReformName)
	kvString(summary, "engine_version", cmp.EngineVersion)
	if !cmp.CreatedAt.IsZero() {
		kvString(summary, "created_at", cmp.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	}
	kvFloat(summary, "baseline_time", cmp.BaselineSeconds)
	kvFloat(summary, "reform_time", cmp.ReformSeconds)
	kvFloat(summary, "overhead", cmp.OverheadSeconds)
	if cmp.RatiosDefined {
		kvFloat(summary, "overhead_pct", *cmp.OverheadPct)
		kvFloat(summary, "slowdown_factor", *cmp.SlowdownFactor)
	} else {
		kvString(summary, "overhead_pct", "undefined")
		kvString(summary, "slowdown_factor", "undefined")
	}

	functions, err := f.AddSheet("Top Functions")
	if err != nil {
		return eris.Wrap(err, "report: add functions sheet")
	}
	headerRow(functions, "rank", "function", "file", "line", "samples", "self_seconds", "cumulative_seconds", "cumulative_pct")
	for i, r := range cmp.TopFunctions {
		row := functions.AddRow()
		row.AddCell().SetInt(i + 1)
		row.AddCell().SetString(r.Function)
		row.AddCell().SetString(r.File)
		row.AddCell().SetInt64(r.Line)
		row.AddCell().SetInt64(r.Samples)
		row.AddCell().SetFloat(r.SelfSeconds)
		row.AddCell().SetFloat(r.CumSeconds)
		row.AddCell().SetFloat(r.CumPercent)
	}

	if len(cmp.Calculations) > 0 {
		calcs, err := f.AddSheet("Calculations")
		if err != nil {
			return eris.Wrap(err, "report: add calculations sheet")
		}
		headerRow(calcs, "variable", "period", "baseline_time", "reform_time")
		for _, c := range cmp.Calculations {
			row := calcs.AddRow()
			row.AddCell().SetString(c.Variable)
			row.AddCell().SetString(c.Period)
			row.AddCell().SetFloat(c.BaselineSeconds)
			row.AddCell().SetFloat(c.ReformSeconds)
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "report: write workbook")
	}
	return nil
}

// WriteVariableXLSX writes a workbook with summary and per-point sheets.
func WriteVariableXLSX(w io.Writer, vp *model.VariableProfile) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	kvString(summary, "country", vp.Country)
	kvString(summary, "variable", vp.Variable)
	kvString(summary, "period", vp.Period)
	kvInt(summary, "points", int64(vp.Points))
	kvInt(summary, "series_length", int64(vp.SeriesLength))
	kvFloat(summary, "total_time", vp.TotalSeconds)
	kvFloat(summary, "mean_time", vp.MeanSeconds)
	kvFloat(summary, "min_time", vp.MinSeconds)
	kvFloat(summary, "max_time", vp.MaxSeconds)

	points, err := f.AddSheet("Points")
	if err != nil {
		return eris.Wrap(err, "report: add points sheet")
	}
	headerRow(points, "point", "time_seconds")
	for i, secs := range vp.PointSeconds {
		row := points.AddRow()
		row.AddCell().SetInt(i + 1)
		row.AddCell().SetFloat(secs)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "report: write workbook")
	}
	return nil
}

// WriteMemoryXLSX writes a workbook with summary and per-build sheets.
func WriteMemoryXLSX(w io.Writer, mp *model.MemoryProfile) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	kvString(summary, "country", mp.Country)
	kvInt(summary, "builds", int64(mp.Builds))
	kvInt(summary, "heap_before_bytes", int64(mp.HeapBeforeBytes))
	kvInt(summary, "heap_after_bytes", int64(mp.HeapAfterBytes))
	kvInt(summary, "heap_delta_bytes", mp.HeapDeltaBytes)
	kvInt(summary, "avg_per_build_bytes", mp.AvgPerBuildBytes)
	kvInt(summary, "gc_cycles", int64(mp.GCCycles))
	kvFloat(summary, "total_time", mp.TotalSeconds)

	builds, err := f.AddSheet("Builds")
	if err != nil {
		return eris.Wrap(err, "report: add builds sheet")
	}
	headerRow(builds, "build", "time_seconds")
	for i, secs := range mp.BuildSeconds {
		row := builds.AddRow()
		row.AddCell().SetInt(i + 1)
		row.AddCell().SetFloat(secs)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "report: write workbook")
	}
	return nil
}

func kvString(sheet *xlsx.Sheet, key, value string) {
	row := sheet.AddRow()
	row.AddCell().SetString(key)
	row.AddCell().SetString(value)
}

func kvFloat(sheet *xlsx.Sheet, key string, value float64) {
	row := sheet.AddRow()
	row.AddCell().SetString(key)
	row.AddCell().SetFloat(value)
}

func kvInt(sheet *xlsx.Sheet, key string, value int64) {
	row := sheet.AddRow()
	row.AddCell().SetString(key)
	row.AddCell().SetInt64(value)
}

func headerRow(sheet *xlsx.Sheet, names ...string) {
	row := sheet.AddRow()
	for _, n := range names {
		row.AddCell().SetString(n)
	}
}
