// Package report renders profiling results for humans: the CLI text
// report, JSON, Markdown, and XLSX workbooks. Renderers only read the
// result records; every derived number is computed upstream.
package report

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/policyengine/simprof/internal/model"
)

// Format selects an output rendering.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatXLSX     Format = "xlsx"
)

// ParseFormat validates a format name from a flag or request. Empty means
// text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatMarkdown, FormatXLSX:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", eris.Errorf("report: unknown format %q (want text, json, markdown or xlsx)", s)
	}
}

// WriteComparison renders a comparison in the selected format.
func WriteComparison(w io.Writer, f Format, cmp *model.Comparison) error {
	switch f {
	case FormatText:
		_, err := io.WriteString(w, FormatComparisonText(cmp))
		return err
	case FormatJSON:
		return writeJSON(w, cmp)
	case FormatMarkdown:
		_, err := io.WriteString(w, FormatComparisonMarkdown(cmp))
		return err
	case FormatXLSX:
		return WriteComparisonXLSX(w, cmp)
	default:
		return eris.Errorf("report: unknown format %q", f)
	}
}

// WriteVariable renders a variable profile in the selected format.
func WriteVariable(w io.Writer, f Format, vp *model.VariableProfile) error {
	switch f {
	case FormatText:
		_, err := io.WriteString(w, FormatVariableText(vp))
		return err
	case FormatJSON:
		return writeJSON(w, vp)
	case FormatMarkdown:
		_, err := io.WriteString(w, FormatVariableMarkdown(vp))
		return err
	case FormatXLSX:
		return WriteVariableXLSX(w, vp)
	default:
		return eris.Errorf("report: unknown format %q", f)
	}
}

// WriteMemory renders a memory profile in the selected format.
func WriteMemory(w io.Writer, f Format, mp *model.MemoryProfile) error {
	switch f {
	case FormatText:
		_, err := io.WriteString(w, FormatMemoryText(mp))
		return err
	case FormatJSON:
		return writeJSON(w, mp)
	case FormatMarkdown:
		_, err := io.WriteString(w, FormatMemoryMarkdown(mp))
		return err
	case FormatXLSX:
		return WriteMemoryXLSX(w, mp)
	default:
		return eris.Errorf("report: unknown format %q", f)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "report: encode json")
	}
	return nil
}
