package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-loader/internal/adapters/driving/cli/styles"
	"github.com/custodia-labs/sercha-loader/internal/core/domain"
)

// maxListedFailures caps the failures printed in the summary.
const maxListedFailures = 10

// renderSummary formats a run report. A nil st renders plain text.
func renderSummary(r *domain.RunReport, st *styles.Styles) string {
	type row struct{ label, value string }
	rows := []row{
		{"Collection", fmt.Sprintf("%s (%s)", r.Collection.Name, r.Collection)},
		{"Sources", fmt.Sprintf("%d processed, %d failed of %d", r.SourcesProcessed, r.SourcesFailed, r.SourcesTotal)},
		{"Chunks", fmt.Sprintf("%d inserted, %d failed of %d", r.ChunksInserted, r.ChunksFailed, r.ChunksTotal)},
		{"Duration", r.Duration.Round(time.Millisecond).String()},
	}

	status := "Completed"
	if r.Failed() {
		status = "Completed with failures"
	}

	var b strings.Builder
	if st == nil {
		b.WriteString(status + "\n")
		for _, rw := range rows {
			fmt.Fprintf(&b, "%-12s%s\n", rw.label+":", rw.value)
		}
	} else {
		if r.Failed() {
			b.WriteString(st.Warning.Render(status))
		} else {
			b.WriteString(st.Success.Render(status))
		}
		b.WriteString("\n")
		for _, rw := range rows {
			b.WriteString(st.Label.Render(rw.label) + st.Value.Render(rw.value) + "\n")
		}
	}

	if r.Failed() {
		b.WriteString("\nFailures:\n")
		for i, f := range r.Failures {
			if i == maxListedFailures {
				fmt.Fprintf(&b, "  ... and %d more\n", len(r.Failures)-maxListedFailures)
				break
			}
			line := "  " + describeFailure(f)
			if st != nil {
				line = st.Error.Render(line)
			}
			b.WriteString(line + "\n")
		}
	}

	out := strings.TrimRight(b.String(), "\n")
	if st == nil {
		return out
	}
	return st.Title.Render("Ingestion summary") + "\n" + st.Box.Render(out)
}

func describeFailure(f domain.Failure) string {
	if f.ChunkIndex < 0 {
		return fmt.Sprintf("[%s] %s: %v", f.Stage, f.SourceURL, f.Err)
	}
	return fmt.Sprintf("[%s] %s chunk %d: %v", f.Stage, f.SourceURL, f.ChunkIndex, f.Err)
}
