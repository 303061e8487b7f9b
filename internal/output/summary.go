package output

import (
	"fmt"
	"io"
	"sort"

	"flashcard_spider/internal/models"

	"github.com/jedib0t/go-pretty/v6/table"
)

// WriteSummary renders the end-of-run table. stats may be nil.
func WriteSummary(w io.Writer, total int, stats *models.Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Total words", total})

	if stats != nil {
		t.AppendRow(table.Row{"Unique words", stats.UniqueWords})
		t.AppendRow(table.Row{"Pages with items", stats.PagesCount})
		t.AppendRow(table.Row{"With image", stats.HasImageCount})
		t.AppendRow(table.Row{"With audio", stats.HasAudioCount})
		t.AppendRow(table.Row{"Avg examples per word", fmt.Sprintf("%.3f", stats.AvgExamplesPerWord)})

		if len(stats.CountsByPOS) > 0 {
			t.AppendSeparator()
			keys := make([]string, 0, len(stats.CountsByPOS))
			for pos := range stats.CountsByPOS {
				keys = append(keys, pos)
			}
			sort.Strings(keys)
			for _, pos := range keys {
				t.AppendRow(table.Row{"POS " + pos, stats.CountsByPOS[pos]})
			}
		}
	}
	t.Render()
}
