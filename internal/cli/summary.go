package cli

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"tourism_watch/internal/listing"
	"tourism_watch/internal/models"
)

func renderListings(w io.Writer, res *listing.Result) {
	withHost, withPermit := 0, 0
	for _, r := range res.Records {
		if r.Host != nil {
			withHost++
		}
		if r.Permit != nil {
			withPermit++
		}
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Listings")
	t.AppendHeader(table.Row{"Pages", "Listings", "With host", "With permit", "File"})
	t.AppendRow(table.Row{res.Pages, len(res.Records), withHost, withPermit, res.File})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func renderExports(w io.Writer, results []models.ExportResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Registry exports")
	t.AppendHeader(table.Row{"Activity", "File", "Duration"})
	for _, r := range results {
		t.AppendRow(table.Row{r.Job.ActivityName, r.FilePath, r.Duration.Round(time.Second).String()})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
