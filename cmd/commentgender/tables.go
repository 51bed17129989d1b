package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/TobiSchelling/CommentGender/internal/classify"
	"github.com/TobiSchelling/CommentGender/internal/pipeline"
	"github.com/TobiSchelling/CommentGender/internal/youtube"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	return t
}

func printSteps(r *pipeline.Report) {
	fmt.Printf("%s - %s (run %s)\n", r.Video.ChannelTitle, r.Video.Title, r.RunID)

	t := newTable()
	t.AppendHeader(table.Row{"#", "Step", "Result", "Took"})
	for i, s := range r.Steps {
		took := ""
		if s.Duration > 0 {
			took = s.Duration.Round(10 * time.Millisecond).String()
		}
		t.AppendRow(table.Row{i + 1, s.Name, s.Summary, took})
	}
	t.Render()
}

func printRounds(result *classify.Result) {
	t := newTable()
	t.SetTitle("Rounds")
	t.AppendHeader(table.Row{"Round", "Pending", "Requests", "Resolved"})
	for _, rs := range result.Rounds {
		t.AppendRow(table.Row{rs.Round, rs.Pending, rs.Chunks, rs.Resolved})
	}
	t.AppendFooter(table.Row{"", "", result.Requests(), ""})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	t.Render()
}

func printLabels(result *classify.Result) {
	counts := result.Counts()
	total := len(result.Entries)

	t := newTable()
	t.SetTitle("Labels")
	t.AppendHeader(table.Row{"Gender", "Count", "Share"})
	for _, row := range []struct {
		name string
		g    classify.Gender
	}{
		{"Male", classify.Male},
		{"Female", classify.Female},
		{"Unknown", classify.Unknown},
	} {
		share := 0.0
		if total > 0 {
			share = 100 * float64(counts[row.g]) / float64(total)
		}
		t.AppendRow(table.Row{row.name, counts[row.g], fmt.Sprintf("%.1f%%", share)})
	}
	t.AppendFooter(table.Row{"Total", total, ""})
	t.Render()
}

func printUploads(uploads []youtube.Upload) {
	t := newTable()
	t.AppendHeader(table.Row{"Published", "Title", "URL"})
	for _, u := range uploads {
		published := ""
		if !u.Published.IsZero() {
			published = u.Published.Format("2006-01-02")
		}
		t.AppendRow(table.Row{published, text.Trim(u.Title, 60), u.URL})
	}
	t.Render()
}
