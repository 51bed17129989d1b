package pipeline

import (
	"fmt"
	"strings"

	"github.com/TobiSchelling/CommentGender/internal/classify"
)

// Summary renders a report as markdown (GitHub tables).
func Summary(r *Report) string {
	var sections []string

	title := r.Video.Title
	if title == "" {
		title = r.Video.ID
	}
	head := fmt.Sprintf("# %s\n\n**Channel:** %s  \n**Video:** `%s`  \n**Run:** `%s`",
		escape(title), escape(r.Video.ChannelTitle), r.Video.ID, r.RunID)
	if r.DryRun {
		head += "\n\n*Dry run: the model was not called.*"
	}
	sections = append(sections, head)

	var steps []string
	steps = append(steps, "| Step | Result |", "|---|---|")
	for _, s := range r.Steps {
		steps = append(steps, fmt.Sprintf("| %s | %s |", s.Name, escape(s.Summary)))
	}
	sections = append(sections, "## Steps\n\n"+strings.Join(steps, "\n"))

	if r.Result != nil {
		counts := r.Result.Counts()
		total := len(r.Result.Entries)
		labels := []string{
			"| Gender | Count | Share |",
			"|---|---:|---:|",
			labelRow("Male (M)", counts[classify.Male], total),
			labelRow("Female (F)", counts[classify.Female], total),
			labelRow("Unknown (U)", counts[classify.Unknown], total),
		}
		sections = append(sections, "## Labels\n\n"+strings.Join(labels, "\n"))

		rounds := []string{"| Round | Pending | Requests | Resolved |", "|---:|---:|---:|---:|"}
		for _, rs := range r.Result.Rounds {
			rounds = append(rounds, fmt.Sprintf("| %d | %d | %d | %d |", rs.Round, rs.Pending, rs.Chunks, rs.Resolved))
		}
		sections = append(sections, "## Rounds\n\n"+strings.Join(rounds, "\n"))
	} else {
		sections = append(sections, fmt.Sprintf("At most **%d** requests for **%d** usernames.", r.MaxRequests, r.AuthorCount))
	}

	return strings.Join(sections, "\n\n")
}

func labelRow(name string, n, total int) string {
	share := 0.0
	if total > 0 {
		share = 100 * float64(n) / float64(total)
	}
	return fmt.Sprintf("| %s | %d | %.1f%% |", name, n, share)
}

// escape keeps user-provided text from breaking table cells or emphasis.
var escape = strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`, "`", "\\`", "<", "&lt;").Replace
