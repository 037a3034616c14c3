package update

import (
	"fmt"
	"strings"

	domainmodel "github.com/sandeepkv93/plannerd/internal/model"
	"github.com/sandeepkv93/plannerd/internal/recurrence"
)

const previewCount = 5

// reminderMarkdown describes a pending reminder and, for a series, the
// occurrences that would follow it.
func (m Model) reminderMarkdown(rem domainmodel.Reminder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", rem.Title)
	fmt.Fprintf(&b, "- **id**: `%s`\n", rem.ID)
	fmt.Fprintf(&b, "- **fires**: %s\n", rem.FireAt.In(m.loc).Format(whenLayout))
	fmt.Fprintf(&b, "- **repeats**: %s\n", rem.Describe())
	if rem.SeriesID != "" {
		fmt.Fprintf(&b, "- **series**: `%s`\n", rem.SeriesID)
	}
	if !rem.IsRecurring {
		return b.String()
	}

	upcoming, err := recurrence.Preview(rem.FireAt.In(m.loc), rem.Recurrence, rem.EndRuleOrNever(), previewCount)
	if err != nil {
		fmt.Fprintf(&b, "\n> %v\n", err)
		return b.String()
	}
	b.WriteString("\n## Then\n\n")
	if len(upcoming) == 0 {
		b.WriteString("_last occurrence_\n")
	}
	for _, at := range upcoming {
		fmt.Fprintf(&b, "1. %s\n", at.Format(whenLayout))
	}
	return b.String()
}

func (m Model) taskMarkdown(t domainmodel.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.Title)
	fmt.Fprintf(&b, "- **id**: `%s`\n", t.ID)
	fmt.Fprintf(&b, "- **state**: %s\n", m.taskState(t))
	if t.CompletedAt != nil {
		fmt.Fprintf(&b, "- **completed**: %s\n", t.CompletedAt.In(m.loc).Format(whenLayout))
	}
	if len(t.Dependencies) > 0 {
		b.WriteString("\n## Needs\n\n")
		byID := make(map[string]domainmodel.Task, len(m.Tasks))
		for _, other := range m.Tasks {
			byID[other.ID] = other
		}
		for _, dep := range t.Dependencies {
			other, ok := byID[dep]
			switch {
			case !ok:
				fmt.Fprintf(&b, "- `%s` (missing)\n", dep)
			case other.Completed:
				fmt.Fprintf(&b, "- ~~%s~~\n", other.Title)
			default:
				fmt.Fprintf(&b, "- %s `%s`\n", other.Title, other.ID)
			}
		}
	}
	return b.String()
}
