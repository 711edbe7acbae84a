package styleui

import (
	"fmt"
	"strings"

	"github.com/joskode/wna/pkg/orchestrator"
)

// RenderEvent formats one orchestrator.Event as a single styled line,
// generalized from kerbaras-mangas/pkg/app/components/progress.go's
// per-chapter line (chapter text + status style + optional error line)
// down to a print-as-it-arrives line since this CLI has no TUI render
// loop to redraw against.
func RenderEvent(ev orchestrator.Event) string {
	var b strings.Builder

	b.WriteString(MutedStyle.Render(ev.Story))
	b.WriteString(" ")
	b.WriteString(PhaseStyle(string(ev.Phase)).Render(string(ev.Phase)))

	if ev.ChapterURL != "" {
		b.WriteString(" ")
		b.WriteString(TextStyle.Render(ev.ChapterURL))
	}

	if ev.Err != nil {
		b.WriteString(" ")
		b.WriteString(StatusError.Render(fmt.Sprintf("error: %s", ev.Err)))
	}

	return b.String()
}
