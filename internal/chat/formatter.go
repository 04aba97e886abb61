package chat

import (
	"strings"

	"tunesmith/internal/core"
	"tunesmith/internal/i18n"
)

// maxRenderedEntries caps how many tracks are listed in the chat reply.
const maxRenderedEntries = 5

// Formatter renders pipeline results into chat text.
type Formatter struct {
	localizer *i18n.Localizer
}

func NewFormatter(localizer *i18n.Localizer) *Formatter {
	return &Formatter{localizer: localizer}
}

// FormatResult renders a terminal pipeline result. Chat and settings results
// pass through; playlist results get the full rendering.
func (f *Formatter) FormatResult(result *core.Result) string {
	switch result.Type {
	case core.ResultChat, core.ResultSettings:
		return result.Message
	case core.ResultPlaylist:
		return f.formatPlaylist(result.Playlist, result.Plan)
	default:
		return f.localizer.T("error.generic")
	}
}

func (f *Formatter) formatPlaylist(playlist *core.Playlist, plan *core.Plan) string {
	if playlist == nil || len(playlist.Entries) == 0 {
		return f.localizer.T("playlist.empty")
	}

	var b strings.Builder

	b.WriteString(f.localizer.T("playlist.header", playlist.Name, playlist.Description))

	shown := min(maxRenderedEntries, len(playlist.Entries))
	for _, entry := range playlist.Entries[:shown] {
		b.WriteString(f.localizer.T("playlist.entry", entry.Position, entry.Title, entry.Artist))
		b.WriteString("\n")
	}
	if remaining := len(playlist.Entries) - shown; remaining > 0 {
		b.WriteString(f.localizer.T("playlist.more", remaining))
		b.WriteString("\n")
	}

	if playlist.FlowDescription != "" {
		b.WriteString(f.localizer.T("playlist.flow", playlist.FlowDescription))
	}
	if playlist.EstimatedDuration != "" {
		b.WriteString(f.localizer.T("playlist.duration", playlist.EstimatedDuration))
	}

	if plan != nil && plan.Strategy != "" {
		b.WriteString(f.localizer.T("playlist.strategy", plan.Strategy))
	}
	if plan != nil && plan.InferredMood != "" {
		b.WriteString(f.localizer.T("playlist.mood", plan.InferredMood))
	}

	if playlist.URL != "" {
		b.WriteString(f.localizer.T("playlist.url", playlist.URL))
	} else if playlist.MaterializeError != "" {
		b.WriteString("\n")
		b.WriteString(f.localizer.T("playlist.local_only"))
	}

	return b.String()
}
