// Package display provides terminal formatting for mailwatch output.
package display

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rvashist/mailwatch/internal/types"
)

var (
	// Styles
	Muted    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	Dim      = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	Bold     = lipgloss.NewStyle().Bold(true)
	Success  = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
	ErrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
	Hit      = lipgloss.NewStyle().Foreground(lipgloss.Color("#d97706")).Bold(true)
)

// SenderName extracts the display name from "Name <addr@host>" strings,
// falling back to the raw value.
func SenderName(sender string) string {
	s := strings.TrimSpace(sender)
	if i := strings.Index(s, "<"); i > 0 {
		name := strings.Trim(strings.TrimSpace(s[:i]), `"`)
		if name != "" {
			return name
		}
	}
	if s == "" {
		return "Unknown Sender"
	}
	return s
}

// TimeAgo formats a timestamp as a relative time.
func TimeAgo(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

// Truncate shortens a string to maxLen, adding ellipsis if needed.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// MatchLine prints a one-line summary of a match record.
func MatchLine(rec types.MatchRecord) {
	fmt.Printf("%s %s  %s  %s\n",
		Hit.Render("●"),
		Bold.Render(Truncate(SenderName(rec.Sender), 28)),
		Truncate(rec.Subject, 48),
		Dim.Render(TimeAgo(rec.ReceivedAt)),
	)
	fmt.Printf("  %s %s\n",
		Muted.Render("└─"),
		strings.Join(rec.MatchedFilenames, ", "),
	)
}

// MatchDetail prints a full match record including the body preview.
func MatchDetail(rec types.MatchRecord) {
	MatchLine(rec)
	if rec.BodyPreview == "" {
		return
	}
	lines := strings.Split(strings.TrimSpace(rec.BodyPreview), "\n")
	maxLines := 4
	for i, line := range lines {
		if i >= maxLines {
			fmt.Printf("     %s\n", Dim.Render(fmt.Sprintf("... (%d more lines)", len(lines)-maxLines)))
			break
		}
		fmt.Printf("     %s\n", Dim.Render(Truncate(strings.TrimSpace(line), 80)))
	}
}

// SuccessMsg prints a green checkmark + message.
func SuccessMsg(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(Success.Render("✓") + " " + msg)
}

// ErrorMsg prints a red X + message to stderr.
func ErrorMsg(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, ErrStyle.Render("✗")+" "+msg)
}

// Header prints a section header.
func Header(title string) {
	fmt.Println(Bold.Render(title))
}
