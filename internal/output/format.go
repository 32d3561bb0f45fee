// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"tasksync/internal/repo"
)

const (
	// ListSeparator is the separator line for list sections.
	ListSeparator = "------------"
)

// FormatTask formats a numbered task line for the default list.
// Subtasks are indented two spaces per level after the number column.
func FormatTask(w io.Writer, num int, t repo.TaskView) {
	fmt.Fprintf(w, "%4d  %s%s\n", num, indentPrefix(t.Indent), normalizeTitle(t.Title))
}

// FormatTaskRef formats a task line addressed by a list letter, e.g.
// "  a1  Buy milk".
func FormatTaskRef(w io.Writer, letter rune, num int, t repo.TaskView) {
	ref := fmt.Sprintf("%c%d", letter, num)
	fmt.Fprintf(w, "%4s  %s%s\n", ref, indentPrefix(t.Indent), normalizeTitle(t.Title))
}

// FormatListHeader formats a list section header.
func FormatListHeader(w io.Writer, title string, isDefault bool) {
	displayTitle := normalizeListTitle(title)
	if isDefault {
		displayTitle += " [default]"
	}
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintln(w, displayTitle)
	fmt.Fprintln(w, ListSeparator)
}

// FormatListName formats a list line for the lists command. Lists with
// changes the remote has not seen yet are marked with an asterisk.
func FormatListName(w io.Writer, l repo.TaskListView) {
	title := normalizeListTitle(l.Title)
	if l.Default {
		title += " [default]"
	}
	if !l.Synced {
		title += " *"
	}
	fmt.Fprintln(w, title)
}

func indentPrefix(indent int) string {
	return strings.Repeat("  ", indent)
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

// normalizeListTitle normalizes a list title for display.
func normalizeListTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
