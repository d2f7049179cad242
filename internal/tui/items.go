package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"taskflow/internal/api"
	"taskflow/internal/display"
	"taskflow/internal/model"
)

type tagCountEntry struct {
	Name  string
	Count int
}

// countTags aggregates tag usage across the whole collection, most used
// first, ties broken by name.
func countTags(tasks []model.Task) []tagCountEntry {
	counts := make(map[string]int)
	for _, task := range tasks {
		for _, tag := range task.Tags {
			counts[tag]++
		}
	}

	entries := make([]tagCountEntry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, tagCountEntry{Name: name, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count == entries[j].Count {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Count > entries[j].Count
	})
	return entries
}

func formatTaskSummary(task model.Task, now time.Time) string {
	box := "[ ]"
	if task.Completed {
		box = "[x]"
	}

	parts := []string{box, display.PriorityEmoji(task.Priority), task.Title}
	if task.Recurrence != nil {
		parts = append(parts, "↻")
	}
	if task.DueDate != nil {
		parts = append(parts, fmt.Sprintf("| %s", display.Countdown(*task.DueDate, now)))
	}
	if len(task.Tags) > 0 {
		parts = append(parts, fmt.Sprintf("| %s", strings.Join(task.Tags, ",")))
	}
	return strings.Join(parts, " ")
}

// formatStats summarizes the unfiltered collection for the footer.
func formatStats(tasks []model.Task, now time.Time) string {
	completed := 0
	overdue := 0
	for _, task := range tasks {
		if task.Completed {
			completed++
			continue
		}
		if task.DueDate != nil && task.DueDate.Before(now) {
			overdue++
		}
	}
	pending := len(tasks) - completed
	return fmt.Sprintf("%d tasks | %d completed | %d pending | %d overdue", len(tasks), completed, pending, overdue)
}

// applyToggleResult folds a toggle response back into the collection: the
// toggled task is replaced where it sits, and the next occurrence of a
// recurring task, when present, goes to the front.
func applyToggleResult(tasks []model.Task, result api.ToggleResult) []model.Task {
	updated := make([]model.Task, 0, len(tasks)+1)
	if result.NextTask != nil {
		updated = append(updated, *result.NextTask)
	}
	for _, task := range tasks {
		if task.ID == result.CurrentTask.ID {
			updated = append(updated, result.CurrentTask)
			continue
		}
		updated = append(updated, task)
	}
	return updated
}

func removeNotification(notifications []model.Notification, id int64) []model.Notification {
	kept := notifications[:0]
	for _, entry := range notifications {
		if entry.ID != id {
			kept = append(kept, entry)
		}
	}
	return kept
}

func removeTask(tasks []model.Task, id int64) []model.Task {
	kept := tasks[:0]
	for _, task := range tasks {
		if task.ID != id {
			kept = append(kept, task)
		}
	}
	return kept
}
