package query

import (
	"sort"
	"strings"

	"taskflow/internal/model"
)

// Apply derives the ordered task list for display from the full collection.
// Stages run in a fixed order: search, status filter, priority filter, tag
// filter, then a stable sort on the configured field. The input slice is not
// mutated and the result is safe to recompute on every change.
func Apply(tasks []model.Task, search string, filter model.FilterState) []model.Task {
	result := make([]model.Task, 0, len(tasks))
	result = append(result, tasks...)

	if search != "" {
		needle := strings.ToLower(search)
		result = keep(result, func(t model.Task) bool {
			return strings.Contains(strings.ToLower(t.Title), needle) ||
				strings.Contains(strings.ToLower(t.Description), needle)
		})
	}

	if filter.Status != model.StatusAll && filter.Status != "" {
		completed := filter.Status == model.StatusCompleted
		result = keep(result, func(t model.Task) bool {
			return t.Completed == completed
		})
	}

	if filter.Priority != "all" && filter.Priority != "" {
		result = keep(result, func(t model.Task) bool {
			return string(t.Priority) == filter.Priority
		})
	}

	if filter.Tag != "" {
		result = keep(result, func(t model.Task) bool {
			for _, tag := range t.Tags {
				if tag == filter.Tag {
					return true
				}
			}
			return false
		})
	}

	sort.SliceStable(result, func(i, j int) bool {
		cmp := compare(result[i], result[j], filter.Sort)
		if filter.Order == model.OrderAsc {
			return cmp < 0
		}
		return cmp > 0
	})

	return result
}

func keep(tasks []model.Task, pred func(model.Task) bool) []model.Task {
	filtered := tasks[:0]
	for _, task := range tasks {
		if pred(task) {
			filtered = append(filtered, task)
		}
	}
	return filtered
}

func compare(a, b model.Task, field model.SortField) int {
	switch field {
	case model.SortTitle:
		return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case model.SortPriority:
		return a.Priority.Rank() - b.Priority.Rank()
	case model.SortDueDate:
		// Tasks without a due date sort as timestamp 0, i.e. before all dated
		// tasks in ascending order.
		return compareInt64(dueUnix(a), dueUnix(b))
	default:
		return compareInt64(a.CreatedAt.UnixMilli(), b.CreatedAt.UnixMilli())
	}
}

func dueUnix(t model.Task) int64 {
	if t.DueDate == nil {
		return 0
	}
	return t.DueDate.UnixMilli()
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
