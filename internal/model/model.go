package model

import "time"

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PriorityNone   Priority = "none"
)

// Rank orders priorities for sorting: high=3, medium=2, low=1, none=0.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

type RecurrenceType string

const (
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
)

type Recurrence struct {
	Type     RecurrenceType `json:"type"`
	Interval int            `json:"interval"`
	Days     []int          `json:"days,omitempty"` // weekly only: 1=Monday .. 7=Sunday
}

type Task struct {
	ID                    int64       `json:"id"`
	UserID                string      `json:"user_id"`
	Title                 string      `json:"title"`
	Description           string      `json:"description,omitempty"`
	Completed             bool        `json:"completed"`
	Priority              Priority    `json:"priority"`
	Tags                  []string    `json:"tags"`
	Recurrence            *Recurrence `json:"recurrence,omitempty"`
	DueDate               *time.Time  `json:"due_date,omitempty"`
	ReminderOffsetMinutes *int        `json:"reminder_offset_minutes,omitempty"`
	ParentTaskID          *int64      `json:"parent_task_id,omitempty"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

type TaskInput struct {
	Title                 string      `json:"title"`
	Description           string      `json:"description,omitempty"`
	Priority              Priority    `json:"priority,omitempty"`
	Tags                  []string    `json:"tags,omitempty"`
	Recurrence            *Recurrence `json:"recurrence,omitempty"`
	DueDate               *time.Time  `json:"due_date,omitempty"`
	ReminderOffsetMinutes *int        `json:"reminder_offset_minutes,omitempty"`
}

type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusPending   StatusFilter = "pending"
	StatusCompleted StatusFilter = "completed"
)

type SortField string

const (
	SortCreatedAt SortField = "created_at"
	SortTitle     SortField = "title"
	SortPriority  SortField = "priority"
	SortDueDate   SortField = "due_date"
)

type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// FilterState is the client-side view configuration. It is ephemeral except
// when saved as a named view.
type FilterState struct {
	Status   StatusFilter `json:"status"`
	Priority string       `json:"priority"` // priority name or "all"
	Tag      string       `json:"tag"`      // empty = no tag filter
	Sort     SortField    `json:"sort"`
	Order    SortOrder    `json:"order"`
}

func DefaultFilter() FilterState {
	return FilterState{
		Status:   StatusAll,
		Priority: "all",
		Tag:      "",
		Sort:     SortCreatedAt,
		Order:    OrderDesc,
	}
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Notification struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	TaskID    int64     `json:"task_id"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// SavedView is a named FilterState persisted in the local store.
type SavedView struct {
	ID        int64
	Name      string
	Filter    FilterState
	CreatedAt time.Time
	UpdatedAt time.Time
}
