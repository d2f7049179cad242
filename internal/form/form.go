// Package form captures user-entered task fields and produces validated
// TaskInput payloads. Validation happens before any network call; a form that
// fails validation never reaches the API client.
package form

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"taskflow/internal/model"
	"taskflow/internal/tags"
)

var (
	ErrTitleRequired      = errors.New("title is required")
	ErrTitleTooLong       = errors.New("title must be at most 200 characters")
	ErrDescriptionTooLong = errors.New("description must be at most 2000 characters")
	ErrTagLimit           = fmt.Errorf("at most %d tags are allowed", tags.Max)
	ErrReminderNeedsDue   = errors.New("a reminder requires a due date")
	ErrInvalidReminder    = errors.New("reminder must be 5, 15, 30 or 60 minutes")
	ErrInvalidInterval    = errors.New("recurrence interval must be at least 1")
	ErrInvalidDays        = errors.New("recurrence days must be between 1 (Mon) and 7 (Sun)")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type taskPayload struct {
	Title       string `validate:"required,max=200"`
	Description string `validate:"max=2000"`
	Priority    string `validate:"oneof=high medium low none"`
}

// TaskForm holds the editable fields of a single task.
type TaskForm struct {
	TaskID                int64 // 0 when creating
	Title                 string
	Description           string
	Priority              model.Priority
	Tags                  []string
	DueDate               *time.Time
	ReminderOffsetMinutes int // 0 = no reminder
	RecurrenceType        model.RecurrenceType
	RecurrenceInterval    int
	RecurrenceDays        []int

	// ShowAdvanced mirrors the advanced-options panel: auto-expanded when the
	// task being edited already has scheduling set.
	ShowAdvanced bool
}

func New() *TaskForm {
	return &TaskForm{
		Priority:           model.PriorityNone,
		RecurrenceInterval: 1,
	}
}

// FromTask pre-populates every field from an existing task.
func FromTask(task model.Task) *TaskForm {
	f := &TaskForm{
		TaskID:             task.ID,
		Title:              task.Title,
		Description:        task.Description,
		Priority:           task.Priority,
		Tags:               tags.Normalize(task.Tags),
		RecurrenceInterval: 1,
		ShowAdvanced:       task.DueDate != nil || task.Recurrence != nil,
	}
	if f.Priority == "" {
		f.Priority = model.PriorityNone
	}
	if task.DueDate != nil {
		due := *task.DueDate
		f.DueDate = &due
	}
	if task.ReminderOffsetMinutes != nil {
		f.ReminderOffsetMinutes = *task.ReminderOffsetMinutes
	}
	if task.Recurrence != nil {
		f.RecurrenceType = task.Recurrence.Type
		f.RecurrenceInterval = task.Recurrence.Interval
		f.RecurrenceDays = append([]int(nil), task.Recurrence.Days...)
	}
	return f
}

// AddTag normalizes and appends one tag. Adding is rejected once the cap is
// reached; invalid input is dropped silently by normalization.
func (f *TaskForm) AddTag(raw string) error {
	if len(f.Tags) >= tags.Max {
		return ErrTagLimit
	}
	f.Tags = tags.Normalize(append(f.Tags, raw))
	return nil
}

func (f *TaskForm) RemoveTag(tag string) {
	kept := f.Tags[:0]
	for _, t := range f.Tags {
		if t != tag {
			kept = append(kept, t)
		}
	}
	f.Tags = kept
}

// SetDueDate sets or clears the due date. Clearing it also clears the
// dependent reminder.
func (f *TaskForm) SetDueDate(due *time.Time) {
	f.DueDate = due
	if due == nil {
		f.ReminderOffsetMinutes = 0
	}
}

// SetRecurrenceType switches the recurrence rule. "none" clears the rule
// entirely rather than storing a disabled recurrence object.
func (f *TaskForm) SetRecurrenceType(t model.RecurrenceType) {
	f.RecurrenceType = t
	if t == "" {
		f.RecurrenceInterval = 1
		f.RecurrenceDays = nil
		return
	}
	if t != model.RecurrenceWeekly {
		f.RecurrenceDays = nil
	}
	if f.RecurrenceInterval < 1 {
		f.RecurrenceInterval = 1
	}
}

// Input validates the form and produces the submission payload.
func (f *TaskForm) Input() (model.TaskInput, error) {
	priority := f.Priority
	if priority == "" {
		priority = model.PriorityNone
	}

	payload := taskPayload{
		Title:       strings.TrimSpace(f.Title),
		Description: f.Description,
		Priority:    string(priority),
	}
	if err := validate.Struct(payload); err != nil {
		return model.TaskInput{}, translateTaskError(err)
	}

	if f.ReminderOffsetMinutes != 0 {
		if f.DueDate == nil {
			return model.TaskInput{}, ErrReminderNeedsDue
		}
		switch f.ReminderOffsetMinutes {
		case 5, 15, 30, 60:
		default:
			return model.TaskInput{}, ErrInvalidReminder
		}
	}

	input := model.TaskInput{
		Title:       payload.Title,
		Description: f.Description,
		Priority:    priority,
		Tags:        tags.Normalize(f.Tags),
	}
	if f.DueDate != nil {
		due := *f.DueDate
		input.DueDate = &due
	}
	if f.ReminderOffsetMinutes != 0 {
		offset := f.ReminderOffsetMinutes
		input.ReminderOffsetMinutes = &offset
	}

	if f.RecurrenceType != "" {
		if f.RecurrenceInterval < 1 {
			return model.TaskInput{}, ErrInvalidInterval
		}
		recurrence := &model.Recurrence{
			Type:     f.RecurrenceType,
			Interval: f.RecurrenceInterval,
		}
		if f.RecurrenceType == model.RecurrenceWeekly {
			for _, day := range f.RecurrenceDays {
				if day < 1 || day > 7 {
					return model.TaskInput{}, ErrInvalidDays
				}
			}
			recurrence.Days = append([]int(nil), f.RecurrenceDays...)
		}
		input.Recurrence = recurrence
	}

	return input, nil
}

func translateTaskError(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}
	for _, fe := range fieldErrors {
		switch fe.Field() {
		case "Title":
			if fe.Tag() == "required" {
				return ErrTitleRequired
			}
			return ErrTitleTooLong
		case "Description":
			return ErrDescriptionTooLong
		}
	}
	return err
}

