package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"

	"taskflow/internal/form"
	"taskflow/internal/model"
)

type formField struct {
	Label string
	Value string
}

const (
	fieldTitle = iota
	fieldDescription
	fieldPriority
	fieldTags
	fieldDue
	fieldReminder
	fieldRepeat
	fieldInterval
	fieldDays

	basicFieldCount = fieldDue
)

type formState struct {
	taskID       int64
	fields       []formField
	index        int
	showAdvanced bool
	submitting   bool
}

type formEditor struct {
	ui *UI
}

func buildFormFields(task *model.Task) []formField {
	fields := []formField{
		{Label: "Title"},
		{Label: "Description"},
		{Label: "Priority (space/←→)"},
		{Label: "Tags (comma separated)"},
		{Label: "Due (YYYY-MM-DD HH:MM)"},
		{Label: "Reminder (space/←→)"},
		{Label: "Repeat (space/←→)"},
		{Label: "Every (interval)"},
		{Label: "Days (1=Mon..7=Sun)"},
	}

	fields[fieldPriority].Value = string(model.PriorityNone)
	fields[fieldReminder].Value = "none"
	fields[fieldRepeat].Value = "none"
	fields[fieldInterval].Value = "1"
	if task == nil {
		return fields
	}

	fields[fieldTitle].Value = task.Title
	fields[fieldDescription].Value = task.Description
	if task.Priority != "" {
		fields[fieldPriority].Value = string(task.Priority)
	}
	fields[fieldTags].Value = strings.Join(task.Tags, ",")
	if task.DueDate != nil {
		fields[fieldDue].Value = task.DueDate.Format("2006-01-02 15:04")
	}
	if task.ReminderOffsetMinutes != nil {
		fields[fieldReminder].Value = strconv.Itoa(*task.ReminderOffsetMinutes)
	}
	if task.Recurrence != nil {
		fields[fieldRepeat].Value = string(task.Recurrence.Type)
		fields[fieldInterval].Value = strconv.Itoa(task.Recurrence.Interval)
		fields[fieldDays].Value = joinDays(task.Recurrence.Days)
	}

	return fields
}

// parseFormFields folds the raw field values into the form model, which owns
// validation, and returns the submission payload.
func parseFormFields(fields []formField) (model.TaskInput, error) {
	f := form.New()
	f.Title = strings.TrimSpace(fields[fieldTitle].Value)
	f.Description = strings.TrimSpace(fields[fieldDescription].Value)
	f.Priority = model.Priority(strings.TrimSpace(fields[fieldPriority].Value))

	for _, tag := range strings.Split(fields[fieldTags].Value, ",") {
		if strings.TrimSpace(tag) == "" {
			continue
		}
		if err := f.AddTag(tag); err != nil {
			return model.TaskInput{}, err
		}
	}

	due, err := parseDue(fields[fieldDue].Value)
	if err != nil {
		return model.TaskInput{}, err
	}
	f.SetDueDate(due)

	reminder := strings.TrimSpace(fields[fieldReminder].Value)
	if reminder != "" && reminder != "none" {
		minutes, err := strconv.Atoi(reminder)
		if err != nil {
			return model.TaskInput{}, form.ErrInvalidReminder
		}
		f.ReminderOffsetMinutes = minutes
	}

	repeat := strings.TrimSpace(strings.ToLower(fields[fieldRepeat].Value))
	if repeat != "" && repeat != "none" {
		f.SetRecurrenceType(model.RecurrenceType(repeat))
		interval, err := strconv.Atoi(strings.TrimSpace(fields[fieldInterval].Value))
		if err != nil {
			return model.TaskInput{}, form.ErrInvalidInterval
		}
		f.RecurrenceInterval = interval
		if repeat == string(model.RecurrenceWeekly) {
			days, err := parseDays(fields[fieldDays].Value)
			if err != nil {
				return model.TaskInput{}, err
			}
			f.RecurrenceDays = days
		}
	}

	return f.Input()
}

func parseDue(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02"} {
		if parsed, err := time.ParseInLocation(layout, trimmed, time.Local); err == nil {
			return &parsed, nil
		}
	}
	return nil, fmt.Errorf("invalid due date")
}

func parseDays(value string) ([]int, error) {
	parts := strings.Split(value, ",")
	days := make([]int, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		day, err := strconv.Atoi(trimmed)
		if err != nil {
			return nil, form.ErrInvalidDays
		}
		days = append(days, day)
	}
	return days, nil
}

func joinDays(days []int) string {
	parts := make([]string, 0, len(days))
	for _, day := range days {
		parts = append(parts, strconv.Itoa(day))
	}
	return strings.Join(parts, ",")
}

func (u *UI) addTask(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.form = &formState{fields: buildFormFields(nil)}
	return nil
}

func (u *UI) editTask(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTaskRef()
	if selected == nil {
		return nil
	}
	u.form = &formState{
		taskID: selected.ID,
		fields: buildFormFields(selected),
		// scheduling options unfold automatically when already in use
		showAdvanced: selected.DueDate != nil || selected.Recurrence != nil,
	}
	return nil
}

func (u *UI) showForm(gui *gocui.Gui) error {
	if u.form == nil {
		return nil
	}

	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := min(14, max(8, maxY/2))
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewForm, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Wrap = true
	}
	if u.form.taskID != 0 {
		view.Title = "Edit Task"
	} else {
		view.Title = "New Task"
	}
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.formEditor
	u.renderForm(view)
	_, _ = gui.SetCurrentView(viewForm)
	return nil
}

func (u *UI) submitFormNow(gui *gocui.Gui, view *gocui.View) error {
	if u.form == nil || u.form.submitting {
		return nil
	}

	input, err := parseFormFields(u.form.fields)
	if err != nil {
		u.status = err.Error()
		return nil
	}
	taskID := u.form.taskID
	u.form.submitting = true

	go func() {
		var task model.Task
		var err error
		if taskID == 0 {
			task, err = u.client.CreateTask(context.Background(), input)
		} else {
			task, err = u.client.UpdateTask(context.Background(), taskID, input)
		}
		u.enqueue(func(g *gocui.Gui) error {
			if u.form != nil {
				u.form.submitting = false
			}
			if err != nil {
				u.status = err.Error()
				return nil
			}
			if taskID == 0 {
				u.tasks = append([]model.Task{task}, u.tasks...)
			} else {
				for i := range u.tasks {
					if u.tasks[i].ID == task.ID {
						u.tasks[i] = task
						break
					}
				}
			}
			if u.form != nil && u.form.taskID == taskID {
				u.form = nil
				if g != nil {
					_ = g.DeleteView(viewForm)
					_, _ = g.SetCurrentView(u.focus)
				}
			}
			u.status = ""
			u.derive()
			return nil
		})
	}()
	return nil
}

func (u *UI) cancelForm(gui *gocui.Gui, _ *gocui.View) error {
	u.form = nil
	_ = gui.DeleteView(viewForm)
	_, _ = gui.SetCurrentView(u.focus)
	return nil
}

func (u *UI) toggleFormAdvanced(gui *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	u.form.showAdvanced = !u.form.showAdvanced
	if !u.form.showAdvanced && u.form.index >= basicFieldCount {
		u.form.index = basicFieldCount - 1
	}
	u.renderForm(view)
	return nil
}

func (u *UI) visibleFormFields() int {
	if u.form == nil {
		return 0
	}
	if u.form.showAdvanced {
		return len(u.form.fields)
	}
	return basicFieldCount
}

func (u *UI) nextFormField(gui *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index < u.visibleFormFields()-1 {
		u.form.index++
	}
	u.renderForm(view)
	return nil
}

func (u *UI) prevFormField(gui *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index > 0 {
		u.form.index--
	}
	u.renderForm(view)
	return nil
}

func (u *UI) renderForm(view *gocui.View) {
	if u.form == nil || view == nil {
		return
	}
	view.Clear()
	count := u.visibleFormFields()
	dueEmpty := strings.TrimSpace(u.form.fields[fieldDue].Value) == ""
	for index := 0; index < count; index++ {
		field := u.form.fields[index]
		prefix := "  "
		if index == u.form.index {
			prefix = "> "
		}
		value := field.Value
		if index == fieldReminder && dueEmpty {
			value = "set a due date first"
		}
		fmt.Fprintf(view, "%s%s: %s\n", prefix, field.Label, value)
	}
	if !u.form.showAdvanced {
		fmt.Fprint(view, "\n  ctrl-a more options (due, reminder, repeat)")
	}
	label := u.form.fields[u.form.index].Label + ": "
	cursorX := len([]rune(label)) + len([]rune(u.form.fields[u.form.index].Value)) + 2
	view.SetCursor(cursorX, u.form.index)
}

func (e *formEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	if ui == nil || ui.form == nil || view == nil {
		return false
	}
	field := &ui.form.fields[ui.form.index]

	switch ui.form.index {
	case fieldPriority, fieldReminder, fieldRepeat:
		switch key {
		case gocui.KeyArrowRight, gocui.KeySpace:
			ui.form.cycleField(ui.form.index, 1)
		case gocui.KeyArrowLeft:
			ui.form.cycleField(ui.form.index, -1)
		}
		ui.renderForm(view)
		return true
	}

	switch key {
	case gocui.KeyBackspace, gocui.KeyBackspace2:
		runes := []rune(field.Value)
		if len(runes) > 0 {
			field.Value = string(runes[:len(runes)-1])
		}
	case gocui.KeySpace:
		field.Value += " "
	case gocui.KeyCtrlU:
		field.Value = ""
	}

	if ch != 0 && ch != '\n' && ch != '\r' && mod == 0 {
		field.Value += string(ch)
	}

	ui.renderForm(view)
	return true
}

var (
	priorityChoices = []string{"none", "low", "medium", "high"}
	reminderChoices = []string{"none", "5", "15", "30", "60"}
	repeatChoices   = []string{"none", "daily", "weekly", "monthly"}
)

// cycleField steps one of the choice fields. The reminder field only becomes
// selectable once a due date has been entered.
func (s *formState) cycleField(index, delta int) {
	var choices []string
	switch index {
	case fieldPriority:
		choices = priorityChoices
	case fieldReminder:
		if strings.TrimSpace(s.fields[fieldDue].Value) == "" {
			return
		}
		choices = reminderChoices
	case fieldRepeat:
		choices = repeatChoices
	default:
		return
	}
	s.fields[index].Value = cycleChoice(choices, s.fields[index].Value, delta)
}

func cycleChoice(order []string, current string, delta int) string {
	value := strings.TrimSpace(strings.ToLower(current))
	index := 0
	for i, choice := range order {
		if choice == value {
			index = i
			break
		}
	}
	index = (index + delta + len(order)) % len(order)
	return order[index]
}
