package tui

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/form"
	"taskflow/internal/model"
)

func TestBuildFormFields(t *testing.T) {
	fields := buildFormFields(nil)
	assert.Equal(t, "none", fields[fieldPriority].Value)
	assert.Equal(t, "none", fields[fieldReminder].Value)
	assert.Equal(t, "none", fields[fieldRepeat].Value)
	assert.Equal(t, "1", fields[fieldInterval].Value)

	due := time.Date(2026, 4, 2, 14, 30, 0, 0, time.Local)
	reminder := 30
	task := &model.Task{
		Title:                 "Standup",
		Description:           "daily sync",
		Priority:              model.PriorityMedium,
		Tags:                  []string{"work", "team"},
		DueDate:               &due,
		ReminderOffsetMinutes: &reminder,
		Recurrence:            &model.Recurrence{Type: model.RecurrenceWeekly, Interval: 1, Days: []int{1, 3}},
	}

	fields = buildFormFields(task)
	assert.Equal(t, "Standup", fields[fieldTitle].Value)
	assert.Equal(t, "medium", fields[fieldPriority].Value)
	assert.Equal(t, "work,team", fields[fieldTags].Value)
	assert.Equal(t, "2026-04-02 14:30", fields[fieldDue].Value)
	assert.Equal(t, "30", fields[fieldReminder].Value)
	assert.Equal(t, "weekly", fields[fieldRepeat].Value)
	assert.Equal(t, "1,3", fields[fieldDays].Value)
}

func TestParseFormFieldsRoundTrip(t *testing.T) {
	fields := buildFormFields(nil)
	fields[fieldTitle].Value = "  Plan retro  "
	fields[fieldPriority].Value = "high"
	fields[fieldTags].Value = "Work, team , work"
	fields[fieldDue].Value = "2026-04-02 14:30"
	fields[fieldReminder].Value = "15"
	fields[fieldRepeat].Value = "weekly"
	fields[fieldInterval].Value = "2"
	fields[fieldDays].Value = "1, 4"

	input, err := parseFormFields(fields)
	require.NoError(t, err)

	assert.Equal(t, "Plan retro", input.Title)
	assert.Equal(t, model.PriorityHigh, input.Priority)
	assert.Equal(t, []string{"work", "team"}, input.Tags)
	require.NotNil(t, input.DueDate)
	assert.Equal(t, time.Date(2026, 4, 2, 14, 30, 0, 0, time.Local), *input.DueDate)
	require.NotNil(t, input.ReminderOffsetMinutes)
	assert.Equal(t, 15, *input.ReminderOffsetMinutes)
	require.NotNil(t, input.Recurrence)
	assert.Equal(t, model.RecurrenceWeekly, input.Recurrence.Type)
	assert.Equal(t, 2, input.Recurrence.Interval)
	assert.Equal(t, []int{1, 4}, input.Recurrence.Days)
}

func TestParseFormFieldsErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(fields []formField)
		wantErr error
	}{
		{
			name:    "missing title",
			mutate:  func(fields []formField) {},
			wantErr: form.ErrTitleRequired,
		},
		{
			name: "reminder without due",
			mutate: func(fields []formField) {
				fields[fieldTitle].Value = "ok"
				fields[fieldReminder].Value = "15"
			},
			wantErr: form.ErrReminderNeedsDue,
		},
		{
			name: "bad due date",
			mutate: func(fields []formField) {
				fields[fieldTitle].Value = "ok"
				fields[fieldDue].Value = "tomorrow"
			},
		},
		{
			name: "bad weekly days",
			mutate: func(fields []formField) {
				fields[fieldTitle].Value = "ok"
				fields[fieldRepeat].Value = "weekly"
				fields[fieldDays].Value = "1,9"
			},
			wantErr: form.ErrInvalidDays,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := buildFormFields(nil)
			tt.mutate(fields)
			_, err := parseFormFields(fields)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestParseDue(t *testing.T) {
	got, err := parseDue("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseDue("2026-04-02")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2026, 4, 2, 0, 0, 0, 0, time.Local), *got)

	_, err = parseDue("04/02/2026")
	assert.Error(t, err)
}

func TestCycleChoice(t *testing.T) {
	assert.Equal(t, "low", cycleChoice(priorityChoices, "none", 1))
	assert.Equal(t, "none", cycleChoice(priorityChoices, "high", 1))
	assert.Equal(t, "high", cycleChoice(priorityChoices, "none", -1))
	assert.Equal(t, "5", cycleChoice(reminderChoices, "NONE", 1))
}

func TestSubmitFormRunsInBackground(t *testing.T) {
	release := make(chan struct{})
	var requests int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/tasks", r.URL.Path)
		<-release
		json.NewEncoder(w).Encode(model.Task{ID: 5, Title: "Plan retro"})
	})

	u := newTestUI(t, handler)
	u.form = &formState{fields: buildFormFields(nil)}
	u.form.fields[fieldTitle].Value = "Plan retro"

	// the handler returns while the server still holds the request,
	// and a second submit in that window is a no-op
	require.NoError(t, u.submitFormNow(nil, nil))
	assert.True(t, u.form.submitting)
	require.NoError(t, u.submitFormNow(nil, nil))

	close(release)
	require.Eventually(t, func() bool {
		return u.form == nil && len(u.tasks) == 1 && u.tasks[0].ID == 5
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, requests)
}

func TestCycleFieldReminderNeedsDue(t *testing.T) {
	state := &formState{fields: buildFormFields(nil)}

	// no due date yet: the reminder field stays put, priority still cycles
	state.cycleField(fieldReminder, 1)
	assert.Equal(t, "none", state.fields[fieldReminder].Value)
	state.cycleField(fieldPriority, 1)
	assert.Equal(t, "low", state.fields[fieldPriority].Value)

	state.fields[fieldDue].Value = "2026-04-02"
	state.cycleField(fieldReminder, 1)
	assert.Equal(t, "5", state.fields[fieldReminder].Value)
}

func TestLoginStateVisibleFields(t *testing.T) {
	signin := newLoginState(modeSignin)
	assert.Equal(t, []int{loginFieldEmail, loginFieldPassword}, signin.visibleFields())
	assert.Equal(t, loginFieldEmail, signin.index)

	signup := newLoginState(modeSignup)
	assert.Equal(t, []int{loginFieldName, loginFieldEmail, loginFieldPassword}, signup.visibleFields())
}
