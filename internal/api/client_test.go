package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/model"
	"taskflow/internal/session"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *session.Session) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	sess, err := session.Load(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)
	return NewClient(server.URL, sess), sess
}

func TestSigninStoresSession(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/signin", r.URL.Path)

		var input SigninInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		assert.Equal(t, "a@b.co", input.Email)

		json.NewEncoder(w).Encode(AuthResponse{
			AccessToken: "token-123",
			TokenType:   "bearer",
			User:        model.User{ID: "user-9", Email: "a@b.co"},
		})
	})

	client, sess := newTestClient(t, handler)
	resp, err := client.Signin(context.Background(), SigninInput{Email: "a@b.co", Password: "secret123"})
	require.NoError(t, err)

	assert.Equal(t, "token-123", resp.AccessToken)
	assert.Equal(t, "token-123", sess.Token())
	assert.Equal(t, "user-9", sess.UserID())
	assert.True(t, sess.Authenticated())
}

func TestBearerTokenAttached(t *testing.T) {
	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]model.Task{})
	})

	client, sess := newTestClient(t, handler)
	require.NoError(t, sess.Set("abc", "user-1"))

	_, err := client.ListTasks(context.Background(), ListTasksOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", gotAuth)
}

func TestListTasksOmitsEmptyParams(t *testing.T) {
	var gotQuery string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode([]model.Task{})
	})

	client, _ := newTestClient(t, handler)

	_, err := client.ListTasks(context.Background(), ListTasksOptions{})
	require.NoError(t, err)
	assert.Empty(t, gotQuery)

	_, err = client.ListTasks(context.Background(), ListTasksOptions{Status: "pending", Sort: "due_date"})
	require.NoError(t, err)
	assert.Equal(t, "sort=due_date&status=pending", gotQuery)
}

func TestUnauthorizedClearsSessionAndFiresHook(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	client, sess := newTestClient(t, handler)
	require.NoError(t, sess.Set("stale", "user-1"))

	fired := false
	client.SetUnauthorizedHandler(func() { fired = true })

	_, err := client.ListTasks(context.Background(), ListTasksOptions{})
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Session expired, please sign in again", apiErr.Message)
	assert.True(t, fired)
	assert.False(t, sess.Authenticated())
}

func TestUnauthorizedOnSigninKeepsSession(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Invalid credentials"})
	})

	client, sess := newTestClient(t, handler)
	require.NoError(t, sess.Set("existing", "user-1"))

	fired := false
	client.SetUnauthorizedHandler(func() { fired = true })

	_, err := client.Signin(context.Background(), SigninInput{Email: "a@b.co", Password: "wrong"})
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.False(t, fired)
	// a failed sign-in never clobbers the current session
	assert.True(t, sess.Authenticated())
}

func TestErrorMessageParsing(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "detail field",
			body: `{"detail": "Task not found"}`,
			want: "Task not found",
		},
		{
			name: "nested error message",
			body: `{"error": {"message": "Too many tags"}}`,
			want: "Too many tags",
		},
		{
			name: "unparseable body falls back",
			body: `<html>Internal Server Error</html>`,
			want: "Load tasks failed (500)",
		},
		{
			name: "empty json falls back",
			body: `{}`,
			want: "Load tasks failed (500)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(tt.body))
			})

			client, _ := newTestClient(t, handler)
			_, err := client.ListTasks(context.Background(), ListTasksOptions{})
			require.Error(t, err)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.want, apiErr.Message)
		})
	}
}

func TestToggleComplete(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/tasks/5/complete", r.URL.Path)
		w.Write([]byte(`{
			"current_task": {"id": 5, "title": "Water plants", "completed": true},
			"next_task": {"id": 6, "title": "Water plants", "completed": false}
		}`))
	})

	client, _ := newTestClient(t, handler)
	result, err := client.ToggleComplete(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, int64(5), result.CurrentTask.ID)
	assert.True(t, result.CurrentTask.Completed)
	require.NotNil(t, result.NextTask)
	assert.Equal(t, int64(6), result.NextTask.ID)
}

func TestToggleCompleteNonRecurring(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"current_task": {"id": 5, "completed": true}, "next_task": null}`))
	})

	client, _ := newTestClient(t, handler)
	result, err := client.ToggleComplete(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, result.NextTask)
}

func TestSendChatMessage(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/user-1/chat", r.URL.Path)

		var req struct {
			Message        string `json:"message"`
			ConversationID *int64 `json:"conversation_id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "add milk", req.Message)
		assert.Nil(t, req.ConversationID)

		json.NewEncoder(w).Encode(ChatResponse{ConversationID: 11, Response: "added \"milk\""})
	})

	client, _ := newTestClient(t, handler)
	resp, err := client.SendChatMessage(context.Background(), "user-1", "add milk", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(11), resp.ConversationID)
	assert.Equal(t, `added "milk"`, resp.Response)
}

func TestGetTask(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/tasks/7", r.URL.Path)
		json.NewEncoder(w).Encode(model.Task{ID: 7, Title: "Water plants"})
	})

	client, _ := newTestClient(t, handler)
	task, err := client.GetTask(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Water plants", task.Title)
}

func TestConversationHistory(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/user-1/conversations":
			json.NewEncoder(w).Encode([]Conversation{{ID: 4, Title: "groceries"}})
		case "/api/user-1/conversations/4/messages":
			json.NewEncoder(w).Encode([]ConversationMessage{
				{Role: "user", Content: "add milk"},
				{Role: "assistant", Content: `added "milk"`},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	client, _ := newTestClient(t, handler)

	conversations, err := client.ListConversations(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	assert.Equal(t, int64(4), conversations[0].ID)

	messages, err := client.GetConversationMessages(context.Background(), "user-1", 4)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "assistant", messages[1].Role)
}

func TestTransportErrorWrapsUnavailable(t *testing.T) {
	sess, err := session.Load(filepath.Join(t.TempDir(), "session.json"))
	require.NoError(t, err)

	client := NewClient("http://127.0.0.1:1", sess)
	_, err = client.ListTasks(context.Background(), ListTasksOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestMarkNotificationRead(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/notifications/3/read", r.URL.Path)
		json.NewEncoder(w).Encode(model.Notification{ID: 3, Read: true})
	})

	client, _ := newTestClient(t, handler)
	notification, err := client.MarkNotificationRead(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, notification.Read)
}
