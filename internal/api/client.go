// Package api is the single point of contact with the TaskFlow backend. It
// attaches the bearer token, serializes requests and maps non-2xx responses
// to errors. A 401 outside the auth endpoints clears the session and fires
// the unauthorized hook; the auth endpoints surface their own 401s as plain
// credential errors.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"taskflow/internal/model"
	"taskflow/internal/session"
)

// ErrUnavailable wraps transport-level failures: the request never reached
// the server or no response came back. No retry is attempted.
var ErrUnavailable = errors.New("unable to connect to server")

// Error is a non-2xx response with the server's message when the body was
// parseable, or a generic "<operation> failed (status)" when it was not.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

type Client struct {
	baseURL        string
	httpClient     *http.Client
	session        *session.Session
	onUnauthorized func()
}

func NewClient(baseURL string, sess *session.Session) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		session:    sess,
	}
}

// SetUnauthorizedHandler registers the hook invoked when a protected request
// comes back 401. The session is already cleared by the time it runs.
func (c *Client) SetUnauthorizedHandler(fn func()) {
	c.onUnauthorized = fn
}

func (c *Client) Session() *session.Session {
	return c.session
}

type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SigninInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	User        model.User `json:"user"`
}

// Signup creates an account and stores the returned session.
func (c *Client) Signup(ctx context.Context, input SignupInput) (AuthResponse, error) {
	var result AuthResponse
	if err := c.do(ctx, request{
		op:     "Signup",
		method: http.MethodPost,
		path:   "/api/auth/signup",
		body:   input,
		auth:   true,
	}, &result); err != nil {
		return AuthResponse{}, err
	}
	if err := c.session.Set(result.AccessToken, result.User.ID); err != nil {
		return AuthResponse{}, fmt.Errorf("store session: %w", err)
	}
	return result, nil
}

// Signin exchanges credentials for a session and stores it.
func (c *Client) Signin(ctx context.Context, input SigninInput) (AuthResponse, error) {
	var result AuthResponse
	if err := c.do(ctx, request{
		op:     "Sign in",
		method: http.MethodPost,
		path:   "/api/auth/signin",
		body:   input,
		auth:   true,
	}, &result); err != nil {
		return AuthResponse{}, err
	}
	if err := c.session.Set(result.AccessToken, result.User.ID); err != nil {
		return AuthResponse{}, fmt.Errorf("store session: %w", err)
	}
	return result, nil
}

// Signout discards the stored session. Purely client-side.
func (c *Client) Signout() error {
	return c.session.Clear()
}

// ListTasksOptions are the optional server-side query params. Empty values
// are omitted from the query string.
type ListTasksOptions struct {
	Status   string
	Priority string
	Tag      string
	Search   string
	Sort     string
	Order    string
}

func (c *Client) ListTasks(ctx context.Context, opts ListTasksOptions) ([]model.Task, error) {
	query := url.Values{}
	setNonEmpty(query, "status", opts.Status)
	setNonEmpty(query, "priority", opts.Priority)
	setNonEmpty(query, "tag", opts.Tag)
	setNonEmpty(query, "search", opts.Search)
	setNonEmpty(query, "sort", opts.Sort)
	setNonEmpty(query, "order", opts.Order)

	var tasks []model.Task
	err := c.do(ctx, request{
		op:     "Load tasks",
		method: http.MethodGet,
		path:   "/api/tasks",
		query:  query,
	}, &tasks)
	return tasks, err
}

func (c *Client) GetTask(ctx context.Context, id int64) (model.Task, error) {
	var task model.Task
	err := c.do(ctx, request{
		op:     "Load task",
		method: http.MethodGet,
		path:   "/api/tasks/" + strconv.FormatInt(id, 10),
	}, &task)
	return task, err
}

func (c *Client) CreateTask(ctx context.Context, input model.TaskInput) (model.Task, error) {
	var task model.Task
	err := c.do(ctx, request{
		op:     "Create task",
		method: http.MethodPost,
		path:   "/api/tasks",
		body:   input,
	}, &task)
	return task, err
}

func (c *Client) UpdateTask(ctx context.Context, id int64, input model.TaskInput) (model.Task, error) {
	var task model.Task
	err := c.do(ctx, request{
		op:     "Update task",
		method: http.MethodPut,
		path:   "/api/tasks/" + strconv.FormatInt(id, 10),
		body:   input,
	}, &task)
	return task, err
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, request{
		op:     "Delete task",
		method: http.MethodDelete,
		path:   "/api/tasks/" + strconv.FormatInt(id, 10),
	}, nil)
}

// ToggleResult is the completion-toggle response. NextTask is non-nil when
// completing a recurring task spawned a successor.
type ToggleResult struct {
	CurrentTask model.Task  `json:"current_task"`
	NextTask    *model.Task `json:"next_task"`
}

func (c *Client) ToggleComplete(ctx context.Context, id int64) (ToggleResult, error) {
	var result ToggleResult
	err := c.do(ctx, request{
		op:     "Toggle task",
		method: http.MethodPatch,
		path:   "/api/tasks/" + strconv.FormatInt(id, 10) + "/complete",
	}, &result)
	return result, err
}

// ListNotifications lists notifications, optionally filtered by read state.
func (c *Client) ListNotifications(ctx context.Context, read *bool) ([]model.Notification, error) {
	query := url.Values{}
	if read != nil {
		query.Set("read", strconv.FormatBool(*read))
	}

	var notifications []model.Notification
	err := c.do(ctx, request{
		op:     "Load notifications",
		method: http.MethodGet,
		path:   "/api/notifications",
		query:  query,
	}, &notifications)
	return notifications, err
}

func (c *Client) MarkNotificationRead(ctx context.Context, id int64) (model.Notification, error) {
	var notification model.Notification
	err := c.do(ctx, request{
		op:     "Mark notification",
		method: http.MethodPatch,
		path:   "/api/notifications/" + strconv.FormatInt(id, 10) + "/read",
	}, &notification)
	return notification, err
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID *int64 `json:"conversation_id"`
}

type ChatResponse struct {
	ConversationID int64  `json:"conversation_id"`
	Response       string `json:"response"`
}

// SendChatMessage sends one chat turn. conversationID is nil on the first
// turn; the backend assigns one and returns it.
func (c *Client) SendChatMessage(ctx context.Context, userID, message string, conversationID *int64) (ChatResponse, error) {
	var result ChatResponse
	err := c.do(ctx, request{
		op:     "Send message",
		method: http.MethodPost,
		path:   "/api/" + url.PathEscape(userID) + "/chat",
		body:   chatRequest{Message: message, ConversationID: conversationID},
	}, &result)
	return result, err
}

type Conversation struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ConversationMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func (c *Client) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	var conversations []Conversation
	err := c.do(ctx, request{
		op:     "Load conversations",
		method: http.MethodGet,
		path:   "/api/" + url.PathEscape(userID) + "/conversations",
	}, &conversations)
	return conversations, err
}

func (c *Client) GetConversationMessages(ctx context.Context, userID string, conversationID int64) ([]ConversationMessage, error) {
	var messages []ConversationMessage
	err := c.do(ctx, request{
		op:     "Load conversation",
		method: http.MethodGet,
		path:   "/api/" + url.PathEscape(userID) + "/conversations/" + strconv.FormatInt(conversationID, 10) + "/messages",
	}, &messages)
	return messages, err
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
	auth   bool // sign-in/sign-up: 401 is a credential error, not session expiry
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
	}

	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token := c.session.Token(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && !req.auth {
		_ = c.session.Clear()
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return &Error{Status: resp.StatusCode, Message: "Session expired, please sign in again"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Status: resp.StatusCode, Message: errorMessage(req.op, resp)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", req.op, err)
	}
	return nil
}

// errorMessage surfaces the server-provided message verbatim when the body
// parses, otherwise falls back to a generic operation failure.
func errorMessage(op string, resp *http.Response) string {
	fallback := fmt.Sprintf("%s failed (%d)", op, resp.StatusCode)

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fallback
	}

	var structured struct {
		Detail string `json:"detail"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &structured); err != nil {
		return fallback
	}
	if structured.Detail != "" {
		return structured.Detail
	}
	if structured.Error != nil && structured.Error.Message != "" {
		return structured.Error.Message
	}
	return fallback
}

func setNonEmpty(query url.Values, key, value string) {
	if value != "" {
		query.Set(key, value)
	}
}
