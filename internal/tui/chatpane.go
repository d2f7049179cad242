package tui

import (
	"context"
	"fmt"
	"strings"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"

	"taskflow/internal/api"
	"taskflow/internal/chat"
)

// chatSender bridges the chat session to the HTTP client.
type chatSender struct {
	client *api.Client
}

func (s chatSender) Send(ctx context.Context, userID, message string, conversationID *int64) (chat.Reply, error) {
	resp, err := s.client.SendChatMessage(ctx, userID, message, conversationID)
	if err != nil {
		return chat.Reply{}, err
	}
	return chat.Reply{ConversationID: resp.ConversationID, Text: resp.Response}, nil
}

// startChat wires a fresh assistant session for the signed-in user. Replies
// that look like they changed tasks trigger a background reload.
func (u *UI) startChat() {
	userID := u.client.Session().UserID()
	u.chatSes = chat.NewSession(userID, chatSender{client: u.client}, chat.WithMutationHandler(u.loadTasks))
}

func (u *UI) openChat(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.chatSes == nil {
		return nil
	}
	u.chatActive = true
	return nil
}

func (u *UI) closeChat(gui *gocui.Gui, _ *gocui.View) error {
	u.chatActive = false
	_ = gui.DeleteView(viewChat)
	_ = gui.DeleteView(viewChatInput)
	_, _ = gui.SetCurrentView(u.focus)
	return nil
}

func (u *UI) clearChat(gui *gocui.Gui, _ *gocui.View) error {
	if u.chatSes != nil {
		u.chatSes.Clear()
	}
	return nil
}

func (u *UI) sendChatMessage(gui *gocui.Gui, view *gocui.View) error {
	// captured before the dispatch: signing out swaps u.chatSes on the main loop
	ses := u.chatSes
	if ses == nil || ses.Busy() {
		return nil
	}
	text := strings.TrimSpace(view.Buffer())
	if text == "" {
		return nil
	}
	view.Clear()
	view.SetCursor(0, 0)
	u.dispatchChat(ses, text)
	return nil
}

// dispatchChat runs Send off the UI loop. It holds its own session reference
// so an in-flight send still lands on the session it started on.
func (u *UI) dispatchChat(ses *chat.Session, text string) {
	go func() {
		ses.Send(context.Background(), text)
		u.enqueue(func(*gocui.Gui) error { return nil })
	}()
}

func (u *UI) showChat(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(50, maxX*2/5)
	x0 := maxX - width - 1
	y0 := 1
	y1 := maxY - 4
	if y1 <= y0+4 {
		return nil
	}
	inputY0 := y1 - 2

	view, err := gui.SetView(viewChat, x0, y0, maxX-1, inputY0-1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Assistant"
		view.Wrap = true
		view.Autoscroll = true
	}
	applyViewStyle(view, true, false)
	u.renderChat(view)

	inputView, err := gui.SetView(viewChatInput, x0, inputY0, maxX-1, y1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		inputView.Title = "Message (enter send, esc close, ctrl-l clear)"
		inputView.Wrap = true
	}
	inputView.Editable = !u.chatSes.Busy()
	inputView.Editor = gocui.DefaultEditor
	_, _ = gui.SetCurrentView(viewChatInput)
	return nil
}

func (u *UI) renderChat(view *gocui.View) {
	view.Clear()
	if u.chatSes == nil {
		return
	}

	transcript := u.chatSes.Transcript()
	if len(transcript) == 0 {
		fmt.Fprint(view, "Ask about your tasks, or tell me to add one.")
		return
	}
	for _, message := range transcript {
		speaker := "you"
		if message.Role == chat.RoleAssistant {
			speaker = "assistant"
		}
		fmt.Fprintf(view, "%s: %s\n\n", speaker, message.Content)
	}
	if u.chatSes.Busy() {
		fmt.Fprint(view, "assistant is typing...")
	}
}
