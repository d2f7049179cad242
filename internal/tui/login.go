package tui

import (
	"context"
	"fmt"
	"strings"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"

	"taskflow/internal/api"
	"taskflow/internal/form"
)

type loginMode string

const (
	modeSignin loginMode = "signin"
	modeSignup loginMode = "signup"
)

const (
	loginFieldName = iota
	loginFieldEmail
	loginFieldPassword
)

type loginState struct {
	mode   loginMode
	fields []formField
	index  int
	errMsg string
	busy   bool
}

type loginEditor struct {
	ui *UI
}

func newLoginState(mode loginMode) *loginState {
	state := &loginState{
		mode: mode,
		fields: []formField{
			{Label: "Name"},
			{Label: "Email"},
			{Label: "Password"},
		},
	}
	if mode == modeSignin {
		state.index = loginFieldEmail
	}
	return state
}

func (s *loginState) visibleFields() []int {
	if s.mode == modeSignup {
		return []int{loginFieldName, loginFieldEmail, loginFieldPassword}
	}
	return []int{loginFieldEmail, loginFieldPassword}
}

func (u *UI) showLogin(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(50, maxX/3)
	height := 8
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewLogin, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Wrap = true
	}
	if u.login.mode == modeSignup {
		view.Title = "Sign Up"
	} else {
		view.Title = "Sign In"
	}
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.loginEditor
	u.renderLogin(view)
	_, _ = gui.SetCurrentView(viewLogin)
	return nil
}

func (u *UI) renderLogin(view *gocui.View) {
	if u.login == nil || view == nil {
		return
	}
	view.Clear()

	row := 0
	cursorRow := 0
	cursorX := 0
	for _, index := range u.login.visibleFields() {
		field := u.login.fields[index]
		prefix := "  "
		if index == u.login.index {
			prefix = "> "
			cursorRow = row
			cursorX = len([]rune(field.Label+": ")) + len([]rune(maskField(index, field.Value))) + 2
		}
		fmt.Fprintf(view, "%s%s: %s\n", prefix, field.Label, maskField(index, field.Value))
		row++
	}

	switchLabel := "need an account? ctrl-t to sign up"
	if u.login.mode == modeSignup {
		switchLabel = "have an account? ctrl-t to sign in"
	}
	fmt.Fprintf(view, "\n  enter submit | %s\n", switchLabel)
	if u.login.busy {
		fmt.Fprint(view, "  signing in...")
	} else if u.login.errMsg != "" {
		fmt.Fprintf(view, "  %s", u.login.errMsg)
	}
	view.SetCursor(cursorX, cursorRow)
}

func maskField(index int, value string) string {
	if index != loginFieldPassword {
		return value
	}
	return strings.Repeat("*", len([]rune(value)))
}

func (u *UI) switchLoginMode(gui *gocui.Gui, view *gocui.View) error {
	if u.login == nil {
		return nil
	}
	if u.login.mode == modeSignin {
		u.login.mode = modeSignup
		u.login.index = loginFieldName
	} else {
		u.login.mode = modeSignin
		u.login.index = loginFieldEmail
	}
	u.login.errMsg = ""
	u.renderLogin(view)
	return nil
}

func (u *UI) nextLoginField(gui *gocui.Gui, view *gocui.View) error {
	if u.login == nil {
		return nil
	}
	visible := u.login.visibleFields()
	for i, index := range visible {
		if index == u.login.index {
			u.login.index = visible[(i+1)%len(visible)]
			break
		}
	}
	u.renderLogin(view)
	return nil
}

func (u *UI) prevLoginField(gui *gocui.Gui, view *gocui.View) error {
	if u.login == nil {
		return nil
	}
	visible := u.login.visibleFields()
	for i, index := range visible {
		if index == u.login.index {
			u.login.index = visible[(i-1+len(visible))%len(visible)]
			break
		}
	}
	u.renderLogin(view)
	return nil
}

// submitLogin validates locally first so obvious mistakes never reach the
// network, then signs the user in (or up) off the event loop and loads their
// data once the backend answers.
func (u *UI) submitLogin(gui *gocui.Gui, view *gocui.View) error {
	if u.login == nil || u.login.busy {
		return nil
	}

	name := strings.TrimSpace(u.login.fields[loginFieldName].Value)
	email := strings.TrimSpace(u.login.fields[loginFieldEmail].Value)
	password := u.login.fields[loginFieldPassword].Value
	mode := u.login.mode

	if mode == modeSignup {
		if err := (form.SignupForm{Name: name, Email: email, Password: password}).Validate(); err != nil {
			u.login.errMsg = err.Error()
			u.renderLogin(view)
			return nil
		}
	} else {
		if err := (form.SigninForm{Email: email, Password: password}).Validate(); err != nil {
			u.login.errMsg = err.Error()
			u.renderLogin(view)
			return nil
		}
	}

	u.login.busy = true
	u.login.errMsg = ""

	go func() {
		var resp api.AuthResponse
		var err error
		if mode == modeSignup {
			resp, err = u.client.Signup(context.Background(), api.SignupInput{Name: name, Email: email, Password: password})
		} else {
			resp, err = u.client.Signin(context.Background(), api.SigninInput{Email: email, Password: password})
		}

		u.enqueue(func(g *gocui.Gui) error {
			if u.login == nil {
				return nil
			}
			u.login.busy = false
			if err != nil {
				u.login.errMsg = err.Error()
				return nil
			}

			u.user = resp.User
			u.login = nil
			u.status = ""
			if g != nil {
				_ = g.DeleteView(viewLogin)
				_, _ = g.SetCurrentView(u.focus)
			}

			u.startChat()
			u.loadTasks()
			u.loadSavedViews()
			return nil
		})
	}()
	return nil
}

func (e *loginEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	if ui == nil || ui.login == nil || view == nil {
		return false
	}
	field := &ui.login.fields[ui.login.index]

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

	ui.renderLogin(view)
	return true
}
