package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"

	"taskflow/internal/api"
	"taskflow/internal/chat"
	"taskflow/internal/display"
	"taskflow/internal/model"
	"taskflow/internal/query"
	"taskflow/internal/store"
)

const (
	viewHeader    = "header"
	viewFooter    = "footer"
	viewTasks     = "tasks"
	viewDetail    = "detail"
	viewTags      = "tags"
	viewNotifs    = "notifications"
	viewSearch    = "search"
	viewForm      = "form"
	viewLogin     = "login"
	viewChat      = "chat"
	viewChatInput = "chatInput"
	viewHelp      = "help"
	viewSaveName  = "saveView"
)

// searchDebounce is the quiet period after the last keystroke before the
// draft search value reaches the query pipeline.
const searchDebounce = 300 * time.Millisecond

type UI struct {
	client *api.Client
	views  *store.Store
	gui    *gocui.Gui

	user    model.User
	chatSes *chat.Session

	tasks         []model.Task
	visible       []model.Task
	notifications []model.Notification
	tags          []tagCountEntry
	savedViews    []model.SavedView
	activeView    *model.SavedView

	filter      model.FilterState
	search      string
	searchDraft string
	searchTimer *time.Timer

	selectedTask  int
	selectedTag   int
	selectedNotif int
	focus         string

	form           *formState
	formEditor     *formEditor
	login          *loginState
	loginEditor    *loginEditor
	chatActive     bool
	searchActive   bool
	saveViewActive bool
	helpActive     bool
	status         string
}

func Run(client *api.Client, views *store.Store) error {
	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ui := &UI{
		client: client,
		views:  views,
		gui:    gui,
		focus:  viewTasks,
		filter: model.DefaultFilter(),
	}
	gui.Mouse = true
	ui.formEditor = &formEditor{ui: ui}
	ui.loginEditor = &loginEditor{ui: ui}

	client.SetUnauthorizedHandler(ui.onSessionExpired)

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}

	if client.Session().Authenticated() {
		ui.startChat()
		ui.loadTasks()
		ui.loadSavedViews()
	} else {
		ui.login = newLoginState(modeSignin)
	}

	if err := gui.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}

	return nil
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	if err := gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, u.quit); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'q', gocui.ModNone, u.quit); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'r', gocui.ModNone, u.reload); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'g', gocui.ModNone, u.clearFilters); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'a', gocui.ModNone, u.addTask); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'e', gocui.ModNone, u.editTask); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'd', gocui.ModNone, u.deleteTask); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'x', gocui.ModNone, u.toggleComplete); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'f', gocui.ModNone, u.cycleStatusFilter); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'p', gocui.ModNone, u.cyclePriorityFilter); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 's', gocui.ModNone, u.cycleSortField); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'o', gocui.ModNone, u.toggleSortOrder); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'w', gocui.ModNone, u.openSaveView); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'b', gocui.ModNone, u.cycleSavedView); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'W', gocui.ModNone, u.deleteSavedView); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'c', gocui.ModNone, u.openChat); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'L', gocui.ModNone, u.signOut); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '/', gocui.ModNone, u.startSearch); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '?', gocui.ModNone, u.toggleHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", gocui.KeyTab, gocui.ModNone, u.switchFocus); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '1', gocui.ModNone, u.focusTasks); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '2', gocui.ModNone, u.focusTags); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '3', gocui.ModNone, u.focusNotifications); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, gocui.KeyArrowDown, gocui.ModNone, u.moveDown); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, 'j', gocui.ModNone, u.moveDown); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, gocui.KeyArrowUp, gocui.ModNone, u.moveUp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, 'k', gocui.ModNone, u.moveUp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTags, gocui.KeyArrowDown, gocui.ModNone, u.moveDown); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTags, 'j', gocui.ModNone, u.moveDown); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTags, gocui.KeyArrowUp, gocui.ModNone, u.moveUp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTags, 'k', gocui.ModNone, u.moveUp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTags, gocui.KeySpace, gocui.ModNone, u.toggleTagFilter); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTags, gocui.KeyEnter, gocui.ModNone, u.toggleTagFilter); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewNotifs, gocui.KeyArrowDown, gocui.ModNone, u.moveDown); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewNotifs, 'j', gocui.ModNone, u.moveDown); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewNotifs, gocui.KeyArrowUp, gocui.ModNone, u.moveUp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewNotifs, 'k', gocui.ModNone, u.moveUp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewNotifs, gocui.KeyEnter, gocui.ModNone, u.markNotificationRead); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewSearch, gocui.KeyEnter, gocui.ModNone, u.submitSearch); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewSearch, gocui.KeyEsc, gocui.ModNone, u.cancelSearch); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyEnter, gocui.ModNone, u.submitFormNow); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyCtrlJ, gocui.ModNone, u.submitFormNow); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyTab, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyBacktab, gocui.ModNone, u.prevFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowDown, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowUp, gocui.ModNone, u.prevFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyCtrlA, gocui.ModNone, u.toggleFormAdvanced); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyEsc, gocui.ModNone, u.cancelForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewLogin, gocui.KeyEnter, gocui.ModNone, u.submitLogin); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewLogin, gocui.KeyTab, gocui.ModNone, u.nextLoginField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewLogin, gocui.KeyArrowDown, gocui.ModNone, u.nextLoginField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewLogin, gocui.KeyArrowUp, gocui.ModNone, u.prevLoginField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewLogin, gocui.KeyCtrlT, gocui.ModNone, u.switchLoginMode); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewChatInput, gocui.KeyEnter, gocui.ModNone, u.sendChatMessage); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewChatInput, gocui.KeyEsc, gocui.ModNone, u.closeChat); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewChatInput, gocui.KeyCtrlL, gocui.ModNone, u.clearChat); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewSaveName, gocui.KeyEnter, gocui.ModNone, u.submitSaveView); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewSaveName, gocui.KeyEsc, gocui.ModNone, u.cancelSaveView); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, gocui.KeyEsc, gocui.ModNone, u.closeHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, 'q', gocui.ModNone, u.closeHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, '?', gocui.ModNone, u.closeHelp); err != nil {
		return err
	}
	if err := gui.SetViewClickBinding(&gocui.ViewMouseBinding{ViewName: viewTasks, Key: gocui.MouseLeft, Handler: func(opts gocui.ViewMouseBindingOpts) error {
		return u.onListClick(gui, viewTasks, opts)
	}}); err != nil {
		return err
	}
	if err := gui.SetViewClickBinding(&gocui.ViewMouseBinding{ViewName: viewTags, Key: gocui.MouseLeft, Handler: func(opts gocui.ViewMouseBindingOpts) error {
		return u.onListClick(gui, viewTags, opts)
	}}); err != nil {
		return err
	}
	if err := gui.SetViewClickBinding(&gocui.ViewMouseBinding{ViewName: viewNotifs, Key: gocui.MouseLeft, Handler: func(opts gocui.ViewMouseBindingOpts) error {
		return u.onListClick(gui, viewNotifs, opts)
	}}); err != nil {
		return err
	}
	if err := u.bindMouseScroll(gui); err != nil {
		return err
	}
	return nil
}

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}

	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 0, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	headerView.Frame = false
	headerView.Wrap = true
	headerView.FgColor = gocui.ColorDefault
	u.renderHeader(headerView)

	footerY1 := maxY - 2
	if footerY1 < 1 {
		footerY1 = 1
	}
	footerY0 := footerY1 - 2
	if footerY0 < 1 {
		footerY0 = 1
	}
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	u.renderFooter(footerView)

	bodyTop := 1
	bodyBottom := footerY0 - 1
	if bodyBottom < bodyTop {
		return nil
	}

	bodyHeight := bodyBottom - bodyTop + 1
	dims := computeLayout(maxX, bodyHeight)
	leftX0 := 0
	leftX1 := leftX0 + dims.leftWidth - 1
	rightX0 := leftX1 + 1
	if rightX0 >= maxX {
		rightX0 = leftX1
	}
	rightX1 := maxX - 1

	detailY0 := bodyTop
	detailY1 := detailY0 + dims.detailHeight - 1
	tagsY0 := detailY1 + 1
	tagsY1 := tagsY0 + dims.tagsHeight - 1
	notifsY0 := tagsY1 + 1
	notifsY1 := bodyBottom

	tasksView, err := gui.SetView(viewTasks, leftX0, bodyTop, leftX1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		tasksView.Title = "1 Tasks"
		tasksView.TitleColor = gocui.ColorRed
	}
	applyViewStyle(tasksView, u.focus == viewTasks, true)
	u.renderTasks(tasksView)

	detailView, err := gui.SetView(viewDetail, rightX0, detailY0, rightX1, detailY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		detailView.Title = "Detail"
	}
	applyViewStyle(detailView, false, false)
	detailView.Wrap = true
	u.renderDetail(detailView)

	tagsView, err := gui.SetView(viewTags, rightX0, tagsY0, rightX1, tagsY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		tagsView.Title = "2 Tags"
		tagsView.TitleColor = gocui.ColorCyan
	}
	applyViewStyle(tagsView, u.focus == viewTags, false)
	u.renderTags(tagsView)

	notifsView, err := gui.SetView(viewNotifs, rightX0, notifsY0, rightX1, notifsY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		notifsView.Title = "3 Notifications"
		notifsView.TitleColor = gocui.ColorYellow
	}
	applyViewStyle(notifsView, u.focus == viewNotifs, true)
	u.renderNotifications(notifsView)

	_, _ = gui.SetViewOnTop(viewHeader)
	_, _ = gui.SetViewOnTop(viewFooter)

	if u.searchActive {
		if err := u.showSearch(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewSearch)
	}

	if u.form != nil {
		if err := u.showForm(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewForm)
	}

	if u.chatActive {
		if err := u.showChat(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewChat)
		_ = gui.DeleteView(viewChatInput)
	}

	if u.saveViewActive {
		if err := u.showSaveView(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewSaveName)
	}

	if u.helpActive {
		if err := u.showHelp(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewHelp)
	}

	if u.login != nil {
		if err := u.showLogin(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewLogin)
	}

	if gui.CurrentView() == nil {
		_, _ = gui.SetCurrentView(u.focus)
	}

	gui.Cursor = u.searchActive || u.form != nil || u.login != nil || u.chatActive || u.saveViewActive

	return nil
}

type layoutDims struct {
	leftWidth    int
	detailHeight int
	tagsHeight   int
	notifsHeight int
}

func computeLayout(width, height int) layoutDims {
	safeWidth := max(width-2, 20)
	safeHeight := max(height, 8)

	leftWidth := safeWidth * 55 / 100
	if leftWidth < 30 {
		leftWidth = min(30, safeWidth)
	}
	if leftWidth > safeWidth-20 {
		leftWidth = safeWidth / 2
	}

	detailHeight := int(float64(safeHeight) * 0.45)
	if detailHeight < 5 {
		detailHeight = 5
	}
	tagsHeight := int(float64(safeHeight) * 0.25)
	if tagsHeight < 3 {
		tagsHeight = 3
	}
	notifsHeight := safeHeight - detailHeight - tagsHeight - 2
	if notifsHeight < 3 {
		notifsHeight = 3
		tagsHeight = max(safeHeight-detailHeight-notifsHeight-2, 3)
	}

	return layoutDims{
		leftWidth:    leftWidth,
		detailHeight: detailHeight,
		tagsHeight:   tagsHeight,
		notifsHeight: notifsHeight,
	}
}

// enqueue hands fn to the main loop. Background work applies its results
// through here; with no gui attached fn runs inline.
func (u *UI) enqueue(fn func(*gocui.Gui) error) {
	if u.gui == nil {
		_ = fn(nil)
		return
	}
	u.gui.Update(fn)
}

// loadTasks fetches the whole collection plus unread notifications in the
// background and folds the result in on the main loop. Filtering and sorting
// happen locally, so the list endpoint is called bare.
func (u *UI) loadTasks() {
	go func() {
		tasks, err := u.client.ListTasks(context.Background(), api.ListTasksOptions{})

		var notifications []model.Notification
		haveNotifications := false
		if err == nil {
			unread := false
			if got, nerr := u.client.ListNotifications(context.Background(), &unread); nerr == nil {
				notifications = got
				haveNotifications = true
			}
		}

		u.enqueue(func(*gocui.Gui) error {
			if err != nil {
				u.status = err.Error()
				return nil
			}
			u.tasks = tasks
			if haveNotifications {
				u.notifications = notifications
			}
			u.status = ""
			u.derive()
			return nil
		})
	}()
}

// derive recomputes the visible subset from the in-memory collection. Cheap
// enough to run on every keystroke.
func (u *UI) derive() {
	u.visible = query.Apply(u.tasks, u.search, u.filter)
	u.tags = countTags(u.tasks)

	if u.selectedTask >= len(u.visible) {
		u.selectedTask = max(len(u.visible)-1, 0)
	}
	if u.selectedTag >= len(u.tags) {
		u.selectedTag = max(len(u.tags)-1, 0)
	}
	if u.selectedNotif >= len(u.notifications) {
		u.selectedNotif = max(len(u.notifications)-1, 0)
	}
}

func (u *UI) loadSavedViews() {
	if u.views == nil {
		return
	}
	views, err := u.views.ListViews(context.Background())
	if err != nil {
		u.status = err.Error()
		return
	}
	u.savedViews = views
}

func (u *UI) renderHeader(view *gocui.View) {
	view.Clear()
	fmt.Fprint(view, u.headerSummary())
}

func (u *UI) headerSummary() string {
	search := u.search
	if search == "" {
		search = "type / to search"
	}

	viewLabel := "none"
	if u.activeView != nil {
		viewLabel = u.activeView.Name
	}

	tagLabel := u.filter.Tag
	if tagLabel == "" {
		tagLabel = "none"
	}

	line := fmt.Sprintf("Search: %s | Status: %s | Priority: %s | Tag: %s | Sort: %s %s | View: %s",
		search, u.filter.Status, u.filter.Priority, tagLabel, u.filter.Sort, u.filter.Order, viewLabel)

	who := u.user.Name
	if who == "" {
		who = u.user.Email
	}
	if who != "" {
		line += " | " + who
	}
	return line
}

func (u *UI) renderFooter(view *gocui.View) {
	view.Clear()
	view.SetOrigin(0, 0)
	view.SetCursor(0, 0)

	fmt.Fprintln(view, "a add | e edit | d delete | x complete | c chat | / search | f/p status/prio | s/o sort | w/b views | ? help")
	if u.status != "" {
		fmt.Fprint(view, u.status)
	} else {
		fmt.Fprint(view, formatStats(u.tasks, time.Now()))
	}
}

func (u *UI) renderTasks(view *gocui.View) {
	view.Clear()
	now := time.Now()
	for i, task := range u.visible {
		prefix := " "
		if i == u.selectedTask {
			if u.focus == viewTasks {
				prefix = ">"
			} else {
				prefix = "*"
			}
		}
		fmt.Fprintf(view, "%s %s\n", prefix, formatTaskSummary(task, now))
	}
	if u.focus == viewTasks {
		view.SetCursor(0, min(u.selectedTask, len(u.visible)-1))
	}
}

func (u *UI) renderTags(view *gocui.View) {
	view.Clear()
	for index, entry := range u.tags {
		prefix := " "
		if index == u.selectedTag {
			prefix = ">"
		}
		marker := " "
		if u.filter.Tag == entry.Name {
			marker = "x"
		}
		fmt.Fprintf(view, "%s [%s] %s (%d)\n", prefix, marker, entry.Name, entry.Count)
	}
	if u.focus == viewTags {
		view.SetCursor(0, min(u.selectedTag, len(u.tags)-1))
	}
}

func (u *UI) renderNotifications(view *gocui.View) {
	view.Clear()
	if len(u.notifications) == 0 {
		fmt.Fprint(view, "No unread notifications")
		return
	}
	now := time.Now()
	for index, entry := range u.notifications {
		prefix := " "
		if index == u.selectedNotif {
			if u.focus == viewNotifs {
				prefix = ">"
			} else {
				prefix = "*"
			}
		}
		fmt.Fprintf(view, "%s %s | %s\n", prefix, display.FormatTimestamp(entry.CreatedAt, now), entry.Message)
	}
	if u.focus == viewNotifs {
		view.SetCursor(0, min(u.selectedNotif, len(u.notifications)-1))
	}
}

func (u *UI) renderDetail(view *gocui.View) {
	view.Clear()
	selected := u.selectedTaskRef()
	if selected == nil {
		fmt.Fprint(view, "No task selected")
		return
	}

	now := time.Now()
	status := "Pending"
	if selected.Completed {
		status = "Completed"
	}

	lines := []string{
		selected.Title,
		fmt.Sprintf("Status: %s", status),
		fmt.Sprintf("Priority: %s %s", display.PriorityEmoji(selected.Priority), display.PriorityLabel(selected.Priority)),
	}

	if selected.DueDate != nil {
		lines = append(lines,
			fmt.Sprintf("Due: %s (%s)", display.FormatTimestamp(*selected.DueDate, now), display.Countdown(*selected.DueDate, now)))
		if selected.ReminderOffsetMinutes != nil {
			lines = append(lines, fmt.Sprintf("Reminder: %d minutes before", *selected.ReminderOffsetMinutes))
		}
	}
	if label := display.RecurrenceLabel(selected.Recurrence); label != "" {
		lines = append(lines, fmt.Sprintf("Repeats: %s", label))
	}
	if len(selected.Tags) > 0 {
		lines = append(lines, fmt.Sprintf("Tags: %s", strings.Join(selected.Tags, ",")))
	}
	lines = append(lines,
		fmt.Sprintf("Created: %s", display.FormatTimestamp(selected.CreatedAt, now)),
		"",
		selected.Description,
	)

	fmt.Fprint(view, strings.Join(lines, "\n"))
}

func (u *UI) selectedTaskRef() *model.Task {
	if u.selectedTask >= 0 && u.selectedTask < len(u.visible) {
		return &u.visible[u.selectedTask]
	}
	return nil
}

func (u *UI) onListClick(gui *gocui.Gui, viewName string, opts gocui.ViewMouseBindingOpts) error {
	if u.inputActive() {
		return nil
	}
	view, err := gui.View(viewName)
	if err != nil {
		return nil
	}

	_, y0, _, _ := view.Dimensions()
	_, oy := view.Origin()
	row := opts.Y - y0 - 1 + oy
	if row < 0 {
		row = 0
	}

	switch viewName {
	case viewTasks:
		u.selectedTask = min(row, len(u.visible)-1)
		return u.setFocus(gui, viewTasks)
	case viewTags:
		u.selectedTag = min(row, len(u.tags)-1)
		return u.setFocus(gui, viewTags)
	case viewNotifs:
		u.selectedNotif = min(row, len(u.notifications)-1)
		return u.setFocus(gui, viewNotifs)
	default:
		return nil
	}
}

func (u *UI) bindMouseScroll(gui *gocui.Gui) error {
	views := []string{viewTasks, viewDetail, viewTags, viewNotifs, viewChat}
	for _, name := range views {
		if err := gui.SetKeybinding(name, gocui.MouseWheelUp, gocui.ModNone, u.scrollUp); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, gocui.MouseWheelDown, gocui.ModNone, u.scrollDown); err != nil {
			return err
		}
	}
	return nil
}

func (u *UI) scrollUp(gui *gocui.Gui, view *gocui.View) error {
	if view == nil {
		view = gui.CurrentView()
	}
	if view == nil {
		return nil
	}
	view.ScrollUp(1)
	return nil
}

func (u *UI) scrollDown(gui *gocui.Gui, view *gocui.View) error {
	if view == nil {
		view = gui.CurrentView()
	}
	if view == nil {
		return nil
	}
	view.ScrollDown(1)
	return nil
}

func (u *UI) switchFocus(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewTasks:
		u.focus = viewTags
	case viewTags:
		u.focus = viewNotifs
	default:
		u.focus = viewTasks
	}
	_, _ = gui.SetCurrentView(u.focus)
	return nil
}

func (u *UI) focusTasks(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewTasks)
}

func (u *UI) focusTags(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewTags)
}

func (u *UI) focusNotifications(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewNotifs)
}

func (u *UI) setFocus(gui *gocui.Gui, name string) error {
	if u.inputActive() {
		return nil
	}
	u.focus = name
	_, _ = gui.SetCurrentView(name)
	return nil
}

func (u *UI) moveDown(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewTags:
		if u.selectedTag < len(u.tags)-1 {
			u.selectedTag++
		}
	case viewNotifs:
		if u.selectedNotif < len(u.notifications)-1 {
			u.selectedNotif++
		}
	default:
		if u.selectedTask < len(u.visible)-1 {
			u.selectedTask++
		}
	}
	return nil
}

func (u *UI) moveUp(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewTags:
		if u.selectedTag > 0 {
			u.selectedTag--
		}
	case viewNotifs:
		if u.selectedNotif > 0 {
			u.selectedNotif--
		}
	default:
		if u.selectedTask > 0 {
			u.selectedTask--
		}
	}
	return nil
}

func (u *UI) reload(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.status = ""
	u.loadTasks()
	return nil
}

func (u *UI) clearFilters(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.filter = model.DefaultFilter()
	u.search = ""
	u.searchDraft = ""
	u.activeView = nil
	u.derive()
	return nil
}

func (u *UI) cycleStatusFilter(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	order := []model.StatusFilter{model.StatusAll, model.StatusPending, model.StatusCompleted}
	u.filter.Status = cycleValue(order, u.filter.Status)
	u.activeView = nil
	u.derive()
	return nil
}

func (u *UI) cyclePriorityFilter(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	order := []string{"all", "high", "medium", "low", "none"}
	u.filter.Priority = cycleValue(order, u.filter.Priority)
	u.activeView = nil
	u.derive()
	return nil
}

func (u *UI) cycleSortField(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	order := []model.SortField{model.SortCreatedAt, model.SortTitle, model.SortPriority, model.SortDueDate}
	u.filter.Sort = cycleValue(order, u.filter.Sort)
	u.activeView = nil
	u.derive()
	return nil
}

func (u *UI) toggleSortOrder(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.filter.Order == model.OrderDesc {
		u.filter.Order = model.OrderAsc
	} else {
		u.filter.Order = model.OrderDesc
	}
	u.activeView = nil
	u.derive()
	return nil
}

func (u *UI) toggleTagFilter(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewTags {
		return nil
	}
	if u.selectedTag < 0 || u.selectedTag >= len(u.tags) {
		return nil
	}
	name := u.tags[u.selectedTag].Name
	if u.filter.Tag == name {
		u.filter.Tag = ""
	} else {
		u.filter.Tag = name
	}
	u.activeView = nil
	u.derive()
	return nil
}

// toggleComplete flips the selected task on the server. The response's
// current_task replaces the row in place; a non-nil next_task (the next
// occurrence of a recurring task) is prepended to the collection.
func (u *UI) toggleComplete(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewTasks {
		return nil
	}
	selected := u.selectedTaskRef()
	if selected == nil {
		return nil
	}
	id := selected.ID

	go func() {
		result, err := u.client.ToggleComplete(context.Background(), id)
		u.enqueue(func(*gocui.Gui) error {
			if err != nil {
				u.status = err.Error()
				return nil
			}
			u.tasks = applyToggleResult(u.tasks, result)
			u.status = ""
			u.derive()
			return nil
		})
	}()
	return nil
}

func (u *UI) deleteTask(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewTasks {
		return nil
	}
	selected := u.selectedTaskRef()
	if selected == nil {
		return nil
	}
	id := selected.ID

	go func() {
		err := u.client.DeleteTask(context.Background(), id)
		u.enqueue(func(*gocui.Gui) error {
			if err != nil {
				u.status = err.Error()
				return nil
			}
			u.tasks = removeTask(u.tasks, id)
			u.status = ""
			u.derive()
			return nil
		})
	}()
	return nil
}

func (u *UI) markNotificationRead(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewNotifs {
		return nil
	}
	if u.selectedNotif < 0 || u.selectedNotif >= len(u.notifications) {
		return nil
	}
	id := u.notifications[u.selectedNotif].ID

	go func() {
		_, err := u.client.MarkNotificationRead(context.Background(), id)
		u.enqueue(func(*gocui.Gui) error {
			if err != nil {
				u.status = err.Error()
				return nil
			}
			u.notifications = removeNotification(u.notifications, id)
			if u.selectedNotif >= len(u.notifications) {
				u.selectedNotif = max(len(u.notifications)-1, 0)
			}
			u.status = ""
			return nil
		})
	}()
	return nil
}

func (u *UI) openSaveView(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.views == nil {
		return nil
	}
	u.saveViewActive = true
	return nil
}

func (u *UI) submitSaveView(gui *gocui.Gui, view *gocui.View) error {
	if !u.saveViewActive {
		return nil
	}
	name := strings.TrimSpace(view.Buffer())
	if name != "" {
		saved, err := u.views.SaveView(context.Background(), model.SavedView{Name: name, Filter: u.filter})
		if err != nil {
			u.status = err.Error()
			return nil
		}
		u.activeView = &saved
		u.loadSavedViews()
	}
	u.saveViewActive = false
	_ = gui.DeleteView(viewSaveName)
	_, _ = gui.SetCurrentView(u.focus)
	return nil
}

func (u *UI) cancelSaveView(gui *gocui.Gui, _ *gocui.View) error {
	u.saveViewActive = false
	_ = gui.DeleteView(viewSaveName)
	_, _ = gui.SetCurrentView(u.focus)
	return nil
}

// cycleSavedView applies the next stored filter preset.
func (u *UI) cycleSavedView(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || len(u.savedViews) == 0 {
		return nil
	}

	next := 0
	if u.activeView != nil {
		for i, view := range u.savedViews {
			if view.ID == u.activeView.ID {
				next = (i + 1) % len(u.savedViews)
				break
			}
		}
	}
	view := u.savedViews[next]
	u.activeView = &view
	u.filter = view.Filter
	u.derive()
	return nil
}

// deleteSavedView removes the currently applied preset. The filters stay in
// effect; only the stored name goes away.
func (u *UI) deleteSavedView(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.activeView == nil || u.views == nil {
		return nil
	}
	if err := u.views.DeleteView(context.Background(), u.activeView.ID); err != nil {
		u.status = err.Error()
		return nil
	}
	u.activeView = nil
	u.loadSavedViews()
	return nil
}

func (u *UI) showSaveView(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(40, maxX/3)
	height := 3
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewSaveName, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Save View As"
		view.Wrap = true
		view.Clear()
	}
	view.Editable = true
	view.Editor = gocui.DefaultEditor
	_, _ = gui.SetCurrentView(viewSaveName)
	return nil
}

func (u *UI) startSearch(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.searchActive = true
	u.searchDraft = u.search
	return nil
}

func (u *UI) showSearch(gui *gocui.Gui) error {
	maxX, _ := gui.Size()
	width := max(30, maxX/2)
	x0 := (maxX - width) / 2

	view, err := gui.SetView(viewSearch, x0, 1, x0+width, 3, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Search"
		view.Wrap = true
		view.Clear()
		fmt.Fprint(view, u.search)
	}
	view.Editable = true
	view.Editor = &searchEditor{ui: u}
	_, _ = gui.SetCurrentView(viewSearch)
	return nil
}

// searchEditor records each keystroke into the draft and restarts the
// debounce timer, so the list live-updates without filtering per keypress.
type searchEditor struct {
	ui *UI
}

func (e *searchEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	handled := gocui.DefaultEditor.Edit(view, key, ch, mod)
	e.ui.searchDraft = strings.TrimSpace(view.Buffer())
	e.ui.scheduleSearch()
	return handled
}

func (u *UI) scheduleSearch() {
	if u.searchTimer != nil {
		u.searchTimer.Stop()
	}
	u.searchTimer = time.AfterFunc(searchDebounce, func() {
		u.gui.Update(func(*gocui.Gui) error {
			u.search = u.searchDraft
			u.derive()
			return nil
		})
	})
}

func (u *UI) submitSearch(gui *gocui.Gui, view *gocui.View) error {
	if u.searchTimer != nil {
		u.searchTimer.Stop()
	}
	u.search = strings.TrimSpace(view.Buffer())
	u.searchActive = false
	u.status = ""
	_ = gui.DeleteView(viewSearch)
	_, _ = gui.SetCurrentView(u.focus)
	u.derive()
	return nil
}

func (u *UI) cancelSearch(gui *gocui.Gui, _ *gocui.View) error {
	if u.searchTimer != nil {
		u.searchTimer.Stop()
	}
	u.searchActive = false
	_ = gui.DeleteView(viewSearch)
	_, _ = gui.SetCurrentView(u.focus)
	return nil
}

func (u *UI) signOut(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if err := u.client.Signout(); err != nil {
		u.status = err.Error()
		return nil
	}
	u.resetToSignedOut("")
	return nil
}

// onSessionExpired fires from the HTTP layer after a 401 on a protected
// endpoint. The token is already cleared at that point.
func (u *UI) onSessionExpired() {
	u.gui.Update(func(*gocui.Gui) error {
		u.resetToSignedOut("Session expired, please sign in again")
		return nil
	})
}

func (u *UI) resetToSignedOut(status string) {
	u.tasks = nil
	u.visible = nil
	u.notifications = nil
	u.tags = nil
	u.savedViews = nil
	u.activeView = nil
	u.user = model.User{}
	if u.chatSes != nil {
		u.chatSes.Clear()
		u.chatSes = nil
	}
	u.chatActive = false
	u.form = nil
	u.searchActive = false
	u.saveViewActive = false
	u.status = status
	u.login = newLoginState(modeSignin)
}

func (u *UI) toggleHelp(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() && !u.helpActive {
		return nil
	}
	u.helpActive = !u.helpActive
	return nil
}

func (u *UI) closeHelp(gui *gocui.Gui, _ *gocui.View) error {
	u.helpActive = false
	_ = gui.DeleteView(viewHelp)
	_, _ = gui.SetCurrentView(u.focus)
	return nil
}

func (u *UI) showHelp(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := 15
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	view, err := gui.SetView(viewHelp, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Help"
		view.Wrap = true
	}
	view.Clear()
	fmt.Fprint(view, helpText())
	_, _ = gui.SetCurrentView(viewHelp)
	return nil
}

func (u *UI) inputActive() bool {
	return u.searchActive || u.form != nil || u.helpActive || u.chatActive ||
		u.saveViewActive || u.login != nil
}

func (u *UI) quit(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	return gocui.ErrQuit
}

func helpText() string {
	return strings.Join([]string{
		"Navigation:",
		"  Tab cycle panes | 1 Tasks | 2 Tags | 3 Notifications",
		"  j/k or arrows move selection",
		"  mouse click to focus/select, wheel scrolls hovered pane",
		"",
		"Tasks:",
		"  a add | e edit | d delete | x toggle complete",
		"",
		"Search/Filter:",
		"  / search (live) | f status | p priority | s sort field | o order",
		"  space toggle tag filter (Tags pane) | g clear all filters",
		"  w save current filters as view | b apply next saved view | W delete applied view",
		"",
		"Other:",
		"  c chat | enter mark read (Notifications pane) | r reload",
		"  L sign out | ? help | esc/q close help | q quit",
	}, "\n")
}

func applyViewStyle(view *gocui.View, focused bool, highlight bool) {
	view.Frame = true
	view.Highlight = focused && highlight
	view.HighlightInactive = false
	view.SelBgColor = gocui.ColorBlue
	view.SelFgColor = gocui.ColorBlack
	view.InactiveViewSelBgColor = gocui.ColorDefault
	if focused {
		view.FrameColor = gocui.ColorCyan
		view.TitleColor = gocui.ColorCyan
	} else {
		view.FrameColor = gocui.ColorDefault
	}
}

func cycleValue[T comparable](order []T, current T) T {
	index := 0
	for i, value := range order {
		if value == current {
			index = i
			break
		}
	}
	return order[(index+1)%len(order)]
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
