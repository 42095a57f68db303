// Package tui is the interactive todo list. It renders the cached list of a
// client.Todos and drives its mutations; all state comes from the query cache.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/idilsaglam/tada/internal/client"
	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/query"
)

// Static messages; server error bodies never reach the screen.
const (
	msgLoading    = "Loading todos..."
	msgLoadFailed = "Failed to load todos."
	msgEmpty      = "No todos yet. Press a to add one!"
	msgAddFailed  = "Failed to add todo."
	msgSaveFailed = "Failed to update todo."
	msgDelFailed  = "Failed to delete todo."
	msgEmptyTitle = "Title cannot be empty"
)

const (
	defaultWidth   = 80
	defaultHeight  = 24
	inputCharLimit = 200
)

type mode int

const (
	modeBrowse mode = iota
	modeAdd
	modeEdit
	modeConfirmDelete
)

type keyMap struct {
	Toggle  key.Binding
	Edit    key.Binding
	Add     key.Binding
	Delete  key.Binding
	Refetch key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Toggle:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		Edit:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Refetch: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) extra() []key.Binding {
	return []key.Binding{k.Toggle, k.Add, k.Edit, k.Delete, k.Refetch}
}

// changedMsg reports that the query cache changed.
type changedMsg struct{}

type fetchedMsg struct{ err error }

type mutatedMsg struct {
	key string
	op  string
	err error
}

// item adapts a Todo to bubbles/list.Item.
type item struct {
	todo model.Todo
	busy bool
}

func (i item) Title() string       { return i.todo.Title }
func (i item) Description() string { return "" }
func (i item) FilterValue() string { return i.todo.Title }

// delegate renders one todo per line; frame is the current spinner frame.
type delegate struct {
	frame string
}

func (d delegate) Height() int                               { return 1 }
func (d delegate) Spacing() int                              { return 0 }
func (d delegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d delegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	it, ok := li.(item)
	if !ok {
		return
	}
	box := mutedStyle.Render(boxUnchecked)
	text := it.todo.Title
	if it.todo.Completed {
		box = successStyle.Render(boxChecked)
		text = doneStyle.Render(text)
	}
	line := box + " " + text
	if it.busy {
		line += " " + pendingStyle.Render(d.frame)
	}
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintln(w, prefix+line)
}

// Model is the Bubble Tea model of the todo list.
type Model struct {
	ctx     context.Context
	todos   *client.Todos
	changed chan struct{}
	unsub   func()

	list    list.Model
	input   textinput.Model
	spinner spinner.Model
	keys    keyMap

	mode     mode
	editID   int
	editOrig string
	deleteID int
	busy     map[string]bool
	status   string

	width, height int
}

// New builds the model and subscribes it to the todos query. Call Close when done.
func New(ctx context.Context, todos *client.Todos) Model {
	keys := defaultKeys()

	l := list.New(nil, delegate{}, defaultWidth-4, defaultHeight-6)
	l.SetShowTitle(false)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("todo", "todos")
	l.AdditionalShortHelpKeys = keys.extra
	l.AdditionalFullHelpKeys = keys.extra

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = inputCharLimit

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(pendingStyle))

	changed := make(chan struct{}, 1)
	unsub := todos.Query().Subscribe(func(query.State[[]model.Todo]) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	m := Model{
		ctx:     ctx,
		todos:   todos,
		changed: changed,
		unsub:   unsub,
		list:    l,
		input:   ti,
		spinner: sp,
		keys:    keys,
		busy:    make(map[string]bool),
		width:   defaultWidth,
		height:  defaultHeight,
	}
	m.refresh()
	return m
}

// Close stops the query subscription.
func (m Model) Close() {
	if m.unsub != nil {
		m.unsub()
	}
}

// Run starts the program full screen and blocks until the user quits.
func Run(ctx context.Context, todos *client.Todos) error {
	m := New(ctx, todos)
	defer m.Close()
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch(), m.listen())
}

func (m Model) listen() tea.Cmd {
	ch := m.changed
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func (m Model) fetch() tea.Cmd {
	ctx, todos := m.ctx, m.todos
	return func() tea.Msg {
		_, err := todos.List(ctx)
		return fetchedMsg{err: err}
	}
}

func (m Model) refetch() tea.Cmd {
	ctx, todos := m.ctx, m.todos
	return func() tea.Msg {
		return fetchedMsg{err: todos.Refetch(ctx)}
	}
}

// mutate marks key busy and runs fn off the update loop.
func (m *Model) mutate(mkey, op string, fn func(ctx context.Context) error) tea.Cmd {
	m.busy[mkey] = true
	m.status = ""
	m.refresh()
	ctx := m.ctx
	return func() tea.Msg {
		return mutatedMsg{key: mkey, op: op, err: fn(ctx)}
	}
}

func (m Model) isBusy(mkey string) bool {
	return m.busy[mkey] || m.todos.Mutation(mkey).Pending()
}

func (m Model) todoBusy(id int) bool {
	return m.isBusy(client.UpdateKey(id)) || m.isBusy(client.DeleteKey(id))
}

// refresh rebuilds the list items from the cache, keeping the cursor in place.
func (m *Model) refresh() {
	data, _ := m.todos.Cached()
	items := make([]list.Item, 0, len(data))
	for _, t := range data {
		items = append(items, item{todo: t, busy: m.todoBusy(t.ID)})
	}
	idx := m.list.Index()
	m.list.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
}

func (m Model) selected() (model.Todo, bool) {
	it, ok := m.list.SelectedItem().(item)
	if !ok {
		return model.Todo{}, false
	}
	return it.todo, true
}

func (m Model) anyBusy() bool {
	for _, b := range m.busy {
		if b {
			return true
		}
	}
	return m.todos.Mutation(client.CreateKey).Pending()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(m.width-4, m.listHeight())
		return m, nil

	case changedMsg:
		m.refresh()
		return m, m.listen()

	case fetchedMsg:
		m.refresh()
		return m, nil

	case mutatedMsg:
		delete(m.busy, msg.key)
		if msg.err != nil {
			m.status = failureMessage(msg.op)
		} else if msg.op == "add" {
			m.input.SetValue("")
			m.input.Blur()
			m.mode = modeBrowse
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.anyBusy() {
			m.list.SetDelegate(delegate{frame: m.spinner.View()})
		}
		return m, cmd

	case tea.KeyMsg:
		switch m.mode {
		case modeAdd:
			return m.updateAdd(msg)
		case modeEdit:
			return m.updateEdit(msg)
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		}
		if m.list.FilterState() != list.Filtering {
			if next, cmd, handled := m.updateBrowse(msg); handled {
				return next, cmd
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit, true

	case key.Matches(msg, m.keys.Toggle):
		t, ok := m.selected()
		if !ok || m.todoBusy(t.ID) {
			return m, nil, true
		}
		todos, id, done := m.todos, t.ID, !t.Completed
		cmd := m.mutate(client.UpdateKey(id), "update", func(ctx context.Context) error {
			_, err := todos.Update(ctx, id, model.SetCompleted(done))
			return err
		})
		return m, cmd, true

	case key.Matches(msg, m.keys.Edit):
		t, ok := m.selected()
		if !ok || m.todoBusy(t.ID) {
			return m, nil, true
		}
		m.mode = modeEdit
		m.editID, m.editOrig = t.ID, t.Title
		m.input.SetValue(t.Title)
		m.input.CursorEnd()
		m.input.Placeholder = "Edit todo title..."
		m.list.SetSize(m.width-4, m.listHeight())
		return m, m.input.Focus(), true

	case key.Matches(msg, m.keys.Add):
		m.mode = modeAdd
		m.input.SetValue("")
		m.input.Placeholder = "New todo title..."
		m.list.SetSize(m.width-4, m.listHeight())
		return m, m.input.Focus(), true

	case key.Matches(msg, m.keys.Delete):
		t, ok := m.selected()
		if !ok || m.todoBusy(t.ID) {
			return m, nil, true
		}
		m.mode = modeConfirmDelete
		m.deleteID = t.ID
		return m, nil, true

	case key.Matches(msg, m.keys.Refetch):
		m.status = ""
		return m, m.refetch(), true
	}
	return m, nil, false
}

func (m Model) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		title := model.NormalizeTitle(m.input.Value())
		if title == "" || m.isBusy(client.CreateKey) {
			return m, nil
		}
		todos := m.todos
		return m, m.mutate(client.CreateKey, "add", func(ctx context.Context) error {
			_, err := todos.Create(ctx, title)
			return err
		})
	case tea.KeyEsc:
		m.leaveInput()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyTab:
		title := model.NormalizeTitle(m.input.Value())
		if title == "" {
			m.status = msgEmptyTitle
			return m, nil
		}
		id := m.editID
		unchanged := title == m.editOrig
		m.leaveInput()
		if unchanged {
			return m, nil
		}
		todos := m.todos
		return m, m.mutate(client.UpdateKey(id), "update", func(ctx context.Context) error {
			_, err := todos.Update(ctx, id, model.SetTitle(title))
			return err
		})
	case tea.KeyEsc:
		m.input.SetValue(m.editOrig)
		m.leaveInput()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		id, todos := m.deleteID, m.todos
		m.mode = modeBrowse
		return m, m.mutate(client.DeleteKey(id), "delete", func(ctx context.Context) error {
			_, err := todos.Delete(ctx, id)
			return err
		})
	case "n", "N", "esc":
		m.mode = modeBrowse
	}
	return m, nil
}

func (m *Model) leaveInput() {
	m.mode = modeBrowse
	m.input.Blur()
	m.status = ""
	m.list.SetSize(m.width-4, m.listHeight())
}

func (m Model) listHeight() int {
	h := m.height - 6
	if m.mode == modeAdd || m.mode == modeEdit {
		h -= 3
	}
	if h < 1 {
		h = 1
	}
	return h
}

func failureMessage(op string) string {
	switch op {
	case "add":
		return msgAddFailed
	case "delete":
		return msgDelFailed
	}
	return msgSaveFailed
}

func (m Model) header() string {
	data, _ := m.todos.Cached()
	total, completed, percent := Stats(data)
	return fmt.Sprintf("%s   %s %d  %s %d  %s %d%%",
		titleStyle.Render("Todos"),
		accentStyle.Render("Total"), total,
		successStyle.Render("✔"), completed,
		accentStyle.Render("Progress"), percent,
	)
}

func (m Model) View() string {
	st := m.todos.Query().State()

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")

	switch {
	case !st.HasData && st.Status == query.StatusError:
		b.WriteString(errorStyle.Render(msgLoadFailed))
	case !st.HasData:
		b.WriteString(m.spinner.View() + " " + mutedStyle.Render(msgLoading))
	case len(m.list.Items()) == 0:
		b.WriteString(mutedStyle.Render(msgEmpty))
	default:
		b.WriteString(m.list.View())
	}

	switch m.mode {
	case modeAdd, modeEdit:
		label := "Add todo"
		if m.mode == modeEdit {
			label = "Edit todo"
		}
		if m.mode == modeAdd && m.isBusy(client.CreateKey) {
			label += " " + m.spinner.View()
		}
		bar := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
		b.WriteString("\n" + bar.Render(label+"\n"+m.input.View()))
	case modeConfirmDelete:
		title := ""
		for _, li := range m.list.Items() {
			if it, ok := li.(item); ok && it.todo.ID == m.deleteID {
				title = it.todo.Title
			}
		}
		b.WriteString("\n" + pendingStyle.Render(fmt.Sprintf("Delete %q? (y/n)", title)))
	}

	if m.status != "" {
		b.WriteString("\n" + errorStyle.Render(m.status))
	}
	return panelStyle.Render(b.String())
}
