package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/authflow"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const deviceSubject = "device"

// dispatchedMsg reports a finished Session.Dispatch started by the wizard.
type dispatchedMsg struct {
	err error
}

// stateMsg is sent by the session listener, including timer transitions.
type stateMsg struct{}

type hintMsg struct {
	hint authflow.EmailHint
}

// codeMsg carries a delivered reset code into the on-screen outbox.
type codeMsg struct {
	email string
	code  string
}

type boardMsg struct {
	notices []authflow.Notice
	unread  map[string]bool
	err     error
}

type tipMsg struct {
	show bool
}

// notify never blocks; a full channel drops msg.
func notify(events chan<- tea.Msg, msg tea.Msg) {
	select {
	case events <- msg:
	default:
	}
}

func listen(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}

type styles struct {
	title  lipgloss.Style
	panel  lipgloss.Style
	label  lipgloss.Style
	error  lipgloss.Style
	notice lipgloss.Style
	dim    lipgloss.Style
	pinned lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		panel:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1),
		label:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		error:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		notice: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		pinned: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
	}
}

// wizard is the bubbletea model driving one authflow.Session.
type wizard struct {
	ctx      context.Context
	session  *authflow.Session
	events   chan tea.Msg
	trackers func(subject string) authflow.NoticeTracker
	notices  []authflow.Notice
	keys     keyMap
	styles   styles
	now      func() time.Time

	state  authflow.State
	fields []string
	inputs []textinput.Model
	focus  int

	terms   bool
	method  string
	pending bool
	status  string
	hint    authflow.EmailHint
	outbox  []string
	tip     bool
	board   []authflow.Notice
	unread  map[string]bool
}

func newWizard(ctx context.Context, c *authflow.Controller, events chan tea.Msg, trackers func(string) authflow.NoticeTracker, notices []authflow.Notice) wizard {
	m := wizard{
		ctx:      ctx,
		events:   events,
		trackers: trackers,
		notices:  notices,
		keys:     defaultKeyMap,
		styles:   defaultStyles(),
		now:      time.Now,
		method:   "totp",
	}
	m.session = c.NewSession(
		authflow.WithStateListener(func(authflow.State) { notify(events, stateMsg{}) }),
		authflow.WithHintListener(func(h authflow.EmailHint) { notify(events, hintMsg{hint: h}) }),
	)
	m.state = m.session.State()
	m.buildInputs()
	return m
}

func (m wizard) Init() tea.Cmd {
	return tea.Batch(listen(m.events), textinput.Blink, m.recordTip())
}

func (m wizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case dispatchedMsg:
		m.pending = false
		m, cmd := m.applyState()
		switch {
		case m.state.Error != "":
			m.status = m.state.Error
		case msg.err != nil:
			m.status = msg.err.Error()
		default:
			m.status = m.state.Notice
		}
		return m, cmd

	case stateMsg:
		m, cmd := m.applyState()
		return m, tea.Batch(cmd, listen(m.events))

	case hintMsg:
		if msg.hint.Revision >= m.hint.Revision {
			m.hint = msg.hint
		}
		return m, listen(m.events)

	case codeMsg:
		m.outbox = append(m.outbox, fmt.Sprintf("reset code for %s: %s", msg.email, msg.code))
		if len(m.outbox) > 3 {
			m.outbox = m.outbox[len(m.outbox)-3:]
		}
		return m, listen(m.events)

	case boardMsg:
		if msg.err != nil {
			m.status = "notices unavailable: " + msg.err.Error()
			return m, nil
		}
		m.board = msg.notices
		m.unread = msg.unread
		return m, nil

	case tipMsg:
		m.tip = msg.show
		return m, nil
	}

	return m.updateFocused(msg)
}

// applyState re-reads the session. Inputs are rebuilt only when the step
// or reset stage moved, so a rejected submit keeps what the user typed.
func (m wizard) applyState() (wizard, tea.Cmd) {
	next := m.session.State()
	moved := next.Step != m.state.Step || next.Reset.Stage != m.state.Reset.Stage
	m.state = next
	if !moved {
		return m, nil
	}

	m.status = next.Notice
	m.terms = false
	m.buildInputs()
	if next.Step == authflow.StepDashboard {
		return m, m.loadBoard()
	}
	if next.Step == authflow.StepWelcome {
		m.board = nil
		m.hint = authflow.EmailHint{}
	}
	return m, nil
}

func (m wizard) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.session.Close()
		return m, tea.Quit
	}
	if m.pending {
		return m, nil
	}
	if key.Matches(msg, m.keys.Logout) {
		return m.dispatch(authflow.Logout())
	}
	if key.Matches(msg, m.keys.NextField) && len(m.inputs) > 1 {
		return m.moveFocus(1), nil
	}
	if key.Matches(msg, m.keys.PrevField) && len(m.inputs) > 1 {
		return m.moveFocus(-1), nil
	}

	switch m.state.Step {
	case authflow.StepWelcome:
		switch {
		case key.Matches(msg, m.keys.Submit):
			return m.dispatch(authflow.SubmitEmail(m.value("email")))
		case key.Matches(msg, m.keys.SignUp):
			return m.dispatch(authflow.StartSignUp())
		case key.Matches(msg, m.keys.Social):
			return m.dispatch(authflow.SocialSignIn("google"))
		}

	case authflow.StepSignIn:
		switch {
		case key.Matches(msg, m.keys.Submit):
			return m.dispatch(authflow.SubmitPassword(m.value("password")))
		case key.Matches(msg, m.keys.Forgot):
			return m.dispatch(authflow.ForgotPassword())
		case key.Matches(msg, m.keys.Back):
			return m.dispatch(authflow.Back())
		}

	case authflow.StepSignUp:
		switch {
		case key.Matches(msg, m.keys.Terms):
			m.terms = !m.terms
			return m, nil
		case key.Matches(msg, m.keys.Back):
			return m.dispatch(authflow.Back())
		case key.Matches(msg, m.keys.Submit):
			if m.focus < len(m.inputs)-1 {
				return m.moveFocus(1), nil
			}
			return m.dispatch(authflow.SubmitSignUp(authflow.SignUpForm{
				Email:       m.value("email"),
				Name:        m.value("name"),
				Password:    m.value("password"),
				Confirm:     m.value("confirm"),
				AcceptTerms: m.terms,
			}))
		}

	case authflow.StepTwoFactor:
		switch {
		case key.Matches(msg, m.keys.Submit):
			return m.dispatch(authflow.SubmitCode(m.value("code"), m.method))
		case key.Matches(msg, m.keys.Method):
			if m.method == "totp" {
				m.method = "sms"
			} else {
				m.method = "totp"
			}
			return m, nil
		case key.Matches(msg, m.keys.Resend):
			return m.dispatch(authflow.ResendCode(m.method))
		case key.Matches(msg, m.keys.Skip):
			return m.dispatch(authflow.SkipTwoFactor())
		case key.Matches(msg, m.keys.Back):
			return m.dispatch(authflow.Back())
		}

	case authflow.StepFindPassword:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m.dispatch(authflow.Back())
		case key.Matches(msg, m.keys.Submit):
			switch m.state.Reset.Stage {
			case authflow.ResetStageEmail:
				return m.dispatch(authflow.RequestResetCode(m.value("email")))
			case authflow.ResetStageCode:
				return m.dispatch(authflow.VerifyResetCode(m.value("code")))
			default:
				if m.focus == 0 {
					return m.moveFocus(1), nil
				}
				return m.dispatch(authflow.SubmitNewPassword(m.value("password"), m.value("confirm")))
			}
		}

	case authflow.StepDashboard:
		if key.Matches(msg, m.keys.Hide) && len(m.board) > 0 {
			return m, m.hideNotice(m.board[0].Key())
		}
	}

	before := m.value("email")
	next, cmd := m.updateFocused(msg)
	w := next.(wizard)
	if w.state.Step == authflow.StepWelcome {
		if v := w.value("email"); v != before {
			w.session.ObserveEmail(v)
		}
	}
	return w, cmd
}

func (m wizard) dispatch(ev authflow.Event) (tea.Model, tea.Cmd) {
	m.pending = true
	session, ctx := m.session, m.ctx
	return m, func() tea.Msg {
		_, err := session.Dispatch(ctx, ev)
		return dispatchedMsg{err: err}
	}
}

func (m wizard) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.focus >= len(m.inputs) {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m wizard) moveFocus(delta int) wizard {
	if len(m.inputs) == 0 {
		return m
	}
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.inputs)) % len(m.inputs)
	m.inputs[m.focus].Focus()
	return m
}

func (m wizard) value(field string) string {
	for i, name := range m.fields {
		if name == field {
			return m.inputs[i].Value()
		}
	}
	return ""
}

func (m *wizard) buildInputs() {
	st := m.state
	m.fields = nil
	m.inputs = nil
	m.focus = 0

	add := func(name, placeholder, preset string, secret bool) {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = placeholder
		ti.CharLimit = 128
		ti.SetValue(preset)
		if secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '*'
		}
		m.fields = append(m.fields, name)
		m.inputs = append(m.inputs, ti)
	}

	switch st.Step {
	case authflow.StepWelcome:
		add("email", "you@example.com", "", false)
	case authflow.StepSignIn:
		add("password", "password", "", true)
	case authflow.StepSignUp:
		add("name", "full name", "", false)
		if st.Email == "" {
			add("email", "you@example.com", "", false)
		}
		add("password", "password", "", true)
		add("confirm", "repeat password", "", true)
	case authflow.StepTwoFactor:
		add("code", "6-digit code", "", false)
	case authflow.StepFindPassword:
		switch st.Reset.Stage {
		case authflow.ResetStageEmail:
			add("email", "you@example.com", st.Reset.Email, false)
		case authflow.ResetStageCode:
			add("code", "reset code", "", false)
		default:
			add("password", "new password", "", true)
			add("confirm", "repeat new password", "", true)
		}
	}

	if len(m.inputs) > 0 {
		m.inputs[0].Focus()
	}
}

func (m wizard) recordTip() tea.Cmd {
	if m.trackers == nil {
		return nil
	}
	tracker, ctx := m.trackers(deviceSubject), m.ctx
	return func() tea.Msg {
		show, err := tracker.RecordTooltipShown(ctx)
		if err != nil {
			return tipMsg{}
		}
		return tipMsg{show: show}
	}
}

// loadBoard filters the notice list for the signed-in subject and marks
// what it returns as read.
func (m wizard) loadBoard() tea.Cmd {
	if m.trackers == nil {
		return nil
	}
	tracker := m.trackers(m.state.Email)
	ctx, notices, now := m.ctx, m.notices, m.now
	return func() tea.Msg {
		return collectBoard(ctx, tracker, notices, now())
	}
}

func (m wizard) hideNotice(id string) tea.Cmd {
	tracker := m.trackers(m.state.Email)
	ctx, notices, now := m.ctx, m.notices, m.now
	return func() tea.Msg {
		if err := tracker.Hide(ctx, id); err != nil {
			return boardMsg{err: err}
		}
		return collectBoard(ctx, tracker, notices, now())
	}
}

func collectBoard(ctx context.Context, tracker authflow.NoticeTracker, notices []authflow.Notice, now time.Time) boardMsg {
	hidden := make(map[string]bool)
	for _, n := range notices {
		h, err := tracker.IsHidden(ctx, n.Key())
		if err != nil {
			return boardMsg{err: err}
		}
		if h {
			hidden[n.Key()] = true
		}
	}

	visible := authflow.VisibleNotices(notices, hidden, now)
	unread := make(map[string]bool)
	for _, n := range visible {
		read, err := tracker.IsRead(ctx, n.Key())
		if err != nil {
			return boardMsg{err: err}
		}
		if !read {
			unread[n.Key()] = true
			if err := tracker.MarkRead(ctx, n.Key()); err != nil {
				return boardMsg{err: err}
			}
		}
	}
	return boardMsg{notices: visible, unread: unread}
}

func (m wizard) View() string {
	var b strings.Builder
	st := m.state

	b.WriteString(m.styles.title.Render("authflow · " + st.Step.String()))
	b.WriteString("\n\n")

	for i, name := range m.fields {
		b.WriteString(m.styles.label.Render(fmt.Sprintf("%-9s", name)))
		b.WriteString(" ")
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n")
	}

	switch st.Step {
	case authflow.StepWelcome:
		if m.hint.Checked && m.hint.Email == m.value("email") {
			if m.hint.Registered {
				b.WriteString(m.styles.dim.Render("account found, continue to sign in") + "\n")
			} else {
				b.WriteString(m.styles.dim.Render("no account yet, you can create one") + "\n")
			}
		}
		if m.tip {
			b.WriteString(m.styles.notice.Render("Tip: press ctrl+n to create an account or ctrl+g to use Google") + "\n")
		}
	case authflow.StepSignIn:
		b.WriteString(m.styles.dim.Render("signing in as "+st.Email) + "\n")
	case authflow.StepSignUp:
		if st.Email != "" {
			b.WriteString(m.styles.dim.Render("email: "+st.Email) + "\n")
		}
		if pw := m.value("password"); pw != "" {
			if v := authflow.ValidatePassword(pw); !v.IsValid {
				b.WriteString(m.styles.error.Render("password needs: "+joinRules(v.Errors)) + "\n")
			}
		}
		check := "[ ]"
		if m.terms {
			check = "[x]"
		}
		b.WriteString(check + " I accept the terms\n")
	case authflow.StepTwoFactor:
		b.WriteString(m.styles.dim.Render("method: "+m.method) + "\n")
		if wait := st.ResendAvailableAt.Sub(m.now()); wait > 0 {
			b.WriteString(m.styles.dim.Render(fmt.Sprintf("resend available in %ds", int(wait.Seconds())+1)) + "\n")
		}
	case authflow.StepFindPassword:
		if st.Reset.Stage == authflow.ResetStageCode {
			if left := st.Reset.ExpiresAt.Sub(m.now()); left > 0 {
				b.WriteString(m.styles.dim.Render(fmt.Sprintf("code expires in %ds", int(left.Seconds())+1)) + "\n")
			}
		}
	case authflow.StepSuccess:
		b.WriteString(m.styles.notice.Render("Signed in. Redirecting to your dashboard...") + "\n")
		if st.Degraded {
			b.WriteString(m.styles.dim.Render("two-factor verification was skipped") + "\n")
		}
	case authflow.StepDashboard:
		name := st.Email
		if st.User != nil && st.User.Name != "" {
			name = st.User.Name
		}
		b.WriteString("Welcome, " + name + "\n\n")
		b.WriteString(m.renderBoard())
	}

	if m.status != "" {
		b.WriteString("\n")
		if st.Error == "" && st.Notice == m.status {
			b.WriteString(m.styles.notice.Render(m.status))
		} else {
			b.WriteString(m.styles.error.Render(m.status))
		}
		b.WriteString("\n")
	}

	if len(m.outbox) > 0 {
		b.WriteString("\n" + m.styles.label.Render("outbox") + "\n")
		for _, line := range m.outbox {
			b.WriteString(m.styles.dim.Render("  "+line) + "\n")
		}
	}

	b.WriteString("\n" + m.styles.dim.Render(m.helpLine()))
	return m.styles.panel.Render(b.String()) + "\n"
}

func (m wizard) renderBoard() string {
	if len(m.board) == 0 {
		return m.styles.dim.Render("no notices") + "\n"
	}
	var b strings.Builder
	for _, n := range m.board {
		line := n.Title
		if n.Pinned {
			line = m.styles.pinned.Render("* " + line)
		}
		if m.unread[n.Key()] {
			line += m.styles.notice.Render(" (new)")
		}
		b.WriteString(line + "\n")
		if n.Content != "" {
			b.WriteString(m.styles.dim.Render("  "+n.Content) + "\n")
		}
	}
	return b.String()
}

func (m wizard) helpLine() string {
	var bindings []key.Binding
	switch m.state.Step {
	case authflow.StepWelcome:
		bindings = []key.Binding{m.keys.Submit, m.keys.SignUp, m.keys.Social}
	case authflow.StepSignIn:
		bindings = []key.Binding{m.keys.Submit, m.keys.Forgot, m.keys.Back}
	case authflow.StepSignUp:
		bindings = []key.Binding{m.keys.NextField, m.keys.Terms, m.keys.Submit, m.keys.Back}
	case authflow.StepTwoFactor:
		bindings = []key.Binding{m.keys.Submit, m.keys.Method, m.keys.Resend, m.keys.Skip, m.keys.Back}
	case authflow.StepFindPassword:
		bindings = []key.Binding{m.keys.Submit, m.keys.Back}
	case authflow.StepDashboard:
		bindings = []key.Binding{m.keys.Hide, m.keys.Logout}
	}
	bindings = append(bindings, m.keys.Quit)

	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

func joinRules(rules []authflow.PasswordRule) string {
	parts := make([]string, 0, len(rules))
	for _, r := range rules {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, ", ")
}
