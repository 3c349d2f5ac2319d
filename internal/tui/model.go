package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/atotto/clipboard"
	"github.com/evanschultz/pdwatch/internal/app"
	"github.com/evanschultz/pdwatch/internal/domain"
)

// Service represents service data used by this package.
type Service interface {
	Catalog() domain.Catalog
	Status(context.Context) (app.Status, error)
	CheckPriorityDate(context.Context, app.CheckInput) (app.Report, error)
}

// field identifies one focusable form field.
type field int

// fieldFamily and related constants define the form order.
const (
	fieldFamily field = iota
	fieldCategory
	fieldCountry
	fieldDate
	fieldCount
)

// fieldLabels stores the display label of each field.
var fieldLabels = [fieldCount]string{
	fieldFamily:   "Family",
	fieldCategory: "Category",
	fieldCountry:  "Country",
	fieldDate:     "Priority date",
}

// Option configures a Model.
type Option func(*Model)

// WithClipboard replaces the clipboard writer used by the copy binding.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

// WithContext sets the context passed to service calls.
func WithContext(ctx context.Context) Option {
	return func(m *Model) {
		if ctx != nil {
			m.ctx = ctx
		}
	}
}

// Model is the interactive priority date checker.
type Model struct {
	svc Service
	ctx context.Context

	ready  bool
	width  int
	height int
	err    error

	status   string
	bulletin string

	help help.Model
	keys keyMap

	catalog     domain.Catalog
	focus       field
	familyIdx   int
	categoryIdx int
	countryIdx  int
	dateInput   textinput.Model

	checking bool
	report   *app.Report
	markdown *markdownRenderer
	copyText func(string) error
}

// statusLoadedMsg carries the loaded bulletin summary.
type statusLoadedMsg struct {
	status app.Status
	err    error
}

// checkedMsg carries one finished check.
type checkedMsg struct {
	report app.Report
	err    error
}

// copiedMsg reports the clipboard write result.
type copiedMsg struct {
	err error
}

// NewModel constructs the checker model.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	dateInput := textinput.New()
	dateInput.Prompt = ""
	dateInput.Placeholder = "YYYY-MM-DD or MM/DD/YYYY"
	dateInput.CharLimit = 10
	m := Model{
		svc:       svc,
		ctx:       context.Background(),
		status:    "loading...",
		help:      h,
		keys:      newKeyMap(),
		dateInput: dateInput,
		markdown:  &markdownRenderer{},
		copyText:  clipboard.WriteAll,
	}
	if svc != nil {
		m.catalog = svc.Catalog()
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadStatus
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case statusLoadedMsg:
		switch {
		case errors.Is(msg.err, app.ErrNoBulletin):
			m.status = "no bulletin stored; run `pdwatch refresh` first"
		case msg.err != nil:
			m.err = msg.err
		default:
			m.err = nil
			m.bulletin = domain.FormatMonth(msg.status.BulletinMonth)
			m.status = "ready"
		}
		return m, nil

	case checkedMsg:
		m.checking = false
		if msg.err != nil {
			m.status = checkErrorStatus(msg.err)
			return m, nil
		}
		report := msg.report
		m.report = &report
		m.bulletin = domain.FormatMonth(report.BulletinMonth)
		m.status = "checked " + report.Evaluation.Category.Label
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
			return m, nil
		}
		m.status = "report copied to clipboard"
		return m, nil

	case tea.KeyPressMsg:
		return m.handleKey(msg)

	default:
		if m.focus == fieldDate {
			var cmd tea.Cmd
			m.dateInput, cmd = m.dateInput.Update(msg)
			return m, cmd
		}
		return m, nil
	}
}

// handleKey routes one key press according to the focused field.
func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	keys := m.activeKeys()
	switch {
	case key.Matches(msg, keys.quit):
		return m, tea.Quit
	case key.Matches(msg, keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, keys.nextField):
		m.setFocus((m.focus + 1) % fieldCount)
		return m, nil
	case key.Matches(msg, keys.prevField):
		m.setFocus((m.focus + fieldCount - 1) % fieldCount)
		return m, nil
	case key.Matches(msg, keys.nextOption):
		m.cycleOption(1)
		return m, nil
	case key.Matches(msg, keys.prevOption):
		m.cycleOption(-1)
		return m, nil
	case key.Matches(msg, keys.submit):
		return m.submit()
	case key.Matches(msg, keys.copyReport):
		return m.copyReport()
	case key.Matches(msg, keys.clear):
		m.report = nil
		m.status = "ready"
		return m, nil
	}
	if m.focus == fieldDate {
		var cmd tea.Cmd
		m.dateInput, cmd = m.dateInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

// activeKeys returns the bindings honored for the focused field.
func (m Model) activeKeys() keyMap {
	if m.focus == fieldDate {
		return m.keys.textEntryKeys()
	}
	return m.keys
}

// setFocus moves focus and toggles the date input.
func (m *Model) setFocus(f field) {
	m.focus = f
	if f == fieldDate {
		_ = m.dateInput.Focus()
		return
	}
	m.dateInput.Blur()
}

// cycleOption steps the focused selection by delta.
func (m *Model) cycleOption(delta int) {
	switch m.focus {
	case fieldFamily:
		m.familyIdx = wrapIndex(m.familyIdx, delta, len(m.catalog.Families))
		m.categoryIdx = 0
	case fieldCategory:
		m.categoryIdx = wrapIndex(m.categoryIdx, delta, len(m.categories()))
	case fieldCountry:
		m.countryIdx = wrapIndex(m.countryIdx, delta, len(m.catalog.Countries))
	}
}

// submit validates the form and starts one check.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.svc == nil || m.checking {
		return m, nil
	}
	in, err := m.checkInput()
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.checking = true
	m.status = "checking..."
	svc, ctx := m.svc, m.ctx
	return m, func() tea.Msg {
		report, err := svc.CheckPriorityDate(ctx, in)
		return checkedMsg{report: report, err: err}
	}
}

// checkInput builds the service input from the current selection.
func (m Model) checkInput() (app.CheckInput, error) {
	family, ok := m.selectedFamily()
	if !ok {
		return app.CheckInput{}, fmt.Errorf("%w: family", domain.ErrMissingSelection)
	}
	categories := m.categories()
	if len(categories) == 0 {
		return app.CheckInput{}, fmt.Errorf("%w: category", domain.ErrMissingSelection)
	}
	if len(m.catalog.Countries) == 0 {
		return app.CheckInput{}, fmt.Errorf("%w: country", domain.ErrMissingSelection)
	}
	pd, err := domain.ParseDate(m.dateInput.Value())
	if err != nil {
		return app.CheckInput{}, err
	}
	return app.CheckInput{
		Family:       family.Family,
		Category:     categories[clamp(m.categoryIdx, 0, len(categories)-1)].Label,
		Country:      m.catalog.Countries[clamp(m.countryIdx, 0, len(m.catalog.Countries)-1)].Key,
		PriorityDate: pd,
	}, nil
}

// copyReport writes the current report markdown to the clipboard.
func (m Model) copyReport() (tea.Model, tea.Cmd) {
	if m.report == nil {
		m.status = "nothing to copy yet"
		return m, nil
	}
	text := ReportMarkdown(*m.report)
	write := m.copyText
	return m, func() tea.Msg {
		return copiedMsg{err: write(text)}
	}
}

// selectedFamily returns the focused family catalog entry.
func (m Model) selectedFamily() (domain.FamilyCatalog, bool) {
	if len(m.catalog.Families) == 0 {
		return domain.FamilyCatalog{}, false
	}
	return m.catalog.Families[clamp(m.familyIdx, 0, len(m.catalog.Families)-1)], true
}

// categories returns the categories of the selected family.
func (m Model) categories() []domain.Category {
	family, ok := m.selectedFamily()
	if !ok {
		return nil
	}
	return family.Categories
}

// fieldValue renders the current value of one field.
func (m Model) fieldValue(f field) string {
	switch f {
	case fieldFamily:
		if family, ok := m.selectedFamily(); ok {
			return family.Label
		}
	case fieldCategory:
		if categories := m.categories(); len(categories) > 0 {
			c := categories[clamp(m.categoryIdx, 0, len(categories)-1)]
			return c.Label + " · " + c.Description
		}
	case fieldCountry:
		if len(m.catalog.Countries) > 0 {
			return m.catalog.Countries[clamp(m.countryIdx, 0, len(m.catalog.Countries)-1)].Label
		}
	case fieldDate:
		return m.dateInput.View()
	}
	return ""
}

// View handles view.
func (m Model) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

// render builds the full screen content.
func (m Model) render() string {
	if m.err != nil {
		return "error: " + m.err.Error() + "\n\nq quit\n"
	}
	if !m.ready {
		return "loading..."
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	labelStyle := lipgloss.NewStyle().Foreground(muted).Width(15)
	focusStyle := lipgloss.NewStyle().Foreground(accent).Bold(true).Width(15)
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	title := "pdwatch"
	if m.bulletin != "" {
		title += " · " + m.bulletin + " bulletin"
	}
	sections := []string{titleStyle.Render(title), ""}
	for f := field(0); f < fieldCount; f++ {
		label := labelStyle.Render(fieldLabels[f])
		marker := "  "
		if f == m.focus {
			label = focusStyle.Render(fieldLabels[f])
			marker = lipgloss.NewStyle().Foreground(accent).Render("> ")
		}
		value := m.fieldValue(f)
		if f != fieldDate && f == m.focus {
			value = "‹ " + value + " ›"
		}
		sections = append(sections, marker+label+value)
	}
	if m.report != nil {
		width := max(minWrapWidth, m.width-4)
		sections = append(sections, "", m.markdown.render(ReportMarkdown(*m.report), width))
	}
	if strings.TrimSpace(m.status) != "" {
		sections = append(sections, "", statusStyle.Render(m.status))
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.activeKeys()))
	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	return content + "\n" + helpLine
}

// loadStatus loads the bulletin summary shown in the title.
func (m Model) loadStatus() tea.Msg {
	if m.svc == nil {
		return statusLoadedMsg{err: errors.New("service is not configured")}
	}
	status, err := m.svc.Status(m.ctx)
	return statusLoadedMsg{status: status, err: err}
}

// checkErrorStatus turns one check failure into a status line.
func checkErrorStatus(err error) string {
	switch {
	case errors.Is(err, app.ErrNoBulletin):
		return "no bulletin stored; run `pdwatch refresh` first"
	case domain.IsInputError(err):
		return err.Error()
	default:
		return "check failed: " + err.Error()
	}
}

// fitLines truncates content to at most height lines.
func fitLines(content string, height int) string {
	lines := strings.Split(content, "\n")
	if len(lines) <= height {
		return content
	}
	return strings.Join(lines[:height], "\n")
}

// wrapIndex steps current by delta within [0,total).
func wrapIndex(current int, delta int, total int) int {
	if total <= 0 {
		return 0
	}
	return ((current+delta)%total + total) % total
}

// clamp bounds v to [lo,hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
