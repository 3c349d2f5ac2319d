package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/evanschultz/pdwatch/internal/app"
	"github.com/evanschultz/pdwatch/internal/domain"
)

type fakeService struct {
	status    app.Status
	statusErr error
	report    app.Report
	checkErr  error
	lastInput app.CheckInput
	checks    int
}

func (f *fakeService) Catalog() domain.Catalog { return domain.NewCatalog() }

func (f *fakeService) Status(context.Context) (app.Status, error) {
	return f.status, f.statusErr
}

func (f *fakeService) CheckPriorityDate(_ context.Context, in app.CheckInput) (app.Report, error) {
	f.checks++
	f.lastInput = in
	if f.checkErr != nil {
		return app.Report{}, f.checkErr
	}
	return f.report, nil
}

func sampleReport() app.Report {
	cutoff := time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)
	category, _ := domain.ResolveCategory(domain.EmploymentBased, "EB2")
	filing := time.Date(2027, 9, 1, 0, 0, 0, 0, time.UTC)
	return app.Report{
		Evaluation: domain.Evaluation{
			Family:       domain.EmploymentBased,
			Category:     category,
			CountryKey:   domain.CountryIndia,
			PriorityDate: time.Date(2013, 6, 1, 0, 0, 0, 0, time.UTC),
			FinalAction: domain.Verdict{
				Dimension: domain.FinalAction,
				Outcome:   domain.OutcomeDate,
				Raw:       "01JAN13",
				Result:    &domain.EvaluationResult{CutoffText: domain.FormatDay(cutoff), FormattedDate: &cutoff},
			},
			Filing: domain.Verdict{Dimension: domain.Filing, Outcome: domain.OutcomeNoData},
		},
		Timeline: domain.TimelineResult{
			Basis: domain.BasisForecastRange,
			Stages: []domain.Stage{
				{Kind: domain.StagePriorityDate, Label: "Priority Date", Display: "06/01/2013", State: domain.StateCompleted},
				{Kind: domain.StageFilingWindow, Label: "Filing Window", Display: "September 2027", State: domain.StateUpcoming, Date: &filing},
			},
			Advisory:                  "Forecasts are estimates.",
			EarliestActionMonth:       filing,
			AverageMonthlyAdvanceDays: 30.4,
		},
		BulletinMonth: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		PermDays:      450,
	}
}

func applyMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, cmd := m.Update(msg)
	out, ok := updated.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", updated)
	}
	return applyCmd(t, out, cmd)
}

// applyCmd runs cmd and feeds resulting messages back, skipping quit and blink ticks.
func applyCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	out := m
	currentCmd := cmd
	for i := 0; i < 6 && currentCmd != nil; i++ {
		msg := currentCmd()
		switch msg.(type) {
		case statusLoadedMsg, checkedMsg, copiedMsg:
		default:
			return out
		}
		updated, nextCmd := out.Update(msg)
		casted, ok := updated.(Model)
		if !ok {
			t.Fatalf("expected Model, got %T", updated)
		}
		out = casted
		currentCmd = nextCmd
	}
	return out
}

func keyRune(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m = applyMsg(t, m, keyRune(r))
	}
	return m
}

func readyModel(t *testing.T, svc *fakeService, opts ...Option) Model {
	t.Helper()
	m := NewModel(svc, opts...)
	m = applyCmd(t, m, m.Init())
	return applyMsg(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
}

func TestModelLoadsBulletinStatus(t *testing.T) {
	svc := &fakeService{status: app.Status{BulletinMonth: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)}}
	m := readyModel(t, svc)
	if m.bulletin != "October 2026" {
		t.Fatalf("bulletin = %q, want October 2026", m.bulletin)
	}
	if !strings.Contains(m.render(), "October 2026 bulletin") {
		t.Fatalf("view missing bulletin title:\n%s", m.render())
	}
}

func TestModelMissingBulletinIsNotFatal(t *testing.T) {
	m := readyModel(t, &fakeService{statusErr: app.ErrNoBulletin})
	if m.err != nil {
		t.Fatalf("err = %v, want nil", m.err)
	}
	if !strings.Contains(m.status, "pdwatch refresh") {
		t.Fatalf("status = %q, want refresh hint", m.status)
	}

	broken := readyModel(t, &fakeService{statusErr: errors.New("disk gone")})
	if broken.err == nil {
		t.Fatal("expected fatal error for storage failure")
	}
	if !strings.Contains(broken.render(), "disk gone") {
		t.Fatalf("error view = %q", broken.render())
	}
}

func TestModelSelectionAndCheck(t *testing.T) {
	svc := &fakeService{report: sampleReport()}
	m := readyModel(t, svc)

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyRight}) // employment
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	m = applyMsg(t, m, keyRune('l')) // EB2
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyRight})
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyRight}) // India
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	if m.focus != fieldDate {
		t.Fatalf("focus = %d, want date field", m.focus)
	}
	m = typeText(t, m, "2013-06-01")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})

	if svc.checks != 1 {
		t.Fatalf("checks = %d, want 1", svc.checks)
	}
	want := app.CheckInput{
		Family:       domain.EmploymentBased,
		Category:     "EB2",
		Country:      domain.CountryIndia,
		PriorityDate: time.Date(2013, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	if svc.lastInput != want {
		t.Fatalf("input = %#v, want %#v", svc.lastInput, want)
	}
	if m.report == nil {
		t.Fatal("expected report after check")
	}
	if m.checking {
		t.Fatal("checking flag left set")
	}
}

func TestModelFamilyChangeResetsCategory(t *testing.T) {
	m := readyModel(t, &fakeService{})
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyLeft}) // wraps to F4
	if m.categoryIdx != 4 {
		t.Fatalf("categoryIdx = %d, want 4", m.categoryIdx)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyTab, Mod: tea.ModShift})
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyRight})
	if m.categoryIdx != 0 || m.familyIdx != 1 {
		t.Fatalf("familyIdx=%d categoryIdx=%d, want 1 and 0", m.familyIdx, m.categoryIdx)
	}
}

func TestModelRejectsBadDateWithoutCallingService(t *testing.T) {
	svc := &fakeService{}
	m := readyModel(t, svc)
	for range 3 {
		m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	}
	m = typeText(t, m, "13/45/20x")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if svc.checks != 0 {
		t.Fatalf("checks = %d, want 0", svc.checks)
	}
	if !strings.Contains(m.status, "invalid date") {
		t.Fatalf("status = %q, want invalid date", m.status)
	}
}

func TestModelCheckErrorsBecomeStatus(t *testing.T) {
	svc := &fakeService{checkErr: domain.ErrFutureDate}
	m := readyModel(t, svc)
	for range 3 {
		m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	}
	m = typeText(t, m, "2030-01-01")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.report != nil {
		t.Fatal("report set on failed check")
	}
	if m.status != domain.ErrFutureDate.Error() {
		t.Fatalf("status = %q", m.status)
	}
}

func TestModelCopyReport(t *testing.T) {
	var copied string
	svc := &fakeService{report: sampleReport()}
	m := readyModel(t, svc, WithClipboard(func(text string) error {
		copied = text
		return nil
	}))

	m = applyMsg(t, m, keyRune('y'))
	if m.status != "nothing to copy yet" {
		t.Fatalf("status = %q, want nothing to copy yet", m.status)
	}

	for range 3 {
		m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	}
	m = typeText(t, m, "06/01/2013")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	m = applyMsg(t, m, tea.KeyPressMsg{Code: 'y', Mod: tea.ModCtrl})
	if !strings.Contains(copied, "# EB2 · India") {
		t.Fatalf("copied = %q", copied)
	}
	if m.status != "report copied to clipboard" {
		t.Fatalf("status = %q", m.status)
	}

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.report != nil {
		t.Fatal("esc did not clear report")
	}
}

func TestModelQuitBindings(t *testing.T) {
	m := readyModel(t, &fakeService{})
	_, cmd := m.Update(keyRune('q'))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q did not quit outside the date field")
	}

	for range 3 {
		m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	}
	m = applyMsg(t, m, keyRune('q'))
	if m.dateInput.Value() != "q" {
		t.Fatalf("date input = %q, want q typed", m.dateInput.Value())
	}
}

func TestReportMarkdown(t *testing.T) {
	md := ReportMarkdown(sampleReport())
	for _, want := range []string{
		"# EB2 · India",
		"Employment-Based · priority date **06/01/2013** · bulletin October 2026",
		"| Final Action Date | 01/01/2013 | not yet current |",
		"| Date for Filing | N/A (no data for this category and country) | no data |",
		"- [x] **Priority Date**: 06/01/2013",
		"- [ ] **Filing Window**: September 2027",
		"Earliest action: **September 2027**",
		"Average bulletin advance: 30.4 days per month",
		"PERM processing: 450 days",
		"> Forecasts are estimates.",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestRenderMarkdownFallsBackOnEmpty(t *testing.T) {
	if got := RenderMarkdown("   ", 80); got != "" {
		t.Fatalf("RenderMarkdown(empty) = %q, want empty", got)
	}
	if got := RenderMarkdown("# Title", 10); !strings.Contains(got, "Title") {
		t.Fatalf("RenderMarkdown() = %q, want Title", got)
	}
}

func TestWrapIndex(t *testing.T) {
	cases := []struct{ current, delta, total, want int }{
		{0, 1, 3, 1},
		{2, 1, 3, 0},
		{0, -1, 3, 2},
		{1, 5, 0, 0},
	}
	for _, tc := range cases {
		if got := wrapIndex(tc.current, tc.delta, tc.total); got != tc.want {
			t.Fatalf("wrapIndex(%d,%d,%d) = %d, want %d", tc.current, tc.delta, tc.total, got, tc.want)
		}
	}
}
