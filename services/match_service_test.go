package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dosada05/matchday/models"
	"github.com/Dosada05/matchday/repositories"
)

func matchAt(teamA, teamB int, at time.Time) models.Match {
	return models.Match{
		TeamAID:   teamA,
		TeamBID:   teamB,
		CreatorID: 100,
		Status:    models.MatchStatusPendingVerification,
		PlayedAt:  at,
		CreatedAt: at,
	}
}

type matchFixture struct {
	db       *sql.DB
	mock     sqlmock.Sqlmock
	matches  *fakeMatchRepo
	lineups  *fakeLineupRepo
	intents  *fakeIntentRepo
	teams    *fakeTeamRepo
	notifier *fakeNotifier
	svc      MatchService
}

func newMatchFixture(t *testing.T, now Clock) *matchFixture {
	t.Helper()
	db, mock := newMockDB(t)
	f := &matchFixture{
		db:      db,
		mock:    mock,
		matches: newFakeMatchRepo(now),
		lineups: &fakeLineupRepo{},
		intents: newFakeIntentRepo(),
		teams: newFakeTeamRepo(
			&models.Team{ID: 1, Name: "Lions", CaptainID: 100, Status: models.TeamStatusActive},
			&models.Team{ID: 2, Name: "Wolves", CaptainID: 200, Status: models.TeamStatusActive},
		),
		notifier: newFakeNotifier(),
	}
	constraints := NewConstraintService(f.matches, now)
	f.svc = NewMatchService(db, f.matches, f.lineups, f.intents, f.teams, constraints, f.notifier, now, discardLogger())
	return f
}

func validInput() SubmitMatchInput {
	return SubmitMatchInput{
		CreatorID: 100,
		TeamAID:   1,
		TeamBID:   2,
		ScoreA:    3,
		ScoreB:    1,
		LineupA:   []int{11, 12, 13, 14, 15},
		LineupB:   []int{21, 22, 23, 24, 25},
	}
}

// expectSubmitTx описывает SQL, который проходит через транзакцию отправки.
// Репозитории в тестах фейковые, поэтому здесь только точки сохранения.
func expectSubmitTx(mock sqlmock.Sqlmock, withEvents bool, failedParts map[string]bool) {
	mock.ExpectBegin()
	parts := []string{"lineup"}
	if withEvents {
		parts = append(parts, "events")
	}
	for _, p := range parts {
		mock.ExpectExec("SAVEPOINT " + p).WillReturnResult(sqlmock.NewResult(0, 0))
		if failedParts[p] {
			mock.ExpectExec("ROLLBACK TO SAVEPOINT " + p).WillReturnResult(sqlmock.NewResult(0, 0))
		} else {
			mock.ExpectExec("RELEASE SAVEPOINT " + p).WillReturnResult(sqlmock.NewResult(0, 0))
		}
	}
	mock.ExpectCommit()
}

func TestSubmitWritesHeaderLineupAndEvents(t *testing.T) {
	f := newMatchFixture(t, fixedClock(testNow))
	expectSubmitTx(f.mock, true, nil)

	input := validInput()
	input.LineupA = append(input.LineupA, 11, 12) // дубли схлопываются
	input.Scorers = []int{11, 11, 13, 21}

	res, err := f.svc.Submit(context.Background(), input)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}

	m := res.Match
	if m.ID == 0 || m.Status != models.MatchStatusPendingVerification {
		t.Fatalf("unexpected header: %+v", m)
	}
	if !m.PlayedAt.Equal(testNow) {
		t.Fatalf("played_at = %v, want %v", m.PlayedAt, testNow)
	}
	if len(res.Warnings) != 0 || len(res.Pending) != 0 {
		t.Fatalf("unexpected warnings %v / pending %v", res.Warnings, res.Pending)
	}

	got, err := f.svc.GetMatch(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("GetMatch: %v", err)
	}
	if got.Status != models.MatchStatusPendingVerification {
		t.Fatalf("status = %s", got.Status)
	}
	if len(got.Lineup) != 10 {
		t.Fatalf("lineup size = %d, want 10", len(got.Lineup))
	}
	for _, e := range got.Lineup {
		if !e.IsStarter || e.XPEarned != 0 {
			t.Fatalf("lineup entry not a zero-xp starter: %+v", e)
		}
	}
	if len(got.Events) != 4 {
		t.Fatalf("events = %d, want 4 (one per scorer entry)", len(got.Events))
	}

	intent := f.intents.get(m.ID)
	if intent.LineupPending || intent.EventsPending || intent.ResolvedAt == nil {
		t.Fatalf("intent should be resolved: %+v", intent)
	}

	teamA, _ := f.teams.GetByID(context.Background(), 1)
	teamB, _ := f.teams.GetByID(context.Background(), 2)
	if teamA.MatchCount != 1 || teamB.MatchCount != 1 {
		t.Fatalf("match counters = %d/%d, want 1/1", teamA.MatchCount, teamB.MatchCount)
	}
}

func TestSubmitSmallLineupWarns(t *testing.T) {
	f := newMatchFixture(t, fixedClock(testNow))
	expectSubmitTx(f.mock, false, nil)

	input := validInput()
	input.LineupB = []int{21, 22, 23}

	res, err := f.svc.Submit(context.Background(), input)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", res.Warnings)
	}
}

func TestSubmitWithoutOpponentLineupWarns(t *testing.T) {
	f := newMatchFixture(t, fixedClock(testNow))
	expectSubmitTx(f.mock, false, nil)

	input := validInput()
	input.LineupB = nil

	res, err := f.svc.Submit(context.Background(), input)
	if err != nil {
		t.Fatalf("missing opponent lineup must not fail the submission: %v", err)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "team 2") {
		t.Fatalf("expected one warning for team 2, got %v", res.Warnings)
	}
	if len(res.Pending) != 0 {
		t.Fatalf("pending = %v", res.Pending)
	}
	if got := len(f.lineups.entries); got != len(input.LineupA) {
		t.Fatalf("stored %d lineup entries, want %d", got, len(input.LineupA))
	}
}

func TestSubmitLineupFailureIsPartial(t *testing.T) {
	f := newMatchFixture(t, fixedClock(testNow))
	f.lineups.entriesErr = errors.New("insert failed")
	expectSubmitTx(f.mock, true, map[string]bool{"lineup": true})

	input := validInput()
	input.Scorers = []int{11}

	res, err := f.svc.Submit(context.Background(), input)
	if err != nil {
		t.Fatalf("lineup failure must not fail the submission: %v", err)
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
	if res.Match.Status != models.MatchStatusPendingVerification {
		t.Fatalf("status = %s", res.Match.Status)
	}
	if len(res.Pending) != 1 || res.Pending[0] != "lineup" {
		t.Fatalf("pending = %v, want [lineup]", res.Pending)
	}

	intent := f.intents.get(res.Match.ID)
	if !intent.LineupPending || intent.EventsPending || intent.ResolvedAt != nil {
		t.Fatalf("intent should keep lineup pending: %+v", intent)
	}
}

func TestSubmitHeaderFailureRollsBack(t *testing.T) {
	f := newMatchFixture(t, fixedClock(testNow))
	f.matches.createErr = repositories.ErrStoreUnavailable
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Submit(context.Background(), validInput())
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *SubmitMatchInput)
	}{
		{"same team", func(in *SubmitMatchInput) { in.TeamBID = in.TeamAID }},
		{"negative score", func(in *SubmitMatchInput) { in.ScoreB = -1 }},
		{"scorer outside lineup", func(in *SubmitMatchInput) { in.Scorers = []int{99} }},
		{"player on both sides", func(in *SubmitMatchInput) { in.LineupB = append(in.LineupB, 11) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMatchFixture(t, fixedClock(testNow))
			in := validInput()
			tt.mutate(&in)
			_, err := f.svc.Submit(context.Background(), in)
			if !errors.Is(err, ErrValidationFailed) {
				t.Fatalf("expected ErrValidationFailed, got %v", err)
			}
			if err := f.mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("no SQL expected: %v", err)
			}
		})
	}
}

func TestReportRequiresCaptainOfTeamA(t *testing.T) {
	f := newMatchFixture(t, fixedClock(testNow))
	in := validInput()
	in.CreatorID = 200

	if _, err := f.svc.Report(context.Background(), in); !errors.Is(err, ErrCaptainActionForbidden) {
		t.Fatalf("expected ErrCaptainActionForbidden, got %v", err)
	}
}

func TestReportBlockedByCooldown(t *testing.T) {
	f := newMatchFixture(t, fixedClock(testNow))
	f.matches.seed(matchAt(1, 2, testNow.Add(-30*time.Minute)))

	_, err := f.svc.Report(context.Background(), validInput())
	if !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive, got %v", err)
	}
	if n, _ := f.matches.CountCreatedSince(context.Background(), 1, testNow.Add(-time.Hour)); n != 1 {
		t.Fatalf("no new match should be created, have %d", n)
	}
}

func TestReportNotifiesOpposingCaptain(t *testing.T) {
	f := newMatchFixture(t, fixedClock(testNow))
	expectSubmitTx(f.mock, false, nil)

	if _, err := f.svc.Report(context.Background(), validInput()); err != nil {
		t.Fatalf("Report: %v", err)
	}
	sent := f.notifier.wait(t)
	if sent.UserID != 200 || sent.Kind != models.NotificationMatchReported {
		t.Fatalf("unexpected notification: %+v", sent)
	}
}

func TestGetMatchNotFound(t *testing.T) {
	f := newMatchFixture(t, fixedClock(testNow))
	if _, err := f.svc.GetMatch(context.Background(), 42); !errors.Is(err, ErrMatchNotFound) {
		t.Fatalf("expected ErrMatchNotFound, got %v", err)
	}
}
