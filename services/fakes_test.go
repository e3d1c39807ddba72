package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Dosada05/matchday/models"
	"github.com/Dosada05/matchday/repositories"
)

var testNow = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// ---- teams ----

type fakeTeamRepo struct {
	mu    sync.Mutex
	teams map[int]*models.Team
}

func newFakeTeamRepo(teams ...*models.Team) *fakeTeamRepo {
	r := &fakeTeamRepo{teams: make(map[int]*models.Team)}
	for _, t := range teams {
		r.teams[t.ID] = t
	}
	return r
}

func (r *fakeTeamRepo) GetByID(_ context.Context, id int) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	c := *t
	return &c, nil
}

// setCaptain имитирует смену капитана уже после подачи отчёта.
func (r *fakeTeamRepo) setCaptain(teamID, captainID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teams[teamID].CaptainID = captainID
}

func (r *fakeTeamRepo) ListByIDs(_ context.Context, ids []int) ([]*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Team, 0, len(ids))
	for _, id := range ids {
		if t, ok := r.teams[id]; ok {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTeamRepo) IncrementMatchCount(_ context.Context, _ repositories.SQLExecutor, ids ...int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if t, ok := r.teams[id]; ok {
			t.MatchCount++
		}
	}
	return nil
}

// ---- matches ----

type fakeMatchRepo struct {
	mu        sync.Mutex
	matches   map[int]*models.Match
	nextID    int
	now       Clock
	createErr error
	// beforeUpdate срабатывает внутри UpdateStatusIfCurrent до проверки статуса.
	beforeUpdate func(m *models.Match)
}

func newFakeMatchRepo(now Clock) *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[int]*models.Match), now: now}
}

func (r *fakeMatchRepo) seed(m models.Match) *models.Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m.ID = r.nextID
	r.matches[m.ID] = &m
	return &m
}

func (r *fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m.ID = r.nextID
	m.CreatedAt = r.now()
	c := *m
	r.matches[m.ID] = &c
	return nil
}

func (r *fakeMatchRepo) GetByID(_ context.Context, id int) (*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	c := *m
	return &c, nil
}

func (r *fakeMatchRepo) CountCreatedSince(_ context.Context, teamID int, since time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.matches {
		if (m.TeamAID == teamID || m.TeamBID == teamID) && !m.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *fakeMatchRepo) ExistsPlayedSince(_ context.Context, teamID int, since time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.matches {
		if (m.TeamAID == teamID || m.TeamBID == teamID) && !m.PlayedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeMatchRepo) UpdateStatusIfCurrent(_ context.Context, _ repositories.SQLExecutor, id int, expected, next models.MatchStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchStatusChanged
	}
	if r.beforeUpdate != nil {
		r.beforeUpdate(m)
	}
	if m.Status != expected {
		return repositories.ErrMatchStatusChanged
	}
	m.Status = next
	return nil
}

func (r *fakeMatchRepo) status(id int) models.MatchStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.matches[id].Status
}

// ---- lineups / events ----

type fakeLineupRepo struct {
	mu         sync.Mutex
	entries    []models.LineupEntry
	events     []models.MatchEvent
	entriesErr error
	eventsErr  error
}

func (r *fakeLineupRepo) CreateEntries(_ context.Context, _ repositories.SQLExecutor, entries []models.LineupEntry) error {
	if r.entriesErr != nil {
		return r.entriesErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *fakeLineupRepo) CreateMissingEntries(_ context.Context, _ repositories.SQLExecutor, entries []models.LineupEntry) (int64, error) {
	if r.entriesErr != nil {
		return 0, r.entriesErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var inserted int64
	for _, e := range entries {
		exists := false
		for _, have := range r.entries {
			if have.MatchID == e.MatchID && have.PlayerID == e.PlayerID {
				exists = true
				break
			}
		}
		if !exists {
			r.entries = append(r.entries, e)
			inserted++
		}
	}
	return inserted, nil
}

func (r *fakeLineupRepo) CreateEvents(_ context.Context, _ repositories.SQLExecutor, events []models.MatchEvent) error {
	if r.eventsErr != nil {
		return r.eventsErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range events {
		e.ID = len(r.events) + 1
		r.events = append(r.events, e)
	}
	return nil
}

func (r *fakeLineupRepo) CountEvents(_ context.Context, _ repositories.SQLExecutor, matchID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.MatchID == matchID {
			n++
		}
	}
	return n, nil
}

func (r *fakeLineupRepo) ListEntries(_ context.Context, matchID int) ([]models.LineupEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.LineupEntry
	for _, e := range r.entries {
		if e.MatchID == matchID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeLineupRepo) ListEvents(_ context.Context, matchID int) ([]models.MatchEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.MatchEvent
	for _, e := range r.events {
		if e.MatchID == matchID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ---- intents ----

type fakeIntentRepo struct {
	mu      sync.Mutex
	intents map[int]*models.SubmissionIntent
	claimed map[int]bool
}

func newFakeIntentRepo() *fakeIntentRepo {
	return &fakeIntentRepo{intents: make(map[int]*models.SubmissionIntent), claimed: make(map[int]bool)}
}

func (r *fakeIntentRepo) Create(_ context.Context, _ repositories.SQLExecutor, intent *models.SubmissionIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *intent
	r.intents[intent.MatchID] = &c
	return nil
}

func (r *fakeIntentRepo) UpdateProgress(_ context.Context, _ repositories.SQLExecutor, matchID int, lineupPending, eventsPending bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.intents[matchID]
	if !ok {
		return repositories.ErrIntentNotFound
	}
	in.LineupPending = lineupPending
	in.EventsPending = eventsPending
	if !lineupPending && !eventsPending {
		now := testNow
		in.ResolvedAt = &now
	}
	return nil
}

func (r *fakeIntentRepo) ListUnresolved(_ context.Context, createdBefore time.Time, maxAttempts, limit int) ([]*models.SubmissionIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.SubmissionIntent
	for _, in := range r.intents {
		if in.ResolvedAt == nil && in.CreatedAt.Before(createdBefore) && in.Attempts < maxAttempts {
			c := *in
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchID < out[j].MatchID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeIntentRepo) ClaimForRepair(_ context.Context, _ repositories.SQLExecutor, matchID int) (*models.SubmissionIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.intents[matchID]
	if !ok || in.ResolvedAt != nil || r.claimed[matchID] {
		return nil, repositories.ErrIntentNotFound
	}
	c := *in
	return &c, nil
}

func (r *fakeIntentRepo) IncrementAttempts(_ context.Context, matchID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.intents[matchID]
	if !ok {
		return repositories.ErrIntentNotFound
	}
	in.Attempts++
	return nil
}

func (r *fakeIntentRepo) get(matchID int) models.SubmissionIntent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.intents[matchID]
}

// ---- verifications ----

type fakeVerificationRepo struct {
	mu      sync.Mutex
	records []models.VerificationRecord
}

func (r *fakeVerificationRepo) Append(_ context.Context, _ repositories.SQLExecutor, rec *models.VerificationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.ID = len(r.records) + 1
	rec.CreatedAt = testNow
	r.records = append(r.records, *rec)
	return nil
}

func (r *fakeVerificationRepo) ListByMatch(_ context.Context, matchID int) ([]models.VerificationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.VerificationRecord
	for _, rec := range r.records {
		if rec.MatchID == matchID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ---- requests ----

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[int]*models.OperationsRequest
	nextID   int
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[int]*models.OperationsRequest)}
}

func (r *fakeRequestRepo) Create(_ context.Context, req *models.OperationsRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.Type == models.RequestIAmAvailable {
		for _, have := range r.requests {
			if have.RequesterID == req.RequesterID && have.Type == req.Type && have.Status == models.RequestStatusOpen {
				return repositories.ErrRequestAvailabilityConflict
			}
		}
	}
	r.nextID++
	req.ID = r.nextID
	req.CreatedAt = testNow.Add(time.Duration(r.nextID) * time.Second)
	c := *req
	r.requests[req.ID] = &c
	return nil
}

func (r *fakeRequestRepo) GetByID(_ context.Context, id int) (*models.OperationsRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, repositories.ErrRequestNotFound
	}
	c := *req
	return &c, nil
}

func (r *fakeRequestRepo) ExistsOpenByRequester(_ context.Context, requesterID int, t models.RequestType) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.RequesterID == requesterID && req.Type == t && req.Status == models.RequestStatusOpen {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRequestRepo) ListOpenByZone(_ context.Context, zoneID int) ([]*models.OperationsRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.OperationsRequest
	for _, req := range r.requests {
		if req.ZoneID == zoneID && req.Status == models.RequestStatusOpen {
			c := *req
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeRequestRepo) Lock(_ context.Context, id, responderID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.Status != models.RequestStatusOpen {
		return repositories.ErrRequestAlreadyLocked
	}
	req.Status = models.RequestStatusLocked
	req.ResponderID = &responderID
	return nil
}

// ---- tournaments / entries ----

type fakeTournamentRepo struct {
	mu          sync.Mutex
	tournaments map[int]*models.Tournament
	nextID      int
	// casErr подменяет результат условного UPDATE (гонка с другим процессом).
	casErr error
}

func newFakeTournamentRepo(ts ...*models.Tournament) *fakeTournamentRepo {
	r := &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament)}
	for _, t := range ts {
		r.tournaments[t.ID] = t
		if t.ID > r.nextID {
			r.nextID = t.ID
		}
	}
	return r
}

func (r *fakeTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t.ID = r.nextID
	t.CreatedAt = testNow
	c := *t
	r.tournaments[t.ID] = &c
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	c := *t
	return &c, nil
}

func (r *fakeTournamentRepo) GetForUpdate(ctx context.Context, tx repositories.SQLExecutor, id int) (*models.Tournament, error) {
	return r.GetByID(ctx, tx, id)
}

func (r *fakeTournamentRepo) UpdateStatusIfCurrent(_ context.Context, _ repositories.SQLExecutor, id int, expected, next models.TournamentStatus) error {
	if r.casErr != nil {
		return r.casErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok || t.Status != expected {
		return repositories.ErrTournamentStatusChanged
	}
	t.Status = next
	return nil
}

func (r *fakeTournamentRepo) status(id int) models.TournamentStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tournaments[id].Status
}

type fakeEntryRepo struct {
	mu      sync.Mutex
	entries []*models.TournamentEntry
}

func (r *fakeEntryRepo) Create(_ context.Context, _ repositories.SQLExecutor, e *models.TournamentEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, have := range r.entries {
		if have.TournamentID == e.TournamentID && have.TeamID == e.TeamID {
			return repositories.ErrEntryConflict
		}
	}
	e.ID = len(r.entries) + 1
	e.CreatedAt = testNow
	c := *e
	r.entries = append(r.entries, &c)
	return nil
}

func (r *fakeEntryRepo) CountByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.entries {
		if e.TournamentID == tournamentID {
			n++
		}
	}
	return n, nil
}

func (r *fakeEntryRepo) ListByTournament(_ context.Context, _ repositories.SQLExecutor, tournamentID int, _ bool) ([]*models.TournamentEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.TournamentEntry
	for _, e := range r.entries {
		if e.TournamentID == tournamentID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeEntryRepo) AssignGroup(_ context.Context, _ repositories.SQLExecutor, entryID int, group string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == entryID {
			g := group
			e.GroupName = &g
			return nil
		}
	}
	return repositories.ErrEntryNotFound
}

// ---- notifications ----

type sentNotification struct {
	UserID int
	Kind   models.NotificationType
	Title  string
}

type fakeNotifier struct {
	sent chan sentNotification
	err  error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: make(chan sentNotification, 64)}
}

func (n *fakeNotifier) Send(_ context.Context, userID int, kind models.NotificationType, title, _ string) error {
	n.sent <- sentNotification{UserID: userID, Kind: kind, Title: title}
	return n.err
}

func (n *fakeNotifier) wait(t *testing.T) sentNotification {
	t.Helper()
	select {
	case s := <-n.sent:
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("notification was not sent")
		return sentNotification{}
	}
}
