package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Dosada05/matchday/models"
	"github.com/Dosada05/matchday/realtime"
	"github.com/Dosada05/matchday/repositories"
)

type fakeNotificationRepo struct {
	mu        sync.Mutex
	stored    []*models.Notification
	createErr error
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *models.Notification) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = len(r.stored) + 1
	n.CreatedAt = testNow
	r.stored = append(r.stored, n)
	return nil
}

func (r *fakeNotificationRepo) ListByUser(_ context.Context, userID int, limit int) ([]*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Notification
	for i := len(r.stored) - 1; i >= 0 && len(out) < limit; i-- {
		if r.stored[i].UserID == userID {
			out = append(out, r.stored[i])
		}
	}
	return out, nil
}

type recordingBroadcaster struct {
	rooms []string
	types []string
}

func (b *recordingBroadcaster) BroadcastToRoom(roomID string, msgType string, _ interface{}) int {
	b.rooms = append(b.rooms, roomID)
	b.types = append(b.types, msgType)
	return 1
}

func TestNotificationSendPersistsAndPushes(t *testing.T) {
	repo := &fakeNotificationRepo{}
	push := &recordingBroadcaster{}
	svc := NewNotificationService(repo, push, discardLogger())

	err := svc.Send(context.Background(), 42, models.NotificationRequestTaken, " Accepted ", "Someone answered.")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(repo.stored) != 1 || repo.stored[0].Title != "Accepted" {
		t.Fatalf("notification not stored: %+v", repo.stored)
	}
	if len(push.rooms) != 1 || push.rooms[0] != realtime.UserRoom(42) || push.types[0] != string(models.NotificationRequestTaken) {
		t.Fatalf("unexpected push: %v %v", push.rooms, push.types)
	}

	list, err := svc.ListForUser(context.Background(), 42, 0)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListForUser: %v %v", list, err)
	}
}

func TestNotificationStoreFailureSkipsPush(t *testing.T) {
	repo := &fakeNotificationRepo{createErr: repositories.ErrStoreUnavailable}
	push := &recordingBroadcaster{}
	svc := NewNotificationService(repo, push, discardLogger())

	err := svc.Send(context.Background(), 42, models.NotificationMatchReported, "t", "m")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if len(push.rooms) != 0 {
		t.Fatalf("nothing should be pushed when the store fails")
	}
}

func TestTeamEligibility(t *testing.T) {
	matches := newFakeMatchRepo(fixedClock(testNow))
	matches.seed(matchAt(1, 2, testNow.Add(-30*time.Minute)))
	teams := newFakeTeamRepo(&models.Team{ID: 1}, &models.Team{ID: 3})
	svc := NewTeamService(teams, NewConstraintService(matches, fixedClock(testNow)))

	got, err := svc.Eligibility(context.Background(), 1)
	if err != nil {
		t.Fatalf("Eligibility: %v", err)
	}
	if got.Eligible || len(got.Violations) != 1 {
		t.Fatalf("expected cooldown violation, got %+v", got)
	}

	got, err = svc.Eligibility(context.Background(), 3)
	if err != nil || !got.Eligible {
		t.Fatalf("team without history should be eligible: %+v %v", got, err)
	}

	if _, err := svc.Eligibility(context.Background(), 9); !errors.Is(err, ErrTeamNotFound) {
		t.Fatalf("expected ErrTeamNotFound, got %v", err)
	}
}
