package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pawcircle/pawcircle-backend/pkg/db/models"
	pkgerrors "github.com/pawcircle/pawcircle-backend/pkg/errors"
	"github.com/pawcircle/pawcircle-backend/pkg/pagination"
)

// memRepo serves the service tests; the gorm repository has its own sqlite tests.
type memRepo struct {
	rows     []models.Notification
	next     string
	unread   int64
	outcome  readOutcome
	err      error
	lastList inboxQuery
	markedAt time.Time
}

func (m *memRepo) WithTx(*gorm.DB) Repository { return m }

func (m *memRepo) Create(context.Context, *models.Notification) (bool, error) { return true, m.err }

func (m *memRepo) List(_ context.Context, q inboxQuery) ([]models.Notification, string, error) {
	m.lastList = q
	return m.rows, m.next, m.err
}

func (m *memRepo) CountUnread(context.Context, uuid.UUID) (int64, error) { return m.unread, m.err }

func (m *memRepo) MarkRead(_ context.Context, _, _ uuid.UUID, now time.Time) (readOutcome, error) {
	m.markedAt = now
	return m.outcome, m.err
}

func (m *memRepo) MarkAllRead(_ context.Context, _ uuid.UUID, now time.Time) (int64, error) {
	m.markedAt = now
	return m.unread, m.err
}

func (m *memRepo) DeleteReadBefore(context.Context, *gorm.DB, time.Time) (int64, error) {
	return 0, m.err
}

func mustService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if !pkgerrors.IsCode(err, code) {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}

func TestListMapsRowsAndPassesCursor(t *testing.T) {
	readAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	repo := &memRepo{
		rows: []models.Notification{
			{ID: uuid.New(), Title: "Order placed"},
			{ID: uuid.New(), Title: "Order placed", ReadAt: &readAt},
		},
		next:   "next-page",
		unread: 4,
	}
	cursor := pagination.Cursor{CreatedAt: readAt, ID: uuid.New()}
	userID := uuid.New()

	result, err := mustService(t, repo).List(context.Background(), ListParams{
		UserID:     userID,
		Limit:      2,
		Cursor:     pagination.EncodeCursor(cursor),
		UnreadOnly: true,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	q := repo.lastList
	if q.UserID != userID || q.Limit != 2 || !q.UnreadOnly {
		t.Fatalf("unexpected query %+v", q)
	}
	if q.After == nil || q.After.ID != cursor.ID {
		t.Fatalf("expected cursor %s to be forwarded, got %+v", cursor.ID, q.After)
	}

	if len(result.Items) != 2 || result.Items[0].Read || !result.Items[1].Read {
		t.Fatalf("unexpected items %+v", result.Items)
	}
	if result.Cursor != "next-page" || result.Unread != 4 {
		t.Fatalf("expected cursor next-page and 4 unread, got %q and %d", result.Cursor, result.Unread)
	}
}

func TestListRejectsBadInput(t *testing.T) {
	svc := mustService(t, &memRepo{})

	_, err := svc.List(context.Background(), ListParams{})
	expectCode(t, err, pkgerrors.CodeUnauthorized)

	_, err = svc.List(context.Background(), ListParams{UserID: uuid.New(), Cursor: "bad"})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestListWrapsRepositoryFailure(t *testing.T) {
	svc := mustService(t, &memRepo{err: errors.New("boom")})
	_, err := svc.List(context.Background(), ListParams{UserID: uuid.New()})
	expectCode(t, err, pkgerrors.CodeDependency)
}

func TestMarkReadOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		outcome readOutcome
		code    pkgerrors.Code
	}{
		{name: "marked", outcome: readMarked},
		{name: "already read", outcome: readAlready},
		{name: "missing", outcome: readMissing, code: pkgerrors.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memRepo{outcome: tt.outcome}
			err := mustService(t, repo).MarkRead(context.Background(), uuid.New(), uuid.New())
			if tt.code != "" {
				expectCode(t, err, tt.code)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if repo.markedAt.Location() != time.UTC {
				t.Fatalf("expected UTC timestamp, got %s", repo.markedAt.Location())
			}
		})
	}
}

func TestMarkReadValidatesIDs(t *testing.T) {
	svc := mustService(t, &memRepo{outcome: readMarked})
	expectCode(t, svc.MarkRead(context.Background(), uuid.New(), uuid.Nil), pkgerrors.CodeValidation)
	expectCode(t, svc.MarkRead(context.Background(), uuid.Nil, uuid.New()), pkgerrors.CodeUnauthorized)
}

func TestMarkAllRead(t *testing.T) {
	count, err := mustService(t, &memRepo{unread: 3}).MarkAllRead(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 updated, got %d", count)
	}

	_, err = mustService(t, &memRepo{err: errors.New("boom")}).MarkAllRead(context.Background(), uuid.New())
	expectCode(t, err, pkgerrors.CodeDependency)
}

func TestNewServiceRequiresRepository(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error for nil repository")
	}
}
