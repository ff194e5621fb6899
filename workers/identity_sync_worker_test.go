package workers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"hunter-quest-system/apperr"
	"hunter-quest-system/models"
	"hunter-quest-system/repository"
	"hunter-quest-system/repository/repotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profileFeed struct {
	mu     sync.Mutex
	sinces []string
	tokens []string
	pages  [][]RemoteProfile
}

func (f *profileFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.URL.Path != DefaultProfilesPath {
		http.NotFound(w, r)
		return
	}
	f.sinces = append(f.sinces, r.URL.Query().Get("since"))
	f.tokens = append(f.tokens, r.Header.Get("X-Service-Token"))
	var page []RemoteProfile
	if len(f.pages) > 0 {
		page, f.pages = f.pages[0], f.pages[1:]
	}
	_ = json.NewEncoder(w).Encode(profileChanges{Users: page})
}

// brokenWrites fails identity writes for one user with a non-conflict error.
type brokenWrites struct {
	repository.Repository
	failID string
}

func (b *brokenWrites) UpsertUserIdentity(ctx context.Context, user *models.User) error {
	if user.ID == b.failID {
		return apperr.Wrap(apperr.CodeInternal, "query user identity", errors.New("connection reset"))
	}
	return b.Repository.UpsertUserIdentity(ctx, user)
}

func strPtr(s string) *string { return &s }

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestSyncOnceUpsertsAndAdvancesCursor(t *testing.T) {
	repo, clock := repotest.New(t)
	ctx := t.Context()
	repotest.SeedUser(t, repo, "u1")
	_, err := repo.UpdateUser(ctx, "u1", map[string]any{"total_xp": 250, "level": 3})
	require.NoError(t, err)

	changed := time.Date(2025, 1, 14, 8, 0, 0, 0, time.UTC)
	feed := &profileFeed{pages: [][]RemoteProfile{
		{
			{ExternalID: "u1", Email: strPtr("jinwoo@example.com"), FirstName: strPtr("Jinwoo"), UpdatedAt: changed},
			{ExternalID: "u2", FirstName: strPtr("Hae-In"), UpdatedAt: changed.Add(-time.Hour)},
			{},
		},
	}}
	srv := httptest.NewServer(feed)
	t.Cleanup(srv.Close)

	w := NewIdentitySyncWorker(repo, clock, discard(), srv.URL, "svc-token", time.Minute)

	n, err := w.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	u1, err := repo.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, u1.Email, "identity not mirrored")
	assert.Equal(t, "jinwoo@example.com", *u1.Email)
	assert.Equal(t, int64(250), u1.TotalXP, "progression overwritten")
	assert.Equal(t, 3, u1.Level, "progression overwritten")

	u2, err := repo.GetUser(ctx, "u2")
	require.NoError(t, err, "new user not created")
	assert.Equal(t, 1, u2.Level)
	assert.Equal(t, models.RankE, u2.Rank)

	_, err = w.SyncOnce(ctx)
	require.NoError(t, err)
	require.Len(t, feed.sinces, 2)
	assert.Equal(t, "0001-01-01T00:00:00Z", feed.sinces[0])
	assert.Equal(t, changed.Format(time.RFC3339), feed.sinces[1])
	assert.Equal(t, "svc-token", feed.tokens[0])
}

func TestSyncOnceSkipsEmailOwnedByAnotherUser(t *testing.T) {
	repo, clock := repotest.New(t)
	ctx := t.Context()

	changed := time.Date(2025, 1, 14, 8, 0, 0, 0, time.UTC)
	feed := &profileFeed{pages: [][]RemoteProfile{
		{{ExternalID: "u1", Email: strPtr("a@example.com"), UpdatedAt: changed}},
		{
			{ExternalID: "u2", Email: strPtr("a@example.com"), UpdatedAt: changed.Add(time.Hour)},
			{ExternalID: "u3", Email: strPtr("c@example.com"), UpdatedAt: changed.Add(2 * time.Hour)},
		},
	}}
	srv := httptest.NewServer(feed)
	t.Cleanup(srv.Close)

	w := NewIdentitySyncWorker(repo, clock, discard(), srv.URL, "", time.Minute)

	n, err := w.SyncOnce(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	n, err = w.SyncOnce(ctx)
	require.NoError(t, err, "a conflicting row must not fail the batch")
	assert.Equal(t, 1, n)

	u3, err := repo.GetUser(ctx, "u3")
	require.NoError(t, err, "unrelated user in the batch was not synced")
	require.NotNil(t, u3.Email)
	assert.Equal(t, "c@example.com", *u3.Email)

	_, err = repo.GetUser(ctx, "u2")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound), "conflicting profile should be skipped, got %v", err)

	assert.True(t, w.since.Equal(changed.Add(2*time.Hour)), "cursor should move past the skipped row, got %s", w.since)
}

func TestSyncOnceStopsAtFailedWrite(t *testing.T) {
	base, clock := repotest.New(t)
	ctx := t.Context()
	repo := &brokenWrites{Repository: base, failID: "u2"}

	changed := time.Date(2025, 1, 14, 8, 0, 0, 0, time.UTC)
	batch := []RemoteProfile{
		{ExternalID: "u3", UpdatedAt: changed.Add(2 * time.Hour)},
		{ExternalID: "u1", UpdatedAt: changed},
		{ExternalID: "u2", UpdatedAt: changed.Add(time.Hour)},
	}
	feed := &profileFeed{pages: [][]RemoteProfile{batch, batch}}
	srv := httptest.NewServer(feed)
	t.Cleanup(srv.Close)

	w := NewIdentitySyncWorker(repo, clock, discard(), srv.URL, "", time.Minute)

	n, err := w.SyncOnce(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, w.since.Equal(changed), "cursor may only pass rows that were applied, got %s", w.since)

	_, err = base.GetUser(ctx, "u3")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound), "rows after the failure must wait for the retry")

	repo.failID = ""
	n, err = w.SyncOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, changed.Format(time.RFC3339), feed.sinces[1])
	assert.True(t, w.since.Equal(changed.Add(2*time.Hour)), "cursor should reach the newest row, got %s", w.since)
}

func TestSyncOnceReportsHTTPFailure(t *testing.T) {
	repo, clock := repotest.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	w := NewIdentitySyncWorker(repo, clock, discard(), srv.URL, "", time.Minute)
	_, err := w.SyncOnce(t.Context())
	require.Error(t, err, "expected error for 502")
	assert.True(t, w.since.IsZero(), "cursor must not move on failure")
}

func TestStartPollsOnTicker(t *testing.T) {
	repo, clock := repotest.New(t)
	feed := &profileFeed{}
	srv := httptest.NewServer(feed)
	t.Cleanup(srv.Close)

	w := NewIdentitySyncWorker(repo, clock, discard(), srv.URL, "", time.Minute)
	ctx, cancel := context.WithCancel(t.Context())
	done := w.Start(ctx)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)

	require.Eventually(t, func() bool {
		feed.mu.Lock()
		defer feed.mu.Unlock()
		return len(feed.sinces) >= 2
	}, 2*time.Second, 10*time.Millisecond, "expected backfill plus one tick")

	cancel()
	<-done
}
