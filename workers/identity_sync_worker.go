// workers/identity_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"hunter-quest-system/apperr"
	"hunter-quest-system/models"
	"hunter-quest-system/repository"

	"github.com/jonboulle/clockwork"
)

// DefaultProfilesPath is where the identity service publishes profile changes.
const DefaultProfilesPath = "/api/v1/public/profiles"

// RemoteProfile is one entry of the identity service's change feed.
type RemoteProfile struct {
	ID                string    `json:"id"`
	ExternalID        string    `json:"external_id"`
	Email             *string   `json:"email,omitempty"`
	FirstName         *string   `json:"first_name,omitempty"`
	LastName          *string   `json:"last_name,omitempty"`
	ProfilePictureURL *string   `json:"profile_picture_url,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type profileChanges struct {
	Users []RemoteProfile `json:"users"`
}

// IdentitySyncWorker mirrors profile fields from the identity service into users.
// Progression columns are never touched.
type IdentitySyncWorker struct {
	repo         repository.Repository
	clock        clockwork.Clock
	logger       *slog.Logger
	interval     time.Duration
	baseURL      string
	endpointPath string
	serviceToken string
	httpClient   *http.Client

	// since is the newest updated_at seen so far; only the run goroutine touches it.
	since time.Time
}

func NewIdentitySyncWorker(repo repository.Repository, clock clockwork.Clock, logger *slog.Logger, baseURL, serviceToken string, interval time.Duration) *IdentitySyncWorker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &IdentitySyncWorker{
		repo:         repo,
		clock:        clock,
		logger:       logger,
		interval:     interval,
		baseURL:      baseURL,
		endpointPath: DefaultProfilesPath,
		serviceToken: serviceToken,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Start runs an initial backfill and then polls until ctx is cancelled.
// The returned channel closes once the loop has exited.
func (w *IdentitySyncWorker) Start(ctx context.Context) <-chan struct{} {
	w.logger.Info("[SYNC] identity sync worker starting", "base_url", w.baseURL, "interval", w.interval)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.run(ctx)
	}()
	return done
}

func (w *IdentitySyncWorker) run(ctx context.Context) {
	if _, err := w.SyncOnce(ctx); err != nil {
		w.logger.Warn("[SYNC] initial sync failed", "error", err)
	}

	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			if _, err := w.SyncOnce(ctx); err != nil {
				w.logger.Error("[SYNC] sync batch failed", "error", err)
			}
		case <-ctx.Done():
			w.logger.Info("[SYNC] identity sync worker stopped")
			return
		}
	}
}

// SyncOnce fetches changes newer than the cursor and upserts them one profile at a time.
// A profile that conflicts with another user's identity is logged and skipped so the
// rest of the batch still applies. Any other write error stops the batch; the cursor
// then only moves past timestamps that were fully handled.
func (w *IdentitySyncWorker) SyncOnce(ctx context.Context) (int, error) {
	profiles, err := w.fetch(ctx, w.since)
	if err != nil {
		return 0, err
	}
	if len(profiles) == 0 {
		w.logger.Debug("[SYNC] no profile changes", "since", w.since)
		return 0, nil
	}

	sort.SliceStable(profiles, func(i, j int) bool {
		return profiles[i].UpdatedAt.Before(profiles[j].UpdatedAt)
	})

	applied, skipped := 0, 0
	latest := w.since
	for _, p := range profiles {
		id := p.ExternalID
		if id == "" {
			id = p.ID
		}
		if id == "" {
			w.logger.Warn("[SYNC] skipping profile without id")
			latest = laterOf(latest, p.UpdatedAt)
			continue
		}
		user := &models.User{
			ID:              id,
			Email:           p.Email,
			FirstName:       p.FirstName,
			LastName:        p.LastName,
			ProfileImageURL: p.ProfilePictureURL,
			HunterClass:     models.HunterClassFighter,
			Level:           1,
			Rank:            models.RankE,
			Timestamps:      models.Timestamps{UpdatedAt: p.UpdatedAt},
		}
		if err := w.repo.UpsertUserIdentity(ctx, user); err != nil {
			if apperr.HasCode(err, apperr.CodeConflict) {
				w.logger.Warn("[SYNC] skipping conflicting profile", "user_id", id, "error", err)
				skipped++
				latest = laterOf(latest, p.UpdatedAt)
				continue
			}
			// Rows sharing the failed row's timestamp must be fetched again.
			if latest.Before(p.UpdatedAt) {
				w.since = latest
			}
			return applied, fmt.Errorf("sync profile %s: %w", id, err)
		}
		applied++
		latest = laterOf(latest, p.UpdatedAt)
	}

	w.since = latest
	w.logger.Info("[SYNC] profiles synced", "count", applied, "skipped", skipped, "latest", latest.Format(time.RFC3339))
	return applied, nil
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

func (w *IdentitySyncWorker) fetch(ctx context.Context, since time.Time) ([]RemoteProfile, error) {
	base, err := url.Parse(w.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid sync service URL %q: %w", w.baseURL, err)
	}
	endpoint := base.JoinPath(w.endpointPath)
	q := endpoint.Query()
	q.Set("since", since.UTC().Format(time.RFC3339))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build sync request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sync request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("sync service returned %d: %s", resp.StatusCode, body)
	}

	var changes profileChanges
	if err := json.NewDecoder(resp.Body).Decode(&changes); err != nil {
		return nil, fmt.Errorf("decode sync response: %w", err)
	}
	return changes.Users, nil
}
