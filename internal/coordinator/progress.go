package coordinator

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/vytor/lingoflash/internal/errors"
	"github.com/vytor/lingoflash/internal/logger"
	"github.com/vytor/lingoflash/internal/models"
	"github.com/vytor/lingoflash/internal/srs"
)

// GetProgress returns a user's progress. Progress is mutable, so the remote
// is always asked first and its answer replaces the cached set; the cache is
// only served when the remote fails.
func (c *Coordinator) GetProgress(ctx context.Context, userID string) (Result[models.ReviewProgress], error) {
	log := logger.FromContext(ctx).WithPrefix("coordinator").WithField("user_id", userID)

	records, remoteErr := c.remote.ListProgress(ctx, userID)
	if remoteErr == nil {
		merged, err := c.replaceProgress(ctx, userID, records)
		if err != nil {
			log.Warn("failed to refresh cached progress: %v", err)
			merged = records
		}
		if err := c.store.SetFreshness(ctx, models.QueryKeyProgress(userID), c.now()); err != nil {
			log.Warn("failed to record freshness: %v", err)
		}
		return Result[models.ReviewProgress]{Data: merged, Source: SourceRemote}, nil
	}

	log.Warn("remote progress fetch failed, trying cache: %v", remoteErr)
	cached, err := c.store.ProgressByUser(ctx, userID)
	if err != nil || len(cached) == 0 {
		return Result[models.ReviewProgress]{}, remoteErr
	}
	return Result[models.ReviewProgress]{Data: cached, Source: SourceStale, Err: remoteErr}, nil
}

// DueCards returns the user's progress records due at now, soonest first.
func (c *Coordinator) DueCards(ctx context.Context, userID string, now time.Time) (Result[models.ReviewProgress], error) {
	res, err := c.GetProgress(ctx, userID)
	if err != nil {
		return res, err
	}
	due := make([]models.ReviewProgress, 0, len(res.Data))
	for _, p := range res.Data {
		if srs.IsDue(p, now) {
			due = append(due, p)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].NextDueAt.Before(due[j].NextDueAt) })
	res.Data = due
	return res, nil
}

// RateCard records a rating. Online, the new progress is written to the
// remote and the confirmed record is cached. Offline, or when that write
// fails, the update is queued and cached as unconfirmed with its queue id.
func (c *Coordinator) RateCard(ctx context.Context, userID, flashcardID string, quality int) (models.ReviewProgress, error) {
	log := logger.FromContext(ctx).WithPrefix("coordinator").WithFields(map[string]any{
		"user_id":      userID,
		"flashcard_id": flashcardID,
	})

	if strings.TrimSpace(userID) == "" {
		return models.ReviewProgress{}, errors.NewValidationError("user_id", "cannot be empty")
	}
	if strings.TrimSpace(flashcardID) == "" {
		return models.ReviewProgress{}, errors.NewValidationError("flashcard_id", "cannot be empty")
	}
	if err := srs.ValidateQuality(quality); err != nil {
		return models.ReviewProgress{}, err
	}

	prev, err := c.store.GetProgress(ctx, userID, flashcardID)
	if err != nil {
		log.Warn("could not load cached progress, rating as new card: %v", err)
		prev = nil
	}

	now := c.now()
	updated := srs.Apply(prev, userID, flashcardID, srs.Quality(quality), now)
	log.Debug("rated: quality=%d, rep=%d, ease=%.2f, next_due=%s",
		quality, updated.RepetitionCount, updated.EaseFactor, updated.NextDueAt.Format(time.RFC3339))

	if c.net.Online() {
		stored, err := c.remote.UpsertProgress(ctx, updated.Upsert())
		if err == nil {
			if err := c.store.UpsertProgress(ctx, stored); err != nil {
				log.Warn("failed to cache confirmed progress: %v", err)
			}
			if n, err := c.supersedeQueued(ctx, userID, flashcardID, now); err != nil {
				log.Warn("failed to retire queued writes for card: %v", err)
			} else if n > 0 {
				log.Info("retired %d queued writes older than this rating", n)
			}
			if err := c.store.SetFreshness(ctx, models.QueryKeyProgress(userID), now); err != nil {
				log.Warn("failed to record freshness: %v", err)
			}
			return stored, nil
		}
		log.Warn("remote upsert failed, queueing instead: %v", err)
	}

	return c.queueProgress(ctx, updated, now)
}

func (c *Coordinator) queueProgress(ctx context.Context, updated models.ReviewProgress, now time.Time) (models.ReviewProgress, error) {
	log := logger.FromContext(ctx).WithPrefix("coordinator")

	id, err := c.store.EnqueueMutation(ctx, updated.Upsert(), now)
	if err != nil {
		log.Error("failed to queue progress update: %v", err)
		return models.ReviewProgress{}, err
	}
	updated.State = models.StateUnconfirmed
	updated.QueueID = &id
	if err := c.store.UpsertProgress(ctx, updated); err != nil {
		log.Warn("failed to cache optimistic progress: %v", err)
	}
	log.Info("progress update queued: queue_id=%s", id)
	return updated, nil
}

// supersedeQueued marks every queued write for the card as synced. Called once
// a newer rating is confirmed, so a replay cannot roll the server back.
func (c *Coordinator) supersedeQueued(ctx context.Context, userID, flashcardID string, at time.Time) (int, error) {
	pending, err := c.store.ListPendingMutations(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range pending {
		if m.Payload.UserID != userID || m.Payload.FlashcardID != flashcardID {
			continue
		}
		if err := c.store.MarkMutationSynced(ctx, m.ID, at); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

type cardKey struct {
	userID, flashcardID string
}

// newestPerCard picks, per card, the queued write with the latest review time.
// Ties go to the one enqueued last.
func newestPerCard(pending []models.PendingMutation) map[cardKey]string {
	newest := make(map[cardKey]string, len(pending))
	at := make(map[cardKey]time.Time, len(pending))
	for _, m := range pending {
		k := cardKey{m.Payload.UserID, m.Payload.FlashcardID}
		if t, ok := at[k]; ok && m.Payload.LastReviewedAt.Before(t) {
			continue
		}
		newest[k] = m.ID
		at[k] = m.Payload.LastReviewedAt
	}
	return newest
}

// superseded reports whether m is older than another write for the same card,
// either a later queued one or a confirmed record already in the cache.
func (c *Coordinator) superseded(ctx context.Context, m models.PendingMutation, newest map[cardKey]string) bool {
	if newest[cardKey{m.Payload.UserID, m.Payload.FlashcardID}] != m.ID {
		return true
	}
	cached, err := c.store.GetProgress(ctx, m.Payload.UserID, m.Payload.FlashcardID)
	if err != nil || cached == nil {
		return false
	}
	return cached.State == models.StateConfirmed && cached.LastReviewedAt.After(m.Payload.LastReviewedAt)
}

// SyncFailure is one mutation that could not be replayed.
type SyncFailure struct {
	ID  string `json:"id"`
	Err string `json:"error"`
}

type SyncReport struct {
	Skipped       bool          `json:"skipped,omitempty"`
	Synced        []string      `json:"synced"`
	Superseded    []string      `json:"superseded,omitempty"`
	Failed        []SyncFailure `json:"failed"`
	RefreshFailed []string      `json:"refresh_failed,omitempty"`
	Purged        int64         `json:"purged"`
}

// SyncPending replays queued progress writes in enqueue order. Only the newest
// write per card is sent; older ones are retired without a replay. A failed
// item stays queued without blocking the rest. Afterwards every user with a
// replayed item gets the cached progress replaced by the remote set, and
// synced entries are purged. Nothing happens while offline.
func (c *Coordinator) SyncPending(ctx context.Context) (SyncReport, error) {
	log := logger.FromContext(ctx).WithPrefix("sync")
	report := SyncReport{Synced: []string{}, Failed: []SyncFailure{}}

	if !c.net.Online() {
		log.Debug("offline, skipping sync")
		report.Skipped = true
		return report, nil
	}

	pending, err := c.store.ListPendingMutations(ctx)
	if err != nil {
		return report, err
	}
	if len(pending) == 0 {
		log.Debug("no pending mutations")
		return report, nil
	}

	log.Info("replaying %d pending mutations", len(pending))
	users := map[string]bool{}
	newest := newestPerCard(pending)
	for _, m := range pending {
		if c.superseded(ctx, m, newest) {
			if err := c.store.MarkMutationSynced(ctx, m.ID, c.now()); err != nil {
				log.Error("mutation %s superseded but not retired: %v", m.ID, err)
				report.Failed = append(report.Failed, SyncFailure{ID: m.ID, Err: err.Error()})
				continue
			}
			log.Debug("mutation %s superseded by a newer write", m.ID)
			report.Superseded = append(report.Superseded, m.ID)
			continue
		}
		if _, err := c.remote.UpsertProgress(ctx, m.Payload); err != nil {
			log.Warn("mutation %s failed: %v", m.ID, err)
			report.Failed = append(report.Failed, SyncFailure{ID: m.ID, Err: err.Error()})
			continue
		}
		if err := c.store.MarkMutationSynced(ctx, m.ID, c.now()); err != nil {
			log.Error("mutation %s replayed but not marked synced: %v", m.ID, err)
			report.Failed = append(report.Failed, SyncFailure{ID: m.ID, Err: err.Error()})
			continue
		}
		report.Synced = append(report.Synced, m.ID)
		users[m.Payload.UserID] = true
	}

	userIDs := make([]string, 0, len(users))
	for u := range users {
		userIDs = append(userIDs, u)
	}
	sort.Strings(userIDs)
	for _, userID := range userIDs {
		records, err := c.remote.ListProgress(ctx, userID)
		if err != nil {
			log.Warn("failed to refetch progress for %s: %v", userID, err)
			report.RefreshFailed = append(report.RefreshFailed, userID)
			continue
		}
		if _, err := c.replaceProgress(ctx, userID, records); err != nil {
			log.Warn("failed to replace progress for %s: %v", userID, err)
			report.RefreshFailed = append(report.RefreshFailed, userID)
			continue
		}
		if err := c.store.SetFreshness(ctx, models.QueryKeyProgress(userID), c.now()); err != nil {
			log.Warn("failed to record freshness: %v", err)
		}
	}

	purged, err := c.store.PurgeSynced(ctx)
	if err != nil {
		log.Warn("failed to purge synced mutations: %v", err)
	}
	report.Purged = purged

	log.Info("sync finished: synced=%d, superseded=%d, failed=%d", len(report.Synced), len(report.Superseded), len(report.Failed))
	return report, nil
}

// replaceProgress swaps the user's cached progress for the remote records,
// keeping unconfirmed local records whose queued write is still pending.
func (c *Coordinator) replaceProgress(ctx context.Context, userID string, remoteRecords []models.ReviewProgress) ([]models.ReviewProgress, error) {
	pending, err := c.store.ListPendingMutations(ctx)
	if err != nil {
		return nil, err
	}
	queued := make(map[string]bool, len(pending))
	for _, m := range pending {
		queued[m.ID] = true
	}

	local, err := c.store.ProgressByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	keep := map[string]models.ReviewProgress{}
	for _, p := range local {
		if p.State == models.StateUnconfirmed && p.QueueID != nil && queued[*p.QueueID] {
			keep[p.FlashcardID] = p
		}
	}

	merged := make([]models.ReviewProgress, 0, len(remoteRecords)+len(keep))
	for _, p := range remoteRecords {
		if local, ok := keep[p.FlashcardID]; ok {
			merged = append(merged, local)
			delete(keep, p.FlashcardID)
			continue
		}
		merged = append(merged, p)
	}
	for _, p := range keep {
		merged = append(merged, p)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].FlashcardID < merged[j].FlashcardID })

	if err := c.store.ReplaceProgress(ctx, userID, merged); err != nil {
		return nil, err
	}
	return merged, nil
}
