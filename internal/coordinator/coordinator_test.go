package coordinator_test

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vytor/lingoflash/internal/coordinator"
	"github.com/vytor/lingoflash/internal/db"
	apperrors "github.com/vytor/lingoflash/internal/errors"
	"github.com/vytor/lingoflash/internal/models"
	"github.com/vytor/lingoflash/internal/network"
	"github.com/vytor/lingoflash/internal/repository"
	"github.com/vytor/lingoflash/internal/repository/sqlite"
	"github.com/vytor/lingoflash/internal/srs"
	"github.com/vytor/lingoflash/internal/testutil"
	"github.com/vytor/lingoflash/internal/testutil/mocks"
)

var errRemoteDown = apperrors.TransientFetch("test", stderrors.New("connection reset"))

type CoordinatorSuite struct {
	suite.Suite
	db     *db.DB
	store  repository.CacheStore
	remote *mocks.MockDataSource
	net    *network.Static
	clock  *testutil.Clock
	coord  *coordinator.Coordinator
	ctx    context.Context
}

func (s *CoordinatorSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.store = sqlite.NewCacheStore(s.db.DB)
	s.remote = new(mocks.MockDataSource)
	s.net = network.NewStatic(true)
	s.clock = testutil.NewClock(time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC))
	s.coord = coordinator.New(s.store, s.remote, s.net, coordinator.WithClock(s.clock.Now))
	s.ctx = context.Background()
}

func (s *CoordinatorSuite) TearDownTest() {
	s.remote.AssertExpectations(s.T())
	testutil.MustClose(s.T(), s.db)
}

func (s *CoordinatorSuite) TestGetLevels_MissThenHit() {
	s.remote.On("ListLevels", mock.Anything).Return(testutil.Levels(), nil).Once()

	res, err := s.coord.GetLevels(s.ctx)
	s.Require().NoError(err)
	s.Assert().Equal(coordinator.SourceRemote, res.Source)
	s.Assert().Len(res.Data, 3)

	res, err = s.coord.GetLevels(s.ctx)
	s.Require().NoError(err)
	s.Assert().Equal(coordinator.SourceCache, res.Source)
	s.Assert().Equal(testutil.Levels(), res.Data)
}

func (s *CoordinatorSuite) TestGetLevels_ExpiresAfterTTL() {
	s.remote.On("ListLevels", mock.Anything).Return(testutil.Levels(), nil).Twice()

	_, err := s.coord.GetLevels(s.ctx)
	s.Require().NoError(err)

	s.clock.Advance(coordinator.DefaultTTL - time.Millisecond)
	res, err := s.coord.GetLevels(s.ctx)
	s.Require().NoError(err)
	s.Assert().Equal(coordinator.SourceCache, res.Source)

	s.clock.Advance(2 * time.Millisecond)
	res, err = s.coord.GetLevels(s.ctx)
	s.Require().NoError(err)
	s.Assert().Equal(coordinator.SourceRemote, res.Source)
}

func (s *CoordinatorSuite) TestFreshKeyWithEmptyCacheGoesRemote() {
	s.Require().NoError(s.store.SetFreshness(s.ctx, models.QueryKeyCategories("B1"), s.clock.Now()))
	s.remote.On("ListCategories", mock.Anything, "B1").Return(testutil.Categories("B1"), nil).Once()

	res, err := s.coord.GetCategories(s.ctx, "B1")
	s.Require().NoError(err)
	s.Assert().Equal(coordinator.SourceRemote, res.Source)
	s.Assert().Len(res.Data, 2)
}

func (s *CoordinatorSuite) TestStaleFallback() {
	s.Require().NoError(s.store.PutLevels(s.ctx, testutil.Levels()))
	s.Require().NoError(s.store.SetFreshness(s.ctx, models.QueryKeyLevels(), s.clock.Now().Add(-48*time.Hour)))
	s.remote.On("ListLevels", mock.Anything).Return(nil, errRemoteDown).Once()

	res, err := s.coord.GetLevels(s.ctx)
	s.Require().NoError(err)
	s.Assert().Equal(coordinator.SourceStale, res.Source)
	s.Assert().Len(res.Data, 3)
	s.Assert().ErrorIs(res.Err, apperrors.ErrTransientFetch)
}

func (s *CoordinatorSuite) TestEmptyCacheRemoteFailurePropagates() {
	s.remote.On("ListLevels", mock.Anything).Return(nil, errRemoteDown).Once()

	_, err := s.coord.GetLevels(s.ctx)
	s.Require().Error(err)
	s.Assert().True(apperrors.IsTransientFetch(err))
}

func (s *CoordinatorSuite) TestStorageUnavailable_RemoteStillServes() {
	s.Require().NoError(s.db.Close())
	s.remote.On("ListLevels", mock.Anything).Return(testutil.Levels(), nil).Once()

	res, err := s.coord.GetLevels(s.ctx)
	s.Require().NoError(err)
	s.Assert().Equal(coordinator.SourceRemote, res.Source)
	s.Assert().Len(res.Data, 3)

	s.db = testutil.NewTestDB(s.T())
}

func (s *CoordinatorSuite) TestConcurrentMissesFetchOnce() {
	s.remote.On("ListLevels", mock.Anything).
		After(50*time.Millisecond).
		Return(testutil.Levels(), nil).Once()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.coord.GetLevels(s.ctx)
			if err == nil && len(res.Data) != 3 {
				err = stderrors.New("wrong level count")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Assert().NoError(err)
	}
}

func (s *CoordinatorSuite) TestGetFlashcards_BySlug() {
	cats := testutil.Categories("B1")
	cards := testutil.CategorizedCards("B1", "B1-travel", models.ModeSentences, 3)
	s.remote.On("ListCategories", mock.Anything, "B1").Return(cats, nil).Once()
	s.remote.On("ListFlashcards", mock.Anything, models.FlashcardFilter{LevelID: "B1", CategoryID: "B1-travel", Mode: models.ModeSentences}).
		Return(cards, nil).Once()

	res, err := s.coord.GetFlashcards(s.ctx, "B1", "travel", models.ModeSentences)
	s.Require().NoError(err)
	s.Assert().Equal(coordinator.SourceRemote, res.Source)
	s.Assert().Equal(cards, res.Data)

	res, err = s.coord.GetFlashcards(s.ctx, "B1", "travel", models.ModeSentences)
	s.Require().NoError(err)
	s.Assert().Equal(coordinator.SourceCache, res.Source)
	s.Assert().Equal(cards, res.Data)
}

func (s *CoordinatorSuite) TestGetFlashcards_UnknownSlugIsEmpty() {
	s.remote.On("ListCategories", mock.Anything, "B1").Return(testutil.Categories("B1"), nil).Once()

	res, err := s.coord.GetFlashcards(s.ctx, "B1", "sports", "")
	s.Require().NoError(err)
	s.Assert().NotNil(res.Data)
	s.Assert().Empty(res.Data)
	s.remote.AssertNotCalled(s.T(), "ListFlashcards", mock.Anything, mock.Anything)
}

func (s *CoordinatorSuite) TestGetLevelContent() {
	s.remote.On("ListLevels", mock.Anything).Return(testutil.Levels(), nil).Once()
	s.remote.On("ListCategories", mock.Anything, "B1").Return(testutil.Categories("B1"), nil).Once()
	flat := testutil.FlatCards("A1", models.ModeVocabulary, 2)
	s.remote.On("ListFlashcards", mock.Anything, models.FlashcardFilter{LevelID: "A1"}).Return(flat, nil).Once()

	content, source, err := s.coord.GetLevelContent(s.ctx, "B1")
	s.Require().NoError(err)
	s.Assert().Equal(models.ContentCategorized, content.Kind)
	s.Assert().Len(content.Categories, 2)
	s.Assert().Equal(coordinator.SourceRemote, source)

	content, source, err = s.coord.GetLevelContent(s.ctx, "A1")
	s.Require().NoError(err)
	s.Assert().Equal(models.ContentFlat, content.Kind)
	s.Assert().Equal(flat, content.Cards)
	s.Assert().Equal(coordinator.SourceRemote, source)

	_, _, err = s.coord.GetLevelContent(s.ctx, "Z9")
	var appErr *apperrors.AppError
	s.Require().ErrorAs(err, &appErr)
	s.Assert().Equal(apperrors.ErrCodeNotFound, appErr.Code)
}

func (s *CoordinatorSuite) TestRateCard_OnlineFirstEasy() {
	now := s.clock.Now()
	expected := srs.Apply(nil, "u1", "c1", srs.QualityEasy, now).Upsert()
	s.remote.On("UpsertProgress", mock.Anything, expected).Return(expected.Confirmed(), nil).Once()

	got, err := s.coord.RateCard(s.ctx, "u1", "c1", 5)
	s.Require().NoError(err)
	s.Assert().Equal(1, got.RepetitionCount)
	s.Assert().True(got.NextDueAt.Equal(now.AddDate(0, 0, 7)))
	s.Assert().Greater(got.EaseFactor, 2.5)
	s.Assert().Equal(models.StateConfirmed, got.State)
	s.Assert().Nil(got.QueueID)

	cached, err := s.store.GetProgress(s.ctx, "u1", "c1")
	s.Require().NoError(err)
	s.Require().NotNil(cached)
	s.Assert().Equal(models.StateConfirmed, cached.State)

	pending, err := s.store.ListPendingMutations(s.ctx)
	s.Require().NoError(err)
	s.Assert().Empty(pending)
}

func (s *CoordinatorSuite) TestRateCard_InvalidQuality() {
	_, err := s.coord.RateCard(s.ctx, "u1", "c1", 6)
	var appErr *apperrors.AppError
	s.Require().ErrorAs(err, &appErr)
	s.Assert().Equal(apperrors.ErrCodeValidation, appErr.Code)
}

func (s *CoordinatorSuite) TestRateCard_OfflineQueuesOptimistically() {
	s.net.SetOnline(false)

	got, err := s.coord.RateCard(s.ctx, "u1", "c1", 4)
	s.Require().NoError(err)
	s.Assert().Equal(models.StateUnconfirmed, got.State)
	s.Require().NotNil(got.QueueID)

	pending, err := s.store.ListPendingMutations(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Assert().Equal(*got.QueueID, pending[0].ID)
	s.Assert().False(pending[0].Synced)
	s.Assert().Equal("c1", pending[0].Payload.FlashcardID)

	cached, err := s.store.GetProgress(s.ctx, "u1", "c1")
	s.Require().NoError(err)
	s.Require().NotNil(cached)
	s.Assert().Equal(models.StateUnconfirmed, cached.State)
	s.Assert().Equal(1, cached.RepetitionCount)
	s.Assert().True(cached.NextDueAt.Equal(s.clock.Now().AddDate(0, 0, 3)))

	s.remote.AssertNotCalled(s.T(), "UpsertProgress", mock.Anything, mock.Anything)
}

func (s *CoordinatorSuite) TestRateCard_SameCardTwiceKeepsOneRecord() {
	s.net.SetOnline(false)

	_, err := s.coord.RateCard(s.ctx, "u1", "c1", 4)
	s.Require().NoError(err)
	s.clock.Advance(time.Hour)
	second, err := s.coord.RateCard(s.ctx, "u1", "c1", 1)
	s.Require().NoError(err)

	all, err := s.store.ProgressByUser(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Assert().Equal(2, all[0].RepetitionCount)
	s.Assert().True(all[0].NextDueAt.Equal(second.NextDueAt))
	s.Assert().True(second.NextDueAt.Equal(s.clock.Now().Add(srs.RelearnDelay)))
}

func (s *CoordinatorSuite) TestRateCard_RemoteFailureFallsBackToQueue() {
	s.remote.On("UpsertProgress", mock.Anything, mock.Anything).Return(models.ReviewProgress{}, errRemoteDown).Once()

	got, err := s.coord.RateCard(s.ctx, "u1", "c1", 3)
	s.Require().NoError(err)
	s.Assert().Equal(models.StateUnconfirmed, got.State)
	s.Assert().NotNil(got.QueueID)

	pending, err := s.store.ListPendingMutations(s.ctx)
	s.Require().NoError(err)
	s.Assert().Len(pending, 1)
}

func (s *CoordinatorSuite) TestSyncPending_PartialFailure() {
	s.net.SetOnline(false)
	_, err := s.coord.RateCard(s.ctx, "u1", "c1", 5)
	s.Require().NoError(err)
	_, err = s.coord.RateCard(s.ctx, "u1", "c2", 4)
	s.Require().NoError(err)

	pending, err := s.store.ListPendingMutations(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	okID, badID := pending[0].ID, pending[1].ID

	serverC1 := pending[0].Payload.Confirmed()
	serverC1.RepetitionCount = 7
	serverC3 := models.ReviewProgress{
		UserID: "u1", FlashcardID: "c3", RepetitionCount: 2, EaseFactor: 2.4,
		LastReviewedAt: s.clock.Now().Add(-time.Hour), NextDueAt: s.clock.Now().Add(72 * time.Hour),
		State: models.StateConfirmed,
	}

	s.remote.On("UpsertProgress", mock.Anything, mock.MatchedBy(func(u models.ProgressUpsert) bool { return u.FlashcardID == "c1" })).
		Return(pending[0].Payload.Confirmed(), nil).Once()
	s.remote.On("UpsertProgress", mock.Anything, mock.MatchedBy(func(u models.ProgressUpsert) bool { return u.FlashcardID == "c2" })).
		Return(models.ReviewProgress{}, errRemoteDown).Once()
	s.remote.On("ListProgress", mock.Anything, "u1").Return([]models.ReviewProgress{serverC1, serverC3}, nil).Once()

	s.net.SetOnline(true)
	report, err := s.coord.SyncPending(s.ctx)
	s.Require().NoError(err)
	s.Assert().Equal([]string{okID}, report.Synced)
	s.Require().Len(report.Failed, 1)
	s.Assert().Equal(badID, report.Failed[0].ID)
	s.Assert().Equal(int64(1), report.Purged)

	left, err := s.store.ListPendingMutations(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(left, 1)
	s.Assert().Equal(badID, left[0].ID)

	c1, err := s.store.GetProgress(s.ctx, "u1", "c1")
	s.Require().NoError(err)
	s.Assert().Equal(7, c1.RepetitionCount, "server copy wins for synced cards")
	s.Assert().Equal(models.StateConfirmed, c1.State)

	c2, err := s.store.GetProgress(s.ctx, "u1", "c2")
	s.Require().NoError(err)
	s.Require().NotNil(c2, "unsynced optimistic record is kept")
	s.Assert().Equal(models.StateUnconfirmed, c2.State)

	c3, err := s.store.GetProgress(s.ctx, "u1", "c3")
	s.Require().NoError(err)
	s.Assert().NotNil(c3)
}

func (s *CoordinatorSuite) TestSyncPending_QueuedWriteDoesNotOverwriteNewerRating() {
	s.remote.On("UpsertProgress", mock.Anything, mock.Anything).Return(models.ReviewProgress{}, errRemoteDown).Once()
	queued, err := s.coord.RateCard(s.ctx, "u1", "c1", 5)
	s.Require().NoError(err)
	s.Require().NotNil(queued.QueueID)

	s.clock.Advance(24 * time.Hour)
	newer := srs.Apply(&queued, "u1", "c1", srs.QualityEasy, s.clock.Now()).Upsert()
	s.Require().Equal(2, newer.RepetitionCount)
	s.remote.On("UpsertProgress", mock.Anything, newer).Return(newer.Confirmed(), nil).Once()

	confirmed, err := s.coord.RateCard(s.ctx, "u1", "c1", 5)
	s.Require().NoError(err)
	s.Assert().Equal(models.StateConfirmed, confirmed.State)

	pending, err := s.store.ListPendingMutations(s.ctx)
	s.Require().NoError(err)
	s.Assert().Empty(pending, "the older queued write is retired")

	report, err := s.coord.SyncPending(s.ctx)
	s.Require().NoError(err)
	s.Assert().Empty(report.Synced)

	cached, err := s.store.GetProgress(s.ctx, "u1", "c1")
	s.Require().NoError(err)
	s.Require().NotNil(cached)
	s.Assert().Equal(2, cached.RepetitionCount)
	s.Assert().Equal(models.StateConfirmed, cached.State)
	s.Assert().True(cached.NextDueAt.Equal(newer.NextDueAt))
}

func (s *CoordinatorSuite) TestSyncPending_ReplaysOnlyNewestWritePerCard() {
	s.net.SetOnline(false)
	first, err := s.coord.RateCard(s.ctx, "u1", "c1", 4)
	s.Require().NoError(err)
	s.clock.Advance(time.Hour)
	second, err := s.coord.RateCard(s.ctx, "u1", "c1", 5)
	s.Require().NoError(err)
	s.Require().Equal(2, second.RepetitionCount)

	latest := models.ProgressUpsert{
		UserID: "u1", FlashcardID: "c1", RepetitionCount: second.RepetitionCount, EaseFactor: second.EaseFactor,
		LastReviewedAt: second.LastReviewedAt, NextDueAt: second.NextDueAt,
	}
	s.remote.On("UpsertProgress", mock.Anything, mock.MatchedBy(func(u models.ProgressUpsert) bool { return u.RepetitionCount == 2 })).
		Return(latest.Confirmed(), nil).Once()
	s.remote.On("ListProgress", mock.Anything, "u1").Return([]models.ReviewProgress{latest.Confirmed()}, nil).Once()

	s.net.SetOnline(true)
	report, err := s.coord.SyncPending(s.ctx)
	s.Require().NoError(err)
	s.Assert().Equal([]string{*second.QueueID}, report.Synced)
	s.Assert().Equal([]string{*first.QueueID}, report.Superseded)
	s.Assert().Empty(report.Failed)
	s.Assert().Equal(int64(2), report.Purged)

	cached, err := s.store.GetProgress(s.ctx, "u1", "c1")
	s.Require().NoError(err)
	s.Require().NotNil(cached)
	s.Assert().Equal(2, cached.RepetitionCount)
	s.Assert().Equal(models.StateConfirmed, cached.State)
}

func (s *CoordinatorSuite) TestSyncPending_NewestFailureKeepsOlderWriteRetired() {
	s.net.SetOnline(false)
	first, err := s.coord.RateCard(s.ctx, "u1", "c1", 4)
	s.Require().NoError(err)
	s.clock.Advance(time.Hour)
	second, err := s.coord.RateCard(s.ctx, "u1", "c1", 5)
	s.Require().NoError(err)

	s.remote.On("UpsertProgress", mock.Anything, mock.MatchedBy(func(u models.ProgressUpsert) bool { return u.RepetitionCount == 2 })).
		Return(models.ReviewProgress{}, errRemoteDown).Once()

	s.net.SetOnline(true)
	report, err := s.coord.SyncPending(s.ctx)
	s.Require().NoError(err)
	s.Assert().Empty(report.Synced)
	s.Assert().Equal([]string{*first.QueueID}, report.Superseded)
	s.Require().Len(report.Failed, 1)
	s.Assert().Equal(*second.QueueID, report.Failed[0].ID)

	left, err := s.store.ListPendingMutations(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(left, 1)
	s.Assert().Equal(*second.QueueID, left[0].ID)
}

func (s *CoordinatorSuite) TestSyncPending_SkipsWriteOlderThanConfirmedCache() {
	s.net.SetOnline(false)
	queued, err := s.coord.RateCard(s.ctx, "u1", "c1", 4)
	s.Require().NoError(err)

	newer := models.ReviewProgress{
		UserID: "u1", FlashcardID: "c1", RepetitionCount: 3, EaseFactor: 2.6,
		LastReviewedAt: s.clock.Now().Add(time.Hour), NextDueAt: s.clock.Now().Add(72 * time.Hour),
		State: models.StateConfirmed,
	}
	s.Require().NoError(s.store.UpsertProgress(s.ctx, newer))

	s.net.SetOnline(true)
	report, err := s.coord.SyncPending(s.ctx)
	s.Require().NoError(err)
	s.Assert().Equal([]string{*queued.QueueID}, report.Superseded)
	s.Assert().Empty(report.Synced)
	s.remote.AssertNotCalled(s.T(), "UpsertProgress", mock.Anything, mock.Anything)
}

func (s *CoordinatorSuite) TestSyncPending_OfflineIsNoop() {
	s.net.SetOnline(false)
	_, err := s.coord.RateCard(s.ctx, "u1", "c1", 5)
	s.Require().NoError(err)

	report, err := s.coord.SyncPending(s.ctx)
	s.Require().NoError(err)
	s.Assert().True(report.Skipped)

	pending, err := s.store.ListPendingMutations(s.ctx)
	s.Require().NoError(err)
	s.Assert().Len(pending, 1)
}

func (s *CoordinatorSuite) TestSyncPending_EmptyQueue() {
	report, err := s.coord.SyncPending(s.ctx)
	s.Require().NoError(err)
	s.Assert().False(report.Skipped)
	s.Assert().Empty(report.Synced)
}

func (s *CoordinatorSuite) TestGetProgress_StaleFallback() {
	s.net.SetOnline(false)
	_, err := s.coord.RateCard(s.ctx, "u1", "c1", 5)
	s.Require().NoError(err)
	s.net.SetOnline(true)

	s.remote.On("ListProgress", mock.Anything, "u1").Return(nil, errRemoteDown).Once()
	res, err := s.coord.GetProgress(s.ctx, "u1")
	s.Require().NoError(err)
	s.Assert().Equal(coordinator.SourceStale, res.Source)
	s.Assert().Len(res.Data, 1)

	s.remote.On("ListProgress", mock.Anything, "u2").Return(nil, errRemoteDown).Once()
	_, err = s.coord.GetProgress(s.ctx, "u2")
	s.Assert().ErrorIs(err, apperrors.ErrTransientFetch)
}

func (s *CoordinatorSuite) TestDueCards() {
	now := s.clock.Now()
	records := []models.ReviewProgress{
		{UserID: "u1", FlashcardID: "later", NextDueAt: now.Add(time.Hour), LastReviewedAt: now, EaseFactor: 2.5, RepetitionCount: 1, State: models.StateConfirmed},
		{UserID: "u1", FlashcardID: "due2", NextDueAt: now, LastReviewedAt: now, EaseFactor: 2.5, RepetitionCount: 1, State: models.StateConfirmed},
		{UserID: "u1", FlashcardID: "due1", NextDueAt: now.Add(-time.Hour), LastReviewedAt: now, EaseFactor: 2.5, RepetitionCount: 1, State: models.StateConfirmed},
	}
	s.remote.On("ListProgress", mock.Anything, "u1").Return(records, nil).Once()

	res, err := s.coord.DueCards(s.ctx, "u1", now)
	s.Require().NoError(err)
	s.Require().Len(res.Data, 2)
	s.Assert().Equal("due1", res.Data[0].FlashcardID)
	s.Assert().Equal("due2", res.Data[1].FlashcardID)
}

func (s *CoordinatorSuite) TestClearCache() {
	s.remote.On("ListLevels", mock.Anything).Return(testutil.Levels(), nil).Twice()

	_, err := s.coord.GetLevels(s.ctx)
	s.Require().NoError(err)
	s.Require().NoError(s.coord.ClearCache(s.ctx, models.KindLevels))

	res, err := s.coord.GetLevels(s.ctx)
	s.Require().NoError(err)
	s.Assert().Equal(coordinator.SourceRemote, res.Source)
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}
