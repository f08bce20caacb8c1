package rest_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vytor/lingoflash/internal/errors"
	"github.com/vytor/lingoflash/internal/models"
	"github.com/vytor/lingoflash/internal/remote/rest"
)

func TestListFlashcards_BuildsFilterQuery(t *testing.T) {
	var gotQuery, gotKey, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/flashcards", r.URL.Path)
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]models.Flashcard{
			{ID: "f1", LevelID: "B1", CategoryID: models.StringPtr("food"), Mode: models.ModeVocabulary, Position: 1},
		})
	}))
	defer srv.Close()

	c := rest.New(srv.URL, "secret", rest.WithRateLimit(0, 0))
	cards, err := c.ListFlashcards(context.Background(), models.FlashcardFilter{LevelID: "B1", CategoryID: "food", Mode: models.ModeVocabulary})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "food", *cards[0].CategoryID)

	assert.Contains(t, gotQuery, "level_id=eq.B1")
	assert.Contains(t, gotQuery, "category_id=eq.food")
	assert.Contains(t, gotQuery, "mode=eq.vocabulary")
	assert.Contains(t, gotQuery, "order=position.asc%2Cid.asc")
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestListLevels_EmptyIsNotNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	levels, err := rest.New(srv.URL, "k").ListLevels(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, levels)
	assert.Empty(t, levels)
}

func TestUpsertProgress_MergeDuplicates(t *testing.T) {
	now := time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "user_id,flashcard_id", r.URL.Query().Get("on_conflict"))
		assert.Equal(t, "resolution=merge-duplicates,return=representation", r.Header.Get("Prefer"))

		body, _ := io.ReadAll(r.Body)
		var in []models.ProgressUpsert
		if !assert.NoError(t, json.Unmarshal(body, &in)) || !assert.Len(t, in, 1) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		in[0].RepetitionCount = 9 // server is the source of truth
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(in)
	}))
	defer srv.Close()

	c := rest.New(srv.URL, "k")
	stored, err := c.UpsertProgress(context.Background(), models.ProgressUpsert{
		UserID: "u1", FlashcardID: "f1", RepetitionCount: 1, EaseFactor: 2.6, LastReviewedAt: now, NextDueAt: now.AddDate(0, 0, 7),
	})
	require.NoError(t, err)
	assert.Equal(t, 9, stored.RepetitionCount)
	assert.Equal(t, models.StateConfirmed, stored.State)
	assert.True(t, stored.NextDueAt.Equal(now.AddDate(0, 0, 7)))
}

func TestServerError_IsTransientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := rest.New(srv.URL, "k").ListCategories(context.Background(), "B1")
	require.Error(t, err)
	assert.True(t, apperrors.IsTransientFetch(err))
	assert.Contains(t, err.Error(), "503")
}

func TestUnreachable_IsTransientFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := rest.New(url, "k").Ping(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsTransientFetch(err))
}

func TestDeleteFlashcards_InFilter(t *testing.T) {
	var gotFilter, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotFilter = r.URL.Query().Get("id")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, rest.New(srv.URL, "k").DeleteFlashcards(context.Background(), []string{"a", "b"}))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, `in.("a","b")`, gotFilter)
}

func TestGetCategory_Absent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c, err := rest.New(srv.URL, "k").GetCategory(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestRateLimit_CancelledContext(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := rest.New(srv.URL, "k", rest.WithRateLimit(0.001, 1))
	_, err := c.ListLevels(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.ListLevels(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsTransientFetch(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
