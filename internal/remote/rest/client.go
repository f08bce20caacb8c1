// Package rest is a remote.DataSource speaking the PostgREST dialect used by
// hosted backends such as Supabase.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/vytor/lingoflash/internal/errors"
	"github.com/vytor/lingoflash/internal/logger"
	"github.com/vytor/lingoflash/internal/models"
	"github.com/vytor/lingoflash/internal/remote"
	"golang.org/x/time/rate"
)

const (
	preferUpsert = "resolution=merge-duplicates,return=representation"
	preferInsert = "return=minimal"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ remote.DataSource = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps outgoing requests per second. rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New creates a client for the project at baseURL, e.g. https://xyz.supabase.co.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(10), 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{"select": {"id"}, "limit": {"1"}}
	var out []json.RawMessage
	return c.do(ctx, "ping", http.MethodGet, "levels", q, nil, "", &out)
}

func (c *Client) ListLevels(ctx context.Context) ([]models.Level, error) {
	levels := []models.Level{}
	q := url.Values{"select": {"*"}, "order": {"position.asc,id.asc"}}
	if err := c.do(ctx, "list levels", http.MethodGet, "levels", q, nil, "", &levels); err != nil {
		return nil, err
	}
	return levels, nil
}

func (c *Client) ListCategories(ctx context.Context, levelID string) ([]models.Category, error) {
	categories := []models.Category{}
	q := url.Values{"select": {"*"}, "level_id": {eq(levelID)}, "order": {"position.asc,id.asc"}}
	if err := c.do(ctx, "list categories", http.MethodGet, "categories", q, nil, "", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) ListFlashcards(ctx context.Context, filter models.FlashcardFilter) ([]models.Flashcard, error) {
	q := url.Values{"select": {"*"}, "order": {"position.asc,id.asc"}}
	if filter.LevelID != "" {
		q.Set("level_id", eq(filter.LevelID))
	}
	if filter.CategoryID != "" {
		q.Set("category_id", eq(filter.CategoryID))
	}
	if filter.Mode != "" {
		q.Set("mode", eq(string(filter.Mode)))
	}

	cards := []models.Flashcard{}
	if err := c.do(ctx, "list flashcards", http.MethodGet, "flashcards", q, nil, "", &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func (c *Client) ListProgress(ctx context.Context, userID string) ([]models.ReviewProgress, error) {
	records := []models.ReviewProgress{}
	q := url.Values{"select": {"*"}, "user_id": {eq(userID)}, "order": {"flashcard_id.asc"}}
	if err := c.do(ctx, "list progress", http.MethodGet, "user_progress", q, nil, "", &records); err != nil {
		return nil, err
	}
	for i := range records {
		records[i].State = models.StateConfirmed
		records[i].QueueID = nil
	}
	return records, nil
}

func (c *Client) UpsertProgress(ctx context.Context, u models.ProgressUpsert) (models.ReviewProgress, error) {
	q := url.Values{"on_conflict": {"user_id,flashcard_id"}}
	var out []models.ProgressUpsert
	if err := c.do(ctx, "upsert progress", http.MethodPost, "user_progress", q, []models.ProgressUpsert{u}, preferUpsert, &out); err != nil {
		return models.ReviewProgress{}, err
	}
	if len(out) == 0 {
		return u.Confirmed(), nil
	}
	return out[0].Confirmed(), nil
}

func (c *Client) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var out []models.Category
	q := url.Values{"select": {"*"}, "id": {eq(id)}}
	if err := c.do(ctx, "get category", http.MethodGet, "categories", q, nil, "", &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func (c *Client) GetFlashcard(ctx context.Context, id string) (*models.Flashcard, error) {
	var out []models.Flashcard
	q := url.Values{"select": {"*"}, "id": {eq(id)}}
	if err := c.do(ctx, "get flashcard", http.MethodGet, "flashcards", q, nil, "", &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func (c *Client) SaveLevel(ctx context.Context, level models.Level) error {
	q := url.Values{"on_conflict": {"id"}}
	return c.do(ctx, "save level", http.MethodPost, "levels", q, []models.Level{level}, "resolution=merge-duplicates,return=minimal", nil)
}

func (c *Client) CreateCategory(ctx context.Context, cat models.Category) error {
	return c.do(ctx, "create category", http.MethodPost, "categories", nil, []models.Category{cat}, preferInsert, nil)
}

func (c *Client) UpdateCategory(ctx context.Context, cat models.Category) error {
	body := map[string]any{"name": cat.Name, "slug": cat.Slug, "position": cat.Position}
	return c.do(ctx, "update category", http.MethodPatch, "categories", url.Values{"id": {eq(cat.ID)}}, body, preferInsert, nil)
}

// DeleteCategory removes the category's flashcards first, then the category.
func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	if err := c.do(ctx, "delete category cards", http.MethodDelete, "flashcards", url.Values{"category_id": {eq(id)}}, nil, "", nil); err != nil {
		return err
	}
	return c.do(ctx, "delete category", http.MethodDelete, "categories", url.Values{"id": {eq(id)}}, nil, "", nil)
}

func (c *Client) CreateFlashcards(ctx context.Context, cards []models.Flashcard) error {
	if len(cards) == 0 {
		return nil
	}
	return c.do(ctx, "create flashcards", http.MethodPost, "flashcards", nil, cards, preferInsert, nil)
}

func (c *Client) UpdateFlashcard(ctx context.Context, card models.Flashcard) error {
	body := map[string]any{
		"category_id": card.CategoryID,
		"mode":        card.Mode,
		"source_text": card.SourceText,
		"target_text": card.TargetText,
		"position":    card.Position,
	}
	return c.do(ctx, "update flashcard", http.MethodPatch, "flashcards", url.Values{"id": {eq(card.ID)}}, body, preferInsert, nil)
}

func (c *Client) DeleteFlashcards(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return c.do(ctx, "delete flashcards", http.MethodDelete, "flashcards", url.Values{"id": {in(ids)}}, nil, "", nil)
}

func (c *Client) do(ctx context.Context, op, method, table string, query url.Values, body any, prefer string, out any) error {
	log := logger.FromContext(ctx).WithPrefix("rest").WithField("table", table)

	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		log.Warn("rate limiter wait aborted: %v", err)
		return apperrors.TransientFetch("rest: "+op, err)
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("rest: %s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		log.Error("failed to create request: %v", err)
		return apperrors.TransientFetch("rest: "+op, err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	log.Debug("%s %s", method, endpoint)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("request failed: %v", err)
		return apperrors.TransientFetch("rest: "+op, err)
	}
	defer resp.Body.Close()

	log.Debug("response received in %v, status=%d", time.Since(start), resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Error("request failed: status=%d, body=%s", resp.StatusCode, string(msg))
		return apperrors.TransientFetch("rest: "+op, fmt.Errorf("status %d: %s", resp.StatusCode, string(msg)))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		log.Error("failed to decode response: %v", err)
		return apperrors.TransientFetch("rest: "+op, err)
	}
	return nil
}

func eq(v string) string { return "eq." + v }

func in(vs []string) string {
	quoted := make([]string, len(vs))
	for i, v := range vs {
		quoted[i] = `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return "in.(" + strings.Join(quoted, ",") + ")"
}
