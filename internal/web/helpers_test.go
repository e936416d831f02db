package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/subday/internal/billing"
	"gitlab.com/yelinaung/subday/internal/gemini"
	"gitlab.com/yelinaung/subday/internal/models"
	"gitlab.com/yelinaung/subday/internal/repository"
	"gitlab.com/yelinaung/subday/internal/tracker"
)

const (
	testSecret = "test-secret"
	testUID    = "user_123"
)

var (
	testNow      = time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC)
	errStoreDown = errors.New("store unavailable")
)

type memStore struct {
	mu   sync.Mutex
	rows map[string]models.Subscription
	fail bool
}

func newMemStore(subs ...models.Subscription) *memStore {
	s := &memStore{rows: make(map[string]models.Subscription)}
	for _, sub := range subs {
		s.rows[sub.ID] = sub
	}
	return s
}

func (s *memStore) setFail(fail bool) {
	s.mu.Lock()
	s.fail = fail
	s.mu.Unlock()
}

func (s *memStore) ListByUser(_ context.Context, uid string) ([]models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errStoreDown
	}
	var out []models.Subscription
	for _, sub := range s.rows {
		if sub.UID == uid {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *memStore) Save(_ context.Context, sub *models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errStoreDown
	}
	sub.CreatedAt = testNow
	sub.UpdatedAt = testNow
	s.rows[sub.ID] = *sub
	return nil
}

func (s *memStore) Update(_ context.Context, sub *models.Subscription, _ []models.Field) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errStoreDown
	}
	if _, ok := s.rows[sub.ID]; !ok {
		return repository.ErrNotFound
	}
	s.rows[sub.ID] = *sub
	return nil
}

func (s *memStore) Delete(_ context.Context, _ string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errStoreDown
	}
	if _, ok := s.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

type fakePrefs struct {
	mu    sync.Mutex
	prefs map[string]models.Preferences
}

func (p *fakePrefs) Get(_ context.Context, uid string) (models.Preferences, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prefs, ok := p.prefs[uid]; ok {
		return prefs, nil
	}
	return models.Preferences{UID: uid, Currency: models.DefaultCurrency}, nil
}

func (p *fakePrefs) Upsert(_ context.Context, prefs *models.Preferences) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.prefs == nil {
		p.prefs = make(map[string]models.Preferences)
	}
	prefs.UpdatedAt = testNow
	p.prefs[prefs.UID] = *prefs
	return nil
}

type fakeAssistant struct {
	mu        sync.Mutex
	reply     string
	err       error
	extracted *gemini.ExtractedSubscription

	question string
	notes    string
	subject  string
	mimeType string
	subs     int
	currency models.Currency
}

func (a *fakeAssistant) Ask(_ context.Context, question string, subs []models.Subscription, currency models.Currency) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.question = question
	a.subs = len(subs)
	a.currency = currency
	return a.reply, a.err
}

func (a *fakeAssistant) NegotiationScript(_ context.Context, sub models.Subscription, notes string, subs []models.Subscription, currency models.Currency) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subject = sub.Name
	a.notes = notes
	a.subs = len(subs)
	a.currency = currency
	return a.reply, a.err
}

func (a *fakeAssistant) ExtractSubscription(_ context.Context, _ []byte, mimeType string) (*gemini.ExtractedSubscription, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mimeType = mimeType
	return a.extracted, a.err
}

type testServer struct {
	store   *memStore
	prefs   *fakePrefs
	handler http.Handler
}

// newTestServer serves the API over an in-memory store. A nil assistant
// leaves the assistant endpoints unconfigured.
func newTestServer(t *testing.T, assistant *fakeAssistant, subs ...models.Subscription) *testServer {
	t.Helper()

	store := newMemStore(subs...)
	prefs := &fakePrefs{}
	svc := tracker.NewService(store, tracker.WithEvaluator(billing.Evaluator{
		Now:      func() time.Time { return testNow },
		Location: time.UTC,
	}))

	var h *Handler
	if assistant != nil {
		h = NewHandler(svc, prefs, assistant)
	} else {
		h = NewHandler(svc, prefs, nil)
	}
	auth := NewAuthenticator(AuthConfig{HS256Secret: testSecret})
	return &testServer{store: store, prefs: prefs, handler: NewRouter(h, auth, nil)}
}

func signToken(t *testing.T, subject string, expires time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testUID, time.Now().Add(time.Hour)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func seeded(id, name, price string, day int) models.Subscription {
	preset, _ := models.LookupPreset(name)
	category := preset.Category
	if category == "" {
		category = models.CategoryEntertainment
	}
	return models.Subscription{
		ID:        id,
		UID:       testUID,
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Day:       day,
		Frequency: models.FrequencyMonthly,
		Category:  category,
		Status:    models.StatusActive,
		Color:     models.DefaultColor,
		CreatedAt: time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
	}
}
