package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/attribution"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/common"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/model"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/storage"
)

// stubBackend fakes the hosted backend for handler tests.
type stubBackend struct {
	confirmErr    error
	matcherResult *model.MatcherResult
	mappings      []model.AttributionMapping
	confirmed     []*model.AttributionMapping
}

func (b *stubBackend) FetchTransactions(_ context.Context, _ string) ([]model.Transaction, int, error) {
	return nil, 0, nil
}

func (b *stubBackend) FetchMappings(_ context.Context, _ string) ([]model.AttributionMapping, error) {
	return b.mappings, nil
}

func (b *stubBackend) ConfirmMapping(_ context.Context, mapping *model.AttributionMapping) error {
	if b.confirmErr != nil {
		return b.confirmErr
	}
	b.confirmed = append(b.confirmed, mapping)
	return nil
}

func (b *stubBackend) RunMatcher(_ context.Context, _ string) (*model.MatcherResult, error) {
	return b.matcherResult, nil
}

func newTestServer(t *testing.T, backendStub *stubBackend) (*Server, *storage.SQLiteStorage) {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	return NewServer(store, backendStub, attribution.SuggestionOptions{}), store
}

func seedSnapshot(t *testing.T, store *storage.SQLiteStorage) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.SaveMappings(ctx, "org-1", []model.AttributionMapping{
		{
			ID:             "map-1",
			OrganizationID: "org-1",
			Refcode:        "meta_fall24",
			Source:         "meta",
			Type:           model.TypeDeterministicURL,
			CreatedAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}))
	require.NoError(t, store.ReplaceTransactions(ctx, "org-1", []model.Transaction{
		{ID: "txn-1", OrganizationID: "org-1", Date: time.Now(), Amount: 100, Refcode: "meta_fall24"},
		{ID: "txn-2", OrganizationID: "org-1", Date: time.Now(), Amount: 250, Refcode: "fb_winter_push"},
	}))
}

func TestHandleReport(t *testing.T) {
	server, store := newTestServer(t, &stubBackend{})
	seedSnapshot(t, store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orgs/org-1/attribution/report", nil)
	rec := httptest.NewRecorder()
	server.Router(nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var report attribution.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.InDelta(t, 100.0, report.Partition.MatchedRevenue, 0.001)
	assert.InDelta(t, 250.0, report.Partition.UnmatchedRevenue, 0.001)
	require.Len(t, report.Refcodes, 1)
	assert.Equal(t, attribution.ProvenanceVerified, report.Refcodes[0].Provenance)
}

func TestHandleSuggestions(t *testing.T) {
	server, store := newTestServer(t, &stubBackend{})
	seedSnapshot(t, store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orgs/org-1/attribution/suggestions", nil)
	rec := httptest.NewRecorder()
	server.Router(nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Suggestions []model.SuggestedMatch `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Suggestions, 1)
	assert.Equal(t, "fb_winter_push", body.Suggestions[0].Refcode)
	assert.Equal(t, "Meta Ads Campaign", body.Suggestions[0].SuggestedCampaign)
	assert.Equal(t, model.MatchPattern, body.Suggestions[0].MatchType)
}

func TestHandleConfirm(t *testing.T) {
	backendStub := &stubBackend{}
	server, store := newTestServer(t, backendStub)
	seedSnapshot(t, store)

	payload, _ := json.Marshal(map[string]string{
		"refcode":  "FB_WINTER_PUSH",
		"campaign": "Meta Ads Campaign",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orgs/org-1/attribution/confirm", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	server.Router(nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, backendStub.confirmed, 1)
	assert.Equal(t, "fb_winter_push", backendStub.confirmed[0].Refcode)
	assert.Equal(t, model.TypeManualConfirmed, backendStub.confirmed[0].Type)

	// The confirmed refcode is now truth; revenue moves to matched.
	mappings, err := store.GetActiveMappings(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, mappings, 2)
}

func TestHandleConfirmValidation(t *testing.T) {
	server, _ := newTestServer(t, &stubBackend{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orgs/org-1/attribution/confirm",
		bytes.NewReader([]byte(`{"refcode": ""}`)))
	rec := httptest.NewRecorder()
	server.Router(nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleConfirmConflictSurfaces(t *testing.T) {
	server, _ := newTestServer(t, &stubBackend{confirmErr: common.ErrDuplicateMapping})

	payload, _ := json.Marshal(map[string]string{"refcode": "fb_push", "campaign": "Meta Ads Campaign"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orgs/org-1/attribution/confirm", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	server.Router(nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleMatcherRun(t *testing.T) {
	backendStub := &stubBackend{
		matcherResult: &model.MatcherResult{
			TotalMatched: 2,
			MatchBreakdown: map[model.AttributionType]int{
				model.TypeDeterministicURL: 2,
			},
		},
		mappings: []model.AttributionMapping{
			{
				ID:             "map-new",
				OrganizationID: "org-1",
				Refcode:        "sms_gotv",
				Source:         "sms",
				Type:           model.TypeDeterministicURL,
				CreatedAt:      time.Now().UTC(),
			},
		},
	}
	server, store := newTestServer(t, backendStub)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orgs/org-1/attribution/matcher/run", nil)
	rec := httptest.NewRecorder()
	server.Router(nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result model.MatcherResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.TotalMatched)

	// The local snapshot was refreshed from the matcher's output.
	mappings, err := store.GetActiveMappings(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "map-new", mappings[0].ID)
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t, &stubBackend{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.Router(nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
