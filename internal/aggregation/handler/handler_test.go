package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donorhub/internal/aggregation"
	"donorhub/internal/aggregation/aggtest"
	"donorhub/internal/aggregation/models"
	"donorhub/internal/aggregation/service"
	catalog "donorhub/internal/catalog/models"
	donation "donorhub/internal/donation/models"
	"donorhub/internal/platform/logger"
	"donorhub/internal/storage/memory"
	"donorhub/pkg/domain"
	"donorhub/pkg/testutil"
)

type headerValidator map[string]domain.Actor

func (v headerValidator) ValidateToken(token string) (domain.Actor, error) {
	actor, ok := v[token]
	if !ok {
		return domain.Actor{}, assert.AnError
	}
	return actor, nil
}

type fixture struct {
	router   chi.Router
	cause    *catalog.Cause
	campaign *catalog.Campaign
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Now().UTC()
	db := memory.New()
	svc := service.New(db, aggregation.NewEngine(nil))
	org := domain.OrganizationActor(domain.OrganizationID(uuid.New()))
	donor := domain.DonorActor(domain.DonorID(uuid.New()))

	cause := aggtest.Cause(t, db, org.OrganizationID, "Meals", 200, now)
	campaign := aggtest.Campaign(t, db, org.OrganizationID, now, cause)
	aggtest.Donation(t, db, cause, aggtest.Money(t, "50"), donation.StatusReceived, now)
	aggtest.Donation(t, db, cause, aggtest.Money(t, "25"), donation.StatusPending, now)
	_, err := svc.RecomputeAll(context.Background())
	require.NoError(t, err)

	router := chi.NewRouter()
	New(svc, headerValidator{"org": org, "donor": donor}, logger.Discard()).Register(router)
	return &fixture{router: router, cause: cause, campaign: campaign}
}

func (f *fixture) get(t *testing.T, token, path string) *http.Response {
	t.Helper()
	req := testutil.NewRequest(t, http.MethodGet, path)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return testutil.DoRequest(f.router, req).Result()
}

func TestTotalsRoutes(t *testing.T) {
	f := newFixture(t)

	req := testutil.NewRequest(t, http.MethodGet, "/causes/"+f.cause.ID.String()+"/totals")
	req.Header.Set("Authorization", "Bearer donor")
	rec := testutil.DoRequest(f.router, req)
	testutil.AssertStatusOK(t, rec)
	totals := testutil.UnmarshalResponse[models.Totals](t, rec)
	assert.Equal(t, "50.00", totals.RaisedAmount.StringFixed(2))
	assert.Equal(t, "25.00", totals.ProgressPercent.StringFixed(2))

	req = testutil.NewRequest(t, http.MethodGet, "/campaigns/"+f.campaign.ID.String()+"/totals")
	req.Header.Set("Authorization", "Bearer org")
	rec = testutil.DoRequest(f.router, req)
	testutil.AssertStatusOK(t, rec)
	totals = testutil.UnmarshalResponse[models.Totals](t, rec)
	assert.Equal(t, "200.00", totals.TargetAmount.StringFixed(2))
	assert.Equal(t, "50.00", totals.RaisedAmount.StringFixed(2))

	resp := f.get(t, "org", "/causes/"+uuid.NewString()+"/totals")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAnalyticsRoutes(t *testing.T) {
	f := newFixture(t)

	t.Run("trend returns one bucket per month", func(t *testing.T) {
		rec := testutil.DoRequest(f.router, authed(t, "/analytics/trend?months=3"))
		testutil.AssertStatusOK(t, rec)
		body := testutil.UnmarshalResponse[struct {
			Buckets []models.TrendBucket `json:"buckets"`
		}](t, rec)
		require.Len(t, body.Buckets, 3)
		assert.Equal(t, "50.00", body.Buckets[2].Total.StringFixed(2))
	})

	t.Run("breakdown groups by type", func(t *testing.T) {
		rec := testutil.DoRequest(f.router, authed(t, "/analytics/breakdown"))
		testutil.AssertStatusOK(t, rec)
		body := testutil.UnmarshalResponse[struct {
			Types []models.TypeTotal `json:"types"`
		}](t, rec)
		require.Len(t, body.Types, 1)
		assert.Equal(t, domain.ContributionMoney, body.Types[0].Type)
	})

	t.Run("top ranks causes", func(t *testing.T) {
		rec := testutil.DoRequest(f.router, authed(t, "/analytics/top?entity=cause&metric=count&limit=5"))
		testutil.AssertStatusOK(t, rec)
		body := testutil.UnmarshalResponse[struct {
			Entities []models.RankedEntity `json:"entities"`
		}](t, rec)
		require.Len(t, body.Entities, 1)
		assert.Equal(t, f.cause.ID.String(), body.Entities[0].ID)
	})

	t.Run("dashboard", func(t *testing.T) {
		rec := testutil.DoRequest(f.router, authed(t, "/analytics/dashboard"))
		testutil.AssertStatusOK(t, rec)
		testutil.AssertJSONHasKey(t, rec, "top_causes")
		testutil.AssertJSONHasKey(t, rec, "trend")
	})
}

func TestAnalyticsRouteGuards(t *testing.T) {
	f := newFixture(t)

	t.Run("missing token is unauthorized", func(t *testing.T) {
		resp := f.get(t, "", "/analytics/breakdown")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("donors cannot read analytics", func(t *testing.T) {
		resp := f.get(t, "donor", "/analytics/breakdown")
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("malformed id is rejected", func(t *testing.T) {
		resp := f.get(t, "org", "/causes/not-a-uuid/totals")
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("unknown entity is rejected", func(t *testing.T) {
		resp := f.get(t, "org", "/analytics/top?entity=bogus")
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("non-numeric months is a bad request", func(t *testing.T) {
		rec := testutil.DoRequest(f.router, authed(t, "/analytics/trend?months=abc"))
		testutil.AssertStatusAndError(t, rec, http.StatusBadRequest, "bad_request")
	})
}

func authed(t *testing.T, path string) *http.Request {
	t.Helper()
	req := testutil.NewRequest(t, http.MethodGet, path)
	req.Header.Set("Authorization", "Bearer org")
	return req
}
