package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"donorhub/internal/aggregation"
	"donorhub/internal/aggregation/aggtest"
	"donorhub/internal/aggregation/metrics"
	"donorhub/internal/aggregation/models"
	catalog "donorhub/internal/catalog/models"
	donation "donorhub/internal/donation/models"
	"donorhub/internal/storage/memory"
	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/requestcontext"
)

type AggregationServiceSuite struct {
	suite.Suite
	ctx      context.Context
	now      time.Time
	db       *memory.DB
	service  *Service
	org      domain.Actor
	otherOrg domain.Actor
	meals    *catalog.Cause
	shelter  *catalog.Cause
	foreign  *catalog.Cause
	campaign *catalog.Campaign
}

func TestAggregationServiceSuite(t *testing.T) {
	suite.Run(t, new(AggregationServiceSuite))
}

func (s *AggregationServiceSuite) SetupTest() {
	s.now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.db = memory.New()
	engine := aggregation.NewEngine(aggregation.Valuation{domain.ContributionFood: decimal.NewFromInt(4)})
	s.service = New(s.db, engine, WithMetrics(metrics.New(prometheus.NewRegistry())))

	s.org = domain.OrganizationActor(domain.OrganizationID(uuid.New()))
	s.otherOrg = domain.OrganizationActor(domain.OrganizationID(uuid.New()))
	s.meals = aggtest.Cause(s.T(), s.db, s.org.OrganizationID, "Meals", 1000, s.now)
	s.shelter = aggtest.Cause(s.T(), s.db, s.org.OrganizationID, "Shelter", 0, s.now)
	s.foreign = aggtest.Cause(s.T(), s.db, s.otherOrg.OrganizationID, "Elsewhere", 100, s.now)
	s.campaign = aggtest.Campaign(s.T(), s.db, s.org.OrganizationID, s.now, s.meals, s.shelter)

	march := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	may := time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)
	aggtest.Donation(s.T(), s.db, s.meals, aggtest.Money(s.T(), "100"), donation.StatusConfirmed, march)
	aggtest.Donation(s.T(), s.db, s.meals, aggtest.Food(s.T(), 5), donation.StatusReceived, may)
	aggtest.Donation(s.T(), s.db, s.shelter, aggtest.Money(s.T(), "30"), donation.StatusReceived, s.now)
	aggtest.Donation(s.T(), s.db, s.meals, aggtest.Money(s.T(), "500"), donation.StatusApproved, s.now)
	aggtest.Donation(s.T(), s.db, s.foreign, aggtest.Money(s.T(), "999"), donation.StatusReceived, s.now)
}

func (s *AggregationServiceSuite) TestRecomputeAllAndTotals() {
	report, err := s.service.RecomputeAll(s.ctx)
	s.Require().NoError(err)
	s.Equal(RecomputeReport{Causes: 3, Campaigns: 1}, report)

	totals, err := s.service.GetCauseTotals(s.ctx, s.meals.ID)
	s.Require().NoError(err)
	s.Equal("120.00", totals.RaisedAmount.StringFixed(2))
	s.Equal("12.00", totals.ProgressPercent.StringFixed(2))
	s.Equal(3, totals.DonorCount)

	totals, err = s.service.GetCauseTotals(s.ctx, s.shelter.ID)
	s.Require().NoError(err)
	s.True(totals.ProgressPercent.IsZero(), "zero target reports zero progress")

	totals, err = s.service.GetCampaignTotals(s.ctx, s.campaign.ID)
	s.Require().NoError(err)
	s.Equal("1000.00", totals.TargetAmount.StringFixed(2))
	s.Equal("150.00", totals.RaisedAmount.StringFixed(2))
	s.Equal("15.00", totals.ProgressPercent.StringFixed(2))

	totals, err = s.service.GetCauseTotals(s.ctx, s.foreign.ID)
	s.Require().NoError(err)
	s.Equal("999.00", totals.RaisedAmount.StringFixed(2))
	s.Equal("999.00", totals.ProgressPercent.StringFixed(2), "progress is not capped")

	_, err = s.service.GetCauseTotals(s.ctx, domain.NewCauseID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	_, err = s.service.GetCampaignTotals(s.ctx, domain.NewCampaignID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *AggregationServiceSuite) TestMonthlyTrend() {
	buckets, err := s.service.MonthlyTrend(s.ctx, s.org, models.Scope{}, 4)
	s.Require().NoError(err)
	s.Require().Len(buckets, 4)

	want := []struct {
		month int
		count int64
		total string
	}{
		{3, 1, "100.00"},
		{4, 0, "0.00"},
		{5, 1, "20.00"},
		{6, 1, "30.00"},
	}
	for i, w := range want {
		s.Equal(2026, buckets[i].Year)
		s.Equal(w.month, buckets[i].Month)
		s.Equal(w.count, buckets[i].Count)
		s.Equal(w.total, buckets[i].Total.StringFixed(2))
	}

	s.Run("defaults to twelve months", func() {
		buckets, err := s.service.MonthlyTrend(s.ctx, s.org, models.Scope{}, 0)
		s.Require().NoError(err)
		s.Len(buckets, 12)
		s.Equal(7, buckets[0].Month)
		s.Equal(2025, buckets[0].Year)
	})

	s.Run("rejects out of range windows", func() {
		_, err := s.service.MonthlyTrend(s.ctx, s.org, models.Scope{}, 61)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *AggregationServiceSuite) TestTypeBreakdown() {
	rows, err := s.service.TypeBreakdown(s.ctx, s.org, models.Scope{})
	s.Require().NoError(err)
	s.Require().Len(rows, 2)

	s.Equal(domain.ContributionMoney, rows[0].Type)
	s.Equal(int64(2), rows[0].Count)
	s.Equal("130.00", rows[0].Total.StringFixed(2))

	s.Equal(domain.ContributionFood, rows[1].Type)
	s.Equal("5", rows[1].Quantity.String())
	s.Equal("20.00", rows[1].Total.StringFixed(2))

	causeID := s.shelter.ID
	rows, err = s.service.TypeBreakdown(s.ctx, s.org, models.Scope{CauseID: &causeID})
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal("30.00", rows[0].Total.StringFixed(2))
}

func (s *AggregationServiceSuite) TestTopEntities() {
	byTotal, err := s.service.TopEntities(s.ctx, s.org, models.Scope{}, models.EntityCause, models.MetricTotal, 0)
	s.Require().NoError(err)
	s.Require().Len(byTotal, 2)
	s.Equal(s.meals.ID.String(), byTotal[0].ID)
	s.Equal("120.00", byTotal[0].Total.StringFixed(2))
	s.Equal(s.shelter.ID.String(), byTotal[1].ID)

	limited, err := s.service.TopEntities(s.ctx, s.org, models.Scope{}, models.EntityCause, models.MetricCount, 1)
	s.Require().NoError(err)
	s.Require().Len(limited, 1)
	s.Equal(int64(2), limited[0].Count)

	orgs, err := s.service.TopEntities(s.ctx, domain.SystemActor(), models.Scope{}, models.EntityOrganization, models.MetricTotal, 10)
	s.Require().NoError(err)
	s.Require().Len(orgs, 2)
	s.Equal(s.otherOrg.OrganizationID.String(), orgs[0].ID)

	_, err = s.service.TopEntities(s.ctx, s.org, models.Scope{}, models.EntityCause, models.MetricTotal, 101)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *AggregationServiceSuite) TestAnalyticsAreOrganizationScoped() {
	donor := domain.DonorActor(domain.DonorID(uuid.New()))
	_, err := s.service.TypeBreakdown(s.ctx, donor, models.Scope{})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	other := s.otherOrg.OrganizationID
	_, err = s.service.MonthlyTrend(s.ctx, s.org, models.Scope{OrganizationID: &other}, 3)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	rows, err := s.service.TypeBreakdown(s.ctx, s.otherOrg, models.Scope{})
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal("999.00", rows[0].Total.StringFixed(2))
}

func (s *AggregationServiceSuite) TestDashboard() {
	dash, err := s.service.Dashboard(s.ctx, s.org, models.Scope{}, 0)
	s.Require().NoError(err)
	s.Equal(s.now, dash.GeneratedAt)
	s.Equal(int64(3), dash.Count)
	s.Equal("150.00", dash.Total.StringFixed(2))
	s.Len(dash.Trend, 12)
	s.Len(dash.Breakdown, 2)
	s.Len(dash.TopCauses, 2)
}
