package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ReceiptIssuer,IdempotencyStore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"donorhub/internal/aggregation"
	catalog "donorhub/internal/catalog/models"
	"donorhub/internal/donation/metrics"
	donation "donorhub/internal/donation/models"
	"donorhub/internal/donation/service/mocks"
	"donorhub/internal/idempotency"
	notification "donorhub/internal/notification/models"
	"donorhub/internal/storage/memory"
	"donorhub/pkg/domain"
	dErrors "donorhub/pkg/domain-errors"
	"donorhub/pkg/requestcontext"
)

type DonationServiceSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	receipts    *mocks.MockReceiptIssuer
	idempotency *mocks.MockIdempotencyStore
	db          *memory.DB
	service     *Service
	ctx         context.Context
	now         time.Time
	org         domain.Actor
	donor       domain.Actor
	cause       *catalog.Cause
	campaign    *catalog.Campaign
}

func TestDonationServiceSuite(t *testing.T) {
	suite.Run(t, new(DonationServiceSuite))
}

func (s *DonationServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.receipts = mocks.NewMockReceiptIssuer(s.ctrl)
	s.idempotency = mocks.NewMockIdempotencyStore(s.ctrl)
	s.db = memory.New()
	engine := aggregation.NewEngine(aggregation.Valuation{domain.ContributionFood: decimal.NewFromInt(4)})
	s.service = New(s.db, engine, s.receipts,
		WithIdempotency(s.idempotency),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
	)
	s.now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.org = domain.OrganizationActor(domain.OrganizationID(uuid.New()))
	s.donor = domain.DonorActor(domain.DonorID(uuid.New()))
	s.cause, s.campaign = s.visibleCause(domain.ContributionMoney, domain.ContributionFood)
}

func (s *DonationServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *DonationServiceSuite) visibleCause(types ...domain.ContributionType) (*catalog.Cause, *catalog.Campaign) {
	cause, err := catalog.NewCause(domain.NewCauseID(), s.org.OrganizationID, catalog.CauseDetails{
		Title:         "School meals",
		TargetAmount:  decimal.NewFromInt(1000),
		AcceptedTypes: types,
	}, s.now)
	s.Require().NoError(err)
	campaign, err := catalog.NewCampaign(domain.NewCampaignID(), catalog.CampaignDetails{
		Title:           "Spring",
		OrganizationIDs: []domain.OrganizationID{s.org.OrganizationID},
		StartDate:       s.now.Add(-24 * time.Hour),
		EndDate:         s.now.Add(30 * 24 * time.Hour),
		AcceptedTypes:   types,
	}, s.now)
	s.Require().NoError(err)
	campaign.ApplyStatus(catalog.CampaignStatusActive, s.now)
	assoc, err := catalog.NewAssociation(cause, campaign, s.now)
	s.Require().NoError(err)

	s.Require().NoError(s.db.Causes().Create(s.ctx, cause))
	s.Require().NoError(s.db.Campaigns().Create(s.ctx, campaign))
	s.Require().NoError(s.db.Associations().Create(s.ctx, assoc))
	return cause, campaign
}

func (s *DonationServiceSuite) money(amount string) domain.Contribution {
	c, err := domain.NewMoneyContribution(decimal.RequireFromString(amount))
	s.Require().NoError(err)
	return c
}

func (s *DonationServiceSuite) create(amount string) *donation.Donation {
	res, err := s.service.CreateDonation(s.ctx, s.donor, s.cause.ID, s.money(amount), "")
	s.Require().NoError(err)
	return res.Donation
}

func (s *DonationServiceSuite) approve(d *donation.Donation) *donation.Donation {
	out, err := s.service.TransitionDonation(s.ctx, s.org, d.ID, donation.StatusApproved, TransitionInput{})
	s.Require().NoError(err)
	return out
}

func (s *DonationServiceSuite) receive(d *donation.Donation) *donation.Donation {
	out, err := s.service.TransitionDonation(s.ctx, s.org, d.ID, donation.StatusReceived, TransitionInput{
		Evidence: &donation.ReceiptEvidence{Image: []byte("png"), ContentType: "image/png"},
	})
	s.Require().NoError(err)
	return out
}

func (s *DonationServiceSuite) issuedRefs() donation.ReceiptRefs {
	return donation.ReceiptRefs{ImageRef: "images/1", DocumentRef: "receipts/1", DocumentNumber: "R-1"}
}

func (s *DonationServiceSuite) TestCreateDonation() {
	s.Run("donor creates a pending donation and is counted", func() {
		d := s.create("25.50")
		s.Equal(donation.StatusPending, d.Status)
		s.Equal(s.org.OrganizationID, d.OrganizationID)
		s.Equal(int64(1), d.Version)

		cause, err := s.db.Causes().Get(s.ctx, s.cause.ID)
		s.Require().NoError(err)
		s.Equal(1, cause.DonorCount)
		s.True(cause.RaisedAmount.IsZero(), "pending donations do not count toward raised")

		due, err := s.db.Outbox().ListDue(s.ctx, s.now, 10)
		s.Require().NoError(err)
		s.Require().NotEmpty(due)
		s.Equal(notification.EventDonationCreated, due[len(due)-1].Event.Type)
	})

	s.Run("organizations cannot donate", func() {
		_, err := s.service.CreateDonation(s.ctx, s.org, s.cause.ID, s.money("1"), "")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown cause", func() {
		_, err := s.service.CreateDonation(s.ctx, s.donor, domain.NewCauseID(), s.money("1"), "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("cause without a live campaign is not visible", func() {
		hidden, err := catalog.NewCause(domain.NewCauseID(), s.org.OrganizationID, catalog.CauseDetails{
			Title:         "Hidden",
			AcceptedTypes: domain.ContributionTypes{domain.ContributionMoney},
		}, s.now)
		s.Require().NoError(err)
		s.Require().NoError(s.db.Causes().Create(s.ctx, hidden))

		_, err = s.service.CreateDonation(s.ctx, s.donor, hidden.ID, s.money("1"), "")
		s.True(dErrors.HasCode(err, dErrors.CodeCauseNotVisible))
	})

	s.Run("cause that does not accept the type", func() {
		books, err := domain.NewItemContribution(domain.ContributionBooks, 3, "box")
		s.Require().NoError(err)
		_, err = s.service.CreateDonation(s.ctx, s.donor, s.cause.ID, books, "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnsupportedContributionType))
	})
}

func (s *DonationServiceSuite) TestCreateDonation_Idempotency() {
	var stored domain.DonationID
	s.idempotency.EXPECT().Get(gomock.Any(), s.donor.DonorID, "key-1").Return(domain.DonationID{}, false, nil)
	s.idempotency.EXPECT().Put(gomock.Any(), s.donor.DonorID, "key-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.DonorID, _ string, id domain.DonationID) error {
			stored = id
			return nil
		})

	first, err := s.service.CreateDonation(s.ctx, s.donor, s.cause.ID, s.money("10"), "key-1")
	s.Require().NoError(err)
	s.False(first.Replayed)
	s.Equal(first.Donation.ID, stored)

	s.idempotency.EXPECT().Get(gomock.Any(), s.donor.DonorID, "key-1").Return(stored, true, nil)
	second, err := s.service.CreateDonation(s.ctx, s.donor, s.cause.ID, s.money("10"), "key-1")
	s.Require().NoError(err)
	s.True(second.Replayed)
	s.Equal(first.Donation.ID, second.Donation.ID)

	list, err := s.service.ListDonations(s.ctx, s.donor, ListFilter{})
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *DonationServiceSuite) TestCreateDonation_IdempotencyKeyBoundToCause() {
	other, _ := s.visibleCause(domain.ContributionMoney)
	var stored domain.DonationID
	s.idempotency.EXPECT().Get(gomock.Any(), s.donor.DonorID, "key-1").Return(domain.DonationID{}, false, nil)
	s.idempotency.EXPECT().Put(gomock.Any(), s.donor.DonorID, "key-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.DonorID, _ string, id domain.DonationID) error {
			stored = id
			return nil
		})
	_, err := s.service.CreateDonation(s.ctx, s.donor, s.cause.ID, s.money("10"), "key-1")
	s.Require().NoError(err)

	s.idempotency.EXPECT().Get(gomock.Any(), s.donor.DonorID, "key-1").DoAndReturn(
		func(context.Context, domain.DonorID, string) (domain.DonationID, bool, error) {
			return stored, true, nil
		})
	_, err = s.service.CreateDonation(s.ctx, s.donor, other.ID, s.money("10"), "key-1")
	s.True(dErrors.HasCode(err, dErrors.CodeConflict), "got %v", err)

	list, err := s.service.ListDonations(s.ctx, s.donor, ListFilter{})
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *DonationServiceSuite) TestCreateDonation_ConcurrentKeyAcrossCauses() {
	other, _ := s.visibleCause(domain.ContributionMoney)
	svc := New(s.db, aggregation.NewEngine(nil), s.receipts,
		WithIdempotency(idempotency.NewMemoryStore(time.Hour)))

	const rounds = 20
	for i := 0; i < rounds; i++ {
		key := "shared-" + uuid.NewString()
		causes := []domain.CauseID{s.cause.ID, other.ID}
		var wg sync.WaitGroup
		errs := make([]error, len(causes))
		for j, causeID := range causes {
			wg.Add(1)
			go func(j int, causeID domain.CauseID) {
				defer wg.Done()
				_, errs[j] = svc.CreateDonation(s.ctx, s.donor, causeID, s.money("1"), key)
			}(j, causeID)
		}
		wg.Wait()

		created, conflicted := 0, 0
		for _, err := range errs {
			switch {
			case err == nil:
				created++
			case dErrors.HasCode(err, dErrors.CodeConflict):
				conflicted++
			default:
				s.Failf("unexpected error", "%v", err)
			}
		}
		s.Equal(1, created, "round %d", i)
		s.Equal(1, conflicted, "round %d", i)
	}

	list, err := svc.ListDonations(s.ctx, s.donor, ListFilter{})
	s.Require().NoError(err)
	s.Len(list, rounds)
}

func (s *DonationServiceSuite) TestCreateDonation_AmountBounds() {
	s.Run("amounts beyond the money ceiling are invalid", func() {
		huge := domain.Contribution{Type: domain.ContributionMoney, Amount: decimal.New(1, 15)}
		_, err := s.service.CreateDonation(s.ctx, s.donor, s.cause.ID, huge, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAmount), "got %v", err)
	})

	s.Run("quantities beyond the item ceiling are invalid", func() {
		food := domain.Contribution{Type: domain.ContributionFood, Quantity: domain.MaxItemQuantity + 1, Unit: "kg"}
		_, err := s.service.CreateDonation(s.ctx, s.donor, s.cause.ID, food, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidAmount), "got %v", err)
	})

	s.Run("the ceiling itself is accepted", func() {
		res, err := s.service.CreateDonation(s.ctx, s.donor, s.cause.ID, s.money(domain.MaxMoneyAmount.String()), "")
		s.Require().NoError(err)
		s.True(domain.MaxMoneyAmount.Equal(res.Donation.Amount))
	})

	list, err := s.service.ListDonations(s.ctx, s.donor, ListFilter{})
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *DonationServiceSuite) TestLifecycle() {
	d := s.create("100")
	d = s.approve(d)
	s.Equal(donation.StatusApproved, d.Status)
	s.NotNil(d.ApprovedAt)

	s.receipts.EXPECT().Issue(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), s.now).
		DoAndReturn(func(_ context.Context, got *donation.Donation, cause *catalog.Cause, evidence donation.ReceiptEvidence, _ time.Time) (donation.ReceiptRefs, error) {
			s.Equal(d.ID, got.ID)
			s.Equal(s.cause.ID, cause.ID)
			s.Equal([]byte("png"), evidence.Image)
			return s.issuedRefs(), nil
		})
	d = s.receive(d)
	s.Equal(donation.StatusReceived, d.Status)
	s.Equal("receipts/1", d.ReceiptDocumentRef)

	cause, err := s.db.Causes().Get(s.ctx, s.cause.ID)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(100).Equal(cause.RaisedAmount), cause.RaisedAmount.String())
	campaign, err := s.db.Campaigns().Get(s.ctx, s.campaign.ID)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(100).Equal(campaign.RaisedAmount), "campaign follows the cause in the same unit of work")

	refs, err := s.service.GetReceipt(s.ctx, s.donor, d.ID)
	s.Require().NoError(err)
	s.Equal(s.issuedRefs(), refs)

	d, err = s.service.TransitionDonation(s.ctx, s.donor, d.ID, donation.StatusConfirmed, TransitionInput{})
	s.Require().NoError(err)
	s.Equal(donation.StatusConfirmed, d.Status)
	s.Equal(int64(4), d.Version)

	_, err = s.service.TransitionDonation(s.ctx, s.donor, d.ID, donation.StatusConfirmed, TransitionInput{})
	s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition), "terminal states cannot be re-entered")
}

func (s *DonationServiceSuite) TestReceiptFailureLeavesDonationApproved() {
	d := s.approve(s.create("40"))

	s.receipts.EXPECT().Issue(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(donation.ReceiptRefs{}, errors.New("bucket unreachable"))
	_, err := s.service.TransitionDonation(s.ctx, s.org, d.ID, donation.StatusReceived, TransitionInput{
		Evidence: &donation.ReceiptEvidence{ImageRef: "images/existing"},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeReceiptGenerationFailed))

	stored, err := s.service.GetDonation(s.ctx, s.org, d.ID)
	s.Require().NoError(err)
	s.Equal(donation.StatusApproved, stored.Status)
	s.Empty(stored.ReceiptDocumentRef)

	cause, err := s.db.Causes().Get(s.ctx, s.cause.ID)
	s.Require().NoError(err)
	s.True(cause.RaisedAmount.IsZero())

	_, err = s.service.GetReceipt(s.ctx, s.donor, d.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeReceiptNotYetAvailable))
}

func (s *DonationServiceSuite) TestTransitionGuards() {
	s.Run("skipping a state is illegal", func() {
		d := s.create("5")
		_, err := s.service.TransitionDonation(s.ctx, s.org, d.ID, donation.StatusReceived, TransitionInput{})
		s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition))
	})

	s.Run("illegal edges report illegal transition before role", func() {
		d := s.create("5")
		_, err := s.service.TransitionDonation(s.ctx, s.org, d.ID, donation.StatusConfirmed, TransitionInput{})
		s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition))
	})

	s.Run("donors cannot approve", func() {
		d := s.create("5")
		_, err := s.service.TransitionDonation(s.ctx, s.donor, d.ID, donation.StatusApproved, TransitionInput{})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("another organization's donation is not found", func() {
		d := s.create("5")
		stranger := domain.OrganizationActor(domain.OrganizationID(uuid.New()))
		for _, target := range []donation.Status{donation.StatusApproved, donation.StatusConfirmed, donation.StatusCancelled} {
			_, err := s.service.TransitionDonation(s.ctx, stranger, d.ID, target, TransitionInput{})
			s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "%s: got %v", target, err)
			_, err = s.service.GetDonation(s.ctx, stranger, d.ID)
			s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		}

		stored, err := s.service.GetDonation(s.ctx, s.org, d.ID)
		s.Require().NoError(err)
		s.Equal(donation.StatusPending, stored.Status)
	})

	s.Run("another donor's donation is not found", func() {
		d := s.create("5")
		_, err := s.service.TransitionDonation(s.ctx, domain.DonorActor(domain.DonorID(uuid.New())), d.ID, donation.StatusCancelled, TransitionInput{})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("donor cancelling an approved donation is an illegal transition", func() {
		d := s.approve(s.create("5"))
		_, err := s.service.TransitionDonation(s.ctx, s.donor, d.ID, donation.StatusCancelled, TransitionInput{})
		s.True(dErrors.HasCode(err, dErrors.CodeIllegalTransition), "got %v", err)
	})

	s.Run("stale expected version conflicts", func() {
		d := s.create("5")
		stale := int64(7)
		_, err := s.service.TransitionDonation(s.ctx, s.org, d.ID, donation.StatusApproved, TransitionInput{ExpectedVersion: &stale})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("receiving requires evidence", func() {
		d := s.approve(s.create("5"))
		_, err := s.service.TransitionDonation(s.ctx, s.org, d.ID, donation.StatusReceived, TransitionInput{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("cancelled donations never get a receipt", func() {
		d := s.create("5")
		_, err := s.service.TransitionDonation(s.ctx, s.donor, d.ID, donation.StatusCancelled, TransitionInput{})
		s.Require().NoError(err)
		_, err = s.service.GetReceipt(s.ctx, s.donor, d.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeReceiptUnavailable))
	})

	s.Run("other donors cannot read a donation", func() {
		d := s.create("5")
		_, err := s.service.GetDonation(s.ctx, domain.DonorActor(domain.DonorID(uuid.New())), d.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *DonationServiceSuite) TestConcurrentReceiptsOnOneCause() {
	const n = 8
	donations := make([]*donation.Donation, n)
	for i := range donations {
		donations[i] = s.approve(s.create("12.50"))
	}
	s.receipts.EXPECT().Issue(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(s.issuedRefs(), nil).Times(n)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, d := range donations {
		wg.Add(1)
		go func(id domain.DonationID) {
			defer wg.Done()
			_, err := s.service.TransitionDonation(s.ctx, s.org, id, donation.StatusReceived, TransitionInput{
				Evidence: &donation.ReceiptEvidence{ImageRef: "images/shared"},
			})
			errs <- err
		}(d.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.Require().NoError(err)
	}

	cause, err := s.db.Causes().Get(s.ctx, s.cause.ID)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(100).Equal(cause.RaisedAmount), cause.RaisedAmount.String())
	campaign, err := s.db.Campaigns().Get(s.ctx, s.campaign.ID)
	s.Require().NoError(err)
	s.True(cause.RaisedAmount.Equal(campaign.RaisedAmount))
}

func (s *DonationServiceSuite) TestConcurrentApproveAndCancel() {
	const rounds = 30
	for i := 0; i < rounds; i++ {
		d := s.create("3")
		var wg sync.WaitGroup
		var approveErr, cancelErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, approveErr = s.service.TransitionDonation(s.ctx, s.org, d.ID, donation.StatusApproved, TransitionInput{})
		}()
		go func() {
			defer wg.Done()
			_, cancelErr = s.service.TransitionDonation(s.ctx, s.donor, d.ID, donation.StatusCancelled, TransitionInput{})
		}()
		wg.Wait()

		stored, err := s.service.GetDonation(s.ctx, s.org, d.ID)
		s.Require().NoError(err)
		switch {
		case approveErr == nil:
			s.True(dErrors.HasCode(cancelErr, dErrors.CodeIllegalTransition), "round %d: cancel got %v", i, cancelErr)
			s.Equal(donation.StatusApproved, stored.Status)
		case cancelErr == nil:
			s.True(dErrors.HasCode(approveErr, dErrors.CodeIllegalTransition), "round %d: approve got %v", i, approveErr)
			s.Equal(donation.StatusCancelled, stored.Status)
		default:
			s.Failf("both transitions failed", "approve: %v, cancel: %v", approveErr, cancelErr)
		}
		s.Equal(int64(2), stored.Version, "exactly one transition applied")
	}
}

func (s *DonationServiceSuite) TestRaisedIsNotCappedAtTarget() {
	s.receipts.EXPECT().Issue(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(s.issuedRefs(), nil).Times(2)

	s.receive(s.approve(s.create("400")))
	s.receive(s.approve(s.create("700")))

	cause, err := s.db.Causes().Get(s.ctx, s.cause.ID)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(1000).Equal(cause.TargetAmount))
	s.True(decimal.NewFromInt(1100).Equal(cause.RaisedAmount), cause.RaisedAmount.String())
	campaign, err := s.db.Campaigns().Get(s.ctx, s.campaign.ID)
	s.Require().NoError(err)
	s.True(decimal.NewFromInt(1100).Equal(campaign.RaisedAmount), campaign.RaisedAmount.String())
}

func (s *DonationServiceSuite) TestListDonationsIsScoped() {
	s.create("1")
	s.create("2")
	other := domain.DonorActor(domain.DonorID(uuid.New()))
	_, err := s.service.CreateDonation(s.ctx, other, s.cause.ID, s.money("3"), "")
	s.Require().NoError(err)

	mine, err := s.service.ListDonations(s.ctx, s.donor, ListFilter{})
	s.Require().NoError(err)
	s.Len(mine, 2)

	orgs, err := s.service.ListDonations(s.ctx, s.org, ListFilter{Statuses: []donation.Status{donation.StatusPending}})
	s.Require().NoError(err)
	s.Len(orgs, 3)

	paged, err := s.service.ListDonations(s.ctx, s.org, ListFilter{Limit: 2, Offset: 2})
	s.Require().NoError(err)
	s.Len(paged, 1)
}
