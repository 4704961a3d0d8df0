package matching

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"feedlink/internal/audit"
	"feedlink/internal/donation/metrics"
	"feedlink/internal/donation/models"
	"feedlink/internal/donation/service"
	donationstore "feedlink/internal/donation/store"
	doneemodels "feedlink/internal/donee/models"
	doneeservice "feedlink/internal/donee/service"
	doneestore "feedlink/internal/donee/store"
	donormodels "feedlink/internal/donor/models"
	donorstore "feedlink/internal/donor/store"
	"feedlink/internal/notify"
	"feedlink/internal/notify/mocks"
	dErrors "feedlink/pkg/domain-errors"
	"feedlink/pkg/requestcontext"
)

type recordingEmitter struct{ sink *audit.InMemorySink }

func (e recordingEmitter) Emit(ctx context.Context, ev audit.Event) {
	_ = e.sink.Append(ctx, ev)
}

type OrchestratorSuite struct {
	suite.Suite
	ctx       context.Context
	now       time.Time
	notifier  *mocks.MockNotifier
	donations *donationstore.InMemory
	donees    *doneeservice.Service
	metrics   *metrics.Metrics
	sink      *audit.InMemorySink
	ledger    *service.Ledger
	orch      *Orchestrator

	donor   *donormodels.Donor
	donee   *doneemodels.Donee
	noEmail *doneemodels.Donee
}

func TestOrchestratorSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorSuite))
}

func (s *OrchestratorSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.now = time.Date(2026, 8, 20, 18, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.notifier = mocks.NewMockNotifier(ctrl)
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.sink = audit.NewInMemorySink()

	donors := donorstore.NewInMemory()
	var err error
	s.donor, err = donormodels.NewDonor(uuid.New(), "Ravi", "ravi@example.com", s.now)
	s.Require().NoError(err)
	s.Require().NoError(donors.Upsert(s.ctx, s.donor))

	doneeStore := doneestore.NewInMemory()
	s.donee = &doneemodels.Donee{ID: uuid.New(), Name: "E1", OrganizationName: "E1 Trust", Email: "e1@donee.test", Status: doneemodels.StatusVerified}
	s.noEmail = &doneemodels.Donee{ID: uuid.New(), Name: "Quiet", Status: doneemodels.StatusVerified}
	s.Require().NoError(doneeStore.Create(s.ctx, s.donee))
	s.Require().NoError(doneeStore.Create(s.ctx, s.noEmail))
	s.donees = doneeservice.New(doneeStore, doneeservice.WithLogger(logger), doneeservice.WithNotifier(s.notifier))

	s.donations = donationstore.NewInMemory()
	s.ledger = service.New(s.donations, doneeStore, service.WithLogger(logger), service.WithMetrics(s.metrics))
	s.orch = New(s.ledger, donors, s.donees, s.notifier, "https://feedlink.test/",
		WithLogger(logger),
		WithMetrics(s.metrics),
		WithAudit(recordingEmitter{sink: s.sink}),
	)
}

func (s *OrchestratorSuite) request(contact string) *Result {
	s.notifier.EXPECT().SendDonationRequest(gomock.Any(), gomock.Any()).Return(nil)
	res, err := s.orch.RequestDonation(s.ctx, DonationRequest{
		DonorID: s.donor.ID,
		DoneeID: s.donee.ID,
		Contact: contact,
		Details: models.Details{FoodType: "Rice", EstimatedPeople: 40},
	})
	s.Require().NoError(err)
	return res
}

func (s *OrchestratorSuite) eventTypes(donationID uuid.UUID) []audit.EventType {
	var out []audit.EventType
	for _, e := range s.sink.ListByDonation(s.ctx, donationID.String()) {
		out = append(out, e.Type)
	}
	return out
}

func (s *OrchestratorSuite) TestRequestDonationMailsConfirmationLink() {
	var sent notify.DonationRequest
	s.notifier.EXPECT().SendDonationRequest(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, msg notify.DonationRequest) error {
			sent = msg
			return nil
		})

	res, err := s.orch.RequestDonation(s.ctx, DonationRequest{
		DonorID: s.donor.ID,
		DoneeID: s.donee.ID,
		Details: models.Details{FoodType: "Rice"},
	})
	s.Require().NoError(err)
	s.True(res.Notified)
	s.NoError(res.NotifyErr)

	d := res.Donation
	s.Equal(models.StatusPending, d.Status)
	s.Equal("Ravi", d.DonorName)
	s.Equal(DefaultContact, d.DonorContact)

	s.Equal("e1@donee.test", sent.DoneeEmail)
	s.Equal("E1 Trust", sent.OrganizationName)
	s.Equal("Rice", sent.FoodType)
	s.Equal("https://feedlink.test/donations/"+d.ID.String()+"/confirm?token="+d.ConfirmationToken, sent.ConfirmURL)
	s.Equal([]audit.EventType{audit.EventDonationRequested, audit.EventDonationNotified}, s.eventTypes(d.ID))
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Notifications.WithLabelValues("sent")))
}

func (s *OrchestratorSuite) TestRequestDonationRejections() {
	s.Run("unknown donor", func() {
		_, err := s.orch.RequestDonation(s.ctx, DonationRequest{DonorID: uuid.New(), DoneeID: s.donee.ID})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
	s.Run("unknown donee", func() {
		_, err := s.orch.RequestDonation(s.ctx, DonationRequest{DonorID: s.donor.ID, DoneeID: uuid.New()})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
	s.Run("donee without email", func() {
		_, err := s.orch.RequestDonation(s.ctx, DonationRequest{DonorID: s.donor.ID, DoneeID: s.noEmail.ID})
		s.True(dErrors.HasCode(err, dErrors.CodeNotNotifiable))
	})
	s.Run("invalid details", func() {
		_, err := s.orch.RequestDonation(s.ctx, DonationRequest{
			DonorID: s.donor.ID, DoneeID: s.donee.ID, Details: models.Details{EstimatedPeople: -1},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	mine, err := s.ledger.ListByDonor(s.ctx, s.donor.ID)
	s.Require().NoError(err)
	s.Empty(mine, "no donation is persisted on rejection")
}

func (s *OrchestratorSuite) TestDispatchFailureKeepsDonation() {
	s.notifier.EXPECT().SendDonationRequest(gomock.Any(), gomock.Any()).Return(errors.New("smtp: 421 try later"))

	res, err := s.orch.RequestDonation(s.ctx, DonationRequest{DonorID: s.donor.ID, DoneeID: s.donee.ID, Contact: "555-0199"})
	s.Require().NoError(err)
	s.False(res.Notified)
	s.True(dErrors.HasCode(res.NotifyErr, dErrors.CodeDependencyFailure))

	stored, err := s.ledger.Get(s.ctx, res.Donation.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, stored.Status)
	s.Equal("555-0199", stored.DonorContact)
	s.Equal([]audit.EventType{audit.EventDonationRequested, audit.EventNotificationFailed}, s.eventTypes(stored.ID))
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.Notifications.WithLabelValues("failed")))
}

func (s *OrchestratorSuite) TestConfirmTwiceCreditsDoneeOnce() {
	d := s.request("555-0100").Donation

	confirmed, newly, err := s.orch.ConfirmDonation(s.ctx, d.ID, d.ConfirmationToken)
	s.Require().NoError(err)
	s.True(newly)
	s.True(confirmed.ConfirmedByDonee)
	s.Equal(models.StatusCompleted, confirmed.Status)

	later := requestcontext.WithTime(context.Background(), s.now.Add(time.Hour))
	again, newly, err := s.orch.ConfirmDonation(later, d.ID, d.ConfirmationToken)
	s.Require().NoError(err)
	s.False(newly)
	s.Equal(s.now, *again.CompletedAt)

	donee, err := s.donees.Get(s.ctx, s.donee.ID)
	s.Require().NoError(err)
	s.Equal(1, donee.TotalDonationsReceived)
	s.Equal(s.now, *donee.LastDonationDate)

	confirmations := 0
	for _, t := range s.eventTypes(d.ID) {
		if t == audit.EventDonationConfirmed {
			confirmations++
		}
	}
	s.Equal(1, confirmations)
}

func (s *OrchestratorSuite) TestConcurrentConfirmationsCreditOnce() {
	d := s.request("").Donation

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = s.orch.ConfirmDonation(s.ctx, d.ID, d.ConfirmationToken)
		}()
	}
	wg.Wait()

	donee, err := s.donees.Get(s.ctx, s.donee.ID)
	s.Require().NoError(err)
	s.Equal(1, donee.TotalDonationsReceived)
}

func (s *OrchestratorSuite) TestInvalidTokenDoesNotCredit() {
	d := s.request("").Donation

	_, _, err := s.orch.ConfirmDonation(s.ctx, d.ID, strings.ToUpper(d.ConfirmationToken))
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidToken))

	donee, err := s.donees.Get(s.ctx, s.donee.ID)
	s.Require().NoError(err)
	s.Zero(donee.TotalDonationsReceived)
}

func (s *OrchestratorSuite) TestDonorCompletionThenDoneeConfirmation() {
	d := s.request("").Donation

	out, err := s.orch.UpdateStatus(s.ctx, service.SetStatusRequest{DonationID: d.ID, RequesterID: s.donor.ID, Status: "completed"})
	s.Require().NoError(err)
	s.False(out.ConfirmedByDonee)

	donee, _ := s.donees.Get(s.ctx, s.donee.ID)
	s.Zero(donee.TotalDonationsReceived, "donor completion does not credit the donee")

	confirmAt := s.now.Add(48 * time.Hour)
	confirmed, newly, err := s.orch.ConfirmDonation(requestcontext.WithTime(s.ctx, confirmAt), d.ID, d.ConfirmationToken)
	s.Require().NoError(err)
	s.True(newly)
	s.Equal(s.now, *confirmed.CompletedAt, "donor completion time is kept")

	donee, _ = s.donees.Get(s.ctx, s.donee.ID)
	s.Equal(1, donee.TotalDonationsReceived)
	s.Require().NotNil(donee.LastDonationDate)
	s.Equal(confirmAt, *donee.LastDonationDate, "donee is credited when it confirms")
}

func (s *OrchestratorSuite) TestResendNotification() {
	d := s.request("").Donation

	s.notifier.EXPECT().SendDonationRequest(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, msg notify.DonationRequest) error {
			s.Equal(s.orch.ConfirmURL(d), msg.ConfirmURL)
			return nil
		})
	_, err := s.orch.ResendNotification(s.ctx, d.ID)
	s.Require().NoError(err)

	_, err = s.orch.UpdateStatus(s.ctx, service.SetStatusRequest{DonationID: d.ID, RequesterID: s.donor.ID, Status: "cancelled"})
	s.Require().NoError(err)
	_, err = s.orch.ResendNotification(s.ctx, d.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.orch.ResendNotification(s.ctx, uuid.New())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *OrchestratorSuite) TestResendFailureIsDependencyFailure() {
	d := s.request("").Donation
	s.notifier.EXPECT().SendDonationRequest(gomock.Any(), gomock.Any()).Return(errors.New("boom"))

	_, err := s.orch.ResendNotification(s.ctx, d.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeDependencyFailure))
}
