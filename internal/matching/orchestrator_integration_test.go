//go:build integration

package matching_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"feedlink/internal/donation/models"
	"feedlink/internal/donation/service"
	donationstore "feedlink/internal/donation/store"
	doneemodels "feedlink/internal/donee/models"
	doneeservice "feedlink/internal/donee/service"
	doneestore "feedlink/internal/donee/store"
	donormodels "feedlink/internal/donor/models"
	donorstore "feedlink/internal/donor/store"
	"feedlink/internal/matching"
	"feedlink/internal/notify"
	"feedlink/pkg/platform/tx"
	"feedlink/pkg/testutil/containers"
)

// failingDonees credits nothing and fails, to prove the confirmation rolls back.
type failingDonees struct {
	*doneeservice.Service
}

func (failingDonees) RecordDonation(context.Context, uuid.UUID, time.Time) error {
	return errors.New("credit failed")
}

type PostgresOrchestratorSuite struct {
	suite.Suite
	postgres  *containers.PostgresContainer
	ledger    *service.Ledger
	donees    *doneeservice.Service
	donors    *donorstore.PostgresStore
	donations *donationstore.PostgresStore
	donor     *donormodels.Donor
	donee     *doneemodels.Donee
	logger    *slog.Logger
}

func TestPostgresOrchestratorSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresOrchestratorSuite))
}

func (s *PostgresOrchestratorSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *PostgresOrchestratorSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "donations", "donees", "donors"))

	doneeStore := doneestore.NewPostgres(s.postgres.DB)
	s.donations = donationstore.NewPostgres(s.postgres.DB)
	s.donors = donorstore.NewPostgres(s.postgres.DB)
	s.donees = doneeservice.New(doneeStore, doneeservice.WithLogger(s.logger))
	s.ledger = service.New(s.donations, doneeStore, service.WithLogger(s.logger))

	now := time.Now().UTC().Truncate(time.Microsecond)
	var err error
	s.donor, err = donormodels.NewDonor(uuid.New(), "Ravi", "", now)
	s.Require().NoError(err)
	s.Require().NoError(s.donors.Upsert(ctx, s.donor))

	s.donee = &doneemodels.Donee{
		ID:                  uuid.New(),
		Name:                "E1",
		Email:               "e1@donee.test",
		OrganizationType:    "NGO",
		SpecialRequirements: []string{},
		Status:              doneemodels.StatusVerified,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	s.Require().NoError(doneeStore.Create(ctx, s.donee))
}

func (s *PostgresOrchestratorSuite) orchestrator(donees matching.Donees) *matching.Orchestrator {
	return matching.New(s.ledger, s.donors, donees, notify.NewLog(s.logger), "http://localhost:8080",
		matching.WithLogger(s.logger),
		matching.WithTxRunner(tx.NewSQLRunner(s.postgres.DB)),
	)
}

func (s *PostgresOrchestratorSuite) TestConfirmCreditsDoneeInOneTransaction() {
	ctx := context.Background()
	orch := s.orchestrator(s.donees)

	res, err := orch.RequestDonation(ctx, matching.DonationRequest{DonorID: s.donor.ID, DoneeID: s.donee.ID})
	s.Require().NoError(err)
	s.True(res.Notified)

	for range 2 {
		_, _, err = orch.ConfirmDonation(ctx, res.Donation.ID, res.Donation.ConfirmationToken)
		s.Require().NoError(err)
	}

	donee, err := s.donees.Get(ctx, s.donee.ID)
	s.Require().NoError(err)
	s.Equal(1, donee.TotalDonationsReceived)
}

func (s *PostgresOrchestratorSuite) TestFailedCreditRollsBackConfirmation() {
	ctx := context.Background()
	res, err := s.orchestrator(s.donees).RequestDonation(ctx, matching.DonationRequest{DonorID: s.donor.ID, DoneeID: s.donee.ID})
	s.Require().NoError(err)

	_, _, err = s.orchestrator(failingDonees{s.donees}).ConfirmDonation(ctx, res.Donation.ID, res.Donation.ConfirmationToken)
	s.Require().Error(err)

	stored, err := s.ledger.Get(ctx, res.Donation.ID)
	s.Require().NoError(err)
	s.False(stored.ConfirmedByDonee)
	s.Equal(models.StatusPending, stored.Status)
}
