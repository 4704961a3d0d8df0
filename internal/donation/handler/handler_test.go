package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"feedlink/internal/donation/handler/mocks"
	"feedlink/internal/donation/models"
	"feedlink/internal/donation/service"
	"feedlink/internal/matching"
	dErrors "feedlink/pkg/domain-errors"
	"feedlink/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

type DonationHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  http.Handler
	donorID uuid.UUID
	now     time.Time
}

func TestDonationHandlerSuite(t *testing.T) {
	suite.Run(t, new(DonationHandlerSuite))
}

func (s *DonationHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.donorID = uuid.New()
	s.now = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.RegisterDonor(r)
	h.RegisterPublic(r)
	h.RegisterAdmin(r)
	s.router = r
}

func (s *DonationHandlerSuite) donation(status models.DonationStatus) *models.Donation {
	return &models.Donation{
		ID:              uuid.New(),
		DonorID:         s.donorID,
		DoneeID:         uuid.New(),
		DonorName:       "Ada <script>",
		Status:          status,
		FoodType:        "Rice",
		Quantity:        "10kg",
		EstimatedPeople: 20,
		CreatedAt:       s.now,
	}
}

func (s *DonationHandlerSuite) TestNotify() {
	doneeID := uuid.New()

	s.Run("201 when the donee was mailed", func() {
		d := s.donation(models.StatusPending)
		s.service.EXPECT().RequestDonation(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req matching.DonationRequest) (*matching.Result, error) {
				s.Equal(s.donorID, req.DonorID)
				s.Equal(doneeID, req.DoneeID)
				s.Equal("555-0100", req.Contact)
				s.Equal(25, req.Details.EstimatedPeople)
				return &matching.Result{Donation: d, Notified: true}, nil
			})

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/donations/notify/"+doneeID.String(),
			map[string]any{"contact": "555-0100", "foodType": "Rice", "estimatedPeople": 25})
		rr := testutil.DoRequest(s.router, testutil.WithDonor(req, s.donorID.String()))

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		testutil.AssertJSONContains(s.T(), rr, "donationId", d.ID.String())
		testutil.AssertJSONContains(s.T(), rr, "status", "pending")
		testutil.AssertJSONContains(s.T(), rr, "notified", true)
	})

	s.Run("202 when the mail failed after saving", func() {
		d := s.donation(models.StatusPending)
		s.service.EXPECT().RequestDonation(gomock.Any(), gomock.Any()).Return(&matching.Result{
			Donation:  d,
			NotifyErr: dErrors.Wrap(errors.New("smtp"), dErrors.CodeDependencyFailure, "donation saved but the donee could not be notified"),
		}, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/donations/notify/"+doneeID.String(), map[string]any{})
		rr := testutil.DoRequest(s.router, testutil.WithDonor(req, s.donorID.String()))

		testutil.AssertStatus(s.T(), rr, http.StatusAccepted)
		testutil.AssertJSONContains(s.T(), rr, "notified", false)
		testutil.AssertJSONContains(s.T(), rr, "error_description", "donation saved but the donee could not be notified")
	})

	s.Run("service errors map to status codes", func() {
		cases := []struct {
			code   dErrors.Code
			status int
		}{
			{dErrors.CodeNotFound, http.StatusNotFound},
			{dErrors.CodeNotNotifiable, http.StatusBadRequest},
			{dErrors.CodeBadRequest, http.StatusBadRequest},
		}
		for _, tc := range cases {
			s.service.EXPECT().RequestDonation(gomock.Any(), gomock.Any()).Return(nil, dErrors.New(tc.code, "nope"))
			req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/donations/notify/"+doneeID.String(), map[string]any{})
			rr := testutil.DoRequest(s.router, testutil.WithDonor(req, s.donorID.String()))
			testutil.AssertStatusAndError(s.T(), rr, tc.status, string(tc.code))
		}
	})

	s.Run("rejects bad input before calling the service", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/donations/notify/not-a-uuid", map[string]any{})
		rr := testutil.DoRequest(s.router, testutil.WithDonor(req, s.donorID.String()))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)

		req = testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/donations/notify/"+doneeID.String(), `{"unknown":1}`)
		rr = testutil.DoRequest(s.router, testutil.WithDonor(req, s.donorID.String()))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")

		req = testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/donations/notify/"+doneeID.String(), map[string]any{})
		rr = testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})
}

func (s *DonationHandlerSuite) TestConfirm() {
	s.Run("renders the confirmation page", func() {
		d := s.donation(models.StatusCompleted)
		s.service.EXPECT().ConfirmDonation(gomock.Any(), d.ID, "abc").Return(d, true, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/donations/"+d.ID.String()+"/confirm?token=abc"))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.Contains(rr.Header().Get("Content-Type"), "text/html")
		body := rr.Body.String()
		s.Contains(body, "Donation confirmed")
		s.Contains(body, "Ada &lt;script&gt;")
	})

	s.Run("second visit says already confirmed", func() {
		d := s.donation(models.StatusCompleted)
		s.service.EXPECT().ConfirmDonation(gomock.Any(), d.ID, "abc").Return(d, false, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/donations/"+d.ID.String()+"/confirm?token=abc"))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		s.Contains(rr.Body.String(), "Already confirmed")
	})

	s.Run("error pages", func() {
		cases := []struct {
			code   dErrors.Code
			status int
			text   string
		}{
			{dErrors.CodeInvalidToken, http.StatusBadRequest, "invalid"},
			{dErrors.CodeNotFound, http.StatusNotFound, "could not be found"},
			{dErrors.CodeConflict, http.StatusConflict, "cancelled"},
		}
		for _, tc := range cases {
			id := uuid.New()
			s.service.EXPECT().ConfirmDonation(gomock.Any(), id, "t").Return(nil, false, dErrors.New(tc.code, "x"))
			rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/donations/"+id.String()+"/confirm?token=t"))
			testutil.AssertStatus(s.T(), rr, tc.status)
			s.Contains(rr.Body.String(), tc.text)
		}
	})

	s.Run("missing token is left to the ledger", func() {
		unknown := uuid.New()
		s.service.EXPECT().ConfirmDonation(gomock.Any(), unknown, "").
			Return(nil, false, dErrors.New(dErrors.CodeNotFound, "donation not found"))
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/donations/"+unknown.String()+"/confirm"))
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)

		known := uuid.New()
		s.service.EXPECT().ConfirmDonation(gomock.Any(), known, "").
			Return(nil, false, dErrors.New(dErrors.CodeInvalidToken, "confirmation token does not match"))
		rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/donations/"+known.String()+"/confirm"))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *DonationHandlerSuite) TestUpdateStatus() {
	d := s.donation(models.StatusCompleted)
	rating := 4
	s.service.EXPECT().UpdateStatus(gomock.Any(), service.SetStatusRequest{
		DonationID:  d.ID,
		RequesterID: s.donorID,
		Status:      "completed",
		Rating:      &rating,
	}).Return(d, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPatch, "/api/donations/"+d.ID.String()+"/status",
		map[string]any{"status": "completed", "rating": 4})
	rr := testutil.DoRequest(s.router, testutil.WithDonor(req, s.donorID.String()))
	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "status", "completed")
	s.NotContains(rr.Body.String(), "confirmationToken")

	s.service.EXPECT().UpdateStatus(gomock.Any(), gomock.Any()).Return(nil, dErrors.New(dErrors.CodeForbidden, "only the donor may update this donation"))
	req = testutil.NewJSONRequest(s.T(), http.MethodPatch, "/api/donations/"+d.ID.String()+"/status", map[string]any{"status": "cancelled"})
	rr = testutil.DoRequest(s.router, testutil.WithDonor(req, uuid.NewString()))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
}

func (s *DonationHandlerSuite) TestListMine() {
	list := []*models.Donation{s.donation(models.StatusPending), s.donation(models.StatusCancelled)}
	s.service.EXPECT().ListByDonor(gomock.Any(), s.donorID).Return(list, nil)

	req := testutil.NewRequest(s.T(), http.MethodGet, "/api/donations/mine")
	rr := testutil.DoRequest(s.router, testutil.WithDonor(req, s.donorID.String()))
	testutil.AssertStatusOK(s.T(), rr)

	resp := testutil.UnmarshalResponse[listResponse](s.T(), rr)
	s.Equal(2, resp.Count)
	s.Len(resp.Donations, 2)
}

func (s *DonationHandlerSuite) TestResend() {
	d := s.donation(models.StatusPending)
	s.service.EXPECT().ResendNotification(gomock.Any(), d.ID).Return(d, nil)
	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/api/admin/donations/"+d.ID.String()+"/resend"))
	testutil.AssertStatusOK(s.T(), rr)

	id := uuid.New()
	s.service.EXPECT().ResendNotification(gomock.Any(), id).Return(nil, dErrors.New(dErrors.CodeConflict, "only pending donations can be resent"))
	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/api/admin/donations/"+id.String()+"/resend"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeConflict))

	s.service.EXPECT().ResendNotification(gomock.Any(), id).Return(nil, dErrors.New(dErrors.CodeDependencyFailure, "the donee could not be notified"))
	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodPost, "/api/admin/donations/"+id.String()+"/resend"))
	testutil.AssertStatus(s.T(), rr, http.StatusBadGateway)
}
