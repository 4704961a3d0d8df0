package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	doneemodels "feedlink/internal/donee/models"
	doneeservice "feedlink/internal/donee/service"
	donormodels "feedlink/internal/donor/models"
	dErrors "feedlink/pkg/domain-errors"
)

// demoDonorID is stable so a locally minted JWT keeps working across restarts.
var demoDonorID = uuid.MustParse("6f1c2b9e-3a57-4d0e-9c11-2b7f1e0d4a58")

var demoDonees = []doneemodels.Registration{
	{
		Name:                "Harbor Community Kitchen",
		Email:               "kitchen@example.org",
		Phone:               "+1-555-0100",
		OrganizationType:    "Community Center",
		OrganizationName:    "Harbor Community Kitchen",
		Description:         "Hot meals every weekday evening.",
		Address:             "12 Dock Street",
		AveragePeopleServed: 120,
		OperatingHours:      doneemodels.OperatingHours{From: "16:00", To: "21:00"},
		Location:            doneemodels.Location{Longitude: -122.4194, Latitude: 37.7749},
	},
	{
		Name:                "St. Anne Shelter",
		Email:               "shelter@example.org",
		Phone:               "+1-555-0101",
		OrganizationType:    "NGO",
		OrganizationName:    "St. Anne Shelter",
		Description:         "Overnight shelter with breakfast service.",
		Address:             "400 Mission Street",
		AveragePeopleServed: 45,
		OperatingHours:      doneemodels.OperatingHours{From: "06:00", To: "10:00"},
		SpecialRequirements: []string{"vegetarian"},
		Location:            doneemodels.Location{Longitude: -122.3980, Latitude: 37.7890},
	},
}

// seedDemoData installs one donor and a few verified donees for local runs.
// Donees that already exist are left alone.
func seedDemoData(ctx context.Context, donors donorDirectory, donees *doneeservice.Service, log *slog.Logger) error {
	donor, err := donormodels.NewDonor(demoDonorID, "Demo Donor", "donor@example.org", time.Now().UTC())
	if err != nil {
		return err
	}
	if err := donors.Upsert(ctx, donor); err != nil {
		return err
	}

	for _, reg := range demoDonees {
		d, err := donees.Register(ctx, reg)
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			continue
		}
		if err != nil {
			return err
		}
		if _, err := donees.UpdateStatus(ctx, d.ID, string(doneemodels.StatusVerified)); err != nil {
			return err
		}
	}
	log.InfoContext(ctx, "demo data seeded", "donor_id", demoDonorID, "donees", len(demoDonees))
	return nil
}
