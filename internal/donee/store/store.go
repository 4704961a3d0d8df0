// Package store holds the donee persistence adapters. Both adapters answer
// proximity queries; the in-memory one scans, Postgres uses a PostGIS index.
package store

import "feedlink/internal/donee/models"

// ListFilter selects donees for admin listings. Empty Statuses means all.
type ListFilter struct {
	Statuses []models.Status
	Limit    int
	Skip     int
}

// NearbyQuery is a proximity search. Limit <= 0 means unbounded.
type NearbyQuery struct {
	Origin            models.Location
	MaxDistanceMeters float64
	Limit             int
	Statuses          []models.Status
}

func statusStrings(statuses []models.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
