// Package reporting supplies the summary numbers the dashboards render.
// The auth layer never fetches raw donation or program data itself; it
// asks a Source.
package reporting

import "context"

// Summary is one dashboard's headline figures.
type Summary struct {
	TotalDonations   int64   `json:"total_donations"`
	TotalAmount      float64 `json:"total_amount"`
	ActivePrograms   int     `json:"active_programs"`
	ActiveVolunteers int     `json:"active_volunteers"`
}

// Source provides dashboard summaries scoped to a user.
type Source interface {
	AdminSummary(ctx context.Context) (Summary, error)
	DonorSummary(ctx context.Context, userID string) (Summary, error)
	VolunteerSummary(ctx context.Context, userID string) (Summary, error)
}

// StaticSource serves fixed figures. It stands in until a real donations
// backend is wired up.
type StaticSource struct {
	Admin     Summary
	Donor     Summary
	Volunteer Summary
}

func (s StaticSource) AdminSummary(ctx context.Context) (Summary, error) {
	return s.Admin, nil
}

func (s StaticSource) DonorSummary(ctx context.Context, userID string) (Summary, error) {
	return s.Donor, nil
}

func (s StaticSource) VolunteerSummary(ctx context.Context, userID string) (Summary, error) {
	return s.Volunteer, nil
}

var _ Source = StaticSource{}
