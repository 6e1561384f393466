package queries

import (
	"jarvis-backend/pkg/utils"
)

// LoginQuery resolves the profile for a login attempt.
// Password is carried for the form but not checked.
type LoginQuery struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password"`
}

// Validate validates the query
func (q LoginQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetAdminStatsQuery retrieves the admin dashboard analytics
type GetAdminStatsQuery struct{}

// Validate validates the query
func (q GetAdminStatsQuery) Validate() error {
	return nil
}

// AdminStat is one weekday row of the admin dashboard
type AdminStat struct {
	Name   string `json:"name"`
	Active int    `json:"active"`
	Time   int    `json:"time"`
}

// AdminStatsResult is the admin dashboard payload
type AdminStatsResult struct {
	Weekly       []AdminStat `json:"weekly"`
	LiveSessions int         `json:"liveSessions"`
	GeneratedAt  string      `json:"generatedAt"`
}

// WeeklyAdminStats are the fixed analytics shown on the admin dashboard
func WeeklyAdminStats() []AdminStat {
	return []AdminStat{
		{Name: "Mon", Active: 400, Time: 24},
		{Name: "Tue", Active: 300, Time: 30},
		{Name: "Wed", Active: 550, Time: 28},
		{Name: "Thu", Active: 480, Time: 35},
		{Name: "Fri", Active: 600, Time: 40},
		{Name: "Sat", Active: 700, Time: 45},
		{Name: "Sun", Active: 650, Time: 38},
	}
}
