package models

import "github.com/google/uuid"

type HospitalStats struct {
	Hospital string `json:"hospital"`
	Births   int    `json:"births"`
	Deaths   int    `json:"deaths"`
	Total    int    `json:"total"`
}

// ValidationCounts always satisfies Pending+Validated+Rejected == Total.
type ValidationCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Validated int `json:"validated"`
	Rejected  int `json:"rejected"`
}

// Add folds count declarations carrying status into c.
func (c *ValidationCounts) Add(status ValidationStatus, count int) {
	switch status.Normalize() {
	case StatusValidated:
		c.Validated += count
	case StatusRejected:
		c.Rejected += count
	default:
		c.Pending += count
	}
	c.Total += count
}

type MunicipalityStats struct {
	Municipality string           `json:"municipality"`
	Statistics   ValidationCounts `json:"statistics"`
}

type GlobalStats struct {
	TotalBirths int `json:"totalBirths"`
	TotalDeaths int `json:"totalDeaths"`
	Total       int `json:"total"`
}

type HospitalBreakdown struct {
	HospitalID   uuid.UUID `json:"hospitalId"`
	HospitalName string    `json:"hospitalName"`
	TotalBirths  int       `json:"totalBirths"`
	TotalDeaths  int       `json:"totalDeaths"`
}

// HospitalCount is one grouped row of a per-hospital count query.
type HospitalCount struct {
	HospitalID   uuid.UUID
	HospitalName string
	Count        int
}

// StatisticsSnapshot is the archived daily roll-up.
type StatisticsSnapshot struct {
	Global      GlobalStats          `json:"global"`
	Validation  ValidationCounts     `json:"validation"`
	PerHospital []*HospitalBreakdown `json:"perHospital"`
}
