package domain

import (
	"strings"
	"time"
)

// Severity is the ordered damage severity scale: Low < Medium < High < Critical.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Severities is the closed severity set in ascending order.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Rank returns the 1-based position of s on the severity scale, or 0 when s is unknown.
func (s Severity) Rank() int {
	for i, v := range Severities {
		if v == s {
			return i + 1
		}
	}
	return 0
}

func (s Severity) Valid() bool { return s.Rank() > 0 }

// Less reports whether s is strictly less severe than other.
func (s Severity) Less(other Severity) bool { return s.Rank() < other.Rank() }

// ParseSeverity matches a severity name case-insensitively.
func ParseSeverity(v string) (Severity, bool) {
	for _, s := range Severities {
		if strings.EqualFold(string(s), strings.TrimSpace(v)) {
			return s, true
		}
	}
	return "", false
}

// DamageStatus is the repair state of a report.
type DamageStatus string

const (
	StatusPending    DamageStatus = "Pending"
	StatusInProgress DamageStatus = "In Progress"
	StatusCompleted  DamageStatus = "Completed"
)

var Statuses = []DamageStatus{StatusPending, StatusInProgress, StatusCompleted}

func (s DamageStatus) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// ParseStatus matches a status name case-insensitively.
func ParseStatus(v string) (DamageStatus, bool) {
	for _, s := range Statuses {
		if strings.EqualFold(string(s), strings.TrimSpace(v)) {
			return s, true
		}
	}
	return "", false
}

// Coordinates represents a geographic point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the point lies within WGS84 bounds.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// DamageReport is a single observed road defect.
type DamageReport struct {
	ID           int64        `json:"id"`
	Type         string       `json:"type"`
	Severity     Severity     `json:"severity"`
	Location     string       `json:"location"`
	Coordinates  Coordinates  `json:"coordinates"`
	Description  string       `json:"description"`
	ReportedDate time.Time    `json:"reported_date"`
	Status       DamageStatus `json:"status"`
}

// Sort keys accepted by DamageFilter.
const (
	SortReportedDate = "reported_date"
	SortSeverity     = "severity"
)

// DamageFilter narrows and orders a damage listing. Zero values mean "no filter".
type DamageFilter struct {
	Severity Severity
	Status   DamageStatus
	Type     string
	Search   string    // case-insensitive substring of Location
	From     time.Time // inclusive
	Until    time.Time // exclusive
	SortBy   string
	Asc      bool
}

// DamageCounts aggregates the damage collection for the dashboard.
type DamageCounts struct {
	Total           int64
	BySeverity      map[Severity]int64
	ByStatus        map[DamageStatus]int64
	PendingCritical int64
}

// DashboardStats is the payload of the dashboard summary.
type DashboardStats struct {
	TotalDamages    int64                  `json:"totalDamages"`
	TotalUsers      int64                  `json:"totalUsers"`
	BySeverity      map[Severity]int64     `json:"bySeverity"`
	ByStatus        map[DamageStatus]int64 `json:"byStatus"`
	PendingCritical int64                  `json:"pendingCritical"`
	LastUpdated     time.Time              `json:"lastUpdated"`
}
