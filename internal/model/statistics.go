package model

// DailyChecks counts license checks per calendar day.
type DailyChecks struct {
	Date   string `json:"date"`
	Checks int64  `json:"checks"`
	Valid  int64  `json:"valid"`
}

// LicenseStatistics summarises the key and user tables for the admin panel.
type LicenseStatistics struct {
	TotalLicenses     int64         `json:"total_licenses"`
	ActiveLicenses    int64         `json:"active_licenses"`
	BannedLicenses    int64         `json:"banned_licenses"`
	ExpiredLicenses   int64         `json:"expired_licenses"`
	ExhaustedLicenses int64         `json:"exhausted_licenses"`
	LifetimeLicenses  int64         `json:"lifetime_licenses"`
	TotalUsers        int64         `json:"total_users"`
	BannedUsers       int64         `json:"banned_users"`
	TotalChecks       int64         `json:"total_checks"`
	ChecksByDay       []DailyChecks `json:"checks_by_day"`
}

// ValidCheckRate is the share of recorded checks that passed.
func (s *LicenseStatistics) ValidCheckRate() float64 {
	if s.TotalChecks == 0 {
		return 0
	}
	var valid int64
	for _, d := range s.ChecksByDay {
		valid += d.Valid
	}
	return float64(valid) / float64(s.TotalChecks)
}
