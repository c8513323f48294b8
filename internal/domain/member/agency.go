package member

import (
	"math"
	"slices"
	"strings"
)

// Criteria combines a FilterKind with an optional agency.
// An empty Agency matches every agency; otherwise agencies compare trimmed and case-insensitively.
type Criteria struct {
	Kind   FilterKind
	Agency string
}

func (c Criteria) Matches(m Member) bool {
	kind := c.Kind
	if kind == "" {
		kind = FilterAll
	}
	if !kind.Matches(m) {
		return false
	}
	agency := strings.TrimSpace(c.Agency)
	return agency == "" || strings.EqualFold(agency, strings.TrimSpace(m.Agency))
}

// AgencyStats are the delivery counts of one agency.
type AgencyStats struct {
	Agency       string  `json:"agency"`
	Total        int     `json:"total"`
	Delivered    int     `json:"delivered"`
	Pending      int     `json:"pending"`
	DeliveredPct float64 `json:"delivered_pct"` // rounded to one decimal
}

// TallyByAgency groups the records by agency, sorted by agency name.
func TallyByAgency(members []Member) []AgencyStats {
	byAgency := make(map[string]*AgencyStats)
	for _, m := range members {
		a, ok := byAgency[m.Agency]
		if !ok {
			a = &AgencyStats{Agency: m.Agency}
			byAgency[m.Agency] = a
		}
		a.Total++
		if m.IsDelivered() {
			a.Delivered++
		}
	}

	out := make([]AgencyStats, 0, len(byAgency))
	for _, a := range byAgency {
		a.Pending = a.Total - a.Delivered
		a.DeliveredPct = math.Round(float64(a.Delivered)*1000/float64(a.Total)) / 10
		out = append(out, *a)
	}
	slices.SortFunc(out, func(x, y AgencyStats) int { return strings.Compare(x.Agency, y.Agency) })
	return out
}
