// internal/domain/member/member.go
package member

import (
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the display and interchange format for delivery timestamps.
const TimeLayout = "2006-01-02 15:04"

// Member represents one cooperative member eligible for a gift.
type Member struct {
	ID            int64
	Cedula        string // National ID, unique per roster
	NameFirst     string
	NameSecond    string
	SurnameFirst  string
	SurnameSecond string
	Agency        string
	Company       string
	Notes         string // Non-empty means the record carries a novelty
	Status        Status
	DeliveredAt   *time.Time // Set only while Status == StatusDelivered
	DeliveredBy   string
}

// FullName joins the non-empty name parts with single spaces.
func (m Member) FullName() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{m.NameFirst, m.NameSecond, m.SurnameFirst, m.SurnameSecond} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// SearchText is the text matched by roster searches: all four name parts joined by a single space.
func (m Member) SearchText() string {
	return m.NameFirst + " " + m.NameSecond + " " + m.SurnameFirst + " " + m.SurnameSecond
}

// HasNotes reports whether the record carries a novelty.
func (m Member) HasNotes() bool {
	return strings.TrimSpace(m.Notes) != ""
}

// IsDelivered reports whether the gift was handed over.
func (m Member) IsDelivered() bool {
	return m.Status == StatusDelivered
}

// DeliveredAtString formats DeliveredAt with TimeLayout, or returns "" when unset.
func (m Member) DeliveredAtString() string {
	if m.DeliveredAt == nil {
		return ""
	}
	return m.DeliveredAt.Format(TimeLayout)
}

// MarkDelivered applies the PENDING -> DELIVERED transition.
func (m *Member) MarkDelivered(actor string, at time.Time) error {
	if m.Status == StatusDelivered {
		return ErrAlreadyDelivered
	}
	m.Status = StatusDelivered
	m.DeliveredAt = &at
	m.DeliveredBy = strings.TrimSpace(actor)
	return nil
}

// ResetDelivery returns the record to PENDING and clears the delivery stamp.
func (m *Member) ResetDelivery() {
	m.Status = StatusPending
	m.DeliveredAt = nil
	m.DeliveredBy = ""
}

// Validate checks the required fields and the delivery stamp invariant.
func (m Member) Validate() error {
	var missing []string
	required := []struct {
		field Field
		value string
	}{
		{FieldCedula, m.Cedula},
		{FieldNameFirst, m.NameFirst},
		{FieldSurnameFirst, m.SurnameFirst},
		{FieldAgency, m.Agency},
		{FieldCompany, m.Company},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, string(r.field))
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing, Message: "required fields are empty"}
	}

	switch m.Status {
	case StatusPending:
		if m.DeliveredAt != nil || m.DeliveredBy != "" {
			return &ValidationError{
				Fields:  []string{string(FieldDeliveredAt), string(FieldDeliveredBy)},
				Message: "delivery stamp must be empty while status is PENDING",
			}
		}
	case StatusDelivered:
		if m.DeliveredAt == nil {
			return &ValidationError{
				Fields:  []string{string(FieldDeliveredAt)},
				Message: "delivered_at is required when status is DELIVERED",
			}
		}
	default:
		return &ValidationError{Fields: []string{string(FieldStatus)}, Message: "unknown status " + string(m.Status)}
	}
	return nil
}

// Statistics are aggregate counts over a roster.
type Statistics struct {
	Total     int `json:"total"`
	Delivered int `json:"delivered"`
	Pending   int `json:"pending"`
	WithNotes int `json:"with_notes"`
}

// Tally computes Statistics for the given records.
func Tally(members []Member) Statistics {
	var s Statistics
	for _, m := range members {
		s.Total++
		if m.IsDelivered() {
			s.Delivered++
		}
		if m.HasNotes() {
			s.WithNotes++
		}
	}
	s.Pending = s.Total - s.Delivered
	return s
}

var timestampLayouts = []string{TimeLayout, "2006-01-02 15:04:05", "2006-01-02", time.RFC3339, "02/01/2006 15:04", "02/01/2006"}

// ParseTimestamp parses a delivery timestamp in any of the accepted layouts, in local time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ValidationError{Fields: []string{string(FieldDeliveredAt)}, Message: fmt.Sprintf("invalid timestamp %q", s)}
}
