// internal/domain/member/status.go
package member

import (
	"fmt"
	"strings"
)

// Status is the delivery state of a member's gift.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusDelivered Status = "DELIVERED"
)

// ParseStatus accepts the English labels and the legacy spreadsheet labels, case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PENDING", "PENDIENTE":
		return StatusPending, nil
	case "DELIVERED", "ENTREGADO":
		return StatusDelivered, nil
	}
	return "", &ValidationError{Fields: []string{string(FieldStatus)}, Message: fmt.Sprintf("invalid status %q", s)}
}

// Field names a member attribute that can be supplied in an edit.
type Field string

const (
	FieldCedula        Field = "cedula"
	FieldNameFirst     Field = "name_first"
	FieldNameSecond    Field = "name_second"
	FieldSurnameFirst  Field = "surname_first"
	FieldSurnameSecond Field = "surname_second"
	FieldAgency        Field = "agency"
	FieldCompany       Field = "company"
	FieldNotes         Field = "notes"
	FieldStatus        Field = "status"
	FieldDeliveredAt   Field = "delivered_at"
	FieldDeliveredBy   Field = "delivered_by"
)

// FilterKind selects a subset of the roster.
type FilterKind string

const (
	FilterAll          FilterKind = "ALL"
	FilterDelivered    FilterKind = "DELIVERED"
	FilterPending      FilterKind = "PENDING"
	FilterWithNotes    FilterKind = "WITH_NOTES"
	FilterWithoutNotes FilterKind = "WITHOUT_NOTES"
)

// ParseFilterKind maps user input ("all", "delivered", "pending", "notes", "with_notes",
// "no_notes", "without_notes") to a FilterKind.
// An empty string selects FilterAll.
func ParseFilterKind(s string) (FilterKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ALL":
		return FilterAll, nil
	case "DELIVERED":
		return FilterDelivered, nil
	case "PENDING":
		return FilterPending, nil
	case "WITH_NOTES", "NOTES":
		return FilterWithNotes, nil
	case "WITHOUT_NOTES", "NO_NOTES":
		return FilterWithoutNotes, nil
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// Matches reports whether m belongs to the subset selected by k.
func (k FilterKind) Matches(m Member) bool {
	switch k {
	case FilterAll:
		return true
	case FilterDelivered:
		return m.Status == StatusDelivered
	case FilterPending:
		return m.Status != StatusDelivered
	case FilterWithNotes:
		return m.HasNotes()
	case FilterWithoutNotes:
		return !m.HasNotes()
	}
	return false
}
