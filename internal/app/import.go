// internal/app/import.go
package app

import (
	"strings"

	"gift_delivery_bot/internal/domain/member"
)

// Column is the canonical name of an importable roster column.
type Column string

const (
	ColCedula        Column = "CEDULA"
	ColNameFirst     Column = "NAME 1"
	ColNameSecond    Column = "NAME 2"
	ColSurnameFirst  Column = "SURNAME 1"
	ColSurnameSecond Column = "SURNAME 2"
	ColAgency        Column = "AGENCY"
	ColCompany       Column = "COMPANY"
	ColNotes         Column = "NOTES"
	ColStatus        Column = "STATUS"
	ColDeliveredAt   Column = "DELIVERED AT"
	ColDeliveredBy   Column = "DELIVERED BY"
)

// RequiredColumns must all be present in an import source header.
var RequiredColumns = []Column{ColCedula, ColNameFirst, ColSurnameFirst, ColSurnameSecond, ColNameSecond, ColAgency, ColCompany}

// ColumnMap maps canonical columns to the header names used by a particular source.
type ColumnMap map[Column]string

// DefaultColumns is the header layout written by the CSV exporter.
var DefaultColumns = ColumnMap{
	ColCedula:        "CEDULA",
	ColNameFirst:     "NAME 1",
	ColNameSecond:    "NAME 2",
	ColSurnameFirst:  "SURNAME 1",
	ColSurnameSecond: "SURNAME 2",
	ColAgency:        "AGENCY",
	ColCompany:       "COMPANY",
	ColNotes:         "NOTES",
	ColStatus:        "STATUS",
	ColDeliveredAt:   "DELIVERED AT",
	ColDeliveredBy:   "DELIVERED BY",
}

// SpanishColumns is the header layout of the cooperative's legacy spreadsheets.
var SpanishColumns = ColumnMap{
	ColCedula:        "CEDULA",
	ColNameFirst:     "NOMBRE 1",
	ColNameSecond:    "NOMBRE 2",
	ColSurnameFirst:  "APELLIDO 1",
	ColSurnameSecond: "APELLIDO 2",
	ColAgency:        "AGENCIA",
	ColCompany:       "EMPRESA",
	ColNotes:         "OBSERVACIONES",
	ColStatus:        "ESTADO",
	ColDeliveredAt:   "FECHA_ENTREGA",
	ColDeliveredBy:   "USUARIO_ENTREGA",
}

// Source is a parsed tabular import: the header row and one map per data row keyed by header.
type Source struct {
	Columns []string
	Rows    []map[string]string
}

// DetectColumns returns the column map whose required headers best match the given header.
// Ties and headers that match neither fall back to DefaultColumns, so that the schema
// check reports what is missing in the default layout.
func DetectColumns(header []string) ColumnMap {
	if countPresent(SpanishColumns, header) > countPresent(DefaultColumns, header) {
		return SpanishColumns
	}
	return DefaultColumns
}

func countPresent(cols ColumnMap, header []string) int {
	idx := headerIndex(header)
	n := 0
	for _, c := range RequiredColumns {
		if _, ok := idx[normalizeHeader(cols[c])]; ok {
			n++
		}
	}
	return n
}

func normalizeHeader(h string) string {
	return strings.ToUpper(strings.TrimSpace(h))
}

// headerIndex maps normalized header names to the header string used as the row key.
func headerIndex(header []string) map[string]string {
	idx := make(map[string]string, len(header))
	for _, h := range header {
		idx[normalizeHeader(h)] = h
	}
	return idx
}

// resolveColumns maps each canonical column to the source header carrying it.
// Missing required columns are reported as a SchemaError.
func resolveColumns(src Source, cols ColumnMap) (map[Column]string, error) {
	idx := headerIndex(src.Columns)
	resolved := make(map[Column]string, len(cols))
	var missing []string
	for _, c := range RequiredColumns {
		name, ok := cols[c]
		if !ok {
			name = string(c)
		}
		h, ok := idx[normalizeHeader(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		resolved[c] = h
	}
	if len(missing) > 0 {
		return nil, &member.SchemaError{Missing: missing}
	}
	for _, c := range []Column{ColNotes, ColStatus, ColDeliveredAt, ColDeliveredBy} {
		if name, ok := cols[c]; ok {
			if h, ok := idx[normalizeHeader(name)]; ok {
				resolved[c] = h
			}
		}
	}
	return resolved, nil
}

// memberFromRow converts one raw row into a Member and validates it.
func memberFromRow(row map[string]string, cols map[Column]string) (member.Member, error) {
	get := func(c Column) string {
		h, ok := cols[c]
		if !ok {
			return ""
		}
		return strings.TrimSpace(row[h])
	}

	m := member.Member{
		Cedula:        get(ColCedula),
		NameFirst:     get(ColNameFirst),
		NameSecond:    get(ColNameSecond),
		SurnameFirst:  get(ColSurnameFirst),
		SurnameSecond: get(ColSurnameSecond),
		Agency:        get(ColAgency),
		Company:       get(ColCompany),
		Notes:         get(ColNotes),
		Status:        member.StatusPending,
		DeliveredBy:   get(ColDeliveredBy),
	}

	if raw := get(ColStatus); raw != "" {
		st, err := member.ParseStatus(raw)
		if err != nil {
			return m, err
		}
		m.Status = st
	}
	if raw := get(ColDeliveredAt); raw != "" {
		at, err := member.ParseTimestamp(raw)
		if err != nil {
			return m, err
		}
		m.DeliveredAt = &at
	}

	return m, m.Validate()
}

// RejectedRow describes an import row that was not committed.
type RejectedRow struct {
	Row    int // 1-based line number in the source, header is line 1
	Cedula string
	Err    error
}

// Reason is the error kind that caused the rejection.
func (r RejectedRow) Reason() string {
	if k := member.Kind(r.Err); k != "" {
		return k
	}
	return "Error"
}

// ImportResult summarizes an import run.
type ImportResult struct {
	Total    int
	Imported int
	Rejected []RejectedRow
}
