// internal/infra/export/csv.go
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"gift_delivery_bot/internal/app"
	"gift_delivery_bot/internal/domain/member"
)

// csvHeader lists every member field; the layout is accepted back by the importer.
var csvHeader = []string{
	"ID",
	string(app.ColCedula),
	string(app.ColNameFirst),
	string(app.ColNameSecond),
	string(app.ColSurnameFirst),
	string(app.ColSurnameSecond),
	string(app.ColAgency),
	string(app.ColCompany),
	string(app.ColNotes),
	string(app.ColStatus),
	string(app.ColDeliveredAt),
	string(app.ColDeliveredBy),
}

// WriteCSV writes a header row and one row per member, prefixed with a UTF-8 BOM so that
// spreadsheet programs detect the encoding.
func WriteCSV(w io.Writer, members []member.Member) error {
	if _, err := io.WriteString(w, "\ufeff"); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, m := range members {
		rec := []string{
			strconv.FormatInt(m.ID, 10),
			m.Cedula,
			m.NameFirst,
			m.NameSecond,
			m.SurnameFirst,
			m.SurnameSecond,
			m.Agency,
			m.Company,
			m.Notes,
			string(m.Status),
			m.DeliveredAtString(),
			m.DeliveredBy,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write csv row for member %d: %w", m.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
