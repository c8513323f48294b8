// internal/infra/importer/importer.go
package importer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gift_delivery_bot/internal/app"

	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFormat = errors.New("unsupported file format, expected .csv or .xlsx")

const utf8BOM = "\ufeff"

// ReadFile loads a roster file from disk.
func ReadFile(path string) (app.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return app.Source{}, fmt.Errorf("failed to open roster file: %w", err)
	}
	defer f.Close()
	return Read(filepath.Base(path), f)
}

// Read parses r according to the extension of name.
func Read(name string, r io.Reader) (app.Source, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt":
		return ReadCSV(r)
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	}
	return app.Source{}, ErrUnsupportedFormat
}

// ReadCSV parses delimited text with a header row. Comma and semicolon separators are
// detected from the header line, and a leading UTF-8 byte order mark is dropped.
func ReadCSV(r io.Reader) (app.Source, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return app.Source{}, fmt.Errorf("failed to read csv: %w", err)
	}
	headerLine := string(first)
	if i := strings.IndexByte(headerLine, '\n'); i >= 0 {
		headerLine = headerLine[:i]
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	if strings.Count(headerLine, ";") > strings.Count(headerLine, ",") {
		cr.Comma = ';'
	}

	records, err := cr.ReadAll()
	if err != nil {
		return app.Source{}, fmt.Errorf("failed to parse csv: %w", err)
	}
	return fromRecords(records)
}

// ReadXLSX parses the first sheet of a spreadsheet workbook; its first row is the header.
func ReadXLSX(r io.Reader) (app.Source, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return app.Source{}, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return app.Source{}, errors.New("spreadsheet has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return app.Source{}, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return fromRecords(records)
}

func fromRecords(records [][]string) (app.Source, error) {
	if len(records) == 0 {
		return app.Source{}, errors.New("file is empty, a header row is required")
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		header[i] = strings.ToUpper(strings.TrimSpace(h))
	}

	src := app.Source{Columns: header}
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			if i < len(rec) {
				row[h] = strings.TrimSpace(rec[i])
			} else {
				row[h] = ""
			}
		}
		src.Rows = append(src.Rows, row)
	}
	return src, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
