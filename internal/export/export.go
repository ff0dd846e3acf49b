// Package export writes lead records as CSV, JSON or an Excel workbook.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/rendis/leadtap/internal/model"
)

type Format string

const (
	CSV  Format = "csv"
	JSON Format = "json"
	XLSX Format = "xlsx"
)

// Sheet is the worksheet leads are written to.
const Sheet = "Sheet1"

// utf8BOM lets spreadsheet applications detect the encoding of CSV files
// that carry Japanese text.
const utf8BOM = "\ufeff"

var header = []string{
	"industry", "company_name", "website_url", "phone", "contact_form",
	"social_links", "catalog", "address", "remarks", "collected_date",
	"maps_url", "lat", "lng",
}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, JSON, XLSX:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format: %s (csv, json or xlsx)", s)
}

// WriteCSV writes a header and one row per lead.
func WriteCSV(w io.Writer, leads []model.LeadRecord) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, l := range leads {
		if err := cw.Write(row(l)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func row(l model.LeadRecord) []string {
	var lat, lng string
	if l.Lat != 0 || l.Lng != 0 {
		lat = strconv.FormatFloat(l.Lat, 'f', 6, 64)
		lng = strconv.FormatFloat(l.Lng, 'f', 6, 64)
	}
	return []string{
		l.Industry,
		l.CompanyName,
		l.WebsiteURL,
		l.Phone,
		l.ContactForm,
		l.SocialLinks,
		l.Catalog,
		l.Address,
		l.Remarks,
		l.CollectedDate(),
		l.MapsURL,
		lat,
		lng,
	}
}

// WriteJSON writes leads as an indented JSON array.
func WriteJSON(w io.Writer, leads []model.LeadRecord) error {
	if leads == nil {
		leads = []model.LeadRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(leads)
}

// WriteXLSX writes a workbook with the CSV header and column order.
// Coordinates are numeric cells; everything else is text.
func WriteXLSX(w io.Writer, leads []model.LeadRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow(Sheet, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(Sheet, "A1", last, bold); err != nil {
		return err
	}

	for i, l := range leads {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := xlsxRow(l)
		if err := f.SetSheetRow(Sheet, cell, &values); err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
	}
	if err := f.SetPanes(Sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	return f.Write(w)
}

func xlsxRow(l model.LeadRecord) []any {
	cells := row(l)
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = c
	}
	if l.Lat != 0 || l.Lng != 0 {
		out[len(out)-2] = l.Lat
		out[len(out)-1] = l.Lng
	}
	return out
}

// Write dispatches on format.
func Write(w io.Writer, f Format, leads []model.LeadRecord) error {
	switch f {
	case CSV:
		return WriteCSV(w, leads)
	case JSON:
		return WriteJSON(w, leads)
	case XLSX:
		return WriteXLSX(w, leads)
	}
	return fmt.Errorf("unsupported format: %s", f)
}

// DefaultPath places the export next to the database, e.g. leads.db -> leads.csv.
func DefaultPath(dbPath string, f Format) string {
	dir := filepath.Dir(dbPath)
	base := strings.TrimSuffix(filepath.Base(dbPath), filepath.Ext(dbPath))
	return filepath.Join(dir, base+"."+string(f))
}

// ToFile creates path and writes leads into it.
func ToFile(path string, f Format, leads []model.LeadRecord) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	if err := Write(out, f, leads); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", f, err)
	}
	return out.Close()
}
