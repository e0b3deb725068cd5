// Package export writes enriched business records as JSON, CSV or XLSX.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"leadscout/internal/domain"
)

type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

const sheetName = "Businesses"

var header = []string{
	"name", "address", "phone", "sources", "business_type", "known_website",
	"has_website", "domain", "status", "evidence", "origin", "registrar",
	"registered_on", "probed", "discovered_at", "checked_at",
}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case JSON, CSV, XLSX:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q (want json, csv or xlsx)", s)
}

func Write(w io.Writer, f Format, recs []domain.BusinessRecord) error {
	switch f {
	case JSON:
		return writeJSON(w, recs)
	case CSV:
		return writeCSV(w, recs)
	case XLSX:
		return writeXLSX(w, recs)
	}
	return fmt.Errorf("unknown export format %q", f)
}

func writeJSON(w io.Writer, recs []domain.BusinessRecord) error {
	if recs == nil {
		recs = []domain.BusinessRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

func writeCSV(w io.Writer, recs []domain.BusinessRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range recs {
		if err := cw.Write(row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, recs []domain.BusinessRecord) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return err
	}
	if err := sw.SetRow("A1", cells(header)); err != nil {
		return err
	}
	for i, r := range recs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, cells(row(r))); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

func cells(vals []string) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func row(r domain.BusinessRecord) []string {
	srcs := make([]string, len(r.Sources))
	for i, s := range r.Sources {
		srcs[i] = string(s)
	}
	out := []string{
		r.Name, r.Address, r.Phone, strings.Join(srcs, ";"), r.BusinessType, r.KnownWebsite,
		"", "", "", "", "", "", "", "", stamp(r.DiscoveredAt), "",
	}
	if v := r.Verification; v != nil {
		out[6] = strconv.FormatBool(v.HasWebsite)
		out[7] = v.Domain
		out[8] = string(v.Status)
		out[9] = string(v.Evidence)
		out[10] = string(v.Origin)
		out[11] = v.Registrar
		out[12] = v.RegisteredOn
		out[13] = strconv.Itoa(v.Probed)
		out[15] = stamp(v.CheckedAt)
	}
	return out
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
