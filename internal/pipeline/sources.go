package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// Source is one external file's worth of raw organization records, in the
// permissive shape the standardizer accepts. Label doubles as the provenance
// tag carried into data_source.
type Source struct {
	Label   string
	Records []map[string]any
}

// LoadSources scans dir for JSON, CSV, XLSX, HTML and PDF files and parses
// each into raw records. Files are visited in sorted name order, which is
// the source-priority order for the run. Unreadable or unparseable files are
// skipped and counted, never fatal.
func LoadSources(dir string) ([]Source, int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0
	}

	sources := make([]Source, 0, len(entries))
	skipped := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		records, err := loadSourceFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Printf("skipping source %s: %v\n", name, err)
			skipped++
			continue
		}
		if records == nil {
			continue
		}
		sources = append(sources, Source{Label: name, Records: records})
	}
	return sources, skipped
}

func loadSourceFile(path string) ([]map[string]any, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return parseJSONSource(path)
	case ".csv":
		return parseCSVSource(path)
	case ".xlsx", ".xls":
		return parseXLSXSource(path)
	case ".html", ".htm":
		return parseHTMLSource(path)
	case ".pdf":
		return parsePDFSource(path)
	default:
		return nil, nil
	}
}

func parseJSONSource(path string) ([]map[string]any, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var list []map[string]any
	if err := json.Unmarshal(blob, &list); err == nil {
		return list, nil
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(blob, &wrapper); err != nil {
		return nil, err
	}
	for _, key := range []string{"organizations", "entries", "data"} {
		if raw, ok := wrapper[key]; ok {
			if err := json.Unmarshal(raw, &list); err != nil {
				return nil, err
			}
			return list, nil
		}
	}
	return nil, fmt.Errorf("no organization list in %s", filepath.Base(path))
}

func parseCSVSource(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, nil
	}

	headers := normalizeCells(rows[0])
	cols := inferColumns(headers)
	program := programFromFilename(path)

	out := make([]map[string]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := rowToRecord(normalizeCells(row), cols, program)
		if record != nil {
			out = append(out, record)
		}
	}
	return out, nil
}

func parseXLSXSource(path string) ([]map[string]any, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	program := programFromFilename(path)
	out := []map[string]any{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) < 2 {
			continue
		}
		cols := columnMap{name: -1}
		headerRow := -1
		for i := 0; i < len(rows) && i < 3; i++ {
			candidate := inferColumns(normalizeCells(rows[i]))
			if candidate.name >= 0 {
				cols = candidate
				headerRow = i
				break
			}
		}
		if headerRow < 0 {
			continue
		}
		for _, row := range rows[headerRow+1:] {
			record := rowToRecord(normalizeCells(row), cols, program)
			if record != nil {
				out = append(out, record)
			}
		}
	}
	return out, nil
}

func parseHTMLSource(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, err
	}

	program := programFromFilename(path)
	out := []map[string]any{}
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}

		headers := []string{}
		rows.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, normalizeSpaces(cell.Text()))
		})
		cols := inferColumns(headers)
		if cols.name < 0 {
			return
		}

		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cells := []string{}
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, normalizeSpaces(cell.Text()))
			})
			record := rowToRecord(cells, cols, program)
			if record != nil {
				out = append(out, record)
			}
		})
	})
	return out, nil
}

// certNoPattern matches accreditation-certificate identifiers in roster PDF
// lines, e.g. "MC-2742" or "TC-8812A".
var certNoPattern = regexp.MustCompile(`\b([A-Z]{1,4}-?\d{3,6}[A-Z]?)\b`)

// parsePDFSource handles roster PDFs: one organization per line, optionally
// carrying a certificate number and a trailing ", City" segment.
func parsePDFSource(path string) ([]map[string]any, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := pdf.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return nil, err
	}

	program := programFromFilename(path)
	out := []map[string]any{}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, line := range splitLines(text) {
			record := pdfLineToRecord(line, program)
			if record != nil {
				out = append(out, record)
			}
		}
	}
	return out, nil
}

func pdfLineToRecord(line, program string) map[string]any {
	certNo := ""
	if m := certNoPattern.FindStringSubmatch(line); m != nil {
		certNo = m[1]
		line = strings.Replace(line, m[1], "", 1)
	}
	line = normalizeSpaces(strings.Trim(line, " ,;"))
	if line == "" || !strings.ContainsAny(line, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		return nil
	}

	name := line
	city := ""
	if idx := strings.LastIndex(line, ","); idx > 0 {
		name = normalizeSpaces(line[:idx])
		city = normalizeSpaces(line[idx+1:])
	}
	if len(name) < 4 {
		return nil
	}

	record := map[string]any{"name": name}
	if city != "" {
		record["city"] = city
	}
	if program != "" {
		cert := map[string]any{"name": program}
		if certNo != "" {
			cert["accreditation_no"] = certNo
		}
		record["certifications"] = []any{cert}
	}
	return record
}

type columnMap struct {
	name, city, state, country int
	address, phone, website    int
	hospitalType               int
	cert, certNo               int
	validFrom, validUpto       int
}

func inferColumns(headers []string) columnMap {
	norm := make([]string, 0, len(headers))
	for _, h := range headers {
		norm = append(norm, strings.ToLower(h))
	}
	return columnMap{
		name:         findHeaderIndex(norm, []string{"name of hospital", "hospital name", "organization", "organisation", "laboratory", "name"}),
		city:         findHeaderIndex(norm, []string{"city", "town", "district"}),
		state:        findHeaderIndex(norm, []string{"state", "province", "region"}),
		country:      findHeaderIndex(norm, []string{"country", "nation"}),
		address:      findHeaderIndex(norm, []string{"address"}),
		phone:        findHeaderIndex(norm, []string{"phone", "telephone", "contact"}),
		website:      findHeaderIndex(norm, []string{"website", "url"}),
		hospitalType: findHeaderIndex(norm, []string{"hospital type", "facility type", "category"}),
		cert:         findHeaderIndex(norm, []string{"certification", "accreditation type", "accreditation program", "scheme"}),
		certNo:       findHeaderIndex(norm, []string{"accreditation no", "certificate no", "certificate number", "acc no", "reference no"}),
		validFrom:    findHeaderIndex(norm, []string{"valid from", "issue date", "accreditation date"}),
		validUpto:    findHeaderIndex(norm, []string{"valid upto", "valid until", "expiry"}),
	}
}

// rowToRecord maps one tabular row onto the permissive raw-record shape. A
// certification is attached only when the row itself asserts one: an explicit
// certification column, or a certificate number in a roster whose filename
// names the program.
func rowToRecord(cells []string, cols columnMap, program string) map[string]any {
	name := pickCell(cells, cols.name)
	if name == "" {
		return nil
	}

	record := map[string]any{"name": name}
	setIfPresent(record, "city", cells, cols.city)
	setIfPresent(record, "state", cells, cols.state)
	setIfPresent(record, "country", cells, cols.country)
	setIfPresent(record, "address", cells, cols.address)
	setIfPresent(record, "phone", cells, cols.phone)
	setIfPresent(record, "website", cells, cols.website)
	setIfPresent(record, "hospital_type", cells, cols.hospitalType)

	certName := pickCell(cells, cols.cert)
	certNo := pickCell(cells, cols.certNo)
	if certName == "" && certNo != "" {
		certName = program
	}
	if certName != "" {
		cert := map[string]any{"name": certName}
		if certNo != "" {
			cert["accreditation_no"] = certNo
		}
		if v := pickCell(cells, cols.validFrom); v != "" {
			cert["accreditation_date"] = v
		}
		if v := pickCell(cells, cols.validUpto); v != "" {
			cert["expiry_date"] = v
		}
		record["certifications"] = []any{cert}
	}
	return record
}

// programFromFilename recognizes which accreditation program a roster file
// covers, e.g. nabh_hospitals.xlsx or nabl_labs.pdf.
func programFromFilename(path string) string {
	base := strings.ToLower(filepath.Base(path))
	for _, program := range []string{"jci", "nabh", "nabl", "cap"} {
		if strings.Contains(base, program) {
			return strings.ToUpper(program)
		}
	}
	return ""
}

func setIfPresent(record map[string]any, key string, cells []string, idx int) {
	if v := pickCell(cells, idx); v != "" {
		record[key] = v
	}
}

func pickCell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func findHeaderIndex(headers []string, probes []string) int {
	for _, probe := range probes {
		for i, h := range headers {
			if strings.Contains(h, probe) {
				return i
			}
		}
	}
	return -1
}

func normalizeCells(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		out = append(out, normalizeSpaces(c))
	}
	return out
}

var reWhitespace = regexp.MustCompile(`\s+`)

func normalizeSpaces(input string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(input, " "))
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
