package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"quxat/internal"
)

// ExportOrganizationsToXLSX flattens the merged catalog to a spreadsheet,
// one row per organization with a summarized certification column.
func ExportOrganizationsToXLSX(orgs []internal.Organization, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"name", "city", "state", "country", "hospital_type",
		"phone", "website", "data_source",
		"certifications", "jci_accredited", "nabh_accredited", "nabl_accredited",
		"cap_accredited", "international_accreditation", "nabl_score", "last_updated",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, org := range orgs {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, org.Name)
		set(2, org.City)
		set(3, org.State)
		set(4, org.Country)
		set(5, org.HospitalType)
		set(6, org.Phone)
		set(7, org.Website)
		set(8, org.DataSource)
		set(9, summarizeCertifications(org.Certifications))
		set(10, indicatorBool(org, "jci_accredited"))
		set(11, indicatorBool(org, "nabh_accredited"))
		set(12, indicatorBool(org, "nabl_accredited"))
		set(13, indicatorBool(org, "cap_accredited"))
		set(14, indicatorBool(org, "international_accreditation"))
		set(15, indicatorNumber(org, "nabl_score"))
		set(16, org.LastUpdated)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func summarizeCertifications(certs []internal.Certification) string {
	parts := make([]string, 0, len(certs))
	for _, c := range certs {
		label := c.Name
		if c.AccreditationNo != "" {
			label += " (" + c.AccreditationNo + ")"
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, "; ")
}

func indicatorBool(org internal.Organization, key string) bool {
	v, _ := org.QualityIndicators[key].(bool)
	return v
}

func indicatorNumber(org internal.Organization, key string) any {
	if v, ok := org.QualityIndicators[key].(float64); ok {
		return v
	}
	return ""
}
