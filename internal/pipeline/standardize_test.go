package pipeline

import (
	"testing"

	"quxat/internal"
)

func TestClassifyCertification(t *testing.T) {
	s := NewStandardizer()
	cases := []struct {
		input string
		want  string
	}{
		{input: "Joint Commission International (JCI)", want: internal.CertJCI},
		{input: "JCI Accreditation", want: internal.CertJCI},
		{input: "NABH Entry Level", want: internal.CertNABH},
		{input: "National Accreditation Board for Testing and Calibration Laboratories (NABL)", want: internal.CertNABL},
		{input: "CAP Accreditation", want: internal.CertCAP},
		{input: "College of American Pathologists CAP 15189", want: internal.CertCAP},
		{input: "ISO 9001:2015", want: internal.CertISO9001},
		{input: "ISO 15189 Medical Laboratories", want: internal.CertISO15189},
		{input: "ISO 13485", want: internal.CertISO13485},
		{input: "ISO certified", want: internal.CertISOOther},
		{input: "Accreditation Canada Qmentum", want: "ACCREDITATION_CANADA"},
		{input: "Care Quality Commission", want: "CQC_UK"},
		{input: "Some Local Award", want: internal.CertOther},
		{input: "Peer Comparison Program", want: internal.CertOther},
		{input: "Isolation Ward Excellence", want: internal.CertOther},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			if got := s.ClassifyCertification(tc.input); got != tc.want {
				t.Fatalf("ClassifyCertification(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestStandardizeFieldPriority(t *testing.T) {
	s := NewStandardizer()
	org, skipped, err := s.Standardize(map[string]any{
		"hospital_name": "Apollo Hospitals Chennai",
		"town":          "Chennai",
		"region":        "Tamil Nadu",
		"nation":        "India",
		"type":          "Multi-specialty",
		"unknown_field": 42,
	}, "nabh_portal.json")
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 0 {
		t.Fatalf("skipped=%d", skipped)
	}
	if org.Name != "Apollo Hospitals Chennai" || org.OriginalName != org.Name {
		t.Fatalf("name=%q original=%q", org.Name, org.OriginalName)
	}
	if org.City != "Chennai" || org.State != "Tamil Nadu" || org.Country != "India" {
		t.Fatalf("location bad: %+v", org)
	}
	if org.HospitalType != "Multi-specialty" {
		t.Fatalf("hospital_type=%q", org.HospitalType)
	}
	if org.DataSource != "nabh_portal.json" {
		t.Fatalf("data_source=%q", org.DataSource)
	}
}

func TestStandardizeCertificationShapes(t *testing.T) {
	s := NewStandardizer()
	org, skipped, err := s.Standardize(map[string]any{
		"name": "Apex Diagnostics",
		"certifications": []any{
			"NABL",
			map[string]any{
				"name":               "NABH",
				"certificate_number": "H-2019-0042",
				"valid_upto":         "2027-03-01",
				"score_impact":       "15.0",
			},
			map[string]any{"status": "Active"}, // no name: malformed
			7,                                  // not a certification at all
		},
	}, "test.json")
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 2 {
		t.Fatalf("skipped=%d", skipped)
	}
	if len(org.Certifications) != 2 {
		t.Fatalf("len=%d", len(org.Certifications))
	}

	nabl := org.Certifications[0]
	if nabl.Type != internal.CertNABL || nabl.Status != "Unknown" || nabl.Validated {
		t.Fatalf("string cert bad: %+v", nabl)
	}

	nabh := org.Certifications[1]
	if nabh.Type != internal.CertNABH {
		t.Fatalf("type=%q", nabh.Type)
	}
	if nabh.AccreditationNo != "H-2019-0042" || nabh.ExpiryDate != "2027-03-01" {
		t.Fatalf("fields bad: %+v", nabh)
	}
	if nabh.ScoreImpact != 15.0 {
		t.Fatalf("score_impact=%v", nabh.ScoreImpact)
	}
	if nabh.Validated {
		t.Fatal("standardizer must never mark a certification validated")
	}
}

func TestStandardizeDisplayTypeReclassified(t *testing.T) {
	s := NewStandardizer()
	org, _, err := s.Standardize(map[string]any{
		"name":           "Apollo Hospitals Chennai",
		"certifications": []any{map[string]any{"name": "JCI", "type": "JCI Accreditation"}},
	}, "legacy.json")
	if err != nil {
		t.Fatal(err)
	}
	if org.Certifications[0].Type != internal.CertJCI {
		t.Fatalf("type=%q", org.Certifications[0].Type)
	}
}

func TestNormalizeCertificationTypes(t *testing.T) {
	s := NewStandardizer()
	certs := []internal.Certification{
		{Name: "JCI Accreditation"},
		{Name: "NABL", Type: "nabl accreditation"},
		{Name: "CAP Accreditation", Type: internal.CertCAP},
	}

	s.NormalizeCertificationTypes(certs)

	if certs[0].Type != internal.CertJCI {
		t.Fatalf("untyped cert: %+v", certs[0])
	}
	if certs[1].Type != internal.CertNABL {
		t.Fatalf("display-text type: %+v", certs[1])
	}
	if certs[2].Type != internal.CertCAP {
		t.Fatalf("proper code must be untouched: %+v", certs[2])
	}
}

func TestStandardizeRejectsNamelessRecord(t *testing.T) {
	s := NewStandardizer()
	if _, _, err := s.Standardize(map[string]any{"city": "Pune"}, "x.json"); err == nil {
		t.Fatal("expected error")
	}
}
