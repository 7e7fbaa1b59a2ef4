package pipeline

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"quxat/internal"
	"quxat/internal/util"
)

// classifierRule maps keyword probes onto a certification type code. Rules
// are checked in order; the first rule whose probe groups all hit wins. Each
// inner slice is an OR-group, the outer slice is an AND of groups.
type classifierRule struct {
	certType string
	probes   [][]string
}

var defaultClassifierRules = []classifierRule{
	{certType: internal.CertJCI, probes: [][]string{{"joint commission", "jci"}}},
	{certType: internal.CertNABL, probes: [][]string{{"nabl"}}},
	{certType: internal.CertNABH, probes: [][]string{{"nabh"}}},
	{certType: internal.CertCAP, probes: [][]string{{"cap"}, {"college of american pathologists", "accreditation"}}},
	{certType: "JCQHC_JAPAN", probes: [][]string{{"jcqhc", "japan council for quality"}}},
	{certType: "DNV", probes: [][]string{{"dnv"}}},
	{certType: "ACCREDITATION_CANADA", probes: [][]string{{"accreditation canada"}}},
	{certType: "CQC_UK", probes: [][]string{{"cqc", "care quality commission"}}},
	{certType: "ACHS_AUSTRALIA", probes: [][]string{{"achs", "australian council on healthcare standards"}}},
	{certType: "CBAHI_SAUDI", probes: [][]string{{"cbahi"}}},
	{certType: "HAAD_UAE", probes: [][]string{{"haad", "department of health abu dhabi"}}},
	{certType: "COHSASA_AFRICA", probes: [][]string{{"cohsasa"}}},
}

var (
	// "iso" as its own word, so "comparison" or "isolation" never take the
	// ISO branch.
	reISOWord   = regexp.MustCompile(`\biso\b`)
	reISODigits = regexp.MustCompile(`\b(\d{4,5})\b`)
)

// Standardizer maps the permissive raw record shape emitted by source
// adapters into the canonical Organization. It is pure and stateless: no
// validation happens here, every incoming certification starts unvalidated.
type Standardizer struct {
	rules []classifierRule
}

func NewStandardizer() *Standardizer {
	return &Standardizer{rules: defaultClassifierRules}
}

// ClassifyCertification derives the normalized type code from a raw
// certifying-body or program name.
func (s *Standardizer) ClassifyCertification(name string) string {
	n := strings.ToLower(name)
	if reISOWord.MatchString(n) {
		if m := reISODigits.FindStringSubmatch(n); m != nil {
			return "ISO_" + m[1]
		}
		return internal.CertISOOther
	}
	for _, rule := range s.rules {
		if matchesRule(n, rule) {
			return rule.certType
		}
	}
	return internal.CertOther
}

func matchesRule(n string, rule classifierRule) bool {
	for _, group := range rule.probes {
		hit := false
		for _, probe := range group {
			if strings.Contains(n, probe) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// Standardize converts one raw record. The second return value counts
// malformed certification entries that were skipped. A record without any
// usable name is rejected outright.
func (s *Standardizer) Standardize(raw map[string]any, sourceLabel string) (internal.Organization, int, error) {
	name := pickString(raw, "name", "organization_name", "hospital_name")
	if strings.TrimSpace(name) == "" {
		return internal.Organization{}, 0, errors.New("record has no name")
	}

	org := internal.Organization{
		Name:         name,
		OriginalName: name,
		City:         pickString(raw, "city", "town"),
		State:        pickString(raw, "state", "region"),
		Country:      pickString(raw, "country", "nation"),
		Address:      pickString(raw, "address"),
		Phone:        pickString(raw, "phone"),
		Website:      pickString(raw, "website"),
		HospitalType: pickString(raw, "hospital_type", "organization_type", "type"),
		DataSource:   sourceLabel,
	}

	certs, skipped := s.standardizeCertifications(raw["certifications"], sourceLabel)
	org.Certifications = certs
	return org, skipped, nil
}

func (s *Standardizer) standardizeCertifications(raw any, sourceLabel string) ([]internal.Certification, int) {
	entries, ok := raw.([]any)
	if !ok {
		if raw == nil {
			return []internal.Certification{}, 0
		}
		return []internal.Certification{}, 1
	}

	out := make([]internal.Certification, 0, len(entries))
	skipped := 0
	for _, entry := range entries {
		switch v := entry.(type) {
		case string:
			name := strings.TrimSpace(v)
			if name == "" {
				skipped++
				continue
			}
			out = append(out, internal.Certification{
				Name:   name,
				Type:   s.ClassifyCertification(name),
				Status: "Unknown",
				Source: sourceLabel,
			})
		case map[string]any:
			name := pickString(v, "name")
			if strings.TrimSpace(name) == "" {
				skipped++
				continue
			}
			cert := internal.Certification{
				Name:              name,
				Type:              pickString(v, "type"),
				Status:            util.FirstNonEmpty(pickString(v, "status"), "Unknown"),
				AccreditationDate: pickString(v, "accreditation_date", "issue_date", "valid_from"),
				ExpiryDate:        pickString(v, "expiry_date", "valid_upto"),
				AccreditationNo:   pickString(v, "accreditation_no", "certificate_number"),
				ReferenceNo:       pickString(v, "reference_no"),
				Remarks:           pickString(v, "remarks"),
				ScoreImpact:       pickFloat(v, "score_impact"),
				Source:            util.FirstNonEmpty(pickString(v, "source"), sourceLabel),
			}
			if cert.Type == "" || looksLikeRawType(cert.Type) {
				cert.Type = s.ClassifyCertification(util.FirstNonEmpty(cert.Type, cert.Name))
			}
			out = append(out, cert)
		default:
			skipped++
		}
	}
	return out, skipped
}

// NormalizeCertificationTypes repairs type codes in place on certifications
// that arrived without classification, such as catalog records written by
// older tooling. A JCI claim is a JCI claim whether or not the writer filled
// in the type field; validation keys on the code, so it must be derived from
// the name before merging.
func (s *Standardizer) NormalizeCertificationTypes(certs []internal.Certification) {
	for i := range certs {
		if certs[i].Type == "" || looksLikeRawType(certs[i].Type) {
			certs[i].Type = s.ClassifyCertification(util.FirstNonEmpty(certs[i].Type, certs[i].Name))
		}
	}
}

// looksLikeRawType reports whether a source put display text instead of a
// type code into the type field ("JCI Accreditation", "NABL Accreditation").
func looksLikeRawType(t string) bool {
	return strings.ContainsAny(t, " \t") || strings.ToLower(t) == t
}

func pickString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

func pickFloat(raw map[string]any, keys ...string) float64 {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case string:
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return parsed
			}
		}
	}
	return 0
}
