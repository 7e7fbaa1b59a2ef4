package pipeline

import (
	"strings"

	"quxat/internal"
	"quxat/internal/reference"
	"quxat/internal/util"
)

// CertMergeResult carries the surviving certifications of one match group
// along with the counters the run summary reports.
type CertMergeResult struct {
	Certifications []internal.Certification
	Skipped        int
	Removed        int
}

// MergeCertifications concatenates the certification lists of a group in
// source order, deduplicates by the loose certification key, and validates
// the survivors. Verifiable types that fail the roster check are dropped
// outright, never kept with validated=false. Everything else is promoted to
// validated=true: the claim, usually backed by a certificate number from the
// source extractor, is the evidence this version accepts.
func MergeCertifications(group []internal.Organization, orgName, orgCity string, validator *reference.Validator) CertMergeResult {
	byKey := map[string]int{}
	merged := make([]internal.Certification, 0)
	skipped := 0

	for _, org := range group {
		for _, cert := range org.Certifications {
			key := util.CertKey(cert.Name)
			if key == "" {
				skipped++
				continue
			}
			if idx, ok := byKey[key]; ok {
				if richness(cert) > richness(merged[idx]) {
					merged[idx] = cert
				}
				continue
			}
			byKey[key] = len(merged)
			merged = append(merged, cert)
		}
	}

	out := make([]internal.Certification, 0, len(merged))
	removed := 0
	for _, cert := range merged {
		if validator.Verifiable(cert.Type) {
			if !validator.IsValid(cert.Type, orgName, orgCity) {
				removed++
				continue
			}
		}
		cert.Validated = true
		out = append(out, cert)
	}

	return CertMergeResult{Certifications: out, Skipped: skipped, Removed: removed}
}

// richness ranks duplicate certification entries: the copy carrying
// identifiers and dates beats a bare name-only claim. Ties keep the
// earliest-seen copy.
func richness(c internal.Certification) int {
	score := 0
	for _, field := range []string{c.AccreditationNo, c.ReferenceNo, c.AccreditationDate, c.ExpiryDate} {
		if strings.TrimSpace(field) != "" {
			score++
		}
	}
	return score
}
