package pipeline

import (
	"strings"
	"time"

	"quxat/internal"
	"quxat/internal/reference"
)

// Indicator keys that always appear in the recomputed quality indicators,
// false unless a validated certification of the matching type survives.
var recognizedIndicatorTypes = []string{
	internal.CertJCI,
	internal.CertNABH,
	internal.CertNABL,
	internal.CertCAP,
	internal.CertISO9001,
	internal.CertISO15189,
}

// MergeGroup collapses one match group into a single Organization. Scalar
// fields follow "first non-empty wins" in source-priority order (the order
// records entered the group). Quality indicators are always recomputed from
// the final certification list, never copied forward, so upstream sources
// cannot smuggle a stale accreditation flag past validation.
func MergeGroup(group []internal.Organization, validator *reference.Validator, mergedAt time.Time) (internal.Organization, CertMergeResult) {
	name := firstField(group, func(o internal.Organization) string { return o.Name })
	city := firstField(group, func(o internal.Organization) string { return o.City })

	certs := MergeCertifications(group, name, city, validator)

	out := internal.Organization{
		Name:           name,
		OriginalName:   firstField(group, func(o internal.Organization) string { return o.OriginalName }),
		City:           city,
		State:          firstField(group, func(o internal.Organization) string { return o.State }),
		Country:        firstField(group, func(o internal.Organization) string { return o.Country }),
		Address:        firstField(group, func(o internal.Organization) string { return o.Address }),
		Phone:          firstField(group, func(o internal.Organization) string { return o.Phone }),
		Website:        firstField(group, func(o internal.Organization) string { return o.Website }),
		HospitalType:   firstField(group, func(o internal.Organization) string { return o.HospitalType }),
		Certifications: certs.Certifications,
		DataSource:     joinSources(group),
		LastUpdated:    mergedAt.UTC().Format(time.RFC3339),
	}
	if out.OriginalName == "" {
		out.OriginalName = out.Name
	}
	out.QualityIndicators = computeIndicators(certs.Certifications)

	return out, certs
}

func computeIndicators(certs []internal.Certification) map[string]any {
	qi := map[string]any{}
	for _, t := range recognizedIndicatorTypes {
		qi[indicatorKey(t)] = false
	}

	nablScore := 0.0
	international := false
	for _, cert := range certs {
		if !cert.Validated || cert.Type == "" || cert.Type == internal.CertOther {
			continue
		}
		qi[indicatorKey(cert.Type)] = true
		if cert.Type == internal.CertNABL {
			nablScore += cert.ScoreImpact
		}
		if cert.Type == internal.CertJCI || cert.Type == internal.CertCAP {
			international = true
		}
	}
	qi["international_accreditation"] = international
	if nablScore > 0 {
		qi["nabl_score"] = nablScore
	}
	return qi
}

func indicatorKey(certType string) string {
	return strings.ToLower(certType) + "_accredited"
}

func firstField(group []internal.Organization, get func(internal.Organization) string) string {
	for _, org := range group {
		if v := strings.TrimSpace(get(org)); v != "" {
			return get(org)
		}
	}
	return ""
}

// joinSources unions the comma-joined provenance labels of the group in
// first-seen order.
func joinSources(group []internal.Organization) string {
	seen := map[string]struct{}{}
	labels := make([]string, 0, len(group))
	for _, org := range group {
		for _, label := range strings.Split(org.DataSource, ",") {
			label = strings.TrimSpace(label)
			if label == "" {
				continue
			}
			if _, ok := seen[label]; ok {
				continue
			}
			seen[label] = struct{}{}
			labels = append(labels, label)
		}
	}
	return strings.Join(labels, ", ")
}
