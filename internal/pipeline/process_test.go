package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quxat/internal/config"
	"quxat/internal/storage"
)

func testService(t *testing.T) (*IntegrationService, config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		CatalogPath:   filepath.Join(dir, "catalog.json"),
		ReferencePath: filepath.Join(dir, "jci_roster.json"),
		SourcesDir:    filepath.Join(dir, "sources"),
		OutputDir:     dir,
		LenientNoCity: true,
	}
	if err := os.MkdirAll(cfg.SourcesDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	svc := NewIntegrationService(nil, cfg)
	svc.Now = func() time.Time { return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC) }
	return svc, cfg
}

func TestIntegrateKeepsAccreditationWithSiblingBranch(t *testing.T) {
	svc, cfg := testService(t)

	roster := `{"organizations":[{"name":"Apollo Hospitals Chennai","city":"Chennai"}]}`
	if err := os.WriteFile(cfg.ReferencePath, []byte(roster), 0o644); err != nil {
		t.Fatalf("roster: %v", err)
	}

	source := `[
		{"name":"Apollo Hospitals Chennai","city":"Chennai","certifications":[{"name":"JCI Accreditation"}]},
		{"name":"Apollo Hospitals Secunderabad","city":"Secunderabad","certifications":[{"name":"JCI Accreditation"},{"name":"NABH"}]}
	]`
	if err := os.WriteFile(filepath.Join(cfg.SourcesDir, "apollo.json"), []byte(source), 0o644); err != nil {
		t.Fatalf("source: %v", err)
	}

	result, err := svc.Integrate()
	if err != nil {
		t.Fatalf("integrate: %v", err)
	}
	if result.Stats.OrganizationsOut != 2 || result.Stats.JCIRemoved != 1 {
		t.Fatalf("stats=%+v", result.Stats)
	}

	catalog, err := storage.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, org := range catalog.Organizations {
		switch org.Name {
		case "Apollo Hospitals Chennai":
			if org.QualityIndicators["jci_accredited"] != true {
				t.Fatalf("chennai lost its accreditation: %+v", org.QualityIndicators)
			}
		case "Apollo Hospitals Secunderabad":
			if org.QualityIndicators["jci_accredited"] != false {
				t.Fatalf("secunderabad inherited an accreditation: %+v", org.QualityIndicators)
			}
			for _, cert := range org.Certifications {
				if cert.Type == "JCI" {
					t.Fatalf("secunderabad kept a JCI certification: %+v", cert)
				}
			}
		default:
			t.Fatalf("unexpected organization %q", org.Name)
		}
	}
}

func TestIntegrateMergesDuplicatesAcrossSources(t *testing.T) {
	svc, cfg := testService(t)

	// Catalog record first, then two source files in sorted name order.
	catalog := `{"organizations":[{"name":"ARUP Laboratories","city":"Salt Lake City","data_source":"catalog"}],"metadata":{}}`
	if err := os.WriteFile(cfg.CatalogPath, []byte(catalog), 0o644); err != nil {
		t.Fatalf("catalog: %v", err)
	}
	a := `[{"name":"ARUP Laboratories, Inc.","phone":"+1-800-522-2787","certifications":[{"name":"CAP Accreditation","accreditation_no":"CAP-1187"}]}]`
	b := `[{"name":"arup laboratories","website":"https://www.aruplab.com"}]`
	os.WriteFile(filepath.Join(cfg.SourcesDir, "a_cap.json"), []byte(a), 0o644)
	os.WriteFile(filepath.Join(cfg.SourcesDir, "b_scrape.json"), []byte(b), 0o644)

	result, err := svc.Integrate()
	if err != nil {
		t.Fatalf("integrate: %v", err)
	}
	if result.Stats.OrganizationsOut != 1 || result.Stats.DuplicatesMerged != 2 {
		t.Fatalf("stats=%+v", result.Stats)
	}

	loaded, _ := storage.LoadCatalog(cfg.CatalogPath)
	org := loaded.Organizations[0]
	if org.Name != "ARUP Laboratories" || org.Phone != "+1-800-522-2787" || org.Website != "https://www.aruplab.com" {
		t.Fatalf("merge wrong: %+v", org)
	}
	if len(org.Certifications) != 1 || org.Certifications[0].Type != "CAP" {
		t.Fatalf("certs=%+v", org.Certifications)
	}
	if org.QualityIndicators["international_accreditation"] != true {
		t.Fatalf("indicators=%+v", org.QualityIndicators)
	}
}

func TestDedupeIsIdempotent(t *testing.T) {
	svc, cfg := testService(t)

	catalog := `{"organizations":[
		{"name":"Fortis Hospital","city":"Delhi","certifications":[{"name":"NABH","type":"NABH"}]},
		{"name":"FORTIS HOSPITAL","state":"Delhi"}
	],"metadata":{}}`
	if err := os.WriteFile(cfg.CatalogPath, []byte(catalog), 0o644); err != nil {
		t.Fatalf("catalog: %v", err)
	}

	if _, err := svc.Dedupe(); err != nil {
		t.Fatalf("first dedupe: %v", err)
	}
	first, err := os.ReadFile(cfg.CatalogPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if _, err := svc.Dedupe(); err != nil {
		t.Fatalf("second dedupe: %v", err)
	}
	second, _ := os.ReadFile(cfg.CatalogPath)

	if !bytes.Equal(first, second) {
		t.Fatal("second dedupe changed the catalog")
	}

	var envelope struct {
		Organizations []json.RawMessage `json:"organizations"`
		Metadata      map[string]any    `json:"metadata"`
	}
	if err := json.Unmarshal(second, &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(envelope.Organizations) != 1 {
		t.Fatalf("organizations=%d", len(envelope.Organizations))
	}
	if envelope.Metadata["total_organizations"] != float64(1) {
		t.Fatalf("metadata=%v", envelope.Metadata)
	}
}

func TestDedupeValidatesUntypedCatalogCertifications(t *testing.T) {
	svc, cfg := testService(t)

	roster := `{"organizations":[{"name":"Apollo Hospitals Chennai","city":"Chennai"}]}`
	if err := os.WriteFile(cfg.ReferencePath, []byte(roster), 0o644); err != nil {
		t.Fatalf("roster: %v", err)
	}

	// Legacy catalog entry: the JCI claim carries no type code at all.
	catalog := `{"organizations":[
		{"name":"Apollo Hospitals Secunderabad","city":"Secunderabad","certifications":[{"name":"JCI Accreditation"},{"name":"NABH"}]}
	],"metadata":{}}`
	if err := os.WriteFile(cfg.CatalogPath, []byte(catalog), 0o644); err != nil {
		t.Fatalf("catalog: %v", err)
	}

	result, err := svc.Dedupe()
	if err != nil {
		t.Fatalf("dedupe: %v", err)
	}
	if result.Stats.JCIRemoved != 1 {
		t.Fatalf("stats=%+v", result.Stats)
	}

	loaded, _ := storage.LoadCatalog(cfg.CatalogPath)
	org := loaded.Organizations[0]
	for _, cert := range org.Certifications {
		if cert.Type == "JCI" || strings.Contains(strings.ToLower(cert.Name), "jci") {
			t.Fatalf("unvalidatable JCI claim survived dedupe: %+v", cert)
		}
	}
	if org.QualityIndicators["jci_accredited"] != false {
		t.Fatalf("indicators=%+v", org.QualityIndicators)
	}
	if len(org.Certifications) != 1 || org.Certifications[0].Type != "NABH" {
		t.Fatalf("certs=%+v", org.Certifications)
	}
}

func TestIntegrateMissingCatalogAndEmptySources(t *testing.T) {
	svc, _ := testService(t)

	result, err := svc.Integrate()
	if err != nil {
		t.Fatalf("integrate: %v", err)
	}
	if result.Stats.OrganizationsIn != 0 || result.Stats.OrganizationsOut != 0 {
		t.Fatalf("stats=%+v", result.Stats)
	}
}
