package pipeline

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"quxat/internal"
	"quxat/internal/config"
	"quxat/internal/reference"
	"quxat/internal/storage"
)

// IntegrationService runs one batch pass: load catalog, standardize source
// records, group, merge, write back. Single-threaded and single-pass; the
// whole working set lives in memory for the duration of the run.
type IntegrationService struct {
	db           *storage.DB
	cfg          config.Config
	standardizer *Standardizer

	// Now is swappable so merge timestamps are deterministic in tests.
	Now func() time.Time
}

func NewIntegrationService(db *storage.DB, cfg config.Config) *IntegrationService {
	return &IntegrationService{
		db:           db,
		cfg:          cfg,
		standardizer: NewStandardizer(),
		Now:          time.Now,
	}
}

type IntegrationResult struct {
	Stats   internal.RunStats
	Sources []internal.SourceCount
}

// Integrate merges the existing catalog together with every record found in
// the sources directory.
func (s *IntegrationService) Integrate() (IntegrationResult, error) {
	return s.run("integrate", true)
}

// Dedupe re-runs the merge over the catalog alone. Running it on a freshly
// integrated catalog is a no-op apart from timestamps.
func (s *IntegrationService) Dedupe() (IntegrationResult, error) {
	return s.run("dedupe", false)
}

func (s *IntegrationService) run(command string, withSources bool) (IntegrationResult, error) {
	start := s.Now()
	stats := internal.RunStats{}

	catalog, err := storage.LoadCatalog(s.cfg.CatalogPath)
	if err != nil {
		fmt.Printf("warning: %v; starting from empty catalog\n", err)
	}
	stats.OrganizationsIn = len(catalog.Organizations)

	// Catalog-resident records carry the highest source priority, then
	// sources in sorted filename order. Their certifications may predate the
	// classifier, so type codes are normalized before any validation keys
	// on them.
	orgs := catalog.Organizations
	for i := range orgs {
		s.standardizer.NormalizeCertificationTypes(orgs[i].Certifications)
	}
	sourceCounts := []internal.SourceCount{}

	if withSources {
		sources, skippedFiles := LoadSources(s.cfg.SourcesDir)
		stats.SourcesScanned = len(sources) + skippedFiles
		for _, src := range sources {
			count := 0
			for _, raw := range src.Records {
				org, certsSkipped, err := s.standardizer.Standardize(raw, src.Label)
				stats.CertificationsSkipped += certsSkipped
				if err != nil {
					stats.RecordsSkipped++
					continue
				}
				orgs = append(orgs, org)
				count++
			}
			stats.SourceRecords += count
			sourceCounts = append(sourceCounts, internal.SourceCount{Source: src.Label, Records: count})
		}
	}

	if len(orgs) == 0 {
		fmt.Println("warning: no organizations to process")
	}

	validator := reference.NewValidator(s.cfg.ReferencePath, s.cfg.LenientNoCity)
	groups := Group(orgs)
	stats.GroupsFormed = len(groups)

	mergedAt := s.Now()
	merged := make([]internal.Organization, 0, len(groups))
	for _, group := range groups {
		org, certs := MergeGroup(group, validator, mergedAt)
		merged = append(merged, org)
		stats.DuplicatesMerged += len(group) - 1
		stats.CertificationsKept += len(certs.Certifications)
		stats.CertificationsSkipped += certs.Skipped
		stats.JCIRemoved += certs.Removed
	}
	stats.OrganizationsOut = len(merged)

	catalog.Organizations = merged
	if err := storage.SaveCatalog(s.cfg.CatalogPath, catalog, mergedAt); err != nil {
		return IntegrationResult{Stats: stats, Sources: sourceCounts}, fmt.Errorf("writing catalog: %w", err)
	}

	durationMs := float64(time.Since(start).Milliseconds())
	if s.db != nil {
		if runID, err := s.db.InsertRun(traceID(), command, stats, durationMs); err == nil {
			_ = s.db.InsertSourceCounts(runID, sourceCounts)
		}
	}

	printSummary(command, stats)
	return IntegrationResult{Stats: stats, Sources: sourceCounts}, nil
}

func printSummary(command string, stats internal.RunStats) {
	fmt.Printf("%s summary:\n", command)
	fmt.Printf("  organizations in:            %d\n", stats.OrganizationsIn)
	fmt.Printf("  source records accepted:     %d (skipped %d)\n", stats.SourceRecords, stats.RecordsSkipped)
	fmt.Printf("  match groups formed:         %d\n", stats.GroupsFormed)
	fmt.Printf("  duplicates merged:           %d\n", stats.DuplicatesMerged)
	fmt.Printf("  certifications kept:         %d (malformed skipped %d)\n", stats.CertificationsKept, stats.CertificationsSkipped)
	fmt.Printf("  jci certifications removed:  %d\n", stats.JCIRemoved)
	fmt.Printf("  organizations out:           %d\n", stats.OrganizationsOut)
}

func traceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
