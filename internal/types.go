package internal

// Certification type codes produced by the standardizer's keyword table.
const (
	CertJCI      = "JCI"
	CertNABH     = "NABH"
	CertNABL     = "NABL"
	CertCAP      = "CAP"
	CertISO9001  = "ISO_9001"
	CertISO15189 = "ISO_15189"
	CertISO13485 = "ISO_13485"
	CertISOOther = "ISO_OTHER"
	CertOther    = "OTHER"
)

type Certification struct {
	Name              string  `json:"name"`
	Type              string  `json:"type,omitempty"`
	Status            string  `json:"status,omitempty"`
	AccreditationDate string  `json:"accreditation_date,omitempty"`
	ExpiryDate        string  `json:"expiry_date,omitempty"`
	AccreditationNo   string  `json:"accreditation_no,omitempty"`
	ReferenceNo       string  `json:"reference_no,omitempty"`
	Remarks           string  `json:"remarks,omitempty"`
	ScoreImpact       float64 `json:"score_impact,omitempty"`
	Source            string  `json:"source,omitempty"`
	Validated         bool    `json:"validated"`
}

type Organization struct {
	Name              string          `json:"name"`
	OriginalName      string          `json:"original_name,omitempty"`
	City              string          `json:"city,omitempty"`
	State             string          `json:"state,omitempty"`
	Country           string          `json:"country,omitempty"`
	Address           string          `json:"address,omitempty"`
	Phone             string          `json:"phone,omitempty"`
	Website           string          `json:"website,omitempty"`
	HospitalType      string          `json:"hospital_type,omitempty"`
	Certifications    []Certification `json:"certifications"`
	QualityIndicators map[string]any  `json:"quality_indicators,omitempty"`
	DataSource        string          `json:"data_source,omitempty"`
	LastUpdated       string          `json:"last_updated,omitempty"`
}

// RunStats counts every outcome of one integration pass. Record-level
// failures are counted here instead of aborting the run.
type RunStats struct {
	OrganizationsIn       int `json:"organizations_in"`
	SourcesScanned        int `json:"sources_scanned"`
	SourceRecords         int `json:"source_records"`
	RecordsSkipped        int `json:"records_skipped"`
	CertificationsSkipped int `json:"certifications_skipped"`
	GroupsFormed          int `json:"groups_formed"`
	DuplicatesMerged      int `json:"duplicates_merged"`
	CertificationsKept    int `json:"certifications_kept"`
	JCIRemoved            int `json:"jci_certifications_removed"`
	OrganizationsOut      int `json:"organizations_out"`
}

// SourceCount is one source file's contribution to a run, kept for the
// audit log.
type SourceCount struct {
	Source  string `json:"source"`
	Records int    `json:"records"`
}
