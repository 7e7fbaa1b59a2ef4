package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"quxat/internal"
)

// Catalog is the persisted unified collection plus whatever top-level
// envelope the file on disk used. Bare distinguishes a plain JSON array from
// the {organizations, metadata} object shape; whichever was read is written
// back.
type Catalog struct {
	Organizations []internal.Organization
	Metadata      map[string]any
	Bare          bool
}

// LoadCatalog reads the catalog file. A missing file yields an empty
// enveloped catalog and no error. An unparseable file also yields an empty
// catalog, with the parse error returned so the caller can log it; the run
// starts from empty instead of dying.
func LoadCatalog(path string) (Catalog, error) {
	empty := Catalog{Organizations: []internal.Organization{}, Metadata: map[string]any{}}

	blob, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return empty, nil
	}
	if err != nil {
		return empty, err
	}

	var bare []internal.Organization
	if err := json.Unmarshal(blob, &bare); err == nil {
		return Catalog{Organizations: bare, Metadata: map[string]any{}, Bare: true}, nil
	}

	var envelope struct {
		Organizations []internal.Organization `json:"organizations"`
		Metadata      map[string]any          `json:"metadata"`
	}
	if err := json.Unmarshal(blob, &envelope); err != nil {
		return empty, fmt.Errorf("catalog %s is not valid JSON: %w", path, err)
	}
	if envelope.Organizations == nil {
		envelope.Organizations = []internal.Organization{}
	}
	if envelope.Metadata == nil {
		envelope.Metadata = map[string]any{}
	}
	return Catalog{Organizations: envelope.Organizations, Metadata: envelope.Metadata}, nil
}

// SaveCatalog writes the catalog back in the shape it was read in. The full
// output is built in memory first, the previous file content is copied to a
// timestamped backup, and the new content lands via write-then-rename, so a
// failed write never truncates the existing catalog.
func SaveCatalog(path string, catalog Catalog, now time.Time) error {
	var payload any
	if catalog.Bare {
		payload = catalog.Organizations
	} else {
		meta := catalog.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		meta["total_organizations"] = len(catalog.Organizations)
		meta["last_updated"] = now.UTC().Format(time.RFC3339)
		meta["data_sources"] = unionDataSources(meta["data_sources"], catalog.Organizations)
		payload = map[string]any{"organizations": catalog.Organizations, "metadata": meta}
	}

	blob, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	backupCatalog(path, now)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// backupCatalog copies the current file aside before it is replaced.
// Best-effort: no prior file, no backup.
func backupCatalog(path string, now time.Time) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return
	}
	ext := filepath.Ext(path)
	backupPath := strings.TrimSuffix(path, ext) + "_backup_" + now.UTC().Format("20060102_150405") + ext
	_ = os.WriteFile(backupPath, blob, 0o644)
}

func unionDataSources(existing any, orgs []internal.Organization) []string {
	seen := map[string]struct{}{}
	out := []string{}
	add := func(label string) {
		label = strings.TrimSpace(label)
		if label == "" {
			return
		}
		if _, ok := seen[label]; ok {
			return
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}

	if list, ok := existing.([]any); ok {
		for _, v := range list {
			if s, ok := v.(string); ok {
				add(s)
			}
		}
	}
	if list, ok := existing.([]string); ok {
		for _, s := range list {
			add(s)
		}
	}
	for _, org := range orgs {
		for _, label := range strings.Split(org.DataSource, ",") {
			add(label)
		}
	}
	return out
}
