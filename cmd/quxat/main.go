package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"quxat/internal/config"
	"quxat/internal/pipeline"
	"quxat/internal/reference"
	"quxat/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	cmd := "integrate"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	switch cmd {
	case "integrate":
		svc := pipeline.NewIntegrationService(db, cfg)
		_, err := svc.Integrate()
		must(err)
	case "dedupe":
		svc := pipeline.NewIntegrationService(db, cfg)
		_, err := svc.Dedupe()
		must(err)
	case "reference:sync":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		url := fs.String("url", cfg.ReferenceURL, "roster url")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*url) == "" {
			must(fmt.Errorf("--url or REFERENCE_URL is required"))
		}
		client := reference.NewClient(cfg)
		count, err := client.Sync(context.Background(), *url)
		must(err)
		fmt.Printf("reference sync complete: %d entries -> %s\n", count, cfg.ReferencePath)
	case "export:xlsx":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		out := fs.String("out", filepath.Join(cfg.OutputDir, "catalog.xlsx"), "output xlsx path")
		_ = fs.Parse(os.Args[2:])
		catalog, err := storage.LoadCatalog(cfg.CatalogPath)
		must(err)
		must(pipeline.ExportOrganizationsToXLSX(catalog.Organizations, *out))
		fmt.Printf("exported %d organizations to %s\n", len(catalog.Organizations), *out)
	case "report":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 10, "max runs to show")
		_ = fs.Parse(os.Args[2:])
		runs, err := db.ListRuns(*limit)
		must(err)
		if len(runs) == 0 {
			fmt.Println("no runs recorded")
			return
		}
		for _, run := range runs {
			fmt.Printf("run %d [%s] %s at %s: in=%d out=%d merged=%d jci_removed=%d (%.0fms)\n",
				run.ID, run.TraceID, run.Command, run.CreatedAt,
				run.Stats.OrganizationsIn, run.Stats.OrganizationsOut,
				run.Stats.DuplicatesMerged, run.Stats.JCIRemoved, run.DurationMs)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage: quxat [command]")
	fmt.Println("commands:")
	fmt.Println("  integrate        merge catalog + external sources (default)")
	fmt.Println("  dedupe           merge pass over the catalog alone")
	fmt.Println("  reference:sync   --url=...   download the accreditation roster")
	fmt.Println("  export:xlsx      --out=...   export the catalog to xlsx")
	fmt.Println("  report           --limit=10  show recent run summaries")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
