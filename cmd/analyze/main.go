// Command analyze runs the hotspot analysis over an import CSV without Kafka
// or a database and prints the result as JSON.
//
// Usage:
//
//	go run ./cmd/analyze \
//	  -csv data/mock/incidents_mock.csv \
//	  -owner ranger.north@example.org \
//	  -policy proximity
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/couchcryptid/wildlife-incident-analyzer/internal/analysis"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/config"
	"github.com/couchcryptid/wildlife-incident-analyzer/internal/domain"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	csvPath := fs.String("csv", "", "import CSV to analyze")
	owner := fs.String("owner", "", "analyze only this ReportedBy value (required when the CSV has several)")
	policy := fs.String("policy", "", "grid or proximity (overrides the policy file)")
	policyFile := fs.String("policy-file", "", "YAML analysis settings")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *csvPath == "" {
		fs.Usage()
		return errors.New("missing required flag: -csv")
	}

	cfg := analysis.DefaultConfig()
	if *policyFile != "" {
		var err error
		if cfg, err = config.LoadAnalysisPolicy(*policyFile, cfg); err != nil {
			return err
		}
	}
	if *policy != "" {
		p, err := analysis.ParsePolicy(*policy)
		if err != nil {
			return err
		}
		cfg = cfg.WithPolicy(p)
	}

	incidents, err := loadIncidents(*csvPath, slog.Default())
	if err != nil {
		return err
	}
	selected, err := selectOwner(incidents, *owner)
	if err != nil {
		return err
	}

	res, err := analysis.Analyze(selected, cfg)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// loadIncidents parses every row. Rows without a date are left undated; rows
// that fail to parse are logged and skipped.
func loadIncidents(path string, logger *slog.Logger) ([]domain.Incident, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	recs, err := domain.ReadRecordsCSV(f)
	if err != nil {
		return nil, err
	}
	incidents := make([]domain.Incident, 0, len(recs))
	skipped := 0
	for i, rec := range recs {
		inc, err := domain.ParseRecord(rec, time.Time{})
		if err != nil {
			logger.Warn("skipping unparseable row", "line", i+2, "error", err)
			skipped++
			continue
		}
		incidents = append(incidents, domain.NormalizeIncident(inc))
	}
	if skipped > 0 {
		logger.Warn("rows skipped", "skipped", skipped, "loaded", len(incidents))
	}
	return incidents, nil
}

func selectOwner(incidents []domain.Incident, owner string) ([]domain.Incident, error) {
	byOwner := map[string][]domain.Incident{}
	for _, inc := range incidents {
		byOwner[inc.Owner] = append(byOwner[inc.Owner], inc)
	}
	if owner != "" {
		return byOwner[owner], nil
	}
	if len(byOwner) == 1 {
		for _, v := range byOwner {
			return v, nil
		}
	}
	owners := make([]string, 0, len(byOwner))
	for o := range byOwner {
		owners = append(owners, o)
	}
	sort.Strings(owners)
	return nil, fmt.Errorf("csv has %d owners, pick one with -owner: %v", len(owners), owners)
}
