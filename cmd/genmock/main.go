// Command genmock converts an incident import CSV into the raw JSON fixture
// used by the pipeline and integration tests. Every row is run through the
// domain parser first so the fixture only holds records the pipeline accepts.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -csv data/mock/incidents_mock.csv \
//	  -out data/mock/incidents_mock.json
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/couchcryptid/wildlife-incident-analyzer/internal/domain"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stats io.Writer) error {
	fs := flag.NewFlagSet("genmock", flag.ContinueOnError)
	csvPath := fs.String("csv", "", "incident import CSV")
	outPath := fs.String("out", "", "output path for the raw JSON fixture")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *csvPath == "" || *outPath == "" {
		fs.Usage()
		return errors.New("missing required flags: -csv, -out")
	}

	f, err := os.Open(*csvPath)
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	recs, err := domain.ReadRecordsCSV(f)
	if err != nil {
		return err
	}

	incidents := make([]domain.Incident, 0, len(recs))
	for i, rec := range recs {
		inc, err := domain.ParseRecord(rec, time.Time{})
		if err != nil {
			return fmt.Errorf("line %d: %w", i+2, err)
		}
		incidents = append(incidents, domain.NormalizeIncident(inc))
	}

	if err := writeJSON(*outPath, recs); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s (%d records)", *outPath, len(recs))

	printStats(stats, incidents)
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

type ownerStats struct {
	total    int
	severity map[domain.Severity]int
	species  map[string]int
	undated  int
}

// printStats summarizes the fixture for updating test assertions.
func printStats(w io.Writer, incidents []domain.Incident) {
	byOwner := map[string]*ownerStats{}
	for i := range incidents {
		inc := &incidents[i]
		s, ok := byOwner[inc.Owner]
		if !ok {
			s = &ownerStats{severity: map[domain.Severity]int{}, species: map[string]int{}}
			byOwner[inc.Owner] = s
		}
		s.total++
		s.severity[inc.Severity]++
		s.species[inc.Species]++
		if inc.ObservedAt.IsZero() {
			s.undated++
		}
	}

	owners := make([]string, 0, len(byOwner))
	for o := range byOwner {
		owners = append(owners, o)
	}
	sort.Strings(owners)

	fmt.Fprintln(w, "\n=== Stats for updating test assertions ===")
	fmt.Fprintf(w, "Total: %d\n", len(incidents))
	for _, o := range owners {
		s := byOwner[o]
		fmt.Fprintf(w, "%s: %d incidents (high=%d medium=%d low=%d unknown=%d, undated=%d, species=%d)\n",
			o, s.total,
			s.severity[domain.SeverityHigh], s.severity[domain.SeverityMedium],
			s.severity[domain.SeverityLow], s.severity[domain.SeverityUnknown],
			s.undated, len(s.species))
	}
}
