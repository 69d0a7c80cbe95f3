// Package pipeline ingests staged demographic snapshot files: it discovers
// candidates, validates them, aggregates the latest valid snapshot into the
// state_populations store, and archives every file it observed.
package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/atalaykaya/demographics-api/internal/metrics"
	"github.com/atalaykaya/demographics-api/internal/population"
	"github.com/atalaykaya/demographics-api/internal/proclog"
)

// ErrMalformedFilename reports a snapshot filename that does not carry the
// expected embedded timestamp.
var ErrMalformedFilename = errors.New("malformed snapshot filename")

var (
	// discoverPattern is deliberately anchored to the full name so discovery
	// silently skips anything that is not a well-formed snapshot.
	discoverPattern  = regexp.MustCompile(`^demographic_data_\d{8}_\d{6}\.json$`)
	timestampPattern = regexp.MustCompile(`demographic_data_(\d{8})_(\d{6})\.json`)
)

const (
	stateField      = "STATE_NAME"
	populationField = "POPULATION"

	// validateSampleSize bounds how many leading elements Validate inspects.
	// Validation is a structural sample, not a full-file proof.
	validateSampleSize = 5
)

type Pipeline struct {
	stagingDir   string
	processedDir string
	errorDir     string
	repo         population.Repository
	log          *proclog.Logger
	metrics      *metrics.Metrics
}

// New creates a pipeline over the given staging directory. The processed/ and
// error/ archive directories are created under it if missing.
func New(stagingDir string, repo population.Repository, log *proclog.Logger, m *metrics.Metrics) (*Pipeline, error) {
	p := &Pipeline{
		stagingDir:   stagingDir,
		processedDir: filepath.Join(stagingDir, "processed"),
		errorDir:     filepath.Join(stagingDir, "error"),
		repo:         repo,
		log:          log,
		metrics:      m,
	}

	for _, dir := range []string{p.stagingDir, p.processedDir, p.errorDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return p, nil
}

// Discover lists staged snapshot files. Non-conforming names are filtered
// out silently, not reported as errors.
func (p *Pipeline) Discover() ([]string, error) {
	entries, err := os.ReadDir(p.stagingDir)
	if err != nil {
		return nil, fmt.Errorf("read staging dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !discoverPattern.MatchString(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(p.stagingDir, e.Name()))
	}

	return files, nil
}

// ExtractTimestamp parses the embedded local date and time out of a snapshot
// filename.
func ExtractTimestamp(filename string) (time.Time, error) {
	m := timestampPattern.FindStringSubmatch(filepath.Base(filename))
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrMalformedFilename, filepath.Base(filename))
	}

	ts, err := time.ParseInLocation("20060102150405", m[1]+m[2], time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrMalformedFilename, filepath.Base(filename))
	}

	return ts, nil
}

// SelectLatest picks the candidate with the latest embedded timestamp.
// Equal timestamps fall back to the lexicographically larger path so the
// choice stays deterministic. Returns false when there are no candidates.
func SelectLatest(candidates []string) (string, bool) {
	var (
		latest   string
		latestTS time.Time
		found    bool
	)

	for _, path := range candidates {
		ts, err := ExtractTimestamp(path)
		if err != nil {
			continue
		}
		if !found || ts.After(latestTS) || (ts.Equal(latestTS) && path > latest) {
			latest, latestTS, found = path, ts, true
		}
	}

	return latest, found
}

// Validate reports whether the file looks like a usable snapshot: parseable
// JSON, a top-level array, and each of the first few elements carrying the
// state and population attribute fields. It samples rather than proves;
// Aggregate still tolerates malformed elements deeper in the file.
func (p *Pipeline) Validate(path string) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return false
	}

	sample := elements
	if len(sample) > validateSampleSize {
		sample = sample[:validateSampleSize]
	}

	for _, el := range sample {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(el, &obj); err != nil {
			return false
		}

		var attrs map[string]json.RawMessage
		if err := json.Unmarshal(obj["attributes"], &attrs); err != nil {
			return false
		}

		if _, ok := attrs[stateField]; !ok {
			return false
		}
		if _, ok := attrs[populationField]; !ok {
			return false
		}
	}

	return true
}

// Aggregate sums populations per state. Elements without a state are skipped;
// a missing or non-numeric population contributes zero. A malformed element
// never fails the whole batch, and the result is independent of element order.
func Aggregate(elements []json.RawMessage) map[string]int64 {
	totals := make(map[string]int64)

	for _, el := range elements {
		var feature struct {
			Attributes map[string]any `json:"attributes"`
		}
		if err := json.Unmarshal(el, &feature); err != nil {
			continue
		}

		state, _ := feature.Attributes[stateField].(string)
		if state == "" {
			continue
		}

		var pop int64
		if v, ok := feature.Attributes[populationField].(float64); ok {
			pop = int64(v)
		}

		totals[state] += pop
	}

	return totals
}

// readFeatures loads a snapshot file as a raw element slice for Aggregate.
func readFeatures(path string) ([]json.RawMessage, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	return elements, nil
}
