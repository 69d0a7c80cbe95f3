package pipeline

import (
	"context"
	"os"
	"path/filepath"
)

// RunCycle performs one discover → validate → aggregate → persist → archive
// pass. It never returns an error: every outcome is a boolean plus the log
// trail, and a failed cycle leaves unarchived files in staging for the next
// run to pick up.
func (p *Pipeline) RunCycle(ctx context.Context) (success bool) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Printf("PROCESSING_ERROR: panic: %v", r)
			p.metrics.CyclesTotal.WithLabelValues("failure").Inc()
			success = false
		}
	}()

	p.log.Printf("PROCESSING_START: Starting data processing")

	files, err := p.Discover()
	if err != nil {
		return p.fail("PROCESSING_ERROR: %v", err)
	}
	if len(files) == 0 {
		return p.fail("NO_FILES: No demographic data files found")
	}

	p.log.Printf("FILES_FOUND: %d unprocessed files discovered", len(files))

	var valid, invalid []string
	for _, path := range files {
		if p.Validate(path) {
			valid = append(valid, path)
		} else {
			invalid = append(invalid, path)
			p.log.Printf("VALIDATION_ERROR: %s", filepath.Base(path))
		}
	}

	if len(valid) == 0 {
		p.archive(nil, invalid)
		return p.fail("NO_VALID_FILES: No valid files to process")
	}

	latest, _ := SelectLatest(valid)
	p.log.Printf("LATEST_FILE: %s", filepath.Base(latest))

	elements, err := readFeatures(latest)
	if err != nil {
		return p.fail("PROCESSING_ERROR: %v", err)
	}

	totals := Aggregate(elements)

	// A persist failure aborts the cycle before any archiving, so the staged
	// files are still there for the next attempt.
	written, err := p.repo.ReplaceAll(ctx, totals, filepath.Base(latest))
	if err != nil {
		return p.fail("PROCESSING_ERROR: database update: %v", err)
	}

	// Every valid file is archived as processed, not just the selected one:
	// only the latest snapshot contributes, the rest are already superseded.
	processed, errored := p.archive(valid, invalid)

	p.log.Printf("DATABASE_UPDATE: %d states updated from %d county records", written, len(elements))
	p.log.Printf("FILES_ARCHIVED: %d files moved to processed/", processed)
	if len(invalid) > 0 {
		p.log.Printf("ERROR_FILES: %d files moved to error/", errored)
	}
	p.log.Printf("PROCESSING_SUCCESS: Data processing completed")

	p.metrics.CyclesTotal.WithLabelValues("success").Inc()
	p.metrics.RecordsUpserted.Add(float64(written))

	return true
}

func (p *Pipeline) fail(format string, args ...any) bool {
	p.log.Printf(format, args...)
	p.metrics.CyclesTotal.WithLabelValues("failure").Inc()
	return false
}

// archive moves processed files into processed/ and invalid files into
// error/. Moves are best-effort per file: one failure is logged and skipped
// without aborting the rest. Returns how many of each actually moved.
func (p *Pipeline) archive(processedFiles, errorFiles []string) (processed, errored int) {
	move := func(path, destDir, kind string) bool {
		dest := filepath.Join(destDir, filepath.Base(path))
		if err := os.Rename(path, dest); err != nil {
			p.log.Printf("ARCHIVE_ERROR: moving %s: %v", filepath.Base(path), err)
			return false
		}
		p.metrics.FilesArchived.WithLabelValues(kind).Inc()
		return true
	}

	for _, path := range processedFiles {
		if move(path, p.processedDir, "processed") {
			processed++
		}
	}
	for _, path := range errorFiles {
		if move(path, p.errorDir, "error") {
			errored++
		}
	}

	return processed, errored
}
