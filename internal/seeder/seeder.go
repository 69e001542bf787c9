package seeder

import (
	"context"
	"fmt"

	"github.com/Ayash-Bera/archivist/internal/models"
	"github.com/sirupsen/logrus"
)

// ArchiveWriter is the part of the archive repository the seeder needs.
type ArchiveWriter interface {
	Upsert(ctx context.Context, archive *models.Archive) error
}

// Report summarises one seeding run.
type Report struct {
	Total    int
	Upserted int
	Skipped  int
	Failed   int
	Errors   []error
}

// Seeder normalises catalog entries and upserts them by file number.
type Seeder struct {
	archives  ArchiveWriter
	processor *CatalogProcessor
	logger    *logrus.Logger
	dryRun    bool
}

// NewSeeder builds a seeder. archives may be nil when dryRun is set.
func NewSeeder(archives ArchiveWriter, processor *CatalogProcessor, logger *logrus.Logger, dryRun bool) *Seeder {
	return &Seeder{
		archives:  archives,
		processor: processor,
		logger:    logger,
		dryRun:    dryRun,
	}
}

// Seed processes every entry. Invalid entries are skipped and write failures
// are collected; only a cancelled context stops the run early.
func (s *Seeder) Seed(ctx context.Context, entries []Entry) (*Report, error) {
	report := &Report{Total: len(entries)}
	seen := make(map[string]bool)

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		archive, err := s.processor.Normalize(entry)
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Errorf("entry %d: %w", i+1, err))
			s.logger.WithError(err).WithField("entry", i+1).Warn("Skipping catalog entry")
			continue
		}
		if seen[archive.FileNumber] {
			report.Skipped++
			s.logger.WithField("file_number", archive.FileNumber).Warn("Duplicate file number in catalog")
			continue
		}
		seen[archive.FileNumber] = true

		if s.dryRun {
			s.logger.WithFields(logrus.Fields{
				"file_number": archive.FileNumber,
				"title":       archive.Title,
				"status":      archive.Status,
			}).Info("DRY RUN: Would upsert archive")
			report.Upserted++
			continue
		}

		if err := s.archives.Upsert(ctx, &archive); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, fmt.Errorf("upsert %s: %w", archive.FileNumber, err))
			s.logger.WithError(err).WithField("file_number", archive.FileNumber).Error("Failed to upsert archive")
			continue
		}
		report.Upserted++
	}

	s.logger.WithFields(logrus.Fields{
		"total":    report.Total,
		"upserted": report.Upserted,
		"skipped":  report.Skipped,
		"failed":   report.Failed,
		"dry_run":  s.dryRun,
	}).Info("Catalog seeding completed")

	return report, nil
}
