package migration

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// Target is the database the runner migrates.
type Target interface {
	Migrate() error
	ExecSQL(ctx context.Context, sql string) error
}

type Runner struct {
	target Target
	logger *logrus.Logger
}

func NewRunner(target Target, logger *logrus.Logger) *Runner {
	return &Runner{
		target: target,
		logger: logger,
	}
}

// RunMigrations applies the gorm schema, then every .sql file of migrations
// in lexical order. Files must be safe to re-run.
func (r *Runner) RunMigrations(ctx context.Context, migrations fs.FS) error {
	r.logger.Info("Starting database migrations...")

	if err := r.target.Migrate(); err != nil {
		return fmt.Errorf("GORM auto-migration failed: %w", err)
	}

	if err := r.runSQLMigrations(ctx, migrations); err != nil {
		return fmt.Errorf("SQL migrations failed: %w", err)
	}

	r.logger.Info("Database migrations completed successfully")
	return nil
}

func (r *Runner) runSQLMigrations(ctx context.Context, migrations fs.FS) error {
	entries, err := fs.ReadDir(migrations, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			sqlFiles = append(sqlFiles, entry.Name())
		}
	}
	sort.Strings(sqlFiles)

	for _, name := range sqlFiles {
		if err := r.runSQLFile(ctx, migrations, name); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", name, err)
		}
		r.logger.WithField("file", name).Info("Migration executed successfully")
	}
	return nil
}

func (r *Runner) runSQLFile(ctx context.Context, migrations fs.FS, name string) error {
	content, err := fs.ReadFile(migrations, name)
	if err != nil {
		return err
	}
	sqlContent := string(content)

	// Dollar-quoted bodies may contain semicolons, so such files run whole.
	if strings.Contains(sqlContent, "$$") {
		r.logger.WithField("file", path.Base(name)).Debug("Executing SQL file with dollar-quoted functions")
		return r.target.ExecSQL(ctx, removeComments(sqlContent))
	}

	for i, stmt := range SplitStatements(sqlContent) {
		r.logger.WithFields(logrus.Fields{
			"file":      name,
			"statement": i + 1,
		}).Debug("Executing SQL statement")

		if err := r.target.ExecSQL(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return nil
}

func removeComments(sql string) string {
	var kept []string
	for _, line := range strings.Split(sql, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// SplitStatements drops comment lines and splits the rest on semicolons.
func SplitStatements(sql string) []string {
	var lines []string
	for _, line := range strings.Split(sql, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			lines = append(lines, line)
		}
	}

	var statements []string
	for _, stmt := range strings.Split(strings.Join(lines, " "), ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			statements = append(statements, stmt)
		}
	}
	return statements
}
