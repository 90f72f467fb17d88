package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/gobot-ui/core/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	migrationsDir = "migrations"
	previewFiles  = 6
)

// RunMigrations waits for the server and applies the embedded up migrations.
func RunMigrations(ctx context.Context, cfg Config) error {
	if err := waitReady(ctx, cfg); err != nil {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "db.migrate",
			slog.String("status", "fail"), slog.String("err", err.Error()))
		return err
	}

	files := upFiles(migrationsFS, migrationsDir)
	logger.LogEvent(ctx, logger.MIG, slog.LevelDebug, "resolve",
		append(fileAttrs(files), slog.String("path", "embed://"+migrationsDir))...)

	m, err := newMigrator(cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	from := version(m)
	start := time.Now()
	err = m.Up()
	took := logger.RoundMS(time.Since(start))
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "apply",
			slog.String("status", "fail"), slog.String("err", err.Error()), slog.Duration("duration", took))
		return fmt.Errorf("apply migrations: %w", err)
	}

	to := version(m)
	applied := appliedBetween(files, from, to)
	if len(applied) > 0 {
		logger.LogEvent(ctx, logger.MIG, slog.LevelDebug, "apply", fileAttrs(applied)...)
	}
	logger.LogEvent(ctx, logger.MIG, slog.LevelInfo, "summary",
		slog.Uint64("from_ver", from),
		slog.Uint64("to_ver", to),
		slog.Int("files", len(applied)),
		slog.Duration("duration", took),
	)
	return nil
}

func newMigrator(cfg Config) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}
	return m, nil
}

// version is zero before the first migration.
func version(m *migrate.Migrate) uint64 {
	v, _, _ := m.Version()
	return uint64(v)
}

func fileAttrs(files []string) []slog.Attr {
	attrs := []slog.Attr{slog.Int("files_total", len(files))}
	if preview, cut := logger.SummarizeStrings(files, previewFiles); preview != "" {
		attrs = append(attrs, slog.String("files_preview", preview))
		if cut {
			attrs = append(attrs, slog.Bool("files_truncated", true))
		}
	}
	return attrs
}

// upFiles lists the *.up.sql files of dir in version order.
func upFiles(fsys fs.FS, dir string) []string {
	entries, _ := fs.ReadDir(fsys, dir)
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names
}

// appliedBetween keeps the files whose version lies in (from, to].
func appliedBetween(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		prefix, _, _ := strings.Cut(f, "_")
		if v, err := strconv.ParseUint(prefix, 10, 64); err == nil && v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
