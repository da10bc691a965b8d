package jobs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloo-solutions/shiftlog/internal/domain"
	"github.com/cloo-solutions/shiftlog/internal/service"
	"github.com/cloo-solutions/shiftlog/internal/telemetry"
)

const (
	ProcessedDir = "processed"
	FailedDir    = "failed"
)

// BatchIngester ingests a list of files in order.
type BatchIngester interface {
	IngestFiles(ctx context.Context, files []service.SourceFile, maxFiles int) *domain.BatchIngestionReport
}

// InboxProcessor ingests files dropped into a directory. Each pass takes at
// most maxFiles supported files in lexical order; the rest wait for the next
// pass. Handled files are moved to processed/ or failed/.
type InboxProcessor struct {
	dir      string
	ingester BatchIngester
	maxFiles int
	logger   *slog.Logger
	now      func() time.Time
}

func NewInboxProcessor(dir string, ingester BatchIngester, maxFiles int, logger *slog.Logger) *InboxProcessor {
	return &InboxProcessor{
		dir:      dir,
		ingester: ingester,
		maxFiles: maxFiles,
		logger:   logger.With("component", "inbox", "dir", dir),
		now:      time.Now,
	}
}

// ProcessJobs implements the JobProcessor interface
func (p *InboxProcessor) ProcessJobs(ctx context.Context) error {
	for _, sub := range []string{ProcessedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(p.dir, sub), 0o755); err != nil {
			return fmt.Errorf("failed to prepare inbox: %w", err)
		}
	}

	pending, err := p.pending()
	if err != nil {
		return fmt.Errorf("failed to list inbox: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	var batch []service.SourceFile
	for _, f := range pending {
		if !domain.IsSupportedFile(f.Name) {
			p.logger.Warn("unsupported file in inbox", "filename", f.Name)
			p.move(ctx, f, FailedDir)
			continue
		}
		if p.maxFiles > 0 && len(batch) == p.maxFiles {
			continue
		}
		batch = append(batch, f)
	}
	if len(batch) == 0 {
		return nil
	}

	p.logger.Info("processing inbox files", "files", len(batch), "waiting", len(pending)-len(batch))
	report := p.ingester.IngestFiles(ctx, batch, 0)

	results := make(map[string]domain.IngestionResult, len(report.FileResults))
	for _, res := range report.FileResults {
		results[res.Filename] = res
	}
	for _, f := range batch {
		res, ok := results[f.Name]
		switch {
		case ok && res.Success:
			p.move(ctx, f, ProcessedDir)
		case ok:
			p.move(ctx, f, FailedDir)
		default:
			p.logger.Warn("no ingestion result for inbox file, leaving it in place", "filename", f.Name)
		}
	}

	p.logger.Info(report.Message)
	return nil
}

func (p *InboxProcessor) pending() ([]service.SourceFile, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, err
	}
	var files []service.SourceFile
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") || strings.HasPrefix(e.Name(), "~$") {
			continue
		}
		files = append(files, service.NewSourceFile(filepath.Join(p.dir, e.Name())))
	}
	return files, nil
}

// move never overwrites: a name already taken in the destination gets a
// timestamp prefix.
func (p *InboxProcessor) move(ctx context.Context, f service.SourceFile, sub string) {
	dest := filepath.Join(p.dir, sub, f.Name)
	if _, err := os.Stat(dest); err == nil {
		dest = filepath.Join(p.dir, sub, p.now().UTC().Format("20060102T150405.000")+"-"+f.Name)
	} else if !errors.Is(err, fs.ErrNotExist) {
		p.logger.Error("failed to stat inbox destination", "filename", f.Name, "error", err)
		telemetry.CaptureError(ctx, err)
		return
	}
	if err := os.Rename(f.Path, dest); err != nil {
		p.logger.Error("failed to move inbox file", "filename", f.Name, "to", sub, "error", err)
		telemetry.CaptureError(ctx, fmt.Errorf("move %s to %s: %w", f.Name, sub, err))
	}
}
