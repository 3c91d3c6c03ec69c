package distribution

import (
	"fmt"
	"os"

	"profit-distribution-go/internal/models"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

const runLogTimeLayout = "2006-01-02 15:04:05"

// FormatRunLogLine renders the single line persisted per run.
func FormatRunLogLine(summary *models.RunSummary) string {
	line := fmt.Sprintf("%s - Profits distributed: %d investments, $%s total",
		summary.FinishedAt.Format(runLogTimeLayout), summary.Processed, summary.TotalDistributed.StringFixed(2))
	if summary.Errors > 0 {
		line += fmt.Sprintf(", %d errors", summary.Errors)
	}
	return line
}

// AppendRunLog appends the run line to path while holding an exclusive
// advisory lock on the file, so concurrent runs never interleave lines.
func AppendRunLog(path string, summary *models.RunSummary) error {
	lock := flock.New(path)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock run log %s: %w", path, err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			zap.L().Warn("Failed to unlock run log", zap.String("path", path), zap.Error(err))
		}
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open run log %s: %w", path, err)
	}

	if _, err := f.WriteString(FormatRunLogLine(summary) + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write run log %s: %w", path, err)
	}
	return f.Close()
}
