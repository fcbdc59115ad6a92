package merge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/marmos91/labelhub/internal/logger"
	"github.com/marmos91/labelhub/pkg/origin"
)

// ExportStats counts the outcome of an export.
type ExportStats struct {
	Copied  int `json:"copied" yaml:"copied"`
	Skipped int `json:"skipped" yaml:"skipped"`
	Failed  int `json:"failed" yaml:"failed"`
}

// Export copies each consistent image to outDir/<category>/<image>.
//
// Images whose category is not a usable directory name, or whose target
// already exists, are skipped. A failed read or write is counted and the
// export continues; only context cancellation stops it early.
func Export(ctx context.Context, src origin.Origin, consistent Set, outDir string) (ExportStats, error) {
	var stats ExportStats

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return stats, fmt.Errorf("create export directory: %w", err)
	}

	for _, img := range consistent.Images() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		entries := consistent[img]
		if len(entries) == 0 {
			stats.Skipped++
			continue
		}
		category := entries[0].Category
		if err := origin.ValidateFilename(category); err != nil {
			logger.Warn("Skipping image with unusable category",
				logger.KeyImage, img, logger.KeyCategory, category)
			stats.Skipped++
			continue
		}
		if err := origin.ValidateFilename(img); err != nil {
			stats.Skipped++
			continue
		}

		dst := filepath.Join(outDir, category, img)
		if _, err := os.Stat(dst); err == nil {
			stats.Skipped++
			continue
		}

		data, err := src.Open(ctx, img)
		if err != nil {
			logger.Warn("Export read failed", logger.KeyImage, img, logger.KeyError, err)
			stats.Failed++
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return stats, fmt.Errorf("create category directory: %w", err)
		}
		if err := os.WriteFile(dst, data, 0644); err != nil {
			logger.Warn("Export write failed", logger.KeyImage, img, logger.KeyError, err)
			stats.Failed++
			continue
		}
		stats.Copied++
	}

	logger.Info("Export complete",
		"copied", stats.Copied, "skipped", stats.Skipped, "failed", stats.Failed)
	return stats, nil
}
