package ingest

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/challan-processor/internal/common"
)

// Collect expands inputs into a sorted list of challan PDFs. Files are taken as given when
// their extension is allowed; directories are walked recursively, skipping hidden entries
// when skipHidden is set.
func Collect(inputs []string, skipHidden bool, logger *zap.Logger) ([]string, DirStats, error) {
	logger = common.LoggerOrDefault(logger)
	var (
		stats DirStats
		out   []string
	)
	seen := make(map[string]struct{})
	add := func(path string) {
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		out = append(out, path)
		stats.Matched++
	}

	for _, input := range inputs {
		if strings.TrimSpace(input) == "" {
			continue
		}
		info, err := os.Stat(input)
		if err != nil {
			return nil, stats, eris.Wrapf(err, "stat %s", input)
		}
		if !info.IsDir() {
			stats.Scanned++
			if AllowedExt(filepath.Ext(input)) {
				add(input)
			} else {
				stats.Skipped++
			}
			continue
		}

		err = filepath.WalkDir(input, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				stats.Failed++
				logger.Warn("walk error", zap.String("path", path), zap.Error(walkErr))
				return nil
			}
			if skipHidden && path != input && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			stats.Scanned++
			if !AllowedExt(filepath.Ext(path)) {
				stats.Skipped++
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, stats, eris.Wrapf(err, "walk %s", input)
		}
	}

	sort.Strings(out)
	logger.Debug("collected documents",
		zap.Uint32("scanned", stats.Scanned),
		zap.Uint32("matched", stats.Matched),
		zap.Uint32("skipped", stats.Skipped),
	)
	return out, stats, nil
}
