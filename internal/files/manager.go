package files

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"attendcli/internal/config"
)

// Manager owns the stored result workbooks. Every upload run writes a new
// workbook into the results directory; Manager enforces the retention cap so
// the directory cannot grow without bound.
type Manager struct {
	paths     *config.Paths
	discovery *Discovery
	logger    *slog.Logger
}

// NewManager creates a manager over the configured path layout.
func NewManager(paths *config.Paths, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		paths:     paths,
		discovery: NewDiscovery(paths.DataDir),
		logger:    logger,
	}
}

// PruneResults removes the oldest stored workbooks beyond keep and returns
// the removed filenames. A keep of zero or less disables pruning, and a
// missing results directory prunes nothing. Files in the results directory
// that are not result workbooks are never touched.
func (m *Manager) PruneResults(keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}

	workbooks, err := m.discovery.FindResultWorkbooks(m.paths.ResultsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan results directory: %w", err)
	}
	if len(workbooks) <= keep {
		return nil, nil
	}

	// newest first, so everything past keep is the oldest runs
	var removed []string
	for _, wb := range workbooks[keep:] {
		if err := os.Remove(wb.Path); err != nil {
			return removed, fmt.Errorf("remove %s: %w", wb.Name, err)
		}
		removed = append(removed, wb.Name)
	}

	m.logger.Info("pruned stored results",
		slog.Int("removed", len(removed)),
		slog.Int("kept", keep))
	return removed, nil
}
