// Package files provides filesystem discovery and bookkeeping for the
// attendance processing application.
//
// Discovery locates punch report files (.csv/.xlsx) and stored result
// workbooks, parsing the run ID out of attendance_<id>.xlsx names.
//
// Manager enforces the retention cap on the results directory so stored
// workbooks from old runs do not accumulate forever.
//
// Example usage:
//
//	discovery := files.NewDiscovery("/path/to/base")
//	reports, err := discovery.FindReportFiles("uploads")
//
//	manager := files.NewManager(paths, logger)
//	removed, err := manager.PruneResults(50)
package files
