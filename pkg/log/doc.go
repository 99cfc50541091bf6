// Package log is a small wrapper around the standard library logger used by
// every textboard package.
//
// Each component asks for a named logger once and keeps it:
//
//	var logger = log.ForService("storage")
//
//	logger.Infof("opened %s", path)
//	logger.Warnf("full-text search failed, using substring fallback: %v", err)
//	logger.Debugf("match expression %q", expr)
//
// Lines look like
//
//	2025/06/01 12:00:00.000000 WARN [search>] full-text search failed ...
//
// Level labels are colored with github.com/fatih/color when writing to a
// terminal. Debug lines are dropped unless SetGlobalDebug(true) or
// EnableDebugFor(name) was called; the --debug CLI flag does the former.
//
// Tests redirect output with SetOutput(&buf) and assert on the buffer.
package log
