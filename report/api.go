package report

import (
	"fmt"
	"os"
)

// ReportError reports an error returned by the lowering pipeline.  Lowering
// diagnostics are displayed with the offending operation; at verbose level the
// operation is dumped as well.
func ReportError(err error) {
	ensureReporter()

	rep.m.Lock()
	defer rep.m.Unlock()

	rep.isErr = true
	if rep.logLevel == LogLevelSilent {
		return
	}

	if d, ok := err.(*Diagnostic); ok {
		displayDiagnostic(d, rep.logLevel == LogLevelVerbose)
	} else {
		displayStdError(err)
	}
}

// ReportFatal reports a fatal error and exits.  These are expected errors that
// result from invalid invocation: missing files, bad configuration, etc.
func ReportFatal(message string, args ...interface{}) {
	ensureReporter()

	if rep.logLevel > LogLevelSilent {
		rep.m.Lock()
		displayFatal(fmt.Sprintf(message, args...))
		rep.m.Unlock()
	}

	os.Exit(1)
}

// ReportWarning reports a warning message.
func ReportWarning(message string, args ...interface{}) {
	ensureReporter()

	rep.m.Lock()
	defer rep.m.Unlock()

	if rep.logLevel >= LogLevelWarn {
		displayWarning(fmt.Sprintf(message, args...))
	}
}

// ReportInfo reports an informational message shown only at verbose level.
func ReportInfo(message string, args ...interface{}) {
	ensureReporter()

	rep.m.Lock()
	defer rep.m.Unlock()

	if rep.logLevel == LogLevelVerbose {
		displayInfo(fmt.Sprintf(message, args...))
	}
}

// ReportTable renders a table with a header row at verbose level.
func ReportTable(header []string, rows [][]string) {
	ensureReporter()

	rep.m.Lock()
	defer rep.m.Unlock()

	if rep.logLevel == LogLevelVerbose {
		displayTable(header, rows)
	}
}
