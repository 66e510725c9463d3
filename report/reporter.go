package report

import (
	"sync"

	"tlog.app/go/errors"
)

// Reporter is responsible for reporting diagnostics, warnings and other kinds
// of messages to the user.  The reporter respects the set log level and is
// synchronized: its methods can be safely called from multiple goroutines.
type Reporter struct {
	// The mutex used to synchronize different reporting calls.
	m *sync.Mutex

	// The selected log level of the reporter.  This must be one of the
	// enumerated log levels below.
	logLevel int

	// Indicates whether or not an error has been reported.
	isErr bool
}

// Enumeration of the different possible log levels.
const (
	LogLevelSilent  = iota // Displays no output.
	LogLevelError          // Displays only errors to the user.
	LogLevelWarn           // Displays only warnings and errors to the user.
	LogLevelVerbose        // Displays all messages to the user (default).
)

var logLevelNames = map[string]int{
	"silent":  LogLevelSilent,
	"error":   LogLevelError,
	"warn":    LogLevelWarn,
	"verbose": LogLevelVerbose,
}

// LogLevelNames lists the accepted log level names.
var LogLevelNames = []string{"silent", "error", "warn", "verbose"}

// ParseLogLevel converts a log level name into its enumerated value.
func ParseLogLevel(name string) (int, error) {
	if lvl, ok := logLevelNames[name]; ok {
		return lvl, nil
	}

	return 0, errors.New("unknown log level: %q", name)
}

// rep is the global reporter instance.
var rep *Reporter

// InitReporter initializes the global reporter to the given log level.  If the
// reporter has already been initialized, only the log level is updated.
func InitReporter(logLevel int) {
	if rep == nil {
		rep = &Reporter{
			m:        &sync.Mutex{},
			logLevel: logLevel,
			isErr:    false,
		}

		return
	}

	rep.m.Lock()
	rep.logLevel = logLevel
	rep.m.Unlock()
}

// LogLevel returns the current log level.
func LogLevel() int {
	ensureReporter()
	return rep.logLevel
}

// AnyErrors returns whether an error has been reported.
func AnyErrors() bool {
	ensureReporter()
	return rep.isErr
}

func ensureReporter() {
	if rep == nil {
		InitReporter(LogLevelVerbose)
	}
}
