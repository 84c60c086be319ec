package questionpooler

import (
	"os"

	"github.com/charmbracelet/log"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "questionpooler",
})

// Logger returns the package default logger
func Logger() *log.Logger {
	return logger
}

// SetLogger replaces the package default logger
func SetLogger(l *log.Logger) {
	if l != nil {
		logger = l
	}
}

// SetVerbose switches the default logger between info and debug level
func SetVerbose(verbose bool) {
	if verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}
}

// VerboseLog logs only when verbose mode is enabled
func VerboseLog(format string, v ...interface{}) {
	logger.Debugf(format, v...)
}

// ParseLogLevel maps a config string onto a log level, defaulting to info
func ParseLogLevel(s string) log.Level {
	level, err := log.ParseLevel(s)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
