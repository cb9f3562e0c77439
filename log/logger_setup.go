package log

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// SetupFromConfig configures enabled levels for all registered subloggers,
// then applies per-sublogger overrides
func SetupFromConfig(c *Config) {
	if c == nil {
		return
	}
	if c.Enabled != nil && !*c.Enabled {
		mu.Lock()
		for x := range subLoggers {
			subLoggers[x].Levels = Levels{}
		}
		mu.Unlock()
		return
	}
	mu.Lock()
	levels := splitLevel(c.Level)
	for x := range subLoggers {
		subLoggers[x].Levels = levels
	}
	mu.Unlock()
	for x := range c.SubLoggers {
		_ = configureSubLogger(c.SubLoggers[x].Name, c.SubLoggers[x].Level)
	}
}

// SetOutput redirects all sublogger output, used by tests and report capture
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	for x := range subLoggers {
		subLoggers[x].output = w
	}
}

func configureSubLogger(name, levels string) error {
	mu.Lock()
	defer mu.Unlock()
	logPtr, found := subLoggers[strings.ToUpper(name)]
	if !found {
		return fmt.Errorf("sub logger %v not found", name)
	}
	logPtr.Levels = splitLevel(levels)
	return nil
}

func splitLevel(level string) (l Levels) {
	enabledLevels := strings.Split(level, "|")
	for x := range enabledLevels {
		switch enabledLevels[x] {
		case "DEBUG":
			l.Debug = true
		case "INFO":
			l.Info = true
		case "WARN":
			l.Warn = true
		case "ERROR":
			l.Error = true
		}
	}
	return
}

func registerNewSubLogger(name string) *SubLogger {
	temp := SubLogger{
		name:   strings.ToUpper(name),
		output: os.Stdout,
	}
	temp.Levels = splitLevel("INFO|WARN|ERROR")
	subLoggers[temp.name] = &temp
	return &temp
}

// register all loggers at package init()
func init() {
	Global = registerNewSubLogger("LOG")

	BackTest = registerNewSubLogger("BACKTEST")
	CalendarMgr = registerNewSubLogger("CALENDAR")
	ConfigMgr = registerNewSubLogger("CONFIG")
	DataMgr = registerNewSubLogger("DATA")
	PortfolioMgr = registerNewSubLogger("PORTFOLIO")
	ProcessorMgr = registerNewSubLogger("PROCESSOR")
	ReportMgr = registerNewSubLogger("REPORT")
	StatisticsMgr = registerNewSubLogger("STATISTICS")
}
