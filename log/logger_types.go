package log

import (
	"io"
	"sync"
)

const (
	timestampFormat = "02/01/2006 15:04:05"
	spacer          = " | "
)

var (
	// read/write mutex for logger
	mu = &sync.RWMutex{}

	subLoggers = map[string]*SubLogger{}

	// Global is the catch-all sublogger
	Global        *SubLogger
	BackTest      *SubLogger
	CalendarMgr   *SubLogger
	ConfigMgr     *SubLogger
	DataMgr       *SubLogger
	PortfolioMgr  *SubLogger
	ProcessorMgr  *SubLogger
	ReportMgr     *SubLogger
	StatisticsMgr *SubLogger
)

// Config holds logger configuration settings loaded from application config
type Config struct {
	Enabled    *bool             `json:"enabled"`
	Level      string            `json:"level"`
	SubLoggers []SubLoggerConfig `json:"subloggers,omitempty"`
}

// SubLoggerConfig holds sub logger configuration settings
type SubLoggerConfig struct {
	Name  string `json:"name"`
	Level string `json:"level"`
}

// Levels flags for each sub logger type
type Levels struct {
	Info, Debug, Warn, Error bool
}

// SubLogger defines an independently levelled logging destination for one
// subsystem
type SubLogger struct {
	Levels
	name   string
	output io.Writer
}
