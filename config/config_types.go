package config

import (
	"errors"

	"github.com/quantegy/alphasim/log"
)

var (
	errInvalidDateRange    = errors.New("start date must be before end date")
	errInvalidInitialCash  = errors.New("initial cash must be greater than zero")
	errInvalidSpread       = errors.New("spread must be in [0, 1)")
	errInvalidShortReserve = errors.New("short reserve ratio cannot be negative")
	errInvalidWorkers      = errors.New("worker count must be greater than zero")
	errNoProcessors        = errors.New("at least one processor must be enabled")
	errUnknownDataSource   = errors.New("unknown data source")
)

// DataSettings selects and locates the candle provider
type DataSettings struct {
	// Source is either "csv" or "database"
	Source string `json:"source"`
	// Directory is the CSV data root when Source is "csv"
	Directory string `json:"directory"`
	// DatabasePath is the SQLite file when Source is "database"
	DatabasePath string `json:"database-path"`
}

// PortfolioSettings holds the ledger constants
type PortfolioSettings struct {
	InitialCash       float64 `json:"initial-cash"`
	Spread            float64 `json:"spread"`
	ShortReserveRatio float64 `json:"short-reserve-ratio"`
}

// ProcessorSettings enables one strategy processor with optional parameters
type ProcessorSettings struct {
	Name           string            `json:"name"`
	CustomSettings map[string]string `json:"custom-settings,omitempty"`
}

// Config is the full runtime configuration of a backtest run
type Config struct {
	// StartDate and EndDate bound the run, formatted 2006-01-02.
	// The end date is exclusive
	StartDate string `json:"start-date"`
	EndDate   string `json:"end-date"`

	Benchmark  string              `json:"benchmark"`
	Workers    int                 `json:"workers"`
	Data       DataSettings        `json:"data"`
	Portfolio  PortfolioSettings   `json:"portfolio"`
	Processors []ProcessorSettings `json:"processors"`
	Logging    *log.Config         `json:"logging,omitempty"`
}
