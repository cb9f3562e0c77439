package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/quantegy/alphasim/common"
)

// ReadConfigFromFile will take a config from a path
func ReadConfigFromFile(path string) (*Config, error) {
	fileData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LoadConfig(fileData)
}

// LoadConfig unmarshalls byte data into a config struct
func LoadConfig(data []byte) (resp *Config, err error) {
	err = json.Unmarshal(data, &resp)
	return resp, err
}

// GenDefaultSettings returns a config ready for a CSV-backed run over the
// given date range
func GenDefaultSettings(startDate, endDate string) *Config {
	return &Config{
		StartDate: startDate,
		EndDate:   endDate,
		Benchmark: "SPY",
		Workers:   20,
		Data: DataSettings{
			Source:    "csv",
			Directory: "data",
		},
		Portfolio: PortfolioSettings{
			InitialCash:       100000,
			Spread:            0.001,
			ShortReserveRatio: 0.04,
		},
		Processors: []ProcessorSettings{
			{Name: "zscore"},
		},
	}
}

// Validate checks all config settings
func (c *Config) Validate() error {
	if _, _, err := c.DateRange(); err != nil {
		return err
	}
	if c.Portfolio.InitialCash <= 0 {
		return fmt.Errorf("%w, received %v", errInvalidInitialCash, c.Portfolio.InitialCash)
	}
	if c.Portfolio.Spread < 0 || c.Portfolio.Spread >= 1 {
		return fmt.Errorf("%w, received %v", errInvalidSpread, c.Portfolio.Spread)
	}
	if c.Portfolio.ShortReserveRatio < 0 {
		return fmt.Errorf("%w, received %v", errInvalidShortReserve, c.Portfolio.ShortReserveRatio)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w, received %v", errInvalidWorkers, c.Workers)
	}
	if len(c.Processors) == 0 {
		return errNoProcessors
	}
	switch c.Data.Source {
	case "csv", "database":
	default:
		return fmt.Errorf("%w %q", errUnknownDataSource, c.Data.Source)
	}
	return nil
}

// DateRange parses the configured start and end dates
func (c *Config) DateRange() (start, end time.Time, err error) {
	start, err = time.Parse(common.SimpleDateFormat, c.StartDate)
	if err != nil {
		return start, end, fmt.Errorf("cannot parse start date: %w", err)
	}
	end, err = time.Parse(common.SimpleDateFormat, c.EndDate)
	if err != nil {
		return start, end, fmt.Errorf("cannot parse end date: %w", err)
	}
	if !start.Before(end) {
		return start, end, fmt.Errorf("%w, received %v and %v", errInvalidDateRange, c.StartDate, c.EndDate)
	}
	return start, end, nil
}
