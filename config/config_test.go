package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenDefaultSettingsValidates(t *testing.T) {
	t.Parallel()
	cfg := GenDefaultSettings("2023-01-01", "2023-06-30")
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	cfg, err := LoadConfig([]byte(`{
		"start-date": "2023-01-01",
		"end-date": "2023-02-01",
		"benchmark": "SPY",
		"workers": 4,
		"data": {"source": "database", "database-path": "candles.db"},
		"portfolio": {"initial-cash": 50000, "spread": 0.001, "short-reserve-ratio": 0.04},
		"processors": [{"name": "overnight"}]
	}`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "database", cfg.Data.Source)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "overnight", cfg.Processors[0].Name)

	_, err = LoadConfig([]byte(`{not json`))
	assert.Error(t, err)
}

func TestReadConfigFromFileMissing(t *testing.T) {
	t.Parallel()
	_, err := ReadConfigFromFile("testdata/definitely-not-here.json")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	base := func() *Config { return GenDefaultSettings("2023-01-01", "2023-06-30") }

	cfg := base()
	cfg.EndDate = "2022-01-01"
	assert.ErrorIs(t, cfg.Validate(), errInvalidDateRange)

	cfg = base()
	cfg.StartDate = "01/02/2023"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Portfolio.InitialCash = 0
	assert.ErrorIs(t, cfg.Validate(), errInvalidInitialCash)

	cfg = base()
	cfg.Portfolio.Spread = 1
	assert.ErrorIs(t, cfg.Validate(), errInvalidSpread)

	cfg = base()
	cfg.Portfolio.ShortReserveRatio = -0.1
	assert.ErrorIs(t, cfg.Validate(), errInvalidShortReserve)

	cfg = base()
	cfg.Workers = 0
	assert.ErrorIs(t, cfg.Validate(), errInvalidWorkers)

	cfg = base()
	cfg.Processors = nil
	assert.ErrorIs(t, cfg.Validate(), errNoProcessors)

	cfg = base()
	cfg.Data.Source = "ftp"
	assert.ErrorIs(t, cfg.Validate(), errUnknownDataSource)
}
