package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/quantegy/alphasim/calendar"
	"github.com/quantegy/alphasim/config"
	"github.com/quantegy/alphasim/data"
	"github.com/quantegy/alphasim/data/csv"
	"github.com/quantegy/alphasim/data/database"
	"github.com/quantegy/alphasim/engine"
	"github.com/quantegy/alphasim/log"
	"github.com/quantegy/alphasim/processor"
	"github.com/quantegy/alphasim/processor/overnight"
	"github.com/quantegy/alphasim/processor/zscore"
	"github.com/quantegy/alphasim/report"
	"github.com/quantegy/alphasim/signaler"
)

// defaultUniverse backs processors configured without explicit symbols
var defaultUniverse = []string{
	"AAPL", "AMD", "AMZN", "GOOG", "META", "MSFT", "NVDA", "QQQ", "SPY", "TSLA",
}

func main() {
	var configPath, mode, startDate, endDate, dataDir string
	flag.StringVar(&configPath, "config", "", "path to a config file, overriding the other flags")
	flag.StringVar(&mode, "mode", "backtest", "run mode, backtest or trade")
	flag.StringVar(&startDate, "start", "2022-01-01", "simulation start date")
	flag.StringVar(&endDate, "end", "2023-01-01", "simulation end date, exclusive")
	flag.StringVar(&dataDir, "datadir", "data", "CSV data directory")
	flag.Parse()

	if mode == "trade" {
		fmt.Println(engine.ErrLiveUnsupported)
		os.Exit(1)
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.ReadConfigFromFile(configPath)
		if err != nil {
			fmt.Printf("could not read config %v: %v\n", configPath, err)
			os.Exit(1)
		}
	} else {
		cfg = config.GenDefaultSettings(startDate, endDate)
		cfg.Data.Directory = dataDir
	}
	log.SetupFromConfig(cfg.Logging)

	bt, provider, err := setupRun(cfg)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if closer, ok := provider.(*database.Provider); ok {
		defer closer.Close()
	}

	go func() {
		<-signaler.WaitForInterrupt()
		log.Warn(log.Global, "interrupt received, shutting down")
		bt.Stop()
	}()

	if err = bt.Run(context.Background()); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func setupRun(cfg *config.Config) (*engine.BackTest, data.Provider, error) {
	var provider data.Provider
	var err error
	switch cfg.Data.Source {
	case "database":
		provider, err = database.Connect(cfg.Data.DatabasePath)
	default:
		provider, err = csv.NewProvider(cfg.Data.Directory)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not create data provider: %w", err)
	}

	cal, err := calendar.NewUSEquity()
	if err != nil {
		return nil, nil, fmt.Errorf("could not create trading calendar: %w", err)
	}

	factories := make([]processor.Factory, 0, len(cfg.Processors))
	for x := range cfg.Processors {
		factory, err := resolveFactory(cfg.Processors[x])
		if err != nil {
			return nil, nil, err
		}
		factories = append(factories, factory)
	}

	bt, err := engine.New(cfg, provider, cal, report.NewTextSink(os.Stdout), factories)
	if err != nil {
		return nil, nil, err
	}
	return bt, provider, nil
}

func resolveFactory(settings config.ProcessorSettings) (processor.Factory, error) {
	universe := defaultUniverse
	if symbols, ok := settings.CustomSettings["symbols"]; ok {
		universe = strings.Split(symbols, ",")
	}
	switch settings.Name {
	case zscore.Name:
		return zscore.Factory{Universe: universe}, nil
	case overnight.Name:
		return overnight.Factory{Universe: universe}, nil
	}
	return nil, fmt.Errorf("%w: %v", processor.ErrUnknownFactory, settings.Name)
}
