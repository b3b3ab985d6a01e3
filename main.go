package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"CryptoBacktest/config"
	"CryptoBacktest/internal/api"
	"CryptoBacktest/internal/handlers"
	"CryptoBacktest/internal/models"
	"CryptoBacktest/internal/operations/binance"
	"CryptoBacktest/internal/repositories"
	"CryptoBacktest/internal/services/strategy"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Setup database
	db := setupDatabase(cfg.Database)

	// Initialize repositories
	priceRepo := repositories.NewPriceRepository(db)
	runRepo := repositories.NewRunRepository(db)
	tradeRepo := repositories.NewTradeRepository(db)
	equityRepo := repositories.NewEquityRepository(db)
	candleFiles := repositories.NewCandleFileRepository(cfg.CandleDir)

	// Initialize Binance client
	client := binance.NewBinanceClient(cfg.Exchange.APIKey, cfg.Exchange.SecretKey)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	priceHandler := handlers.NewPriceHandler(client, priceRepo, cfg.Exchange.Market, cfg.Symbols, cfg.TimeFrames).
		WithCandleFiles(candleFiles)
	if cfg.Server.RecordPrices {
		if err := priceHandler.Start(ctx, cfg.Server.HistoryDays); err != nil {
			log.Fatal("Failed to start price handler:", err)
		}
		log.Println("Price recording started...")
	}

	backtestHandler := handlers.NewBacktestHandler(priceRepo, runRepo, tradeRepo, equityRepo, strategy.NewStrategyManager(), cfg.Backtest).
		WithCandleFiles(candleFiles)

	if cfg.Backtest.PresetsFile != "" {
		runPresets(ctx, backtestHandler, cfg.Backtest.PresetsFile)
	}

	server := api.NewServer(backtestHandler, priceHandler, cfg.Server.Port)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed:", err)
		}
	}()

	// Handle shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c

	log.Println("Shutting down...")
	cancel()
	if err := server.Shutdown(); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	log.Println("Shutdown complete")
}

func runPresets(ctx context.Context, h *handlers.BacktestHandler, path string) {
	presets, err := config.LoadPresets(path)
	if err != nil {
		log.Fatal("Failed to load presets:", err)
	}

	results, err := h.RunPresets(ctx, presets)
	if err != nil {
		log.Fatal("Preset backtests failed:", err)
	}

	fmt.Println("\n=== Backtest Results ===")
	for _, r := range results {
		fmt.Printf("%-20s %-16s trades %4d  win %6.2f%%  roi %8.2f%%  mdd %6.2f%%  final $%.2f  [%s]\n",
			r.Name,
			r.Strategy,
			r.Report.TotalTrades,
			r.Report.WinRate,
			r.Report.ROI,
			r.Report.MDD,
			r.Report.FinalBalance,
			r.RunID)
	}
}

func setupDatabase(dbConfig config.DatabaseConfig) *gorm.DB {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto migrate database schemas
	err = db.AutoMigrate(
		&models.Price{},
		&models.BacktestRun{},
		&models.TradeRecord{},
		&models.EquitySnapshot{},
	)
	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	return db
}
