package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/vitos/okx_spot_terminal/internal/domain"
	"github.com/vitos/okx_spot_terminal/internal/infrastructure/exchange"
	"github.com/vitos/okx_spot_terminal/internal/infrastructure/logger"
)

// One-shot connectivity probe: public endpoints always, private ones when
// OKX_* credentials are set.
func main() {
	log, err := logger.NewLogger("info")
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := exchange.Config{
		APIKey:     os.Getenv("OKX_API_KEY"),
		SecretKey:  os.Getenv("OKX_SECRET_KEY"),
		Passphrase: os.Getenv("OKX_PASSPHRASE"),
		Demo:       os.Getenv("OKX_DEMO") != "0",
	}
	adapter := exchange.NewOKXAdapter(cfg, log)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	instruments, err := adapter.GetInstruments(ctx, "SPOT")
	if err != nil {
		fmt.Printf("instruments: FAILED: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("instruments: OK (%d spot pairs)\n", len(instruments))

	tickers, err := adapter.GetTickers(ctx, "SPOT")
	if err != nil {
		fmt.Printf("tickers: FAILED: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("tickers: OK (%d)\n", len(tickers))

	candles, err := adapter.GetCandles(ctx, "BTC-USDT", domain.Bar1m, 10, "", "")
	if err != nil {
		fmt.Printf("candles: FAILED: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("candles: OK (%d bars", len(candles))
	if len(candles) > 0 {
		last := candles[len(candles)-1]
		fmt.Printf(", BTC-USDT last close %.2f", last.Close)
	}
	fmt.Println(")")

	if !adapter.Signer().Ready() {
		fmt.Println("balance: skipped (no credentials)")
		return
	}
	balance, err := adapter.GetBalance(ctx, "")
	if err != nil {
		fmt.Printf("balance: FAILED: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("balance: OK (total equity %.2f USD, %d currencies)\n",
		balance.TotalEquity, len(balance.Details))
}
