// Command solarctl analyses solar irradiance CSV files from the terminal.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/solardash/internal/cli"
)

func main() {
	// A missing .env file is fine; SOLAR_* variables may come from the shell.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
