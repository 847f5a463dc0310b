package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/roman-kulish/vna-sparams/cmd/vna-tui/app"
	"github.com/roman-kulish/vna-sparams/internal/scpi"
)

func main() {
	config := app.Config{}

	var logPath string
	var debug bool
	flag.StringVar(&config.Address, "address", "10.43.1.19", "Initial IPv4 address of the analyzer")
	flag.IntVar(&config.Port, "port", scpi.DefaultPort, "SCPI port of the analyzer")
	flag.StringVar(&config.DBPath, "db", "", "Path to the measurement journal database")
	flag.StringVar(&logPath, "log", "vna-tui.log", "Path to the log file")
	flag.BoolVar(&debug, "debug", false, "Log instrument traffic")
	flag.Parse()

	// the terminal belongs to the interface, logs go to a file
	f, err := tea.LogToFile(logPath, "vna-tui")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file: %s\n", err)
		os.Exit(1)
	}
	defer f.Close()

	var logLevel slog.LevelVar
	if debug {
		logLevel.Set(slog.LevelDebug)
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: &logLevel}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = app.Run(ctx, &config, logger); err != nil {
		logger.Error(err.Error())
		fmt.Fprintln(os.Stderr, err)

		cancel()
		f.Close()
		os.Exit(1)
	}
}
