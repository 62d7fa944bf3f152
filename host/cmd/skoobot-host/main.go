package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"skoobot/host/config"
	"skoobot/host/robot"
	"skoobot/protocol"
)

var (
	configPath = flag.String("config", "", "path to config file (default: ~/.config/skoobot/config.yaml)")
	address    = flag.String("address", "", "robot address (default: first robot found)")
	verbose    = flag.Bool("verbose", false, "enable debug logging")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: config validation: %v\n", err)
		os.Exit(1)
	}
	if *address != "" {
		cfg.Robot.Address = *address
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}
	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &app{cfg: cfg, adapter: robot.NewTinyGoAdapter()}
	args := flag.Args()

	if len(args) > 0 && args[0] == "monitor" {
		err = app.monitor(ctx, args[1:])
	} else {
		err = app.run(ctx, args)
	}
	if err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadOrDefault(config.DefaultConfigPath())
	}
	return config.Load(path)
}

func setupLogging(level string) {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	slog.SetDefault(slog.New(h))
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: skoobot-host [flags] [command [args]]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  scan                     list advertising robots\n")
	fmt.Fprintf(os.Stderr, "  send <name|0xNN> [arg]   write a command\n")
	fmt.Fprintf(os.Stderr, "  distance                 read the range sensor (mm)\n")
	fmt.Fprintf(os.Stderr, "  ambient                  read ambient light (lux)\n")
	fmt.Fprintf(os.Stderr, "  gain up|down             step the microphone gain\n")
	fmt.Fprintf(os.Stderr, "  record [-pull] [-o f] [-play]\n")
	fmt.Fprintf(os.Stderr, "                           record sound and save it as WAV\n")
	fmt.Fprintf(os.Stderr, "  watch                    print light readings sent in photovore mode\n")
	fmt.Fprintf(os.Stderr, "  monitor [device]         tail the UART debug log\n")
	fmt.Fprintf(os.Stderr, "  (none)                   interactive prompt\n\n")
	fmt.Fprintf(os.Stderr, "Robot commands for send:\n")
	for _, c := range protocol.Commands {
		fmt.Fprintf(os.Stderr, "  %-14s 0x%02X  %s\n", c.Name, c.Code, c.Help)
	}
	fmt.Fprintf(os.Stderr, "\nFlags:\n")
	flag.PrintDefaults()
}
