package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"skoobot/host/audio"
	"skoobot/host/config"
	"skoobot/host/robot"
	"skoobot/host/serial"
	"skoobot/protocol"
)

var errUsage = errors.New("invalid arguments (see -help)")

type app struct {
	cfg     *config.Config
	adapter robot.Adapter
	robot   *robot.Robot
}

// run executes one command, or the interactive prompt when args is empty.
func (a *app) run(ctx context.Context, args []string) error {
	if err := a.adapter.Enable(); err != nil {
		return err
	}
	if len(args) > 0 && args[0] == "scan" {
		return a.scan(ctx)
	}

	if err := a.connect(ctx); err != nil {
		return err
	}
	defer a.robot.Close()

	if len(args) == 0 {
		return a.repl(ctx)
	}
	return a.exec(ctx, args)
}

func (a *app) uuids() (robot.UUIDs, error) {
	if a.cfg.Robot.BaseUUID == "" {
		return robot.DefaultUUIDs(), nil
	}
	base, err := robot.ParseBase(a.cfg.Robot.BaseUUID)
	if err != nil {
		return robot.UUIDs{}, err
	}
	return robot.NewUUIDs(base), nil
}

func (a *app) scan(ctx context.Context) error {
	devices, err := a.find(ctx)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("No robots found")
		return nil
	}
	for _, d := range devices {
		fmt.Printf("%-20s %-12s %d dBm\n", d.Address, d.Name, d.RSSI)
	}
	return nil
}

func (a *app) find(ctx context.Context) ([]robot.Device, error) {
	u, err := a.uuids()
	if err != nil {
		return nil, err
	}
	slog.Info("[BLE] scanning", "timeout", a.cfg.Robot.ScanTimeout)
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Robot.ScanTimeout)
	defer cancel()
	return a.adapter.Scan(ctx, u.Service)
}

func (a *app) connect(ctx context.Context) error {
	addr := a.cfg.Robot.Address
	if addr == "" {
		devices, err := a.find(ctx)
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			return fmt.Errorf("no robot found")
		}
		addr = devices[0].Address
	}

	u, err := a.uuids()
	if err != nil {
		return err
	}
	opts := robot.DefaultOptions()
	opts.UUIDs = u
	opts.ReplyTimeout = a.cfg.Robot.Timeout
	opts.PollInterval = a.cfg.Record.PollInterval

	r, err := robot.Connect(ctx, a.adapter, addr, opts)
	if err != nil {
		return err
	}
	a.robot = r
	return nil
}

// exec runs one command line against the connected robot.
func (a *app) exec(ctx context.Context, args []string) error {
	switch args[0] {
	case "send":
		return a.send(args[1:])
	case "distance":
		d, err := a.robot.Distance(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Distance: %d mm\n", d)
	case "ambient":
		lux, err := a.robot.Ambient(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Ambient: %d lux\n", lux)
	case "gain":
		return a.gain(ctx, args[1:])
	case "record":
		return a.record(ctx, args[1:])
	case "watch":
		return a.watch(ctx)
	default:
		// A bare robot command name is a send.
		if _, ok := protocol.LookupCommand(args[0]); ok {
			return a.send(args)
		}
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

func (a *app) send(args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return errUsage
	}
	code, err := parseCommand(args[0])
	if err != nil {
		return err
	}
	var arg byte
	if len(args) == 2 {
		v, err := strconv.ParseUint(args[1], 0, 8)
		if err != nil {
			return fmt.Errorf("argument %q: %w", args[1], err)
		}
		arg = byte(v)
	}
	if err := a.robot.Command(code, arg); err != nil {
		return err
	}
	fmt.Printf("Sent %s (0x%02X)\n", protocol.CommandName(code), code)
	return nil
}

// parseCommand accepts a command name or a numeric code.
func parseCommand(s string) (byte, error) {
	if c, ok := protocol.LookupCommand(strings.ToLower(s)); ok {
		return c.Code, nil
	}
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("unknown command %q", s)
	}
	return byte(v), nil
}

func (a *app) gain(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	var (
		g   byte
		err error
	)
	switch args[0] {
	case "up":
		g, err = a.robot.GainUp(ctx)
	case "down":
		g, err = a.robot.GainDown(ctx)
	default:
		return errUsage
	}
	if err != nil {
		return err
	}
	fmt.Printf("Microphone gain: 0x%02X\n", g)
	return nil
}

func (a *app) record(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("record", flag.ContinueOnError)
	pull := fs.Bool("pull", a.cfg.Record.Mode == "pull", "poll for chunks instead of receiving notifications")
	out := fs.String("o", a.cfg.Record.Output, "output WAV file")
	play := fs.Bool("play", a.cfg.Record.Play, "play the recording when done")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Record.Timeout)
	defer cancel()

	fmt.Println("Recording...")
	samples, err := a.robot.Record(ctx, *pull)
	if err != nil {
		return err
	}
	if err := audio.SaveWAV(*out, samples, protocol.SampleRate); err != nil {
		return err
	}
	fmt.Printf("Saved %d samples (%.2fs) to %s\n", len(samples),
		float64(len(samples))/protocol.SampleRate, *out)

	if !*play {
		return nil
	}
	player, err := audio.NewPlayer()
	if err != nil {
		return err
	}
	defer player.Close()
	return player.Play(ctx, samples, protocol.SampleRate)
}

func (a *app) watch(ctx context.Context) error {
	fmt.Println("Waiting for light readings, Ctrl+C to stop")
	for {
		lux, err := a.robot.Light(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %d lux\n", time.Now().Format("15:04:05.000"), lux)
	}
}

// monitor tails the firmware's debug UART.
func (a *app) monitor(ctx context.Context, args []string) error {
	device := a.cfg.Monitor.Device
	if len(args) > 0 {
		device = args[0]
	}
	cfg := serial.DefaultConfig(device)
	cfg.Baud = a.cfg.Monitor.Baud

	port, err := serial.Open(cfg)
	if err != nil {
		return err
	}
	defer port.Close()

	fmt.Printf("Monitoring %s at %d baud, Ctrl+C to stop\n", device, cfg.Baud)
	return serial.Monitor(ctx, port, func(l serial.Line) {
		if l.Tag == "" {
			fmt.Println(l.Text)
			return
		}
		fmt.Printf("%-5s %s\n", l.Tag, l.Text)
	})
}

func (a *app) repl(ctx context.Context) error {
	fmt.Println("Connected. Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)

		switch parts[0] {
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return nil
		case "help", "?":
			usage()
			continue
		}
		if err := a.exec(ctx, parts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	return scanner.Err()
}
