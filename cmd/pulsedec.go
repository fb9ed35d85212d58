package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"pulsedec/pkg/app"
	"pulsedec/pkg/app/config"
	"pulsedec/pkg/decoder"
	"pulsedec/pkg/pulse"

	"github.com/urfave/cli/v2"
	"github.com/womat/debug"
)

const defaultConfigFile = "/opt/womat/config/" + app.MODULE + ".yaml"

func main() {
	exitCode := 1
	defer func() {
		os.Exit(exitCode)
	}()

	// cfg holds the application configuration
	cfg := config.NewConfig()

	cliApp := &cli.App{
		Name:    app.MODULE,
		Usage:   "Pulse train decoder for sensors and infrared remote controls",
		Version: app.VERSION,
		Description: "Capture pulse trains on gpio lines and decode DHT22 sensor frames," +
			"\n manchester and pulse distance coded remote control frames.",
		UsageText: "pulsedec [--config <file>] [--log standard|debug|trace] [command]" +
			"\n\nEXAMPLE:" +
			"\n\tstart the receivers configured in pulsedec.yaml" +
			"\n\t\tpulsedec --config /opt/womat/pulsedec.yaml run" +
			"\n\tdecode captured frames with a preset" +
			"\n\t\tpulsedec decode --preset dht22 capture.yaml",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Destination: &cfg.Flag.ConfigFile, Value: defaultConfigFile, Usage: "load configuration from `FILE`"},
			&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Destination: &cfg.Flag.Debug, Usage: "`LEVEL` defines the log level (fatal|error|standard|debug|trace)"},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "capture and decode the configured channels until interrupted",
				Action: func(ctx *cli.Context) error { return run(cfg) },
			},
			{
				Name:      "decode",
				Usage:     "decode captured frames",
				ArgsUsage: "<capture.yaml>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "preset", Aliases: []string{"p"}, Usage: fmt.Sprintf("decode with protocol `NAME` %v", decoder.Presets())},
					&cli.StringFlag{Name: "channel", Usage: "decode with the protocol of channel `NAME` in the configuration file"},
					&cli.BoolFlag{Name: "lenient", Usage: "skip pulses of invalid width"},
				},
				Action: func(ctx *cli.Context) error { return decode(ctx, cfg) },
			},
			{
				Name:      "calibrate",
				Usage:     "estimate the pulse width of captured manchester frames",
				ArgsUsage: "<capture.yaml>",
				Action:    func(ctx *cli.Context) error { return calibrate(ctx, cfg) },
			},
		},
	}

	// we expect to have more command line flags in the future - sort them
	sort.Sort(cli.FlagsByName(cliApp.Flags))
	sort.Sort(cli.CommandsByName(cliApp.Commands))

	err := cliApp.Run(os.Args)
	if err != nil {
		debug.FatalLog.Print(err)
		exitCode = 1
		return
	}

	exitCode = 0
}

// run starts the receivers and waits for an exit signal.
func run(cfg *config.Config) error {
	if err := cfg.LoadConfig(); err != nil {
		return err
	}

	debug.SetDebug(cfg.Debug.File, cfg.Debug.Flag)
	defer func() {
		debug.InfoLog.Printf("closing debug file %s", cfg.Debug.FileString)
		_ = cfg.Debug.File.Close()
	}()

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		debug.InfoLog.Printf("closing app %s", app.Version())
		_ = a.Close()
	}()

	debug.InfoLog.Printf("starting app %s", app.Version())
	if err = a.Run(); err != nil {
		return err
	}

	// capture exit signals to ensure resources are released on exit.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	// wait for am os.Interrupt signal (CTRL C)
	select {
	case sig := <-quit:
		debug.InfoLog.Printf("Got %s signal. Aborting...", sig)
	case <-a.Shutdown():
	}

	return nil
}

// decode prints the decoded frames of a capture file.
func decode(ctx *cli.Context, cfg *config.Config) error {
	var dc decoder.Config
	var err error

	switch name := ctx.String("channel"); {
	case name != "":
		if dc, err = channelProtocol(cfg, name); err != nil {
			return err
		}
	default:
		preset := ctx.String("preset")
		if preset == "" {
			preset = "dht22"
		}
		if dc, err = decoder.Preset(preset); err != nil {
			return err
		}
	}
	dc.Lenient = dc.Lenient || ctx.Bool("lenient")

	captures, err := readCaptures(ctx, cfg)
	if err != nil {
		return err
	}

	failed, err := app.Decode(os.Stdout, dc, captures)
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d captures failed to decode", failed, len(captures))
	}
	return nil
}

// calibrate prints the estimated pulse width of a capture file.
func calibrate(ctx *cli.Context, cfg *config.Config) error {
	captures, err := readCaptures(ctx, cfg)
	if err != nil {
		return err
	}

	_, err = app.Calibrate(os.Stdout, captures)
	return err
}

// channelProtocol loads the configuration file and returns the protocol of a channel.
func channelProtocol(cfg *config.Config, name string) (decoder.Config, error) {
	if err := cfg.LoadConfig(); err != nil {
		return decoder.Config{}, err
	}

	for _, c := range cfg.Channels {
		if c.Name == name {
			return c.Decoder()
		}
	}
	return decoder.Config{}, fmt.Errorf("channel %q not found in %s", name, cfg.Flag.ConfigFile)
}

// readCaptures reads the capture file argument. The offline commands always log to stderr.
func readCaptures(ctx *cli.Context, cfg *config.Config) ([][]pulse.RawSymbol, error) {
	if cfg.Flag.Debug != "" {
		cfg.Debug.FlagString = cfg.Flag.Debug
	}
	cfg.Debug.FileString = "stderr"
	if err := cfg.SetDebugConfig(); err != nil {
		return nil, err
	}
	debug.SetDebug(cfg.Debug.File, cfg.Debug.Flag)

	if ctx.NArg() != 1 {
		return nil, fmt.Errorf("expected one capture file, got %d arguments", ctx.NArg())
	}

	file, err := os.Open(ctx.Args().First())
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	return app.ReadCaptures(file)
}
