package app

import (
	"fmt"
	"sync"

	"pulsedec/pkg/app/config"
	"pulsedec/pkg/capture"
	"pulsedec/pkg/decoder"
	"pulsedec/pkg/raspberry"

	"github.com/womat/debug"
)

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// config is the application configuration
	config *config.Config

	// gpio is the handler to the gpio chip
	gpio raspberry.Chip

	// channels are the receiver lines in config order
	channels []*channel

	// wg waits for the channel services
	wg sync.WaitGroup

	// shutdown signals application shutdown
	shutdown chan struct{}
}

// New builds the decoders of all configured channels and initialize the main app structure
func New(config *config.Config) (*App, error) {
	app := &App{
		config:   config,
		shutdown: make(chan struct{}),
	}

	for _, c := range config.Channels {
		dc, err := c.Decoder()
		if err != nil {
			return app, fmt.Errorf("channel %q: %w", c.Name, err)
		}

		d, err := decoder.New(dc)
		if err != nil {
			return app, fmt.Errorf("channel %q: %w", c.Name, err)
		}

		app.channels = append(app.channels, newChannel(c, d))
	}

	return app, nil
}

// Run starts the application.
func (app *App) Run() error {
	if len(app.channels) == 0 {
		return fmt.Errorf("no channels configured")
	}

	if err := app.init(); err != nil {
		return err
	}

	for _, ch := range app.channels {
		app.wg.Add(1)
		go func(ch *channel) {
			defer app.wg.Done()
			ch.service(ch.receiver.C)
		}(ch)
	}

	return nil
}

// init opens the gpio chip and starts a receiver on every channel line.
func (app *App) init() (err error) {
	app.gpio, err = raspberry.Open(app.config.Gpio.Backend, app.config.Gpio.Chip)
	if err != nil {
		debug.ErrorLog.Printf("can't open gpio: %v", err)
		return err
	}

	for _, ch := range app.channels {
		c := ch.config
		if ch.line, err = app.gpio.NewLine(c.Gpio, c.Terminator, c.BounceTime); err != nil {
			debug.ErrorLog.Printf("can't open gpio %v of channel %q: %v", c.Gpio, c.Name, err)
			return err
		}

		ch.receiver = capture.New(ch.line.C, c.Capture())
		debug.InfoLog.Printf("channel %q: decoding %s on gpio %v", c.Name, ch.decoder.Config().Name, c.Gpio)
	}

	return nil
}

// Measurement returns the last good measurement of the named channel.
func (app *App) Measurement(name string) (Measurement, bool) {
	for _, ch := range app.channels {
		if ch.config.Name == name {
			return ch.Last()
		}
	}
	return Measurement{}, false
}

// Shutdown returns the read only shutdown channel.
// Shutdown is used to be able to react on application shutdown. (see cmd/pulsedec.go)
func (app *App) Shutdown() <-chan struct{} {
	return app.shutdown
}

// Close releases the lines, which ends the receivers and the channel services.
func (app *App) Close() error {
	for _, ch := range app.channels {
		if ch.line != nil {
			_ = ch.line.Close()
		}
		if ch.receiver != nil {
			_ = ch.receiver.Close()
		}
	}
	app.wg.Wait()

	app.logStatus()

	if app.gpio != nil {
		return app.gpio.Close()
	}
	return nil
}
