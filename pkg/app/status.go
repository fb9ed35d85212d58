package app

import (
	"runtime"
	"time"

	"github.com/womat/debug"
)

// Stats counts the frames of a channel.
type Stats struct {
	Frames     int
	Decoded    int
	Extraneous int
	Failed     int
	Truncated  int
}

// ChannelStatus is the state of one channel.
type ChannelStatus struct {
	Name        string
	Protocol    string
	Stats       Stats
	Measurement *Measurement
}

// Status is data about the health of myself.
type Status struct {
	Channels      []ChannelStatus
	NumGoroutines int
	Version       string
	ProgLang      string
	Time          string
}

// Status collects the counters and last measurements of all channels.
func (app *App) Status() Status {
	s := Status{
		NumGoroutines: runtime.NumGoroutine(),
		Version:       VERSION,
		ProgLang:      runtime.Version(),
		Time:          time.Now().Format(time.RFC3339),
	}

	for _, ch := range app.channels {
		ch.RLock()
		cs := ChannelStatus{
			Name:     ch.config.Name,
			Protocol: ch.decoder.Config().Name,
			Stats:    ch.stats,
		}
		if ch.valid {
			m := ch.last
			cs.Measurement = &m
		}
		ch.RUnlock()

		s.Channels = append(s.Channels, cs)
	}

	return s
}

func (app *App) logStatus() {
	for _, cs := range app.Status().Channels {
		debug.InfoLog.Printf("channel %q (%s): %d frames, %d decoded, %d extraneous, %d failed, %d truncated",
			cs.Name, cs.Protocol, cs.Stats.Frames, cs.Stats.Decoded, cs.Stats.Extraneous, cs.Stats.Failed, cs.Stats.Truncated)
	}
}
