package mididrv

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// RTMIDI is the hardware-backed Driver built on gomidi's rtmidi driver.
type RTMIDI struct {
	drv *rtmididrv.Driver
}

// NewRTMIDI initializes the rtmidi driver. Call Close when done.
func NewRTMIDI() (*RTMIDI, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	return &RTMIDI{drv: drv}, nil
}

// Ins enumerates the currently available input ports in driver order.
func (r *RTMIDI) Ins() ([]InPort, error) {
	ins, err := r.drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("list MIDI inputs: %w", err)
	}
	ports := make([]InPort, len(ins))
	for i, in := range ins {
		ports[i] = &rtIn{in: in}
	}
	return ports, nil
}

// Outs enumerates the currently available output ports in driver order.
func (r *RTMIDI) Outs() ([]OutPort, error) {
	outs, err := r.drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("list MIDI outputs: %w", err)
	}
	ports := make([]OutPort, len(outs))
	for i, out := range outs {
		ports[i] = &rtOut{out: out}
	}
	return ports, nil
}

// Close shuts down the rtmidi driver and every port it opened.
func (r *RTMIDI) Close() error {
	return r.drv.Close()
}

type rtIn struct {
	in drivers.In
}

func (p *rtIn) Name() string { return p.in.String() }

func (p *rtIn) Number() int { return p.in.Number() }

func (p *rtIn) Open() error { return p.in.Open() }

func (p *rtIn) Close() error { return p.in.Close() }

func (p *rtIn) Listen(onMessage func(msg []byte)) (func(), error) {
	name := p.in.String()
	return p.in.Listen(func(msg []byte, _ int32) {
		onMessage(msg)
	}, drivers.ListenConfig{
		OnErr: func(err error) {
			log.Warn().Err(err).Str("port", name).Msg("MIDI listener error")
		},
	})
}

type rtOut struct {
	out drivers.Out
}

func (p *rtOut) Name() string { return p.out.String() }

func (p *rtOut) Number() int { return p.out.Number() }

func (p *rtOut) Open() error { return p.out.Open() }

func (p *rtOut) Close() error { return p.out.Close() }

func (p *rtOut) Send(msg []byte) error { return p.out.Send(msg) }
