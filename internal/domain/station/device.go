package station

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/midipatch/midipatch/internal/domain/wiring"
	"github.com/midipatch/midipatch/internal/infra/mididrv"
)

// MIDI control change numbers for the silence sequence, sent on channel 0
// with value 0 before an output connection is closed.
const (
	controlChange       = 0xB0
	allSoundOff         = 0x78
	resetAllControllers = 0x79
	allNotesOff         = 0x7B
)

// silenceSequence is the three-message shutdown transmission: All Sound Off,
// All Notes Off, Reset All Controllers, in that order.
func silenceSequence() [][]byte {
	return [][]byte{
		{controlChange, allSoundOff, 0},
		{controlChange, allNotesOff, 0},
		{controlChange, resetAllControllers, 0},
	}
}

// forwardRoute is one established forwarding binding on an input device.
type forwardRoute struct {
	dst     *Device
	channel wiring.ChannelSpec
}

// Device owns one discovered hardware port for the duration of a discovery
// pass. Devices are rediscovered fresh on every Wire call; identity is
// name + port index within that pass only.
//
// The mutex guards the output connection and the route set. Sends to one
// output connection are serialized through it, since routes from several
// input devices may target the same output and the underlying transmission
// primitive is not reentrant across threads.
type Device struct {
	name      string
	portIndex int

	mu      sync.Mutex
	in      mididrv.InPort
	out     mididrv.OutPort
	inOpen  bool
	outOpen bool
	stop    func()
	routes  []forwardRoute
}

func newInputDevice(port mididrv.InPort) *Device {
	return &Device{name: port.Name(), portIndex: port.Number(), in: port}
}

func newOutputDevice(port mididrv.OutPort) *Device {
	return &Device{name: port.Name(), portIndex: port.Number(), out: port}
}

// Name returns the driver-reported port name.
func (d *Device) Name() string { return d.name }

// PrepareOutput opens the device's output connection. Idempotent.
func (d *Device) PrepareOutput() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.prepareOutputLocked()
}

func (d *Device) prepareOutputLocked() error {
	if d.outOpen {
		return nil
	}
	if d.out == nil {
		return fmt.Errorf("device %q has no output port: %w", d.name, ErrNotOpen)
	}
	if err := d.out.Open(); err != nil {
		return fmt.Errorf("open output %q: %w", d.name, err)
	}
	d.outOpen = true
	return nil
}

// Send transmits one raw MIDI message through the open output connection.
// It fails with ErrNotOpen before PrepareOutput or after Shutdown.
func (d *Device) Send(msg []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.outOpen {
		return fmt.Errorf("send to %q: %w", d.name, ErrNotOpen)
	}
	if err := d.out.Send(msg); err != nil {
		return fmt.Errorf("send to %q: %w", d.name, err)
	}
	return nil
}

// RegisterForward binds this device's input to dst: dst's output is
// prepared, this device's input connection and receive callback are
// installed on first use, and the (dst, channel) route is appended.
func (d *Device) RegisterForward(dst *Device, channel wiring.ChannelSpec) error {
	if err := dst.PrepareOutput(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.inOpen {
		if d.in == nil {
			return fmt.Errorf("device %q has no input port", d.name)
		}
		if err := d.in.Open(); err != nil {
			return fmt.Errorf("open input %q: %w", d.name, err)
		}
		stop, err := d.in.Listen(d.receive)
		if err != nil {
			_ = d.in.Close()
			return fmt.Errorf("listen on %q: %w", d.name, err)
		}
		d.inOpen = true
		d.stop = stop
	}

	d.routes = append(d.routes, forwardRoute{dst: dst, channel: channel})
	return nil
}

// receive runs on the driver's listener thread for this input port. It
// forwards the entire unmodified message to every route whose channel spec
// matches the low nibble of the status byte.
func (d *Device) receive(msg []byte) {
	if len(msg) == 0 {
		return
	}
	nibble := msg[0] & 0x0F

	// Snapshot under the lock; the sends below take each destination's own
	// lock and must not hold ours.
	d.mu.Lock()
	routes := make([]forwardRoute, len(d.routes))
	copy(routes, d.routes)
	d.mu.Unlock()

	for _, r := range routes {
		if !r.channel.MatchesNibble(nibble) {
			continue
		}
		if err := r.dst.Send(msg); err != nil {
			// A reset may have closed the destination while this message
			// was in flight. The output is being silenced anyway; drop it.
			log.Debug().Err(err).Str("from", d.name).Str("to", r.dst.name).Msg("Forward dropped")
		}
	}
}

// Shutdown closes the input connection if open, then silences and closes
// the output connection if open. Idempotent: a second call is a no-op.
func (d *Device) Shutdown() error {
	// Stop the listener outside the lock: an in-flight receive callback
	// takes the same lock.
	d.mu.Lock()
	stop, in, inOpen := d.stop, d.in, d.inOpen
	d.stop = nil
	d.inOpen = false
	d.routes = nil
	d.mu.Unlock()

	var errs []error
	if inOpen {
		if stop != nil {
			stop()
		}
		if err := in.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close input %q: %w", d.name, err))
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.outOpen {
		for _, msg := range silenceSequence() {
			if err := d.out.Send(msg); err != nil {
				errs = append(errs, fmt.Errorf("silence %q: %w", d.name, err))
				break
			}
		}
		if err := d.out.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close output %q: %w", d.name, err))
		}
		d.outOpen = false
	}
	return errors.Join(errs...)
}
