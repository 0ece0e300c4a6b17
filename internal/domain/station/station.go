// Package station routes messages between MIDI hardware ports. A Station
// applies a wiring against freshly discovered devices, installs one
// forwarding route per resolved rule, and owns the lifecycle operations:
// Wire, Reset, Rewire and the wiring-independent Panic sweep.
package station

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/midipatch/midipatch/internal/domain/wiring"
	"github.com/midipatch/midipatch/internal/infra/mididrv"
)

// Station orchestrates device discovery, rule resolution and route
// registration. Its operations are serialized through a mutex so the
// signal-triggered Rewire and Panic are safe against each other and against
// a Wire in progress; message forwarding itself runs on the driver's
// listener threads and is guarded per device.
type Station struct {
	drv mididrv.Driver

	mu         sync.Mutex
	inputs     []*Device // active input devices (non-empty route sets)
	outputs    []*Device // active output devices (open output connections)
	lastWiring wiring.Wiring
	wired      bool
}

// New creates a Station on top of the given driver.
func New(drv mididrv.Driver) *Station {
	return &Station{drv: drv}
}

// Wired reports whether a wiring is currently applied.
func (s *Station) Wired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wired
}

// Wire applies the routing table against freshly discovered devices and
// records it for Rewire. Rules whose source or destination matches no
// device are skipped with a diagnostic; a spec matching more than one
// device aborts the whole call before any route is registered.
func (s *Station) Wire(w wiring.Wiring) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wireLocked(w)
}

func (s *Station) wireLocked(w wiring.Wiring) error {
	// Recorded before rule processing so a Rewire can retry a wiring whose
	// first application failed against the then-current topology.
	s.lastWiring = w

	inputs, err := s.discoverInputs()
	if err != nil {
		return err
	}
	outputs, err := s.discoverOutputs()
	if err != nil {
		return err
	}

	// Resolve every rule before registering anything, so an ambiguous spec
	// aborts without leaving this call's routes half-applied.
	type binding struct {
		src     *Device
		dst     *Device
		channel wiring.ChannelSpec
	}
	var bindings []binding
	for i, rule := range w {
		src, err := resolveDevice(rule.Source, inputs)
		if err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
		dst, err := resolveDevice(rule.Destination, outputs)
		if err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}

		if src == nil {
			log.Warn().Int("rule", i).Str("spec", rule.Source.String()).Msg("No input device matches source spec")
		}
		if dst == nil {
			log.Warn().Int("rule", i).Str("spec", rule.Destination.String()).Msg("No output device matches destination spec")
		}
		if src == nil || dst == nil {
			log.Warn().Int("rule", i).Msg("Skipping rule")
			continue
		}
		bindings = append(bindings, binding{src: src, dst: dst, channel: rule.Channel})
	}

	for i, b := range bindings {
		if err := b.src.RegisterForward(b.dst, b.channel); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
		s.markActive(b.src, b.dst)
		log.Info().
			Str("source", b.src.Name()).
			Str("channel", b.channel.String()).
			Str("destination", b.dst.Name()).
			Msg("Route established")
	}

	s.wired = true
	log.Info().Int("rules", len(w)).Int("routes", len(bindings)).Msg("Wiring applied")
	return nil
}

func (s *Station) markActive(src, dst *Device) {
	if !containsDevice(s.inputs, src) {
		s.inputs = append(s.inputs, src)
	}
	if !containsDevice(s.outputs, dst) {
		s.outputs = append(s.outputs, dst)
	}
}

func containsDevice(devices []*Device, d *Device) bool {
	for _, have := range devices {
		if have == d {
			return true
		}
	}
	return false
}

// Reset shuts down every active device, silencing each open output, and
// clears the active sets. A second consecutive call has nothing to act on.
func (s *Station) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetLocked()
}

func (s *Station) resetLocked() error {
	var errs []error
	for _, d := range s.inputs {
		if err := d.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, d := range s.outputs {
		if err := d.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	s.inputs = nil
	s.outputs = nil
	s.wired = false
	return errors.Join(errs...)
}

// Rewire tears down the current routes and reapplies the last wiring
// against a fresh discovery pass; the port topology may have changed since
// it was first applied. Fails with ErrNoPriorWiring before any Wire.
func (s *Station) Rewire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastWiring == nil {
		return ErrNoPriorWiring
	}
	if err := s.resetLocked(); err != nil {
		log.Warn().Err(err).Msg("Reset during rewire reported errors")
	}
	return s.wireLocked(s.lastWiring)
}

// Panic sends the silence sequence to every currently discoverable output
// port, active or not, opening each transiently. It leaves the applied
// wiring and the active sets untouched and keeps sweeping past per-port
// failures.
func (s *Station) Panic() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	outs, err := s.drv.Outs()
	if err != nil {
		return fmt.Errorf("list MIDI outputs: %w", err)
	}

	var errs []error
	for _, port := range outs {
		if err := silencePort(port); err != nil {
			log.Warn().Err(err).Str("port", port.Name()).Msg("Panic sweep failed for port")
			errs = append(errs, err)
		}
	}
	log.Info().Int("ports", len(outs)).Msg("Panic sweep complete")
	return errors.Join(errs...)
}

func silencePort(port mididrv.OutPort) error {
	if err := port.Open(); err != nil {
		return fmt.Errorf("open output %q: %w", port.Name(), err)
	}
	defer port.Close()

	for _, msg := range silenceSequence() {
		if err := port.Send(msg); err != nil {
			return fmt.Errorf("silence %q: %w", port.Name(), err)
		}
	}
	return nil
}

// discoverInputs enumerates the input ports available right now. Discovery
// runs fresh inside every Wire call; port indices are not stable across
// driver-level topology changes.
func (s *Station) discoverInputs() ([]*Device, error) {
	ports, err := s.drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("discover inputs: %w", err)
	}
	devices := make([]*Device, len(ports))
	for i, port := range ports {
		devices[i] = newInputDevice(port)
	}
	return devices, nil
}

func (s *Station) discoverOutputs() ([]*Device, error) {
	ports, err := s.drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("discover outputs: %w", err)
	}
	devices := make([]*Device, len(ports))
	for i, port := range ports {
		devices[i] = newOutputDevice(port)
	}
	return devices, nil
}

// resolveDevice collects the candidates matching spec. Zero matches
// resolves to nil (the caller skips the rule); more than one is an
// AmbiguousSpecError.
func resolveDevice(spec wiring.DeviceNameSpec, candidates []*Device) (*Device, error) {
	var found *Device
	var names []string
	for _, d := range candidates {
		if spec.Matches(d.name) {
			found = d
			names = append(names, d.name)
		}
	}
	if len(names) > 1 {
		return nil, &AmbiguousSpecError{Spec: spec.String(), Matches: names}
	}
	return found, nil
}
