// Package wiring defines the routing table and the specification types used
// to select devices and filter messages. Everything in this package is pure:
// matching never touches the driver.
package wiring

import (
	"fmt"
	"strings"
)

// DeviceNameSpec is a user-declared pattern that selects a device by name.
type DeviceNameSpec interface {
	// Matches reports whether the given port name satisfies the spec.
	Matches(deviceName string) bool

	// String renders the spec for diagnostics ("no device matches ...").
	String() string
}

// Substring matches any device whose name contains the text,
// case-insensitively.
type Substring string

// Matches reports whether name contains the spec text, ignoring case.
func (s Substring) Matches(deviceName string) bool {
	return strings.Contains(strings.ToLower(deviceName), strings.ToLower(string(s)))
}

func (s Substring) String() string {
	return fmt.Sprintf("substring(%q)", string(s))
}

// Exact matches only the device whose full name equals the text,
// case-sensitively.
type Exact string

// Matches reports whether name equals the spec text byte for byte.
func (e Exact) Matches(deviceName string) bool {
	return string(e) == deviceName
}

func (e Exact) String() string {
	return fmt.Sprintf("exact(%q)", string(e))
}

// ChannelSpec decides, per forwarded message, whether a MIDI channel passes
// the filter. The nibble is the low 4 bits of the message's status byte,
// zero-indexed 0-15.
type ChannelSpec interface {
	MatchesNibble(nibble uint8) bool
	String() string
}

type anyChannel struct{}

// AnyChannel matches every MIDI channel.
var AnyChannel ChannelSpec = anyChannel{}

func (anyChannel) MatchesNibble(uint8) bool { return true }

func (anyChannel) String() string { return "any" }

// Channel matches exactly one MIDI channel, numbered 1-16 the way users and
// hardware panels number them.
type Channel uint8

// MatchesNibble reports whether the zero-indexed channel nibble corresponds
// to this 1-indexed channel.
func (c Channel) MatchesNibble(nibble uint8) bool {
	return uint8(c) == nibble+1
}

func (c Channel) String() string {
	return fmt.Sprintf("channel(%d)", uint8(c))
}

// Rule wires every message arriving on the source device whose channel
// passes the filter to the destination device.
type Rule struct {
	Source      DeviceNameSpec
	Channel     ChannelSpec
	Destination DeviceNameSpec
}

// Wiring is the ordered routing table. Order defines application order;
// rules are otherwise independent.
type Wiring []Rule
