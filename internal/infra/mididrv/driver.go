// Package mididrv wraps the gomidi rtmidi driver behind the small port
// surface the router core consumes: enumerate ports by name in stable index
// order, open/close a port, send a byte sequence, and deliver received
// messages through an asynchronous callback.
//
// Port indices are stable only within one enumeration pass. Callers must
// re-enumerate instead of holding port handles across topology changes.
package mididrv

// InPort is one receivable hardware port. Listen installs the receive
// callback; the driver invokes it on its own thread, one message at a time
// per port, concurrently with callbacks of other ports.
type InPort interface {
	Name() string
	Number() int
	Open() error
	Close() error
	Listen(onMessage func(msg []byte)) (stop func(), err error)
}

// OutPort is one sendable hardware port.
type OutPort interface {
	Name() string
	Number() int
	Open() error
	Close() error
	Send(msg []byte) error
}

// Driver enumerates the currently available ports. Ins and Outs report
// fresh listings on every call, preserving driver-reported order.
type Driver interface {
	Ins() ([]InPort, error)
	Outs() ([]OutPort, error)
	Close() error
}
