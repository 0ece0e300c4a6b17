package station

import (
	"errors"
	"sync"

	"github.com/midipatch/midipatch/internal/infra/mididrv"
)

// fakeIn is an in-memory input port. Tests deliver messages through inject,
// standing in for the driver's listener thread.
type fakeIn struct {
	name   string
	number int

	mu       sync.Mutex
	open     bool
	opens    int
	closes   int
	openErr  error
	listener func([]byte)
}

func (f *fakeIn) Name() string { return f.name }

func (f *fakeIn) Number() int { return f.number }

func (f *fakeIn) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.open = true
	f.opens++
	return nil
}

func (f *fakeIn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	f.closes++
	return nil
}

func (f *fakeIn) Listen(onMessage func(msg []byte)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = onMessage
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.listener = nil
	}, nil
}

func (f *fakeIn) inject(msg []byte) {
	f.mu.Lock()
	listener := f.listener
	f.mu.Unlock()
	if listener != nil {
		listener(msg)
	}
}

// fakeOut is an in-memory output port recording everything sent through it.
type fakeOut struct {
	name   string
	number int

	mu      sync.Mutex
	open    bool
	opens   int
	closes  int
	openErr error
	sendErr error
	sent    [][]byte
}

func (f *fakeOut) Name() string { return f.name }

func (f *fakeOut) Number() int { return f.number }

func (f *fakeOut) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.open = true
	f.opens++
	return nil
}

func (f *fakeOut) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	f.closes++
	return nil
}

func (f *fakeOut) Send(msg []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	if !f.open {
		return errors.New("port closed")
	}
	cp := make([]byte, len(msg))
	copy(cp, msg)
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeOut) sentMessages() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

// fakeDriver enumerates whatever ports the test currently assigns to it, so
// topology changes between discovery passes are just slice mutations.
type fakeDriver struct {
	mu      sync.Mutex
	ins     []*fakeIn
	outs    []*fakeOut
	insErr  error
	outsErr error
}

func (f *fakeDriver) Ins() ([]mididrv.InPort, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insErr != nil {
		return nil, f.insErr
	}
	ports := make([]mididrv.InPort, len(f.ins))
	for i, in := range f.ins {
		ports[i] = in
	}
	return ports, nil
}

func (f *fakeDriver) Outs() ([]mididrv.OutPort, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.outsErr != nil {
		return nil, f.outsErr
	}
	ports := make([]mididrv.OutPort, len(f.outs))
	for i, out := range f.outs {
		ports[i] = out
	}
	return ports, nil
}

func (f *fakeDriver) Close() error { return nil }

func newFakeDriver(inNames, outNames []string) *fakeDriver {
	d := &fakeDriver{}
	for i, name := range inNames {
		d.ins = append(d.ins, &fakeIn{name: name, number: i})
	}
	for i, name := range outNames {
		d.outs = append(d.outs, &fakeOut{name: name, number: i})
	}
	return d
}
