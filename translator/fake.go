package translator

import (
	"context"
	"sync"

	"parlo/encoder"
)

// FakeStream is a scripted Stream for tests: sends are recorded, and
// inbound events are driven by hand through the handler.
type FakeStream struct {
	mu      sync.Mutex
	handler Handler
	sent    []encoder.Payload
	sendErr error
	closed  int
}

func (f *FakeStream) Send(payload encoder.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, payload)
	return nil
}

func (f *FakeStream) Close() error {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return nil
}

func (f *FakeStream) SetSendError(err error) {
	f.mu.Lock()
	f.sendErr = err
	f.mu.Unlock()
}

func (f *FakeStream) Sent() []encoder.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]encoder.Payload(nil), f.sent...)
}

func (f *FakeStream) CloseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Open simulates the remote side acknowledging the session.
func (f *FakeStream) Open() {
	if f.handler.OnOpen != nil {
		f.handler.OnOpen()
	}
}

// Message simulates one inbound server message.
func (f *FakeStream) Message(msg ServerMessage) {
	if f.handler.OnMessage != nil {
		f.handler.OnMessage(msg)
	}
}

// Fail simulates a transport failure.
func (f *FakeStream) Fail(err error) {
	if f.handler.OnError != nil {
		f.handler.OnError(err)
	}
}

// RemoteClose simulates the remote side closing the session.
func (f *FakeStream) RemoteClose() {
	if f.handler.OnClose != nil {
		f.handler.OnClose()
	}
}

// FakeDialer hands out FakeStreams and records the dialed config.
type FakeDialer struct {
	mu      sync.Mutex
	stream  *FakeStream
	dialErr error
	lastCfg StreamConfig
	dialed  chan struct{}
}

func NewFakeDialer() *FakeDialer {
	return &FakeDialer{dialed: make(chan struct{}, 8)}
}

func (d *FakeDialer) SetDialError(err error) {
	d.mu.Lock()
	d.dialErr = err
	d.mu.Unlock()
}

func (d *FakeDialer) Dial(_ context.Context, cfg StreamConfig, h Handler) (Stream, error) {
	d.mu.Lock()
	d.lastCfg = cfg
	if d.dialErr != nil {
		err := d.dialErr
		d.mu.Unlock()
		d.dialed <- struct{}{}
		return nil, err
	}
	d.stream = &FakeStream{handler: h}
	stream := d.stream
	d.mu.Unlock()
	d.dialed <- struct{}{}
	return stream, nil
}

// WaitDialed blocks until the next Dial call completes.
func (d *FakeDialer) WaitDialed() {
	<-d.dialed
}

func (d *FakeDialer) Stream() *FakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stream
}

func (d *FakeDialer) LastConfig() StreamConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastCfg
}
