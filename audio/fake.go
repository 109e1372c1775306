package audio

import "sync"

// FakeContext is a test double: capture blocks are pushed by hand and
// output samples are pulled by hand.
type FakeContext struct {
	mu          sync.Mutex
	capture     *FakeCapture
	output      *FakeOutput
	deviceList  []DeviceInfo
	failCapture error
	failOutput  error
	closed      bool
}

func NewFakeContext() *FakeContext {
	return &FakeContext{}
}

func (f *FakeContext) SetDevices(devices []DeviceInfo) {
	f.mu.Lock()
	f.deviceList = devices
	f.mu.Unlock()
}

// FailNextCapture makes the next NewCapture call return err.
func (f *FakeContext) FailNextCapture(err error) {
	f.mu.Lock()
	f.failCapture = err
	f.mu.Unlock()
}

// FailNextOutput makes the next NewOutput call return err.
func (f *FakeContext) FailNextOutput(err error) {
	f.mu.Lock()
	f.failOutput = err
	f.mu.Unlock()
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deviceList, nil
}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCapture != nil {
		err := f.failCapture
		f.failCapture = nil
		return nil, err
	}
	f.capture = &FakeCapture{}
	return f.capture, nil
}

func (f *FakeContext) NewOutput(_ OutputConfig, render RenderCallback) (OutputStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOutput != nil {
		err := f.failOutput
		f.failOutput = nil
		return nil, err
	}
	f.output = &FakeOutput{render: render}
	return f.output, nil
}

func (f *FakeContext) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *FakeContext) Capture() *FakeCapture {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.capture
}

func (f *FakeContext) Output() *FakeOutput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.output
}

type FakeCapture struct {
	mu      sync.Mutex
	cb      CaptureCallback
	started bool
	stopped bool
	closed  bool
}

func (c *FakeCapture) Start() error {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
	return nil
}

func (c *FakeCapture) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
}

func (c *FakeCapture) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *FakeCapture) SetCallback(cb CaptureCallback) {
	c.mu.Lock()
	c.cb = cb
	c.mu.Unlock()
}

func (c *FakeCapture) ClearCallback() {
	c.mu.Lock()
	c.cb = nil
	c.mu.Unlock()
}

// Push feeds one block of captured samples to the registered callback,
// as the platform capture thread would.
func (c *FakeCapture) Push(samples []float32) {
	c.mu.Lock()
	cb := c.cb
	started, stopped := c.started, c.stopped
	c.mu.Unlock()
	if cb != nil && started && !stopped {
		cb(samples)
	}
}

func (c *FakeCapture) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started
}

func (c *FakeCapture) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

func (c *FakeCapture) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type FakeOutput struct {
	render  RenderCallback
	mu      sync.Mutex
	started bool
	closed  bool
}

func (o *FakeOutput) Start() error {
	o.mu.Lock()
	o.started = true
	o.mu.Unlock()
	return nil
}

func (o *FakeOutput) Stop() {
	o.mu.Lock()
	o.started = false
	o.mu.Unlock()
}

func (o *FakeOutput) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
}

// Render pulls n samples through the render callback, as the platform
// playback thread would, and returns them.
func (o *FakeOutput) Render(n int) []int16 {
	buf := make([]int16, n)
	o.render(buf)
	return buf
}

func (o *FakeOutput) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
