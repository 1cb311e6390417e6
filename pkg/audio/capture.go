package audio

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dictation-core/dictation/pkg/logging"
)

// Capturer is a started, owned microphone line. It is the seam the real
// malgo-backed implementation and test fakes both satisfy.
type Capturer interface {
	// Samples delivers PCM16LE mono chunks as they arrive.
	Samples() <-chan []byte
	// Errors delivers unexpected line failures (LineUnavailable, PermissionDenied, ...).
	Errors() <-chan error
	// Stop halts and releases the line. Safe to call more than once.
	Stop() error
}

// LineConfig is passed to a CapturerFactory to open a line matching the
// fixed audio format on the named (or default) device.
type LineConfig struct {
	DeviceName string
	ChunkMs    int
}

// CapturerFactory opens and starts a Capturer for a fresh session.
type CapturerFactory func(cfg LineConfig) (Capturer, error)

// CaptureErrorEvent is emitted by the capture worker when the line fails
// unexpectedly mid-session.
type CaptureErrorEvent struct {
	Reason error
	At     time.Time
}

// CaptureService owns at most one capture session end to end: opening the
// microphone line, draining it into a ring buffer, and producing the
// validated snapshot on read.
type CaptureService struct {
	factory       CapturerFactory
	deviceName    string
	chunkMs       int
	maxDurationMs int
	validator     *Validator
	logger        logging.Logger
	onError       func(CaptureErrorEvent)

	mu      sync.Mutex
	session *captureSession
}

type captureSession struct {
	id         string
	active     bool
	canceled   bool
	buffer     *RingBuffer
	cap        Capturer
	done       chan struct{}
	stop       chan struct{}
	stopOnce   sync.Once
}

func (s *captureSession) requestStop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// NewCaptureService builds a CaptureService. onError, if non-nil, is
// invoked (from the capture worker goroutine) whenever the line fails
// mid-session; it should not block.
func NewCaptureService(factory CapturerFactory, deviceName string, chunkMs, maxDurationMs int, validator *Validator, logger logging.Logger, onError func(CaptureErrorEvent)) *CaptureService {
	if logger == nil {
		logger = &logging.NoOpLogger{}
	}
	return &CaptureService{
		factory:       factory,
		deviceName:    deviceName,
		chunkMs:       chunkMs,
		maxDurationMs: maxDurationMs,
		validator:     validator,
		logger:        logger,
		onError:       onError,
	}
}

// StartSession opens a fresh capture line and begins draining it into a
// new ring buffer, returning the new session's id.
func (c *CaptureService) StartSession() (string, error) {
	c.mu.Lock()
	if c.session != nil {
		c.mu.Unlock()
		return "", ErrAlreadyActive
	}

	id := uuid.NewString()
	capr, err := c.factory(LineConfig{DeviceName: c.deviceName, ChunkMs: c.chunkMs})
	if err != nil {
		c.mu.Unlock()
		return "", err
	}

	sess := &captureSession{
		id:     id,
		active: true,
		buffer: NewRingBuffer(BytesForDuration(c.maxDurationMs)),
		cap:    capr,
		done:   make(chan struct{}),
		stop:   make(chan struct{}),
	}
	c.session = sess
	c.mu.Unlock()

	go c.runWorker(sess)
	return id, nil
}

// runWorker is the daemon "audio-capture" goroutine: one per active
// session. It drains Samples() into the ring buffer until active flips
// false, the hard-stop byte threshold is reached, or the line reports an
// error.
func (c *CaptureService) runWorker(sess *captureSession) {
	defer close(sess.done)
	defer sess.cap.Stop()

	hardStop := sess.buffer.Capacity()
	written := 0

	for {
		select {
		case <-sess.stop:
			return
		case chunk, ok := <-sess.cap.Samples():
			if !ok {
				return
			}
			n := sess.buffer.Write(chunk)
			written += n
			if written >= hardStop {
				c.mu.Lock()
				sess.active = false
				c.mu.Unlock()
				return
			}
		case err, ok := <-sess.cap.Errors():
			if !ok {
				continue
			}
			c.logger.Warn("audio capture line error", "session_id", sess.id, "error", err)
			c.mu.Lock()
			sess.active = false
			c.mu.Unlock()
			if c.onError != nil {
				c.onError(CaptureErrorEvent{Reason: err, At: time.Now()})
			}
			return
		}
	}
}

// StopSession flips active=false for id and returns once the worker has
// joined. The caller must call ReadAll afterward to retrieve the buffer.
func (c *CaptureService) StopSession(id string) error {
	c.mu.Lock()
	sess := c.session
	if sess == nil || sess.id != id {
		c.mu.Unlock()
		return ErrUnknownSession
	}
	sess.active = false
	sess.requestStop()
	c.mu.Unlock()

	<-sess.done
	return nil
}

// CancelSession flips active=false and canceled=true, and clears the
// buffer. ReadAll will subsequently fail with ErrCanceled.
func (c *CaptureService) CancelSession(id string) error {
	c.mu.Lock()
	sess := c.session
	if sess == nil || sess.id != id {
		c.mu.Unlock()
		return ErrUnknownSession
	}
	sess.active = false
	sess.canceled = true
	sess.requestStop()
	c.mu.Unlock()

	<-sess.done
	sess.buffer.Clear()
	return nil
}

// ReadAll returns the validated snapshot for a stopped session and frees
// the session slot. It fails with ErrStillActive if the session has not
// been stopped, or ErrCanceled if it was canceled.
func (c *CaptureService) ReadAll(id string) ([]byte, error) {
	c.mu.Lock()
	sess := c.session
	if sess == nil || sess.id != id {
		c.mu.Unlock()
		return nil, ErrUnknownSession
	}
	if sess.active {
		c.mu.Unlock()
		return nil, ErrStillActive
	}
	canceled := sess.canceled
	c.session = nil
	c.mu.Unlock()

	if canceled {
		return nil, ErrCanceled
	}

	pcm := sess.buffer.Snapshot()
	if c.validator != nil {
		if err := c.validator.Validate(pcm); err != nil {
			return nil, err
		}
	}
	return pcm, nil
}

// Shutdown stops any active session: flip active=false under lock, then
// join the worker outside the lock with a bounded timeout, warning if the
// worker overruns it.
func (c *CaptureService) Shutdown(timeout time.Duration) {
	c.mu.Lock()
	sess := c.session
	if sess == nil {
		c.mu.Unlock()
		return
	}
	sess.active = false
	sess.requestStop()
	c.mu.Unlock()

	select {
	case <-sess.done:
	case <-time.After(timeout):
		c.logger.Warn("audio capture worker did not join within shutdown timeout", "session_id", sess.id)
	}
}
