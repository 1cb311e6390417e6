package audio

import "errors"

var (
	// ErrAlreadyActive is returned by StartSession when a session is already running.
	ErrAlreadyActive = errors.New("audio: capture session already active")
	// ErrStillActive is returned by ReadAll when the session has not been stopped yet.
	ErrStillActive = errors.New("audio: capture session still active")
	// ErrCanceled is returned by ReadAll when the session was canceled.
	ErrCanceled = errors.New("audio: capture session was canceled")
	// ErrUnknownSession is returned when an operation references an id that is not current.
	ErrUnknownSession = errors.New("audio: unknown or stale session id")
	// ErrLineUnavailable names a platform audio line that cannot be opened.
	// The malgo capturer factory returns its own wrapped device errors, not
	// this value.
	ErrLineUnavailable = errors.New("audio: microphone line unavailable")
	// ErrPermissionDenied names a platform refusal of microphone access.
	// The malgo capturer factory returns its own wrapped device errors, not
	// this value.
	ErrPermissionDenied = errors.New("audio: microphone permission denied")
)
