package voicestream

import "fmt"

// ErrorCode classifies structural failures surfaced on error events.
type ErrorCode string

const (
	// ErrCodeConnectionFailed covers transport open/send failures and
	// reconnect exhaustion.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"

	// ErrCodePermissionDenied is emitted when microphone permission is refused.
	ErrCodePermissionDenied ErrorCode = "AUDIO_PERMISSION_DENIED"

	// ErrCodeCaptureFailed is emitted when hardware capture fails to start.
	ErrCodeCaptureFailed ErrorCode = "AUDIO_CAPTURE_FAILED"

	// ErrCodePlaybackFailed is emitted when the output device fails to
	// initialize.
	ErrCodePlaybackFailed ErrorCode = "AUDIO_PLAYBACK_FAILED"
)

// Error is the payload carried on error events. Components never panic or
// return errors across the public API; everything structural arrives here.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
