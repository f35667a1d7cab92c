// Package pipeline coordinates capture, conversion, and recognition
// into recording sessions. Two managers exist, one per recognition
// surface, plus the controller that keeps exactly one of them active.
package pipeline

import "errors"

// Failure kinds for session start and teardown. Start failures abort the
// session and reset the recording state; none are retried automatically.
var (
	ErrPermissionDenied  = errors.New("pipeline: permission denied")
	ErrLocaleUnsupported = errors.New("pipeline: locale not supported")
	ErrEngineUnavailable = errors.New("pipeline: recognition engine unavailable")
	ErrSessionActive     = errors.New("pipeline: a session is already active")
	ErrAudioSession      = errors.New("pipeline: audio session activation failed")
	ErrAudioStart        = errors.New("pipeline: audio capture start failed")
)
