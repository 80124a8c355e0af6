// Package asr defines the Provider interface for speech recognition backends.
//
// An ASR provider wraps a local streaming recognizer (e.g., Vosk or a
// sherpa-onnx model) and exposes a uniform streaming interface. The central
// abstraction is SessionHandle: once opened, a session accepts raw PCM audio
// chunks and emits two streams of Transcript values, low-latency partials
// for responsive tracking and authoritative finals for position validation.
//
// Implementations must be safe for concurrent use. Audio input and
// transcript output channels are goroutine-safe by construction.
package asr

import (
	"context"
	"errors"
	"time"

	"github.com/EdNutting/autocue/pkg/types"
)

// ErrNotSupported is returned by optional operations a backend does not
// implement.
var ErrNotSupported = errors.New("asr: operation not supported")

// StreamConfig describes the audio format for a new recognition session.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz. Local recognizers usually
	// want 16000.
	SampleRate int

	// Channels is the number of audio channels. 1 = mono, which is what
	// every supported recognizer expects.
	Channels int

	// ChunkDuration is the caller's audio chunk size, advisory only.
	// Providers may buffer internally.
	ChunkDuration time.Duration
}

// ModelInfo describes a recognition model a provider can run.
type ModelInfo struct {
	// ID is the provider-scoped model identifier (e.g., "vosk-en-us-small").
	ID string

	// Name is the human-readable model name.
	Name string

	// Provider is the provider name the model belongs to.
	Provider string

	// SizeMB is the approximate download size in megabytes.
	SizeMB int

	// Downloaded reports whether the model is present in the local cache.
	Downloaded bool
}

// SessionHandle represents an open recognition session. It is an interface
// so that test code can provide mock implementations without loading a
// model.
//
// Callers must call Close when the session is no longer needed; failing to
// do so may leak goroutines and native recognizer state. All methods must
// be safe for concurrent use.
type SessionHandle interface {
	// SendAudio delivers a chunk of raw PCM audio bytes for recognition.
	// The chunk must match the SampleRate and Channels agreed in
	// StreamConfig. Calling SendAudio after Close returns an error.
	SendAudio(chunk []byte) error

	// Partials returns a read-only channel emitting interim Transcript
	// values as the recognizer revises its guess for the current utterance.
	// The channel is closed when the session ends.
	Partials() <-chan types.Transcript

	// Finals returns a read-only channel emitting authoritative Transcript
	// values once the recognizer commits an utterance. The channel is
	// closed when the session ends.
	Finals() <-chan types.Transcript

	// Reset discards the recognizer's utterance-in-progress state, for use
	// after the tracker is repositioned manually.
	Reset() error

	// Close terminates the session, flushes pending audio, and releases
	// all associated resources. After Close returns, the Partials and
	// Finals channels are closed. Calling Close more than once is safe and
	// returns nil.
	Close() error
}

// Provider is the abstraction over any local recognition backend.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// StartStream opens a new recognition session with the given audio
	// format. The returned SessionHandle is ready to accept audio
	// immediately.
	//
	// Returns an error if the provider cannot start the session (e.g., the
	// model is not downloaded or ctx is already cancelled). The caller
	// owns the SessionHandle and must call Close when done.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)

	// Models lists the models this provider knows about, including ones
	// not yet downloaded.
	Models() []ModelInfo
}
