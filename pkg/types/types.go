// Package types defines the shared types used across all autocue packages.
//
// These types form the lingua franca between the ASR provider, the tracking
// engine, and the web server. Each package defines its own domain types, but
// cross-cutting data structures live here to avoid circular imports.
package types

import "time"

// AudioFrame represents a single chunk of captured audio flowing into the
// transcription pipeline.
type AudioFrame struct {
	// PCM audio data. Sample rate and channel count follow the pipeline config.
	Data []byte

	// SampleRate in Hz (e.g., 16000 for Whisper-class models).
	SampleRate int

	// Channels: 1 for mono microphone capture.
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Transcript represents a speech-to-text result from an ASR provider.
// Both partial (interim) and final transcripts use this type.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// IsFinal indicates whether this is a final (authoritative) or partial
	// (interim) transcript. Partials may be revised by later results.
	IsFinal bool

	// Confidence is the overall confidence score (0.0-1.0). May be zero if
	// the provider does not report confidence.
	Confidence float64

	// Words contains per-word detail when the provider supplies it.
	Words []WordDetail

	// Timestamp marks when the utterance started, relative to session start.
	Timestamp time.Duration

	// Duration is the length of the utterance.
	Duration time.Duration
}

// WordDetail holds per-word metadata from ASR providers that support it.
type WordDetail struct {
	Word       string
	Start      time.Duration
	End        time.Duration
	Confidence float64
}
