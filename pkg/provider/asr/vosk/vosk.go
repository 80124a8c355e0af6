// Package vosk provides an ASR provider backed by a vosk-server instance
// over its WebSocket streaming protocol. It implements the asr.Provider
// interface.
//
// The client sends a JSON config message on connect, then raw PCM chunks
// as binary frames. The server answers with {"partial": ...} interim
// results and {"text": ..., "result": [...]} finals.
package vosk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/EdNutting/autocue/pkg/provider/asr"
	"github.com/EdNutting/autocue/pkg/types"
)

const (
	defaultEndpoint   = "ws://127.0.0.1:2700"
	defaultSampleRate = 16000
)

// Option is a functional option for configuring the vosk Provider.
type Option func(*Provider)

// WithSampleRate sets the provider-level default sample rate in Hz.
func WithSampleRate(rate int) Option {
	return func(p *Provider) {
		p.sampleRate = rate
	}
}

// WithModel records the model identifier reported by Models. The server
// itself decides which model it loads.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// Provider implements asr.Provider backed by a vosk-server endpoint.
type Provider struct {
	endpoint   string
	model      string
	sampleRate int
}

// New creates a vosk Provider talking to the given WebSocket endpoint,
// e.g. "ws://127.0.0.1:2700". An empty endpoint uses the default.
func New(endpoint string, opts ...Option) *Provider {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	p := &Provider{
		endpoint:   endpoint,
		sampleRate: defaultSampleRate,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// StartStream opens a streaming recognition session against the server.
func (p *Provider) StartStream(ctx context.Context, cfg asr.StreamConfig) (asr.SessionHandle, error) {
	conn, _, err := websocket.Dial(ctx, p.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("vosk: dial %s: %w", p.endpoint, err)
	}

	sr := cfg.SampleRate
	if sr == 0 {
		sr = p.sampleRate
	}
	if err := conn.Write(ctx, websocket.MessageText, configMessage(sr)); err != nil {
		conn.Close(websocket.StatusInternalError, "config write failed")
		return nil, fmt.Errorf("vosk: send config: %w", err)
	}

	sess := &session{
		conn:     conn,
		partials: make(chan types.Transcript, 64),
		finals:   make(chan types.Transcript, 64),
		audio:    make(chan []byte, 256),
		done:     make(chan struct{}),
	}

	sess.wg.Add(2)
	go sess.readLoop(ctx)
	go sess.writeLoop(ctx)

	return sess, nil
}

// Models reports the single server-side model this provider fronts.
func (p *Provider) Models() []asr.ModelInfo {
	id := p.model
	if id == "" {
		id = "server-default"
	}
	return []asr.ModelInfo{{
		ID:         id,
		Name:       id,
		Provider:   "vosk",
		Downloaded: true,
	}}
}

// configMessage builds the initial handshake the server expects. Word
// timings are requested so finals carry per-word detail.
func configMessage(sampleRate int) []byte {
	msg, _ := json.Marshal(map[string]any{
		"config": map[string]any{
			"sample_rate": sampleRate,
			"words":       true,
		},
	})
	return msg
}

// ---- session ----

// voskResponse is the JSON structure returned by vosk-server. A message
// carries either a partial or a final, never both.
type voskResponse struct {
	Partial string `json:"partial"`
	Text    string `json:"text"`
	Result  []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Conf  float64 `json:"conf"`
	} `json:"result"`
}

// session is a live vosk-server streaming session. It implements
// asr.SessionHandle.
type session struct {
	conn     *websocket.Conn
	partials chan types.Transcript
	finals   chan types.Transcript
	audio    chan []byte

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// SendAudio queues a PCM audio chunk for delivery to the server.
func (s *session) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("vosk: session is closed")
	default:
	}
	select {
	case s.audio <- chunk:
		return nil
	case <-s.done:
		return errors.New("vosk: session is closed")
	}
}

// Partials returns the channel of interim transcripts.
func (s *session) Partials() <-chan types.Transcript { return s.partials }

// Finals returns the channel of final transcripts.
func (s *session) Finals() <-chan types.Transcript { return s.finals }

// Reset discards the recognizer's utterance state. vosk-server has no
// mid-stream reset message.
func (s *session) Reset() error {
	return fmt.Errorf("vosk: %w", asr.ErrNotSupported)
}

// Close terminates the session cleanly, flushing pending audio.
func (s *session) Close() error {
	s.once.Do(func() {
		close(s.done)
		// EOF makes the server emit its last final before closing.
		_ = s.conn.Write(context.Background(), websocket.MessageText, []byte(`{"eof" : 1}`))
		s.wg.Wait()
		s.conn.Close(websocket.StatusNormalClosure, "session closed")
	})
	return nil
}

// writeLoop reads from the audio channel and sends binary frames.
func (s *session) writeLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case chunk, ok := <-s.audio:
			if !ok {
				return
			}
			if err := s.conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
				return
			}
		case <-s.done:
			// Drain the audio channel before exiting.
			for {
				select {
				case chunk, ok := <-s.audio:
					if !ok {
						return
					}
					_ = s.conn.Write(ctx, websocket.MessageBinary, chunk)
				default:
					return
				}
			}
		}
	}
}

// readLoop receives JSON messages and dispatches them to the partials and
// finals channels.
func (s *session) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.partials)
	defer close(s.finals)

	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			return
		}

		t, ok := parseVoskResponse(msg)
		if !ok {
			continue
		}

		if t.IsFinal {
			select {
			case s.finals <- t:
			case <-s.done:
			}
		} else {
			select {
			case s.partials <- t:
			case <-s.done:
			}
		}
	}
}

// parseVoskResponse parses a raw server message into a Transcript. Returns
// (zero, false) for messages that should be ignored, including empty
// partials the server emits during silence.
func parseVoskResponse(data []byte) (types.Transcript, bool) {
	var resp voskResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return types.Transcript{}, false
	}

	if len(resp.Result) > 0 || resp.Text != "" {
		words := make([]types.WordDetail, 0, len(resp.Result))
		var confSum float64
		for _, w := range resp.Result {
			words = append(words, types.WordDetail{
				Word:       w.Word,
				Start:      time.Duration(w.Start * float64(time.Second)),
				End:        time.Duration(w.End * float64(time.Second)),
				Confidence: w.Conf,
			})
			confSum += w.Conf
		}
		conf := 0.0
		if len(resp.Result) > 0 {
			conf = confSum / float64(len(resp.Result))
		}
		return types.Transcript{
			Text:       resp.Text,
			IsFinal:    true,
			Confidence: conf,
			Words:      words,
		}, true
	}

	if resp.Partial != "" {
		return types.Transcript{Text: resp.Partial, IsFinal: false}, true
	}

	return types.Transcript{}, false
}
