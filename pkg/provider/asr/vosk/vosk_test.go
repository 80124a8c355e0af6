package vosk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/EdNutting/autocue/pkg/provider/asr"
)

// ---- JSON parsing tests ----

func TestParseVoskResponse_Final(t *testing.T) {
	raw := []byte(`{
		"text": "hello world",
		"result": [
			{"word": "hello", "start": 0.1, "end": 0.5, "conf": 0.9},
			{"word": "world", "start": 0.6, "end": 1.0, "conf": 0.7}
		]
	}`)

	tr, ok := parseVoskResponse(raw)
	if !ok {
		t.Fatal("expected ok=true for final message")
	}
	if !tr.IsFinal {
		t.Error("expected IsFinal=true")
	}
	if tr.Text != "hello world" {
		t.Errorf("text: want %q, got %q", "hello world", tr.Text)
	}
	if len(tr.Words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(tr.Words))
	}
	if tr.Words[0].Start != time.Duration(0.1*float64(time.Second)) {
		t.Errorf("unexpected start: %v", tr.Words[0].Start)
	}
	// Confidence is the mean of per-word confidences.
	if tr.Confidence < 0.79 || tr.Confidence > 0.81 {
		t.Errorf("expected confidence ~0.8, got %f", tr.Confidence)
	}
}

func TestParseVoskResponse_Partial(t *testing.T) {
	tr, ok := parseVoskResponse([]byte(`{"partial": "hello wor"}`))
	if !ok {
		t.Fatal("expected ok=true for partial message")
	}
	if tr.IsFinal {
		t.Error("expected IsFinal=false for partial result")
	}
	if tr.Text != "hello wor" {
		t.Errorf("text: want %q, got %q", "hello wor", tr.Text)
	}
}

func TestParseVoskResponse_EmptyPartialIgnored(t *testing.T) {
	if _, ok := parseVoskResponse([]byte(`{"partial": ""}`)); ok {
		t.Error("expected ok=false for silence partial")
	}
}

func TestParseVoskResponse_InvalidJSON(t *testing.T) {
	if _, ok := parseVoskResponse([]byte(`{invalid`)); ok {
		t.Error("expected ok=false for invalid JSON")
	}
}

// ---- Constructor tests ----

func TestNew_Defaults(t *testing.T) {
	p := New("")
	if p.endpoint != defaultEndpoint {
		t.Errorf("endpoint: want %q, got %q", defaultEndpoint, p.endpoint)
	}
	if p.sampleRate != defaultSampleRate {
		t.Errorf("sampleRate: want %d, got %d", defaultSampleRate, p.sampleRate)
	}
}

func TestConfigMessage(t *testing.T) {
	var msg struct {
		Config struct {
			SampleRate int  `json:"sample_rate"`
			Words      bool `json:"words"`
		} `json:"config"`
	}
	if err := json.Unmarshal(configMessage(48000), &msg); err != nil {
		t.Fatalf("unmarshal config message: %v", err)
	}
	if msg.Config.SampleRate != 48000 {
		t.Errorf("sample_rate: want 48000, got %d", msg.Config.SampleRate)
	}
	if !msg.Config.Words {
		t.Error("expected words=true in config message")
	}
}

func TestModels(t *testing.T) {
	models := New("", WithModel("vosk-model-small-en-us-0.15")).Models()
	if len(models) != 1 {
		t.Fatalf("expected 1 model, got %d", len(models))
	}
	if models[0].ID != "vosk-model-small-en-us-0.15" {
		t.Errorf("model ID: got %q", models[0].ID)
	}
	if models[0].Provider != "vosk" {
		t.Errorf("model provider: got %q", models[0].Provider)
	}
}

// ---- Session tests against a fake server ----

// fakeServer accepts one WebSocket connection, replies to the config
// message, echoes a partial for the first audio chunk and a final for the
// second, then waits for EOF.
func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")

		ctx := r.Context()

		// Config handshake.
		kind, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if kind != websocket.MessageText || !strings.Contains(string(data), "sample_rate") {
			t.Errorf("first message = %v %q, want config", kind, data)
			return
		}

		responses := []string{
			`{"partial": "hello"}`,
			`{"text": "hello world", "result": [{"word":"hello","start":0,"end":0.4,"conf":1},{"word":"world","start":0.5,"end":0.9,"conf":1}]}`,
		}
		for {
			kind, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			// EOF flushes the last (empty) final and ends the stream.
			if kind == websocket.MessageText && strings.Contains(string(data), "eof") {
				conn.Write(ctx, websocket.MessageText, []byte(`{"text": ""}`))
				return
			}
			if len(responses) > 0 {
				resp := responses[0]
				responses = responses[1:]
				if err := conn.Write(ctx, websocket.MessageText, []byte(resp)); err != nil {
					return
				}
			}
		}
	}))
}

func TestSession_StreamsPartialsAndFinals(t *testing.T) {
	ts := fakeServer(t)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	endpoint := "ws" + strings.TrimPrefix(ts.URL, "http")
	sess, err := New(endpoint).StartStream(ctx, asr.StreamConfig{SampleRate: 16000})
	if err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	defer sess.Close()

	if err := sess.SendAudio(make([]byte, 320)); err != nil {
		t.Fatalf("SendAudio: %v", err)
	}
	select {
	case tr := <-sess.Partials():
		if tr.Text != "hello" || tr.IsFinal {
			t.Errorf("partial = %+v, want text %q", tr, "hello")
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for partial")
	}

	if err := sess.SendAudio(make([]byte, 320)); err != nil {
		t.Fatalf("SendAudio: %v", err)
	}
	select {
	case tr := <-sess.Finals():
		if tr.Text != "hello world" || !tr.IsFinal {
			t.Errorf("final = %+v, want text %q", tr, "hello world")
		}
		if len(tr.Words) != 2 {
			t.Errorf("final words = %d, want 2", len(tr.Words))
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for final")
	}
}

func TestSession_SendAudioAfterCloseFails(t *testing.T) {
	ts := fakeServer(t)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	endpoint := "ws" + strings.TrimPrefix(ts.URL, "http")
	sess, err := New(endpoint).StartStream(ctx, asr.StreamConfig{})
	if err != nil {
		t.Fatalf("StartStream: %v", err)
	}

	if err := sess.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sess.SendAudio([]byte{1, 2}); err == nil {
		t.Error("SendAudio after Close succeeded, want error")
	}
}

func TestSession_ResetNotSupported(t *testing.T) {
	ts := fakeServer(t)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	endpoint := "ws" + strings.TrimPrefix(ts.URL, "http")
	sess, err := New(endpoint).StartStream(ctx, asr.StreamConfig{})
	if err != nil {
		t.Fatalf("StartStream: %v", err)
	}
	defer sess.Close()

	if err := sess.Reset(); !errors.Is(err, asr.ErrNotSupported) {
		t.Errorf("Reset() error = %v, want ErrNotSupported", err)
	}
}

func TestStartStream_DialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := New("ws://127.0.0.1:1").StartStream(ctx, asr.StreamConfig{})
	if err == nil {
		t.Error("StartStream to dead endpoint succeeded, want error")
	}
}
