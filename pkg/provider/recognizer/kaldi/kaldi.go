// Package kaldi provides a recognizer engine backed by a Kaldi/vosk
// WebSocket server. It implements the recognizer.Engine interface.
//
// The wire protocol is the one spoken by vosk-server: a JSON configuration
// message on connect, binary PCM blocks in, and one JSON result per block
// out. Results carry either a "partial" field (interim hypothesis) or a
// "text" field (committed result).
//
// Usage:
//
//	eng, err := kaldi.New("ws://localhost:2700")
//	sess, err := eng.NewSession(ctx, recognizer.Config{SampleRate: 16000})
//	res, err := sess.Accept(pcmBlock)
//	sess.Close()
package kaldi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coder/websocket"

	"github.com/argusworks/argus/pkg/provider/recognizer"
)

// Compile-time assertion that Engine satisfies recognizer.Engine.
var _ recognizer.Engine = (*Engine)(nil)

// Engine dials a vosk-compatible WebSocket server for each session.
type Engine struct {
	url        string
	httpHeader map[string][]string
}

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithHeader adds an HTTP header to the WebSocket handshake (e.g., an
// authorization header for a proxied server).
func WithHeader(key, value string) Option {
	return func(e *Engine) {
		if e.httpHeader == nil {
			e.httpHeader = map[string][]string{}
		}
		e.httpHeader[key] = append(e.httpHeader[key], value)
	}
}

// New creates an Engine for the server at url (e.g., "ws://localhost:2700").
func New(url string, opts ...Option) (*Engine, error) {
	if url == "" {
		return nil, fmt.Errorf("kaldi: server url must not be empty")
	}
	e := &Engine{url: url}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// configMessage is the JSON handshake sent on connect.
type configMessage struct {
	Config struct {
		SampleRate int `json:"sample_rate"`
	} `json:"config"`
}

// serverResult mirrors the JSON messages emitted by vosk-server. Pointers
// distinguish "field absent" from "field empty".
type serverResult struct {
	Text    *string `json:"text"`
	Partial *string `json:"partial"`
}

// NewSession implements recognizer.Engine. It dials the server and sends the
// sample-rate configuration message.
func (e *Engine) NewSession(ctx context.Context, cfg recognizer.Config) (recognizer.Session, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("kaldi: sample rate must be positive, got %d", cfg.SampleRate)
	}

	conn, _, err := websocket.Dial(ctx, e.url, &websocket.DialOptions{HTTPHeader: e.httpHeader})
	if err != nil {
		return nil, fmt.Errorf("kaldi: dial %s: %w", e.url, err)
	}

	var cm configMessage
	cm.Config.SampleRate = cfg.SampleRate
	raw, _ := json.Marshal(cm)
	if err := conn.Write(ctx, websocket.MessageText, raw); err != nil {
		conn.Close(websocket.StatusInternalError, "config send failed")
		return nil, fmt.Errorf("kaldi: send config: %w", err)
	}

	return &session{ctx: ctx, conn: conn}, nil
}

// session is one open recognition stream. Driven by a single goroutine.
type session struct {
	ctx  context.Context
	conn *websocket.Conn

	closeOnce sync.Once
}

// Accept implements recognizer.Session. Each PCM block is written as one
// binary message and the server's response for it is read back synchronously.
// An unparsable response is treated as "nothing recognized", logged at debug
// level and reported as an empty Result, never as an error.
func (s *session) Accept(pcm []byte) (recognizer.Result, error) {
	if err := s.conn.Write(s.ctx, websocket.MessageBinary, pcm); err != nil {
		return recognizer.Result{}, fmt.Errorf("kaldi: send audio: %w", err)
	}

	_, msg, err := s.conn.Read(s.ctx)
	if err != nil {
		return recognizer.Result{}, fmt.Errorf("kaldi: read result: %w", err)
	}

	var res serverResult
	if err := json.Unmarshal(msg, &res); err != nil {
		slog.Debug("kaldi: unparsable recognizer output, treating as silence", "err", err)
		return recognizer.Result{}, nil
	}

	switch {
	case res.Text != nil:
		return recognizer.Result{Text: *res.Text}, nil
	case res.Partial != nil:
		return recognizer.Result{Text: *res.Partial, Partial: true}, nil
	default:
		slog.Debug("kaldi: recognizer output carried neither text nor partial")
		return recognizer.Result{}, nil
	}
}

// Reset implements recognizer.Session by signalling end-of-stream, which
// makes the server flush its decoder state, and discarding the trailing
// final result.
func (s *session) Reset() {
	if err := s.conn.Write(s.ctx, websocket.MessageText, []byte(`{"eof" : 1}`)); err != nil {
		return
	}
	s.conn.Read(s.ctx) // discard the flushed final
}

// Close implements recognizer.Session. Safe to call more than once.
func (s *session) Close() error {
	s.closeOnce.Do(func() {
		s.conn.Close(websocket.StatusNormalClosure, "done")
	})
	return nil
}
