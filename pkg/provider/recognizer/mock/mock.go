// Package mock provides a scripted test double for the recognizer.Engine and
// recognizer.Session interfaces.
//
// Script the session by setting Results: each Accept call consumes the next
// entry. When the script is exhausted, Accept returns empty results
// (silence). Set AcceptError to inject a decoder failure.
package mock

import (
	"context"
	"sync"

	"github.com/argusworks/argus/pkg/provider/recognizer"
)

// Engine is a mock implementation of recognizer.Engine.
type Engine struct {
	mu sync.Mutex

	// SessionResult is returned by NewSession when SessionError is nil.
	// If nil, a fresh empty Session is returned.
	SessionResult *Session

	// SessionError, when non-nil, is returned by NewSession.
	SessionError error

	// CallCountNewSession records how many times NewSession was called.
	CallCountNewSession int

	// RecordedConfigs holds the Config of each NewSession call, in order.
	RecordedConfigs []recognizer.Config
}

// NewSession implements recognizer.Engine.
func (e *Engine) NewSession(_ context.Context, cfg recognizer.Config) (recognizer.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.CallCountNewSession++
	e.RecordedConfigs = append(e.RecordedConfigs, cfg)
	if e.SessionError != nil {
		return nil, e.SessionError
	}
	if e.SessionResult == nil {
		e.SessionResult = &Session{}
	}
	return e.SessionResult, nil
}

// Session is a scripted mock implementation of recognizer.Session.
type Session struct {
	mu sync.Mutex

	// Results is the script consumed by successive Accept calls.
	Results []recognizer.Result

	// AcceptError, when non-nil, is returned by every Accept call.
	AcceptError error

	// CallCountAccept, CallCountReset, and CallCountClose record call counts.
	CallCountAccept int
	CallCountReset  int
	CallCountClose  int

	// AcceptedBytes accumulates the total PCM byte count fed to Accept.
	AcceptedBytes int
}

// Accept implements recognizer.Session.
func (s *Session) Accept(pcm []byte) (recognizer.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountAccept++
	s.AcceptedBytes += len(pcm)
	if s.AcceptError != nil {
		return recognizer.Result{}, s.AcceptError
	}
	if len(s.Results) == 0 {
		return recognizer.Result{}, nil
	}
	r := s.Results[0]
	s.Results = s.Results[1:]
	return r, nil
}

// Reset implements recognizer.Session.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountReset++
}

// Close implements recognizer.Session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	return nil
}
