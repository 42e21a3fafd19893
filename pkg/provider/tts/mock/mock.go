// Package mock provides a test double for the tts.Provider interface.
//
// Use Provider in unit tests to feed controlled audio clips to the playback
// path without a live synthesis backend.
package mock

import (
	"context"
	"sync"

	"github.com/argusworks/argus/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	// Ctx is the context passed to Synthesize.
	Ctx context.Context
	// Req is the SpeechRequest passed to Synthesize.
	Req tts.SpeechRequest
}

// Provider is a mock implementation of tts.Provider.
// Zero values for response fields cause Synthesize to return nil, nil.
// Set SynthesizeErr to inject errors.
type Provider struct {
	mu sync.Mutex

	// SynthesizeResult is returned by Synthesize. May be nil.
	SynthesizeResult *tts.Speech

	// SynthesizeErr, if non-nil, is returned as the error from Synthesize.
	SynthesizeErr error

	// SynthesizeCalls records every invocation of Synthesize in order.
	SynthesizeCalls []SynthesizeCall
}

// Synthesize records the call and returns SynthesizeResult, SynthesizeErr.
func (p *Provider) Synthesize(ctx context.Context, req tts.SpeechRequest) (*tts.Speech, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, SynthesizeCall{Ctx: ctx, Req: req})
	return p.SynthesizeResult, p.SynthesizeErr
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.SynthesizeCalls = nil
}

// Ensure Provider implements tts.Provider at compile time.
var _ tts.Provider = (*Provider)(nil)
