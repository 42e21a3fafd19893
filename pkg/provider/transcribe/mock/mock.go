// Package mock provides a test double for the transcribe.Provider interface.
package mock

import (
	"context"
	"sync"
)

// Provider is a mock implementation of transcribe.Provider.
// Zero values cause TranscribeFile to return an empty transcript and nil
// error, the "no speech detected" outcome.
type Provider struct {
	mu sync.Mutex

	// Text is returned by TranscribeFile when Err is nil.
	Text string

	// Err, when non-nil, is returned by every TranscribeFile call.
	Err error

	// CallCount records how many times TranscribeFile was called.
	CallCount int

	// RecordedPaths holds the path of each call, in order.
	RecordedPaths []string
}

// TranscribeFile implements transcribe.Provider.
func (p *Provider) TranscribeFile(_ context.Context, path string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CallCount++
	p.RecordedPaths = append(p.RecordedPaths, path)
	if p.Err != nil {
		return "", p.Err
	}
	return p.Text, nil
}
