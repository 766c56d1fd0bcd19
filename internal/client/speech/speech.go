// Package speech wraps platform voice capture and voice output behind small
// start/stop/callback contracts, and runs the full voice-conversation loop
// as an explicit state machine.
package speech

import (
	"errors"
	"sync"
)

var (
	// ErrUnsupported means the platform offers no speech recognition.
	ErrUnsupported = errors.New("speech: recognition not supported on this platform")
	// ErrPermissionDenied means microphone access was refused.
	ErrPermissionDenied = errors.New("speech: microphone permission denied")
)

// Recognizer captures one listening attempt. Interim transcripts stream via
// onInterim; exactly one onFinal (possibly with an empty string for silence)
// closes the attempt. Start returns ErrUnsupported or ErrPermissionDenied
// when capture cannot begin at all.
type Recognizer interface {
	Start(onInterim func(string), onFinal func(string), onError func(error)) error
	Stop()
}

// Synthesizer produces audible speech. Implementations are not required to
// serialize utterances; wrap with NewExclusiveSynthesizer for the
// one-utterance-at-a-time guarantee.
type Synthesizer interface {
	Speak(text string, onDone func())
	Cancel()
}

// exclusiveSynthesizer enforces at most one audible utterance: Speak cancels
// any in-flight one first, and a cancelled utterance's onDone never fires.
type exclusiveSynthesizer struct {
	mu    sync.Mutex
	inner Synthesizer
	gen   uint64
}

// NewExclusiveSynthesizer wraps inner with cancel-before-start semantics.
func NewExclusiveSynthesizer(inner Synthesizer) Synthesizer {
	return &exclusiveSynthesizer{inner: inner}
}

func (s *exclusiveSynthesizer) Speak(text string, onDone func()) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	s.inner.Cancel()
	s.inner.Speak(text, func() {
		s.mu.Lock()
		stale := gen != s.gen
		s.mu.Unlock()
		if stale || onDone == nil {
			return
		}
		onDone()
	})
}

func (s *exclusiveSynthesizer) Cancel() {
	s.mu.Lock()
	s.gen++
	s.mu.Unlock()
	s.inner.Cancel()
}
