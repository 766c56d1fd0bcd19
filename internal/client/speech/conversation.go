package speech

import (
	"errors"
	"log"
	"strings"
	"sync"
)

// State is a phase of the voice-conversation loop.
type State int

const (
	StateIdle State = iota
	StateListening
	StateThinking
	StateSpeaking
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateThinking:
		return "thinking"
	case StateSpeaking:
		return "speaking"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// ConversationHooks receive the loop's outward-facing events. Submit is
// called with each final transcript; the owner answers later by calling
// DeliverReply (or SpeakFault on failure). All hooks run on the caller's
// goroutine for recognizer callbacks.
type ConversationHooks struct {
	Submit        func(text string)
	OnStateChange func(State)
	OnError       func(error)
}

// Conversation runs the voice loop:
//
//	Idle -> Listening -> Thinking -> Speaking -> Listening -> ... -> Ended
//
// Silence (an empty final transcript) re-arms listening instead of ending
// the turn. Ended is reachable from any state via End or an unrecoverable
// recognizer error; permission denial terminates the loop rather than
// retrying.
type Conversation struct {
	mu         sync.Mutex
	state      State
	recognizer Recognizer
	synth      Synthesizer
	hooks      ConversationHooks
}

// NewConversation builds a Conversation in the Idle state. The synthesizer
// is wrapped for exclusive playback.
func NewConversation(r Recognizer, s Synthesizer, hooks ConversationHooks) *Conversation {
	return &Conversation{
		state:      StateIdle,
		recognizer: r,
		synth:      NewExclusiveSynthesizer(s),
		hooks:      hooks,
	}
}

// State returns the current loop phase.
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conversation) setState(s State) {
	c.state = s
	if c.hooks.OnStateChange != nil {
		c.hooks.OnStateChange(s)
	}
}

// Begin starts the loop from Idle. It surfaces ErrUnsupported and
// ErrPermissionDenied to the caller and moves to Ended in both cases.
func (c *Conversation) Begin() error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return errors.New("speech: conversation already started")
	}
	c.mu.Unlock()
	return c.listen()
}

func (c *Conversation) listen() error {
	c.mu.Lock()
	if c.state == StateEnded {
		c.mu.Unlock()
		return nil
	}
	c.setState(StateListening)
	c.mu.Unlock()

	err := c.recognizer.Start(c.onInterim, c.onFinal, c.onRecognizerError)
	if err != nil {
		c.mu.Lock()
		c.setState(StateEnded)
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *Conversation) onInterim(string) {
	// Interim transcripts only matter for live display; the loop ignores them.
}

func (c *Conversation) onFinal(text string) {
	c.mu.Lock()
	if c.state != StateListening {
		c.mu.Unlock()
		return
	}
	if strings.TrimSpace(text) == "" {
		// Silence. Re-arm instead of ending the turn.
		c.mu.Unlock()
		if err := c.listen(); err != nil {
			c.fail(err)
		}
		return
	}
	c.setState(StateThinking)
	c.mu.Unlock()

	if c.hooks.Submit != nil {
		c.hooks.Submit(text)
	}
}

func (c *Conversation) onRecognizerError(err error) {
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrUnsupported) {
		c.fail(err)
		return
	}
	// Transient capture errors behave like silence.
	log.Printf("[Voice] Recognizer error, re-listening: %v", err)
	c.mu.Lock()
	listening := c.state == StateListening
	c.mu.Unlock()
	if listening {
		if lerr := c.listen(); lerr != nil {
			c.fail(lerr)
		}
	}
}

// DeliverReply speaks the AI reply for the submitted turn, then re-arms
// listening once playback completes. Ignored unless the loop is Thinking.
func (c *Conversation) DeliverReply(text string) {
	c.mu.Lock()
	if c.state != StateThinking {
		c.mu.Unlock()
		return
	}
	c.setState(StateSpeaking)
	c.mu.Unlock()

	c.synth.Speak(text, func() {
		c.mu.Lock()
		if c.state != StateSpeaking {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
		if err := c.listen(); err != nil {
			c.fail(err)
		}
	})
}

// SpeakFault voices a failure message for the current turn and then
// re-arms listening, keeping the loop alive across backend errors.
func (c *Conversation) SpeakFault(text string) {
	c.DeliverReply(text)
}

// End terminates the loop from any state, stopping capture and playback.
func (c *Conversation) End() {
	c.mu.Lock()
	if c.state == StateEnded {
		c.mu.Unlock()
		return
	}
	c.setState(StateEnded)
	c.mu.Unlock()

	c.recognizer.Stop()
	c.synth.Cancel()
}

func (c *Conversation) fail(err error) {
	c.mu.Lock()
	alreadyEnded := c.state == StateEnded
	if !alreadyEnded {
		c.setState(StateEnded)
	}
	c.mu.Unlock()

	if !alreadyEnded {
		c.recognizer.Stop()
		c.synth.Cancel()
		if c.hooks.OnError != nil {
			c.hooks.OnError(err)
		}
	}
}
