// Package session runs the turn-taking control flow: wait for the wake word,
// capture an utterance, classify, validate, dispatch, speak the result. Turns
// are strictly sequential; a new wake word is not listened for until the
// previous turn's feedback has been delivered.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	log "log/slog"

	"alpha/internal/dispatch"
	"alpha/internal/nlu"
	"alpha/pkg/intent"
)

type State int

const (
	StateIdle State = iota
	StateListening
	StateProcessing
	StateFeedback
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateProcessing:
		return "processing"
	case StateFeedback:
		return "feedback"
	}
	return "invalid"
}

// Utterance is one turn's transcribed input. Created per turn, discarded
// after classification.
type Utterance struct {
	Text  string
	Heard time.Time
}

// ErrNoSpeech is returned by Command when the capture window closes without
// usable speech; the turn is abandoned.
var ErrNoSpeech = errors.New("no speech captured")

type Listener interface {
	// AwaitWake blocks until the wake word is detected or ctx ends.
	AwaitWake(ctx context.Context) error
	// Command captures one utterance, bounded by the capture timeout.
	Command(ctx context.Context) (Utterance, error)
}

type Speaker interface {
	Say(text string) error
}

type Classifier interface {
	Classify(ctx context.Context, utterance string) (intent.Raw, error)
}

type Dispatcher interface {
	Dispatch(in *intent.Intent) dispatch.Result
}

// Event is what the status display consumes.
type Event struct {
	Kind  string    `json:"kind"` // state | utterance | result
	State string    `json:"state,omitempty"`
	Text  string    `json:"text,omitempty"`
	OK    bool      `json:"ok,omitempty"`
	At    time.Time `json:"at"`
}

type Config struct {
	// ListeningPrompt is spoken right after wake detection; empty disables.
	ListeningPrompt string
	// Reprompt enables one targeted follow-up question when a command was
	// heard but not understood.
	Reprompt bool
}

type Loop struct {
	cfg        Config
	listener   Listener
	speaker    Speaker
	classifier Classifier
	schema     *intent.Schema
	dispatcher Dispatcher
	events     func(Event)
	onWake     func()
}

func New(cfg Config, listener Listener, speaker Speaker, classifier Classifier, schema *intent.Schema, dispatcher Dispatcher) *Loop {
	return &Loop{
		cfg:        cfg,
		listener:   listener,
		speaker:    speaker,
		classifier: classifier,
		schema:     schema,
		dispatcher: dispatcher,
	}
}

// OnWake registers a hook run at wake detection (chime, notification).
func (l *Loop) OnWake(f func()) { l.onWake = f }

// Events registers the status sink. Fire-and-forget; nil disables.
func (l *Loop) Events(f func(Event)) { l.events = f }

// Run executes turns until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := l.Turn(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("turn aborted", "err", err)
		}
	}
}

// Turn executes exactly one wake → feedback cycle.
func (l *Loop) Turn(ctx context.Context) error {
	l.setState(StateIdle)

	if err := l.listener.AwaitWake(ctx); err != nil {
		return err
	}

	l.setState(StateListening)
	if l.onWake != nil {
		l.onWake()
	}
	if l.cfg.ListeningPrompt != "" {
		l.say(l.cfg.ListeningPrompt)
	}

	utt, err := l.listener.Command(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSpeech) {
			// capture timeout: abandon the turn quietly
			log.Debug("no utterance captured, returning to idle")
			l.setState(StateIdle)
			return nil
		}
		return err
	}

	l.publish(Event{Kind: "utterance", Text: utt.Text, At: time.Now()})
	l.process(ctx, utt, false)
	l.setState(StateIdle)
	return nil
}

// process runs classify → validate → dispatch for one utterance. Dispatch
// happens at most once: every failure path returns before reaching it.
func (l *Loop) process(ctx context.Context, utt Utterance, reprompted bool) {
	l.setState(StateProcessing)

	raw, err := l.classifier.Classify(ctx, utt.Text)
	if err != nil {
		l.feedback(false, classifyFeedback(err))
		return
	}

	log.Info("classified", "action", raw.Action, "confidence", raw.Confidence)

	in, err := intent.Validate(raw, l.schema)
	if err != nil {
		var verr *intent.ValidationError
		if errors.As(err, &verr) {
			log.Warn("rejected intent", "kind", verr.Kind.String(), "action", verr.Action, "param", verr.Param)

			if verr.Kind == intent.UnknownAction && l.cfg.Reprompt && !reprompted {
				if q := repromptQuestion(utt.Text); q != "" {
					l.repromptTurn(ctx, q)
					return
				}
			}
		}
		l.feedback(false, "I didn't understand that command.")
		return
	}

	res := l.dispatcher.Dispatch(in)
	if !res.OK && res.ErrorKind == dispatch.KindInternal {
		log.Error("internal invariant violation, aborting turn", "action", in.Action())
	}
	l.feedback(res.OK, res.Message)
}

// repromptTurn asks a targeted follow-up and listens once more without
// requiring the wake word again.
func (l *Loop) repromptTurn(ctx context.Context, question string) {
	l.setState(StateFeedback)
	l.say(question)

	l.setState(StateListening)
	utt, err := l.listener.Command(ctx)
	if err != nil {
		l.feedback(false, "No response heard. Returning to wake word detection.")
		return
	}

	l.publish(Event{Kind: "utterance", Text: utt.Text, At: time.Now()})
	l.process(ctx, utt, true)
}

func classifyFeedback(err error) string {
	var cerr *nlu.ClassifyError
	if errors.As(err, &cerr) {
		switch cerr.Kind {
		case nlu.Unreachable:
			return "I'm having trouble connecting."
		case nlu.AuthFailed:
			return "My language service rejected my credentials."
		}
	}
	return "I didn't understand that command."
}

// repromptQuestion picks a context-aware follow-up for a command that was
// heard but not understood.
func repromptQuestion(command string) string {
	c := strings.ToLower(strings.TrimSpace(command))

	switch {
	case strings.Contains(c, "tell me about"), strings.Contains(c, "explain about"):
		return "What do you want me to explain about?"
	case strings.Contains(c, "play") &&
		(strings.Contains(c, "song") || strings.Contains(c, "video") || strings.Contains(c, "on youtube")):
		return "What song or video should I play?"
	case strings.Contains(c, "open"), strings.Contains(c, "go to"):
		return "What application or website do you want me to open?"
	}
	return ""
}

func (l *Loop) feedback(ok bool, message string) {
	l.setState(StateFeedback)
	l.publish(Event{Kind: "result", Text: message, OK: ok, At: time.Now()})
	if message != "" {
		l.say(message)
	}
}

func (l *Loop) say(text string) {
	if err := l.speaker.Say(text); err != nil {
		log.Error("speech feedback failed", "err", err)
	}
}

func (l *Loop) setState(s State) {
	l.publish(Event{Kind: "state", State: s.String(), At: time.Now()})
}

func (l *Loop) publish(e Event) {
	if l.events != nil {
		l.events(e)
	}
}
