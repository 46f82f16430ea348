package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpha/internal/dispatch"
	"alpha/internal/nlu"
	"alpha/pkg/intent"
)

type scriptListener struct {
	commands []string // "" means capture timeout
	next     int
	wakes    int
}

func (s *scriptListener) AwaitWake(ctx context.Context) error {
	s.wakes++
	return nil
}

func (s *scriptListener) Command(ctx context.Context) (Utterance, error) {
	if s.next >= len(s.commands) {
		return Utterance{}, ErrNoSpeech
	}
	text := s.commands[s.next]
	s.next++
	if text == "" {
		return Utterance{}, ErrNoSpeech
	}
	return Utterance{Text: text, Heard: time.Now()}, nil
}

type recordSpeaker struct {
	said []string
}

func (s *recordSpeaker) Say(text string) error {
	s.said = append(s.said, text)
	return nil
}

type scriptClassifier struct {
	raws  map[string]intent.Raw
	errs  map[string]error
	calls int
}

func (c *scriptClassifier) Classify(ctx context.Context, utterance string) (intent.Raw, error) {
	c.calls++
	if err, ok := c.errs[utterance]; ok {
		return intent.Raw{}, err
	}
	raw, ok := c.raws[utterance]
	if !ok {
		return intent.Raw{}, &nlu.ClassifyError{Kind: nlu.MalformedResponse, Err: errors.New("unscripted")}
	}
	return raw, nil
}

type recordDispatcher struct {
	results map[string]dispatch.Result
	intents []*intent.Intent
}

func (d *recordDispatcher) Dispatch(in *intent.Intent) dispatch.Result {
	d.intents = append(d.intents, in)
	if res, ok := d.results[in.Action()]; ok {
		return res
	}
	return dispatch.Result{OK: true, Message: "done"}
}

func newTestLoop(listener Listener, speaker Speaker, classifier Classifier, d Dispatcher) *Loop {
	return New(Config{Reprompt: true}, listener, speaker, classifier, intent.Default(), d)
}

func TestTurnOpenYoutube(t *testing.T) {
	listener := &scriptListener{commands: []string{"open youtube"}}
	speaker := &recordSpeaker{}
	classifier := &scriptClassifier{raws: map[string]intent.Raw{
		"open youtube": {
			Action:     "open_website",
			Parameters: map[string]string{"site": "youtube"},
			Confidence: 0.97,
		},
	}}
	dispatcher := &recordDispatcher{results: map[string]dispatch.Result{
		"open_website": {OK: true, Message: "Opening YouTube"},
	}}

	loop := newTestLoop(listener, speaker, classifier, dispatcher)
	require.NoError(t, loop.Turn(context.Background()))

	require.Len(t, dispatcher.intents, 1)
	assert.Equal(t, "open_website", dispatcher.intents[0].Action())
	assert.Equal(t, "youtube", dispatcher.intents[0].String("site"))
	assert.Equal(t, []string{"Opening YouTube"}, speaker.said)
}

func TestTurnSetVolumeCoercesAndClamps(t *testing.T) {
	listener := &scriptListener{commands: []string{"set volume to 500"}}
	speaker := &recordSpeaker{}
	classifier := &scriptClassifier{raws: map[string]intent.Raw{
		"set volume to 500": {
			Action:     "set_volume",
			Parameters: map[string]string{"level": "500"},
		},
	}}
	dispatcher := &recordDispatcher{}

	loop := newTestLoop(listener, speaker, classifier, dispatcher)
	require.NoError(t, loop.Turn(context.Background()))

	require.Len(t, dispatcher.intents, 1)
	assert.Equal(t, 100, dispatcher.intents[0].Int("level"))
}

func TestTurnUnknownActionNeverDispatches(t *testing.T) {
	listener := &scriptListener{commands: []string{"teleport me home"}}
	speaker := &recordSpeaker{}
	classifier := &scriptClassifier{raws: map[string]intent.Raw{
		"teleport me home": {Action: "teleport"},
	}}
	dispatcher := &recordDispatcher{}

	loop := newTestLoop(listener, speaker, classifier, dispatcher)
	require.NoError(t, loop.Turn(context.Background()))

	assert.Empty(t, dispatcher.intents)
	assert.Equal(t, []string{"I didn't understand that command."}, speaker.said)
}

func TestTurnUnreachableServiceSkipsDispatch(t *testing.T) {
	listener := &scriptListener{commands: []string{"open youtube"}}
	speaker := &recordSpeaker{}
	classifier := &scriptClassifier{errs: map[string]error{
		"open youtube": &nlu.ClassifyError{Kind: nlu.Unreachable, Err: errors.New("timeout")},
	}}
	dispatcher := &recordDispatcher{}

	loop := newTestLoop(listener, speaker, classifier, dispatcher)
	require.NoError(t, loop.Turn(context.Background()))

	assert.Empty(t, dispatcher.intents)
	assert.Equal(t, []string{"I'm having trouble connecting."}, speaker.said)
}

func TestTurnCaptureTimeoutAbandonsSilently(t *testing.T) {
	listener := &scriptListener{commands: []string{""}}
	speaker := &recordSpeaker{}
	classifier := &scriptClassifier{}
	dispatcher := &recordDispatcher{}

	loop := newTestLoop(listener, speaker, classifier, dispatcher)
	require.NoError(t, loop.Turn(context.Background()))

	assert.Zero(t, classifier.calls)
	assert.Empty(t, dispatcher.intents)
	assert.Empty(t, speaker.said)
}

func TestHandlerFailureDoesNotPoisonNextTurn(t *testing.T) {
	listener := &scriptListener{commands: []string{"launch ghost", "open youtube"}}
	speaker := &recordSpeaker{}
	classifier := &scriptClassifier{raws: map[string]intent.Raw{
		"launch ghost": {
			Action:     "open_application",
			Parameters: map[string]string{"app_name": "ghost"},
		},
		"open youtube": {
			Action:     "open_website",
			Parameters: map[string]string{"site": "youtube"},
		},
	}}
	dispatcher := &recordDispatcher{results: map[string]dispatch.Result{
		"open_application": {OK: false, Message: "Sorry, I couldn't find the application ghost.", ErrorKind: "app_not_found"},
		"open_website":     {OK: true, Message: "Opening YouTube"},
	}}

	loop := newTestLoop(listener, speaker, classifier, dispatcher)
	require.NoError(t, loop.Turn(context.Background()))
	require.NoError(t, loop.Turn(context.Background()))

	require.Len(t, dispatcher.intents, 2)
	assert.Equal(t, "open_website", dispatcher.intents[1].Action())
	assert.Equal(t, "Opening YouTube", speaker.said[len(speaker.said)-1])
}

func TestRepromptOnVagueOpenCommand(t *testing.T) {
	listener := &scriptListener{commands: []string{"open", "open youtube"}}
	speaker := &recordSpeaker{}
	classifier := &scriptClassifier{raws: map[string]intent.Raw{
		"open": {
			Action:     "unknown",
			Parameters: map[string]string{"reason": "no target", "original_command": "open"},
		},
		"open youtube": {
			Action:     "open_website",
			Parameters: map[string]string{"site": "youtube"},
		},
	}}
	dispatcher := &recordDispatcher{results: map[string]dispatch.Result{
		"open_website": {OK: true, Message: "Opening YouTube"},
	}}

	loop := newTestLoop(listener, speaker, classifier, dispatcher)
	require.NoError(t, loop.Turn(context.Background()))

	// one wake word served both the vague command and its follow-up
	assert.Equal(t, 1, listener.wakes)
	require.Len(t, dispatcher.intents, 1)
	assert.Equal(t, "open_website", dispatcher.intents[0].Action())
	assert.Contains(t, speaker.said, "What application or website do you want me to open?")
}

func TestRepromptHappensAtMostOnce(t *testing.T) {
	listener := &scriptListener{commands: []string{"open", "open"}}
	speaker := &recordSpeaker{}
	classifier := &scriptClassifier{raws: map[string]intent.Raw{
		"open": {Action: "unknown"},
	}}
	dispatcher := &recordDispatcher{}

	loop := newTestLoop(listener, speaker, classifier, dispatcher)
	require.NoError(t, loop.Turn(context.Background()))

	assert.Equal(t, 2, classifier.calls)
	assert.Empty(t, dispatcher.intents)
	assert.Equal(t, "I didn't understand that command.", speaker.said[len(speaker.said)-1])
}

func TestTurnEventsReachTheStatusSink(t *testing.T) {
	listener := &scriptListener{commands: []string{"open youtube"}}
	speaker := &recordSpeaker{}
	classifier := &scriptClassifier{raws: map[string]intent.Raw{
		"open youtube": {
			Action:     "open_website",
			Parameters: map[string]string{"site": "youtube"},
		},
	}}
	dispatcher := &recordDispatcher{results: map[string]dispatch.Result{
		"open_website": {OK: true, Message: "Opening YouTube"},
	}}

	loop := newTestLoop(listener, speaker, classifier, dispatcher)

	var kinds []string
	var states []string
	loop.Events(func(e Event) {
		kinds = append(kinds, e.Kind)
		if e.Kind == "state" {
			states = append(states, e.State)
		}
	})

	require.NoError(t, loop.Turn(context.Background()))

	assert.Contains(t, kinds, "utterance")
	assert.Contains(t, kinds, "result")
	assert.Equal(t, []string{"idle", "listening", "processing", "feedback", "idle"}, states)
}

func TestDispatcherIntegration(t *testing.T) {
	// End to end with the real dispatcher and a stub handler table.
	table := make(map[string]dispatch.Handler)
	for _, name := range intent.Default().Names() {
		name := name
		table[name] = dispatch.HandlerFunc(func(in *intent.Intent) (string, error) {
			if name == "close_application" {
				return "", fmt.Errorf("not running")
			}
			return "ok: " + name, nil
		})
	}
	d, err := dispatch.New(intent.Default(), table)
	require.NoError(t, err)

	listener := &scriptListener{commands: []string{"close spotify"}}
	speaker := &recordSpeaker{}
	classifier := &scriptClassifier{raws: map[string]intent.Raw{
		"close spotify": {
			Action:     "close_application",
			Parameters: map[string]string{"app_name": "spotify"},
		},
	}}

	loop := newTestLoop(listener, speaker, classifier, d)
	require.NoError(t, loop.Turn(context.Background()))
	assert.Equal(t, "Sorry, I couldn't do that.", speaker.said[len(speaker.said)-1])
}
