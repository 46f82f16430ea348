package voice

import (
	"context"
	"time"

	"alpha/internal/session"
)

// FileListener replays a single pre-transcribed utterance, used by the
// daemon's file-input mode to exercise the pipeline without a microphone.
type FileListener struct {
	text  string
	woken bool
	used  bool
}

func NewFileListener(text string) *FileListener {
	return &FileListener{text: text}
}

func (f *FileListener) AwaitWake(ctx context.Context) error {
	if f.woken {
		// one utterance only; block until the caller gives up
		<-ctx.Done()
		return ctx.Err()
	}
	f.woken = true
	return nil
}

func (f *FileListener) Command(ctx context.Context) (session.Utterance, error) {
	if f.used {
		return session.Utterance{}, session.ErrNoSpeech
	}
	f.used = true
	return session.Utterance{Text: f.text, Heard: time.Now()}, nil
}
