// Package voice implements the capture capability: wake-word gating and
// command capture on top of the microphone recorder and the transcriber.
package voice

import (
	"context"
	"strings"
	"time"

	log "log/slog"

	"alpha/internal/audio"
	"alpha/internal/session"
)

// Transcriber converts 16kHz mono PCM into text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32) (string, error)
}

// Ducker fades other playback down while the microphone is open. Optional.
type Ducker interface {
	Duck(ctx context.Context, factor float64, duration time.Duration) error
	Restore(ctx context.Context, duration time.Duration) error
}

type Options struct {
	// WakeWord gates turns; matched case-insensitively in wake transcripts.
	WakeWord string
	// WakeWindow bounds each wake-word listening chunk.
	WakeWindow time.Duration
	// CommandTimeout bounds the utterance capture after wake.
	CommandTimeout time.Duration
	// Ducker, when set, lowers foreign audio during command capture.
	Ducker Ducker
}

// Listener implements session.Listener on real audio. A turn starts either
// by hearing the wake word or by an explicit Trigger (the control socket).
type Listener struct {
	rec     *audio.Recorder
	tr      Transcriber
	opt     Options
	trigger chan struct{}
}

func NewListener(rec *audio.Recorder, tr Transcriber, opt Options) *Listener {
	if opt.WakeWindow <= 0 {
		opt.WakeWindow = 3 * time.Second
	}
	if opt.CommandTimeout <= 0 {
		opt.CommandTimeout = 10 * time.Second
	}
	return &Listener{
		rec:     rec,
		tr:      tr,
		opt:     opt,
		trigger: make(chan struct{}, 1),
	}
}

// Trigger starts a turn immediately, bypassing wake-word detection. Safe to
// call from the IPC goroutine; extra triggers while one is pending collapse.
func (l *Listener) Trigger() {
	select {
	case l.trigger <- struct{}{}:
	default:
	}
}

func (l *Listener) AwaitWake(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.trigger:
			log.Debug("turn triggered via control socket")
			return nil
		default:
		}

		pcm, err := l.rec.Capture(ctx, audio.CaptureParams{
			MaxDuration:  l.opt.WakeWindow,
			SilenceAfter: 400 * time.Millisecond,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("wake capture failed", "err", err)
			continue
		}
		if len(pcm) == 0 {
			continue
		}

		text, err := l.tr.Transcribe(ctx, pcm)
		if err != nil {
			log.Error("wake transcription failed", "err", err)
			continue
		}

		if containsWord(text, l.opt.WakeWord) {
			log.Info("wake word detected", "heard", text)
			return nil
		}
	}
}

func (l *Listener) Command(ctx context.Context) (session.Utterance, error) {
	if l.opt.Ducker != nil {
		if err := l.opt.Ducker.Duck(ctx, 0.3, 150*time.Millisecond); err != nil {
			log.Warn("failed to duck playback", "err", err)
		}
		defer func() {
			if err := l.opt.Ducker.Restore(ctx, 150*time.Millisecond); err != nil {
				log.Warn("failed to restore playback", "err", err)
			}
		}()
	}

	pcm, err := l.rec.Capture(ctx, audio.CaptureParams{MaxDuration: l.opt.CommandTimeout})
	if err != nil {
		return session.Utterance{}, err
	}
	if len(pcm) == 0 {
		return session.Utterance{}, session.ErrNoSpeech
	}

	text, err := l.tr.Transcribe(ctx, pcm)
	if err != nil {
		return session.Utterance{}, err
	}

	text = cleanTranscript(text)
	if text == "" {
		return session.Utterance{}, session.ErrNoSpeech
	}

	return session.Utterance{Text: text, Heard: time.Now()}, nil
}

// Affirmed captures a short yes/no answer, used for save confirmations.
func (l *Listener) Affirmed(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	utt, err := l.Command(ctx)
	if err != nil {
		return false, err
	}

	low := strings.ToLower(utt.Text)
	for _, w := range []string{"yes", "yeah", "yup", "sure", "save", "ok", "okay"} {
		if strings.Contains(low, w) {
			return true, nil
		}
	}
	return false, nil
}

func containsWord(text, word string) bool {
	if word == "" {
		return false
	}
	return strings.Contains(normalize(text), strings.ToLower(word))
}

func cleanTranscript(text string) string {
	return strings.TrimSpace(text)
}

func normalize(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}
