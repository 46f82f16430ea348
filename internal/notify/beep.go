// Package notify gives the user out-of-band cues: an audible chime when the
// assistant starts listening and a desktop notification with the current
// status.
package notify

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// Chime plays the wake sound. Failures are reported, never fatal; the
// assistant works without the cue.
func Chime(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open chime: %w", err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode chime: %w", err)
	}
	defer streamer.Close()

	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))
	<-done

	return nil
}

// Desktop shows a transient desktop notification; fails quietly when no
// notification daemon is around.
func Desktop(summary, body string) error {
	return exec.Command("notify-send", "-a", "alpha", "-t", "2500", summary, body).Run()
}
