package audio

import (
	"context"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	sampleRate = 16000
	frameSize  = 320 // 20ms at 16kHz
	frameMS    = 20
)

// CaptureParams tune one capture window.
type CaptureParams struct {
	// MaxDuration caps the window regardless of speech.
	MaxDuration time.Duration
	// SilenceAfter ends the capture once speech was heard and this much
	// silence follows.
	SilenceAfter time.Duration
	// SilenceRMS is the speech/silence threshold.
	SilenceRMS float64
}

func (p *CaptureParams) defaults() {
	if p.MaxDuration <= 0 {
		p.MaxDuration = 10 * time.Second
	}
	if p.SilenceAfter <= 0 {
		p.SilenceAfter = 600 * time.Millisecond
	}
	if p.SilenceRMS <= 0 {
		p.SilenceRMS = 0.015
	}
}

// Recorder captures mono 16kHz float32 PCM from the default input device.
type Recorder struct{}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Capture records until the speaker falls silent, the window fills, or ctx is
// cancelled. The returned slice holds frames from speech onset onwards; it is
// empty when nothing was said.
func (r *Recorder) Capture(ctx context.Context, p CaptureParams) ([]float32, error) {
	p.defaults()

	buf := make([]float32, frameSize)
	out := make([]float32, 0, sampleRate*3)

	stream, err := portaudio.OpenDefaultStream(1, 0, sampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, err
	}
	defer stream.Stop()

	var (
		speaking      bool
		silenceFrames int
	)
	silenceLimit := int(p.SilenceAfter.Milliseconds()) / frameMS
	maxFrames := int(p.MaxDuration.Milliseconds()) / frameMS

	for i := 0; i < maxFrames; i++ {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}

		if err := stream.Read(); err != nil {
			return nil, err
		}

		if frameRMS(buf) > p.SilenceRMS {
			speaking = true
			silenceFrames = 0
			out = append(out, buf...)
			continue
		}

		if speaking {
			silenceFrames++
			if silenceFrames >= silenceLimit {
				break
			}
			out = append(out, buf...)
		}
	}

	return out, nil
}

func frameRMS(f []float32) float64 {
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
