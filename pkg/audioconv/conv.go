// Package audioconv decodes common audio containers into the mono 16 kHz
// float32 PCM the transcriber wants. Used by the daemon's file-input mode,
// where a recorded utterance stands in for the microphone.
package audioconv

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

const targetRate = 16000

// ConvertFileToPCM16k decodes path by extension, falling back to magic-byte
// sniffing. Ogg containers are tried as Vorbis first, then Opus.
func ConvertFileToPCM16k(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(f)
	case ".mp3":
		return decodeMP3(f)
	case ".ogg", ".oga":
		return decodeOgg(f)
	}

	br := bufio.NewReader(f)
	magic, _ := br.Peek(4)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	switch string(magic) {
	case "RIFF":
		return decodeWAV(f)
	case "OggS":
		return decodeOgg(f)
	}
	return nil, fmt.Errorf("unsupported audio format: %s", path)
}

func decodeWAV(r io.ReadSeeker) ([]float32, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid wav")
	}
	pb, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if pb == nil || pb.Data == nil {
		return nil, errors.New("empty wav")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}
	x := make([]float32, len(pb.Data))
	scale := 1.0 / float64(int64(1)<<(depth-1))
	for i, v := range pb.Data {
		x[i] = float32(math.Max(-1, math.Min(1, float64(v)*scale)))
	}

	ch, sr := 1, 44100
	if pb.Format != nil {
		if pb.Format.NumChannels > 0 {
			ch = pb.Format.NumChannels
		}
		if pb.Format.SampleRate > 0 {
			sr = pb.Format.SampleRate
		}
	}
	return toMono16k(x, ch, sr), nil
}

func decodeMP3(r io.Reader) ([]float32, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	var raw bytes.Buffer
	if _, err := io.Copy(&raw, dec); err != nil {
		return nil, err
	}
	ints := make([]int16, raw.Len()/2)
	if err := binary.Read(bytes.NewReader(raw.Bytes()), binary.LittleEndian, &ints); err != nil {
		return nil, err
	}

	sr := dec.SampleRate()
	if sr <= 0 {
		sr = 44100
	}
	// go-mp3 always yields interleaved stereo.
	return toMono16k(int16ToFloat32(ints), 2, sr), nil
}

func decodeOgg(r io.ReadSeeker) ([]float32, error) {
	pcm, meta, err := oggvorbis.ReadAll(r)
	if err == nil {
		if meta == nil || meta.Channels <= 0 || meta.SampleRate <= 0 {
			return nil, errors.New("invalid ogg vorbis stream")
		}
		return toMono16k(pcm, meta.Channels, meta.SampleRate), nil
	}

	if _, serr := r.Seek(0, io.SeekStart); serr != nil {
		return nil, serr
	}
	out, oerr := decodeOpus(r)
	if oerr != nil {
		return nil, fmt.Errorf("ogg decode failed as vorbis (%v) and opus (%v)", err, oerr)
	}
	return out, nil
}

func decodeOpus(r io.ReadSeeker) ([]float32, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	defer dec.Destroy()

	ch := dec.ChannelCount()
	if ch <= 0 {
		ch = 1
	}

	var pcm48 []float32
	buf := make([]int16, 24000*ch)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm48 = append(pcm48, int16ToFloat32(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	// Opus always decodes at 48 kHz.
	return toMono16k(pcm48, ch, 48000), nil
}

func int16ToFloat32(in []int16) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v) / 32768.0
	}
	return out
}

func toMono16k(in []float32, channels, rate int) []float32 {
	if channels > 1 {
		frames := len(in) / channels
		mono := make([]float32, frames)
		for i := 0; i < frames; i++ {
			sum := 0.0
			for c := 0; c < channels; c++ {
				sum += float64(in[i*channels+c])
			}
			mono[i] = float32(sum / float64(channels))
		}
		in = mono
	}
	if rate == targetRate || len(in) == 0 {
		return in
	}

	ratio := float64(targetRate) / float64(rate)
	n := int(math.Ceil(float64(len(in)) * ratio))
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		src := float64(i) / ratio
		i0 := int(src)
		if i0 >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := float32(src - float64(i0))
		out[i] = in[i0]*(1-frac) + in[i0+1]*frac
	}
	return out
}
