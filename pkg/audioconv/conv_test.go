package audioconv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToMono16kDownmix(t *testing.T) {
	stereo := []float32{1, 0, 1, 0, 1, 0}
	mono := toMono16k(stereo, 2, 16000)
	assert.Equal(t, []float32{0.5, 0.5, 0.5}, mono)
}

func TestToMono16kResamplesHalfRate(t *testing.T) {
	in := make([]float32, 32000)
	out := toMono16k(in, 1, 32000)
	assert.InDelta(t, 16000, len(out), 1)
}

func TestToMono16kPassthrough(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	assert.Equal(t, in, toMono16k(in, 1, 16000))
}

func TestInt16ToFloat32Range(t *testing.T) {
	out := int16ToFloat32([]int16{-32768, 0, 16384})
	assert.InDelta(t, -1.0, out[0], 1e-6)
	assert.InDelta(t, 0.0, out[1], 1e-6)
	assert.InDelta(t, 0.5, out[2], 1e-6)
}
