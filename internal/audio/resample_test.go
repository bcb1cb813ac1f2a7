package audio

import (
	"bytes"
	"math"
	"testing"
)

func TestResampleInt16Identity(t *testing.T) {
	in := []int16{1, 2, 3, 4}
	out := ResampleInt16(in, 16000, 16000)
	if len(out) != len(in) {
		t.Fatalf("len(out) = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("out[%d] = %d, want %d", i, out[i], in[i])
		}
	}
}

func TestResampleInt16Halves(t *testing.T) {
	in := make([]int16, 480) // 10ms at 48kHz
	for i := range in {
		in[i] = int16(math.Sin(float64(i)/10) * 1000)
	}
	out := ResampleInt16(in, 48000, 16000)
	if len(out) != 160 {
		t.Fatalf("len(out) = %d, want 160", len(out))
	}
}

func TestResampleInt16Upsamples(t *testing.T) {
	in := []int16{0, 100, 200, 300}
	out := ResampleInt16(in, 8000, 16000)
	if len(out) != 8 {
		t.Fatalf("len(out) = %d, want 8", len(out))
	}
	// Interpolated midpoint between the first two samples.
	if out[1] != 50 {
		t.Fatalf("out[1] = %d, want 50", out[1])
	}
}

func TestResamplePCM16LERoundTripBytes(t *testing.T) {
	samples := []int16{-300, -200, -100, 0, 100, 200, 300, 400}
	b := Int16ToBytesLE(samples)
	same := ResamplePCM16LE(b, 16000, 16000)
	if !bytes.Equal(same, b) {
		t.Fatalf("identity resample changed bytes")
	}
	half := ResamplePCM16LE(b, 32000, 16000)
	if len(half) != len(b)/2 {
		t.Fatalf("len(half) = %d, want %d", len(half), len(b)/2)
	}
}

func TestEncodeWAVPCM16LEHeader(t *testing.T) {
	pcm := Int16ToBytesLE([]int16{1, 2, 3, 4})
	wav, err := EncodeWAVPCM16LE(pcm, 16000)
	if err != nil {
		t.Fatalf("EncodeWAVPCM16LE() error = %v", err)
	}
	if len(wav) != 44+len(pcm) {
		t.Fatalf("len(wav) = %d, want %d", len(wav), 44+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatalf("unexpected container header: %q %q", wav[0:4], wav[8:12])
	}
}
