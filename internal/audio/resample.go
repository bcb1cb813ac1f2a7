package audio

import (
	"encoding/binary"
	"math"
)

// ResampleInt16 converts mono PCM16 samples from inRate to outRate using
// linear interpolation, clamping to the int16 range.
func ResampleInt16(in []int16, inRate, outRate int) []int16 {
	if inRate == outRate || len(in) == 0 {
		return append([]int16(nil), in...)
	}
	ratio := float64(outRate) / float64(inRate)
	outLen := int(math.Round(float64(len(in)) * ratio))
	if outLen <= 1 {
		return []int16{}
	}
	out := make([]int16, outLen)
	for i := 0; i < outLen; i++ {
		srcPos := float64(i) / ratio
		i0 := int(math.Floor(srcPos))
		i1 := i0 + 1
		if i0 >= len(in) {
			i0 = len(in) - 1
		}
		if i1 >= len(in) {
			i1 = len(in) - 1
		}
		f := srcPos - float64(i0)
		v := float64(in[i0])*(1.0-f) + float64(in[i1])*f
		if v > math.MaxInt16 {
			v = math.MaxInt16
		}
		if v < math.MinInt16 {
			v = math.MinInt16
		}
		out[i] = int16(v)
	}
	return out
}

// ResamplePCM16LE resamples a little-endian PCM16 byte stream. A trailing odd
// byte is dropped.
func ResamplePCM16LE(b []byte, inRate, outRate int) []byte {
	if inRate == outRate {
		return append([]byte(nil), b...)
	}
	samples := BytesToInt16LE(b)
	return Int16ToBytesLE(ResampleInt16(samples, inRate, outRate))
}

func BytesToInt16LE(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2 : i*2+2]))
	}
	return out
}

func Int16ToBytesLE(in []int16) []byte {
	out := make([]byte, len(in)*2)
	for i, s := range in {
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(s))
	}
	return out
}
