package harmonia

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// wavFormat is the body of the "fmt " chunk of a WAVE file.
type wavFormat struct {
	AudioFormat   uint16 // 1 = PCM, 3 = IEEE float
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// Wav encodes the buffer as a stereo WAVE file at SampleRate: 16-bit signed
// PCM when pcm16 is set, 32-bit IEEE float otherwise.
func (buffer AudioBuffer) Wav(pcm16 bool) ([]byte, error) {
	data, err := buffer.Raw(pcm16)
	if err != nil {
		return nil, fmt.Errorf("Wav failed: %w", err)
	}
	bytesPerSample, format := 4, uint16(3)
	if pcm16 {
		bytesPerSample, format = 2, 1
	}
	header := wavFormat{
		AudioFormat:   format,
		NumChannels:   2,
		SampleRate:    SampleRate,
		ByteRate:      uint32(SampleRate * 2 * bytesPerSample),
		BlockAlign:    uint16(2 * bytesPerSample),
		BitsPerSample: uint16(8 * bytesPerSample),
	}
	fmtSize := binary.Size(header)
	var fact []byte
	if !pcm16 {
		// float files carry an empty format extension and a fact chunk
		fmtSize += 2
		fact = binary.LittleEndian.AppendUint32([]byte("fact\x04\x00\x00\x00"), uint32(len(buffer)))
	}
	var buf bytes.Buffer
	le := func(v any) { binary.Write(&buf, binary.LittleEndian, v) }
	buf.WriteString("RIFF")
	le(uint32(4 + 8 + fmtSize + len(fact) + 8 + len(data)))
	buf.WriteString("WAVEfmt ")
	le(uint32(fmtSize))
	le(header)
	if !pcm16 {
		le(uint16(0))
	}
	buf.Write(fact)
	buf.WriteString("data")
	le(uint32(len(data)))
	buf.Write(data)
	return buf.Bytes(), nil
}

// Raw returns the interleaved little-endian samples of the buffer without a
// header: 16-bit signed integers when pcm16 is set, 32-bit floats otherwise.
// Samples outside [-1, 1] are clipped when converting to integers.
func (buffer AudioBuffer) Raw(pcm16 bool) ([]byte, error) {
	var buf bytes.Buffer
	var data any = buffer
	if pcm16 {
		ints := make([][2]int16, len(buffer))
		for i, s := range buffer {
			for c := range s {
				ints[i][c] = int16(Clamp(s[c]*math.MaxInt16, math.MinInt16, math.MaxInt16))
			}
		}
		data = ints
	}
	if err := binary.Write(&buf, binary.LittleEndian, data); err != nil {
		return nil, fmt.Errorf("Raw failed: %w", err)
	}
	return buf.Bytes(), nil
}
