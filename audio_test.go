package harmonia_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/harmonia-audio/harmonia"
)

func TestWavHeader(t *testing.T) {
	buffer := make(harmonia.AudioBuffer, 100)
	for _, c := range []struct {
		pcm16       bool
		format      uint16
		bits        uint16
		headerBytes int
	}{
		{true, 1, 16, 44},
		{false, 3, 32, 58},
	} {
		wav, err := buffer.Wav(c.pcm16)
		if err != nil {
			t.Fatalf("Wav(%v) failed: %v", c.pcm16, err)
		}
		dataBytes := 100 * 2 * int(c.bits) / 8
		if len(wav) != c.headerBytes+dataBytes {
			t.Errorf("Wav(%v) is %v bytes, want %v", c.pcm16, len(wav), c.headerBytes+dataBytes)
		}
		if !bytes.HasPrefix(wav, []byte("RIFF")) || string(wav[8:16]) != "WAVEfmt " {
			t.Errorf("Wav(%v) has a malformed header %q", c.pcm16, wav[:16])
		}
		if got := binary.LittleEndian.Uint32(wav[4:]); int(got) != len(wav)-8 {
			t.Errorf("Wav(%v) RIFF size %v, want %v", c.pcm16, got, len(wav)-8)
		}
		if got := binary.LittleEndian.Uint16(wav[20:]); got != c.format {
			t.Errorf("Wav(%v) format %v, want %v", c.pcm16, got, c.format)
		}
		if got := binary.LittleEndian.Uint16(wav[34:]); got != c.bits {
			t.Errorf("Wav(%v) bits per sample %v, want %v", c.pcm16, got, c.bits)
		}
		if got := string(wav[c.headerBytes-8 : c.headerBytes-4]); got != "data" {
			t.Errorf("Wav(%v) data chunk at the wrong offset: %q", c.pcm16, got)
		}
	}
}

func TestRawClipsPCM(t *testing.T) {
	buffer := harmonia.AudioBuffer{{2, -2}, {0.5, 0}}
	raw, err := buffer.Raw(true)
	if err != nil {
		t.Fatalf("Raw failed: %v", err)
	}
	want := []int16{math.MaxInt16, math.MinInt16, math.MaxInt16 / 2, 0}
	for i, w := range want {
		if got := int16(binary.LittleEndian.Uint16(raw[2*i:])); got != w {
			t.Errorf("sample %v is %v, want %v", i, got, w)
		}
	}
}

func TestMetering(t *testing.T) {
	buffer := harmonia.AudioBuffer{{0.5, -1}, {-0.5, 0}, {0.5, 1}, {-0.5, 0}}
	if p := buffer.Peak(); p != 1 {
		t.Errorf("Peak() = %v, want 1", p)
	}
	if r := buffer.RMS(); math.Abs(float64(r)-math.Sqrt(0.375)) > 1e-6 {
		t.Errorf("RMS() = %v, want %v", r, math.Sqrt(0.375))
	}
	if buffer[1][0] != -0.5 {
		t.Errorf("metering modified the buffer")
	}
	if d := make(harmonia.AudioBuffer, harmonia.SampleRate/2).Duration(); d != 0.5 {
		t.Errorf("Duration() = %v, want 0.5", d)
	}
}
