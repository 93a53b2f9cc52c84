package audio

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"testing"
)

func TestFrames(t *testing.T) {
	pcm := []byte{
		0x00, 0x00, // 0
		0x00, 0x40, // 16384
		0x00, 0x80, // -32768
		0xff, 0x7f, // 32767
	}
	raw, err := Decode(base64.StdEncoding.EncodeToString(pcm))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	frames := Frames(raw)
	want := []float32{0, 0.5, -1, 32767.0 / 32768.0}
	if len(frames) != len(want) {
		t.Fatalf("got %d frames, want %d", len(frames), len(want))
	}
	for i := range want {
		if frames[i] != want[i] {
			t.Errorf("frame %d = %v, want %v", i, frames[i], want[i])
		}
	}
	if p := Peak(frames); p != 1 {
		t.Errorf("Peak = %v, want 1", p)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode("!!not base64!!"); err == nil {
		t.Error("expected base64 error")
	}
	odd := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	if _, err := Decode(odd); !errors.Is(err, ErrOddLength) {
		t.Errorf("odd length error = %v, want ErrOddLength", err)
	}
	if _, err := Decode(""); !errors.Is(err, ErrEmpty) {
		t.Errorf("empty error = %v, want ErrEmpty", err)
	}
}

func TestWAV(t *testing.T) {
	pcm := make([]byte, 48000) // one second at 24 kHz mono
	wav := WAV(pcm, 24000, 1)

	if len(wav) != 44+len(pcm) {
		t.Fatalf("len = %d, want %d", len(wav), 44+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[12:16]) != "fmt " || string(wav[36:40]) != "data" {
		t.Error("bad chunk identifiers")
	}
	checks := []struct {
		name string
		off  int
		size int
		want uint32
	}{
		{"riff size", 4, 4, uint32(36 + len(pcm))},
		{"format", 20, 2, 1},
		{"channels", 22, 2, 1},
		{"sample rate", 24, 4, 24000},
		{"byte rate", 28, 4, 48000},
		{"block align", 32, 2, 2},
		{"bits", 34, 2, 16},
		{"data size", 40, 4, uint32(len(pcm))},
	}
	for _, c := range checks {
		var got uint32
		if c.size == 2 {
			got = uint32(binary.LittleEndian.Uint16(wav[c.off:]))
		} else {
			got = binary.LittleEndian.Uint32(wav[c.off:])
		}
		if got != c.want {
			t.Errorf("%s = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestDuration(t *testing.T) {
	if d := Duration(make([]byte, 48000), 24000, 1); d != 1 {
		t.Errorf("Duration = %v, want 1", d)
	}
	if d := Duration(make([]byte, 10), 0, 1); d != 0 {
		t.Errorf("Duration with zero rate = %v", d)
	}
}
