package audio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// writeTestWAV builds a minimal 16-bit stereo PCM WAV file.
func writeTestWAV(t *testing.T, path string, frames int, sampleRate, channels int) {
	t.Helper()
	dataSize := frames * channels * 2
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	write := func(b []byte) {
		if _, err := f.Write(b); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	u32 := func(v uint32) []byte {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, v)
		return b
	}
	u16 := func(v uint16) []byte {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, v)
		return b
	}

	write([]byte("RIFF"))
	write(u32(uint32(36 + dataSize)))
	write([]byte("WAVE"))

	write([]byte("fmt "))
	write(u32(16))
	write(u16(1)) // PCM
	write(u16(uint16(channels)))
	write(u32(uint32(sampleRate)))
	byteRate := sampleRate * channels * 2
	write(u32(uint32(byteRate)))
	write(u16(uint16(channels * 2)))
	write(u16(16))

	write([]byte("data"))
	write(u32(uint32(dataSize)))

	for i := 0; i < frames*channels; i++ {
		write(u16(uint16(int16(1000))))
	}
}

func TestWAVSourceDecodesAllFrames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wav")
	writeTestWAV(t, path, 10000, 44100, 2)

	src, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer src.Close()

	if src.Channels() != 2 {
		t.Fatalf("expected 2 channels, got %d", src.Channels())
	}
	if src.SampleRate() != 44100 {
		t.Fatalf("expected 44100 Hz, got %d", src.SampleRate())
	}

	total := 0
	for {
		block, err := src.Next()
		total += len(block.Samples)
		if err != nil {
			break
		}
	}
	if total != 10000*2 {
		t.Fatalf("expected %d total samples, got %d", 10000*2, total)
	}
}

func TestOpenFileRejectsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.xyz")
	if err := os.WriteFile(path, []byte("not audio"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := OpenFile(path); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
}
