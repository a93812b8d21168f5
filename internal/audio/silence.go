// Package audio implements the WAV silence gate: near-silent recordings get a
// blank transcript without waking the transcription engine.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

var (
	ErrUnsupportedWAV = errors.New("unsupported wav format")
	ErrInvalidWAV     = errors.New("invalid wav file")
)

type SilenceMetrics struct {
	RMSdBFS  float64
	PeakdBFS float64
	Samples  int64
}

// IsSilentWAV reports whether the file's RMS level is at or below
// thresholdDBFS and its peak stays within 6 dB of the threshold.
func IsSilentWAV(path string, thresholdDBFS float64) (bool, SilenceMetrics, error) {
	metrics, err := analyzeWAV(path)
	if err != nil {
		return false, SilenceMetrics{}, err
	}

	if metrics.Samples == 0 {
		return true, metrics, nil
	}

	if math.IsInf(metrics.RMSdBFS, -1) && math.IsInf(metrics.PeakdBFS, -1) {
		return true, metrics, nil
	}

	peakGate := thresholdDBFS + 6
	return metrics.RMSdBFS <= thresholdDBFS && metrics.PeakdBFS <= peakGate, metrics, nil
}

type wavContent struct {
	format        uint16
	bitsPerSample uint16
	data          []byte
}

func analyzeWAV(path string) (SilenceMetrics, error) {
	f, err := os.Open(path)
	if err != nil {
		return SilenceMetrics{}, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()

	wav, err := readWAV(f)
	if err != nil {
		return SilenceMetrics{}, err
	}

	decode, err := sampleDecoder(wav.format, wav.bitsPerSample)
	if err != nil {
		return SilenceMetrics{}, err
	}

	bytesPerSample := int(wav.bitsPerSample / 8)
	var peak, sumSquares float64
	var samples int64
	for i := 0; i+bytesPerSample <= len(wav.data); i += bytesPerSample {
		value := decode(wav.data[i : i+bytesPerSample])
		if abs := math.Abs(value); abs > peak {
			peak = abs
		}
		sumSquares += value * value
		samples++
	}

	if samples == 0 {
		return SilenceMetrics{RMSdBFS: math.Inf(-1), PeakdBFS: math.Inf(-1)}, nil
	}

	rms := math.Sqrt(sumSquares / float64(samples))
	return SilenceMetrics{
		RMSdBFS:  amplitudeToDBFS(rms),
		PeakdBFS: amplitudeToDBFS(peak),
		Samples:  samples,
	}, nil
}

func readWAV(f *os.File) (wavContent, error) {
	header := make([]byte, 12)
	if _, err := io.ReadFull(f, header); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return wavContent{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
		}
		return wavContent{}, fmt.Errorf("read wav header: %w", err)
	}

	if string(header[:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return wavContent{}, ErrInvalidWAV
	}

	var wav wavContent
	var hasFmt, hasData bool

	for {
		chunkHeader := make([]byte, 8)
		if _, err := io.ReadFull(f, chunkHeader); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return wavContent{}, fmt.Errorf("read wav chunk header: %w", err)
		}

		chunkID := string(chunkHeader[:4])
		chunkSize := binary.LittleEndian.Uint32(chunkHeader[4:8])

		// RIFF chunks are padded to even sizes; the pad byte may be
		// absent on the final chunk, so skipping it tolerates EOF.
		padded := int64(chunkSize)
		if chunkSize%2 != 0 {
			padded++
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return wavContent{}, ErrInvalidWAV
			}
			buf := make([]byte, chunkSize)
			if _, err := io.ReadFull(f, buf); err != nil {
				return wavContent{}, fmt.Errorf("read wav fmt chunk: %w", err)
			}
			wav.format = binary.LittleEndian.Uint16(buf[0:2])
			wav.bitsPerSample = binary.LittleEndian.Uint16(buf[14:16])
			hasFmt = true
			if chunkSize%2 != 0 {
				_, _ = f.Seek(1, io.SeekCurrent)
			}
		case "data":
			buf := make([]byte, chunkSize)
			if _, err := io.ReadFull(f, buf); err != nil {
				return wavContent{}, fmt.Errorf("read wav data: %w", err)
			}
			wav.data = buf
			hasData = true
			if chunkSize%2 != 0 {
				_, _ = f.Seek(1, io.SeekCurrent)
			}
		default:
			if _, err := f.Seek(padded, io.SeekCurrent); err != nil {
				return wavContent{}, fmt.Errorf("seek wav chunk %s: %w", chunkID, err)
			}
		}
	}

	if !hasFmt || !hasData {
		return wavContent{}, ErrInvalidWAV
	}
	return wav, nil
}

// sampleDecoder returns a normalized [-1, 1] decoder for PCM (format 1) and
// IEEE float (format 3) samples.
func sampleDecoder(format, bitsPerSample uint16) (func([]byte) float64, error) {
	if format == 3 {
		switch bitsPerSample {
		case 32:
			return func(b []byte) float64 {
				return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
			}, nil
		case 64:
			return func(b []byte) float64 {
				return math.Float64frombits(binary.LittleEndian.Uint64(b))
			}, nil
		}
		return nil, ErrUnsupportedWAV
	}

	if format != 1 {
		return nil, ErrUnsupportedWAV
	}

	switch bitsPerSample {
	case 8:
		return func(b []byte) float64 { return (float64(b[0]) - 128.0) / 128.0 }, nil
	case 16:
		return func(b []byte) float64 {
			return float64(int16(binary.LittleEndian.Uint16(b))) / 32768.0
		}, nil
	case 24:
		return func(b []byte) float64 {
			v := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
			if v&0x800000 != 0 {
				v |= ^0xFFFFFF
			}
			return float64(v) / 8388608.0
		}, nil
	case 32:
		return func(b []byte) float64 {
			return float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648.0
		}, nil
	}
	return nil, ErrUnsupportedWAV
}

func amplitudeToDBFS(amplitude float64) float64 {
	if amplitude <= 0 {
		return math.Inf(-1)
	}
	return 20.0 * math.Log10(amplitude)
}
