package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync/atomic"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrUnsupportedFormat reports an asset the decode stage cannot convert.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
	decodeBlockSize     = 4096
)

// Stage is the decode/transform leg between the source file and the device.
type Stage interface {
	// ReadSamples fills dst with interleaved stereo int16 samples at SampleRate
	// and returns the sample count. It returns io.EOF once the source is exhausted
	// or the stage was disconnected.
	ReadSamples(dst []int16) (int, error)
	// Disconnect detaches the stage from its source; later reads return io.EOF.
	Disconnect()
}

// wavStage converts integer PCM WAV of any channel count and rate to the output format.
type wavStage struct {
	dec      *wav.Decoder
	buf      *goaudio.IntBuffer
	channels int
	bitDepth int
	step     float64

	pending []int
	pos     float64
	eof     bool

	disconnected atomic.Bool
}

// NewWAVStage validates the WAV header on r and positions it at the PCM data.
func NewWAVStage(r io.ReadSeeker) (Stage, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		return nil, fmt.Errorf("%w: not a WAV file", ErrUnsupportedFormat)
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("seek PCM data: %w", err)
	}
	if err := checkIntegerPCM(r, dec.WavAudioFormat); err != nil {
		return nil, err
	}

	channels := int(dec.NumChans)
	rate := int(dec.SampleRate)
	depth := int(dec.BitDepth)
	if channels < 1 || rate < 1 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedFormat, channels, rate)
	}
	switch depth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit samples", ErrUnsupportedFormat, depth)
	}

	return &wavStage{
		dec: dec,
		buf: &goaudio.IntBuffer{
			Data:   make([]int, decodeBlockSize*channels),
			Format: &goaudio.Format{NumChannels: channels, SampleRate: rate},
		},
		channels: channels,
		bitDepth: depth,
		step:     float64(rate) / float64(SampleRate),
	}, nil
}

// checkIntegerPCM accepts plain PCM and WAVE_FORMAT_EXTENSIBLE whose subformat
// is PCM. The reader position is restored before returning.
func checkIntegerPCM(r io.ReadSeeker, format uint16) error {
	switch format {
	case wavFormatPCM:
		return nil
	case wavFormatExtensible:
	default:
		return fmt.Errorf("%w: WAV encoding %d is not integer PCM", ErrUnsupportedFormat, format)
	}

	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("read WAV subformat: %w", err)
	}
	sub, subErr := extensibleSubFormat(r)
	if _, err := r.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("read WAV subformat: %w", err)
	}
	if subErr != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, subErr)
	}
	if sub != wavFormatPCM {
		return fmt.Errorf("%w: extensible WAV subformat %d is not integer PCM", ErrUnsupportedFormat, sub)
	}
	return nil
}

// extensibleSubFormat walks the RIFF chunks to the fmt chunk and returns the
// format code leading its SubFormat GUID.
func extensibleSubFormat(r io.ReadSeeker) (uint16, error) {
	if _, err := r.Seek(12, io.SeekStart); err != nil {
		return 0, err
	}
	var header [8]byte
	for {
		if _, err := io.ReadFull(r, header[:]); err != nil {
			return 0, fmt.Errorf("fmt chunk not found: %w", err)
		}
		size := int64(binary.LittleEndian.Uint32(header[4:]))
		if string(header[:4]) != "fmt " {
			if _, err := r.Seek(size+size%2, io.SeekCurrent); err != nil {
				return 0, err
			}
			continue
		}
		if size < 40 {
			return 0, fmt.Errorf("extensible fmt chunk is %d bytes", size)
		}
		body := make([]byte, 40)
		if _, err := io.ReadFull(r, body); err != nil {
			return 0, fmt.Errorf("read fmt chunk: %w", err)
		}
		return binary.LittleEndian.Uint16(body[24:26]), nil
	}
}

func (w *wavStage) ReadSamples(dst []int16) (int, error) {
	if w.disconnected.Load() {
		return 0, io.EOF
	}

	frames := len(dst) / Channels
	written := 0
	for written < frames {
		idx := int(w.pos)
		for idx >= w.pendingFrames() {
			if w.eof {
				if written == 0 {
					return 0, io.EOF
				}
				return written * Channels, nil
			}
			if err := w.fill(); err != nil {
				return written * Channels, err
			}
			idx = int(w.pos)
		}

		left, right := w.frame(idx)
		dst[written*Channels] = left
		dst[written*Channels+1] = right
		written++
		w.pos += w.step
	}
	return written * Channels, nil
}

func (w *wavStage) Disconnect() {
	w.disconnected.Store(true)
}

func (w *wavStage) pendingFrames() int {
	return len(w.pending) / w.channels
}

// fill drops consumed frames and decodes the next block from the source.
func (w *wavStage) fill() error {
	consumed := int(w.pos)
	if consumed > w.pendingFrames() {
		consumed = w.pendingFrames()
	}
	w.pending = append(w.pending[:0], w.pending[consumed*w.channels:]...)
	w.pos -= float64(consumed)

	n, err := w.dec.PCMBuffer(w.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode PCM: %w", err)
	}
	if n == 0 {
		w.eof = true
		return nil
	}
	w.pending = append(w.pending, w.buf.Data[:n]...)
	return nil
}

// frame returns the stereo pair for source frame idx; mono is duplicated and
// channels beyond the second are dropped.
func (w *wavStage) frame(idx int) (int16, int16) {
	base := idx * w.channels
	left := w.toInt16(w.pending[base])
	if w.channels == 1 {
		return left, left
	}
	return left, w.toInt16(w.pending[base+1])
}

func (w *wavStage) toInt16(v int) int16 {
	switch w.bitDepth {
	case 8:
		v = (v - 128) << 8
	case 24:
		v >>= 8
	case 32:
		v >>= 16
	}
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
