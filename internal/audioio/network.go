// Network framing for a "live" sample source/sink, grounded on the
// producer's own hybrid binary PCM framing (magic + header + payload,
// optionally zstd-compressed) used for its live audio distribution.
package audioio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"
)

const networkMagic = 0x5343 // "SC" for SRC Clock

// NetworkSource reads f32 frames from a stream framed as:
//
//	[2]byte magic | [1]byte compressed(0/1) | uint32 payloadLen | payload
//
// payload is little-endian f32 samples, optionally zstd-compressed. This
// mirrors the magic+header+payload shape of the teacher's own live PCM
// transport. The framing carries no channel count: the payload holds
// whatever interleaved samples the Adapter on each side writes or reads,
// and stereo is folded to mono by Adapter.Read after the network hop.
type NetworkSource struct {
	r       io.Reader
	dec     *zstd.Decoder
	good    bool
	pending []float32
}

// NewNetworkSource wraps r as a live audio source.
func NewNetworkSource(r io.Reader) (*NetworkSource, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("audioio: zstd decoder: %w", err)
	}
	return &NetworkSource{r: r, dec: dec, good: true}, nil
}

func (s *NetworkSource) Read(buf []float32) (int, error) {
	for len(s.pending) < len(buf) {
		frame, err := s.readFrame()
		if err == io.EOF {
			s.good = false
			if len(s.pending) == 0 {
				return 0, nil
			}
			break
		}
		if err != nil {
			s.good = false
			return -1, err
		}
		s.pending = append(s.pending, frame...)
	}

	n := copy(buf, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

func (s *NetworkSource) readFrame() ([]float32, error) {
	header := make([]byte, 7)
	if _, err := io.ReadFull(s.r, header); err != nil {
		return nil, err
	}
	if binary.LittleEndian.Uint16(header[0:2]) != networkMagic {
		return nil, fmt.Errorf("audioio: bad frame magic")
	}
	compressed := header[2] != 0
	payloadLen := binary.LittleEndian.Uint32(header[3:7])

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(s.r, payload); err != nil {
		return nil, err
	}

	if compressed {
		decoded, err := s.dec.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("audioio: zstd decode: %w", err)
		}
		payload = decoded
	}

	samples := make([]float32, len(payload)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(payload[i*4 : i*4+4])
		samples[i] = math.Float32frombits(bits)
	}
	return samples, nil
}

func (s *NetworkSource) Good() bool { return s.good }

func (s *NetworkSource) Close() error {
	s.good = false
	s.dec.Close()
	return nil
}

// NetworkSink writes mono f32 frames using the same framing, optionally
// zstd-compressing the payload when it is large enough to be worthwhile.
type NetworkSink struct {
	w    io.Writer
	enc  *zstd.Encoder
	good bool
}

// NewNetworkSink wraps w as a live audio sink.
func NewNetworkSink(w io.Writer) (*NetworkSink, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("audioio: zstd encoder: %w", err)
	}
	return &NetworkSink{w: w, enc: enc, good: true}, nil
}

func (s *NetworkSink) Write(buf []float32) (int, error) {
	payload := make([]byte, len(buf)*4)
	for i, v := range buf {
		binary.LittleEndian.PutUint32(payload[i*4:i*4+4], math.Float32bits(v))
	}

	compressed := byte(0)
	if len(payload) > 512 {
		payload = s.enc.EncodeAll(payload, nil)
		compressed = 1
	}

	header := make([]byte, 7)
	binary.LittleEndian.PutUint16(header[0:2], networkMagic)
	header[2] = compressed
	binary.LittleEndian.PutUint32(header[3:7], uint32(len(payload)))

	if _, err := s.w.Write(header); err != nil {
		s.good = false
		return -1, err
	}
	if _, err := s.w.Write(payload); err != nil {
		s.good = false
		return -1, err
	}
	return len(buf), nil
}

func (s *NetworkSink) Good() bool { return s.good }

func (s *NetworkSink) Close() error {
	s.good = false
	return s.enc.Close()
}
