package audioio

import (
	"encoding/binary"
	"io"
	"math"
	"os"
)

// FileSource reads raw headerless little-endian f32 PCM from a file, per
// spec §6 ("Files are raw headerless f32 little-endian PCM; there is no
// WAV envelope").
type FileSource struct {
	f    *os.File
	good bool
}

// OpenFileSource opens path for reading as raw f32le PCM.
func OpenFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &FileSource{f: f, good: true}, nil
}

func (s *FileSource) Read(buf []float32) (int, error) {
	raw := make([]byte, len(buf)*4)
	n, err := io.ReadFull(s.f, raw)
	switch {
	case err == io.EOF:
		s.good = false
		return 0, nil
	case err == io.ErrUnexpectedEOF:
		// Partial frame at EOF: decode what we got, report it, and mark EOF
		// for the next call.
		s.good = false
	case err != nil:
		s.good = false
		return -1, err
	}

	samples := n / 4
	for i := 0; i < samples; i++ {
		bits := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
		buf[i] = math.Float32frombits(bits)
	}
	return samples, nil
}

func (s *FileSource) Good() bool { return s.good }

func (s *FileSource) Close() error {
	s.good = false
	return s.f.Close()
}

// FileSink writes raw headerless little-endian f32 PCM to a file.
type FileSink struct {
	f    *os.File
	good bool
}

// CreateFileSink creates (or truncates) path for writing as raw f32le PCM.
func CreateFileSink(path string) (*FileSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileSink{f: f, good: true}, nil
}

func (s *FileSink) Write(buf []float32) (int, error) {
	raw := make([]byte, len(buf)*4)
	for i, v := range buf {
		binary.LittleEndian.PutUint32(raw[i*4:i*4+4], math.Float32bits(v))
	}
	n, err := s.f.Write(raw)
	if err != nil {
		s.good = false
		return -1, err
	}
	// Per spec §9 open question 3, the source implementation mistakenly
	// reports a read counter (always 0 on a file write) as the samples
	// written. That is a defect, not a contract: this port returns the
	// number of samples actually written.
	return n / 4, nil
}

func (s *FileSink) Good() bool { return s.good }

func (s *FileSink) Close() error {
	s.good = false
	return s.f.Close()
}
