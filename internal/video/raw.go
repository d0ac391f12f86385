package video

import (
	"bufio"
	"fmt"
	"image"
	"os"
)

// RawSink appends bare RGBA frames to a single file behind a one-line text
// header ("rawrgba <w> <h> <fps>"). It exists for tests and for piping into
// external tools without an ffmpeg dependency.
type RawSink struct {
	Path string

	f      *os.File
	bw     *bufio.Writer
	w, h   int
	Frames int // frames written so far
}

var _ FrameSink = (*RawSink)(nil)

func (s *RawSink) Begin(w, h, fps int) error {
	f, err := os.Create(s.Path)
	if err != nil {
		return fmt.Errorf("raw sink: %w", err)
	}
	s.f = f
	s.bw = bufio.NewWriterSize(f, 1<<20)
	s.w, s.h = w, h
	if _, err := fmt.Fprintf(s.bw, "rawrgba %d %d %d\n", w, h, fps); err != nil {
		return fmt.Errorf("raw sink: header: %w", err)
	}
	return nil
}

func (s *RawSink) Write(frame *image.RGBA) error {
	if s.f == nil {
		return fmt.Errorf("raw sink: Write before Begin")
	}
	b := frame.Bounds()
	if b.Dx() != s.w || b.Dy() != s.h {
		return fmt.Errorf("raw sink: frame %dx%d does not match declared %dx%d",
			b.Dx(), b.Dy(), s.w, s.h)
	}
	if err := writeRawRGBA(s.bw, frame); err != nil {
		return fmt.Errorf("raw sink: %w", err)
	}
	s.Frames++
	return nil
}

func (s *RawSink) Close() error {
	if s.f == nil {
		return nil
	}
	if err := s.bw.Flush(); err != nil {
		s.f.Close()
		return fmt.Errorf("raw sink: flush: %w", err)
	}
	err := s.f.Close()
	s.f = nil
	if err != nil {
		return fmt.Errorf("raw sink: close: %w", err)
	}
	return nil
}
