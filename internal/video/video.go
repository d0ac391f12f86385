package video

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os/exec"

	"github.com/caiusy/traffic-scenario-builder/internal/system"
)

// FrameSink accepts an ordered stream of fully opaque raster frames. The
// core's contract ends here: encoding and muxing into a container belong to
// the sink.
type FrameSink interface {
	// Begin fixes the frame geometry and rate. Must be called once, before
	// the first Write.
	Begin(w, h, fps int) error
	// Write appends one frame. Frames arrive in strict presentation order.
	Write(frame *image.RGBA) error
	// Close flushes and finalizes the output.
	Close() error
}

// FFmpegSink pipes raw RGBA frames into an ffmpeg child process producing an
// H.264 MP4. Odd frame dimensions are padded to even inside ffmpeg, since
// yuv420p requires even sizes.
type FFmpegSink struct {
	Path    string // output file
	Encoder string // empty: probe the best available H.264 encoder
	Quality int    // 0: per-encoder default

	cmd   *exec.Cmd
	stdin io.WriteCloser
	out   bytes.Buffer
	w, h  int
}

var _ FrameSink = (*FFmpegSink)(nil)

func (s *FFmpegSink) Begin(w, h, fps int) error {
	if s.cmd != nil {
		return fmt.Errorf("ffmpeg sink: Begin called twice")
	}

	encoder := s.Encoder
	if encoder == "" {
		encoder = system.BestH264Encoder()
	}
	quality := s.Quality
	if quality == 0 {
		quality = defaultQuality(encoder)
	}

	args := buildFFmpegArgs(w, h, fps, encoder, quality, s.Path)
	cmd := exec.Command("ffmpeg", args...)
	cmd.Stdout = &s.out
	cmd.Stderr = &s.out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg sink: stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg sink: start: %w", err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.w, s.h = w, h
	return nil
}

func (s *FFmpegSink) Write(frame *image.RGBA) error {
	if s.cmd == nil {
		return fmt.Errorf("ffmpeg sink: Write before Begin")
	}
	if err := writeRawRGBA(s.stdin, frame); err != nil {
		return fmt.Errorf("ffmpeg sink: write frame: %w", err)
	}
	return nil
}

func (s *FFmpegSink) Close() error {
	if s.cmd == nil {
		return nil
	}
	s.stdin.Close()
	err := s.cmd.Wait()
	s.cmd = nil
	if err != nil {
		return fmt.Errorf("ffmpeg sink: %w\nlog: %s", err, s.out.String())
	}
	return nil
}

// buildFFmpegArgs assembles the rawvideo-over-stdin invocation. Split out
// for testability.
func buildFFmpegArgs(w, h, fps int, encoder string, quality int, outPath string) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", w, h),
		"-framerate", fmt.Sprintf("%d", fps),
		"-i", "-",
	}

	// yuv420p needs even dimensions
	if w%2 != 0 || h%2 != 0 {
		args = append(args, "-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2")
	}

	args = append(args,
		"-pix_fmt", "yuv420p",
		"-c:v", encoder,
	)

	switch encoder {
	case "h264_videotoolbox":
		// VideoToolbox does not reliably support -q:v; use a bitrate instead.
		bitrate := quality * 100 // kbit/s, 75 -> 7.5 Mbit/s
		args = append(args, "-b:v", fmt.Sprintf("%dk", bitrate))
	case "h264_nvenc":
		args = append(args, "-cq", fmt.Sprintf("%d", quality))
	default: // libx264
		args = append(args, "-crf", fmt.Sprintf("%d", quality), "-preset", "medium")
	}

	args = append(args, outPath)
	return args
}

func defaultQuality(encoder string) int {
	switch encoder {
	case "h264_videotoolbox":
		return 75
	case "h264_nvenc":
		return 28
	default:
		return 23
	}
}

// writeRawRGBA streams the frame's pixel data, normalizing stride and origin
// when the image is a sub-view.
func writeRawRGBA(w io.Writer, img *image.RGBA) error {
	bounds := img.Bounds()
	if img.Stride != bounds.Dx()*4 || bounds.Min.X != 0 || bounds.Min.Y != 0 {
		norm := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(norm, norm.Bounds(), img, bounds.Min, draw.Src)
		img = norm
	}
	_, err := w.Write(img.Pix)
	return err
}
