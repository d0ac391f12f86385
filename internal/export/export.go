package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"golang.org/x/sync/errgroup"

	"github.com/caiusy/traffic-scenario-builder/internal/assets"
	"github.com/caiusy/traffic-scenario-builder/internal/compositor"
	"github.com/caiusy/traffic-scenario-builder/internal/render"
	"github.com/caiusy/traffic-scenario-builder/internal/scene"
	"github.com/caiusy/traffic-scenario-builder/internal/system"
	"github.com/caiusy/traffic-scenario-builder/internal/video"
)

// ErrSinkFailure marks an export aborted because the frame sink stopped
// accepting frames (disk full, encoder died, ...).
var ErrSinkFailure = errors.New("export: sink failure")

// Legal fps range for exports.
const (
	MinFPS = 15
	MaxFPS = 60
)

// Frames in flight between the rasterizer and the sink writer.
const pipelineDepth = 3

// Default frame background, dark gray.
var DefaultBackground = color.RGBA{R: 30, G: 30, B: 30, A: 255}

// QR stamp geometry: size and corner inset in pixels.
const (
	qrSize  = 96
	qrInset = 8
)

// Params configures one export run.
type Params struct {
	FPS        int     // clamped to [MinFPS, MaxFPS]
	Duration   float64 // seconds of scenario time to render
	Background color.RGBA
	Margin     float64 // bounds margin; 0 means the compositor default
	QRLink     string  // when set, a QR code is stamped bottom-right on every frame
	Progress   func(frame, total int)
}

// ClampFPS forces fps into the legal export range.
func ClampFPS(fps int) int {
	if fps < MinFPS {
		return MinFPS
	}
	if fps > MaxFPS {
		return MaxFPS
	}
	return fps
}

// Exporter renders a store frame by frame into a FrameSink. The run is
// synchronous from the caller's view: Run returns only after the sink is
// closed or the export failed. Internally a single rasterizer goroutine
// feeds a sink-writer goroutine so raster work overlaps encoder I/O while
// frames still arrive in strict order.
type Exporter struct {
	lib assets.Library
	log zerolog.Logger
}

// New creates an exporter drawing sprites from lib.
func New(lib assets.Library, log zerolog.Logger) *Exporter {
	return &Exporter{lib: lib, log: log.With().Str("component", "export").Logger()}
}

// Run exports floor(fps*duration) frames of store, frame i at t = i/fps,
// with trajectory overlays suppressed. The store must not be mutated while
// Run is in progress; the editor session enforces that.
//
// ctx is checked between frames; cancellation aborts the run like a sink
// failure would. The store is never modified.
func (e *Exporter) Run(ctx context.Context, store *scene.Store, sink video.FrameSink, params Params) error {
	fps := ClampFPS(params.FPS)
	total := int(math.Floor(float64(fps) * params.Duration))
	if total <= 0 {
		return fmt.Errorf("export: nothing to render (fps=%d, duration=%.2fs)", fps, params.Duration)
	}

	bg := params.Background
	if bg.A == 0 {
		bg = DefaultBackground
	}

	opts := compositor.Options{ShowTrajectories: false, Margin: params.Margin}

	// Bounds are computed once up front; the store is frozen for the whole
	// run, so every frame shares the same geometry.
	_, bounds := compositor.Compose(store, e.lib, 0, opts)
	w, h := render.FrameSize(bounds)

	warning, err := system.CheckFrameBudget(w, h, pipelineDepth)
	if err != nil {
		return fmt.Errorf("export: preflight: %w", err)
	}
	if warning != "" {
		e.log.Warn().Str("detail", warning).Msg("memory is tight for this export")
	}

	var qrStamp image.Image
	if params.QRLink != "" {
		qr, err := qrcode.New(params.QRLink, qrcode.Medium)
		if err != nil {
			return fmt.Errorf("export: qr stamp: %w", err)
		}
		qrStamp = qr.Image(qrSize)
	}

	if err := sink.Begin(w, h, fps); err != nil {
		return fmt.Errorf("%w: begin: %v", ErrSinkFailure, err)
	}

	e.log.Info().
		Int("frames", total).
		Int("fps", fps).
		Int("width", w).
		Int("height", h).
		Msg("export started")

	rast := render.NewRasterizer(e.lib, bg)
	frames := make(chan *image.RGBA, pipelineDepth-1)

	g, gctx := errgroup.WithContext(ctx)

	// Stage 1: rasterize frames in order
	g.Go(func() error {
		defer close(frames)
		for i := 0; i < total; i++ {
			if err := gctx.Err(); err != nil {
				return err
			}

			t := float64(i) / float64(fps)
			items, _ := compositor.Compose(store, e.lib, t, opts)

			frame := system.GetFrame(w, h)
			rast.Frame(items, bounds, frame)
			if qrStamp != nil {
				stampCorner(frame, qrStamp)
			}

			select {
			case frames <- frame:
			case <-gctx.Done():
				system.PutFrame(frame)
				return gctx.Err()
			}
		}
		return nil
	})

	// Stage 2: hand frames to the sink
	g.Go(func() error {
		written := 0
		for frame := range frames {
			err := sink.Write(frame)
			system.PutFrame(frame)
			if err != nil {
				return fmt.Errorf("%w: frame %d: %v", ErrSinkFailure, written, err)
			}
			written++
			if params.Progress != nil {
				params.Progress(written, total)
			}
			if written%30 == 0 {
				fmt.Printf("[>] Frame %d/%d\n", written, total)
			}
		}
		return nil
	})

	runErr := g.Wait()
	closeErr := sink.Close()

	if runErr != nil {
		e.log.Error().Err(runErr).Msg("export aborted")
		return runErr
	}
	if closeErr != nil {
		e.log.Error().Err(closeErr).Msg("export finalize failed")
		return fmt.Errorf("%w: close: %v", ErrSinkFailure, closeErr)
	}

	e.log.Info().Int("frames", total).Msg("export finished")
	return nil
}

// stampCorner draws the provenance stamp into the bottom-right corner.
func stampCorner(frame *image.RGBA, stamp image.Image) {
	sb := stamp.Bounds()
	fb := frame.Bounds()
	x := fb.Max.X - sb.Dx() - qrInset
	y := fb.Max.Y - sb.Dy() - qrInset
	draw.Draw(frame, image.Rect(x, y, x+sb.Dx(), y+sb.Dy()), stamp, sb.Min, draw.Over)
}
