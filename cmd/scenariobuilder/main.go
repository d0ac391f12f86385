package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/caiusy/traffic-scenario-builder/internal/assets"
	"github.com/caiusy/traffic-scenario-builder/internal/config"
	"github.com/caiusy/traffic-scenario-builder/internal/director"
	"github.com/caiusy/traffic-scenario-builder/internal/editor"
	"github.com/caiusy/traffic-scenario-builder/internal/export"
	"github.com/caiusy/traffic-scenario-builder/internal/project"
	"github.com/caiusy/traffic-scenario-builder/internal/render"
	"github.com/caiusy/traffic-scenario-builder/internal/scene"
	"github.com/caiusy/traffic-scenario-builder/internal/system"
	"github.com/caiusy/traffic-scenario-builder/internal/video"
)

func main() {
	system.InitResourceLimits()

	configPtr := flag.String("config", "scenariobuilder.yaml", "Path to the YAML config (missing file uses defaults)")
	projectPtr := flag.String("project", "", "Project document (default: most recent *.json in the projects dir)")
	outPtr := flag.String("out", "", "Output path (auto-generated when empty)")

	demoPtr := flag.Int("demo", 0, "Generate an N-lane demo project and exit")
	seedPtr := flag.Int64("seed", time.Now().UnixNano(), "Seed for the demo generator")
	inspectPtr := flag.Bool("inspect", false, "Print a project summary and exit")
	framePtr := flag.Float64("frame", -1, "Rasterize the scene at time T seconds into a PNG")
	playPtr := flag.Bool("play", false, "Run one playback loop headlessly, logging positions")
	exportPtr := flag.Bool("export", false, "Export the scenario as a video")
	rawPtr := flag.Bool("raw", false, "Export raw RGBA frames instead of MP4")
	fpsPtr := flag.Int("fps", 0, "Export frame rate (0: config value)")
	durationPtr := flag.Float64("duration", 0, "Export duration in seconds (0: scenario length)")
	verbosePtr := flag.Bool("v", false, "Debug logging")

	flag.Parse()

	level := zerolog.InfoLevel
	if *verbosePtr {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()

	cfg, err := config.Load(*configPtr)
	if err != nil {
		logger.Fatal().Err(err).Msg("bad config")
	}

	for _, d := range []string{cfg.AssetsDir, cfg.ProjectsDir, cfg.OutputDir} {
		os.MkdirAll(d, 0755)
	}

	lib := assets.NewDir(cfg.AssetsDir, cfg.AssetDPI)

	if *demoPtr > 0 {
		store := director.BuildDemo(lib, cfg, *demoPtr, *seedPtr)
		outPath := *outPtr
		if outPath == "" {
			timestamp := time.Now().Format("2006-01-02_15-04-05")
			outPath = filepath.Join(cfg.ProjectsDir, fmt.Sprintf("demo_%s.json", timestamp))
		}
		if err := project.SaveFile(outPath, store); err != nil {
			logger.Fatal().Err(err).Msg("could not write the demo project")
		}
		fmt.Printf("[+++] Demo project saved: %s\n", outPath)
		return
	}

	projectPath := *projectPtr
	if projectPath == "" {
		latest, err := system.FindLatestProject(cfg.ProjectsDir)
		if err != nil {
			logger.Fatal().Err(err).Msgf("no project given; put one in %s/ or pass -project", cfg.ProjectsDir)
		}
		projectPath = latest
		fmt.Printf("[*] Selected project: %s\n", projectPath)
	}

	store, err := project.LoadFile(projectPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", projectPath).Msg("could not load the project")
	}

	session := editor.NewSession(cfg, lib, store, logger)

	switch {
	case *inspectPtr:
		inspect(store)

	case *framePtr >= 0:
		outPath := *outPtr
		if outPath == "" {
			outPath = filepath.Join(cfg.OutputDir, fmt.Sprintf("frame_%.2fs.png", *framePtr))
		}
		if err := snapshot(session, lib, cfg, *framePtr, outPath); err != nil {
			logger.Fatal().Err(err).Msg("snapshot failed")
		}
		fmt.Printf("[+++] Frame saved: %s\n", outPath)

	case *playPtr:
		if err := playOnce(session, logger); err != nil {
			logger.Fatal().Err(err).Msg("playback failed")
		}

	case *exportPtr:
		duration := *durationPtr
		if duration <= 0 {
			duration = store.MaxTime()
		}
		fps := *fpsPtr
		if fps <= 0 {
			fps = cfg.FPS
		}

		outPath := *outPtr
		if outPath == "" {
			base := strings.TrimSuffix(filepath.Base(projectPath), filepath.Ext(projectPath))
			timestamp := time.Now().Format("2006-01-02_15-04-05")
			ext := ".mp4"
			if *rawPtr {
				ext = ".raw"
			}
			outPath = filepath.Join(cfg.OutputDir, fmt.Sprintf("%s_%s%s", base, timestamp, ext))
		}

		var sink video.FrameSink
		if *rawPtr {
			sink = &video.RawSink{Path: outPath}
		} else {
			encoder := system.BestH264Encoder()
			if encoder != "libx264" {
				fmt.Printf("[*] Hardware encoder detected: %s\n", encoder)
			}
			sink = &video.FFmpegSink{Path: outPath, Encoder: encoder}
		}

		params := export.Params{FPS: fps, Duration: duration, QRLink: cfg.QRLink}
		if bg, err := scene.ParseColor(cfg.Background); err == nil {
			params.Background = bg
		}

		fmt.Printf("[*] Exporting %.1fs @ %d FPS -> %s\n", duration, export.ClampFPS(fps), outPath)
		if err := session.Export(context.Background(), sink, params); err != nil {
			logger.Fatal().Err(err).Msg("export failed")
		}
		fmt.Printf("[+++] Done: %s\n", outPath)

	default:
		inspect(store)
		fmt.Println("[*] Use -play, -frame T, -export or -demo N")
	}
}

func inspect(store *scene.Store) {
	fmt.Println("--- [PROJECT SUMMARY] ---")
	fmt.Printf("Roads: %d | Vehicles: %d | Cameras: %d | Labels: %d\n",
		len(store.Roads()), len(store.Vehicles()), len(store.Cameras()), len(store.Labels()))
	fmt.Printf("Scenario length: %.2fs\n", store.MaxTime())

	for _, v := range store.Vehicles() {
		state := "static"
		if v.Animated() {
			state = fmt.Sprintf("%d waypoints", len(v.Waypoints))
		}
		fmt.Printf("  vehicle %d %-10s scale %.2f  %s\n", v.ID, v.Name, v.Scale, state)
	}
	for _, r := range store.Roads() {
		lock := ""
		if r.Locked {
			lock = " [locked]"
		}
		fmt.Printf("  road %d at (%.0f, %.0f)%s\n", r.ID, r.X, r.Y, lock)
	}
	fmt.Println("-------------------------")
}

func snapshot(session *editor.Session, lib assets.Library, cfg *config.Config, t float64, outPath string) error {
	items, bounds := session.ComposeAt(t)
	w, h := render.FrameSize(bounds)

	bg := export.DefaultBackground
	if c, err := scene.ParseColor(cfg.Background); err == nil {
		bg = c
	}

	frame := image.NewRGBA(image.Rect(0, 0, w, h))
	render.NewRasterizer(lib, bg).Frame(items, bounds, frame)

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := png.Encode(f, frame); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// playOnce drives the interactive clock through a single loop, printing
// vehicle positions a few times per second.
func playOnce(session *editor.Session, logger zerolog.Logger) error {
	store := session.Store()
	maxTime := store.MaxTime()

	if err := session.Play(); err != nil {
		return err
	}
	defer session.Stop()

	fmt.Printf("[*] Playing one loop (%.2fs)\n", maxTime)
	deadline := time.Now().Add(time.Duration(maxTime*float64(time.Second)) + time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	prev := -1.0
	for range ticker.C {
		t := session.Time()
		for _, v := range store.Vehicles() {
			if !v.Animated() {
				continue
			}
			x, y := v.PositionAt(t)
			logger.Debug().Uint32("vehicle", v.ID).Float64("t", t).
				Float64("x", x).Float64("y", y).Msg("position")
		}
		fmt.Printf("[>] t=%.2fs\n", t)

		// The loop wrap shows up as time moving backwards
		if t < prev || time.Now().After(deadline) {
			break
		}
		prev = t
	}
	return nil
}
