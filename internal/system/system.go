package system

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

// InitResourceLimits raises the open-file limit so asset directories and
// pipe-heavy exports do not trip the default soft limit on macOS/Linux.
func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Could not read the open-file limit: %v", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Printf("[!] Could not raise the open-file limit: %v", err)
	}
}

// FindLatestProject returns the most recently modified project document
// (*.json) in dir.
func FindLatestProject(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(strings.ToLower(f.Name()), ".json") {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no project files found in %s", dir)
	}
	return latestFile, nil
}

// BestH264Encoder probes ffmpeg for hardware H.264 encoders, preferring
// VideoToolbox (macOS), then NVENC, falling back to software libx264.
func BestH264Encoder() string {
	candidates := []string{"h264_videotoolbox", "h264_nvenc"}

	out, err := exec.Command("ffmpeg", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	for _, enc := range candidates {
		if strings.Contains(string(out), enc) {
			return enc
		}
	}
	return "libx264"
}

// Frame sizes above this refuse to export outright, independent of free RAM.
const maxFramePixels = 64 * 1024 * 1024 // ~256 MB per RGBA frame

// CheckFrameBudget estimates the peak memory an export pipeline needs
// (frame bytes times pipeline depth) against available RAM. It returns an
// error for absurd frame sizes and a warning string when memory is tight;
// both empty means the export is comfortably within budget.
func CheckFrameBudget(w, h, depth int) (warning string, err error) {
	pixels := int64(w) * int64(h)
	if pixels <= 0 {
		return "", fmt.Errorf("invalid frame size %dx%d", w, h)
	}
	if pixels > maxFramePixels {
		return "", fmt.Errorf("frame size %dx%d exceeds the %d-pixel limit", w, h, maxFramePixels)
	}

	if depth < 1 {
		depth = 1
	}
	need := uint64(pixels) * 4 * uint64(depth)

	vm, vmErr := mem.VirtualMemory()
	if vmErr != nil {
		// Probing failed: proceed, the hard pixel cap above still applies
		return "", nil
	}
	if need > vm.Available {
		return "", fmt.Errorf("export needs ~%d MB but only %d MB available",
			need/(1<<20), vm.Available/(1<<20))
	}
	if need > vm.Available/2 {
		warning = fmt.Sprintf("export will use ~%d MB of %d MB available",
			need/(1<<20), vm.Available/(1<<20))
	}
	return warning, nil
}
