package playback

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
)

// DiscardDevice accepts audio and plays nothing. Used when audio output is
// disabled or no player binary is installed.
type DiscardDevice struct{}

func (DiscardDevice) Start(*Buffer) error { return nil }
func (DiscardDevice) Stop() error         { return nil }

// FFPlayDevice pipes raw PCM into an ffplay process.
type FFPlayDevice struct {
	path   string
	volume int

	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

// FFPlayFactory returns a factory of ffplay devices, or nil when the binary
// cannot be found.
func FFPlayFactory(path string, volume int) DeviceFactory {
	if path == "" {
		path = "ffplay"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return nil
	}
	if volume <= 0 {
		volume = 80
	}
	return func() (Device, error) {
		return &FFPlayDevice{path: resolved, volume: volume}, nil
	}
}

func (d *FFPlayDevice) Start(buf *Buffer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cmd != nil {
		return fmt.Errorf("ffplay device already started")
	}

	chLayout := "mono"
	if buf.Channels == 2 {
		chLayout = "stereo"
	}
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
		"-volume", fmt.Sprintf("%d", d.volume),
		"-nodisp",
		"-autoexit",
		"-f", "s16le",
		"-ch_layout", chLayout,
		"-ar", fmt.Sprintf("%d", buf.SampleRate),
		"-i", "-",
	}
	cmd := exec.Command(d.path, args...)
	if runtime.GOOS == "darwin" && os.Getenv("SDL_AUDIODRIVER") == "" {
		cmd.Env = append(os.Environ(), "SDL_AUDIODRIVER=coreaudio")
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start ffplay: %w", err)
	}
	d.cmd = cmd
	d.stdin = stdin

	go func() {
		_, _ = stdin.Write(buf.PCM)
		_ = stdin.Close()
		_ = cmd.Wait()
	}()
	return nil
}

func (d *FFPlayDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stdin != nil {
		_ = d.stdin.Close()
	}
	if d.cmd != nil && d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
	}
	d.cmd = nil
	d.stdin = nil
	return nil
}
