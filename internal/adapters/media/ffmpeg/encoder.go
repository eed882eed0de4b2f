package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/okian/bjjscore/internal/composition"
	"github.com/okian/bjjscore/internal/export"
	"github.com/okian/bjjscore/internal/overlay"
	"github.com/okian/bjjscore/pkg/logger"
)

const (
	stderrTail = 4 << 10
	waitDelay  = 2 * time.Second
)

// Factory implements export.EncoderFactory.
type Factory struct {
	settings Settings
	opts     options
}

// NewFactory returns an encoder factory.
func NewFactory(s Settings, opts ...Option) *Factory {
	return &Factory{settings: s.withDefaults(), opts: buildOptions(opts)}
}

// NewEncoder prepares an encoder for pkg. Nothing runs until Start.
func (f *Factory) NewEncoder(_ context.Context, pkg *composition.Package) (export.Encoder, error) {
	if pkg == nil || len(pkg.Instructions) == 0 {
		return nil, errors.New("ffmpeg: package has no video instruction")
	}
	var watermark string
	if pkg.Scene != nil {
		if l, ok := pkg.Scene.Layer(overlay.LayerWatermark); ok && len(l.Image) > 0 {
			p, err := f.opts.imagePath(l.Image)
			if err != nil {
				return nil, fmt.Errorf("ffmpeg: watermark image: %w", err)
			}
			watermark = p
		}
	}
	return &Encoder{
		settings:  f.settings,
		pkg:       pkg,
		watermark: watermark,
		logger:    f.opts.logger.With(logger.String("destination", pkg.Destination)),
		status:    export.EncoderNotStarted,
		done:      make(chan struct{}),
	}, nil
}

// Encoder runs one ffmpeg process.
type Encoder struct {
	settings  Settings
	pkg       *composition.Package
	watermark string
	logger    logger.Logger

	mu        sync.Mutex
	status    export.EncoderStatus
	progress  float64
	err       error
	cancelled bool
	cancel    context.CancelFunc
	script    string

	done      chan struct{}
	closeOnce sync.Once
}

// Args returns the ffmpeg arguments reading the filtergraph from script.
func (e *Encoder) Args(script string) []string {
	args := []string{"-hide_banner", "-nostats", "-y", "-i", e.pkg.SourcePath}
	if e.watermark != "" {
		args = append(args, "-loop", "1", "-i", e.watermark)
	}
	args = append(args,
		"-filter_complex_script", script,
		"-map", "["+labelVideo+"]",
	)
	if e.pkg.Timeline.Audio != nil {
		args = append(args, "-map", "0:a:0?", "-c:a", e.settings.AudioCodec)
	}
	args = append(args,
		"-c:v", e.settings.VideoCodec,
		"-preset", e.settings.Preset,
		"-pix_fmt", "yuv420p",
		"-r", num(e.pkg.FrameRate),
		"-t", num(e.pkg.Timeline.Duration),
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		e.pkg.Destination,
	)
	return args
}

// Start writes the filtergraph and launches ffmpeg.
func (e *Encoder) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != export.EncoderNotStarted {
		return fmt.Errorf("ffmpeg: encoder already %s", e.status)
	}

	if err := os.MkdirAll(filepath.Dir(e.pkg.Destination), 0o755); err != nil {
		return fmt.Errorf("ffmpeg: export dir: %w", err)
	}
	script, err := writeScript(BuildFilterGraph(e.pkg, e.settings.FontFile, e.watermark != ""))
	if err != nil {
		return err
	}
	e.script = script

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	cmd := exec.CommandContext(runCtx, e.settings.FFmpegPath, e.Args(script)...)
	cmd.WaitDelay = waitDelay
	stderr := &tailBuffer{max: stderrTail}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("ffmpeg: stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("ffmpeg: start: %w", err)
	}

	e.cancel = cancel
	e.status = export.EncoderRunning
	e.logger.Info(ctx, "ffmpeg started", logger.Int("pid", cmd.Process.Pid))

	go e.wait(ctx, cmd, stdout, stderr)
	return nil
}

func (e *Encoder) wait(ctx context.Context, cmd *exec.Cmd, stdout io.Reader, stderr *tailBuffer) {
	e.readProgress(stdout)
	err := cmd.Wait()

	e.mu.Lock()
	switch {
	case e.cancelled:
		e.status = export.EncoderCancelled
	case err != nil:
		e.status = export.EncoderFailed
		e.err = fmt.Errorf("ffmpeg: %w: %s", err, strings.TrimSpace(stderr.String()))
	default:
		e.status = export.EncoderCompleted
		e.progress = 1
	}
	status := e.status
	e.mu.Unlock()

	e.logger.Info(ctx, "ffmpeg exited", logger.String("status", string(status)))
	close(e.done)
}

func (e *Encoder) readProgress(r io.Reader) {
	duration := e.pkg.Timeline.Duration
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		p, ok := parseProgress(sc.Text(), duration)
		if !ok {
			continue
		}
		e.mu.Lock()
		if p > e.progress {
			e.progress = p
		}
		e.mu.Unlock()
	}
}

// parseProgress reads one -progress line. out_time_ms carries microseconds
// in every ffmpeg release, like out_time_us.
func parseProgress(line string, duration float64) (float64, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return 0, false
	}
	switch key {
	case "out_time_us", "out_time_ms":
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil || duration <= 0 {
			return 0, false
		}
		return min(max(float64(us)/(duration*1e6), 0), 0.999), true
	case "progress":
		if value == "end" {
			return 1, true
		}
	}
	return 0, false
}

// Done closes when ffmpeg exits.
func (e *Encoder) Done() <-chan struct{} { return e.done }

// Status returns the encoder state.
func (e *Encoder) Status() export.EncoderStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Progress returns the rendered fraction.
func (e *Encoder) Progress() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progress
}

// Destination is the output path.
func (e *Encoder) Destination() string { return e.pkg.Destination }

// FileKind is the output container.
func (e *Encoder) FileKind() string { return e.pkg.FileKind }

// Err returns the failure cause.
func (e *Encoder) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Cancel kills ffmpeg. Done closes once the process is gone.
func (e *Encoder) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.status {
	case export.EncoderRunning:
		e.cancelled = true
		e.cancel()
	case export.EncoderNotStarted:
		e.status = export.EncoderCancelled
		close(e.done)
	}
}

// Close stops ffmpeg if needed and removes temporary files. A destination
// left by an unfinished run is removed too.
func (e *Encoder) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.Cancel()
		<-e.done

		e.mu.Lock()
		script, status := e.script, e.status
		if e.cancel != nil {
			e.cancel()
		}
		e.mu.Unlock()

		if script != "" {
			if rmErr := os.Remove(script); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				err = rmErr
			}
		}
		if status != export.EncoderCompleted {
			_ = os.Remove(e.pkg.Destination)
		}
	})
	return err
}

func writeScript(graph string) (string, error) {
	f, err := os.CreateTemp("", "bjjscore-graph-*.txt")
	if err != nil {
		return "", fmt.Errorf("ffmpeg: filter script: %w", err)
	}
	if _, err := f.WriteString(graph); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("ffmpeg: filter script: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("ffmpeg: filter script: %w", err)
	}
	return f.Name(), nil
}

// tailBuffer keeps the last max bytes written.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
