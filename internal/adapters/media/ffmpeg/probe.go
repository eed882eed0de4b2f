package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/bjjscore/internal/composition"
	"github.com/okian/bjjscore/internal/domain/geom"
	"github.com/okian/bjjscore/pkg/logger"
)

// Prober implements composition.Opener with ffprobe.
type Prober struct {
	bin    string
	logger logger.Logger
	run    runFunc
}

// NewProber returns a prober using s.FFprobePath.
func NewProber(s Settings, opts ...Option) *Prober {
	o := buildOptions(opts)
	return &Prober{bin: s.withDefaults().FFprobePath, logger: o.logger, run: o.run}
}

// Open probes path and maps its streams to tracks.
func (p *Prober) Open(ctx context.Context, path string) (*composition.Asset, error) {
	out, err := p.run(ctx, p.bin,
		"-v", "error",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path,
	)
	if err != nil {
		p.logger.Warn(ctx, "ffprobe failed", logger.String("path", path), logger.Error(err))
		return nil, fmt.Errorf("%w: ffprobe %s: %w", composition.ErrMissingAsset, path, err)
	}
	asset, err := parseProbe(out)
	if err != nil {
		return nil, err
	}
	asset.Path = path
	return asset, nil
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type probeStream struct {
	Index        int               `json:"index"`
	CodecType    string            `json:"codec_type"`
	CodecName    string            `json:"codec_name"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	RFrameRate   string            `json:"r_frame_rate"`
	AvgFrameRate string            `json:"avg_frame_rate"`
	Duration     string            `json:"duration"`
	Tags         map[string]string `json:"tags"`
	SideData     []struct {
		Rotation *float64 `json:"rotation"`
	} `json:"side_data_list"`
}

func parseProbe(data []byte) (*composition.Asset, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: decode ffprobe output: %w", composition.ErrMissingAsset, err)
	}
	asset := &composition.Asset{Duration: parseFloat(out.Format.Duration)}
	for _, s := range out.Streams {
		t := composition.Track{
			ID:        s.Index,
			Codec:     s.CodecName,
			Duration:  parseFloat(s.Duration),
			Transform: geom.Identity,
		}
		switch s.CodecType {
		case "video":
			t.Kind = composition.TrackVideo
			t.NaturalSize = geom.Size{Width: float64(s.Width), Height: float64(s.Height)}
			t.FrameRate = parseRate(s.AvgFrameRate)
			if t.FrameRate == 0 {
				t.FrameRate = parseRate(s.RFrameRate)
			}
			t.Transform = geom.Rotation(s.clockwiseRotation())
		case "audio":
			t.Kind = composition.TrackAudio
		default:
			t.Kind = composition.TrackOther
		}
		asset.Tracks = append(asset.Tracks, t)
	}
	return asset, nil
}

// clockwiseRotation returns the display rotation in clockwise degrees.
// Display matrix side data is counter-clockwise; the legacy rotate tag is
// clockwise.
func (s probeStream) clockwiseRotation() float64 {
	for _, sd := range s.SideData {
		if sd.Rotation != nil {
			return normalizeDegrees(-*sd.Rotation)
		}
	}
	if v, ok := s.Tags["rotate"]; ok {
		return normalizeDegrees(parseFloat(v))
	}
	return 0
}

func normalizeDegrees(d float64) float64 {
	r := float64(int(d) % 360)
	if r < 0 {
		r += 360
	}
	return r
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// parseRate parses ffprobe rationals such as "30000/1001".
func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return parseFloat(s)
	}
	n, d := parseFloat(num), parseFloat(den)
	if d == 0 {
		return 0
	}
	return n / d
}
