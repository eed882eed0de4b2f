package composition

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/okian/bjjscore/internal/domain/geom"
	"github.com/okian/bjjscore/internal/domain/layout"
	"github.com/okian/bjjscore/internal/domain/model"
	"github.com/okian/bjjscore/internal/domain/schedule"
	"github.com/okian/bjjscore/internal/overlay"
	"github.com/okian/bjjscore/pkg/logger"
	"github.com/okian/bjjscore/pkg/metrics"
	"github.com/okian/bjjscore/pkg/tracing"
)

const (
	// FrameRate is the composed output rate regardless of source rate.
	FrameRate = 30.0
	// FileKind is the container written by exports.
	FileKind = "mp4"
)

// Segment places a source track on the export timeline.
type Segment struct {
	TrackID     int         `json:"trackId" yaml:"trackId"`
	Kind        TrackKind   `json:"kind" yaml:"kind"`
	SourceStart float64     `json:"sourceStart" yaml:"sourceStart"`
	Duration    float64     `json:"duration" yaml:"duration"`
	At          float64     `json:"at" yaml:"at"`
	Transform   geom.Affine `json:"transform" yaml:"transform"`
}

// Timeline lists the copied source tracks.
type Timeline struct {
	Duration float64  `json:"duration" yaml:"duration"`
	Video    Segment  `json:"video" yaml:"video"`
	Audio    *Segment `json:"audio,omitempty" yaml:"audio,omitempty"`
}

// Instruction maps the video plane into the render rect for a time range.
// Transform takes natural source pixels to render pixels: orientation
// fix, aspect-fit scale and centring translation.
type Instruction struct {
	Start        float64     `json:"start" yaml:"start"`
	Duration     float64     `json:"duration" yaml:"duration"`
	NaturalSize  geom.Size   `json:"naturalSize" yaml:"naturalSize"`
	OrientedSize geom.Size   `json:"orientedSize" yaml:"orientedSize"`
	Scale        float64     `json:"scale" yaml:"scale"`
	VideoRect    geom.Rect   `json:"videoRect" yaml:"videoRect"`
	Transform    geom.Affine `json:"transform" yaml:"transform"`
}

// Package is everything an encoder needs to render one export.
type Package struct {
	SourcePath   string         `json:"sourcePath" yaml:"sourcePath"`
	Timeline     Timeline       `json:"timeline" yaml:"timeline"`
	Instructions []Instruction  `json:"instructions" yaml:"instructions"`
	Scene        *overlay.Scene `json:"scene" yaml:"scene"`
	RenderSize   geom.Size      `json:"renderSize" yaml:"renderSize"`
	FrameRate    float64        `json:"frameRate" yaml:"frameRate"`
	FileKind     string         `json:"fileKind" yaml:"fileKind"`
	Destination  string         `json:"destination" yaml:"destination"`
}

// Request is the input of Build.
type Request struct {
	SourcePath  string
	Events      []model.ScoreEvent
	Notes       []model.Note
	Metadata    model.Metadata
	Preferences model.Preferences
}

// Builder creates export packages. It never touches timeline state and is
// safe for concurrent use with distinct sources.
type Builder struct {
	opener     Opener
	compositor *overlay.Compositor
	exportDir  string
	logger     logger.Logger
}

// NewBuilder returns a Builder reading sources through opener.
func NewBuilder(opener Opener, opts ...Option) *Builder {
	b := &Builder{
		opener:    opener,
		exportDir: os.TempDir(),
		logger:    logger.Named("compose"),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.compositor == nil {
		b.compositor = overlay.New(overlay.WithLogger(b.logger.Named("overlay")))
	}
	return b
}

// Build opens the source, validates it and assembles the export package.
func (b *Builder) Build(ctx context.Context, req Request) (_ *Package, err error) {
	ctx, span := tracing.Tracer("composition").Start(ctx, "composition.Build")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	asset, err := b.open(ctx, req.SourcePath)
	if err != nil {
		metrics.RecordCompositionError("missing_asset")
		return nil, err
	}
	video, ok := asset.FirstTrack(TrackVideo)
	if !ok {
		metrics.RecordCompositionError("missing_video_track")
		return nil, ErrMissingVideoTrack
	}

	duration := asset.Duration
	if duration <= 0 {
		duration = video.Duration
	}
	duration = max(duration, 0)

	timeline := Timeline{
		Duration: duration,
		Video: Segment{
			TrackID: video.ID, Kind: TrackVideo,
			Duration: duration, Transform: video.Transform,
		},
	}
	if audio, ok := asset.FirstTrack(TrackAudio); ok {
		timeline.Audio = &Segment{
			TrackID: audio.ID, Kind: TrackAudio,
			Duration: duration, Transform: geom.Identity,
		}
	}

	render := req.Preferences.RenderSize()
	instr := FitInstruction(video.NaturalSize, video.Transform, render)
	instr.Duration = duration

	sched := schedule.Build(req.Events, duration, req.Notes)
	scene, err := b.compositor.Compose(ctx, layout.For(req.Preferences.AspectRatio, render), overlay.Input{
		Schedule:    sched,
		Metadata:    req.Metadata,
		Preferences: req.Preferences,
	})
	if err != nil {
		metrics.RecordCompositionError("overlay")
		return nil, fmt.Errorf("compose overlay: %w", err)
	}

	pkg := &Package{
		SourcePath:   asset.Path,
		Timeline:     timeline,
		Instructions: []Instruction{instr},
		Scene:        scene,
		RenderSize:   render,
		FrameRate:    FrameRate,
		FileKind:     FileKind,
		Destination:  filepath.Join(b.exportDir, fmt.Sprintf("bjj_export_%s.%s", uuid.NewString(), FileKind)),
	}

	span.SetAttributes(
		attribute.Float64("duration", duration),
		attribute.Int("render.width", int(render.Width)),
		attribute.Int("render.height", int(render.Height)),
		attribute.Bool("audio", timeline.Audio != nil),
	)
	b.logger.Info(ctx, "export package built",
		logger.String("source", asset.Path),
		logger.String("destination", pkg.Destination),
		logger.Float64("duration", duration),
		logger.Int("width", int(render.Width)),
		logger.Int("height", int(render.Height)),
	)
	return pkg, nil
}

func (b *Builder) open(ctx context.Context, path string) (*Asset, error) {
	if b.opener == nil || path == "" {
		return nil, ErrMissingAsset
	}
	asset, err := b.opener.Open(ctx, path)
	switch {
	case err == nil && asset != nil:
		if asset.Path == "" {
			asset.Path = path
		}
		return asset, nil
	case err == nil:
		return nil, ErrMissingAsset
	case errors.Is(err, ErrMissingAsset), errors.Is(err, ErrMissingVideoTrack):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %w", ErrMissingAsset, err)
	}
}

// FitInstruction computes the uniform aspect-fit mapping of a source frame,
// after its orientation transform, centred inside render.
func FitInstruction(natural geom.Size, preferred geom.Affine, render geom.Size) Instruction {
	oriented := normalizeOrigin(preferred, natural)
	orientedSize := preferred.ApplySize(natural)

	scale := 0.0
	if orientedSize.Width > 0 && orientedSize.Height > 0 {
		scale = math.Min(render.Width/orientedSize.Width, render.Height/orientedSize.Height)
	}
	fitted := geom.Size{Width: orientedSize.Width * scale, Height: orientedSize.Height * scale}
	tx := (render.Width - fitted.Width) / 2
	ty := (render.Height - fitted.Height) / 2

	return Instruction{
		NaturalSize:  natural,
		OrientedSize: orientedSize,
		Scale:        scale,
		VideoRect:    geom.Rect{X: tx, Y: ty, Width: fitted.Width, Height: fitted.Height},
		Transform:    oriented.Concat(geom.Scaling(scale)).Concat(geom.Translation(tx, ty)),
	}
}

// normalizeOrigin shifts t so the transformed frame starts at the origin.
func normalizeOrigin(t geom.Affine, s geom.Size) geom.Affine {
	corners := []geom.Point{{}, {X: s.Width}, {Y: s.Height}, {X: s.Width, Y: s.Height}}
	minX, minY := math.Inf(1), math.Inf(1)
	for _, c := range corners {
		p := t.Apply(c)
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
	}
	return t.Concat(geom.Translation(-minX, -minY))
}
