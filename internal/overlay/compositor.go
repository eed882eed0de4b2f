package overlay

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/okian/bjjscore/internal/domain/geom"
	"github.com/okian/bjjscore/internal/domain/layout"
	"github.com/okian/bjjscore/internal/domain/model"
	"github.com/okian/bjjscore/internal/domain/schedule"
	"github.com/okian/bjjscore/pkg/logger"
	"github.com/okian/bjjscore/pkg/metrics"
)

// Layer names used by the compositor.
const (
	LayerRoot          = "overlay"
	LayerScoreboard    = "scoreboard"
	LayerClock         = "scoreboard.clock"
	LayerMetadata      = "metadata"
	LayerMetadataTitle = "metadata.title"
	LayerMetadataInfo  = "metadata.info"
	LayerNotes         = "notes"
	LayerWatermark     = "watermark"
)

// WatermarkFraction is the watermark size relative to the canvas.
const WatermarkFraction = 0.15

// Theme holds the scoreboard colours as #RRGGBB.
type Theme struct {
	Background  string
	Text        string
	Label       string
	AthleteA    string
	AthleteB    string
	Advantage   string
	Penalty     string
	BoxFill     string
	BackOpacity float64
}

// DefaultTheme matches the in-app scoreboard.
func DefaultTheme() Theme {
	return Theme{
		Background:  "#000000",
		Text:        "#FFFFFF",
		Label:       "#B3B3B3",
		AthleteA:    "#1A66CC",
		AthleteB:    "#CC2633",
		Advantage:   "#FFCC00",
		Penalty:     "#FF3B30",
		BoxFill:     "#1F1F1F",
		BackOpacity: 0.75,
	}
}

// Input is everything the compositor draws besides geometry.
type Input struct {
	Schedule    schedule.Schedule
	Metadata    model.Metadata
	Preferences model.Preferences
}

// Compositor builds overlay scenes.
type Compositor struct {
	logger logger.Logger
	theme  Theme
}

// New returns a compositor with the default theme.
func New(opts ...Option) *Compositor {
	c := &Compositor{
		logger: logger.Named("overlay"),
		theme:  DefaultTheme(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ScoreLayerName names the value layer for one competitor field.
func ScoreLayerName(c model.Competitor, k model.ActionKind) string {
	return fmt.Sprintf("%s.%s.%s", LayerScoreboard, c, k)
}

// NoteLayerName names the text layer of the i-th scheduled note.
func NoteLayerName(i int) string {
	return fmt.Sprintf("%s.%d", LayerNotes, i)
}

// Compose renders the schedule into a scene sized to m.Canvas.
func (c *Compositor) Compose(ctx context.Context, m layout.Metrics, in Input) (*Scene, error) {
	if m.Canvas.Width <= 0 || m.Canvas.Height <= 0 {
		return nil, ErrEmptyCanvas
	}
	b := &sceneBuilder{
		scene: &Scene{Size: m.Canvas, Duration: in.Schedule.Duration},
		theme: c.theme,
	}
	b.add(Layer{Name: LayerRoot, Kind: KindGroup, Frame: geom.RectOf(m.Canvas), Opacity: 1})

	if in.Preferences.IncludeMetadata && in.Metadata.DisplayDuringPlayback {
		b.metadata(m.MetadataFrame, in.Metadata)
	}
	b.scoreboard(m.ScoreboardFrame, in.Schedule, in.Metadata)
	if in.Preferences.IncludeNotes {
		b.notes(m.NotesFrame, in.Schedule)
	}
	if wm := in.Preferences.Watermark; wm.Enabled() {
		b.watermark(m, wm)
	}

	metrics.RecordOverlayLayers(len(b.scene.Layers))
	c.logger.Debug(ctx, "overlay composed",
		logger.Int("layers", len(b.scene.Layers)),
		logger.Int("animations", len(b.scene.Animations)),
		logger.Float64("duration", in.Schedule.Duration),
	)
	return b.scene, nil
}

type sceneBuilder struct {
	scene *Scene
	theme Theme
}

func (b *sceneBuilder) add(l Layer) {
	l.ContentsScale = 1
	if l.Kind == KindText {
		l.Text = normalize(l.Text)
	}
	b.scene.Layers = append(b.scene.Layers, l)
}

func (b *sceneBuilder) animate(a Animation) {
	a.Duration = b.scene.Duration
	for i := range a.Text {
		a.Text[i].Text = normalize(a.Text[i].Text)
	}
	b.scene.Animations = append(b.scene.Animations, a)
}

func (b *sceneBuilder) metadata(frame geom.Rect, md model.Metadata) {
	b.add(Layer{
		Name: LayerMetadata, Kind: KindRect, Parent: LayerRoot, Frame: frame,
		Color: b.theme.Background, Opacity: b.theme.BackOpacity, CornerRadius: frame.Height / 2,
	})

	pad := frame.Height * 0.5
	inner := frame.Inset(pad, frame.Height*0.1)
	half := inner.Height / 2

	title := strings.TrimSpace(md.Title)
	if title == "" {
		title = "Match"
	}
	b.add(Layer{
		Name: LayerMetadataTitle, Kind: KindText, Parent: LayerMetadata,
		Frame:    geom.Rect{X: inner.X, Y: inner.Y, Width: inner.Width, Height: half},
		Text:     title,
		FontSize: half * 0.8, Bold: true, Align: AlignLeft, Color: b.theme.Text, Opacity: 1,
	})

	info := []string{displayName(md.AthleteAName) + " vs " + displayName(md.AthleteBName)}
	if gym := strings.TrimSpace(md.Gym); gym != "" {
		info = append(info, gym)
	}
	if !md.Date.IsZero() {
		info = append(info, md.Date.Format("Jan 2, 2006"))
	}
	b.add(Layer{
		Name: LayerMetadataInfo, Kind: KindText, Parent: LayerMetadata,
		Frame:    geom.Rect{X: inner.X, Y: inner.Y + half, Width: inner.Width, Height: half},
		Text:     strings.Join(info, "  |  "),
		FontSize: half * 0.6, Align: AlignLeft, Color: b.theme.Label, Opacity: 1,
	})
}

// scoreboard lays out athlete A, the clock and athlete B left to right.
func (b *sceneBuilder) scoreboard(frame geom.Rect, s schedule.Schedule, md model.Metadata) {
	b.add(Layer{
		Name: LayerScoreboard, Kind: KindRect, Parent: LayerRoot, Frame: frame,
		Color: b.theme.Background, Opacity: b.theme.BackOpacity, CornerRadius: frame.Height / 2,
	})

	clockWidth := frame.Width * 0.15
	columnWidth := (frame.Width - clockWidth) / 2
	columns := map[model.Competitor]geom.Rect{
		model.AthleteA: {X: frame.X, Y: frame.Y, Width: columnWidth, Height: frame.Height},
		model.AthleteB: {X: frame.X + columnWidth + clockWidth, Y: frame.Y, Width: columnWidth, Height: frame.Height},
	}
	for _, c := range model.Competitors {
		b.column(columns[c], c, s, md.Name(c))
	}

	clockFrame := geom.Rect{X: frame.X + columnWidth, Y: frame.Y, Width: clockWidth, Height: frame.Height}
	b.add(Layer{
		Name: LayerClock, Kind: KindText, Parent: LayerScoreboard, Frame: clockFrame,
		Text:     model.FormatClock(0),
		FontSize: frame.Height * 0.3, Bold: true, Align: AlignCenter, Color: b.theme.Text, Opacity: 1,
	})
	b.animate(Animation{
		Layer: LayerClock, Property: PropertyText, Calculation: Discrete,
		Text: clockKeys(s.Duration),
	})
}

func (b *sceneBuilder) column(frame geom.Rect, c model.Competitor, s schedule.Schedule, name string) {
	pad := frame.Height * 0.08
	inner := frame.Inset(pad, pad)
	nameHeight := inner.Height * 0.3

	b.add(Layer{
		Name: fmt.Sprintf("%s.%s.name", LayerScoreboard, c), Kind: KindText, Parent: LayerScoreboard,
		Frame:    geom.Rect{X: inner.X, Y: inner.Y, Width: inner.Width, Height: nameHeight},
		Text:     displayName(name),
		FontSize: nameHeight * 0.8, Bold: true, Align: AlignCenter, Color: b.theme.Text, Opacity: 1,
	})

	kinds := model.Kinds
	tints := map[model.ActionKind]string{
		model.KindPoints:    b.theme.AthleteA,
		model.KindAdvantage: b.theme.Advantage,
		model.KindPenalty:   b.theme.Penalty,
	}
	if c == model.AthleteB {
		tints[model.KindPoints] = b.theme.AthleteB
	}

	boxTop := inner.Y + nameHeight
	boxHeight := inner.Height - nameHeight
	gap := inner.Width * 0.04
	boxWidth := (inner.Width - gap*float64(len(kinds)-1)) / float64(len(kinds))
	for i, k := range kinds {
		box := geom.Rect{X: inner.X + float64(i)*(boxWidth+gap), Y: boxTop, Width: boxWidth, Height: boxHeight}
		boxName := ScoreLayerName(c, k)
		b.add(Layer{
			Name: boxName + ".box", Kind: KindRect, Parent: LayerScoreboard, Frame: box,
			Color: b.theme.BoxFill, Opacity: 1, CornerRadius: boxHeight * 0.2,
		})
		labelHeight := box.Height * 0.35
		b.add(Layer{
			Name: boxName + ".label", Kind: KindText, Parent: LayerScoreboard,
			Frame:    geom.Rect{X: box.X, Y: box.Y, Width: box.Width, Height: labelHeight},
			Text:     k.Abbreviation(),
			FontSize: labelHeight * 0.7, Align: AlignCenter, Color: b.theme.Label, Opacity: 1,
		})
		b.add(Layer{
			Name: boxName, Kind: KindText, Parent: LayerScoreboard,
			Frame:    geom.Rect{X: box.X, Y: box.Y + labelHeight, Width: box.Width, Height: box.Height - labelHeight},
			Text:     "0",
			FontSize: (box.Height - labelHeight) * 0.8, Bold: true, Align: AlignCenter, Color: tints[k], Opacity: 1,
		})
		b.animate(Animation{
			Layer: boxName, Property: PropertyText, Calculation: Discrete,
			Text: scoreKeys(s, c, k),
		})
	}
}

func (b *sceneBuilder) notes(frame geom.Rect, s schedule.Schedule) {
	b.add(Layer{Name: LayerNotes, Kind: KindGroup, Parent: LayerRoot, Frame: frame, Opacity: 1})
	for i, w := range s.Notes {
		if s.Duration > 0 && w.FadeInStart >= s.Duration {
			continue
		}
		name := NoteLayerName(i)
		b.add(Layer{
			Name: name, Kind: KindText, Parent: LayerNotes, Frame: frame,
			Text:     w.Note.Text,
			FontSize: frame.Height * 0.25, Bold: w.Note.IsPinned, Align: AlignCenter, Color: b.theme.Text,
			Opacity: 0,
		})
		b.animate(Animation{
			Layer: name, Property: PropertyOpacity, Calculation: Linear,
			Opacity: noteKeys(w, s.Duration),
		})
	}
}

func (b *sceneBuilder) watermark(m layout.Metrics, wm model.Watermark) {
	size := geom.Size{Width: m.Canvas.Width * WatermarkFraction, Height: m.Canvas.Height * WatermarkFraction}
	safe := m.SafeArea
	var origin geom.Point
	switch wm.Position {
	case model.WatermarkTopLeft:
		origin = geom.Point{X: safe.MinX(), Y: safe.MinY()}
	case model.WatermarkBottomLeft:
		origin = geom.Point{X: safe.MinX(), Y: safe.MaxY() - size.Height}
	case model.WatermarkBottomRight:
		origin = geom.Point{X: safe.MaxX() - size.Width, Y: safe.MaxY() - size.Height}
	case model.WatermarkCenter:
		origin = geom.Point{X: safe.MidX() - size.Width/2, Y: safe.MidY() - size.Height/2}
	default:
		origin = geom.Point{X: safe.MaxX() - size.Width, Y: safe.MinY()}
	}
	b.add(Layer{
		Name: LayerWatermark, Kind: KindImage, Parent: LayerRoot,
		Frame:   geom.Rect{X: origin.X, Y: origin.Y, Width: size.Width, Height: size.Height},
		Image:   append([]byte(nil), wm.Image...),
		Opacity: min(max(wm.Opacity, 0), 1),
	})
}

func scoreKeys(s schedule.Schedule, c model.Competitor, k model.ActionKind) []TextKey {
	keys := make([]TextKey, len(s.Samples))
	for i, sm := range s.Samples {
		keys[i] = TextKey{
			KeyTime: schedule.KeyTime(sm.Time, s.Duration),
			Text:    strconv.Itoa(sm.State.Breakdown(c).Field(k)),
		}
	}
	return keys
}

// clockKeys emits one discrete key per elapsed second.
func clockKeys(duration float64) []TextKey {
	seconds := int(math.Floor(max(duration, 0)))
	keys := make([]TextKey, 0, seconds+1)
	for sec := 0; sec <= seconds; sec++ {
		keys = append(keys, TextKey{
			KeyTime: schedule.KeyTime(float64(sec), duration),
			Text:    model.FormatClock(float64(sec)),
		})
	}
	return keys
}

// noteKeys samples the fade envelope at its corners, clamped to the match.
func noteKeys(w schedule.NoteWindow, duration float64) []OpacityKey {
	corners := []float64{0, w.FadeInStart, w.FadeInEnd, w.FadeOutStart, w.FadeOutEnd, duration}
	keys := make([]OpacityKey, 0, len(corners))
	last := -1.0
	for _, t := range corners {
		t = min(max(t, 0), max(duration, 0))
		if t <= last {
			continue
		}
		last = t
		keys = append(keys, OpacityKey{KeyTime: schedule.KeyTime(t, duration), Opacity: w.Opacity(t)})
	}
	return keys
}

func displayName(name string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return "Athlete"
}

func normalize(s string) string {
	return norm.NFC.String(s)
}
