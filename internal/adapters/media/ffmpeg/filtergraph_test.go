package ffmpeg

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/bjjscore/internal/composition"
	"github.com/okian/bjjscore/internal/domain/geom"
	"github.com/okian/bjjscore/internal/domain/layout"
	"github.com/okian/bjjscore/internal/domain/model"
	"github.com/okian/bjjscore/internal/domain/schedule"
	"github.com/okian/bjjscore/internal/overlay"
	"github.com/okian/bjjscore/pkg/logger"
)

func testPackage(t *testing.T, prefs model.Preferences, notes []model.Note) *composition.Package {
	t.Helper()
	events := []model.ScoreEvent{model.NewEvent(10, model.AthleteA, model.Points(2))}
	render := prefs.RenderSize()
	scene, err := overlay.New(overlay.WithLogger(logger.NewNop())).Compose(context.Background(),
		layout.For(prefs.AspectRatio, render),
		overlay.Input{Schedule: schedule.Build(events, 40, notes), Metadata: model.EmptyMetadata(), Preferences: prefs},
	)
	require.NoError(t, err)
	instr := composition.FitInstruction(geom.Size{Width: 1920, Height: 1080}, geom.Identity, render)
	instr.Duration = 40
	return &composition.Package{
		SourcePath:   "/videos/match.mov",
		Timeline:     composition.Timeline{Duration: 40, Audio: &composition.Segment{Kind: composition.TrackAudio, Duration: 40}},
		Instructions: []composition.Instruction{instr},
		Scene:        scene,
		RenderSize:   render,
		FrameRate:    composition.FrameRate,
		FileKind:     composition.FileKind,
		Destination:  "/exports/out.mp4",
	}
}

func TestBuildFilterGraphLandscape(t *testing.T) {
	pkg := testPackage(t, model.DefaultPreferences(), nil)
	g := BuildFilterGraph(pkg, "", false)

	assert.True(t, strings.HasPrefix(g, "[0:v]scale=1920:1080,pad=1920:1080:0:0:color=black,setsar=1,fps=30,"), g)
	assert.True(t, strings.HasSuffix(g, ",format=yuv420p[vout]"))
	assert.Contains(t, g, "drawbox=")
	assert.Contains(t, g, `text=PTS`)
	// score A points: "0" until 10s, then "2" until the end
	assert.Contains(t, g, `text=0:`)
	assert.Contains(t, g, `enable=gte(t\,0)*lt(t\,10)`)
	assert.Contains(t, g, `text=2:`)
	assert.Contains(t, g, `enable=gte(t\,10)`)
	assert.Contains(t, g, `text=00\\:12`)
	assert.NotContains(t, g, "[1:v]")
}

func TestBuildFilterGraphPortraitLetterbox(t *testing.T) {
	prefs := model.DefaultPreferences()
	prefs.AspectRatio = model.AspectPortrait
	g := BuildFilterGraph(testPackage(t, prefs, nil), "/fonts/Inter.ttf", false)

	assert.Contains(t, g, "scale=1080:606,pad=1080:1920:0:656:color=black")
	assert.Contains(t, g, `fontfile=/fonts/Inter.ttf`)
}

func TestBuildFilterGraphNotesAndWatermark(t *testing.T) {
	prefs := model.DefaultPreferences()
	prefs.Watermark = model.Watermark{Image: []byte("logo"), Opacity: 0.5, Position: model.WatermarkTopLeft}
	g := BuildFilterGraph(testPackage(t, prefs, []model.Note{model.NewNote(5, "Guard pull")}), "", true)

	assert.Contains(t, g, `text=Guard pull`)
	assert.Contains(t, g, `enable=between(t\,5\,9.`)
	assert.Contains(t, g, `alpha=if(lt(t\,5)`)
	assert.Contains(t, g, "[1:v]scale=288:162,format=rgba,colorchannelmixer=aa=0.5[wm];")
	assert.Contains(t, g, "[base][wm]overlay=x=40:y=40:shortest=1,format=yuv420p[vout]")
}

func TestEscaping(t *testing.T) {
	assert.Equal(t, `a\:b\'c\\d`, escapeOption(`a:b'c\d`))
	assert.Equal(t, `x\,y\;z\[0\]`, escapeGraph(`x,y;z[0]`))
	assert.Equal(t, `text=a\\:b\\\'c`, filterOptions("text", `a:b'c`))
}

func TestOpacityExpr(t *testing.T) {
	a := overlay.Animation{
		Property: overlay.PropertyOpacity, Calculation: overlay.Linear, Duration: 10,
		Opacity: []overlay.OpacityKey{{KeyTime: 0, Opacity: 0}, {KeyTime: 0.5, Opacity: 1}, {KeyTime: 1, Opacity: 1}},
	}
	assert.Equal(t, "if(lt(t,5),0+(t-0)*0.2,if(lt(t,10),1,1))", opacityExpr(a))
	assert.Equal(t, "between(t,0,10)", visibleWindow(a))
}
