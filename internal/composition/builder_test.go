package composition

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/bjjscore/internal/domain/geom"
	"github.com/okian/bjjscore/internal/domain/model"
	"github.com/okian/bjjscore/internal/overlay"
)

type fakeOpener struct {
	asset *Asset
	err   error
	calls int
}

func (f *fakeOpener) Open(_ context.Context, path string) (*Asset, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	a := *f.asset
	a.Path = path
	return &a, nil
}

func landscapeAsset() *Asset {
	return &Asset{
		Duration: 40,
		Tracks: []Track{
			{ID: 0, Kind: TrackVideo, NaturalSize: geom.Size{Width: 1920, Height: 1080}, Transform: geom.Identity, Duration: 40, FrameRate: 59.94},
			{ID: 1, Kind: TrackAudio, Duration: 40},
		},
	}
}

func request() Request {
	return Request{
		SourcePath: "/videos/match.mov",
		Events: []model.ScoreEvent{
			model.NewEvent(10, model.AthleteA, model.Points(2)),
		},
		Metadata:    model.EmptyMetadata(),
		Preferences: model.DefaultPreferences(),
	}
}

func TestBuild(t *testing.T) {
	Convey("Given a builder over a landscape source", t, func() {
		opener := &fakeOpener{asset: landscapeAsset()}
		dir := t.TempDir()
		b := NewBuilder(opener, WithExportDir(dir))

		Convey("When building a default export", func() {
			pkg, err := b.Build(context.Background(), request())
			So(err, ShouldBeNil)

			Convey("Then video and audio are copied at offset zero", func() {
				So(pkg.Timeline.Duration, ShouldEqual, 40)
				So(pkg.Timeline.Video.At, ShouldEqual, 0)
				So(pkg.Timeline.Video.Duration, ShouldEqual, 40)
				So(pkg.Timeline.Video.Transform, ShouldResemble, geom.Identity)
				So(pkg.Timeline.Audio, ShouldNotBeNil)
				So(pkg.Timeline.Audio.TrackID, ShouldEqual, 1)
			})

			Convey("Then output runs at 30fps on the preset canvas", func() {
				So(pkg.FrameRate, ShouldEqual, 30)
				So(pkg.RenderSize, ShouldResemble, geom.Size{Width: 1920, Height: 1080})
				So(pkg.Scene.Size, ShouldResemble, pkg.RenderSize)
			})

			Convey("Then the instruction spans the whole match", func() {
				So(pkg.Instructions, ShouldHaveLength, 1)
				So(pkg.Instructions[0].Duration, ShouldEqual, 40)
				So(pkg.Instructions[0].Scale, ShouldEqual, 1)
			})

			Convey("Then the destination is a fresh mp4 in the export dir", func() {
				So(filepath.Dir(pkg.Destination), ShouldEqual, dir)
				So(strings.HasSuffix(pkg.Destination, ".mp4"), ShouldBeTrue)
				So(pkg.FileKind, ShouldEqual, "mp4")
				again, err := b.Build(context.Background(), request())
				So(err, ShouldBeNil)
				So(again.Destination, ShouldNotEqual, pkg.Destination)
			})

			Convey("Then the overlay carries the score", func() {
				name := overlay.ScoreLayerName(model.AthleteA, model.KindPoints)
				So(pkg.Scene.TextAt(name, 11), ShouldEqual, "2")
			})
		})

		Convey("When the source has no audio", func() {
			opener.asset.Tracks = opener.asset.Tracks[:1]
			pkg, err := b.Build(context.Background(), request())
			So(err, ShouldBeNil)
			So(pkg.Timeline.Audio, ShouldBeNil)
		})

		Convey("When the source has no video track", func() {
			opener.asset.Tracks = opener.asset.Tracks[1:]
			pkg, err := b.Build(context.Background(), request())
			So(pkg, ShouldBeNil)
			So(errors.Is(err, ErrMissingVideoTrack), ShouldBeTrue)
		})

		Convey("When the source cannot be opened", func() {
			opener.err = errors.New("no such file")
			_, err := b.Build(context.Background(), request())
			So(errors.Is(err, ErrMissingAsset), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "no such file")
		})

		Convey("When no source path is set", func() {
			req := request()
			req.SourcePath = ""
			_, err := b.Build(context.Background(), req)
			So(errors.Is(err, ErrMissingAsset), ShouldBeTrue)
			So(opener.calls, ShouldEqual, 0)
		})

		Convey("When the asset lacks a container duration", func() {
			opener.asset.Duration = 0
			pkg, err := b.Build(context.Background(), request())
			So(err, ShouldBeNil)
			So(pkg.Timeline.Duration, ShouldEqual, 40)
		})
	})
}

func TestFitInstruction(t *testing.T) {
	Convey("Given a landscape source", t, func() {
		natural := geom.Size{Width: 1920, Height: 1080}

		Convey("When fitting into a portrait canvas", func() {
			in := FitInstruction(natural, geom.Identity, geom.Size{Width: 1080, Height: 1920})

			Convey("Then it letterboxes centred", func() {
				So(in.Scale, ShouldEqual, 0.5625)
				So(in.VideoRect.Width, ShouldEqual, 1080)
				So(in.VideoRect.Height, ShouldEqual, 607.5)
				So(in.VideoRect.Y, ShouldEqual, 656.25)
				So(in.Transform.Apply(geom.Point{}), ShouldResemble, geom.Point{X: 0, Y: 656.25})
			})
		})

		Convey("When fitting into a square canvas", func() {
			in := FitInstruction(natural, geom.Identity, geom.Size{Width: 1080, Height: 1080})
			So(in.VideoRect.X, ShouldEqual, 0)
			So(in.VideoRect.Width, ShouldEqual, 1080)
			So(in.VideoRect.Y, ShouldEqual, (1080-607.5)/2)
		})
	})

	Convey("Given a source recorded in portrait", t, func() {
		natural := geom.Size{Width: 1920, Height: 1080}
		in := FitInstruction(natural, geom.Rotation(90), geom.Size{Width: 1080, Height: 1920})

		Convey("Then the oriented size is swapped", func() {
			So(in.OrientedSize, ShouldResemble, geom.Size{Width: 1080, Height: 1920})
			So(in.Scale, ShouldEqual, 1)
		})

		Convey("Then the rotated frame fills the canvas from the origin", func() {
			So(in.Transform.Apply(geom.Point{}), ShouldResemble, geom.Point{X: 1080, Y: 0})
			So(in.Transform.Apply(geom.Point{X: 1920, Y: 1080}), ShouldResemble, geom.Point{X: 0, Y: 1920})
		})
	})
}
