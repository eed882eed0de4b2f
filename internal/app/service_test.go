package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/bjjscore/internal/app"
	"github.com/okian/bjjscore/internal/domain/model"
	"github.com/okian/bjjscore/internal/domain/types"
	"github.com/okian/bjjscore/pkg/logger"
)

type fixture struct {
	store    *memStore
	exporter *fakeExporter
	resolver *fakeResolver
	svc      *service.Service
}

func newFixture(opts ...service.Option) *fixture {
	f := &fixture{store: &memStore{}, exporter: &fakeExporter{}, resolver: &fakeResolver{}}
	catalog := service.NewCatalog(f.store, logger.NewNop())
	opts = append([]service.Option{service.WithLogger(logger.NewNop())}, opts...)
	f.svc = service.New(catalog, f.exporter, f.resolver, opts...)
	return f
}

func TestServiceTimeline(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service", t, func() {
		f := newFixture()
		So(f.svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = f.svc.Stop() })

		Convey("When events are added", func() {
			a, err := f.svc.AddEvent(ctx, model.ScoreEvent{Timestamp: 10, Competitor: model.AthleteA, Action: model.Points(2)})
			So(err, ShouldBeNil)
			_, err = f.svc.AddEvent(ctx, model.ScoreEvent{Timestamp: 20, Competitor: model.AthleteB, Action: model.Advantage(1)})
			So(err, ShouldBeNil)

			Convey("Then ids are assigned and the score reflects the log", func() {
				So(a.ID, ShouldNotEqual, uuid.Nil)
				view := f.svc.Timeline()
				So(view.Events, ShouldHaveLength, 2)
				So(view.CurrentScore.AthleteA.Points, ShouldEqual, 2)
				So(view.CurrentScore.AthleteB.Advantages, ShouldEqual, 1)
				So(view.CanUndo, ShouldBeTrue)
			})

			Convey("Then the project is persisted with the events", func() {
				So(f.store.saved()[0].Events, ShouldHaveLength, 2)
			})

			Convey("Then scrubbing returns the score at the playhead", func() {
				score := f.svc.ScoreAt(15)
				So(score.AthleteA.Points, ShouldEqual, 2)
				So(score.AthleteB.Advantages, ShouldEqual, 0)
			})

			Convey("And undo then redo restore the log", func() {
				changed, err := f.svc.Undo(ctx)
				So(err, ShouldBeNil)
				So(changed, ShouldBeTrue)
				So(f.svc.Timeline().Events, ShouldHaveLength, 1)
				So(f.store.saved()[0].Events, ShouldHaveLength, 1)

				changed, err = f.svc.Redo(ctx)
				So(err, ShouldBeNil)
				So(changed, ShouldBeTrue)
				So(f.svc.Timeline().Events, ShouldHaveLength, 2)
			})

			Convey("And updating keeps the creation instant", func() {
				got, err := f.svc.UpdateEvent(ctx, model.ScoreEvent{ID: a.ID, Timestamp: 10, Competitor: model.AthleteA, Action: model.Points(4)})
				So(err, ShouldBeNil)
				So(got.CreatedAt.Equal(a.CreatedAt), ShouldBeTrue)
				So(f.svc.Timeline().CurrentScore.AthleteA.Points, ShouldEqual, 4)
			})

			Convey("And removing deletes the event", func() {
				So(f.svc.RemoveEvent(ctx, a.ID), ShouldBeNil)
				So(f.svc.Timeline().Events, ShouldHaveLength, 1)
			})
		})

		Convey("When an invalid event is added", func() {
			_, err := f.svc.AddEvent(ctx, model.ScoreEvent{Timestamp: -1, Competitor: model.AthleteA, Action: model.Points(2)})

			Convey("Then it is rejected without touching history", func() {
				So(errors.Is(err, model.ErrInvalid), ShouldBeTrue)
				So(f.svc.Timeline().CanUndo, ShouldBeFalse)
			})
		})

		Convey("When unknown ids are used", func() {
			So(f.svc.RemoveEvent(ctx, uuid.New()), ShouldEqual, service.ErrEventNotFound)
			_, err := f.svc.UpdateEvent(ctx, model.NewEvent(1, model.AthleteA, model.Points(2)))
			So(err, ShouldEqual, service.ErrEventNotFound)
			So(f.svc.RemoveNote(ctx, uuid.New()), ShouldEqual, service.ErrNoteNotFound)
		})

		Convey("When undo has nothing to undo", func() {
			changed, err := f.svc.Undo(ctx)
			So(err, ShouldBeNil)
			So(changed, ShouldBeFalse)
		})

		Convey("When notes are added", func() {
			_, err := f.svc.AddNote(ctx, model.Note{Timestamp: 30, Text: "sweep"})
			So(err, ShouldBeNil)
			n, err := f.svc.AddNote(ctx, model.Note{Timestamp: 5, Text: "grips"})
			So(err, ShouldBeNil)

			Convey("Then they are sorted, persisted and findable near a time", func() {
				notes := f.svc.Timeline().Notes
				So(notes, ShouldHaveLength, 2)
				So(notes[0].Text, ShouldEqual, "grips")
				So(f.store.saved()[0].Notes, ShouldHaveLength, 2)
				So(f.svc.NotesNear(8), ShouldHaveLength, 1)
				So(f.svc.Timeline().CanUndo, ShouldBeFalse)
			})

			Convey("And removing one persists the change", func() {
				So(f.svc.RemoveNote(ctx, n.ID), ShouldBeNil)
				So(f.store.saved()[0].Notes, ShouldHaveLength, 1)
			})
		})
	})
}

func TestServiceProjects(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service with one scored project", t, func() {
		f := newFixture(service.WithOpener(&fakeOpener{duration: 312.5}))
		So(f.svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = f.svc.Stop() })
		first := f.svc.CurrentProject()
		_, err := f.svc.AddEvent(ctx, model.NewEvent(3, model.AthleteA, model.Points(2)))
		So(err, ShouldBeNil)

		Convey("When a new project is created", func() {
			p, err := f.svc.CreateProject(ctx, "Semis")
			So(err, ShouldBeNil)

			Convey("Then the timeline is reconfigured to the empty project", func() {
				view := f.svc.Timeline()
				So(view.ProjectID, ShouldEqual, p.ID)
				So(view.Events, ShouldBeEmpty)
				So(view.CanUndo, ShouldBeFalse)
			})

			Convey("And selecting the first project brings its events back", func() {
				_, err := f.svc.SelectProject(ctx, first.ID)
				So(err, ShouldBeNil)
				So(f.svc.Timeline().Events, ShouldHaveLength, 1)
			})
		})

		Convey("When metadata is patched", func() {
			title := "Worlds"
			meta := first.Metadata
			meta.Gym = "Alliance"
			p, err := f.svc.UpdateProject(ctx, first.ID, types.ProjectPatch{Title: &title, Metadata: &meta})
			So(err, ShouldBeNil)

			Convey("Then the fields change and the timeline keeps its history", func() {
				So(p.Title, ShouldEqual, "Worlds")
				So(p.Metadata.Gym, ShouldEqual, "Alliance")
				So(p.Events, ShouldHaveLength, 1)
				So(f.svc.Timeline().CanUndo, ShouldBeTrue)
			})
		})

		Convey("When a negative duration is patched", func() {
			d := -1.0
			_, err := f.svc.UpdateProject(ctx, first.ID, types.ProjectPatch{Duration: &d})
			So(errors.Is(err, model.ErrInvalid), ShouldBeTrue)
		})

		Convey("When a source is imported", func() {
			p, err := f.svc.ImportSource(ctx, "/videos/final.mp4")
			So(err, ShouldBeNil)

			Convey("Then the handle, filename and probed duration are stored", func() {
				So(string(p.SourceHandle), ShouldEqual, "h:/videos/final.mp4")
				So(p.SourceFilename, ShouldEqual, "final.mp4")
				So(p.Duration, ShouldEqual, 312.5)
			})

			Convey("Then the default title follows the file name", func() {
				So(p.Title, ShouldEqual, "final")
				So(p.Metadata.Title, ShouldEqual, "final")
			})

			Convey("Then the previous source's events and notes are dropped", func() {
				So(p.Events, ShouldBeEmpty)
				So(p.Notes, ShouldBeEmpty)
				view := f.svc.Timeline()
				So(view.Events, ShouldBeEmpty)
				So(view.CanUndo, ShouldBeFalse)
				So(f.store.saved()[0].Events, ShouldBeEmpty)
			})
		})

		Convey("When the same source is imported again after scoring", func() {
			_, err := f.svc.ImportSource(ctx, "/videos/final.mp4")
			So(err, ShouldBeNil)
			_, err = f.svc.AddEvent(ctx, model.NewEvent(5, model.AthleteB, model.Advantage(1)))
			So(err, ShouldBeNil)
			_, err = f.svc.AddNote(ctx, model.Note{Timestamp: 6, Text: "sweep"})
			So(err, ShouldBeNil)
			p, err := f.svc.ImportSource(ctx, "/videos/final.mp4")
			So(err, ShouldBeNil)

			Convey("Then the timeline still starts empty", func() {
				So(p.Events, ShouldBeEmpty)
				So(p.Notes, ShouldBeEmpty)
				So(f.svc.Timeline().Events, ShouldBeEmpty)
				So(f.svc.Timeline().Notes, ShouldBeEmpty)
				So(f.svc.Timeline().CanUndo, ShouldBeFalse)
			})
		})

		Convey("When a source is imported into a titled project", func() {
			title := "Worlds"
			_, err := f.svc.UpdateProject(ctx, first.ID, types.ProjectPatch{Title: &title})
			So(err, ShouldBeNil)
			p, err := f.svc.ImportSource(ctx, "/videos/b.mov")
			So(err, ShouldBeNil)

			Convey("Then the title is kept and seeds the banner title", func() {
				So(p.Title, ShouldEqual, "Worlds")
				So(p.Metadata.Title, ShouldEqual, "Worlds")
				So(p.SourceFilename, ShouldEqual, "b.mov")
			})
		})

		Convey("When the current project is deleted", func() {
			So(f.svc.DeleteProject(ctx, first.ID), ShouldBeNil)

			Convey("Then the timeline follows the replacement project", func() {
				So(f.svc.Timeline().ProjectID, ShouldNotEqual, first.ID)
				So(f.svc.Timeline().Events, ShouldBeEmpty)
			})
		})
	})
}

func TestServiceExport(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service", t, func() {
		f := newFixture()
		So(f.svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = f.svc.Stop() })

		Convey("When the project has no source", func() {
			_, err := f.svc.StartExport(ctx)

			Convey("Then the export is refused", func() {
				So(err, ShouldEqual, service.ErrNoSource)
			})
		})

		Convey("When the project has a source", func() {
			_, err := f.svc.ImportSource(ctx, "/videos/final.mp4")
			So(err, ShouldBeNil)
			_, err = f.svc.AddEvent(ctx, model.NewEvent(3, model.AthleteB, model.Penalty(1)))
			So(err, ShouldBeNil)

			run, err := f.svc.StartExport(ctx)
			So(err, ShouldBeNil)
			So(run != nil, ShouldBeTrue)

			Convey("Then the request carries the current timeline and settings", func() {
				req := f.exporter.last()
				So(req.ProjectID, ShouldEqual, f.svc.CurrentProject().ID)
				So(string(req.Handle), ShouldEqual, "h:/videos/final.mp4")
				So(req.Composition.Events, ShouldHaveLength, 1)
				So(req.Composition.Preferences, ShouldResemble, f.svc.CurrentProject().ExportPreferences)
				So(f.svc.GetStats().Exporting, ShouldBeTrue)
			})

			Convey("Then a second start is refused", func() {
				_, err := f.svc.StartExport(ctx)
				So(err, ShouldEqual, service.ErrExportRunning)
			})

			Convey("Then cancel stops it", func() {
				So(f.svc.CancelExport(), ShouldBeTrue)
				So(f.svc.CancelExport(), ShouldBeFalse)
			})

			Convey("And a refreshed handle is stored and reconfigures the timeline", func() {
				So(f.svc.Timeline().CanUndo, ShouldBeTrue)
				req := f.exporter.last()
				req.OnRefresh(req.ProjectID, []byte("h:/videos/final-moved.mp4"))

				So(string(f.svc.CurrentProject().SourceHandle), ShouldEqual, "h:/videos/final-moved.mp4")
				So(string(f.store.saved()[0].SourceHandle), ShouldEqual, "h:/videos/final-moved.mp4")
				view := f.svc.Timeline()
				So(view.CanUndo, ShouldBeFalse)
				So(view.Events, ShouldHaveLength, 1)
			})
		})
	})
}

func TestServiceStop(t *testing.T) {
	Convey("Given a started service", t, func() {
		f := newFixture()
		So(f.svc.Start(context.Background()), ShouldBeNil)

		Convey("When it stops", func() {
			So(f.svc.Stop(), ShouldBeNil)

			Convey("Then the exporter is closed and stats report stopped", func() {
				So(f.exporter.closed, ShouldBeTrue)
				So(f.svc.GetStats().Started, ShouldBeFalse)
				So(f.svc.Stop(), ShouldBeNil)
			})
		})
	})
}
