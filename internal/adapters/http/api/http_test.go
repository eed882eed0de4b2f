package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/bjjscore/internal/adapters/handle"
	"github.com/okian/bjjscore/internal/adapters/http/api"
	"github.com/okian/bjjscore/internal/adapters/repository"
	service "github.com/okian/bjjscore/internal/app"
	"github.com/okian/bjjscore/internal/domain/model"
	"github.com/okian/bjjscore/internal/domain/types"
	"github.com/okian/bjjscore/internal/export"
	"github.com/okian/bjjscore/pkg/logger"
)

type stubExporter struct {
	mu      sync.Mutex
	running bool
}

func (e *stubExporter) Start(context.Context, export.Request) (*export.Run, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return nil, false
	}
	e.running = true
	return &export.Run{ID: uuid.New()}, true
}

func (e *stubExporter) Cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	was := e.running
	e.running = false
	return was
}

func (e *stubExporter) Status() export.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return export.Status{State: export.StateExporting}
	}
	return export.Status{State: export.StateIdle, Err: export.ErrCancelled}
}

func (e *stubExporter) Close() error { return nil }

type harness struct {
	mux *http.ServeMux
	dir string
}

func newHarness(t *testing.T) *harness {
	dir := t.TempDir()
	store, err := repository.NewJSONStore(filepath.Join(dir, "projects.json"))
	if err != nil {
		t.Fatal(err)
	}
	catalog := service.NewCatalog(store, logger.NewNop())
	svc := service.New(catalog, &stubExporter{}, handle.NewFileResolver(logger.NewNop()), service.WithLogger(logger.NewNop()))
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = svc.Stop() })

	mux := http.NewServeMux()
	api.NewServer(svc).Register(context.Background(), mux)
	return &harness{mux: mux, dir: dir}
}

func (h *harness) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()
	h.mux.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	_ = json.Unmarshal(w.Body.Bytes(), &v)
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	Convey("Given a registered server", t, func() {
		h := newHarness(t)

		Convey("Then /healthz reports ok", func() {
			w := h.do(http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"ok"`)
			So(w.Body.String(), ShouldContainSubstring, `"export":"idle"`)
		})

		Convey("Then /metrics serves the custom registry", func() {
			h.do(http.MethodGet, "/healthz", "")
			w := h.do(http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "bjjscore_scoreboard_http_requests_total")
		})

		Convey("Then /stats reports the service summary", func() {
			w := h.do(http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			stats := decode[types.Stats](w)
			So(stats.Started, ShouldBeTrue)
			So(stats.Projects, ShouldEqual, 1)
		})

		Convey("Then wrong methods are rejected by the router", func() {
			w := h.do(http.MethodPost, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestProjectRoutes(t *testing.T) {
	Convey("Given a registered server", t, func() {
		h := newHarness(t)

		Convey("When a project is created", func() {
			w := h.do(http.MethodPost, "/projects", `{"title":"Finals"}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			created := decode[model.Project](w)

			Convey("Then it is listed first and current", func() {
				w := h.do(http.MethodGet, "/projects", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				var list struct {
					Current  string          `json:"current"`
					Projects []model.Project `json:"projects"`
				}
				So(json.Unmarshal(w.Body.Bytes(), &list), ShouldBeNil)
				So(list.Projects, ShouldHaveLength, 2)
				So(list.Projects[0].Title, ShouldEqual, "Finals")
				So(list.Current, ShouldEqual, created.ID.String())
			})

			Convey("Then it can be patched", func() {
				w := h.do(http.MethodPut, "/projects/"+created.ID.String(), `{"title":"Worlds"}`)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[model.Project](w).Title, ShouldEqual, "Worlds")
			})

			Convey("Then an invalid patch is a bad request", func() {
				w := h.do(http.MethodPut, "/projects/"+created.ID.String(), `{"duration":-4}`)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then it can be fetched and deleted", func() {
				So(h.do(http.MethodGet, "/projects/"+created.ID.String(), "").Code, ShouldEqual, http.StatusOK)
				So(h.do(http.MethodDelete, "/projects/"+created.ID.String(), "").Code, ShouldEqual, http.StatusNoContent)
				So(h.do(http.MethodGet, "/projects/"+created.ID.String(), "").Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When an empty create body is sent", func() {
			w := h.do(http.MethodPost, "/projects", "")

			Convey("Then the default title is used", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(decode[model.Project](w).Title, ShouldEqual, model.DefaultProjectTitle)
			})
		})

		Convey("When the id is malformed or unknown", func() {
			So(h.do(http.MethodGet, "/projects/nope", "").Code, ShouldEqual, http.StatusBadRequest)
			So(h.do(http.MethodPost, "/projects/"+uuid.NewString()+"/select", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When a source file is imported", func() {
			path := filepath.Join(h.dir, "match.mp4")
			So(os.WriteFile(path, []byte("video"), 0o600), ShouldBeNil)
			body, _ := json.Marshal(map[string]string{"path": path})
			w := h.do(http.MethodPost, "/source", string(body))

			Convey("Then the project records the filename", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[model.Project](w).SourceFilename, ShouldEqual, "match.mp4")
			})
		})

		Convey("When a missing source file is imported", func() {
			w := h.do(http.MethodPost, "/source", `{"path":"/does/not/exist.mp4"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestTimelineRoutes(t *testing.T) {
	Convey("Given a registered server", t, func() {
		h := newHarness(t)

		Convey("When an event is posted", func() {
			w := h.do(http.MethodPost, "/timeline/events", `{"timestamp":12,"competitor":"athleteA","action":{"kind":"points","delta":2}}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			ev := decode[model.ScoreEvent](w)

			Convey("Then the timeline and score reflect it", func() {
				view := decode[types.TimelineView](h.do(http.MethodGet, "/timeline", ""))
				So(view.Events, ShouldHaveLength, 1)
				So(view.CurrentScore.AthleteA.Points, ShouldEqual, 2)

				w := h.do(http.MethodGet, "/timeline/score?t=11.9", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"clock":"00:12"`)
				So(w.Body.String(), ShouldContainSubstring, `"points":0`)
			})

			Convey("Then non-finite or malformed times are rejected", func() {
				for _, q := range []string{"NaN", "Inf", "-Inf", "abc", ""} {
					So(h.do(http.MethodGet, "/timeline/score?t="+q, "").Code, ShouldEqual, http.StatusBadRequest)
					So(h.do(http.MethodGet, "/timeline/notes?t="+q, "").Code, ShouldEqual, http.StatusBadRequest)
				}
			})

			Convey("Then it can be updated and removed", func() {
				w := h.do(http.MethodPut, "/timeline/events/"+ev.ID.String(), `{"timestamp":12,"competitor":"athleteA","action":{"kind":"points","delta":4}}`)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[model.ScoreEvent](w).Action.Delta, ShouldEqual, 4)
				So(h.do(http.MethodDelete, "/timeline/events/"+ev.ID.String(), "").Code, ShouldEqual, http.StatusNoContent)
				So(h.do(http.MethodDelete, "/timeline/events/"+ev.ID.String(), "").Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("Then undo and redo report changes", func() {
				w := h.do(http.MethodPost, "/timeline/undo", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"changed":true`)
				w = h.do(http.MethodPost, "/timeline/undo", "")
				So(w.Body.String(), ShouldContainSubstring, `"changed":false`)
				w = h.do(http.MethodPost, "/timeline/redo", "")
				So(w.Body.String(), ShouldContainSubstring, `"changed":true`)
			})
		})

		Convey("When an invalid event is posted", func() {
			w := h.do(http.MethodPost, "/timeline/events", `{"timestamp":1,"competitor":"referee","action":{"kind":"points","delta":2}}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When malformed json is posted", func() {
			w := h.do(http.MethodPost, "/timeline/notes", `{"timestamp":`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When notes are posted", func() {
			So(h.do(http.MethodPost, "/timeline/notes", `{"timestamp":30,"text":"sweep"}`).Code, ShouldEqual, http.StatusCreated)

			Convey("Then they are found near their time only", func() {
				So(decode[[]model.Note](h.do(http.MethodGet, "/timeline/notes?t=33", "")), ShouldHaveLength, 1)
				So(decode[[]model.Note](h.do(http.MethodGet, "/timeline/notes?t=40", "")), ShouldHaveLength, 0)
			})
		})

		Convey("When the score query lacks t", func() {
			So(h.do(http.MethodGet, "/timeline/score", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestExportRoutes(t *testing.T) {
	Convey("Given a registered server", t, func() {
		h := newHarness(t)

		Convey("When exporting without a source", func() {
			w := h.do(http.MethodPost, "/export", "")
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("When exporting with a source", func() {
			path := filepath.Join(h.dir, "match.mp4")
			So(os.WriteFile(path, []byte("video"), 0o600), ShouldBeNil)
			body, _ := json.Marshal(map[string]string{"path": path})
			So(h.do(http.MethodPost, "/source", string(body)).Code, ShouldEqual, http.StatusOK)

			w := h.do(http.MethodPost, "/export", "")
			So(w.Code, ShouldEqual, http.StatusAccepted)
			So(w.Body.String(), ShouldContainSubstring, "runId")

			Convey("Then the status reports exporting and a second start conflicts", func() {
				So(h.do(http.MethodGet, "/export", "").Body.String(), ShouldContainSubstring, `"state":"exporting"`)
				So(h.do(http.MethodPost, "/export", "").Code, ShouldEqual, http.StatusConflict)
			})

			Convey("Then cancel returns to idle with the error slot filled", func() {
				w := h.do(http.MethodDelete, "/export", "")
				So(w.Body.String(), ShouldContainSubstring, `"cancelled":true`)
				status := h.do(http.MethodGet, "/export", "").Body.String()
				So(status, ShouldContainSubstring, `"state":"idle"`)
				So(strings.Contains(status, export.ErrCancelled.Error()), ShouldBeTrue)
			})
		})
	})
}
