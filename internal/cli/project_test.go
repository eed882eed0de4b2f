package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/bjjscore/internal/domain/model"
)

func TestReadProjectDefaults(t *testing.T) {
	p, err := readProject("testdata/match.yaml")
	require.NoError(t, err)
	assert.Equal(t, "Portrait cut", p.Title)
	require.Len(t, p.Events, 1)
	assert.NotEqual(t, uuid.Nil, p.Events[0].ID, "missing ids are assigned")
	assert.Equal(t, model.Penalty(1), p.Events[0].Action)
	assert.Equal(t, model.Resolution720p, p.ExportPreferences.Resolution)
	assert.Equal(t, model.WatermarkCenter, p.ExportPreferences.Watermark.Position)
	assert.NotNil(t, p.Notes)
}

func TestReadProjectRejectsInvalidEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	doc := `{"events":[{"timestamp":-1,"competitor":"athleteA","action":{"kind":"points","delta":2}}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	_, err := readProject(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalid)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestWriteProjectRoundTrip(t *testing.T) {
	for _, name := range []string{"p.json", "p.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			p := model.NewProject()
			p.Title = "Round trip"
			p.SourceHandle = []byte("token")
			p.Events = append(p.Events, model.NewEvent(3, model.AthleteB, model.Advantage(1)))

			require.NoError(t, writeProject(path, p))
			got, err := readProject(path)
			require.NoError(t, err)
			assert.Equal(t, p.ID, got.ID)
			assert.Equal(t, "Round trip", got.Title)
			assert.Equal(t, []byte("token"), got.SourceHandle)
			require.Len(t, got.Events, 1)
			assert.Equal(t, p.Events[0].ID, got.Events[0].ID)

			_, err = os.Stat(path + ".tmp")
			assert.True(t, os.IsNotExist(err))
		})
	}
}
