package cli

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/okian/bjjscore/internal/domain/schedule"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestScheduleGolden(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{name: "schedule", args: []string{"schedule", "--project", "testdata/match.json"}},
		{name: "schedule_at", args: []string{"schedule", "--project", "testdata/match.json", "--at", "14"}},
		{name: "schedule_at_late", args: []string{"schedule", "--project", "testdata/match.json", "--at", "30"}},
	}

	g := newGoldie(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, _, err := execute(t, tc.args...)
			require.NoError(t, err)
			g.Assert(t, tc.name, []byte(out))
		})
	}
}

func TestScheduleYAML(t *testing.T) {
	out, _, err := execute(t, "--format", "yaml", "schedule", "--project", "testdata/match.yaml")
	require.NoError(t, err)

	var s schedule.Schedule
	require.NoError(t, yaml.Unmarshal([]byte(out), &s))
	assert.Equal(t, 30.0, s.Duration)
	require.Len(t, s.Samples, 3)
	assert.Equal(t, 5.0, s.Samples[1].Time)
	assert.Equal(t, 1, s.Samples[1].State.AthleteA.Penalties)
	assert.Equal(t, s.Samples[1].State, s.Samples[2].State)
	assert.Empty(t, s.Notes)
}

func TestScheduleVerbose(t *testing.T) {
	out, errOut, err := execute(t, "-v", "schedule", "--project", "testdata/match.json")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	assert.Contains(t, errOut, "2 events, 4 samples, 1 notes")
}

func TestScheduleErrors(t *testing.T) {
	_, _, err := execute(t, "schedule")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project")

	_, _, err = execute(t, "schedule", "--project", "testdata/missing.json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
