package cli

import (
	"math"

	"github.com/spf13/cobra"

	"github.com/okian/bjjscore/internal/domain/model"
	"github.com/okian/bjjscore/internal/domain/schedule"
)

// Snapshot is the overlay state at one instant.
type Snapshot struct {
	Time  float64               `json:"time" yaml:"time"`
	Clock string                `json:"clock" yaml:"clock"`
	State model.ScoreState      `json:"state" yaml:"state"`
	Notes []schedule.NoteWindow `json:"notes" yaml:"notes"`
}

// NewScheduleCommand creates the schedule command.
func NewScheduleCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		projectPath string
		at          float64
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the score schedule of a project",
		Long: `Print the discrete score samples and note windows the overlay is built
from. With --at, print only the score, clock and visible notes at that time.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readProject(projectPath)
			if err != nil {
				return err
			}
			f := formatter(rootOpts, cmd)
			s := schedule.Build(p.Events, p.Duration, p.Notes)
			f.VerboseLog("%d events, %d samples, %d notes", len(p.Events), len(s.Samples), len(s.Notes))

			if !cmd.Flags().Changed("at") {
				return f.Print(s)
			}
			return f.Print(snapshotAt(s, at))
		},
	}

	cmd.Flags().StringVarP(&projectPath, "project", "p", "", "project file (json or yaml)")
	cmd.Flags().Float64Var(&at, "at", math.NaN(), "evaluate the schedule at this many seconds")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func snapshotAt(s schedule.Schedule, t float64) Snapshot {
	notes := s.VisibleNotes(t)
	if notes == nil {
		notes = []schedule.NoteWindow{}
	}
	return Snapshot{
		Time:  t,
		Clock: model.FormatClock(t),
		State: s.StateAt(t),
		Notes: notes,
	}
}

func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
