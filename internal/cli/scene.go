package cli

import (
	"github.com/spf13/cobra"

	"github.com/okian/bjjscore/internal/domain/layout"
	"github.com/okian/bjjscore/internal/domain/schedule"
	"github.com/okian/bjjscore/internal/overlay"
)

// NewSceneCommand creates the scene command.
func NewSceneCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		projectPath string
		layoutOnly  bool
	)

	cmd := &cobra.Command{
		Use:   "scene",
		Short: "Print the overlay scene of a project",
		Long: `Compose the overlay for the project's export preferences and print its
layers and animations, sized to the export canvas. With --layout, print only
the layout regions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := readProject(projectPath)
			if err != nil {
				return err
			}
			f := formatter(rootOpts, cmd)
			m := layout.ForPreferences(p.ExportPreferences)
			if layoutOnly {
				return f.Print(m)
			}

			scene, err := overlay.New().Compose(cmd.Context(), m, overlay.Input{
				Schedule:    schedule.Build(p.Events, p.Duration, p.Notes),
				Metadata:    p.Metadata,
				Preferences: p.ExportPreferences,
			})
			if err != nil {
				return WrapExitError(ExitFailure, "compose overlay", err)
			}
			f.VerboseLog("%d layers, %d animations on %vx%v", len(scene.Layers), len(scene.Animations),
				scene.Size.Width, scene.Size.Height)
			return f.Print(scene)
		},
	}

	cmd.Flags().StringVarP(&projectPath, "project", "p", "", "project file (json or yaml)")
	cmd.Flags().BoolVar(&layoutOnly, "layout", false, "print the layout regions only")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}
