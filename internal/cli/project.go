package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/okian/bjjscore/internal/domain/model"
)

// readProject loads a project document. Files ending in .yaml or .yml are
// decoded as YAML, everything else as JSON. Missing optional sections take
// the defaults of a new project.
func readProject(path string) (model.Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Project{}, WrapExitError(ExitCommandError, "read project", err)
	}

	p := model.NewProject()
	p.Events = nil
	p.Notes = nil
	if isYAML(path) {
		err = yaml.Unmarshal(data, &p)
	} else {
		err = json.Unmarshal(data, &p)
	}
	if err != nil {
		return model.Project{}, WrapExitError(ExitCommandError, fmt.Sprintf("decode project %s", path), err)
	}
	for i := range p.Events {
		if p.Events[i].ID == uuid.Nil {
			p.Events[i].ID = uuid.New()
		}
		if err := p.Events[i].Validate(); err != nil {
			return model.Project{}, WrapExitError(ExitCommandError, fmt.Sprintf("event %d", i), err)
		}
	}
	for i := range p.Notes {
		if p.Notes[i].ID == uuid.Nil {
			p.Notes[i].ID = uuid.New()
		}
	}
	if p.Events == nil {
		p.Events = []model.ScoreEvent{}
	}
	if p.Notes == nil {
		p.Notes = []model.Note{}
	}
	return p, nil
}

// writeProject replaces the project document at path, keeping its encoding.
func writeProject(path string, p model.Project) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(p)
	} else {
		data, err = json.MarshalIndent(p, "", "  ")
	}
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
