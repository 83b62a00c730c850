package completion

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/hookgate/internal/model"
)

// RepoProbe detects whether a directory is under version control.
type RepoProbe interface {
	IsRepo(ctx context.Context, dir string) (bool, error)
}

// SetupSpec is the checklist a workspace must satisfy before a setup task may stop.
type SetupSpec struct {
	RequiredFiles []string `yaml:"required_files" json:"required_files,omitempty"`
	RequiredDirs  []string `yaml:"required_dirs" json:"required_dirs,omitempty"`
	// EnvFile must exist and hold no placeholder ("...") values. Empty disables.
	EnvFile string `yaml:"env_file" json:"env_file,omitempty"`
	GitRepo bool   `yaml:"git_repo" json:"git_repo"`
}

// DefaultSetup only requires a git repository.
func DefaultSetup() SetupSpec {
	return SetupSpec{GitRepo: true}
}

// Setup runs every checklist item against dir and blocks listing each failure.
// A probe error (timeout, git missing) is a failed item, never a crash.
func (v *Validator) Setup(ctx context.Context, dir string) Report {
	if dir == "" {
		dir = "."
	}
	spec := v.setup
	var steps []Step

	for _, f := range spec.RequiredFiles {
		steps = append(steps, existsStep(f, filepath.Join(dir, f), "Missing "+f))
	}
	if len(spec.RequiredDirs) > 0 {
		var missing []string
		for _, d := range spec.RequiredDirs {
			if info, err := os.Stat(filepath.Join(dir, d)); err != nil || !info.IsDir() {
				missing = append(missing, d)
			}
		}
		step := Step{Name: "Directories", OK: len(missing) == 0, Detail: "OK"}
		if !step.OK {
			step.Detail = "Missing directories: " + strings.Join(missing, ", ")
		}
		steps = append(steps, step)
	}
	if spec.EnvFile != "" {
		envPath := filepath.Join(dir, spec.EnvFile)
		exists := existsStep("Env file", envPath, fmt.Sprintf("No %s file", spec.EnvFile))
		steps = append(steps, exists)
		if exists.OK {
			steps = append(steps, placeholderStep(envPath))
		}
	}
	if spec.GitRepo {
		steps = append(steps, v.repoStep(ctx, dir))
	}

	var failures []string
	for _, s := range steps {
		if !s.OK {
			failures = append(failures, fmt.Sprintf("- %s: %s", s.Name, s.Detail))
		}
	}
	if len(failures) > 0 {
		return Report{
			Decision: model.Blocked("Setup incomplete. Fix these issues:\n"+strings.Join(failures, "\n"), nil),
			Steps:    steps,
		}
	}
	return Report{
		Decision: model.Continued(fmt.Sprintf("All %d setup checks passed.", len(steps))),
		Steps:    steps,
	}
}

func (v *Validator) repoStep(ctx context.Context, dir string) Step {
	if v.repo == nil {
		return Step{Name: "Git repo", Detail: "Could not check git status: no probe configured"}
	}
	ok, err := v.repo.IsRepo(ctx, dir)
	switch {
	case err != nil:
		return Step{Name: "Git repo", Detail: "Could not check git status: " + err.Error()}
	case !ok:
		return Step{Name: "Git repo", Detail: "Not a git repo - run: git init"}
	default:
		return Step{Name: "Git repo", OK: true, Detail: "OK"}
	}
}

func existsStep(name, path, failMsg string) Step {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return Step{Name: name, Detail: failMsg}
	}
	return Step{Name: name, OK: true, Detail: "OK"}
}

// placeholderStep flags KEY=VALUE entries whose value still contains "...".
func placeholderStep(path string) Step {
	f, err := os.Open(path)
	if err != nil {
		return Step{Name: "Env values", Detail: err.Error()}
	}
	defer f.Close()

	var placeholders []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if strings.Contains(value, "...") {
			placeholders = append(placeholders, strings.TrimSpace(key))
		}
	}
	if err := scanner.Err(); err != nil {
		return Step{Name: "Env values", Detail: err.Error()}
	}
	if len(placeholders) > 0 {
		return Step{Name: "Env values", Detail: "Placeholder values in: " + strings.Join(placeholders, ", ")}
	}
	return Step{Name: "Env values", OK: true, Detail: "OK"}
}
