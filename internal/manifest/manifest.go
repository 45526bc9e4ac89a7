// Package manifest loads workflow definitions from YAML. A manifest
// declares phases of shell-command tasks; the order value controls
// display position only, never scheduling. Tasks that omit the order
// value all sort as zero and keep their listed sequence.
package manifest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is one workflow definition.
type Manifest struct {
	// Name labels the workflow in history listings.
	Name string `yaml:"name"`
	// Watch lists paths that trigger a re-run in watch mode.
	Watch []string `yaml:"watch,omitempty"`
	// Phases are the workflow's phases in declaration order.
	Phases []Phase `yaml:"phases"`
}

// Phase groups tasks under one header.
type Phase struct {
	// Name is the phase name shown as the group header.
	Name string `yaml:"name"`
	// Tasks are the phase's tasks.
	Tasks []Task `yaml:"tasks"`
}

// Task is one shell-command task.
type Task struct {
	// Name is the task's display name, unique within the phase.
	Name string `yaml:"name"`
	// Order is the display sort key within the phase.
	Order float64 `yaml:"order,omitempty"`
	// Run is the shell command to execute.
	Run string `yaml:"run"`
	// Dir is the working directory for the command, if set.
	Dir string `yaml:"dir,omitempty"`
	// Env holds extra environment variables for the command.
	Env map[string]string `yaml:"env,omitempty"`
	// AllowFailure keeps a failing task from affecting the run's exit
	// code. The failure is still recorded and listed in the summary.
	AllowFailure bool `yaml:"allow_failure,omitempty"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates manifest YAML.
func Parse(data []byte) (*Manifest, error) {
	m := &Manifest{}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks structural rules: at least one phase, named phases and
// tasks, a command per task, and no duplicate (phase, task) pairs.
func (m *Manifest) Validate() error {
	if len(m.Phases) == 0 {
		return fmt.Errorf("manifest has no phases")
	}

	seen := make(map[string]bool)
	for _, phase := range m.Phases {
		if phase.Name == "" {
			return fmt.Errorf("phase with empty name")
		}
		if len(phase.Tasks) == 0 {
			return fmt.Errorf("phase %q has no tasks", phase.Name)
		}
		for _, task := range phase.Tasks {
			if task.Name == "" {
				return fmt.Errorf("phase %q has a task with empty name", phase.Name)
			}
			if task.Run == "" {
				return fmt.Errorf("task %q in phase %q has no run command", task.Name, phase.Name)
			}
			key := phase.Name + "\x00" + task.Name
			if seen[key] {
				return fmt.Errorf("duplicate task %q in phase %q", task.Name, phase.Name)
			}
			seen[key] = true
		}
	}
	return nil
}

// TaskCount returns the total number of tasks across all phases.
func (m *Manifest) TaskCount() int {
	var n int
	for _, phase := range m.Phases {
		n += len(phase.Tasks)
	}
	return n
}
