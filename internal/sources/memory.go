package sources

import (
	"context"
	"maps"
)

// Memory serves a fixed entry set. Useful for defaults and tests.
type Memory struct {
	name     string
	priority int
	entries  map[string]string
}

// NewMemory copies entries into a new in-memory provider.
func NewMemory(name string, priority int, entries map[string]string) *Memory {
	return &Memory{
		name:     name,
		priority: priority,
		entries:  maps.Clone(entries),
	}
}

func (m *Memory) Name() string  { return m.name }
func (m *Memory) Priority() int { return m.priority }

func (m *Memory) Load(context.Context) (map[string]string, error) {
	out := maps.Clone(m.entries)
	if out == nil {
		out = map[string]string{}
	}
	return out, nil
}

// CommandLine holds key=value overrides passed on the command line.
type CommandLine struct {
	Memory
}

// NewCommandLine creates a command-line override source.
func NewCommandLine(name string, priority int, overrides map[string]string) *CommandLine {
	return &CommandLine{Memory: *NewMemory(name, priority, overrides)}
}

func (c *CommandLine) Sensitive() bool { return true }
