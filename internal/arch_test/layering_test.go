package arch_test

import (
	"strings"
	"testing"
)

// pipeline lists the data path from rating history to rendered report. A
// stage may import only the stages before it.
var pipeline = []string{"rating", "trust", "export", "analysis", "ui"}

// standalone packages serve the CLI directly and import no internal package.
// Pipeline stages must not import them either: the CLI wires telemetry,
// metrics and watching in from the outside.
var standalone = map[string]bool{
	"config":    true,
	"metrics":   true,
	"telemetry": true,
	"watch":     true,
}

// presentationImports may only appear in ui; the other packages return
// values and errors and leave output to the CLI.
var presentationImports = []string{
	"log",
	"log/slog",
	"github.com/charmbracelet/lipgloss",
}

func TestPipelineImportsFlowForward(t *testing.T) {
	t.Parallel()

	stage := map[string]int{}
	for i, name := range pipeline {
		stage[name] = i
	}

	for _, p := range loadInternal(t) {
		for _, dep := range p.internalImports() {
			if standalone[p.name] {
				t.Errorf("%s is standalone but imports internal/%s", p.name, dep)
				continue
			}
			if standalone[dep] {
				t.Errorf("%s imports standalone package %s; inject it from cmd instead", p.name, dep)
				continue
			}
			if stage[dep] >= stage[p.name] {
				t.Errorf("%s (stage %d) imports %s (stage %d)", p.name, stage[p.name], dep, stage[dep])
			}
		}
	}
}

func TestEveryPackageIsPlaced(t *testing.T) {
	t.Parallel()

	placed := map[string]bool{}
	for _, name := range pipeline {
		placed[name] = true
	}
	for _, p := range loadInternal(t) {
		if !placed[p.name] && !standalone[p.name] {
			t.Errorf("package %s is neither a pipeline stage nor standalone", p.name)
		}
	}
}

func TestPresentationStaysInUI(t *testing.T) {
	t.Parallel()

	for _, p := range loadInternal(t) {
		if p.name == "ui" {
			continue
		}
		for _, path := range p.imports() {
			for _, banned := range presentationImports {
				if path == banned {
					t.Errorf("%s imports %s; route output through internal/ui", p.name, path)
				}
			}
		}
	}
}

func TestCoreHasNoFileIO(t *testing.T) {
	t.Parallel()

	// trust works on in-memory records and graphs only.
	for _, p := range loadInternal(t) {
		if p.name != "trust" {
			continue
		}
		for _, path := range p.imports() {
			if path == "os" || strings.HasPrefix(path, "io") {
				t.Errorf("trust imports %s", path)
			}
		}
	}
}
