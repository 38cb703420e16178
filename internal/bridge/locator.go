package bridge

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrWorkerNotFound is returned when neither a sidecar binary nor an
// interpreter-driven script can be located. Fatal for the job.
var ErrWorkerNotFound = errors.New("sync worker not found")

const (
	sidecarName      = "audiosync-cli"
	bridgeScriptName = "bridge.py"
	interpreterName  = "python"
)

// sidecarVariants are the executable name forms tried at every base, in
// order: bare, Windows-suffixed, fully platform-tripled.
var sidecarVariants = []string{
	sidecarName,
	sidecarName + ".exe",
	sidecarName + "-x86_64-pc-windows-msvc.exe",
}

type Strategy string

const (
	// StrategySidecar runs the packaged platform binary directly.
	StrategySidecar Strategy = "sidecar"
	// StrategyInterpreter runs the bridge script under an interpreter.
	StrategyInterpreter Strategy = "interpreter"
)

// WorkerCommand is a resolved way to start the worker process.
type WorkerCommand struct {
	Path     string
	Args     []string
	Strategy Strategy
}

// Locator resolves which executable form of the worker is available. The
// candidate lists are pure data tried in order; existence on the filesystem
// is the only criterion.
type Locator struct {
	// ResourceDir is the application's bundled-resource directory, searched
	// before the working directory. Empty disables the resource base.
	ResourceDir string
	// WorkDir overrides the process working directory, mainly for tests.
	WorkDir string

	// exists is swappable for tests; defaults to an os.Stat check.
	exists func(string) bool
}

func NewLocator(resourceDir string) *Locator {
	return &Locator{ResourceDir: resourceDir}
}

// Locate returns the first usable worker command: the sidecar binary if any
// candidate exists, otherwise interpreter plus bridge script. Only a missing
// script is fatal; a missing interpreter falls back to the bare command name.
func (l *Locator) Locate() (*WorkerCommand, error) {
	if path, ok := l.firstExisting(l.sidecarCandidates()); ok {
		return &WorkerCommand{Path: path, Strategy: StrategySidecar}, nil
	}

	script, ok := l.firstExisting(l.scriptCandidates())
	if !ok {
		return nil, ErrWorkerNotFound
	}

	interpreter, ok := l.firstExisting(l.interpreterCandidates())
	if !ok {
		// Last resort: rely on PATH lookup at spawn time.
		interpreter = interpreterName
	}

	return &WorkerCommand{
		Path:     interpreter,
		Args:     []string{script},
		Strategy: StrategyInterpreter,
	}, nil
}

func (l *Locator) sidecarCandidates() []string {
	bases := make([]string, 0, 3)
	if l.ResourceDir != "" {
		bases = append(bases, filepath.Join(l.ResourceDir, "bin"))
	}
	cwd := l.workDir()
	bases = append(bases,
		filepath.Join(cwd, "bin"),
		filepath.Join(cwd, "..", "src-tauri", "bin"),
	)

	var candidates []string
	for _, base := range bases {
		for _, name := range sidecarVariants {
			candidates = append(candidates, filepath.Join(base, name))
		}
	}
	return candidates
}

func (l *Locator) interpreterCandidates() []string {
	venvs := []string{
		filepath.Join(".venv", "Scripts", "python.exe"),
		filepath.Join(".venv", "bin", "python"),
	}
	cwd := l.workDir()
	bases := []string{
		filepath.Join(cwd, "python"),
		filepath.Join(cwd, "..", "python"),
	}

	var candidates []string
	for _, venv := range venvs {
		for _, base := range bases {
			candidates = append(candidates, filepath.Join(base, venv))
		}
	}
	return candidates
}

func (l *Locator) scriptCandidates() []string {
	cwd := l.workDir()
	return []string{
		filepath.Join(cwd, "python", bridgeScriptName),
		filepath.Join(cwd, "..", "python", bridgeScriptName),
		filepath.Join(cwd, "..", "..", "python", bridgeScriptName),
	}
}

func (l *Locator) firstExisting(candidates []string) (string, bool) {
	exists := l.exists
	if exists == nil {
		exists = fileExists
	}
	for _, candidate := range candidates {
		if exists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (l *Locator) workDir() string {
	if l.WorkDir != "" {
		return l.WorkDir
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
