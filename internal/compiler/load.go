package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/appcore/internal/ir"
)

// AppField is the top-level CUE field holding the app definition.
const AppField = "app"

// LoadDirError reports why a directory could not be turned into a CUE value.
// Definition problems inside a well-formed value are CompileErrors instead.
type LoadDirError struct {
	Stage   string // "stat", "scan", "load", "build"
	Dir     string
	Message string
	Err     error
}

func (e *LoadDirError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Stage, e.Dir, e.Message)
}

func (e *LoadDirError) Unwrap() error {
	return e.Err
}

// ErrorName identifies the error kind for reporting.
func (e *LoadDirError) ErrorName() string {
	return "LoadError"
}

// LoadDir reads every .cue file of dir as one CUE instance and loads its
// `app` field through LoadApp. It returns the number of files read.
func LoadDir(dir string, reg *Registry) (*ir.AppDefinition, int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, 0, &LoadDirError{Stage: "stat", Dir: dir, Message: "app directory not found", Err: err}
	}
	if !info.IsDir() {
		return nil, 0, &LoadDirError{Stage: "stat", Dir: dir, Message: "not a directory"}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, 0, &LoadDirError{Stage: "scan", Dir: dir, Message: err.Error(), Err: err}
	}
	if len(files) == 0 {
		return nil, 0, &LoadDirError{Stage: "scan", Dir: dir, Message: "no CUE files found"}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, len(files), &LoadDirError{Stage: "load", Dir: dir, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, len(files), &LoadDirError{Stage: "load", Dir: dir, Message: inst.Err.Error(), Err: inst.Err}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, len(files), formatCUEError(err)
	}

	appVal := value.LookupPath(cue.MakePath(cue.Str(AppField)))
	if !appVal.Exists() {
		return nil, len(files), &CompileError{Field: AppField, Message: "no app definition found"}
	}

	app, err := LoadApp(appVal, reg)
	if err != nil {
		return nil, len(files), err
	}
	return app, len(files), nil
}

// FindCUEFiles returns the .cue files directly inside dir, sorted by name.
// Subdirectories are separate CUE packages and are not included.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
