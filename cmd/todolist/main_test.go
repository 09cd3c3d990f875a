package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"todolist/model"
)

var (
	buildOnce    sync.Once
	todolistPath string
	buildErr     error
)

// buildTodolist builds the todolist binary once and returns its path.
func buildTodolist(t testing.TB) string {
	t.Helper()

	buildOnce.Do(func() {
		moduleRoot, err := findModuleRoot()
		if err != nil {
			buildErr = err
			return
		}

		binDir, err := os.MkdirTemp("", "todolist-bin-")
		if err != nil {
			buildErr = err
			return
		}

		todolistPath = filepath.Join(binDir, "todolist")
		cmd := exec.Command("go", "build", "-o", todolistPath, "./cmd/todolist")
		cmd.Dir = moduleRoot
		output, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("build todolist: %w: %s", err, strings.TrimSpace(string(output)))
		}
	})

	if buildErr != nil {
		t.Fatalf("%v", buildErr)
	}
	return todolistPath
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
		Setup: func(env *testscript.Env) error {
			env.Setenv("TODOLIST", buildTodolist(t))

			homeDir := filepath.Join(env.WorkDir, "home")
			if err := os.MkdirAll(homeDir, 0o755); err != nil {
				return err
			}
			env.Setenv("HOME", homeDir)
			env.Setenv("TODOLIST_STORE", filepath.Join(env.WorkDir, "store.json"))
			env.Setenv("NO_COLOR", "1")
			return nil
		},
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			"todoid": cmdTodoID,
		},
	})
}

// cmdTodoID finds a todo by title in an export file and stores its ID in
// an env var.
func cmdTodoID(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("todoid does not support negation")
	}
	if len(args) != 3 {
		ts.Fatalf("usage: todoid FILE TITLE VAR")
	}

	var snapshot model.Snapshot
	if err := json.Unmarshal([]byte(ts.ReadFile(args[0])), &snapshot); err != nil {
		ts.Fatalf("parse export: %v", err)
	}
	for _, item := range snapshot.Todos {
		if item.Title == args[1] {
			ts.Setenv(args[2], item.ID)
			return
		}
	}
	ts.Fatalf("todo with title %q not found", args[1])
}

func findModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find module root (go.mod)")
		}
		dir = parent
	}
}
