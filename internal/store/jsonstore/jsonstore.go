package jsonstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"

	"github.com/idilsaglam/tada/internal/model"
)

// JSON todo files. Single file, human-readable, portable.
// Used to seed a server and to export a snapshot from the client;
// the server never writes one back.

const dataFileName = "todos.json"

// DefaultPath is todos.json in the working directory.
func DefaultPath() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}
	return filepath.Join(wd, dataFileName), nil
}

// Load reads a JSON array of todos. A missing file is an empty list.
func Load(path string) ([]model.Todo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Todo{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	var todos []model.Todo
	if err := sonic.ConfigStd.Unmarshal(b, &todos); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	return todos, nil
}

// Save writes todos as an indented JSON array.
func Save(path string, todos []model.Todo) error {
	if todos == nil {
		todos = []model.Todo{}
	}
	b, err := sonic.ConfigStd.MarshalIndent(todos, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}
