package actions

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"alpha/internal/dispatch"
	"alpha/pkg/intent"
)

// fileIOHandler serves the notes/lists actions. All paths are confined to
// cfg.NotesDir; note-like names default to a .txt extension so "shopping
// list" and "shopping list.txt" are the same note.
func fileIOHandler(cfg Config) dispatch.Handler {
	return dispatch.HandlerFunc(func(in *intent.Intent) (string, error) {
		op := in.String("operation")
		name := in.String("file_name")
		content := in.String("content")

		path, err := notePath(cfg.NotesDir, name, op)
		if err != nil {
			return "", fail("bad_path",
				fmt.Sprintf("I can't use %s as a file name.", name), err)
		}

		switch op {
		case "create":
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return "", ioFail(op, name, err)
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return "", ioFail(op, name, err)
			}
			return fmt.Sprintf("Created %s.", name), nil

		case "append":
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return "", ioFail(op, name, err)
			}
			f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				return "", ioFail(op, name, err)
			}
			defer f.Close()
			if _, err := f.WriteString(content + "\n"); err != nil {
				return "", ioFail(op, name, err)
			}
			return fmt.Sprintf("Added %s to %s.", content, name), nil

		case "read":
			data, err := os.ReadFile(path)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return "", fail("file_not_found",
						fmt.Sprintf("I couldn't find %s.", name), err)
				}
				return "", ioFail(op, name, err)
			}
			text := strings.TrimSpace(string(data))
			if text == "" {
				return fmt.Sprintf("%s is empty.", name), nil
			}
			return fmt.Sprintf("%s says: %s", name, truncate(text, 200)), nil

		case "delete":
			if err := os.Remove(path); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return "", fail("file_not_found",
						fmt.Sprintf("I couldn't find %s.", name), err)
				}
				return "", ioFail(op, name, err)
			}
			return fmt.Sprintf("Deleted %s.", name), nil

		case "list":
			entries, err := os.ReadDir(path)
			if err != nil {
				return "", fail("file_not_found",
					fmt.Sprintf("I couldn't list %s.", name), err)
			}
			var names []string
			for _, e := range entries {
				if strings.HasPrefix(e.Name(), ".") {
					continue
				}
				names = append(names, e.Name())
			}
			if len(names) == 0 {
				return fmt.Sprintf("%s is empty.", name), nil
			}
			return fmt.Sprintf("%s contains: %s.", name, strings.Join(names, ", ")), nil
		}

		return "", fail("unsupported_operation",
			fmt.Sprintf("The file operation %s is not supported.", op),
			fmt.Errorf("operation %q", op))
	})
}

// notePath resolves name inside root and refuses escapes. File operations
// without an extension get .txt; list keeps the name as a directory.
func notePath(root, name, op string) (string, error) {
	if root == "" {
		root = "."
	}
	clean := filepath.Clean(strings.TrimSpace(name))
	if clean == "" || clean == "." && op != "list" {
		return "", fmt.Errorf("empty name")
	}
	if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("path escapes notes directory: %q", name)
	}

	if op != "list" && filepath.Ext(clean) == "" {
		clean += ".txt"
	}
	return filepath.Join(root, clean), nil
}

func ioFail(op, name string, err error) error {
	return fail("file_io_failed",
		fmt.Sprintf("Something went wrong trying to %s %s.", op, name), err)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
