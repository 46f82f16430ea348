package actions

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "log/slog"

	"alpha/internal/dispatch"
	"alpha/pkg/intent"
)

// replyHandler speaks a knowledge answer and offers to save it. When no
// speech or confirmation capability is wired, the answer simply becomes the
// turn's feedback message.
func replyHandler(cfg Config, deps Deps) dispatch.Handler {
	return dispatch.HandlerFunc(func(in *intent.Intent) (string, error) {
		answer := in.String("answer")

		if deps.Speak == nil || deps.Confirm == nil {
			return answer, nil
		}

		if err := deps.Speak(answer); err != nil {
			return "", fail("speech_failed", "", err)
		}

		yes, err := deps.Confirm("Would you like me to save this response for later?")
		if err != nil {
			log.Debug("save confirmation failed", "err", err)
			return "Okay.", nil
		}
		if !yes {
			return "Okay, I won't save it.", nil
		}

		if err := saveReply(cfg, deps, answer); err != nil {
			log.Error("failed to save reply", "err", err)
			return "", fail("save_failed", "Sorry, I couldn't save the response.", err)
		}
		return "Saved the response.", nil
	})
}

func saveReply(cfg Config, deps Deps, answer string) error {
	dir := cfg.NotesDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	path := filepath.Join(dir, "responses.txt")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	entry := strings.Join([]string{
		strings.Repeat("=", 60),
		"Saved: " + deps.Now().Format("2006-01-02 15:04:05"),
		strings.Repeat("-", 60),
		strings.TrimSpace(answer),
		"",
	}, "\n")

	if _, err := f.WriteString(entry + "\n"); err != nil {
		return fmt.Errorf("write responses file: %w", err)
	}
	return nil
}
