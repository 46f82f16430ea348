// Package actions implements the handler capabilities behind each schema
// action: browser navigation, application lifecycle, volume, power, window
// and note-file operations. Everything external goes through Runner so tests
// can substitute the process table.
package actions

import (
	"os/exec"
	"runtime"
	"strings"
	"time"

	"alpha/internal/dispatch"
)

type Config struct {
	// DefaultEngine backs web_search when the classifier names no engine.
	DefaultEngine string
	// VolumeStep is the percentage applied by increase/decrease.
	VolumeStep int
	// NotesDir confines file_io and saved replies.
	NotesDir string
}

// Deps are the collaborator capabilities handlers may use. Speak and Confirm
// are optional; the reply handler degrades gracefully without them.
type Deps struct {
	Runner  Runner
	Speak   func(text string) error
	Confirm func(prompt string) (bool, error)
	Now     func() time.Time
}

// Runner launches external commands. Start is fire-and-forget (apps,
// browsers); Run waits and reports failure.
type Runner interface {
	Start(name string, args ...string) error
	Run(name string, args ...string) error
}

type execRunner struct{}

func (execRunner) Start(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

func (execRunner) Run(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// Registry builds the complete handler table for the default schema. The
// dispatcher cross-checks it against the schema at boot.
func Registry(cfg Config, deps Deps) map[string]dispatch.Handler {
	if deps.Runner == nil {
		deps.Runner = execRunner{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.DefaultEngine == "" {
		cfg.DefaultEngine = "google"
	}
	if cfg.VolumeStep <= 0 {
		cfg.VolumeStep = 10
	}

	return map[string]dispatch.Handler{
		"reply":             replyHandler(cfg, deps),
		"open_website":      openWebsiteHandler(deps),
		"open_application":  openApplicationHandler(deps),
		"close_application": closeApplicationHandler(deps),
		"youtube_search":    youtubeSearchHandler(deps),
		"youtube_play":      youtubePlayHandler(deps),
		"web_search":        webSearchHandler(cfg, deps),
		"set_volume":        setVolumeHandler(deps),
		"volume_control":    volumeControlHandler(cfg, deps),
		"system_control":    systemControlHandler(deps),
		"window_control":    windowControlHandler(deps),
		"file_io":           fileIOHandler(cfg),
	}
}

func fail(kind, spoken string, err error) error {
	return &dispatch.Failure{Kind: kind, Spoken: spoken, Err: err}
}

// titleWords capitalizes each word for confirmation phrases
// ("youtube" -> "Youtube", "visual studio code" -> "Visual Studio Code").
func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

var goos = runtime.GOOS
