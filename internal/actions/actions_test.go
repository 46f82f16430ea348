package actions

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpha/internal/dispatch"
	"alpha/pkg/intent"
)

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	calls []call
	err   error
}

func (f *fakeRunner) Start(name string, args ...string) error {
	f.calls = append(f.calls, call{name, args})
	return f.err
}

func (f *fakeRunner) Run(name string, args ...string) error {
	f.calls = append(f.calls, call{name, args})
	return f.err
}

func onLinux(t *testing.T) {
	t.Helper()
	prev := goos
	goos = "linux"
	t.Cleanup(func() { goos = prev })
}

func validated(t *testing.T, action string, params map[string]string) *intent.Intent {
	t.Helper()
	in, err := intent.Validate(intent.Raw{Action: action, Parameters: params}, intent.Default())
	require.NoError(t, err)
	return in
}

func TestRegistryCoversDefaultSchema(t *testing.T) {
	reg := Registry(Config{}, Deps{Runner: &fakeRunner{}})
	_, err := dispatch.New(intent.Default(), reg)
	require.NoError(t, err)
}

func TestOpenWebsiteKnownSite(t *testing.T) {
	onLinux(t)
	r := &fakeRunner{}
	h := openWebsiteHandler(Deps{Runner: r})

	msg, err := h.Execute(validated(t, "open_website", map[string]string{"site": "youtube"}))
	require.NoError(t, err)
	assert.Equal(t, "Opening YouTube", msg)
	require.Len(t, r.calls, 1)
	assert.Equal(t, "xdg-open", r.calls[0].name)
	assert.Equal(t, []string{"https://www.youtube.com"}, r.calls[0].args)
}

func TestOpenWebsiteBareName(t *testing.T) {
	onLinux(t)
	r := &fakeRunner{}
	h := openWebsiteHandler(Deps{Runner: r})

	_, err := h.Execute(validated(t, "open_website", map[string]string{"site": "example"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.example.com"}, r.calls[0].args)
}

func TestOpenWebsiteDomain(t *testing.T) {
	onLinux(t)
	r := &fakeRunner{}
	h := openWebsiteHandler(Deps{Runner: r})

	_, err := h.Execute(validated(t, "open_website", map[string]string{"site": "news.ycombinator.com"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://news.ycombinator.com"}, r.calls[0].args)
}

func TestYoutubePlayEscapesQuery(t *testing.T) {
	onLinux(t)
	r := &fakeRunner{}
	h := youtubePlayHandler(Deps{Runner: r})

	msg, err := h.Execute(validated(t, "youtube_play", map[string]string{
		"song_name": "Bohemian Rhapsody",
		"artist":    "Queen",
	}))
	require.NoError(t, err)
	assert.Equal(t, "Playing Bohemian Rhapsody Queen on YouTube.", msg)
	assert.Contains(t, r.calls[0].args[0], "search_query=Bohemian+Rhapsody+Queen")
}

func TestWebSearchFallsBackToDefaultEngine(t *testing.T) {
	onLinux(t)
	r := &fakeRunner{}
	h := webSearchHandler(Config{DefaultEngine: "duckduckgo"}, Deps{Runner: r})

	msg, err := h.Execute(validated(t, "web_search", map[string]string{"query": "best pizza"}))
	require.NoError(t, err)
	assert.Equal(t, "Searching Duckduckgo for best pizza.", msg)
	assert.Contains(t, r.calls[0].args[0], "duckduckgo.com")
}

func TestOpenApplicationNotFound(t *testing.T) {
	onLinux(t)
	r := &fakeRunner{err: exec.ErrNotFound}
	h := openApplicationHandler(Deps{Runner: r})

	_, err := h.Execute(validated(t, "open_application", map[string]string{"app_name": "ghost"}))

	var f *dispatch.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "app_not_found", f.Kind)
	assert.Contains(t, f.Spoken, "ghost")
}

func TestOpenApplicationAlias(t *testing.T) {
	onLinux(t)
	r := &fakeRunner{}
	h := openApplicationHandler(Deps{Runner: r})

	msg, err := h.Execute(validated(t, "open_application", map[string]string{"app_name": "VS Code"}))
	require.NoError(t, err)
	assert.Equal(t, "Launching VS Code.", msg)
	require.Len(t, r.calls, 1)
	assert.Equal(t, "code", r.calls[0].name)
}

func TestSetVolumeUsesPactl(t *testing.T) {
	onLinux(t)
	r := &fakeRunner{}
	h := setVolumeHandler(Deps{Runner: r})

	msg, err := h.Execute(validated(t, "set_volume", map[string]string{"level": "50"}))
	require.NoError(t, err)
	assert.Equal(t, "Volume set to 50 percent.", msg)
	assert.Equal(t, "pactl", r.calls[0].name)
	assert.Equal(t, []string{"set-sink-volume", "@DEFAULT_SINK@", "50%"}, r.calls[0].args)
}

func TestVolumeControlStep(t *testing.T) {
	onLinux(t)
	r := &fakeRunner{}
	h := volumeControlHandler(Config{VolumeStep: 10}, Deps{Runner: r})

	msg, err := h.Execute(validated(t, "volume_control", map[string]string{"operation": "increase"}))
	require.NoError(t, err)
	assert.Equal(t, "Volume increased by 10 percent.", msg)
	assert.Equal(t, []string{"set-sink-volume", "@DEFAULT_SINK@", "+10%"}, r.calls[0].args)
}

func TestSystemControlLock(t *testing.T) {
	onLinux(t)
	r := &fakeRunner{}
	h := systemControlHandler(Deps{Runner: r})

	msg, err := h.Execute(validated(t, "system_control", map[string]string{"command": "lock"}))
	require.NoError(t, err)
	assert.Equal(t, "System locked.", msg)
	assert.Equal(t, "loginctl", r.calls[0].name)
}

func TestFileIOCreateAppendRead(t *testing.T) {
	dir := t.TempDir()
	h := fileIOHandler(Config{NotesDir: dir})

	_, err := h.Execute(validated(t, "file_io", map[string]string{
		"operation": "create",
		"file_name": "shopping list",
	}))
	require.NoError(t, err)

	msg, err := h.Execute(validated(t, "file_io", map[string]string{
		"operation": "append",
		"file_name": "shopping list",
		"content":   "milk and eggs",
	}))
	require.NoError(t, err)
	assert.Equal(t, "Added milk and eggs to shopping list.", msg)

	msg, err = h.Execute(validated(t, "file_io", map[string]string{
		"operation": "read",
		"file_name": "shopping list.txt",
	}))
	require.NoError(t, err)
	assert.Contains(t, msg, "milk and eggs")

	// .txt default keeps "shopping list" and "shopping list.txt" the same note
	_, err = os.Stat(filepath.Join(dir, "shopping list.txt"))
	require.NoError(t, err)
}

func TestFileIOReadMissing(t *testing.T) {
	h := fileIOHandler(Config{NotesDir: t.TempDir()})

	_, err := h.Execute(validated(t, "file_io", map[string]string{
		"operation": "read",
		"file_name": "nothing here",
	}))

	var f *dispatch.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "file_not_found", f.Kind)
}

func TestFileIORejectsEscape(t *testing.T) {
	h := fileIOHandler(Config{NotesDir: t.TempDir()})

	_, err := h.Execute(validated(t, "file_io", map[string]string{
		"operation": "delete",
		"file_name": "../../etc/passwd",
	}))

	var f *dispatch.Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "bad_path", f.Kind)
}

func TestFileIOList(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))

	h := fileIOHandler(Config{NotesDir: dir})
	msg, err := h.Execute(validated(t, "file_io", map[string]string{
		"operation": "list",
		"file_name": ".",
	}))
	require.NoError(t, err)
	assert.Contains(t, msg, "a.txt")
	assert.NotContains(t, msg, ".hidden")
}

func TestReplyWithoutCapabilitiesReturnsAnswer(t *testing.T) {
	h := replyHandler(Config{}, Deps{})

	msg, err := h.Execute(validated(t, "reply", map[string]string{"answer": "A computer is a machine."}))
	require.NoError(t, err)
	assert.Equal(t, "A computer is a machine.", msg)
}

func TestReplySavesAfterConfirmation(t *testing.T) {
	dir := t.TempDir()
	var spoken []string

	h := replyHandler(
		Config{NotesDir: dir},
		Deps{
			Speak:   func(s string) error { spoken = append(spoken, s); return nil },
			Confirm: func(string) (bool, error) { return true, nil },
			Now:     func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) },
		},
	)

	msg, err := h.Execute(validated(t, "reply", map[string]string{"answer": "42"}))
	require.NoError(t, err)
	assert.Equal(t, "Saved the response.", msg)
	assert.Equal(t, []string{"42"}, spoken)

	data, err := os.ReadFile(filepath.Join(dir, "responses.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Saved: 2026-08-30 12:00:00")
	assert.Contains(t, string(data), "42")
}

func TestReplyDeclinedSave(t *testing.T) {
	dir := t.TempDir()
	h := replyHandler(
		Config{NotesDir: dir},
		Deps{
			Speak:   func(string) error { return nil },
			Confirm: func(string) (bool, error) { return false, nil },
		},
	)

	msg, err := h.Execute(validated(t, "reply", map[string]string{"answer": "42"}))
	require.NoError(t, err)
	assert.Equal(t, "Okay, I won't save it.", msg)

	_, statErr := os.Stat(filepath.Join(dir, "responses.txt"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}
