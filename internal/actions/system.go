package actions

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"alpha/internal/dispatch"
	"alpha/pkg/intent"
)

// appAliases normalizes spoken application names to executables.
var appAliases = map[string]string{
	"vscode":             "code",
	"visual studio code": "code",
	"chrome":             "google-chrome",
	"calculator":         "gnome-calculator",
	"files":              "nautilus",
	"terminal":           "gnome-terminal",
}

func resolveApp(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if cmd, ok := appAliases[key]; ok {
		return cmd
	}
	key = strings.ReplaceAll(key, " ", "")
	if cmd, ok := appAliases[key]; ok {
		return cmd
	}
	return key
}

func openApplicationHandler(deps Deps) dispatch.Handler {
	return dispatch.HandlerFunc(func(in *intent.Intent) (string, error) {
		name := in.String("app_name")
		cmd := resolveApp(name)

		var err error
		switch goos {
		case "windows":
			err = deps.Runner.Start("cmd", "/c", "start", "", cmd)
		case "darwin":
			err = deps.Runner.Start("open", "-a", cmd)
		default:
			err = deps.Runner.Start(cmd)
		}
		if err != nil {
			spoken := fmt.Sprintf("Sorry, I couldn't find the application %s.", name)
			if errors.Is(err, exec.ErrNotFound) {
				return "", fail("app_not_found", spoken, err)
			}
			return "", fail("app_launch_failed", spoken, err)
		}
		return fmt.Sprintf("Launching %s.", name), nil
	})
}

func closeApplicationHandler(deps Deps) dispatch.Handler {
	return dispatch.HandlerFunc(func(in *intent.Intent) (string, error) {
		name := in.String("app_name")
		cmd := resolveApp(name)

		var err error
		switch goos {
		case "windows":
			err = deps.Runner.Run("taskkill", "/F", "/IM", cmd+".exe")
		case "darwin":
			err = deps.Runner.Run("osascript", "-e", fmt.Sprintf("quit app %q", cmd))
		default:
			err = deps.Runner.Run("pkill", "-f", cmd)
		}
		if err != nil {
			return "", fail("app_close_failed",
				fmt.Sprintf("Sorry, I couldn't close %s, it may not be running.", name), err)
		}
		return fmt.Sprintf("%s closed.", titleWords(name)), nil
	})
}

func systemControlHandler(deps Deps) dispatch.Handler {
	type cmdline []string

	// per-OS command tables; validation already constrained the verb.
	table := map[string]map[string]cmdline{
		"linux": {
			"shutdown": {"systemctl", "poweroff"},
			"restart":  {"systemctl", "reboot"},
			"sleep":    {"systemctl", "suspend"},
			"lock":     {"loginctl", "lock-session"},
		},
		"darwin": {
			"shutdown": {"shutdown", "-h", "now"},
			"restart":  {"shutdown", "-r", "now"},
			"sleep":    {"pmset", "sleepnow"},
			"lock":     {"pmset", "displaysleepnow"},
		},
		"windows": {
			"shutdown": {"shutdown", "/s", "/t", "1"},
			"restart":  {"shutdown", "/r", "/t", "1"},
			"lock":     {"rundll32.exe", "user32.dll,LockWorkStation"},
		},
	}

	spoken := map[string]string{
		"shutdown": "Shutting down.",
		"restart":  "Restarting.",
		"sleep":    "Going to sleep.",
		"lock":     "System locked.",
	}

	return dispatch.HandlerFunc(func(in *intent.Intent) (string, error) {
		verb := in.String("command")

		cmds, ok := table[goos]
		if !ok {
			cmds = table["linux"]
		}
		cmd, ok := cmds[verb]
		if !ok {
			return "", fail("unsupported_on_os",
				fmt.Sprintf("I can't %s this system.", verb),
				fmt.Errorf("%s unsupported on %s", verb, goos))
		}

		if err := deps.Runner.Run(cmd[0], cmd[1:]...); err != nil {
			return "", fail("system_control_failed",
				fmt.Sprintf("Sorry, the %s command failed.", verb), err)
		}
		return spoken[verb], nil
	})
}

func setVolumeHandler(deps Deps) dispatch.Handler {
	return dispatch.HandlerFunc(func(in *intent.Intent) (string, error) {
		level := in.Int("level")

		var err error
		switch goos {
		case "darwin":
			err = deps.Runner.Run("osascript", "-e", fmt.Sprintf("set volume output volume %d", level))
		case "windows":
			err = fail("unsupported_on_os", "I can't control the volume on this system.",
				errors.New("volume control unsupported on windows"))
		default:
			err = deps.Runner.Run("pactl", "set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("%d%%", level))
		}
		if err != nil {
			var f *dispatch.Failure
			if errors.As(err, &f) {
				return "", err
			}
			return "", fail("volume_failed", "Sorry, I couldn't change the volume.", err)
		}
		return fmt.Sprintf("Volume set to %d percent.", level), nil
	})
}

func volumeControlHandler(cfg Config, deps Deps) dispatch.Handler {
	return dispatch.HandlerFunc(func(in *intent.Intent) (string, error) {
		op := in.String("operation")

		var err error
		var msg string
		switch goos {
		case "darwin":
			script := map[string]string{
				"increase": fmt.Sprintf("set volume output volume ((output volume of (get volume settings)) + %d)", cfg.VolumeStep),
				"decrease": fmt.Sprintf("set volume output volume ((output volume of (get volume settings)) - %d)", cfg.VolumeStep),
				"mute":     "set volume with output muted",
				"unmute":   "set volume without output muted",
			}[op]
			err = deps.Runner.Run("osascript", "-e", script)
		case "windows":
			return "", fail("unsupported_on_os", "I can't control the volume on this system.",
				errors.New("volume control unsupported on windows"))
		default:
			switch op {
			case "increase":
				err = deps.Runner.Run("pactl", "set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("+%d%%", cfg.VolumeStep))
			case "decrease":
				err = deps.Runner.Run("pactl", "set-sink-volume", "@DEFAULT_SINK@", fmt.Sprintf("-%d%%", cfg.VolumeStep))
			case "mute":
				err = deps.Runner.Run("pactl", "set-sink-mute", "@DEFAULT_SINK@", "1")
			case "unmute":
				err = deps.Runner.Run("pactl", "set-sink-mute", "@DEFAULT_SINK@", "0")
			}
		}
		if err != nil {
			return "", fail("volume_failed", "Sorry, I couldn't change the volume.", err)
		}

		switch op {
		case "increase":
			msg = fmt.Sprintf("Volume increased by %d percent.", cfg.VolumeStep)
		case "decrease":
			msg = fmt.Sprintf("Volume decreased by %d percent.", cfg.VolumeStep)
		case "mute":
			msg = "Muted."
		case "unmute":
			msg = "Unmuted."
		}
		return msg, nil
	})
}

func windowControlHandler(deps Deps) dispatch.Handler {
	return dispatch.HandlerFunc(func(in *intent.Intent) (string, error) {
		verb := in.String("command")

		var err error
		switch goos {
		case "darwin":
			if verb == "minimize" {
				err = deps.Runner.Run("osascript", "-e",
					`tell application "System Events" to keystroke "m" using command down`)
			} else {
				return "", fail("unsupported_on_os", "I can't maximize windows on this system.",
					errors.New("maximize unsupported on darwin"))
			}
		case "windows":
			return "", fail("unsupported_on_os", "I can't control windows on this system.",
				errors.New("window control unsupported on windows"))
		default:
			if verb == "minimize" {
				err = deps.Runner.Run("xdotool", "getactivewindow", "windowminimize")
			} else {
				err = deps.Runner.Run("wmctrl", "-r", ":ACTIVE:", "-b", "add,maximized_vert,maximized_horz")
			}
		}
		if err != nil {
			return "", fail("window_control_failed",
				"I had trouble controlling the window.", err)
		}
		return fmt.Sprintf("Window %sd.", verb), nil
	})
}
