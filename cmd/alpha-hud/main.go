// alpha-hud tails the daemon's status socket and renders session events in
// the terminal.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	ws "github.com/gorilla/websocket"
	cli "github.com/spf13/pflag"

	"alpha/internal/session"
)

var (
	stateStyles = map[string]lipgloss.Style{
		"idle":       lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		"listening":  lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		"processing": lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true),
		"feedback":   lipgloss.NewStyle().Foreground(lipgloss.Color("135")).Bold(true),
	}
	utteranceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Italic(true)
	okStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	timeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func main() {
	addr := cli.StringP("addr", "a", "127.0.0.1:8765", "Daemon status address")
	reconn := cli.UintP("reconnect", "r", 2, "Reconnect interval in seconds")
	cli.Parse()

	url := "ws://" + *addr + "/ws"
	fmt.Println(timeStyle.Render("connecting to " + url))

	for {
		conn, _, err := ws.DefaultDialer.Dial(url, nil)
		if err != nil {
			time.Sleep(time.Duration(*reconn) * time.Second)
			continue
		}

		follow(conn)
		conn.Close()

		fmt.Println(timeStyle.Render("connection lost, retrying"))
		time.Sleep(time.Duration(*reconn) * time.Second)
	}
}

func follow(conn *ws.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ws.IsCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				os.Exit(0)
			}
			return
		}

		var ev session.Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			continue
		}
		render(ev)
	}
}

func render(ev session.Event) {
	ts := timeStyle.Render(ev.At.Format("15:04:05"))

	switch ev.Kind {
	case "state":
		style, ok := stateStyles[ev.State]
		if !ok {
			style = stateStyles["idle"]
		}
		fmt.Printf("%s  %s\n", ts, style.Render("● "+ev.State))
	case "utterance":
		fmt.Printf("%s  %s %s\n", ts, utteranceStyle.Render("you:"), utteranceStyle.Render(ev.Text))
	case "result":
		style := failStyle
		mark := "✗"
		if ev.OK {
			style = okStyle
			mark = "✓"
		}
		fmt.Printf("%s  %s %s\n", ts, style.Render(mark), ev.Text)
	}
}
