package actions

import (
	"fmt"
	"net/url"
	"strings"

	"alpha/internal/dispatch"
	"alpha/pkg/intent"
)

type site struct {
	URL   string
	Label string
}

// knownSites maps the short names the classifier is likely to emit. Anything
// else is treated as a host.
var knownSites = map[string]site{
	"youtube":       {"https://www.youtube.com", "YouTube"},
	"google":        {"https://www.google.com", "Google"},
	"facebook":      {"https://www.facebook.com", "Facebook"},
	"twitter":       {"https://twitter.com", "Twitter"},
	"instagram":     {"https://www.instagram.com", "Instagram"},
	"reddit":        {"https://www.reddit.com", "Reddit"},
	"wikipedia":     {"https://www.wikipedia.org", "Wikipedia"},
	"github":        {"https://github.com", "GitHub"},
	"gmail":         {"https://mail.google.com", "Gmail"},
	"stackoverflow": {"https://stackoverflow.com", "Stack Overflow"},
}

func resolveSite(raw string) site {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.TrimPrefix(key, "www.")
	if s, ok := knownSites[strings.TrimSuffix(key, ".com")]; ok {
		return s
	}

	addr := strings.TrimSpace(raw)
	if !strings.HasPrefix(addr, "http://") && !strings.HasPrefix(addr, "https://") {
		if strings.Contains(addr, ".") {
			addr = "https://" + addr
		} else {
			addr = "https://www." + strings.ReplaceAll(addr, " ", "") + ".com"
		}
	}
	return site{URL: addr, Label: titleWords(key)}
}

// openURL hands the URL to the platform browser launcher.
func openURL(r Runner, target string) error {
	switch goos {
	case "windows":
		return r.Start("rundll32", "url.dll,FileProtocolHandler", target)
	case "darwin":
		return r.Start("open", target)
	default:
		return r.Start("xdg-open", target)
	}
}

func browseFail(err error) error {
	return fail("browser_failed", "Sorry, I couldn't open the browser.", err)
}

func openWebsiteHandler(deps Deps) dispatch.Handler {
	return dispatch.HandlerFunc(func(in *intent.Intent) (string, error) {
		s := resolveSite(in.String("site"))
		if err := openURL(deps.Runner, s.URL); err != nil {
			return "", browseFail(err)
		}
		return "Opening " + s.Label, nil
	})
}

func youtubeSearchHandler(deps Deps) dispatch.Handler {
	return dispatch.HandlerFunc(func(in *intent.Intent) (string, error) {
		query := in.String("query")
		target := "https://www.youtube.com/results?search_query=" + url.QueryEscape(query)
		if err := openURL(deps.Runner, target); err != nil {
			return "", browseFail(err)
		}
		return fmt.Sprintf("Searching YouTube for %s.", query), nil
	})
}

func youtubePlayHandler(deps Deps) dispatch.Handler {
	return dispatch.HandlerFunc(func(in *intent.Intent) (string, error) {
		query := in.String("song_name")
		if artist := in.String("artist"); artist != "" {
			query += " " + artist
		}
		target := "https://www.youtube.com/results?search_query=" + url.QueryEscape(query)
		if err := openURL(deps.Runner, target); err != nil {
			return "", browseFail(err)
		}
		return fmt.Sprintf("Playing %s on YouTube.", query), nil
	})
}

var searchEngines = map[string]string{
	"google":     "https://www.google.com/search?q=",
	"duckduckgo": "https://duckduckgo.com/?q=",
	"bing":       "https://www.bing.com/search?q=",
}

func webSearchHandler(cfg Config, deps Deps) dispatch.Handler {
	return dispatch.HandlerFunc(func(in *intent.Intent) (string, error) {
		engine := in.String("engine")
		if engine == "" {
			engine = cfg.DefaultEngine
		}
		base, ok := searchEngines[engine]
		if !ok {
			base = searchEngines["google"]
			engine = "google"
		}

		query := in.String("query")
		if err := openURL(deps.Runner, base+url.QueryEscape(query)); err != nil {
			return "", browseFail(err)
		}
		return fmt.Sprintf("Searching %s for %s.", titleWords(engine), query), nil
	})
}
