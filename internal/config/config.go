// Package config collects the daemon's environment-driven settings in one
// place. Values come from the process environment; the daemon loads a .env
// file first so users can keep everything in one file.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	WakeWord        string
	ListeningPrompt string
	Language        string
	SpeechRate      int

	APIKey     string
	Model      string
	NLUTimeout time.Duration
	SocksProxy string

	DefaultEngine string
	VolumeStep    int
	NotesDir      string

	SchemaPath string
	ModelPath  string
	ChimePath  string
	StatusAddr string

	Reprompt bool
}

// FromEnv reads the configuration from the environment, filling defaults for
// anything unset. The API key is the only value with no default; callers
// decide whether its absence is fatal.
func FromEnv() Config {
	return Config{
		WakeWord:        getStr("ALPHA_WAKE_WORD", "alpha"),
		ListeningPrompt: getStr("ALPHA_LISTENING_PROMPT", "Yes?"),
		Language:        getStr("ALPHA_LANGUAGE", "en"),
		SpeechRate:      getInt("ALPHA_SPEECH_RATE", 200),

		APIKey:     os.Getenv("OPENAI_API_KEY"),
		Model:      getStr("ALPHA_MODEL", "gpt-4o-mini"),
		NLUTimeout: getDur("ALPHA_NLU_TIMEOUT", 15*time.Second),
		SocksProxy: os.Getenv("ALPHA_SOCKS_PROXY"),

		DefaultEngine: getStr("ALPHA_DEFAULT_WEB_ENGINE", "google"),
		VolumeStep:    getInt("ALPHA_VOLUME_STEP", 10),
		NotesDir:      getStr("ALPHA_NOTES_DIR", defaultNotesDir()),

		SchemaPath: os.Getenv("ALPHA_SCHEMA_PATH"),
		ModelPath:  getStr("ALPHA_WHISPER_MODEL", "models/ggml-base.en.bin"),
		ChimePath:  getStr("ALPHA_CHIME", "assets/chime.mp3"),
		StatusAddr: getStr("ALPHA_STATUS_ADDR", "127.0.0.1:8765"),

		Reprompt: getBool("ALPHA_REPROMPT", true),
	}
}

func defaultNotesDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "notes"
	}
	return home + "/alpha-notes"
}

func getStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
