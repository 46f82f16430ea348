package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"alpha/internal/actions"
	"alpha/internal/audio"
	"alpha/internal/config"
	"alpha/internal/dispatch"
	"alpha/internal/ipc"
	"alpha/internal/nlu"
	"alpha/internal/notify"
	"alpha/internal/proxy"
	"alpha/internal/session"
	"alpha/internal/status"
	"alpha/internal/tts"
	"alpha/internal/voice"
	"alpha/pkg/audioconv"
	"alpha/pkg/intent"
	"alpha/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	proxyAddr := cli.StringP("proxy", "p", "", "SOCKS proxy address (overrides env)")
	inputFile := cli.StringP("input", "i", "", "Run one turn against a recorded audio file instead of the microphone")
	schemaPath := cli.StringP("schema", "s", "", "Action schema YAML (overrides env; empty uses the builtin catalogue)")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)
	cfg := config.FromEnv()
	if *proxyAddr != "" {
		cfg.SocksProxy = *proxyAddr
	}
	if *schemaPath != "" {
		cfg.SchemaPath = *schemaPath
	}

	if cfg.APIKey == "" {
		log.Error("OPENAI_API_KEY not set")
		os.Exit(1)
	}

	schema := intent.Default()
	if cfg.SchemaPath != "" {
		var err error
		schema, err = intent.LoadFile(cfg.SchemaPath)
		if err != nil {
			log.Error("Failed to load action schema", "path", cfg.SchemaPath, "err", err)
			os.Exit(1)
		}
	}
	log.Debug("Loaded action schema", "actions", len(schema.Names()))

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.SocksProxy != "" {
		httpClient, err := proxy.NewSocksClient(cfg.SocksProxy)
		if err != nil {
			log.Error("Failed to dial socks proxy", "proxy", cfg.SocksProxy, "err", err)
			os.Exit(1)
		}
		opts = append(opts, option.WithHTTPClient(httpClient))
		log.Debug("Loaded proxy")
	}
	api := openai.NewClient(opts...)

	classifier := nlu.New(api, cfg.Model, schema, nlu.WithTimeout(cfg.NLUTimeout))
	speaker := tts.NewEngine(cfg.Language, cfg.SpeechRate)

	whisper, err := stt.NewTranscriber(cfg.ModelPath)
	if err != nil {
		log.Error("Failed to init whisper", "err", err)
		os.Exit(1)
	}
	defer whisper.Close()
	log.Debug("Loaded whisper", "model", cfg.ModelPath)

	tr := &transcriber{tr: whisper, lang: cfg.Language}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *inputFile != "" {
		runFileTurn(ctx, cfg, schema, classifier, speaker, tr, *inputFile)
		return
	}

	rec := audio.NewRecorder()
	if err := rec.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer rec.Close()
	log.Debug("Loaded recorder")

	ducker := audio.NewDucker([]string{"alpha", "espeak"}, 10)
	listener := voice.NewListener(rec, tr, voice.Options{
		WakeWord: cfg.WakeWord,
		Ducker:   ducker,
	})

	handlers := actions.Registry(actions.Config{
		DefaultEngine: cfg.DefaultEngine,
		VolumeStep:    cfg.VolumeStep,
		NotesDir:      cfg.NotesDir,
	}, actions.Deps{
		Speak: speaker.Say,
		Confirm: func(prompt string) (bool, error) {
			if err := speaker.Say(prompt); err != nil {
				return false, err
			}
			return listener.Affirmed(ctx)
		},
	})

	disp, err := dispatch.New(schema, handlers)
	if err != nil {
		log.Error("Handler table does not match schema", "err", err)
		os.Exit(1)
	}

	hub := status.NewHub()
	go hub.Run()
	go serveStatus(cfg.StatusAddr, hub)

	loop := session.New(session.Config{
		ListeningPrompt: cfg.ListeningPrompt,
		Reprompt:        cfg.Reprompt,
	}, listener, speaker, classifier, schema, disp)
	loop.Events(hub.Publish)
	loop.OnWake(func() {
		if err := notify.Chime(cfg.ChimePath); err != nil {
			log.Debug("chime unavailable", "err", err)
		}
		if err := notify.Desktop("Alpha", "Listening..."); err != nil {
			log.Debug("desktop notification unavailable", "err", err)
		}
	})

	if err := ipc.StartServer(func(msg ipc.ControlMessage) {
		switch msg.Cmd {
		case ipc.CmdTrigger:
			listener.Trigger()
		case ipc.CmdStop:
			cancel()
		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
		}
	}); err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}

	log.Info("Boot up - successful", "wake_word", cfg.WakeWord)

	if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("Session loop stopped", "err", err)
		os.Exit(1)
	}
	log.Info("Shutting down")
}

// runFileTurn transcribes a recorded utterance and pushes it through a single
// turn. Useful for testing the pipeline without a microphone.
func runFileTurn(ctx context.Context, cfg config.Config, schema *intent.Schema,
	classifier *nlu.Client, speaker *tts.Engine, tr *transcriber, path string) {

	pcm, err := audioconv.ConvertFileToPCM16k(path)
	if err != nil {
		log.Error("Failed to decode input audio", "path", path, "err", err)
		os.Exit(1)
	}

	text, err := tr.Transcribe(ctx, pcm)
	if err != nil {
		log.Error("Failed to transcribe input audio", "err", err)
		os.Exit(1)
	}
	log.Info("Transcribed input file", "text", text)

	handlers := actions.Registry(actions.Config{
		DefaultEngine: cfg.DefaultEngine,
		VolumeStep:    cfg.VolumeStep,
		NotesDir:      cfg.NotesDir,
	}, actions.Deps{})

	disp, err := dispatch.New(schema, handlers)
	if err != nil {
		log.Error("Handler table does not match schema", "err", err)
		os.Exit(1)
	}

	loop := session.New(session.Config{Reprompt: false},
		voice.NewFileListener(text), speaker, classifier, schema, disp)
	if err := loop.Turn(ctx); err != nil {
		log.Error("Turn failed", "err", err)
		os.Exit(1)
	}
}

// transcriber adapts the whisper wrapper to the single-method interface the
// listener wants.
type transcriber struct {
	tr   *stt.Transcriber
	lang string
}

func (t *transcriber) Transcribe(ctx context.Context, pcm []float32) (string, error) {
	res, err := t.tr.TranscribePCM(ctx, pcm, stt.Options{Language: t.lang})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func serveStatus(addr string, hub *status.Hub) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("Status server stopped", "addr", addr, "err", err)
	}
}
