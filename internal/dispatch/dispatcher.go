package dispatch

import (
	"errors"
	"fmt"
	"sort"

	log "log/slog"

	"alpha/pkg/intent"
	"alpha/pkg/util"
)

// Handler performs the external effect for one action type. It returns the
// spoken confirmation on success.
type Handler interface {
	Execute(in *intent.Intent) (string, error)
}

type HandlerFunc func(in *intent.Intent) (string, error)

func (f HandlerFunc) Execute(in *intent.Intent) (string, error) { return f(in) }

// Failure is a handler error with a stable machine kind and a phrase suitable
// for speech feedback.
type Failure struct {
	Kind   string
	Spoken string
	Err    error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

const (
	// KindHandler covers action execution errors that carry no finer kind.
	KindHandler = "handler_failure"
	// KindInternal marks a schema/handler desync or a handler panic. It
	// indicates a defect, not a user mistake.
	KindInternal = "internal"
)

// Result is the uniform outcome of one dispatch. ErrorKind is set only when
// OK is false.
type Result struct {
	OK        bool
	Message   string
	ErrorKind string
}

// Dispatcher maps validated intents to their handlers. The table is built
// once at startup and read-only afterwards, so a substitute handler set can
// be injected for tests.
type Dispatcher struct {
	handlers map[string]Handler
}

// New refuses to construct a dispatcher whose handler table disagrees with
// the schema. Catching the drift here turns a latent wrong-action hazard into
// a boot failure.
func New(schema *intent.Schema, handlers map[string]Handler) (*Dispatcher, error) {
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)

	if want := schema.Names(); !util.SameMembers(want, names) {
		return nil, fmt.Errorf(
			"handler table out of sync with schema: missing %v, extra %v",
			util.Missing(want, names), util.Missing(names, want),
		)
	}

	return &Dispatcher{handlers: handlers}, nil
}

// Dispatch runs the handler for in exactly once. Handler failures are caught
// and converted into a Result; they must never abort the session loop. No
// automatic retries: most actions are not safely idempotent.
func (d *Dispatcher) Dispatch(in *intent.Intent) (res Result) {
	handler, ok := d.handlers[in.Action()]
	if !ok {
		// Validation guarantees schema membership, so this can only mean the
		// table drifted after boot. Log as a defect, abort the turn.
		log.Error("no handler for validated action, table desync", "action", in.Action())
		return Result{
			OK:        false,
			Message:   "Something went wrong on my side.",
			ErrorKind: KindInternal,
		}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("handler panicked", "action", in.Action(), "panic", r)
			res = Result{
				OK:        false,
				Message:   "Something went wrong on my side.",
				ErrorKind: KindInternal,
			}
		}
	}()

	msg, err := handler.Execute(in)
	if err != nil {
		var f *Failure
		if errors.As(err, &f) {
			log.Warn("action failed", "action", in.Action(), "kind", f.Kind, "err", f.Err)
			return Result{OK: false, Message: f.Spoken, ErrorKind: f.Kind}
		}
		log.Warn("action failed", "action", in.Action(), "err", err)
		return Result{
			OK:        false,
			Message:   "Sorry, I couldn't do that.",
			ErrorKind: KindHandler,
		}
	}

	return Result{OK: true, Message: msg}
}
