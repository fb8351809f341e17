// Package tools binds every known tool name to a typed handler and runs them
// for the assistant. Handlers report failures as errors; the Invoker is the
// only place those errors become text.
package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/emo/internal/models"
	"github.com/xaenox/emo/internal/session"
)

const (
	errorLimit   = 100
	previewLimit = 300
)

// Call is what a handler receives: the conversation it runs in and its
// arguments.
type Call struct {
	Session *session.Session
	Args    models.Args
}

type Handler func(ctx context.Context, call Call) (string, error)

// Middleware wraps the handler of one tool.
type Middleware func(name models.ToolName, next Handler) Handler

type Spec struct {
	Name        models.ToolName
	Description string
	Params      []string
	Handler     Handler
}

// Registry is filled once at startup and only read afterwards.
type Registry struct {
	specs map[models.ToolName]Spec
}

func NewRegistry() *Registry {
	return &Registry{specs: make(map[models.ToolName]Spec)}
}

func (r *Registry) Register(spec Spec) error {
	if spec.Name == models.ToolUnknown {
		return fmt.Errorf("cannot register the unknown tool")
	}
	if spec.Handler == nil {
		return fmt.Errorf("tool %s has no handler", spec.Name)
	}
	if _, ok := r.specs[spec.Name]; ok {
		return fmt.Errorf("tool %s registered twice", spec.Name)
	}
	r.specs[spec.Name] = spec
	return nil
}

func (r *Registry) Lookup(name models.ToolName) (Spec, bool) {
	spec, ok := r.specs[name]
	return spec, ok
}

// Specs lists registered tools sorted by name.
func (r *Registry) Specs() []Spec {
	out := make([]Spec, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Outcome is the result of one invocation. Result always holds text that can
// go into a prompt, including for failures.
type Outcome struct {
	Tool     models.ToolName
	Args     models.Args
	Result   string
	Duration time.Duration
	Err      error
}

func (o Outcome) Succeeded() bool { return o.Err == nil }

// Execution converts the outcome into response metadata.
func (o Outcome) Execution() models.ToolExecution {
	return models.ToolExecution{
		Tool:          o.Tool,
		Args:          o.Args,
		Duration:      o.Duration,
		ResultPreview: truncate(o.Result, previewLimit),
		Succeeded:     o.Succeeded(),
	}
}

type Invoker struct {
	registry   *Registry
	middleware []Middleware
	logger     *zap.Logger
}

// NewInvoker applies middleware in order, the first one outermost.
func NewInvoker(registry *Registry, logger *zap.Logger, middleware ...Middleware) *Invoker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invoker{registry: registry, middleware: middleware, logger: logger}
}

// Invoke runs one tool. It never returns an error: an unknown tool, a failing
// handler or a panicking one all come back as an "Error: ..." result.
func (inv *Invoker) Invoke(ctx context.Context, sess *session.Session, name models.ToolName, args models.Args) Outcome {
	return inv.invoke(ctx, sess, name, name.String(), args)
}

// InvokeByName resolves a raw tool name first. Names outside the known set
// are reported with the name the caller used.
func (inv *Invoker) InvokeByName(ctx context.Context, sess *session.Session, raw string, args models.Args) Outcome {
	return inv.invoke(ctx, sess, models.ParseToolName(raw), raw, args)
}

func (inv *Invoker) invoke(ctx context.Context, sess *session.Session, name models.ToolName, label string, args models.Args) Outcome {
	if args == nil {
		args = models.Args{}
	}
	out := Outcome{Tool: name, Args: args}

	spec, ok := inv.registry.Lookup(name)
	if !ok {
		out.Err = fmt.Errorf("Unknown tool '%s'", label)
		out.Result = "Error: " + out.Err.Error()
		inv.logger.Warn("Unknown tool requested", zap.String("tool", label))
		return out
	}
	if sess == nil {
		sess = session.New("default")
	}

	h := spec.Handler
	for i := len(inv.middleware) - 1; i >= 0; i-- {
		h = inv.middleware[i](name, h)
	}

	start := time.Now()
	result, err := safeCall(ctx, h, Call{Session: sess, Args: args})
	out.Duration = time.Since(start)

	if err != nil {
		out.Err = err
		out.Result = ErrorText(err)
		inv.logger.Error("Tool failed",
			zap.String("tool", label),
			zap.Duration("duration", out.Duration),
			zap.Error(err))
		return out
	}
	out.Result = result
	inv.logger.Debug("Tool finished",
		zap.String("tool", label),
		zap.Duration("duration", out.Duration),
		zap.Int("result_chars", len(result)))
	return out
}

func safeCall(ctx context.Context, h Handler, call Call) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, call)
}

// ErrorText is the user-facing form of a tool failure.
func ErrorText(err error) string {
	return "Error: " + truncate(err.Error(), errorLimit)
}

// Timeout bounds every tool call. The handler keeps running in the
// background if it ignores its context.
func Timeout(d time.Duration) Middleware {
	return func(name models.ToolName, next Handler) Handler {
		if d <= 0 {
			return next
		}
		return func(ctx context.Context, call Call) (string, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			type result struct {
				text string
				err  error
			}
			done := make(chan result, 1)
			go func() {
				text, err := safeCall(ctx, next, call)
				done <- result{text, err}
			}()

			select {
			case r := <-done:
				return r.text, r.err
			case <-ctx.Done():
				return "", fmt.Errorf("%s timed out after %s", name, d)
			}
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
