// Package engine runs workspace scripts. A script is zygomys Lisp whose
// builtins call the operation engine; every operation a script performs
// is recorded as a Step in the returned Report.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/pointyard/pkg/ops"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int    `json:"line,omitempty"`
	Col     int    `json:"col,omitempty"`
	Message string `json:"message"`
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Step is one operation performed by a script.
type Step struct {
	Op     string     `json:"op"`
	Result ops.Result `json:"result"`
	// Err is set when the operation rejected its input. The script keeps
	// running after a failed step.
	Err string `json:"error,omitempty"`
}

// Report is the outcome of one script run.
type Report struct {
	Steps  []Step      `json:"steps"`
	Errors []EvalError `json:"errors,omitempty"`
}

// Failed returns the steps whose operation returned an error.
func (r *Report) Failed() []Step {
	var out []Step
	for _, s := range r.Steps {
		if s.Err != "" {
			out = append(out, s)
		}
	}
	return out
}

// Engine evaluates scripts against one operation engine. It is safe for
// concurrent use; starting a run cancels the run before it.
type Engine struct {
	ops     *ops.Engine
	log     *slog.Logger
	timeout time.Duration

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

// NewEngine returns a script engine bound to o. The run timeout comes from
// the script section of o's config.
func NewEngine(o *ops.Engine, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	timeout := o.Config().Script.Timeout.Duration
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Engine{ops: o, log: log, timeout: timeout}
}

// Run evaluates source in a fresh sandbox.
//
// Return semantics:
//   - On success: report with no errors, nil error
//   - On parse/eval failure: report with the steps completed so far and
//     eval errors, nil error
//   - On fatal failure (timeout, cancellation, panic, superseded): nil, error
func (e *Engine) Run(ctx context.Context, source string) (*Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.generation++
	gen := e.generation
	e.cancel = cancel
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		rep, err := e.evaluate(ctx, source)
		ch <- evalResult{report: rep, err: err}
	}()

	rep, err := waitWithTimeout(ch, gen, e.timeout, &e.mu, &e.generation)
	if err != nil {
		e.log.Warn("script failed", "error", err)
		return nil, err
	}
	e.log.Info("script finished", "steps", len(rep.Steps), "errors", len(rep.Errors))
	return rep, nil
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(ctx context.Context, source string) (*Report, error) {
	rep := &Report{}
	if strings.TrimSpace(source) == "" {
		return rep, nil
	}

	// The sandbox has no filesystem or syscall access; file IO goes through
	// the load and export builtins only.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	s := &session{ctx: ctx, ops: e.ops, report: rep, log: e.log}
	registerBuiltins(env, s)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		rep.Errors = parseZygomysError(err)
		return rep, nil
	}

	if _, err := env.Run(); err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, fmt.Errorf("script cancelled: %w", cerr)
		}
		rep.Errors = parseZygomysError(err)
	}
	return rep, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
