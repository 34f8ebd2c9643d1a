package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"Skythread/internal/core/commentview"
	"Skythread/internal/core/display"
	"Skythread/internal/core/threadsession"
)

const helpText = `commands:
  load <url|at-uri>   load a thread
  search <text>       filter comments (empty clears)
  sort <mode>         oldest, newest, likes, reposts, quotes, replies
  more                reveal the next batch
  help                show this help
  quit                exit`

// REPL is a line-oriented browser over one thread session.
type REPL struct {
	session  *threadsession.Session
	builder  *commentview.Builder
	renderer *Renderer
	in       io.Reader
	out      io.Writer
}

// NewREPL creates a REPL reading commands from in and writing pages to out.
func NewREPL(session *threadsession.Session, builder *commentview.Builder, in io.Reader, out io.Writer) *REPL {
	return &REPL{
		session:  session,
		builder:  builder,
		renderer: NewRenderer(out),
		in:       in,
		out:      out,
	}
}

// Run processes commands until quit, EOF or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.in)
	r.prompt()
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		quit, err := r.Exec(ctx, scanner.Text())
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
		r.prompt()
	}
	return scanner.Err()
}

// Exec runs a single command line. It reports whether the REPL should stop;
// only write failures are returned as errors.
func (r *REPL) Exec(ctx context.Context, line string) (bool, error) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "":
		return false, nil
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		_, err := fmt.Fprintln(r.out, helpText)
		return false, err
	case "load":
		if arg == "" {
			return false, r.message("usage: load <url|at-uri>")
		}
		page, err := r.session.Load(ctx, arg)
		if err != nil {
			if errors.Is(err, threadsession.ErrSuperseded) {
				return false, nil
			}
			return false, r.renderer.RenderError(err)
		}
		return false, r.render(page)
	}

	if r.session.Thread() == nil {
		return false, r.message("no thread loaded; use: load <url|at-uri>")
	}

	switch strings.ToLower(cmd) {
	case "search":
		return false, r.render(r.session.SetSearchTerm(arg))
	case "sort":
		mode, err := display.ParseSortMode(arg)
		if err != nil {
			return false, r.message(fmt.Sprintf("unknown sort mode %q", arg))
		}
		return false, r.render(r.session.SetSortMode(mode))
	case "more":
		return false, r.render(r.session.RevealMore())
	default:
		return false, r.message(fmt.Sprintf("unknown command %q; type 'help'", cmd))
	}
}

func (r *REPL) render(page display.Page) error {
	return r.renderer.RenderPage(r.builder.BuildPage(r.session.Thread(), page))
}

func (r *REPL) message(msg string) error {
	_, err := fmt.Fprintln(r.out, msg)
	return err
}

func (r *REPL) prompt() {
	fmt.Fprint(r.out, "> ")
}
