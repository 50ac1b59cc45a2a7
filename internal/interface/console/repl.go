package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/yanqian/ask-console/internal/domain/page"
)

// Controller is the part of page.Controller the console drives.
type Controller interface {
	KeyPress(ctx context.Context, key page.KeyEvent, question, csrfToken string) (bool, error)
	SelectResponseType(ctx context.Context, name string) error
	ReloadConfig(ctx context.Context) error
	ReloadData(ctx context.Context) error
}

const helpText = `Type a question and press Enter to ask.
Commands:
  :type <name>      select a response type
  :reload-config    reload backend configuration
  :reload-data      reload backend data
  :help             show this help
  :quit             exit
`

// REPL reads questions and commands line by line.
type REPL struct {
	ctrl      Controller
	out       io.Writer
	csrfToken string
	logger    *slog.Logger
}

// NewREPL builds a REPL. csrfToken is forwarded on every ask.
func NewREPL(ctrl Controller, out io.Writer, csrfToken string, logger *slog.Logger) *REPL {
	return &REPL{ctrl: ctrl, out: out, csrfToken: csrfToken, logger: logger.With("component", "console.repl")}
}

// Run processes in until EOF, :quit, or ctx is done.
func (r *REPL) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		quit, err := r.handle(ctx, strings.TrimSpace(scanner.Text()))
		if err != nil {
			r.logger.Debug("console command failed", "error", err)
		}
		if quit {
			return nil
		}
	}
	return scanner.Err()
}

func (r *REPL) handle(ctx context.Context, line string) (bool, error) {
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, ":") {
		// A line corresponds to Enter without Shift.
		_, err := r.ctrl.KeyPress(ctx, page.KeyEvent{Key: page.KeyEnter}, line, r.csrfToken)
		if errors.Is(err, page.ErrNoResponseType) {
			fmt.Fprintln(r.out, "No response type loaded; try :reload-config and restart.")
		}
		return false, err
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case ":quit", ":q", ":exit":
		return true, nil
	case ":help":
		fmt.Fprint(r.out, helpText)
		return false, nil
	case ":type":
		err := r.ctrl.SelectResponseType(ctx, arg)
		if err != nil {
			fmt.Fprintf(r.out, "Unknown response type %q.\n", arg)
		}
		return false, err
	case ":reload-config":
		return false, r.ctrl.ReloadConfig(ctx)
	case ":reload-data":
		return false, r.ctrl.ReloadData(ctx)
	default:
		fmt.Fprintf(r.out, "Unknown command %s. Type :help for help.\n", cmd)
		return false, nil
	}
}
