// Package shell is the interactive front end of the ledger: a line based
// REPL over a session.Controller.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/inventory"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/report"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/user"
)

// readPassword is a test seam for term.ReadPassword.
var (
	termReadPassword = term.ReadPassword
	readPassword     = termReadPassword
)

type Options struct {
	Report     report.Config
	// TerminalFd, when >= 0, is read without echo for passwords.
	TerminalFd int
}

type Shell struct {
	ctrl   *session.Controller
	in     *bufio.Reader
	out    io.Writer
	opts   Options
	logger *zap.SugaredLogger
}

func New(ctrl *session.Controller, in io.Reader, out io.Writer, opts Options, logger *zap.SugaredLogger) *Shell {
	return &Shell{ctrl: ctrl, in: bufio.NewReader(in), out: out, opts: opts, logger: logger}
}

const helpText = `Commands:
  register   create an account (invitation code required)
  login      sign in
  logout     sign out
  add        append an inventory record
  ledger     show the ledger and its summary
  whoami     show the current user
  help       show this help
  quit       leave the shell`

// Run reads commands until quit or end of input.
func (s *Shell) Run(ctx context.Context) error {
	s.println("Inventory ledger. Type help for commands.")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(s.out, s.prompt())
		line, err := s.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.println()
				return nil
			}
			return err
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch cmd := strings.ToLower(fields[0]); cmd {
		case "help", "?":
			s.println(helpText)
		case "register":
			s.explain(s.register(ctx))
		case "login":
			s.explain(s.login(ctx))
		case "logout":
			s.ctrl.Logout()
			s.println("Logged out.")
		case "add":
			s.explain(s.add(ctx))
		case "ledger", "list":
			s.explain(s.ledger(ctx))
		case "whoami":
			if sess := s.ctrl.Session(); sess.Authenticated {
				s.println(sess.Username)
			} else {
				s.println("Not logged in.")
			}
		case "quit", "exit":
			s.println("Bye!")
			return nil
		default:
			s.println("Unknown command:", cmd)
		}
	}
}

func (s *Shell) prompt() string {
	if sess := s.ctrl.Session(); sess.Authenticated {
		return "inventory(" + sess.Username + ")> "
	}
	return "inventory> "
}

func (s *Shell) register(ctx context.Context) error {
	username, err := s.ask("Username")
	if err != nil {
		return err
	}
	pw, err := s.askPassword("Password")
	if err != nil {
		return err
	}
	confirm, err := s.askPassword("Confirm password")
	if err != nil {
		return err
	}
	code, err := s.ask("Invitation code")
	if err != nil {
		return err
	}
	if err := s.ctrl.Register(ctx, username, pw, confirm, code); err != nil {
		return err
	}
	s.println("Registered. You can now log in.")
	return nil
}

func (s *Shell) login(ctx context.Context) error {
	username, err := s.ask("Username")
	if err != nil {
		return err
	}
	pw, err := s.askPassword("Password")
	if err != nil {
		return err
	}
	if err := s.ctrl.Login(ctx, username, pw); err != nil {
		return err
	}
	s.println("Welcome, " + username + ".")
	return nil
}

func (s *Shell) add(ctx context.Context) error {
	if !s.ctrl.Session().Authenticated {
		return session.ErrNotAuthenticated
	}
	name, err := s.ask("Product name")
	if err != nil {
		return err
	}
	qtyText, err := s.ask("Quantity")
	if err != nil {
		return err
	}
	qty, err := strconv.ParseInt(qtyText, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: quantity must be a whole number", inventory.ErrInvalidInput)
	}
	priceText, err := s.ask("Unit price")
	if err != nil {
		return err
	}
	price, err := decimal.NewFromString(priceText)
	if err != nil {
		return fmt.Errorf("%w: unit price must be a number", inventory.ErrInvalidInput)
	}
	id, err := s.ctrl.AddProduct(ctx, name, qty, price)
	if err != nil {
		return err
	}
	s.println(fmt.Sprintf("Added record %d.", id))
	return nil
}

func (s *Shell) ledger(ctx context.Context) error {
	v, err := s.ctrl.LedgerView(ctx)
	if err != nil {
		return err
	}
	md, err := report.Markdown(v, s.opts.Report.Currency)
	if err != nil {
		return err
	}
	return report.Render(s.out, md, s.opts.Report.Style)
}

// explain prints a user-facing message for err. Other failures keep
// their cause so the user can decide whether to retry.
func (s *Shell) explain(err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, io.EOF):
		s.println()
		s.println("Cancelled.")
	case errors.Is(err, session.ErrNotAuthenticated):
		s.println("Please log in first.")
	case errors.Is(err, user.ErrInvalidCredentials):
		s.println("Invalid username or password.")
	case errors.Is(err, user.ErrUsernameTaken):
		s.println("Username already taken.")
	case errors.Is(err, user.ErrValidation), errors.Is(err, inventory.ErrInvalidInput):
		s.println("Error:", err)
	default:
		s.logger.Warnw("command failed", "err", err)
		s.println("Failed:", err)
	}
}

func (s *Shell) ask(label string) (string, error) {
	fmt.Fprint(s.out, label+": ")
	return s.readLine()
}

func (s *Shell) askPassword(label string) (string, error) {
	fmt.Fprint(s.out, label+": ")
	if s.opts.TerminalFd < 0 {
		return s.readRaw()
	}
	pw, err := readPassword(s.opts.TerminalFd)
	fmt.Fprintln(s.out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func (s *Shell) readLine() (string, error) {
	line, err := s.readRaw()
	return strings.TrimSpace(line), err
}

// readRaw strips only the line ending and returns a partial last line at EOF.
func (s *Shell) readRaw() (string, error) {
	line, err := s.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (s *Shell) println(a ...any) {
	fmt.Fprintln(s.out, a...)
}
