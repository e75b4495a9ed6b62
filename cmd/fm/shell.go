package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/and161185/fleamarket/internal/app"
	"github.com/and161185/fleamarket/internal/loop"
	"github.com/and161185/fleamarket/internal/model"
	"github.com/and161185/fleamarket/internal/screen"
	"github.com/and161185/fleamarket/internal/views"
)

var errNoTerminal = errors.New("stdin is not a terminal")

// readPassword reads a password from the terminal without echo.
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errNoTerminal
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	return string(b), err
}

// shell reads commands line by line and applies them to the mounted view.
// It is the loop goroutine: after every command it flushes the loop, so the
// view is drawn once its requests have settled.
type shell struct {
	app  *app.App
	loop *loop.Loop
	in   *bufio.Scanner
	out  io.Writer

	// password reads a secret; nil or errNoTerminal falls back to a plain line.
	password func(prompt string) (string, error)
}

func newShell(a *app.App, l *loop.Loop, in io.Reader, out io.Writer) *shell {
	return &shell{app: a, loop: l, in: bufio.NewScanner(in), out: out}
}

func (s *shell) run(ctx context.Context) error {
	s.draw()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s> ", s.app.Screen().Kind())
		if !s.in.Scan() {
			fmt.Fprintln(s.out)
			return s.in.Err()
		}
		if quit := s.exec(s.in.Text()); quit {
			return nil
		}
		s.loop.Flush()
		s.draw()
	}
}

func (s *shell) draw() {
	fmt.Fprintln(s.out)
	render(s.out, s.app.View())
}

// ask prints label and returns the next input line, trimmed.
func (s *shell) ask(label string) string {
	fmt.Fprintf(s.out, "%s: ", label)
	if !s.in.Scan() {
		return ""
	}
	return strings.TrimSpace(s.in.Text())
}

func (s *shell) secret(label string) string {
	if s.password != nil {
		pw, err := s.password(label + ": ")
		if err == nil {
			return pw
		}
		if !errors.Is(err, errNoTerminal) {
			fmt.Fprintf(s.out, "! %v\n", err)
			return ""
		}
	}
	return s.ask(label)
}

func (s *shell) help() {
	fmt.Fprintln(s.out, `global: home | me | help | quit
the commands for the current screen are listed under it`)
}

// pick resolves a list number shown on screen, or a raw product id.
func (s *shell) pick(arg string) string {
	if n, err := strconv.Atoi(arg); err == nil {
		list := listed(s.app.View())
		if n >= 1 && n <= len(list) {
			return list[n-1].ID
		}
	}
	return arg
}

// exec runs one command line and reports whether the shell should exit.
func (s *shell) exec(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	rest := strings.TrimSpace(strings.TrimPrefix(line, cmd))

	switch cmd {
	case "quit", "exit":
		return true
	case "help", "?":
		s.help()
		return false
	case "home":
		s.app.Navigate(screen.Home{})
		return false
	case "me":
		s.app.Navigate(screen.MyPage{})
		return false
	}

	if !s.screenCommand(cmd, args, rest) {
		fmt.Fprintf(s.out, "unknown command %q, type help\n", cmd)
	}
	return false
}

func (s *shell) screenCommand(cmd string, args []string, rest string) bool {
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}

	switch v := s.app.View().(type) {
	case *views.Login:
		switch cmd {
		case "login":
			if arg == "" {
				arg = s.ask("user id")
			}
			var pw string
			if len(args) > 1 {
				pw = args[1]
			} else {
				pw = s.secret("password")
			}
			v.Submit(arg, pw)
		case "signup":
			v.Signup()
		default:
			return false
		}

	case *views.Signup:
		switch cmd {
		case "signup":
			if len(args) < 2 {
				fmt.Fprintln(s.out, "usage: signup <user> <mbti> [display name]")
				return true
			}
			name := strings.Join(args[2:], " ")
			v.Submit(args[0], s.secret("password"), name, args[1])
		case "login":
			v.Login()
		default:
			return false
		}

	case *views.Home:
		switch cmd {
		case "open":
			v.Open(s.pick(arg))
		case "like":
			v.ToggleLike(s.pick(arg))
		case "search":
			v.Search(rest)
		case "refresh":
			v.Refresh()
		case "sell":
			v.Sell()
		default:
			return false
		}

	case *views.ProductDetail:
		switch cmd {
		case "like":
			v.ToggleLike()
		case "buy":
			v.Buy()
		case "msg":
			v.Message()
		case "inbox":
			v.Inbox()
		case "summary":
			v.Summarize()
		case "refresh":
			v.Refresh()
		case "back":
			v.Back()
		default:
			return false
		}

	case *views.CreateListing:
		switch cmd {
		case "new":
			v.Submit(s.listingForm())
		case "cancel", "back":
			v.Cancel()
		default:
			return false
		}

	case *views.Inbox:
		switch cmd {
		case "open":
			n, _ := strconv.Atoi(arg)
			v.Open(n - 1)
		case "refresh":
			v.Refresh()
		case "back":
			v.Back()
		default:
			return false
		}

	case *views.Chat:
		switch cmd {
		case "say":
			v.Send(rest)
		case "refresh":
			v.Refresh()
		case "product", "back":
			v.Product()
		default:
			return false
		}

	case *views.MyPage:
		switch cmd {
		case "open":
			v.Open(s.pick(arg))
		case "sell":
			v.Sell()
		case "logout":
			v.Logout()
		case "refresh":
			v.Refresh()
		default:
			return false
		}

	case *views.PurchaseConfirm:
		switch cmd {
		case "pay":
			v.Form = views.PaymentForm{
				Name:       s.ask("name"),
				Phone:      s.ask("phone"),
				Address:    s.ask("address"),
				CardNumber: s.ask("card number"),
				Expiry:     s.ask("expiry (MM/YY)"),
				CVC:        s.secret("CVC"),
			}
			v.Submit()
		case "back":
			v.Back()
		default:
			return false
		}

	case *views.PurchaseDone:
		switch cmd {
		case "contact":
			v.ContactSeller()
		default:
			return false
		}

	default:
		return false
	}
	return true
}

func (s *shell) listingForm() views.ListingForm {
	f := views.ListingForm{
		Title:       s.ask("title"),
		Description: s.ask("description"),
		Status:      model.StatusAvailable,
	}
	if strings.HasPrefix(strings.ToLower(s.ask("price decided? [Y/n]")), "n") {
		f.Status = model.StatusConsidering
	} else {
		p, err := strconv.Atoi(strings.ReplaceAll(s.ask("price"), ",", ""))
		if err == nil {
			f.Price = p
		}
	}
	f.ImagePath = s.ask("image file (optional)")
	return f
}
