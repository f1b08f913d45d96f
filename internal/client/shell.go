package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/atinyakov/teashop/internal/models"
)

const shellHelp = "Available commands: help, show, set <id> <count>, add <id> <n>, close, reports, delete <id|date>, export <file>, login, exit"

// Shell is the interactive command loop of the terminal client.
type Shell struct {
	API    *Client
	Prompt *Prompter
	Out    io.Writer
	// OnLogin is called with every token obtained by the login command.
	OnLogin func(phone, token string)
}

// Run reads commands until input ends or "exit" is entered.
func (s *Shell) Run(ctx context.Context) {
	for {
		line, ok := s.Prompt.Ask("teashop> ")
		if !ok {
			return
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			fmt.Fprintln(s.Out, "Bye")
			return
		}
		if err := s.Exec(ctx, args); err != nil {
			fmt.Fprintln(s.Out, "error:", err)
		}
	}
}

// Exec runs a single command.
func (s *Shell) Exec(ctx context.Context, args []string) error {
	switch args[0] {
	case "help":
		fmt.Fprintln(s.Out, shellHelp)
	case "login":
		return s.login(ctx)
	case "show":
		d, err := s.API.Data(ctx)
		if err != nil {
			return s.explain(err)
		}
		s.printTally(d.Today)
	case "set", "add":
		if len(args) < 3 {
			return fmt.Errorf("usage: %s <id> <count>", args[0])
		}
		id, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid id %q", args[1])
		}
		n, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid count %q", args[2])
		}
		var res UpdateResult
		if args[0] == "set" {
			res, err = s.API.SetCount(ctx, id, n)
		} else {
			res, err = s.API.AddCount(ctx, id, n)
		}
		if err != nil {
			return s.explain(err)
		}
		s.printTally(res.Today)
		fmt.Fprintf(s.Out, "Today: %d items, %s\n", res.UpdatedReport.TotalQty, res.UpdatedReport.TotalAmount.StringFixed(2))
	case "close":
		d, err := s.API.Close(ctx)
		if err != nil {
			return s.explain(err)
		}
		fmt.Fprintln(s.Out, "Day closed")
		s.printReports(d.Reports)
	case "reports":
		reports, err := s.API.Reports(ctx)
		if err != nil {
			return s.explain(err)
		}
		s.printReports(reports)
	case "delete":
		if len(args) < 2 {
			return errors.New("usage: delete <id|date>")
		}
		if err := s.API.DeleteReport(ctx, args[1]); err != nil {
			return s.explain(err)
		}
		fmt.Fprintln(s.Out, "Report deleted")
	case "export":
		if len(args) < 2 {
			return errors.New("usage: export <file>")
		}
		return s.export(ctx, args[1])
	default:
		return fmt.Errorf("unknown command %q, type 'help' for a list of commands", args[0])
	}
	return nil
}

func (s *Shell) login(ctx context.Context) error {
	phone, pin, ok := s.Prompt.Credentials()
	if !ok {
		return errors.New("login cancelled")
	}
	token, err := s.API.Login(ctx, phone, pin)
	if err != nil {
		return err
	}
	if s.OnLogin != nil {
		s.OnLogin(phone, token)
	}
	fmt.Fprintln(s.Out, "Login successful")
	return nil
}

func (s *Shell) export(ctx context.Context, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.API.Export(ctx, f); err != nil {
		f.Close()
		_ = os.Remove(path)
		return s.explain(err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(s.Out, "Reports written to %s\n", path)
	return nil
}

// explain turns authentication failures into a hint to log in.
func (s *Shell) explain(err error) error {
	var apiErr *APIError
	if errors.Is(err, ErrNotLoggedIn) || (errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized) {
		return fmt.Errorf("%w, use the login command", err)
	}
	return err
}

func (s *Shell) printTally(t models.DailyTally) {
	fmt.Fprintf(s.Out, "Date: %s\n", t.Date)
	for _, c := range t.Categories {
		fmt.Fprintf(s.Out, "%3d  %-20s %8s x %d\n", c.ID, c.Name, c.Price.StringFixed(2), c.Count)
	}
}

func (s *Shell) printReports(reports []models.Report) {
	if len(reports) == 0 {
		fmt.Fprintln(s.Out, "No reports")
		return
	}
	for _, r := range reports {
		fmt.Fprintf(s.Out, "%s  qty %d  amount %s  id %s\n", r.Date, r.TotalQty, r.TotalAmount.StringFixed(2), r.ID)
	}
}
