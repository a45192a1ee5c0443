// Command threadview browses a comment thread of a running LinkVault server
// from the terminal.
//
//	threadview -kind bookmark -id 7 -user alice -pass secret
//	threadview -kind announcement -id 3 -html > thread.html
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"linkvault/internal/client"
	"linkvault/internal/config"
	"linkvault/internal/logger"
	"linkvault/internal/thread"

	"go.uber.org/zap"
)

const help = `commands:
  expand N | collapse N     show or hide the full reply list of comment N
  post TEXT                 add a top-level comment
  reply N TEXT              reply to comment N
  edit N TEXT               replace the content of comment N
  delete N                  delete comment N
  like N | dislike N        vote on comment N
  reload | help | quit`

func main() {
	cfg := config.Load()
	log := logger.Must(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, log, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "threadview:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("threadview", flag.ContinueOnError)
	fs.SetOutput(out)
	api := fs.String("api", cfg.APIBaseURL, "server base URL")
	kind := fs.String("kind", thread.KindBookmark, "thread kind: bookmark or announcement")
	id := fs.Uint("id", 0, "bookmark or announcement id")
	token := fs.String("token", "", "bearer token")
	user := fs.String("user", "", "username to log in with")
	pass := fs.String("pass", "", "password to log in with")
	expanded := fs.String("expanded", "", "comma separated ids of expanded threads")
	asHTML := fs.Bool("html", false, "print the HTML fragment and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *kind != thread.KindBookmark && *kind != thread.KindAnnouncement {
		return fmt.Errorf("unknown kind %q", *kind)
	}
	if *id == 0 {
		return errors.New("-id is required")
	}

	c := client.New(*api, client.WithToken(*token))
	if *user != "" {
		if err := c.Login(ctx, *user, *pass); err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}

	opts := thread.DefaultOptions()
	opts.PrefillMention = *kind == thread.KindAnnouncement
	ref := thread.Ref{Kind: *kind, ID: *id}

	if *asHTML {
		e := thread.New(thread.Config{Source: c, Ref: ref, Options: opts, State: thread.ParseState(*expanded), Logger: log})
		if err := e.Load(ctx); err != nil {
			return err
		}
		base := fmt.Sprintf("%s/%ss/%d/comments", strings.TrimRight(*api, "/"), ref.Kind, ref.ID)
		return thread.WriteHTML(out, e.Surface(), thread.HTMLOptions{BasePath: base, CanPost: c.Token() != ""})
	}

	s := &session{out: out, scan: bufio.NewScanner(in)}
	s.engine = thread.New(thread.Config{
		Source:   c,
		Ref:      ref,
		Options:  opts,
		State:    thread.ParseState(*expanded),
		Notifier: thread.NotifierFunc(s.notify),
		Logger:   log,
	})
	return s.loop(ctx)
}

type session struct {
	engine *thread.Engine
	out    io.Writer
	scan   *bufio.Scanner
}

func (s *session) notify(n thread.Notice) {
	fmt.Fprintf(s.out, "! %s\n", n.Message)
}

// confirm reads the answer from the same input as the commands.
func (s *session) confirm(prompt string) bool {
	fmt.Fprintf(s.out, "%s [y/N] ", prompt)
	if !s.scan.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(s.scan.Text()))
	return answer == "y" || answer == "yes"
}

func (s *session) print() {
	surface := s.engine.Surface()
	surface.Notice = nil
	_ = thread.WriteText(s.out, surface)
}

func (s *session) loop(ctx context.Context) error {
	if err := s.engine.Load(ctx); err == nil {
		s.print()
	}
	for {
		fmt.Fprint(s.out, "> ")
		if !s.scan.Scan() {
			fmt.Fprintln(s.out)
			return s.scan.Err()
		}
		line := strings.TrimSpace(s.scan.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		if err := s.exec(ctx, line); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		s.print()
	}
}

// exec runs one command. Failures are already reported through the notifier.
func (s *session) exec(ctx context.Context, line string) error {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "help":
		fmt.Fprintln(s.out, help)
		return errNoRedraw
	case "reload":
		return s.engine.Load(ctx)
	case "post":
		return s.engine.Post(ctx, rest)
	}

	arg, text, _ := strings.Cut(rest, " ")
	id, err := strconv.ParseUint(arg, 10, 0)
	if err != nil || id == 0 {
		fmt.Fprintf(s.out, "%s needs a comment id; try help\n", cmd)
		return errNoRedraw
	}
	cid := uint(id)

	switch cmd {
	case "expand":
		return s.engine.Expand(ctx, cid)
	case "collapse":
		return s.engine.Collapse(ctx, cid)
	case "reply":
		if !s.engine.OpenReply(cid) {
			fmt.Fprintf(s.out, "comment %d cannot be replied to\n", cid)
			return errNoRedraw
		}
		err := s.engine.Reply(ctx, cid, text)
		s.engine.CloseReply()
		return err
	case "edit":
		if _, ok := s.engine.StartEdit(cid); !ok {
			fmt.Fprintf(s.out, "comment %d cannot be edited\n", cid)
			return errNoRedraw
		}
		if err := s.engine.SaveEdit(ctx, cid, text); err != nil {
			_ = s.engine.CancelEdit(ctx)
			return err
		}
		return nil
	case "delete":
		return s.engine.Delete(ctx, cid, s.confirm)
	case "like":
		return s.engine.Vote(ctx, cid, thread.VoteLike)
	case "dislike":
		return s.engine.Vote(ctx, cid, thread.VoteDislike)
	}
	fmt.Fprintf(s.out, "unknown command %q; try help\n", cmd)
	return errNoRedraw
}

var errNoRedraw = errors.New("threadview: nothing to redraw")
