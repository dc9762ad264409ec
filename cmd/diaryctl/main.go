package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/router-for-me/DiaryHub/internal/client"
	"github.com/router-for-me/DiaryHub/internal/content"
	"github.com/router-for-me/DiaryHub/internal/localstate"
	"github.com/router-for-me/DiaryHub/internal/models"
	"github.com/router-for-me/DiaryHub/internal/settings"

	log "github.com/sirupsen/logrus"
)

const usage = `usage: diaryctl [-state path] [-server url] <command> [flags]

commands:
  register <username> <password>   create an account and log in
  login <username> <password>      log in
  logout                           forget the local session
  whoami                           show the current session
  admin <key>                      activate admin with the passphrase
  feed                             list the public feed
  mine [-q kw] [-from d] [-to d] [-sort s]
                                   search your own diaries
  history [-clear]                 show or clear search history
  write -title t [-visibility v] [-key k] [-allowed a,b] [-summarize] [content]
                                   write a diary (content from stdin when omitted)
  show <id> [-key k]               open a diary
  like <id>                        toggle a like on a diary
  follow <username>                toggle following a user
  notifications [-read] [-wait]    list notifications
  announcement [-dismiss]          show the current announcement
  theme [name]                     show or pick the color theme
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log.SetLevel(log.WarnLevel)
	if errRun := run(ctx, os.Args[1:], os.Stdout, os.Stdin); errRun != nil {
		fmt.Fprintln(os.Stderr, "error:", errRun)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer, in io.Reader) error {
	fs := flag.NewFlagSet("diaryctl", flag.ContinueOnError)
	statePath := fs.String("state", "", "local state file (default ~/.diaryhub/state.yaml)")
	server := fs.String("server", "", "server base url, remembered for later runs")
	fs.Usage = func() { fmt.Fprint(out, usage) }
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return nil
	}

	state, err := localstate.Open(*statePath)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*server) != "" {
		if errServer := state.SetServer(*server); errServer != nil {
			return errServer
		}
	}
	cmd := &command{c: client.New(state), state: state, out: out, in: in}
	return cmd.dispatch(ctx, rest[0], rest[1:])
}

type command struct {
	c     *client.Client
	state *localstate.Store
	out   io.Writer
	in    io.Reader
}

func (cmd *command) dispatch(ctx context.Context, name string, args []string) error {
	switch name {
	case "register", "login":
		if len(args) != 2 {
			return fmt.Errorf("%s needs <username> <password>", name)
		}
		auth := cmd.c.Login
		if name == "register" {
			auth = cmd.c.Register
		}
		sess, err := auth(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.out, "logged in as %s (uid %s)\n", sess.Username, sess.UID)
		return nil
	case "logout":
		if err := cmd.c.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.out, "logged out")
		return nil
	case "whoami":
		return cmd.whoami(ctx)
	case "admin":
		if len(args) != 1 {
			return fmt.Errorf("admin needs <key>")
		}
		sess, err := cmd.c.ActivateAdmin(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.out, "%s is now an admin\n", sess.Username)
		return nil
	case "feed":
		list, err := cmd.c.Feed(ctx)
		if err != nil {
			return err
		}
		cmd.printDiaries(list)
		return nil
	case "mine":
		return cmd.mine(ctx, args)
	case "history":
		return cmd.history(args)
	case "write":
		return cmd.write(ctx, args)
	case "show":
		return cmd.show(ctx, args)
	case "like":
		if len(args) != 1 {
			return fmt.Errorf("like needs <id>")
		}
		liked, likes, err := cmd.c.Like(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.out, "liked=%t likes=%d\n", liked, likes)
		return nil
	case "follow":
		return cmd.follow(ctx, args)
	case "notifications":
		return cmd.notifications(ctx, args)
	case "announcement":
		return cmd.announcement(ctx, args)
	case "theme":
		return cmd.theme(args)
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

func (cmd *command) whoami(ctx context.Context) error {
	if !cmd.c.Scope().Authenticated() {
		fmt.Fprintln(cmd.out, "not logged in")
		return nil
	}
	sess, err := cmd.c.Me(ctx)
	if err != nil {
		return err
	}
	role := "user"
	if sess.IsAdmin {
		role = "admin"
	}
	fmt.Fprintf(cmd.out, "%s (uid %s, %s) followers=%d following=%d likes=%d\n",
		sess.Username, sess.UID, role, len(sess.Followers), len(sess.Following), sess.LikesReceived)
	return nil
}

func (cmd *command) mine(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("mine", flag.ContinueOnError)
	fs.SetOutput(cmd.out)
	keyword := fs.String("q", "", "keyword in title, content or events")
	from := fs.String("from", "", "first day, YYYY-MM-DD")
	to := fs.String("to", "", "last day, YYYY-MM-DD")
	order := fs.String("sort", content.SortDateDesc, "date-desc, date-asc, title-asc or events-desc")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}
	list, err := cmd.c.Mine(ctx, client.Query{Keyword: *keyword, From: *from, To: *to, Sort: *order})
	if err != nil {
		return err
	}
	cmd.printDiaries(list)
	return nil
}

func (cmd *command) history(args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(cmd.out)
	clearAll := fs.Bool("clear", false, "forget every keyword")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}
	if *clearAll {
		return cmd.c.ClearSearchHistory()
	}
	for _, kw := range cmd.c.SearchHistory() {
		fmt.Fprintln(cmd.out, kw)
	}
	return nil
}

func (cmd *command) write(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("write", flag.ContinueOnError)
	fs.SetOutput(cmd.out)
	title := fs.String("title", "", "diary title")
	visibility := fs.String("visibility", string(models.VisibilityPrivate), "public, private, secret or group")
	key := fs.String("key", "", "secret key for secret diaries")
	allowed := fs.String("allowed", "", "comma separated usernames for group diaries")
	summarize := fs.Bool("summarize", false, "extract major events with the server summarizer")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}
	body := strings.Join(fs.Args(), " ")
	if body == "" {
		raw, errRead := io.ReadAll(cmd.in)
		if errRead != nil {
			return fmt.Errorf("read content: %w", errRead)
		}
		body = string(raw)
	}
	d, err := cmd.c.Write(ctx, client.DiaryInput{
		Title:         *title,
		Content:       body,
		Visibility:    models.Visibility(*visibility),
		SecretKey:     *key,
		AllowedUsers:  content.ParseAllowedUsers(*allowed),
		AutoSummarize: *summarize,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.out, "saved %s\n", d.ID)
	for _, event := range d.MajorEvents {
		fmt.Fprintf(cmd.out, "  • %s\n", event)
	}
	return nil
}

func (cmd *command) show(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("show needs <id>")
	}
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(cmd.out)
	key := fs.String("key", "", "secret key")
	if errParse := fs.Parse(args[1:]); errParse != nil {
		return errParse
	}
	opened, err := cmd.c.Show(ctx, args[0], *key)
	if err != nil {
		return err
	}
	d := opened.Diary
	fmt.Fprintf(cmd.out, "%s\nby %s on %s (%s, %d likes)\n\n%s\n",
		d.Title, d.AuthorName, d.Date.Local().Format(time.DateTime), d.Visibility, opened.Likes, d.Content)
	for _, event := range d.MajorEvents {
		fmt.Fprintf(cmd.out, "  • %s\n", event)
	}
	return nil
}

func (cmd *command) follow(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("follow needs <username>")
	}
	target, ok, err := cmd.c.FindUser(ctx, args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %q not found", args[0])
	}
	following, err := cmd.c.Follow(ctx, target.UID)
	if err != nil {
		return err
	}
	if following {
		fmt.Fprintf(cmd.out, "following %s\n", target.Username)
	} else {
		fmt.Fprintf(cmd.out, "unfollowed %s\n", target.Username)
	}
	return nil
}

func (cmd *command) notifications(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("notifications", flag.ContinueOnError)
	fs.SetOutput(cmd.out)
	markRead := fs.Bool("read", false, "mark everything read after listing")
	wait := fs.Bool("wait", false, "block until the unread count changes")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}
	list, unread, err := cmd.c.Notifications(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.out, "%d unread\n", unread)
	for _, n := range list {
		marker := " "
		if !n.Read {
			marker = "*"
		}
		fmt.Fprintf(cmd.out, "%s %s %s\n", marker, n.Date.Local().Format(time.DateTime), n.Content)
	}
	if *markRead && unread > 0 {
		if errRead := cmd.c.ReadAll(ctx); errRead != nil {
			return errRead
		}
		unread = 0
	}
	if *wait {
		next, errWait := cmd.c.WaitUnread(ctx, unread)
		if errWait != nil {
			return errWait
		}
		fmt.Fprintf(cmd.out, "%d unread\n", next)
	}
	return nil
}

func (cmd *command) announcement(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("announcement", flag.ContinueOnError)
	fs.SetOutput(cmd.out)
	dismiss := fs.Bool("dismiss", false, "hide it until a newer one is published")
	if errParse := fs.Parse(args); errParse != nil {
		return errParse
	}
	a, unseen, err := cmd.c.Announcement(ctx)
	if err != nil {
		return err
	}
	if a == nil {
		fmt.Fprintln(cmd.out, "no announcement")
		return nil
	}
	if !unseen && !*dismiss {
		fmt.Fprintln(cmd.out, "no new announcement")
		return nil
	}
	fmt.Fprintf(cmd.out, "[%s] %s\n", a.Date.Local().Format(time.DateTime), a.Content)
	if *dismiss {
		return cmd.c.DismissAnnouncement(*a)
	}
	return nil
}

func (cmd *command) theme(args []string) error {
	if len(args) == 0 {
		current := cmd.state.Theme()
		for _, name := range settings.Themes {
			marker := " "
			if name == current {
				marker = "*"
			}
			fmt.Fprintf(cmd.out, "%s %s\n", marker, name)
		}
		return nil
	}
	if err := cmd.state.SetTheme(args[0]); err != nil {
		if errors.Is(err, localstate.ErrUnknownTheme) {
			return fmt.Errorf("unknown theme %q (choose one of %s)", args[0], strings.Join(settings.Themes, ", "))
		}
		return err
	}
	fmt.Fprintf(cmd.out, "theme set to %s\n", args[0])
	return nil
}

func (cmd *command) printDiaries(list []models.Diary) {
	if len(list) == 0 {
		fmt.Fprintln(cmd.out, "no diaries")
		return
	}
	for _, d := range list {
		pin := ""
		if d.IsPinned {
			pin = " [pinned]"
		}
		fmt.Fprintf(cmd.out, "%s  %s  %-10s %s%s (%d likes)\n",
			d.ID, d.Date.Local().Format(time.DateOnly), d.AuthorName, d.Title, pin, len(d.LikedBy))
	}
}
