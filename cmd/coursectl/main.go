// Command coursectl drives the course API from a terminal: authoring
// (module listing and reordering) and a text-mode player.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mind-engage/mindengage-courseware/internal/api/client"
	"github.com/mind-engage/mindengage-courseware/internal/config"
	"github.com/mind-engage/mindengage-courseware/internal/course"
	"github.com/mind-engage/mindengage-courseware/internal/db"
	"github.com/mind-engage/mindengage-courseware/internal/hierarchy"
	"github.com/mind-engage/mindengage-courseware/internal/logger"
	"github.com/mind-engage/mindengage-courseware/internal/player"
	"github.com/mind-engage/mindengage-courseware/internal/position"
)

const usage = `usage: coursectl <command> [flags]

commands:
  login    -user U -pass P -role R     print a token for API_TOKEN
  modules  -course ID                  list modules and their content
  move     -course ID -from N -to N    move a module
  play     -course ID [-item ID] [-step next|prev]
  quiz     -course ID -item ID -answers q1=a,q2=b
`

func main() {
	config.LoadDotEnv()
	cfg := config.ClientFromEnv()
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer lg.Sync()

	api := client.New(cfg.APIBaseURL, client.WithToken(cfg.APIToken), client.WithTimeout(cfg.APITimeout), client.WithLogger(lg))
	ctx := context.Background()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "login":
		err = login(ctx, api, args)
	case "modules":
		err = modules(ctx, api, lg, args)
	case "move":
		err = move(ctx, api, lg, args)
	case "play":
		err = play(ctx, api, cfg, lg, args)
	case "quiz":
		err = quiz(ctx, api, cfg, lg, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func login(ctx context.Context, api *client.Client, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	user := fs.String("user", "", "username")
	pass := fs.String("pass", "", "password")
	role := fs.String("role", "learner", "learner|instructor|admin")
	_ = fs.Parse(args)

	tok, err := api.Login(ctx, *user, *pass, *role)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}

func loadHierarchy(ctx context.Context, api *client.Client, lg *logger.Logger, courseID string) (*hierarchy.Store, error) {
	notify := hierarchy.NotifierFunc(func(op string, err error) {
		fmt.Fprintf(os.Stderr, "warning: %s did not reach the server (%v); run again to resync\n", op, err)
	})
	h := hierarchy.New(courseID, api, hierarchy.WithLogger(lg), hierarchy.WithNotifier(notify))
	if err := h.Load(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

func printModules(mods []course.Module) {
	for _, m := range mods {
		fmt.Printf("%d. %s [%s]\n", m.OrderIndex+1, m.Title, m.ID)
		for _, it := range m.Items {
			fmt.Printf("   %d. %-10s %s [%s]\n", it.OrderIndex+1, it.Kind, it.Title, it.ID)
		}
	}
}

func modules(ctx context.Context, api *client.Client, lg *logger.Logger, args []string) error {
	fs := flag.NewFlagSet("modules", flag.ExitOnError)
	courseID := fs.String("course", "", "course id")
	_ = fs.Parse(args)

	h, err := loadHierarchy(ctx, api, lg, *courseID)
	if err != nil {
		return err
	}
	defer h.Close()
	printModules(h.Modules())
	return nil
}

func move(ctx context.Context, api *client.Client, lg *logger.Logger, args []string) error {
	fs := flag.NewFlagSet("move", flag.ExitOnError)
	courseID := fs.String("course", "", "course id")
	from := fs.Int("from", 1, "1-based source position")
	to := fs.Int("to", 1, "1-based target position")
	_ = fs.Parse(args)

	h, err := loadHierarchy(ctx, api, lg, *courseID)
	if err != nil {
		return err
	}
	defer h.Close()
	if err := h.MoveModule(ctx, *from-1, *to-1); err != nil {
		return err
	}
	printModules(h.Modules())
	return nil
}

// positions keeps the resume point in a local sqlite file when
// PLAYER_STATE_DSN is set, on the server otherwise.
func positions(ctx context.Context, api *client.Client, cfg config.ClientConfig) (position.Store, func(), error) {
	if cfg.PlayerStateDSN == "" {
		return api.Positions(), func() {}, nil
	}
	dbh, err := db.Open(ctx, db.DriverSQLite, cfg.PlayerStateDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("player state: %w", err)
	}
	return position.NewSQLStore(dbh), func() { _ = dbh.Close() }, nil
}

func openSession(ctx context.Context, api *client.Client, cfg config.ClientConfig, lg *logger.Logger, courseID, itemID string) (*player.Session, func(), error) {
	store, closeStore, err := positions(ctx, api, cfg)
	if err != nil {
		return nil, nil, err
	}
	learner := os.Getenv("USER")
	if learner == "" {
		learner = "local"
	}
	s := player.NewSession(learner, courseID, api, position.NewResolver(store, lg), player.WithLogger(lg))
	res, err := s.Open(ctx, itemID)
	if err != nil {
		s.Close()
		closeStore()
		return nil, nil, err
	}
	if !res.Found() {
		s.Close()
		closeStore()
		return nil, nil, fmt.Errorf("course %s has no content", courseID)
	}
	lg.Debug("session opened", "course_id", courseID, "item_id", res.Entry.Item.ID, "source", res.Source)
	return s, func() { s.Close(); closeStore() }, nil
}

func play(ctx context.Context, api *client.Client, cfg config.ClientConfig, lg *logger.Logger, args []string) error {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	courseID := fs.String("course", "", "course id")
	itemID := fs.String("item", "", "deep link to a content item")
	step := fs.String("step", "", "next|prev")
	_ = fs.Parse(args)

	s, done, err := openSession(ctx, api, cfg, lg, *courseID, *itemID)
	if err != nil {
		return err
	}
	defer done()

	switch *step {
	case "":
	case "next":
		if _, moved, err := s.Next(ctx); err != nil {
			return err
		} else if !moved {
			fmt.Fprintln(os.Stderr, "already at the last item")
		}
	case "prev":
		if _, moved, err := s.Previous(ctx); err != nil {
			return err
		} else if !moved {
			fmt.Fprintln(os.Stderr, "already at the first item")
		}
	default:
		return fmt.Errorf("unknown step %q", *step)
	}

	fmt.Printf("%s  %d/%d (%d%%)\n", s.Title(), s.Step(), s.Total(), s.Progress())
	plan, ok := s.Plan()
	if !ok {
		return nil
	}
	return printJSON(plan)
}

func quiz(ctx context.Context, api *client.Client, cfg config.ClientConfig, lg *logger.Logger, args []string) error {
	fs := flag.NewFlagSet("quiz", flag.ExitOnError)
	courseID := fs.String("course", "", "course id")
	itemID := fs.String("item", "", "evaluation id")
	answers := fs.String("answers", "", "comma-separated questionId=answerId pairs")
	_ = fs.Parse(args)

	s, done, err := openSession(ctx, api, cfg, lg, *courseID, *itemID)
	if err != nil {
		return err
	}
	defer done()

	ev, err := s.BeginEvaluation(ctx)
	if err != nil {
		return err
	}
	if *answers == "" {
		return printJSON(ev)
	}
	for _, pair := range strings.Split(*answers, ",") {
		q, a, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return fmt.Errorf("bad answer %q, want questionId=answerId", pair)
		}
		if err := s.Choose(q, a); err != nil {
			return err
		}
	}
	res, err := s.SubmitEvaluation(ctx)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
