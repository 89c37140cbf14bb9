// Command fitkeeper is a CLI for the workout tracking core: a local
// offline-first store with a Firestore mirror.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"

	"github.com/and161185/fitkeeper/internal/clock"
	"github.com/and161185/fitkeeper/internal/config"
	"github.com/and161185/fitkeeper/internal/errs"
	fsmirror "github.com/and161185/fitkeeper/internal/mirror/firestore"
	"github.com/and161185/fitkeeper/internal/model"
	"github.com/and161185/fitkeeper/internal/repository/sqlite"
	"github.com/and161185/fitkeeper/internal/service"
	"github.com/and161185/fitkeeper/internal/syncer"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `fitkeeper CLI
Usage:
  fitkeeper [-db file] <cmd> [args]

Commands:
  version
  signin          -token <id-token> [-provider google|facebook|email]
  whoami
  profile         -name <display name> [-photo url] [-bodypart name]
  start           [-name <workout name>] [-category <id>]
  start-template  -template <id>
  add-set         -exercise <id> [-category <name>] -weight <kg> -reps <n> [-type normal|warmup|dropset|failure]
  finish
  cancel
  list
  stats
  achievements
  category-add    -name <name> [-color hex]
  category-list
  category-edit   -id <id> -name <name> [-color hex]
  category-rm     -id <id>
  template-add    -name <name> [-category <id>]
  template-list
  template-rm     -id <id>
  sync
`)
	os.Exit(2)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// main wires the store, mirror and services, then dispatches subcommands.
func main() {
	dbPath := flag.String("db", "", "SQLite database file (overrides FITKEEPER_DB)")
	project := flag.String("project", "", "Firestore project (overrides FITKEEPER_FIRESTORE_PROJECT)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd := flag.Arg(0)

	if cmd == "version" {
		fmt.Printf("fitkeeper %s (%s)\n", version, buildDate)
		return
	}

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *project != "" {
		cfg.FirestoreProject = *project
	}
	if cfg.FirestoreProject == "" {
		logger.Fatal("missing Firestore project (set FITKEEPER_FIRESTORE_PROJECT or -project)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer store.Close()

	fsClient, err := firestore.NewClient(ctx, cfg.FirestoreProject)
	if err != nil {
		logger.Fatal("firestore client", zap.Error(err))
	}
	defer fsClient.Close()
	mirror := fsmirror.New(fsClient, cfg.CollectionPrefix)

	coord := syncer.New(store, mirror, logger, cfg.SyncDebounce)
	coord.Start(ctx)

	hydrator := service.NewHydrator(mirror, store)
	clk := clock.System{}
	users := service.NewUserService(store, store, store, hydrator, coord, clk, logger)
	workouts := service.NewWorkoutService(store, store, store, coord, clk, logger, cfg.CompletionXP)
	categories := service.NewCategoryService(store, store, store, coord, logger)
	templates := service.NewTemplateService(store, coord)

	if err := dispatch(ctx, cmd, store, users, workouts, categories, templates, coord); err != nil {
		fail(err)
	}

	// One-shot process: flush whatever the debounce window still holds.
	if err := coord.PushDirty(ctx); err != nil {
		logger.Warn("final push", zap.Error(err))
	}
	stop()
	coord.Wait()
}

// currentUser resolves the locally signed-in user.
func currentUser(ctx context.Context, store *sqlite.Store) (string, error) {
	id, err := store.GetAnyUserID(ctx)
	if errors.Is(err, errs.ErrNotFound) {
		return "", errors.New("not signed in (run: fitkeeper signin)")
	}
	return id, err
}

func dispatch(
	ctx context.Context,
	cmd string,
	store *sqlite.Store,
	users service.UserService,
	workouts service.WorkoutService,
	categories service.CategoryService,
	templates service.TemplateService,
	coord *syncer.Coordinator,
) error {
	switch cmd {

	case "signin":
		fs := flag.NewFlagSet("signin", flag.ExitOnError)
		token := fs.String("token", "", "provider-issued ID token")
		provider := fs.String("provider", "google", "identity provider")
		_ = fs.Parse(flag.Args()[1:])
		if *token == "" {
			return errors.New("need -token")
		}
		agg, err := users.SignIn(ctx, *token, model.Provider(*provider))
		if err != nil {
			return err
		}
		printJSON(agg.Profile)
		return nil

	case "whoami":
		uid, err := currentUser(ctx, store)
		if err != nil {
			return err
		}
		agg, err := users.Aggregate(ctx, uid)
		if err != nil {
			return err
		}
		printJSON(agg)
		return nil

	case "profile":
		fs := flag.NewFlagSet("profile", flag.ExitOnError)
		name := fs.String("name", "", "display name")
		photo := fs.String("photo", "", "photo URL")
		bodypart := fs.String("bodypart", "", "favorite body part")
		_ = fs.Parse(flag.Args()[1:])
		uid, err := currentUser(ctx, store)
		if err != nil {
			return err
		}
		p, err := users.UpdateProfile(ctx, uid, *name, *photo, *bodypart)
		if err != nil {
			return err
		}
		printJSON(p)
		return nil

	case "start":
		fs := flag.NewFlagSet("start", flag.ExitOnError)
		name := fs.String("name", "Workout", "workout name")
		category := fs.String("category", "", "category id")
		_ = fs.Parse(flag.Args()[1:])
		uid, err := currentUser(ctx, store)
		if err != nil {
			return err
		}
		w, err := workouts.Start(ctx, uid, *name, "", *category)
		if err != nil {
			return err
		}
		printJSON(w)
		return nil

	case "start-template":
		fs := flag.NewFlagSet("start-template", flag.ExitOnError)
		id := fs.String("template", "", "template id")
		_ = fs.Parse(flag.Args()[1:])
		if *id == "" {
			return errors.New("need -template")
		}
		uid, err := currentUser(ctx, store)
		if err != nil {
			return err
		}
		t, err := templates.Get(ctx, *id)
		if err != nil {
			return err
		}
		w, err := workouts.StartFromTemplate(ctx, uid, t)
		if err != nil {
			return err
		}
		printJSON(w)
		return nil

	case "add-set":
		fs := flag.NewFlagSet("add-set", flag.ExitOnError)
		exercise := fs.String("exercise", "", "exercise id")
		category := fs.String("category", "", "exercise category")
		weight := fs.Float64("weight", 0, "weight, kg")
		reps := fs.Int("reps", 0, "repetitions")
		setType := fs.String("type", "normal", "set type")
		_ = fs.Parse(flag.Args()[1:])
		if *exercise == "" {
			return errors.New("need -exercise")
		}
		uid, err := currentUser(ctx, store)
		if err != nil {
			return err
		}
		w, err := workouts.AddSet(ctx, uid, *exercise, *category, model.Set{
			Type:   model.SetType(*setType),
			Weight: *weight,
			Reps:   *reps,
		})
		if err != nil {
			return err
		}
		printJSON(w)
		return nil

	case "finish":
		uid, err := currentUser(ctx, store)
		if err != nil {
			return err
		}
		res, err := workouts.Finish(ctx, uid)
		if err != nil {
			return err
		}
		fmt.Printf("finished %s: +%d XP, level %d\n", res.Workout.Name, res.XPAwarded, res.Stats.Level)
		for _, def := range res.Unlocked {
			fmt.Printf("unlocked: %s (%s)\n", def.Title, def.Description)
		}
		return nil

	case "cancel":
		uid, err := currentUser(ctx, store)
		if err != nil {
			return err
		}
		return workouts.Cancel(ctx, uid)

	case "list":
		uid, err := currentUser(ctx, store)
		if err != nil {
			return err
		}
		ws, err := workouts.List(ctx, uid)
		if err != nil {
			return err
		}
		for _, w := range ws {
			state := "done"
			if w.InProgress() {
				state = "open"
			}
			fmt.Printf("%s  %-4s %-20s %s\n", w.ID, state, w.Name, w.StartedAt.Format("2006-01-02 15:04"))
		}
		return nil

	case "stats":
		uid, err := currentUser(ctx, store)
		if err != nil {
			return err
		}
		st, err := store.GetStatsByUser(ctx, uid)
		if err != nil {
			return err
		}
		printJSON(st)
		return nil

	case "achievements":
		uid, err := currentUser(ctx, store)
		if err != nil {
			return err
		}
		rows, err := workouts.Progress(ctx, uid)
		if err != nil {
			return err
		}
		for _, r := range rows {
			mark := " "
			if r.Completed {
				mark = "x"
			}
			fmt.Printf("[%s] %-24s %d\n", mark, r.AchievementID, r.Current)
		}
		return nil

	case "category-add":
		fs := flag.NewFlagSet("category-add", flag.ExitOnError)
		name := fs.String("name", "", "category name")
		color := fs.String("color", "#9E9E9E", "hex color")
		_ = fs.Parse(flag.Args()[1:])
		uid, err := currentUser(ctx, store)
		if err != nil {
			return err
		}
		c, err := categories.Add(ctx, uid, *name, *color)
		if err != nil {
			return err
		}
		printJSON(c)
		return nil

	case "category-list":
		uid, err := currentUser(ctx, store)
		if err != nil {
			return err
		}
		cs, err := categories.List(ctx, uid)
		if err != nil {
			return err
		}
		for _, c := range cs {
			fmt.Printf("%s  %-12s %s\n", c.ID, c.Name, c.Color)
		}
		return nil

	case "category-edit":
		fs := flag.NewFlagSet("category-edit", flag.ExitOnError)
		id := fs.String("id", "", "category id")
		name := fs.String("name", "", "category name")
		color := fs.String("color", "#9E9E9E", "hex color")
		_ = fs.Parse(flag.Args()[1:])
		if *id == "" {
			return errors.New("need -id")
		}
		c, err := categories.Update(ctx, *id, *name, *color)
		if err != nil {
			return err
		}
		printJSON(c)
		return nil

	case "category-rm":
		fs := flag.NewFlagSet("category-rm", flag.ExitOnError)
		id := fs.String("id", "", "category id")
		_ = fs.Parse(flag.Args()[1:])
		if *id == "" {
			return errors.New("need -id")
		}
		uid, err := currentUser(ctx, store)
		if err != nil {
			return err
		}
		return categories.Delete(ctx, uid, *id)

	case "template-add":
		fs := flag.NewFlagSet("template-add", flag.ExitOnError)
		name := fs.String("name", "", "template name")
		category := fs.String("category", "", "category id")
		exercises := fs.String("exercises", "", "comma-separated exercise ids")
		_ = fs.Parse(flag.Args()[1:])
		uid, err := currentUser(ctx, store)
		if err != nil {
			return err
		}
		var exs []model.TemplateExercise
		for _, e := range strings.Split(*exercises, ",") {
			if e = strings.TrimSpace(e); e != "" {
				exs = append(exs, model.TemplateExercise{ExerciseID: e})
			}
		}
		t, err := templates.Add(ctx, uid, *name, *category, exs)
		if err != nil {
			return err
		}
		printJSON(t)
		return nil

	case "template-list":
		uid, err := currentUser(ctx, store)
		if err != nil {
			return err
		}
		ts, err := templates.List(ctx, uid)
		if err != nil {
			return err
		}
		for _, t := range ts {
			fmt.Printf("%s  %-20s exercises=%s\n", t.ID, t.Name, strconv.Itoa(len(t.Exercises)))
		}
		return nil

	case "template-rm":
		fs := flag.NewFlagSet("template-rm", flag.ExitOnError)
		id := fs.String("id", "", "template id")
		_ = fs.Parse(flag.Args()[1:])
		if *id == "" {
			return errors.New("need -id")
		}
		return templates.Delete(ctx, *id)

	case "sync":
		uid, err := currentUser(ctx, store)
		if err != nil {
			return err
		}
		if err := coord.ForceFullSync(ctx, uid); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil

	default:
		usage()
		return nil
	}
}
