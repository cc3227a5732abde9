package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/walidbr/stockdeck/internal/alerts"
	"github.com/walidbr/stockdeck/internal/api"
	"github.com/walidbr/stockdeck/internal/session"
	"github.com/walidbr/stockdeck/pkg/config"
	"github.com/walidbr/stockdeck/pkg/enums"
	"github.com/walidbr/stockdeck/pkg/keystore"
	"github.com/walidbr/stockdeck/pkg/logger"
)

const usage = `usage: stockctl <command> [flags]

commands:
  login        authenticate and store the credential
  logout       clear the stored credential
  whoami       show the resolved identity
  alerts       list low-stock alerts
  seen         mark one alert seen (-id)
  seen-all     mark every unseen alert seen
  dashboard    show the overview stats
  items        list inventory items
  item-add     create an item (-name -category -quantity -unit -threshold)
  item-update  update an item (-id plus item-add flags)
  item-rm      delete an item (-id)
  categories   list categories
  category-add create a category (-name -description -icon)
  category-update update a category (-id -name -description -icon)
  category-rm  delete a category (-id)
  users        list dashboard users
  user-add     create a user (-first-name -last-name -email -password -role)
  user-rm      delete a user (-id)
  activities   show the activity feed
  profile      update own profile (-first-name -last-name -phone -bio)
  settings     update dashboard settings (-language -theme -alerts-mail)
`

type app struct {
	cfg      *config.Config
	logg     *logger.Logger
	store    *keystore.Store
	client   *api.Client
	sessions *session.Manager
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	logg := logger.New(logger.Options{ServiceName: "stockctl"})
	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "stockctl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	store, err := keystore.Open(cfg.Keystore.Path)
	requireResource(logg, "keystore", err)
	defer store.Close()

	client, err := api.NewClient(cfg.API.BaseURL, store, logg, api.WithTimeout(cfg.API.Timeout))
	requireResource(logg, "api client", err)

	sessions, err := session.NewManager(session.ManagerParams{
		Store:  store,
		Client: client,
		Logger: logg,
	})
	requireResource(logg, "session manager", err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{cfg: cfg, logg: logg, store: store, client: client, sessions: sessions}
	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "stockctl: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.sessions.Logout(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "alerts":
		return a.listAlerts(ctx, args)
	case "seen":
		return a.markSeen(ctx, args)
	case "seen-all":
		return a.markAllSeen(ctx)
	case "dashboard":
		return a.showDashboard(ctx)
	case "items":
		return a.listItems(ctx)
	case "item-add":
		return a.addItem(ctx, args)
	case "item-update":
		return a.updateItem(ctx, args)
	case "item-rm":
		return deleteByID(ctx, args, "item-rm", a.client.DeleteItem)
	case "categories":
		return a.listCategories(ctx)
	case "category-add":
		return a.addCategory(ctx, args)
	case "category-update":
		return a.updateCategory(ctx, args)
	case "category-rm":
		return deleteByID(ctx, args, "category-rm", a.client.DeleteCategory)
	case "users":
		return a.listUsers(ctx)
	case "user-add":
		return a.addUser(ctx, args)
	case "user-rm":
		return deleteByID(ctx, args, "user-rm", a.client.DeleteUser)
	case "activities":
		return a.listActivities(ctx)
	case "profile":
		return a.updateProfile(ctx, args)
	case "settings":
		return a.updateSettings(ctx, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	remember := fs.Bool("remember", false, "extend credential lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.sessions.Login(ctx, *email, *password, *remember); err != nil {
		return err
	}
	user := a.sessions.CurrentUser()
	if user == nil {
		return fmt.Errorf("login succeeded but identity resolution failed; try again")
	}
	fmt.Printf("logged in as %s %s <%s> (%s)\n", user.FirstName, user.LastName, user.Email, user.Role)
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	a.sessions.Resolve(ctx)
	user := a.sessions.CurrentUser()
	if user == nil {
		fmt.Println("anonymous (no valid credential)")
		return nil
	}
	caps := a.sessions.Capabilities()
	fmt.Printf("%s %s <%s>\n", user.FirstName, user.LastName, user.Email)
	fmt.Printf("role: %s\n", user.Role)
	fmt.Printf("capabilities: inventory=%t users=%t settings=%t activity=%t\n",
		caps.ManageInventory, caps.ManageUsers, caps.ManageSettings, caps.ViewActivity)
	return nil
}

func (a *app) listAlerts(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("alerts", flag.ExitOnError)
	unseenOnly := fs.Bool("unseen", false, "show only unseen alerts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list, err := a.client.ListAlerts(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRODUCT\tSEEN\tMESSAGE")
	for _, alert := range list {
		if *unseenOnly && alert.Seen {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", alert.ID, alert.ProductName, alert.Seen, alert.Message)
	}
	return w.Flush()
}

func (a *app) markSeen(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("seen", flag.ExitOnError)
	id := fs.String("id", "", "alert id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.client.MarkAlertSeen(ctx, *id); err != nil {
		return err
	}
	fmt.Println("alert marked seen")
	return nil
}

func (a *app) markAllSeen(ctx context.Context) error {
	tracker, err := alerts.NewTracker(alerts.TrackerParams{
		Client: a.client,
		Logger: a.logg,
	})
	if err != nil {
		return err
	}
	if err := tracker.Fetch(ctx); err != nil {
		return err
	}
	switch err := tracker.MarkAllSeen(ctx); err {
	case nil:
		fmt.Println("all alerts marked seen")
		return nil
	case alerts.ErrNothingUnseen:
		fmt.Println("nothing unseen")
		return nil
	default:
		return err
	}
}

func (a *app) listItems(ctx context.Context) error {
	items, err := a.client.ListItems(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tQTY\tUNIT\tCATEGORY\tLOW")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n",
			item.ID, item.Name, item.Quantity, item.Unit, item.Category.Name, item.LowStock())
	}
	return w.Flush()
}

// itemFlags binds the shared item mutation flags onto fs and returns a
// closure that assembles the input after parsing.
func itemFlags(fs *flag.FlagSet) func() (api.ItemInput, error) {
	name := fs.String("name", "", "item name")
	description := fs.String("description", "", "item description")
	category := fs.String("category", "", "category id")
	quantity := fs.String("quantity", "0", "stock quantity")
	unit := fs.String("unit", string(enums.UnitPieces), "unit: pcs|kg|L")
	threshold := fs.String("threshold", "0", "low stock threshold")

	return func() (api.ItemInput, error) {
		qty, err := decimal.NewFromString(*quantity)
		if err != nil {
			return api.ItemInput{}, fmt.Errorf("invalid -quantity: %w", err)
		}
		thr, err := decimal.NewFromString(*threshold)
		if err != nil {
			return api.ItemInput{}, fmt.Errorf("invalid -threshold: %w", err)
		}
		return api.ItemInput{
			Name:              *name,
			Description:       *description,
			Quantity:          qty,
			Unit:              enums.Unit(*unit),
			CategoryID:        *category,
			LowStockThreshold: thr,
		}, nil
	}
}

func (a *app) addItem(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("item-add", flag.ExitOnError)
	input := itemFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	in, err := input()
	if err != nil {
		return err
	}
	created, err := a.client.CreateItem(ctx, in)
	if err != nil {
		return err
	}
	fmt.Printf("created item %s (%s)\n", created.Name, created.ID)
	return nil
}

func (a *app) updateItem(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("item-update", flag.ExitOnError)
	id := fs.String("id", "", "item id")
	input := itemFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	in, err := input()
	if err != nil {
		return err
	}
	updated, err := a.client.UpdateItem(ctx, *id, in)
	if err != nil {
		return err
	}
	fmt.Printf("updated item %s (%s)\n", updated.Name, updated.ID)
	return nil
}

func (a *app) listCategories(ctx context.Context) error {
	categories, err := a.client.ListCategories(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
	for _, category := range categories {
		fmt.Fprintf(w, "%s\t%s\t%s\n", category.ID, category.Name, category.Description)
	}
	return w.Flush()
}

func (a *app) addCategory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("category-add", flag.ExitOnError)
	name := fs.String("name", "", "category name")
	description := fs.String("description", "", "category description")
	icon := fs.String("icon", "", "category icon")
	if err := fs.Parse(args); err != nil {
		return err
	}

	created, err := a.client.CreateCategory(ctx, api.CategoryInput{
		Name:        *name,
		Description: *description,
		Icon:        *icon,
	})
	if err != nil {
		return err
	}
	fmt.Printf("created category %s (%s)\n", created.Name, created.ID)
	return nil
}

func (a *app) updateCategory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("category-update", flag.ExitOnError)
	id := fs.String("id", "", "category id")
	name := fs.String("name", "", "category name")
	description := fs.String("description", "", "category description")
	icon := fs.String("icon", "", "category icon")
	if err := fs.Parse(args); err != nil {
		return err
	}

	updated, err := a.client.UpdateCategory(ctx, *id, api.CategoryInput{
		Name:        *name,
		Description: *description,
		Icon:        *icon,
	})
	if err != nil {
		return err
	}
	fmt.Printf("updated category %s (%s)\n", updated.Name, updated.ID)
	return nil
}

func (a *app) showDashboard(ctx context.Context) error {
	dashboard, err := a.client.FetchDashboard(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("items: %d (%s units)\n", dashboard.Stats.TotalItems, dashboard.Stats.TotalQuantity)
	fmt.Printf("low stock: %d\n", dashboard.Stats.LowStockCount)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tSTOCK")
	for _, row := range dashboard.Charts.StockByCategory {
		fmt.Fprintf(w, "%s\t%s\n", row.Category, row.Stock)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, activity := range dashboard.Panels.Activities {
		actor := "unknown"
		if activity.Actor != nil {
			actor = activity.Actor.Name
		}
		fmt.Printf("recent: %s %s\n", actor, activity.Action)
	}
	for _, alert := range dashboard.Panels.Alerts {
		fmt.Printf("alert: %s (%s)\n", alert.Message, alert.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func (a *app) addUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("user-add", flag.ExitOnError)
	firstName := fs.String("first-name", "", "first name")
	lastName := fs.String("last-name", "", "last name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (min 6 chars)")
	role := fs.String("role", string(enums.RoleEmploye), "role: superadmin|admin|employe")
	if err := fs.Parse(args); err != nil {
		return err
	}

	parsed, err := enums.ParseRole(*role)
	if err != nil {
		return err
	}
	created, err := a.client.CreateUser(ctx, api.UserInput{
		FirstName: *firstName,
		LastName:  *lastName,
		Email:     *email,
		Password:  *password,
		Role:      parsed,
	})
	if err != nil {
		return err
	}
	fmt.Printf("created user %s %s (%s)\n", created.FirstName, created.LastName, created.ID)
	return nil
}

func (a *app) listUsers(ctx context.Context) error {
	users, err := a.client.ListUsers(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE")
	for _, user := range users {
		fmt.Fprintf(w, "%s\t%s %s\t%s\t%s\n", user.ID, user.FirstName, user.LastName, user.Email, user.Role)
	}
	return w.Flush()
}

func (a *app) listActivities(ctx context.Context) error {
	activities, err := a.client.ListActivities(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tWHO\tACTION")
	for _, activity := range activities {
		actor := "unknown"
		if activity.Actor != nil {
			actor = activity.Actor.FirstName
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", activity.Timestamp.Format("2006-01-02 15:04"), actor, activity.Action)
	}
	return w.Flush()
}

func (a *app) updateProfile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	firstName := fs.String("first-name", "", "first name")
	lastName := fs.String("last-name", "", "last name")
	phone := fs.String("phone", "", "phone number")
	bio := fs.String("bio", "", "short bio")
	avatarPath := fs.String("avatar", "", "path to a profile image")
	if err := fs.Parse(args); err != nil {
		return err
	}

	input := api.ProfileInput{
		FirstName: *firstName,
		LastName:  *lastName,
		Phone:     *phone,
		Bio:       *bio,
	}

	var updated *api.User
	if *avatarPath != "" {
		file, err := os.Open(*avatarPath)
		if err != nil {
			return fmt.Errorf("open avatar: %w", err)
		}
		defer file.Close()
		updated, err = a.client.UpdateProfile(ctx, input, file, filepath.Base(*avatarPath))
		if err != nil {
			return err
		}
	} else {
		var err error
		updated, err = a.client.UpdateProfile(ctx, input, nil, "")
		if err != nil {
			return err
		}
	}

	a.sessions.Resolve(ctx)
	a.sessions.UpdateUser(session.UserPatch{
		FirstName:    &updated.FirstName,
		LastName:     &updated.LastName,
		Phone:        &updated.Phone,
		Bio:          &updated.Bio,
		ProfileImage: &updated.ProfileImage,
	})
	fmt.Printf("profile updated for %s %s\n", updated.FirstName, updated.LastName)
	return nil
}

func (a *app) updateSettings(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("settings", flag.ExitOnError)
	language := fs.String("language", "", "dashboard language")
	theme := fs.String("theme", "", "dashboard theme")
	alertsMail := fs.String("alerts-mail", "", "email alerts: true|false")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var input api.SettingsInput
	if *language != "" {
		input.Language = language
	}
	if *theme != "" {
		input.Theme = theme
	}
	switch *alertsMail {
	case "":
	case "true":
		v := true
		input.AlertsByMail = &v
	case "false":
		v := false
		input.AlertsByMail = &v
	default:
		return fmt.Errorf("invalid -alerts-mail value %q", *alertsMail)
	}
	if input.Language == nil && input.Theme == nil && input.AlertsByMail == nil {
		return fmt.Errorf("nothing to update")
	}

	if err := a.client.UpdateSystemSettings(ctx, input); err != nil {
		return err
	}
	fmt.Println("settings updated")
	return nil
}

func deleteByID(ctx context.Context, args []string, name string, del func(context.Context, string) error) error {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	id := fs.String("id", "", "record id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := del(ctx, *id); err != nil {
		return err
	}
	fmt.Println("deleted")
	return nil
}

func requireResource(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to bootstrap "+resource, err)
	os.Exit(1)
}
