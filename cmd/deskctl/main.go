// deskctl drives the helpdesk client store from the command line. It is the
// stand-in for the web UI: it only invokes store operations and reads slice
// state, exactly like any other presentation layer would.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/go-playground/validator/v10"

	"github.com/smarthelp/deskclient/internal/common"
	"github.com/smarthelp/deskclient/internal/kbsearch"
	"github.com/smarthelp/deskclient/internal/model"
	"github.com/smarthelp/deskclient/internal/observability"
	"github.com/smarthelp/deskclient/internal/store"
)

// Slices do not re-validate inputs; required-field presence is enforced
// here, at the caller boundary.
var validate = validator.New()

func main() {
	cfg := common.LoadConfig()
	common.InitLogger(cfg)
	defer func() { _ = common.Logger.Sync() }()

	shutdown, err := observability.InitTracing(common.ProjectName)
	if err == nil {
		defer func() { _ = shutdown(context.Background()) }()
	}
	observability.InitMetrics(common.ProjectName, cfg.MetricsAddr)

	timeout := flag.Duration("timeout", 60*time.Second, "overall command timeout")
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	st, err := store.FromConfig(cfg)
	if err != nil {
		color.Red("init: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, st, args); err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: deskctl [flags] <command>

commands:
  login <email> <password>
  register -name N -email E -password P [-role user|agent|admin]
  logout
  whoami
  tickets list [-status S] [-mine] [-q QUERY]
  tickets create -title T -description D [-category C]
  tickets show <id>
  tickets reply <id> -m MESSAGE [-close] [-reopen]
  tickets assign <id> <assignee-id>
  tickets suggest <id>
  tickets edit-suggestion <suggestion-id> [-reply R] [-articles a,b,c]
  tickets audit <id>
  kb list [-q QUERY] [-status draft|published]
  kb search <query>
  kb create -title T -body B [-tags a,b] [-status draft|published]
  kb update <id> -title T -body B [-tags a,b] [-status draft|published]
  kb delete <id>
  config show
  config set [-auto-close=BOOL] [-threshold F] [-sla H]
`)
	flag.PrintDefaults()
}

func run(ctx context.Context, st *store.Store, args []string) error {
	switch args[0] {
	case "login":
		return cmdLogin(ctx, st, args[1:])
	case "register":
		return cmdRegister(ctx, st, args[1:])
	case "logout":
		st.Session.Logout()
		color.Green("logged out")
		return nil
	case "whoami":
		return cmdWhoami(st)
	case "tickets":
		return cmdTickets(ctx, st, args[1:])
	case "kb":
		return cmdKB(ctx, st, args[1:])
	case "config":
		return cmdConfig(ctx, st, args[1:])
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func cmdLogin(ctx context.Context, st *store.Store, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("login needs <email> <password>")
	}
	u, err := st.Session.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	color.Green("signed in as %s (%s)", u.Name, u.Role)
	return nil
}

func cmdRegister(ctx context.Context, st *store.Store, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	role := fs.String("role", "", "requested role")
	if err := fs.Parse(args); err != nil {
		return err
	}
	in := store.RegisterInput{Name: *name, Email: *email, Password: *password, Role: model.Role(*role)}
	if err := validate.Struct(in); err != nil {
		return err
	}
	u, err := st.Session.Register(ctx, in)
	if err != nil {
		return err
	}
	color.Green("registered %s (%s)", u.Email, u.Role)
	return nil
}

func cmdWhoami(st *store.Store) error {
	u := st.Session.CurrentUser()
	if u == nil {
		color.Yellow("not signed in")
		return nil
	}
	fmt.Printf("%s <%s> role=%s\n", u.Name, u.Email, u.Role)
	return nil
}

func cmdTickets(ctx context.Context, st *store.Store, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("tickets needs a subcommand")
	}
	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("tickets list", flag.ContinueOnError)
		status := fs.String("status", "", "server-side status filter")
		mine := fs.Bool("mine", false, "only tickets created by me")
		query := fs.String("q", "", "local title filter")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if _, err := st.Tickets.FetchAll(ctx, store.TicketFilter{Status: model.TicketStatus(*status), Mine: *mine}); err != nil {
			return err
		}
		visible := store.VisibleTickets(st.Tickets.Tickets(), st.Session.CurrentUser())
		for _, t := range store.FilterTickets(visible, *query, store.StatusAll) {
			printTicket(t)
		}
		printCounts(store.CountByStatus(visible))
		return nil
	case "create":
		fs := flag.NewFlagSet("tickets create", flag.ContinueOnError)
		title := fs.String("title", "", "ticket title")
		desc := fs.String("description", "", "problem description")
		category := fs.String("category", "", "billing|tech|shipping|other")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		in := store.CreateTicketInput{Title: *title, Description: *desc, Category: model.TicketCategory(*category)}
		if err := validate.Struct(in); err != nil {
			return err
		}
		t, suggestion, err := st.Tickets.Create(ctx, in)
		if err != nil {
			return err
		}
		color.Green("created ticket %s", t.ID)
		if suggestion != nil {
			fmt.Printf("AI draft (confidence %.2f):\n%s\n", suggestion.Confidence, suggestion.DraftReply)
		} else {
			color.Yellow("no AI suggestion available yet")
		}
		return nil
	case "show":
		if len(args) < 2 {
			return fmt.Errorf("tickets show needs <id>")
		}
		d, err := st.Tickets.FetchDetail(ctx, args[1])
		if err != nil {
			return err
		}
		printTicket(d.Ticket)
		fmt.Println(d.Ticket.Description)
		if d.Suggestion != nil {
			fmt.Printf("suggestion %s: %s\n", d.Suggestion.ID, d.Suggestion.DraftReply)
		}
		return nil
	case "reply":
		if len(args) < 2 {
			return fmt.Errorf("tickets reply needs <id>")
		}
		fs := flag.NewFlagSet("tickets reply", flag.ContinueOnError)
		msg := fs.String("m", "", "reply message")
		closeIt := fs.Bool("close", false, "close the ticket")
		reopen := fs.Bool("reopen", false, "reopen the ticket")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		in := store.ReplyInput{Message: *msg, Close: *closeIt, Reopen: *reopen}
		if err := validate.Struct(in); err != nil {
			return err
		}
		if err := st.Tickets.Reply(ctx, args[1], in); err != nil {
			return err
		}
		color.Green("reply sent")
		return nil
	case "assign":
		if len(args) < 3 {
			return fmt.Errorf("tickets assign needs <id> <assignee-id>")
		}
		if caps := currentCaps(st); !caps.CanAssignTickets {
			return fmt.Errorf("current role cannot assign tickets")
		}
		t, err := st.Tickets.Assign(ctx, args[1], args[2])
		if err != nil {
			return err
		}
		color.Green("assigned %s to %s", t.ID, t.Assignee)
		return nil
	case "suggest":
		if len(args) < 2 {
			return fmt.Errorf("tickets suggest needs <id>")
		}
		s, err := st.Tickets.FetchSuggestion(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("suggestion %s category=%s confidence=%.2f\n%s\n", s.ID, s.PredictedCategory, s.Confidence, s.DraftReply)
		return nil
	case "edit-suggestion":
		if len(args) < 2 {
			return fmt.Errorf("tickets edit-suggestion needs <suggestion-id>")
		}
		if caps := currentCaps(st); !caps.CanEditSuggestions {
			return fmt.Errorf("current role cannot edit suggestions")
		}
		fs := flag.NewFlagSet("tickets edit-suggestion", flag.ContinueOnError)
		reply := fs.String("reply", "", "new draft reply")
		articles := fs.String("articles", "", "comma-separated article ids")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		var in store.UpdateSuggestionInput
		if *reply != "" {
			in.DraftReply = reply
		}
		if *articles != "" {
			in.ArticleIDs = strings.Split(*articles, ",")
		}
		s, err := st.Tickets.UpdateSuggestion(ctx, args[1], in)
		if err != nil {
			return err
		}
		color.Green("suggestion %s updated", s.ID)
		return nil
	case "audit":
		if len(args) < 2 {
			return fmt.Errorf("tickets audit needs <id>")
		}
		logs, err := st.Tickets.FetchAudit(ctx, args[1])
		if err != nil {
			return err
		}
		for _, l := range logs {
			fmt.Printf("%s %-8s %s\n", l.Timestamp.Format(time.RFC3339), l.Actor, l.Action)
		}
		return nil
	default:
		return fmt.Errorf("unknown tickets subcommand %q", args[0])
	}
}

func cmdKB(ctx context.Context, st *store.Store, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("kb needs a subcommand")
	}
	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("kb list", flag.ContinueOnError)
		query := fs.String("q", "", "server-side query")
		status := fs.String("status", "", "draft|published")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		articles, err := st.KnowledgeBase.FetchAll(ctx, store.ArticleFilter{Query: *query, Status: model.ArticleStatus(*status)})
		if err != nil {
			return err
		}
		for _, a := range articles {
			fmt.Printf("%s  [%s]  %s  (%s)\n", a.ID, a.Status, a.Title, strings.Join(a.Tags, ","))
		}
		return nil
	case "search":
		if len(args) < 2 {
			return fmt.Errorf("kb search needs <query>")
		}
		// Local relevance search over the fetched collection.
		if _, err := st.KnowledgeBase.FetchAll(ctx, store.ArticleFilter{}); err != nil {
			return err
		}
		index := kbsearch.New()
		index.Rebuild(st.KnowledgeBase.Articles())
		for _, hit := range index.Search(strings.Join(args[1:], " "), 10) {
			fmt.Printf("%6.2f  %s  %s\n", hit.Score, hit.ID, hit.Title)
		}
		return nil
	case "create", "update":
		if caps := currentCaps(st); !caps.CanManageArticles {
			return fmt.Errorf("current role cannot manage articles")
		}
		sub := args[0]
		rest := args[1:]
		id := ""
		if sub == "update" {
			if len(rest) == 0 {
				return fmt.Errorf("kb update needs <id>")
			}
			id, rest = rest[0], rest[1:]
		}
		fs := flag.NewFlagSet("kb "+sub, flag.ContinueOnError)
		title := fs.String("title", "", "article title")
		body := fs.String("body", "", "article body")
		tags := fs.String("tags", "", "comma-separated tags")
		status := fs.String("status", string(model.ArticleDraft), "draft|published")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		in := store.ArticleInput{Title: *title, Body: *body, Status: model.ArticleStatus(*status)}
		if *tags != "" {
			in.Tags = strings.Split(*tags, ",")
		}
		if err := validate.Struct(in); err != nil {
			return err
		}
		var a *model.Article
		var err error
		if sub == "create" {
			a, err = st.KnowledgeBase.Create(ctx, in)
		} else {
			a, err = st.KnowledgeBase.Update(ctx, id, in)
		}
		if err != nil {
			return err
		}
		color.Green("%sd article %s", sub, a.ID)
		return nil
	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("kb delete needs <id>")
		}
		if caps := currentCaps(st); !caps.CanManageArticles {
			return fmt.Errorf("current role cannot manage articles")
		}
		if err := st.KnowledgeBase.Delete(ctx, args[1]); err != nil {
			return err
		}
		color.Green("deleted %s", args[1])
		return nil
	default:
		return fmt.Errorf("unknown kb subcommand %q", args[0])
	}
}

func cmdConfig(ctx context.Context, st *store.Store, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("config needs a subcommand")
	}
	switch args[0] {
	case "show":
		cfg, err := st.Config.Fetch(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("autoClose=%v threshold=%.2f slaHours=%d\n", cfg.AutoCloseEnabled, cfg.ConfidenceThreshold, cfg.SLAHours)
		return nil
	case "set":
		if caps := currentCaps(st); !caps.CanEditConfig {
			return fmt.Errorf("current role cannot edit the configuration")
		}
		fs := flag.NewFlagSet("config set", flag.ContinueOnError)
		autoClose := fs.String("auto-close", "", "true|false")
		threshold := fs.Float64("threshold", -1, "confidence threshold in [0,1]")
		sla := fs.Int("sla", 0, "SLA hours (> 0)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		var in store.UpdateConfigInput
		if *autoClose != "" {
			v := *autoClose == "true"
			in.AutoCloseEnabled = &v
		}
		if *threshold >= 0 {
			in.ConfidenceThreshold = threshold
		}
		if *sla > 0 {
			in.SLAHours = sla
		}
		if err := validate.Struct(in); err != nil {
			return err
		}
		cfg, err := st.Config.Update(ctx, in)
		if err != nil {
			return err
		}
		color.Green("config saved: autoClose=%v threshold=%.2f slaHours=%d", cfg.AutoCloseEnabled, cfg.ConfidenceThreshold, cfg.SLAHours)
		return nil
	default:
		return fmt.Errorf("unknown config subcommand %q", args[0])
	}
}

func currentCaps(st *store.Store) store.Capabilities {
	u := st.Session.CurrentUser()
	if u == nil {
		return store.Capabilities{}
	}
	return store.CapabilitiesFor(u.Role)
}

func printTicket(t model.Ticket) {
	fmt.Printf("%s  %s  %s  %s\n", t.ID, statusColor(t.Status)(string(t.Status)), t.Category, t.Title)
}

func printCounts(counts map[model.TicketStatus]int) {
	parts := make([]string, 0, len(model.TicketStatuses))
	for _, s := range model.TicketStatuses {
		parts = append(parts, fmt.Sprintf("%s=%d", s, counts[s]))
	}
	fmt.Println(strings.Join(parts, "  "))
}

func statusColor(s model.TicketStatus) func(string, ...interface{}) string {
	switch s {
	case model.StatusOpen:
		return color.YellowString
	case model.StatusTriaged, model.StatusWaitingHuman:
		return color.CyanString
	case model.StatusResolved:
		return color.GreenString
	default:
		return color.WhiteString
	}
}
