// Command salaryctl is the moderator's terminal front end to the admin API:
// it lists the review queues, moderates records and prints insights.
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
	"text/tabwriter"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gartstein/salaries/internal/pkg/utils"
	"github.com/gartstein/salaries/internal/salary/client"
	e "github.com/gartstein/salaries/internal/salary/errors"
	"github.com/gartstein/salaries/internal/salary/insights"
	"github.com/gartstein/salaries/internal/salary/models"
	"github.com/gartstein/salaries/internal/salary/moderation"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const usage = `usage: salaryctl <command> [args]

commands:
  pending [query]            list submissions awaiting review
  rejected                   list rejected submissions
  approved [salary|story]    list published submissions
  approve <id>               approve a pending or rejected submission
  reject <id> <reason...>    reject a pending submission
  restore <id>               restore a rejected submission
  insights [filters]         print aggregate figures for approved salaries
  export [filters]           write approved salaries as CSV to stdout

filters: -search, -location, -experience (0-2|3-5|5+), -level

environment: SALARY_API_URL, SALARY_ADMIN_TOKEN, SALARY_LANG
`

type cliConfig struct {
	BaseURL string        `env:"SALARY_API_URL" envDefault:"http://localhost:8080"`
	Token   string        `env:"SALARY_ADMIN_TOKEN"`
	Lang    string        `env:"SALARY_LANG" envDefault:"en"`
	Timeout time.Duration `env:"SALARY_TIMEOUT" envDefault:"10s"`
}

func main() {
	var cfg cliConfig
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "salaryctl:", err)
		os.Exit(2)
	}

	logger, _ := zap.NewDevelopment()
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:], os.Stdout, logger); err != nil {
		fmt.Fprintln(os.Stderr, "salaryctl:", err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("invalid arguments")

type app struct {
	api      *client.Client
	workflow *moderation.Workflow
	token    string
	out      io.Writer
	printer  *message.Printer
}

func run(ctx context.Context, cfg cliConfig, args []string, out io.Writer, logger *zap.Logger) error {
	if len(args) == 0 {
		return errUsage
	}

	api, err := client.New(client.Options{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout}, logger)
	if err != nil {
		return err
	}
	tag, err := language.Parse(cfg.Lang)
	if err != nil {
		tag = language.English
	}

	a := &app{
		api:      api,
		workflow: moderation.NewWorkflow(api, logger),
		token:    cfg.Token,
		out:      out,
		printer:  message.NewPrinter(tag),
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "pending":
		return a.pending(ctx, strings.Join(rest, " "))
	case "rejected":
		recs, err := a.workflow.Rejected(ctx, a.token)
		if err != nil {
			return err
		}
		a.table(recs)
		return nil
	case "approved":
		var kind models.Kind
		if len(rest) > 0 {
			if kind, err = models.ParseKind(rest[0]); err != nil {
				return err
			}
		}
		recs, err := a.workflow.Approved(ctx, a.token, kind)
		if err != nil {
			return err
		}
		a.table(recs)
		return nil
	case "approve", "restore":
		if len(rest) != 1 {
			return errUsage
		}
		return a.moderate(ctx, moderation.Action(cmd), rest[0], "")
	case "reject":
		if len(rest) < 2 {
			return errUsage
		}
		return a.moderate(ctx, moderation.ActionReject, rest[0], strings.Join(rest[1:], " "))
	case "insights":
		c, err := parseCriteria(cmd, rest)
		if err != nil {
			return err
		}
		summary, err := a.api.Insights(ctx, a.token, c)
		if err != nil {
			return err
		}
		a.summary(summary)
		return nil
	case "export":
		c, err := parseCriteria(cmd, rest)
		if err != nil {
			return err
		}
		return a.api.ExportCSV(ctx, a.token, c, a.out)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (a *app) pending(ctx context.Context, query string) error {
	recs, err := a.workflow.Pending(ctx, a.token)
	if err != nil {
		return err
	}
	if query != "" {
		recs = insights.SearchModeration(recs, query)
	}
	a.table(recs)
	return nil
}

// moderate looks the record up in the review queues so the workflow can
// check the transition locally before calling the API.
func (a *app) moderate(ctx context.Context, action moderation.Action, rawID, reason string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("%w: invalid salary ID %q", e.ErrInvalidInput, rawID)
	}
	rec, err := a.find(ctx, id)
	if err != nil {
		return err
	}

	switch action {
	case moderation.ActionApprove:
		err = a.workflow.Approve(ctx, a.token, rec)
	case moderation.ActionReject:
		err = a.workflow.Reject(ctx, a.token, rec, reason)
	case moderation.ActionRestore:
		err = a.workflow.Restore(ctx, a.token, rec)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s: now %s\n", rec.ID, rec.Designation, rec.ModerationState)
	return nil
}

func (a *app) find(ctx context.Context, id uuid.UUID) (*models.SalaryRecord, error) {
	pending, err := a.workflow.Pending(ctx, a.token)
	if err != nil {
		return nil, err
	}
	rejected, err := a.workflow.Rejected(ctx, a.token)
	if err != nil {
		return nil, err
	}
	for _, r := range append(pending, rejected...) {
		if r.ID == id {
			return r, nil
		}
	}
	// Approved records are terminal; fetch it so the workflow reports why.
	return a.api.GetSalary(ctx, a.token, id)
}

func (a *app) table(recs []*models.SalaryRecord) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tCOMPANY\tDESIGNATION\tLOCATION\tEXP\tCTC (LPA)\tSTATE\tREASON")
	for _, r := range recs {
		a.printer.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%.1f\t%s\t%s\n",
			r.ID, r.Kind, r.CompanyName, r.Designation, r.Location,
			r.Experience, insights.TotalCTC(r), r.ModerationState, utils.Deref(r.RejectionReason))
	}
	_ = tw.Flush()
	a.printer.Fprintf(a.out, "%d record(s)\n", len(recs))
}

func (a *app) summary(s insights.Summary) {
	p := a.printer
	p.Fprintf(a.out, "Salaries:        %d\n", s.Total)
	p.Fprintf(a.out, "Average CTC:     %.1f LPA\n", s.AverageCTC)
	p.Fprintf(a.out, "Top location:    %s (%d)\n", s.TopLocation.Location, s.TopLocation.Count)
	p.Fprintf(a.out, "Top paying role: %s at %s, %.1f LPA\n", s.TopRole.Designation, s.TopRole.CompanyName, s.TopRole.CTC)

	fmt.Fprintln(a.out, "\nBy experience (years):")
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, b := range s.Buckets {
		p.Fprintf(tw, "  %s\t%.1f LPA\t%d\n", b.Label, b.AverageCTC, b.Count)
	}
	_ = tw.Flush()

	fmt.Fprintln(a.out, "\nBy location:")
	tw = tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, l := range s.Locations {
		p.Fprintf(tw, "  %s\t%d\t%s\n", l.Location, l.Count, l.Color)
	}
	_ = tw.Flush()
}

func parseCriteria(name string, args []string) (insights.Criteria, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	search := fs.String("search", "", "match designation or company")
	location := fs.String("location", "", "exact location, or all")
	experience := fs.String("experience", "", "0-2, 3-5, 5+ or all")
	level := fs.String("level", "", "experience level, or all")
	if err := fs.Parse(args); err != nil {
		return insights.Criteria{}, fmt.Errorf("%w: %v", errUsage, err)
	}

	rng, err := insights.ParseExperienceRange(*experience)
	if err != nil {
		return insights.Criteria{}, err
	}
	return insights.Criteria{
		Search:          *search,
		Location:        *location,
		ExperienceRange: rng,
		Level:           *level,
	}, nil
}
