// Package ctl runs the operator commands of catalogctl against the
// catalogue database, outside of the HTTP server.
package ctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dalemusser/catalog/internal/app/catalog/academiccal"
	"github.com/dalemusser/catalog/internal/app/catalog/contentpostpone"
	"github.com/dalemusser/catalog/internal/app/catalog/importer"
	"github.com/dalemusser/catalog/internal/app/catalog/postponement"
	"github.com/dalemusser/catalog/internal/app/catalog/shorten"
	egystore "github.com/dalemusser/catalog/internal/app/store/educationgroupyears"
	"github.com/dalemusser/catalog/internal/app/system/auditlog"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrUnknownCommand is returned for a command name Run does not handle.
var ErrUnknownCommand = errors.New("unknown command")

// Actor is recorded as the author of CLI-driven audit events.
const Actor = "catalogctl"

// Options selects the command and carries its arguments.
type Options struct {
	Command string
	RootID  string // postpone-content
	GroupID string // shorten
	Until   int    // shorten
	File    string // import-admission, import-common, import-rules
	Lang    string // import-admission, import-common
	From    int    // duplicate-admission
	To      int    // duplicate-admission
	DryRun  bool   // postpone-years
	Acronym string // postpone-years filter
}

// Runner executes commands. Results are written to Out as JSON.
type Runner struct {
	DB    *mongo.Database
	Cal   *academiccal.Calendar
	Audit *auditlog.Logger
	Log   *zap.Logger
	Out   io.Writer
}

type command func(ctx context.Context, r *Runner, o Options) (any, error)

var commands = map[string]command{
	"postpone-years":      postponeYears,
	"postpone-content":    postponeContent,
	"shorten":             shortenGroup,
	"import-admission":    importAdmission,
	"import-common":       importCommon,
	"import-rules":        importRules,
	"duplicate-admission": duplicateAdmission,
}

// Commands lists the command names Run accepts.
func Commands() []string {
	out := make([]string, 0, len(commands))
	for name := range commands {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Run executes o.Command.
func (r *Runner) Run(ctx context.Context, o Options) error {
	cmd, ok := commands[strings.TrimSpace(o.Command)]
	if !ok {
		return fmt.Errorf("%w %q (want one of %s)", ErrUnknownCommand, o.Command, strings.Join(Commands(), ", "))
	}
	r.Log.Info("running command", zap.String("command", o.Command))
	res, err := cmd(ctx, r, o)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(r.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

type egyRef struct {
	ID           string `json:"id"`
	Acronym      string `json:"acronym"`
	AcademicYear int    `json:"academic_year"`
}

func refs(egys []models.EducationGroupYear) []egyRef {
	out := make([]egyRef, 0, len(egys))
	for _, e := range egys {
		out = append(out, egyRef{ID: e.ID.Hex(), Acronym: e.Acronym, AcademicYear: e.AcademicYear})
	}
	return out
}

func postponeYears(ctx context.Context, r *Runner, o Options) (any, error) {
	runner := postponement.NewRunner(postponement.New(r.DB, r.Log, r.Cal), r.Audit)
	f := egystore.Filter{Acronym: o.Acronym}

	var (
		res postponement.Result
		err error
	)
	if o.DryRun {
		res, err = runner.Partition(ctx, f)
	} else {
		res, err = runner.Run(ctx, f)
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"run_id":             res.RunID,
		"target_year":        res.Target.Year,
		"dry_run":            o.DryRun,
		"to_duplicate":       len(res.ToDuplicate),
		"already_duplicated": len(res.AlreadyDuplicated),
		"not_duplicated":     len(res.NotDuplicated),
		"created":            refs(res.Created),
		"errors":             res.ErrorLabels(),
		"message":            res.Message(),
	}, nil
}

func objectID(name, hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(hex))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("--%s must be an object id: %w", name, err)
	}
	return id, nil
}

func postponeContent(ctx context.Context, r *Runner, o Options) (any, error) {
	rootID, err := objectID("root_id", o.RootID)
	if err != nil {
		return nil, err
	}
	c, err := contentpostpone.New(ctx, r.DB, r.Log, postponement.New(r.DB, r.Log, r.Cal), rootID)
	if err != nil {
		return nil, err
	}
	res, err := c.Postpone(ctx)
	if err != nil {
		return nil, err
	}
	r.Audit.ContentPostponed(ctx, Actor, res.Root, res.Next, len(res.Edges))
	return map[string]any{
		"root":     refs([]models.EducationGroupYear{res.Next})[0],
		"edges":    len(res.Edges),
		"branches": refs(res.Branches),
	}, nil
}

func shortenGroup(ctx context.Context, r *Runner, o Options) (any, error) {
	groupID, err := objectID("group_id", o.GroupID)
	if err != nil {
		return nil, err
	}
	if o.Until == 0 {
		return nil, errors.New("--until is required")
	}
	deleted, err := shorten.New(r.DB, r.Log).Shorten(ctx, groupID, o.Until)
	if err != nil {
		return nil, err
	}
	if len(deleted) > 0 {
		r.Audit.GroupShortened(ctx, Actor, groupID, o.Until, deleted)
	}
	return map[string]any{"end_year": o.Until, "deleted": refs(deleted)}, nil
}

func openFile(path string) (*os.File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("--file is required")
	}
	return os.Open(path)
}

func admission(kind string, run func(im *importer.Importer) func(context.Context, io.Reader, string) (importer.Report, error)) command {
	return func(ctx context.Context, r *Runner, o Options) (any, error) {
		f, err := openFile(o.File)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		rep, err := run(importer.New(r.DB, r.Log))(ctx, f, o.Lang)
		r.Audit.ImportCompleted(ctx, kind, rep.Details(), err)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"conditions":       rep.Conditions,
			"lines":            rep.Lines,
			"unknown_acronyms": rep.UnknownAcronyms,
		}, nil
	}
}

var (
	importAdmission = admission("admission", func(im *importer.Importer) func(context.Context, io.Reader, string) (importer.Report, error) {
		return im.ImportAdmission
	})
	importCommon = admission("common", func(im *importer.Importer) func(context.Context, io.Reader, string) (importer.Report, error) {
		return im.ImportCommon
	})
)

func importRules(ctx context.Context, r *Runner, o Options) (any, error) {
	f, err := openFile(o.File)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rep, err := importer.New(r.DB, r.Log).ImportRules(ctx, f)
	r.Audit.ImportCompleted(ctx, "rules", rep.Details(), err)
	if err != nil {
		return nil, err
	}
	return map[string]any{"created": rep.Created, "updated": rep.Updated}, nil
}

func duplicateAdmission(ctx context.Context, r *Runner, o Options) (any, error) {
	if o.From == 0 || o.To == 0 || o.From == o.To {
		return nil, errors.New("--from and --to must be two different years")
	}
	rep, err := importer.New(r.DB, r.Log).DuplicateAdmission(ctx, o.From, o.To)
	r.Audit.ImportCompleted(ctx, "duplicate-admission", rep.Details(), err)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"copied":         rep.Copied,
		"missing_source": rep.MissingSource,
		"missing_target": rep.MissingTarget,
	}, nil
}
