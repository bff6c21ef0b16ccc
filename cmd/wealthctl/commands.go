package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"

	"wealthtrack/internal/codec"
	"wealthtrack/internal/core"
	"wealthtrack/internal/store"
)

var errNotConfirmed = errors.New("not confirmed, rerun with -yes")

type exportCmd struct {
	env    *env
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write all records as a JSON backup document" }
func (*exportCmd) Usage() string {
	return `wealthctl export [-o <file>]

  Writes the export document to stdout, or to <file>. When <file> is a
  directory the document is saved there as wealth-tracker-backup-<date>.json.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "output file (default stdout)")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.env.withStore(ctx, func(s *store.Store) error {
		doc, err := s.Snapshot()
		if err != nil {
			return err
		}
		if c.output == "" {
			_, err = fmt.Fprintln(c.env.out, string(doc))
			return err
		}
		target := c.output
		if info, err := os.Stat(target); err == nil && info.IsDir() {
			target = filepath.Join(target, codec.BackupFilename(c.env.now()))
		}
		if err := os.WriteFile(target, doc, 0o600); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(c.env.out, "Exported %d records to %s\n", s.Len(), target)
		return nil
	})
}

type importCmd struct {
	env *env
	yes bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "replace all records with a backup document" }
func (*importCmd) Usage() string {
	return `wealthctl import [-yes] <file>

  Validates <file> and replaces every stored record with its content.
  Without -yes only the validation runs.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "confirm replacing all records")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(c.env.errw, c.Usage())
		return subcommands.ExitUsageError
	}
	data, err := os.ReadFile(f.Arg(0))
	if err != nil {
		c.env.fail(err)
		return subcommands.ExitFailure
	}

	return c.env.withStore(ctx, func(s *store.Store) error {
		if !c.yes {
			records, err := codec.Decode(data)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.env.out, "%s is valid: %d records would replace the %d stored ones\n", f.Arg(0), len(records), s.Len())
			return errNotConfirmed
		}
		records, err := codec.Import(ctx, data, s)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.env.out, "Imported %d records\n", len(records))
		return nil
	})
}

type trendCmd struct {
	env   *env
	plain bool
}

func (*trendCmd) Name() string     { return "trend" }
func (*trendCmd) Synopsis() string { return "display the quarter over quarter trend" }
func (*trendCmd) Usage() string {
	return `wealthctl trend [-plain]

  Displays total, disposable and market index assets for every quarter.
`
}

func (c *trendCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.plain, "plain", false, "print markdown without terminal styling")
}

func (c *trendCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.env.withStore(ctx, func(s *store.Store) error {
		return printMarkdown(c.env.out, trendMarkdown(s.Trend()), c.plain)
	})
}

type showCmd struct {
	env   *env
	plain bool
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "display one quarter with its metrics" }
func (*showCmd) Usage() string {
	return `wealthctl show [-plain] [quarter]

  Displays the entries and metrics of a quarter, the latest one by default.
`
}

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.plain, "plain", false, "print markdown without terminal styling")
}

func (c *showCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.env.withStore(ctx, func(s *store.Store) error {
		var (
			r  core.WealthRecord
			ok bool
		)
		if f.NArg() > 0 {
			r, ok = s.Get(f.Arg(0))
			if !ok {
				return notFound(f.Arg(0), s.List())
			}
		} else if r, ok = s.SelectLatest(); !ok {
			fmt.Fprintln(c.env.out, "No records yet.")
			return nil
		}
		return printMarkdown(c.env.out, recordMarkdown(r), c.plain)
	})
}

type clearCmd struct {
	env *env
	yes bool
}

func (*clearCmd) Name() string     { return "clear" }
func (*clearCmd) Synopsis() string { return "delete every record" }
func (*clearCmd) Usage() string {
	return `wealthctl clear [-yes]

  Removes all records. Export a backup first.
`
}

func (c *clearCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "confirm deleting all records")
}

func (c *clearCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.env.withStore(ctx, func(s *store.Store) error {
		if !c.yes {
			fmt.Fprintf(c.env.out, "This would delete %d records.\n", s.Len())
			return errNotConfirmed
		}
		n := s.Len()
		s.Clear(ctx)
		fmt.Fprintf(c.env.out, "Deleted %d records\n", n)
		return nil
	})
}

func notFound(quarter string, records []core.WealthRecord) error {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	err := fmt.Errorf("no record for quarter %q", core.NormalizeQuarterID(quarter))
	if hint, ok := core.Closest(quarter, ids, 2); ok {
		err = fmt.Errorf("%w, did you mean %q?", err, hint)
	}
	return err
}
