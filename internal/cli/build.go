package cli

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/stringartkit/storefront/internal/content"
)

// BuildCmd returns the build command.
func BuildCmd(a *app) *Command {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	watch := fs.BoolP("watch", "w", false, "Rebuild whenever content changes")
	out := fs.StringP("out", "o", "", "Write the document here instead of the configured output")

	return &Command{
		Flags: fs,
		Usage: "build [--watch] [--out PATH]",
		Short: "Aggregate content into the JSON document",
		Long: `Read products.yml, gallery.yml, home.yml and the markdown files under the
content directory and write the combined JSON document.

Files that are missing or malformed are skipped with a warning; the build
still succeeds. An unreadable products.yml or gallery.yml is an error.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			output := a.cfg.Abs(a.cfg.Output)
			if *out != "" {
				output = a.cfg.Abs(*out)
			}

			if *watch {
				return execBuildWatch(ctx, o, a, output)
			}

			return execBuild(ctx, o, a, output)
		},
	}
}

func execBuild(ctx context.Context, o *IO, a *app, output string) error {
	doc, report, err := a.build(ctx, output)
	if err != nil {
		return err
	}

	for _, s := range report.Skipped {
		o.Warn(fmt.Sprintf("skipped %s %s", s.Kind, s.Key), s.Err.Error())
	}

	o.Printf("wrote %s (%d products, %d gallery entries, home %s)\n",
		output, len(doc.Products), len(doc.Gallery.Entries), homeStatus(report))

	return nil
}

func execBuildWatch(ctx context.Context, o *IO, a *app, output string) error {
	dir := a.cfg.Abs(a.cfg.ContentDir)

	rebuild := func(ctx context.Context) {
		doc, report, err := a.build(ctx, output)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				a.logger.Error("build failed", zap.Error(err))
			}

			return
		}

		for _, s := range report.Skipped {
			a.logger.Warn("skipped "+s.Kind,
				zap.String("key", s.Key),
				zap.String("path", s.Path),
				zap.Error(s.Err))
		}

		a.logger.Info("rebuilt",
			zap.String("output", output),
			zap.Int("products", len(doc.Products)),
			zap.Int("gallery", len(doc.Gallery.Entries)),
			zap.Int("skipped", len(report.Skipped)))
	}

	rebuild(ctx)

	o.Println("watching", dir, "(ctrl-c to stop)")

	return content.Watch(ctx, dir, content.DefaultDebounce, a.logger, rebuild)
}

// build runs the aggregator and writes the document to output.
func (a *app) build(ctx context.Context, output string) (*content.Document, *content.Report, error) {
	doc, report, err := content.Build(ctx, a.cfg.Abs(a.cfg.ContentDir), content.Options{
		Renderer: content.NewRenderer(a.cfg.AllowRawHTML),
		Logger:   a.logger,
		Workers:  a.cfg.BuildWorkers,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build: %w", err)
	}

	err = content.WriteDocument(output, doc)
	if err != nil {
		return nil, nil, err
	}

	return doc, report, nil
}

func homeStatus(r *content.Report) string {
	if r.HomeLoaded {
		return "loaded"
	}

	return "missing"
}
