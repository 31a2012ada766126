package cli

import (
	"context"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/stringartkit/storefront/internal/server"
)

// ServeCmd returns the serve command.
func ServeCmd(a *app) *Command {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.StringP("addr", "a", "", "Listen address (default from config)")

	return &Command{
		Flags: fs,
		Usage: "serve [--addr HOST:PORT]",
		Short: "Run the storefront HTTP API",
		Long: `Serve the built document at /data/app.json, the checkout API under /api
and the static site directory. Stops cleanly on interrupt.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			listen := a.cfg.ListenAddr
			if *addr != "" {
				listen = *addr
			}

			srv := server.New(server.Config{
				DocumentPath: a.cfg.Abs(a.cfg.Output),
				StaticDir:    a.staticDir(),
				AllowOrigins: a.cfg.AllowOrigins,
				PayeeAddress: a.cfg.UPIID,
				PayeeName:    a.cfg.PayeeName,
				Logger:       a.logger,
			})

			a.logger.Info("listening", zap.String("addr", listen))

			err := srv.ListenAndServe(ctx, listen)
			if err != nil {
				return err
			}

			o.Println("server stopped")

			return nil
		},
	}
}

func (a *app) staticDir() string {
	if a.cfg.StaticDir == "" {
		return ""
	}

	return a.cfg.Abs(a.cfg.StaticDir)
}
