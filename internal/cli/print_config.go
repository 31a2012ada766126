package cli

import (
	"context"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/stringartkit/storefront/internal/config"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and where each layer was loaded from.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			return execPrintConfig(o, a.cfg)
		},
	}
}

func execPrintConfig(o *IO, cfg config.Config) error {
	formatted, err := config.Format(cfg)
	if err != nil {
		return err
	}

	o.Println("effective_cwd=" + cfg.EffectiveCwd)
	o.Println(formatted)
	o.Println("")
	o.Println("# sources")

	src := cfg.Sources
	if src.Global == "" && src.Project == "" && src.DotEnv == "" && len(src.Env) == 0 {
		o.Println("(defaults only)")

		return nil
	}

	if src.Global != "" {
		o.Println("global_config=" + src.Global)
	}

	if src.Project != "" {
		o.Println("project_config=" + src.Project)
	}

	if src.DotEnv != "" {
		o.Println("dotenv=" + src.DotEnv)
	}

	if len(src.Env) > 0 {
		o.Println("env=" + strings.Join(src.Env, ","))
	}

	return nil
}
