package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/stringartkit/storefront/internal/config"
)

const helpFlag = "--help"

var (
	ErrFlagRequiresArg = errors.New("flag requires an argument")
	ErrUnknownFlag     = errors.New("unknown flag")
)

// Run is the entry point. args includes the program name. A signal on sigCh
// cancels the context passed to the running command. Returns the exit code.
func Run(stdin io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	flags, err := parseGlobalFlags(args[1:])
	if err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut, nil)

		return 1
	}

	if len(flags.remaining) == 0 || flags.remaining[0] == "-h" || flags.remaining[0] == helpFlag {
		printUsage(out, nil)

		return 0
	}

	cfg, mergedEnv, err := config.Load(config.LoadInput{
		WorkDirOverride: flags.workDir,
		ConfigPath:      flags.configPath,
		Env:             env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	logger := newLogger(errOut, flags.verbose)
	defer func() { _ = logger.Sync() }()

	a := &app{
		cfg:    cfg,
		env:    mergedEnv,
		stdin:  stdin,
		logger: logger,
	}

	commands := a.commands()

	name, cmdArgs := flags.remaining[0], flags.remaining[1:]

	cmd, ok := commands[name]
	if !ok {
		fprintln(errOut, "error: unknown command:", name)
		printUsage(errOut, commands)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", zap.Stringer("signal", sig))
			cancel()
		case <-ctx.Done():
		}
	}()

	return cmd.Run(ctx, NewIO(out, errOut), cmdArgs)
}

type globalFlags struct {
	workDir    string
	configPath string
	verbose    bool
	remaining  []string
}

func parseGlobalFlags(args []string) (globalFlags, error) {
	var flags globalFlags

	idx := 0
	for idx < len(args) {
		consumed, err := parseFlag(args, idx, &flags)
		if err != nil {
			return globalFlags{}, err
		}

		if consumed == 0 {
			flags.remaining = args[idx:]

			break
		}

		idx += consumed
	}

	return flags, nil
}

// parseFlag parses a global flag at args[idx] and returns how many args it
// consumed, or 0 when args[idx] is the command.
func parseFlag(args []string, idx int, flags *globalFlags) (int, error) {
	arg := args[idx]

	value := func() (string, error) {
		if idx+1 >= len(args) {
			return "", fmt.Errorf("%w: %s", ErrFlagRequiresArg, arg)
		}

		return args[idx+1], nil
	}

	switch {
	case arg == "-C" || arg == "--cwd":
		v, err := value()
		flags.workDir = v

		return 2, err

	case strings.HasPrefix(arg, "--cwd="):
		flags.workDir = strings.TrimPrefix(arg, "--cwd=")

		return 1, nil

	case strings.HasPrefix(arg, "-C"):
		flags.workDir = strings.TrimPrefix(arg, "-C")

		return 1, nil

	case arg == "-c" || arg == "--config":
		v, err := value()
		flags.configPath = v

		return 2, err

	case strings.HasPrefix(arg, "--config="):
		flags.configPath = strings.TrimPrefix(arg, "--config=")

		return 1, nil

	case arg == "-v" || arg == "--verbose":
		flags.verbose = true

		return 1, nil

	case arg == "-h" || arg == helpFlag:
		flags.remaining = []string{helpFlag}

		return len(args) - idx, nil

	case strings.HasPrefix(arg, "-") && arg != "-":
		return 0, fmt.Errorf("%w: %s", ErrUnknownFlag, arg)
	}

	return 0, nil
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, commands map[string]*Command) {
	fprintln(w, `storefront - string art kit storefront tools

Usage: storefront [options] <command> [args]

Options:
  -C, --cwd <dir>      Run as if started in <dir>
  -c, --config <file>  Use specified config file
  -v, --verbose        Debug logging

Commands:`)

	if commands == nil {
		commands = (&app{}).commands()
	}

	for _, name := range commandOrder {
		if cmd, ok := commands[name]; ok {
			fprintln(w, cmd.HelpLine())
		}
	}

	fprintln(w, `
Run 'storefront <command> --help' for command flags.`)
}
