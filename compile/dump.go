package compile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"cssnest/ast"
	"cssnest/css"
	"cssnest/cssize"
	"cssnest/state"
)

// Dump is the dump subcommand action: it prints statement tree of a single
// stylesheet as loaded or, with --resolved, after nesting resolution.
func Dump(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input stylesheet has been specified")
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("unable to read stylesheet: %w", err)
	}
	return dumpTree(os.Stdout, data, src, cmd.Bool("resolved"), env.Cfg.Compiler.MaxNesting, env.Log.Named("dump"))
}

func dumpTree(w io.Writer, data []byte, src string, resolved bool, maxNesting int, log *zap.Logger) error {
	root, err := css.NewParser(log).Parse(data, src)
	if err != nil {
		return fmt.Errorf("unable to load stylesheet: %w", err)
	}
	if resolved {
		if root, err = cssize.New(log, cssize.WithMaxNesting(maxNesting)).Run(root); err != nil {
			return fmt.Errorf("unable to resolve nesting (%s): %w", src, err)
		}
	}
	log.Debug("Dumping tree", zap.String("source", src), zap.Bool("resolved", resolved), zap.Int("statements", ast.Count(root)))
	_, err = io.WriteString(w, ast.Dump(root))
	return err
}
