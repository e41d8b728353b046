// Package compile drives stylesheet compilation from the command line:
// it resolves inputs (files, directories, archives), runs every stylesheet
// through load, nesting resolution and serialization, and writes results.
package compile

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"cssnest/archive"
	"cssnest/ast"
	"cssnest/common"
	"cssnest/css"
	"cssnest/cssize"
	"cssnest/state"
)

// Run is the compile subcommand action.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("compile")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	if cmd.IsSet("style") {
		style, err := common.ParseOutputStyle(cmd.String("style"))
		if err != nil {
			log.Warn("Unknown output style requested, using configured one", zap.Stringer("style", env.Cfg.Compiler.Style), zap.Error(err))
		} else {
			env.Cfg.Compiler.Style = style
		}
	}

	env.NoDirs, env.Overwrite, env.Bundle = cmd.Bool("nodirs"), cmd.Bool("overwrite"), cmd.Bool("bundle")

	// zip does not define file name encoding, old archives may need
	// archaic code page
	if cp := cmd.String("force-zip-cp"); len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil || env.CodePage == nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.Stringer("style", env.Cfg.Compiler.Style))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, log)
}

// process handles the core compilation logic independently of CLI
// framework. It determines the input type (directory, archive, or single
// file) and processes accordingly. Failures of individual stylesheets are
// logged and returned together.
func process(ctx context.Context, src, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	var b *bundle
	if env.Bundle {
		if !strings.EqualFold(filepath.Ext(dst), ".zip") {
			dst += ".zip"
		}
		b = newBundle(dst)
	}

	err := walkSource(ctx, src, dst, b, log)
	if b == nil || errors.Is(err, context.Canceled) {
		return err
	}
	if b.len() == 0 {
		log.Warn("Nothing to bundle", zap.String("bundle", b.path))
		return err
	}
	if e := b.write(env.Overwrite); e != nil {
		return multierr.Append(err, e)
	}
	log.Info("Bundle written", zap.String("bundle", b.path), zap.Int("stylesheets", b.len()))
	env.Rpt.Store("result-bundle.zip", b.path)
	return err
}

func walkSource(ctx context.Context, src, dst string, b *bundle, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			keepSource(env, head, log)
			return processDir(ctx, head, dst, b, log)
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArchive, err := isArchiveFile(head)
		if err != nil {
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArchive {
			// we need to look inside to see if path makes sense
			tail = strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			keepSource(env, head, log)
			return processArchive(ctx, head, filepath.ToSlash(tail), "", dst, b, log)
		}

		if len(tail) != 0 {
			return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}
		if !hasExtension(head, env.Cfg.Compiler.Extensions) {
			log.Warn("Compiling file with unexpected extension", zap.String("file", head), zap.Strings("expected", env.Cfg.Compiler.Extensions))
		}
		data, err := os.ReadFile(head)
		if err != nil {
			return fmt.Errorf("unable to read stylesheet: %w", err)
		}
		keepSource(env, head, log)
		return processStylesheet(ctx, data, filepath.Base(head), dst, b, log)
	}
	return fmt.Errorf("input source was not found (%s)", src)
}

// keepSource puts a snapshot of the input path into debug report.
func keepSource(env *state.LocalEnv, path string, log *zap.Logger) {
	if env.Rpt == nil {
		return
	}
	if err := env.Rpt.StoreCopy("source/"+filepath.Base(path), path); err != nil {
		log.Warn("Unable to keep source in debug report", zap.String("path", path), zap.Error(err))
	}
}

// processDir walks directory tree finding stylesheets and archives and
// processes them.
func processDir(ctx context.Context, dir, dst string, b *bundle, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	var (
		errs  error
		count int
	)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		isArchive, err := isArchiveFile(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))
		if isArchive {
			count++
			errs = multierr.Append(errs, processArchive(ctx, path, "", filepath.Dir(rel), dst, b, log))
			return nil
		}
		if !hasExtension(path, env.Cfg.Compiler.Extensions) {
			log.Debug("Skipping file, not recognized as stylesheet or archive", zap.String("file", path))
			return nil
		}

		count++
		data, err := os.ReadFile(path)
		if err != nil {
			log.Error("Unable to read file", zap.String("file", path), zap.Error(err))
			errs = multierr.Append(errs, err)
			return nil
		}
		errs = multierr.Append(errs, processStylesheet(ctx, data, rel, dst, b, log))
		return nil
	})
	if err != nil {
		return multierr.Append(errs, err)
	}
	if count == 0 {
		log.Debug("Nothing to process", zap.String("dir", dir))
	}
	return errs
}

// processArchive walks all files inside archive, finds stylesheets under
// "pathIn" and processes them. Results are placed under "pathOut".
func processArchive(ctx context.Context, path, pathIn, pathOut, dst string, b *bundle, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	var (
		errs  error
		count int
	)
	err := archive.Walk(path, pathIn, func(arc string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		count++
		pathInArchive := f.FileHeader.Name
		if env.CodePage != nil && f.FileHeader.NonUTF8 {
			if n, err := env.CodePage.NewDecoder().String(pathInArchive); err == nil {
				pathInArchive = n
			} else {
				n, _ = ianaindex.IANA.Name(env.CodePage)
				log.Warn("Unable to convert archive name from specified encoding",
					zap.String("charset", n), zap.String("path", pathInArchive), zap.Error(err))
			}
		}

		data, err := readArchiveFile(f)
		if err != nil {
			log.Error("Unable to read file in archive", zap.String("archive", arc), zap.String("file", f.FileHeader.Name), zap.Error(err))
			errs = multierr.Append(errs, err)
			return nil
		}
		errs = multierr.Append(errs, processStylesheet(ctx, data, filepath.Join(pathOut, filepath.FromSlash(pathInArchive)), dst, b, log))
		return nil
	}, archive.WithExtensions(env.Cfg.Compiler.Extensions...))
	if err != nil {
		return multierr.Append(errs, fmt.Errorf("unable to process archive: %w", err))
	}
	if count == 0 {
		log.Debug("Nothing to process", zap.String("archive", path), zap.String("path", pathIn))
	}
	return errs
}

func readArchiveFile(f *zip.File) ([]byte, error) {
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// processStylesheet compiles a single stylesheet. "src" is the source path
// relative to the input root (always including file name), "dst" is the
// destination directory or bundle archive.
func processStylesheet(ctx context.Context, data []byte, src, dst string, b *bundle, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	id := uuid.NewString()
	log = log.With(zap.String("id", id))

	var outputName string

	log.Info("Compilation starting", zap.String("from", src))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			log.Error("Compilation ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("compilation panic (%s): %v", src, r)
			return
		}
		if rerr != nil {
			log.Error("Unable to compile stylesheet", zap.String("from", src), zap.Error(rerr))
			return
		}
		log.Info("Compilation completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
	}(time.Now())

	if mime, ok := isBinary(data); ok {
		return fmt.Errorf("%s is not a stylesheet (%s)", src, mime)
	}

	var rpt Reporter
	if env.Rpt != nil {
		rpt = env.Rpt
	}
	text, err := Compile(data, src, env.Cfg.Compiler.Style, env.Cfg.Compiler.MaxNesting, rpt, log)
	if err != nil {
		return err
	}

	if b != nil {
		outputName = buildOutputPath(src, "", id, env)
		return b.add(outputName, []byte(text))
	}

	outputName = buildOutputPath(src, dst, id, env)

	if _, err := os.Stat(outputName); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	if err := os.WriteFile(outputName, []byte(text), 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}
	env.Rpt.Store(fmt.Sprintf("result-%s.css", id), outputName)
	return nil
}

// Reporter receives intermediate trees, *config.Report satisfies it.
type Reporter interface {
	StoreData(name string, data []byte)
}

// Compile runs data through loading, nesting resolution and serialization.
// When rpt is not nil statement trees before and after resolution are stored
// in it.
func Compile(data []byte, src string, style common.OutputStyle, maxNesting int, rpt Reporter, log *zap.Logger) (string, error) {
	root, err := css.NewParser(log).Parse(data, src)
	if err != nil {
		return "", fmt.Errorf("unable to load stylesheet: %w", err)
	}
	storeTree(rpt, src, "loaded", root)

	resolved, err := cssize.New(log, cssize.WithMaxNesting(maxNesting)).Run(root)
	if err != nil {
		return "", fmt.Errorf("unable to resolve nesting (%s): %w", src, err)
	}
	storeTree(rpt, src, "resolved", resolved)

	text, err := css.Format(resolved, style)
	if err != nil {
		return "", fmt.Errorf("unable to serialize stylesheet (%s): %w", src, err)
	}
	return text, nil
}

func storeTree(rpt Reporter, src, stage string, root *ast.Block) {
	if rpt == nil {
		return
	}
	rpt.StoreData(fmt.Sprintf("trees/%s.%s-%s.txt", filepath.ToSlash(src), stage, uuid.NewString()[:8]), []byte(ast.Dump(root)))
}
