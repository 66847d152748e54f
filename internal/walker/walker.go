// Package walker traverses a directory tree, applies a user-supplied
// pruning predicate, and feeds each surviving file's keywords (from an
// extractor.Extractor) into an Engine. It also implements the
// filename-as-keyword toggle the reference indexer exposed as a command
// line switch.
package walker

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/subdex/subdex/internal/extractor"
	"github.com/subdex/subdex/internal/subdexlog"
)

// ExpandTarget is the mutation surface Walker needs. *suffixstore.Engine
// satisfies it directly; the daemon collaborator instead hands Walker a
// mutex-serialized *daemon.Handle, since Engine itself is not safe for
// concurrent use.
type ExpandTarget interface {
	Expand(ctx context.Context, keyword []byte, path string) error
}

// Options controls one walk, mirroring the original indexer's command
// line switches for filename/path-component indexing.
type Options struct {
	// IndexFilenames also expands the bare filename as a keyword.
	IndexFilenames bool
	// IndexPathComponents also expands every "/"-separated path segment.
	IndexPathComponents bool
	// Prune, if non-empty, is an expr-lang boolean expression evaluated
	// against {path, name, isDir} for every directory entry; a true result
	// skips the entry (and, for directories, its entire subtree).
	Prune string
}

// pruneEnv is the expression environment exposed to a Prune rule.
type pruneEnv struct {
	Path  string `expr:"path"`
	Name  string `expr:"name"`
	IsDir bool   `expr:"isDir"`
}

// Walker drives one filesystem traversal against an Engine.
type Walker struct {
	Extractor extractor.Extractor
	Options   Options
	Log       subdexlog.Logger

	prune *vm.Program
}

func New(x extractor.Extractor, opts Options) (*Walker, error) {
	w := &Walker{Extractor: x, Options: opts, Log: subdexlog.Default{}}
	if opts.Prune != "" {
		prog, err := expr.Compile(opts.Prune, expr.Env(pruneEnv{}), expr.AsBool())
		if err != nil {
			return nil, err
		}
		w.prune = prog
	}
	return w, nil
}

// Walk visits root depth-first and calls IndexOne for every regular file
// that survives the prune rule.
func (w *Walker) Walk(ctx context.Context, e ExpandTarget, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.Log.Log(ctx, subdexlog.LevelVerbose, "walk %s: %v", path, err)
			return nil
		}
		if w.pruned(path, d) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return w.IndexOne(ctx, e, path)
	})
}

func (w *Walker) pruned(path string, d os.DirEntry) bool {
	if w.prune == nil {
		return false
	}
	env := pruneEnv{Path: path, Name: d.Name(), IsDir: d.IsDir()}
	out, err := expr.Run(w.prune, env)
	if err != nil {
		return false
	}
	skip, _ := out.(bool)
	return skip
}

// IndexOne runs the extractor against path and expands every resulting
// keyword (plus, per Options, the filename and path components) into e.
func (w *Walker) IndexOne(ctx context.Context, e ExpandTarget, path string) error {
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return nil
	}

	keywords, err := w.Extractor.Extract(ctx, path)
	if err != nil {
		w.Log.Log(ctx, subdexlog.LevelVerbose, "extract %s: %v", path, err)
		return nil
	}
	for _, kw := range keywords {
		if err := expandAllSuffixes(ctx, e, []byte(kw), path); err != nil {
			return err
		}
	}

	if w.Options.IndexFilenames {
		name := filepath.Base(path)
		if err := expandAllSuffixes(ctx, e, []byte(name), path); err != nil {
			return err
		}
	}
	if w.Options.IndexPathComponents {
		for _, part := range strings.Split(path, string(filepath.Separator)) {
			if part == "" {
				continue
			}
			if err := expandAllSuffixes(ctx, e, []byte(part), path); err != nil {
				return err
			}
		}
	}
	return nil
}

// expandAllSuffixes feeds every suffix of keyword into e.Expand, the same
// one-suffix-at-a-time loop the reference indexer ran per extracted
// keyword.
func expandAllSuffixes(ctx context.Context, e ExpandTarget, keyword []byte, path string) error {
	for i := range keyword {
		if err := e.Expand(ctx, keyword[i:], path); err != nil {
			return err
		}
	}
	return nil
}
