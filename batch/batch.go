// Package batch drives juxfix operations over a fixture directory tree.
// It mirrors relative paths from a source tree into an output tree,
// applies one operation per file, and aggregates per-file outcomes into a
// summary. A per-file failure never aborts the batch; only batch-setup
// failures (bad key, bad schema) are fatal, and those happen before a
// Runner is ever constructed.
package batch

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jrjsmrtn/juxfix"
)

// Op transforms the bytes of one fixture, identified by its path relative
// to the source root, into its output bytes.
type Op func(rel string, data []byte) ([]byte, error)

// Check resolves whether one fixture passes an outcome operation
// (validation, signature verification). A nil return counts the file as
// valid; the error message becomes the recorded failure reason.
type Check func(rel string, data []byte) error

// Failure records one failed file in traversal order.
type Failure struct {
	Path   string
	Reason string
}

// Summary aggregates per-file outcomes for one run. It is accumulated one
// file at a time and never mutated after the run returns it.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Failures  []Failure
}

// Err returns a batch-level error when any file failed, which drives the
// process exit status.
func (s *Summary) Err() error {
	if s.Failed > 0 {
		return fmt.Errorf("juxfix: %d of %d files failed", s.Failed, s.Total)
	}
	return nil
}

// Runner walks a fixture tree and applies one bound operation per file.
type Runner struct {
	// Source is the root of the input tree.
	Source string
	// Output is the root of the mirrored output tree. Unused by check runs.
	Output string
	// IncludeMalformed includes fixtures under a directory segment named
	// "malformed" in check runs. Transform runs always process them.
	IncludeMalformed bool
	// Out receives per-file progress and the final summary. Defaults to
	// os.Stdout.
	Out io.Writer
	// Log receives diagnostics. Defaults to a no-op logger.
	Log *zap.SugaredLogger
}

func (r *Runner) out() io.Writer {
	if r.Out != nil {
		return r.Out
	}
	return os.Stdout
}

func (r *Runner) log() *zap.SugaredLogger {
	if r.Log != nil {
		return r.Log
	}
	return zap.NewNop().Sugar()
}

// Run applies op to every fixture under Source and writes each result to
// its mirrored relative path under Output, creating directories as needed.
// Output is written only after the operation succeeds; a failed file leaves
// no output behind and the batch continues with the next file.
func (r *Runner) Run(op Op) (*Summary, error) {
	rels, err := r.files(false)
	if err != nil {
		return nil, err
	}

	w := r.out()
	sum := &Summary{}
	for _, rel := range rels {
		sum.Total++
		if err := r.processOne(rel, op); err != nil {
			sum.Failed++
			sum.Failures = append(sum.Failures, Failure{Path: rel, Reason: err.Error()})
			fmt.Fprintf(w, "Error processing %s: %s\n", rel, err)
			r.log().Debugw("fixture failed",
				"path", rel,
				"kind", juxfix.Classify(err).String(),
				"error", err)
			continue
		}
		sum.Succeeded++
		fmt.Fprintf(w, "Processed: %s -> %s\n",
			filepath.Join(r.Source, rel), filepath.Join(r.Output, rel))
	}

	fmt.Fprintf(w, "\nProcessed %d files:\n", sum.Total)
	fmt.Fprintf(w, "  Success: %d\n", sum.Succeeded)
	fmt.Fprintf(w, "  Errors: %d\n", sum.Failed)
	return sum, nil
}

func (r *Runner) processOne(rel string, op Op) error {
	data, err := os.ReadFile(filepath.Join(r.Source, rel))
	if err != nil {
		return &juxfix.InputError{Err: err}
	}

	out, err := op(rel, data)
	if err != nil {
		return err
	}

	dst := filepath.Join(r.Output, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return &juxfix.WriteError{Err: err}
	}
	if err := os.WriteFile(dst, out, 0o644); err != nil {
		return &juxfix.WriteError{Err: err}
	}
	return nil
}

// RunCheck applies check to every fixture under Source without producing an
// output tree. Fixtures under a "malformed" directory segment are skipped
// unless IncludeMalformed is set. Each file prints a VALID/INVALID line and
// the summary lists every failure with its reason truncated to 200 bytes.
func (r *Runner) RunCheck(check Check) (*Summary, error) {
	rels, err := r.files(true)
	if err != nil {
		return nil, err
	}

	w := r.out()
	fmt.Fprintf(w, "Found %d XML files to validate\n\n", len(rels))

	sum := &Summary{}
	for _, rel := range rels {
		sum.Total++
		data, err := os.ReadFile(filepath.Join(r.Source, rel))
		if err != nil {
			err = &juxfix.InputError{Err: err}
		} else {
			err = check(rel, data)
		}
		if err != nil {
			sum.Failed++
			sum.Failures = append(sum.Failures, Failure{Path: rel, Reason: err.Error()})
			fmt.Fprintf(w, "INVALID: %s\n", rel)
			continue
		}
		sum.Succeeded++
		fmt.Fprintf(w, "VALID:   %s\n", rel)
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 60))
	fmt.Fprintln(w, "Validation Results:")
	fmt.Fprintf(w, "  Valid:   %d\n", sum.Succeeded)
	fmt.Fprintf(w, "  Invalid: %d\n", sum.Failed)
	fmt.Fprintf(w, "  Total:   %d\n", sum.Total)
	if len(sum.Failures) > 0 {
		fmt.Fprintf(w, "\nErrors:\n")
		for _, f := range sum.Failures {
			fmt.Fprintf(w, "  %s:\n    %s\n", f.Path, truncate(f.Reason, 200))
		}
	}
	return sum, nil
}

// files returns the relative paths of every *.xml fixture under Source,
// sorted for reproducible traversal and summary order.
func (r *Runner) files(filterMalformed bool) ([]string, error) {
	var rels []string
	err := filepath.WalkDir(r.Source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if filterMalformed && !r.IncludeMalformed && d.Name() == "malformed" {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".xml") {
			return nil
		}
		rel, err := filepath.Rel(r.Source, path)
		if err != nil {
			return err
		}
		rels = append(rels, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("juxfix: walk %s: %w", r.Source, err)
	}
	sort.Strings(rels)
	return rels, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
