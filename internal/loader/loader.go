package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"crontabs/internal/account"
	"crontabs/internal/crontab"
	"crontabs/internal/diag"
	"crontabs/internal/eventbus"
	logx "crontabs/pkg/logx"
)

// Options configures a Loader.
type Options struct {
	// Dir is the crontab directory.
	Dir string

	// System selects the system layout, where every line names its user.
	// Otherwise each file is a per-user crontab owned by Owner, or by the
	// account named like the file when Owner is empty.
	System bool
	Owner  string

	// Workers bounds concurrent file parses. Defaults to GOMAXPROCS.
	Workers int

	Env      *crontab.Env
	Resolver account.Resolver
	Sink     diag.Sink
	Bus      eventbus.Bus
	Logger   logx.Logger
}

// FileResult is the outcome of parsing one file. Err is set when the file
// could not be parsed at all; Errors lists the lines that were discarded.
type FileResult struct {
	Name    string
	Path    string
	Entries []*crontab.Entry
	Errors  []*crontab.ParseError
	Err     error
}

// Failed reports whether the file or any of its lines failed.
func (f FileResult) Failed() bool { return f.Err != nil || len(f.Errors) > 0 }

// Result is one directory scan.
type Result struct {
	Dir   string
	Time  time.Time
	Files []FileResult
}

// Entries returns every parsed entry, in file then line order.
func (r *Result) Entries() []*crontab.Entry {
	if r == nil {
		return nil
	}
	var out []*crontab.Entry
	for _, f := range r.Files {
		out = append(out, f.Entries...)
	}
	return out
}

// Failures counts failed files plus discarded lines.
func (r *Result) Failures() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, f := range r.Files {
		if f.Err != nil {
			n++
		}
		n += len(f.Errors)
	}
	return n
}

type Loader struct {
	opt Options
	log logx.Logger
}

func New(opt Options) *Loader {
	if opt.Workers <= 0 {
		opt.Workers = runtime.GOMAXPROCS(0)
	}
	if opt.Resolver == nil {
		opt.Resolver = account.OS{}
	}
	if opt.Sink == nil {
		opt.Sink = diag.Nop()
	}
	log := opt.Logger
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Loader{opt: opt, log: log.With(logx.String("comp", "loader"))}
}

func (l *Loader) Dir() string { return l.opt.Dir }

// Load scans the directory. It fails only when the directory itself cannot
// be listed or ctx is canceled; per-file failures are in the Result.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	start := time.Now()
	files, err := listCrontabs(l.opt.Dir)
	if err != nil {
		l.opt.Sink.Record(diag.SeverityError, l.opt.Dir, 0, fmt.Sprintf("cannot list directory: %v", err))
		return nil, fmt.Errorf("list %s: %w", l.opt.Dir, err)
	}

	res := &Result{Dir: l.opt.Dir, Time: start, Files: make([]FileResult, len(files))}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.opt.Workers)
	for i, name := range files {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res.Files[i] = l.LoadFile(filepath.Join(l.opt.Dir, name))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	l.publish(res)
	l.log.Info("crontab scan completed",
		logx.String("dir", l.opt.Dir),
		logx.Int("files", len(res.Files)),
		logx.Int("entries", len(res.Entries())),
		logx.Int("failures", res.Failures()),
		logx.Duration("took", time.Since(start)),
	)
	return res, nil
}

// LoadFile parses a single crontab. It never returns a partially failed
// file as an error; callers inspect the FileResult.
func (l *Loader) LoadFile(path string) FileResult {
	fr := FileResult{Name: filepath.Base(path), Path: path}

	var owner *account.Account
	if !l.opt.System {
		name := l.opt.Owner
		if name == "" {
			name = fr.Name
		}
		a, err := l.opt.Resolver.Resolve(name)
		if err != nil {
			fr.Err = &crontab.ParseError{File: path, Code: crontab.CodeUsername, Err: err}
			l.opt.Sink.Record(diag.SeverityError, path, 0, fmt.Sprintf("%s: owner %q: %v", crontab.CodeUsername, name, err))
			return fr
		}
		owner = &a
	}

	f, err := os.Open(path)
	if err != nil {
		fr.Err = fmt.Errorf("open %s: %w", path, err)
		l.opt.Sink.Record(diag.SeverityError, path, 0, fmt.Sprintf("cannot open: %v", err))
		return fr
	}
	defer f.Close()

	fr.Entries, fr.Errors = crontab.Parse(f, crontab.Options{
		File:     path,
		Owner:    owner,
		Env:      l.opt.Env,
		Resolver: l.opt.Resolver,
		Sink:     l.opt.Sink,
		Logger:   l.log,
	})
	l.log.Debug("crontab parsed",
		logx.String("file", path),
		logx.Int("entries", len(fr.Entries)),
		logx.Int("errors", len(fr.Errors)),
	)
	return fr
}

const (
	EventScanCompleted = "crontab.scan.completed"
	EventFileFailed    = "crontab.file.failed"
)

// ScanSummary is the payload of EventScanCompleted.
type ScanSummary struct {
	Dir      string `json:"dir"`
	Files    int    `json:"files"`
	Entries  int    `json:"entries"`
	Failures int    `json:"failures"`
}

// FileFailure is the payload of EventFileFailed.
type FileFailure struct {
	File  string `json:"file"`
	Lines int    `json:"lines"`
	Err   string `json:"err,omitempty"`
}

func (l *Loader) publish(res *Result) {
	if l.opt.Bus == nil {
		return
	}
	for _, f := range res.Files {
		if !f.Failed() {
			continue
		}
		ff := FileFailure{File: f.Path, Lines: len(f.Errors)}
		if f.Err != nil {
			ff.Err = f.Err.Error()
		}
		l.opt.Bus.Publish(eventbus.Event{Type: EventFileFailed, Time: res.Time, Data: ff})
	}
	l.opt.Bus.Publish(eventbus.Event{
		Type: EventScanCompleted,
		Time: res.Time,
		Data: ScanSummary{
			Dir:      res.Dir,
			Files:    len(res.Files),
			Entries:  len(res.Entries()),
			Failures: res.Failures(),
		},
	})
}

// IsOwnerError reports whether err is a file-level owner resolution failure.
func IsOwnerError(err error) bool {
	var pe *crontab.ParseError
	return errors.As(err, &pe) && pe.Code == crontab.CodeUsername
}
