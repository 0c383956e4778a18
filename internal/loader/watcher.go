package loader

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	logx "crontabs/pkg/logx"
)

const (
	DefaultDebounce    = 250 * time.Millisecond
	DefaultMinInterval = time.Second
)

type WatchOptions struct {
	// Debounce coalesces bursts of filesystem events into one rescan.
	Debounce time.Duration
	// MinInterval is the least time between two rescans.
	MinInterval time.Duration
}

// Watcher rescans a Loader's directory whenever it changes and publishes
// each Result that differs from the previous one.
type Watcher struct {
	loader  *Loader
	opt     WatchOptions
	limiter *rate.Limiter
	log     logx.Logger

	// scanMu serializes rescans triggered by overlapping debounce timers.
	scanMu sync.Mutex

	mu       sync.RWMutex
	last     *Result
	lastHash uint64

	// subsMu guards subs and ensures we never send on a channel that is
	// concurrently being closed in Unsubscribe.
	subsMu sync.Mutex
	subs   []chan *Result
}

func NewWatcher(l *Loader, opt WatchOptions) *Watcher {
	if opt.Debounce <= 0 {
		opt.Debounce = DefaultDebounce
	}
	if opt.MinInterval <= 0 {
		opt.MinInterval = DefaultMinInterval
	}
	return &Watcher{
		loader:  l,
		opt:     opt,
		limiter: rate.NewLimiter(rate.Every(opt.MinInterval), 1),
		log:     l.log.With(logx.String("comp", "watcher")),
	}
}

// Last returns the most recently published scan, or nil before the first.
func (w *Watcher) Last() *Result {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}

func (w *Watcher) Subscribe(buffer int) chan *Result {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan *Result, buffer)
	w.subsMu.Lock()
	w.subs = append(w.subs, ch)
	w.subsMu.Unlock()
	return ch
}

func (w *Watcher) Unsubscribe(ch chan *Result) {
	if ch == nil {
		return
	}
	w.subsMu.Lock()
	defer w.subsMu.Unlock()
	for i, s := range w.subs {
		if s == ch {
			last := len(w.subs) - 1
			w.subs[i] = w.subs[last]
			w.subs[last] = nil
			w.subs = w.subs[:last]
			close(ch)
			return
		}
	}
}

func (w *Watcher) publish(res *Result) {
	w.subsMu.Lock()
	defer w.subsMu.Unlock()
	for _, ch := range w.subs {
		// Deliver the newest scan; a slow subscriber loses the oldest one.
		select {
		case ch <- res:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- res:
			default:
				w.log.Debug("scan result dropped (subscriber slow)",
					logx.Int("queue_len", len(ch)),
					logx.Int("queue_cap", cap(ch)),
				)
			}
		}
	}
}

// Rescan loads the directory now, subject to the minimum interval, and
// publishes the result if it changed. It reports whether a result was
// published.
func (w *Watcher) Rescan(ctx context.Context) (bool, error) {
	w.scanMu.Lock()
	defer w.scanMu.Unlock()

	if err := w.limiter.Wait(ctx); err != nil {
		return false, err
	}
	res, err := w.loader.Load(ctx)
	if err != nil {
		return false, err
	}

	h := fingerprint(res)
	w.mu.Lock()
	unchanged := w.last != nil && h == w.lastHash
	if !unchanged {
		w.last, w.lastHash = res, h
	}
	w.mu.Unlock()
	if unchanged {
		w.log.Debug("crontabs unchanged; skipping publish", logx.String("dir", res.Dir))
		return false, nil
	}
	w.publish(res)
	return true, nil
}

// Run performs an initial scan and then rescans on every change to the
// directory until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	dir := w.loader.Dir()
	if _, err := w.Rescan(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		w.log.Warn("initial crontab scan failed", logx.String("dir", dir), logx.Err(err))
	}

	// fsnotify can stop delivering events or close its channels; recreate
	// the watcher with a jittered exponential backoff when that happens.
	const (
		restartBackoffBase = 250 * time.Millisecond
		restartBackoffMax  = 5 * time.Second
	)
	backoff := restartBackoffBase
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	nextWait := func() time.Duration {
		wait := backoff + time.Duration(rng.Int63n(int64(backoff/2)+1))
		if backoff < restartBackoffMax {
			backoff *= 2
			if backoff > restartBackoffMax {
				backoff = restartBackoffMax
			}
		}
		return wait
	}

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.opt.Debounce, func() {
			if _, err := w.Rescan(ctx); err != nil && ctx.Err() == nil {
				w.log.Warn("crontab rescan failed", logx.String("dir", dir), logx.Err(err))
			}
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		fw, err := fsnotify.NewWatcher()
		if err == nil {
			if err = fw.Add(dir); err != nil {
				_ = fw.Close()
			}
		}
		if err != nil {
			wait := nextWait()
			w.log.Warn("crontab watch init failed", logx.String("dir", dir), logx.Err(err), logx.Duration("backoff", wait))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
				continue
			}
		}

		backoff = restartBackoffBase
		w.log.Debug("crontab watcher started", logx.String("dir", dir))

		broken := false
		for !broken {
			select {
			case <-ctx.Done():
				_ = fw.Close()
				return nil
			case ev, ok := <-fw.Events:
				if !ok {
					broken = true
					break
				}
				if ignoredName(filepath.Base(ev.Name)) {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
					w.log.Debug("crontab change detected", logx.String("file", ev.Name), logx.String("op", ev.Op.String()))
					debounce()
				}
			case err, ok := <-fw.Errors:
				if !ok {
					broken = true
					break
				}
				if err == nil {
					continue
				}
				msg := strings.ToLower(err.Error())
				if strings.Contains(msg, "overflow") {
					w.log.Warn("crontab watch overflow; forcing rescan", logx.String("dir", dir), logx.Err(err))
					debounce()
					continue
				}
				w.log.Warn("crontab watch error", logx.String("dir", dir), logx.Err(err))
				if strings.Contains(msg, "closed") {
					broken = true
				}
			}
		}

		_ = fw.Close()
		if ctx.Err() != nil {
			return nil
		}
		wait := nextWait()
		w.log.Warn("crontab watcher stopped; restarting", logx.String("dir", dir), logx.Duration("backoff", wait))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// fingerprint hashes what a scan produced, so rescans triggered by
// no-op writes are not republished.
func fingerprint(res *Result) uint64 {
	h := fnv.New64a()
	for _, f := range res.Files {
		fmt.Fprintf(h, "F%s\x00", f.Path)
		if f.Err != nil {
			fmt.Fprintf(h, "E%s\x00", f.Err)
		}
		for _, e := range f.Entries {
			fmt.Fprintf(h, "%d|%s|%s|%d|%s|%q\x00", e.Line, e.Owner.Name, e.Schedule(), e.Flags, e.Command, e.Environ())
		}
		for _, pe := range f.Errors {
			fmt.Fprintf(h, "X%s\x00", pe)
		}
	}
	return h.Sum64()
}
