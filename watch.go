package photoblog

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/eringen/photoblog/variants"
)

// DefaultDebounce is how long Watch waits after the last write to a file.
const DefaultDebounce = 500 * time.Millisecond

// Watch regenerates the variants of images created or written in the image
// library until ctx is cancelled. Events for one file are debounced and
// handled one at a time on the calling goroutine.
func (s *Site) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	dir := filepath.Join(s.Config.Root, filepath.FromSlash(s.Config.ImagesDir))

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	s.log.Info().Str("dir", dir).Msg("watching for images")

	d := newDebouncer(debounce)
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if strings.HasPrefix(name, ".") || !variants.IsSupported(name) {
				continue
			}
			d.touch(name)

		case p := <-d.ready:
			if d.fired(p) {
				s.handleImage(p.name)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

// debouncer delays a name until it has been quiet for delay. It is owned by
// one goroutine; only the timer callbacks run elsewhere.
type debouncer struct {
	delay  time.Duration
	ready  chan pending
	done   chan struct{}
	timers map[string]*time.Timer
	gens   map[string]uint64
	seq    uint64
}

type pending struct {
	name string
	gen  uint64
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:  delay,
		ready:  make(chan pending),
		done:   make(chan struct{}),
		timers: make(map[string]*time.Timer),
		gens:   make(map[string]uint64),
	}
}

// touch restarts the quiet period of name.
func (d *debouncer) touch(name string) {
	if t, ok := d.timers[name]; ok {
		t.Stop()
	}
	d.seq++
	p := pending{name: name, gen: d.seq}
	d.gens[name] = p.gen
	d.timers[name] = time.AfterFunc(d.delay, func() {
		select {
		case d.ready <- p:
		case <-d.done:
		}
	})
}

// fired reports whether p came from the latest timer of its name. A timer
// that already fired when touch stopped it still delivers; that delivery is
// stale.
func (d *debouncer) fired(p pending) bool {
	if d.gens[p.name] != p.gen {
		return false
	}
	delete(d.gens, p.name)
	delete(d.timers, p.name)
	return true
}

// stop cancels pending timers and releases callbacks blocked on ready.
func (d *debouncer) stop() {
	close(d.done)
	for _, t := range d.timers {
		t.Stop()
	}
}

func (s *Site) handleImage(name string) {
	res, err := s.ProcessImages(ProcessOptions{File: name, UpdatePosts: true})
	if err != nil {
		s.log.Warn().Err(err).Str("file", name).Msg("processing failed")
		return
	}
	for _, f := range res.Batch.Failed {
		s.log.Warn().Err(f.Err).Str("file", f.Source).Msg("processing failed")
	}
	if len(res.Batch.Processed) > 0 {
		s.log.Info().Str("file", path.Join(s.Config.ImagesDir, name)).Int("posts_updated", res.UpdatedPosts).Msg("regenerated variants")
	}
}
