package photoblog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "blog-images"), 0o755))

	cfg := smallConfig()
	cfg.Root = root
	s := New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, 50*time.Millisecond) }()

	thumb := filepath.Join(root, "blog-images", "thumbs", "new-200.jpg")
	writeImage := func() {
		writeJPEG(t, s.FS(), "blog-images/new.jpg", 300, 200)
		require.NoError(t, os.WriteFile(filepath.Join(root, "blog-images", ".hidden.jpg"), []byte("x"), 0o644))
	}

	// The watcher may not be registered yet on the first write.
	writeImage()
	require.Eventually(t, func() bool {
		if _, err := os.Stat(thumb); err == nil {
			return true
		}
		writeImage()
		return false
	}, 10*time.Second, 200*time.Millisecond)

	_, err := os.Stat(filepath.Join(root, "blog-images", "thumbs", ".hidden-200.jpg"))
	assert.True(t, os.IsNotExist(err))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

// collect reads deliveries until none arrive for wait and returns the names
// that were accepted.
func collect(d *debouncer, wait time.Duration) []string {
	var got []string
	for {
		select {
		case p := <-d.ready:
			if d.fired(p) {
				got = append(got, p.name)
			}
		case <-time.After(wait):
			return got
		}
	}
}

func TestDebouncerCoalescesWrites(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	defer d.stop()

	d.touch("a.jpg")
	d.touch("a.jpg")
	d.touch("b.jpg")
	d.touch("a.jpg")

	assert.ElementsMatch(t, []string{"a.jpg", "b.jpg"}, collect(d, 200*time.Millisecond))
}

func TestDebouncerDropsStaleDelivery(t *testing.T) {
	d := newDebouncer(10 * time.Millisecond)
	defer d.stop()

	d.touch("a.jpg")
	// Nothing reads ready yet, so the first timer fires and blocks.
	time.Sleep(100 * time.Millisecond)
	d.touch("a.jpg")

	assert.Equal(t, []string{"a.jpg"}, collect(d, 200*time.Millisecond))
}

func TestDebouncerStopReleasesCallbacks(t *testing.T) {
	d := newDebouncer(time.Millisecond)
	d.touch("a.jpg")
	time.Sleep(50 * time.Millisecond)
	d.stop()

	select {
	case p := <-d.ready:
		t.Fatalf("delivery after stop: %v", p)
	case <-time.After(50 * time.Millisecond):
	}
}
