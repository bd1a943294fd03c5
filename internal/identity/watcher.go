// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sproutai/sprout-tui/internal/storage"
)

// watchDebounce coalesces the burst of events an atomic write produces.
const watchDebounce = 100 * time.Millisecond

// =============================================================================
// CREDENTIAL FILE WATCHER
// =============================================================================

type watcher struct {
	fs     *fsnotify.Watcher
	cancel context.CancelFunc
	done   chan struct{}
}

// Watch starts watching the credential file so that sessions written or
// removed by other processes are picked up. It returns once the watch is
// established; events are processed until ctx is done or Close is called.
func (c *Client) Watch(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.watcher != nil {
		return nil
	}

	path := c.store.Path()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	// The directory is watched because atomic writes replace the file.
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &watcher{fs: fw, cancel: cancel, done: make(chan struct{})}
	c.watcher = w

	go c.processEvents(ctx, w, filepath.Base(path))
	log.Printf("IDENTITY_WATCH_STARTED | path=%s", path)
	return nil
}

// Close stops the credential watcher.
func (c *Client) Close() error {
	c.mu.Lock()
	w := c.watcher
	c.watcher = nil
	c.mu.Unlock()

	if w == nil {
		return nil
	}
	w.cancel()
	err := w.fs.Close()
	<-w.done
	return err
}

func (c *Client) processEvents(ctx context.Context, w *watcher, name string) {
	defer close(w.done)

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			timerMu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				if ctx.Err() == nil {
					c.reload()
				}
			})
			timerMu.Unlock()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			log.Printf("IDENTITY_WATCH_ERROR | error=%v", err)
		}
	}
}

// reload re-reads the credential file and emits an event when it no longer
// matches the cached session. Writes made by this process match and are
// therefore silent.
func (c *Client) reload() {
	var next *Session
	creds, err := c.store.Load()
	switch {
	case err == nil:
		next = creds
	case errors.Is(err, storage.ErrNoCredentials):
	default:
		log.Printf("IDENTITY_RELOAD_FAILED | error=%v", err)
		return
	}

	c.mu.Lock()
	prev := c.session
	if sameSession(prev, next) {
		c.mu.Unlock()
		return
	}
	c.session = next
	c.loaded = true
	c.mu.Unlock()

	switch {
	case next == nil:
		c.emit(EventSignedOut, nil)
	case prev == nil || prev.User.ID != next.User.ID:
		c.emit(EventSignedIn, next)
	default:
		c.emit(EventTokenRefreshed, next)
	}
}

func sameSession(a, b *Session) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.AccessToken == b.AccessToken && a.User.ID == b.User.ID
}
