package hostinfo

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce is the default debounce interval for cache file events.
const DefaultWatchDebounce = 200 * time.Millisecond

// fileWatcher reports changes to one file made by other processes.
type fileWatcher struct {
	watcher   *fsnotify.Watcher
	filePath  string
	debounce  time.Duration
	onChange  func()
	onError   func(error)
	stopCh    chan struct{}
	stoppedCh chan struct{}
	mu        sync.Mutex
	running   bool
}

// newFileWatcher creates a watcher for filePath. onChange is called once
// per burst of events, after debounce has elapsed without another event.
func newFileWatcher(filePath string, debounce time.Duration, onChange func(), onError func(error)) (*fileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	// The cache file is replaced by rename, so watch its directory.
	if err := watcher.Add(filepath.Dir(filePath)); err != nil {
		watcher.Close()
		return nil, err
	}

	return &fileWatcher{
		watcher:   watcher,
		filePath:  filePath,
		debounce:  debounce,
		onChange:  onChange,
		onError:   onError,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}, nil
}

// Start begins watching in a goroutine.
func (fw *fileWatcher) Start() {
	fw.mu.Lock()
	if fw.running {
		fw.mu.Unlock()
		return
	}
	fw.running = true
	fw.mu.Unlock()

	go fw.watchLoop()
}

// Stop stops the watcher and waits for its goroutine to exit. A watcher
// that was never started only releases its fsnotify handle.
func (fw *fileWatcher) Stop() {
	fw.mu.Lock()
	if !fw.running {
		fw.mu.Unlock()
		fw.watcher.Close()
		return
	}
	fw.mu.Unlock()

	close(fw.stopCh)
	<-fw.stoppedCh
}

func (fw *fileWatcher) watchLoop() {
	defer close(fw.stoppedCh)
	defer fw.watcher.Close()

	absPath, _ := filepath.Abs(fw.filePath)
	baseName := filepath.Base(fw.filePath)

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	for {
		select {
		case <-fw.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			fw.mu.Lock()
			fw.running = false
			fw.mu.Unlock()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			eventAbs, _ := filepath.Abs(event.Name)
			if filepath.Base(event.Name) != baseName && eventAbs != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.NewTimer(fw.debounce)
			debounceCh = debounceTimer.C

		case <-debounceCh:
			if fw.onChange != nil {
				fw.onChange()
			}
			debounceTimer = nil
			debounceCh = nil

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			if fw.onError != nil {
				fw.onError(err)
			}
		}
	}
}
