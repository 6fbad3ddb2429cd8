package artifact

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/exopredict/errors"
	"github.com/teranos/exopredict/logger"
)

// DefaultDebounce coalesces the burst of events an export produces.
const DefaultDebounce = 500 * time.Millisecond

// ReloadCallback receives every bundle the watcher loads successfully.
type ReloadCallback func(*Bundle)

// Watcher reloads the bundle when one of its artifact files changes. A
// failed reload is logged and the previous bundle stays in service.
type Watcher struct {
	dir      string
	opts     Options
	watched  map[string]bool
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      *zap.SugaredLogger

	mu        sync.Mutex
	callbacks []ReloadCallback
	timer     *time.Timer
	started   bool
	stopped   bool
	done      chan struct{}
}

// NewWatcher watches the artifact files of dir, plus the directory of any
// artifact configured outside it. Other files in those directories, such as
// batch prediction tables, are ignored.
func NewWatcher(dir string, opts Options, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "failed to watch artifacts dir %s", dir)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	log := opts.Logger
	if log == nil {
		log = logger.ComponentLogger("artifact")
	}

	l := &loader{dir: dir}
	names := append([]string{opts.MetadataFile, opts.ImputerFile, opts.WhiskerFile, opts.LabelEncoderFile},
		opts.ModelCandidates...)
	watched := make(map[string]bool, len(names))
	dirs := map[string]bool{filepath.Clean(dir): true}
	for _, name := range names {
		if name == "" {
			continue
		}
		path := filepath.Clean(l.path(name))
		watched[path] = true

		parent := filepath.Dir(path)
		if dirs[parent] {
			continue
		}
		dirs[parent] = true
		if err := fw.Add(parent); err != nil {
			log.Warnw("Cannot watch artifact directory, changes there are missed",
				logger.FieldPath, parent, logger.FieldError, err)
		}
	}

	return &Watcher{
		dir:      dir,
		opts:     opts,
		watched:  watched,
		watcher:  fw,
		debounce: debounce,
		log:      log,
		done:     make(chan struct{}),
	}, nil
}

// OnReload registers a callback for reloaded bundles
func (w *Watcher) OnReload(cb ReloadCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, cb)
}

// Start begins watching in a background goroutine
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true
	go w.watchLoop()
}

func (w *Watcher) watchLoop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !w.watched[filepath.Clean(event.Name)] {
				continue
			}
			w.log.Debugw("Artifact change detected",
				logger.FieldFile, event.Name,
				logger.FieldOperation, event.Op.String())
			w.scheduleReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnw("Artifact watcher error", logger.FieldError, err)
		}
	}
}

// scheduleReload restarts the debounce timer
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	b, err := Load(w.dir, w.opts)
	if err != nil {
		w.log.Errorw("Artifact reload failed, keeping the loaded bundle",
			logger.FieldError, err)
		return
	}

	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	callbacks := make([]ReloadCallback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	w.log.Infow("Artifact bundle reloaded",
		logger.FieldClassifier, b.Classifier.Kind(),
		logger.FieldFile, b.ClassifierFile)
	for _, cb := range callbacks {
		cb(b)
	}
}

// Stop ends watching. Pending reloads are dropped.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	started := w.started
	w.mu.Unlock()

	err := w.watcher.Close()
	if started {
		<-w.done
	}
	return err
}
