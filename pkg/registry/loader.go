package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// file format:
//
//	webservices:
//	  - id: list_projects
//	    enabled: true
//	    access_levels: [ORGANIZATION_ROLE]
//	    is_licensed: true
type registryFile struct {
	Webservices []Descriptor `yaml:"webservices"`
}

// LoadFile registers every descriptor found in a YAML registry file.
func LoadFile(r *Registry, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read registry file: %w", err)
	}
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse registry file %s: %w", path, err)
	}
	for _, d := range file.Webservices {
		if err := r.Register(d); err != nil {
			return fmt.Errorf("failed to register webservice from %s: %w", path, err)
		}
	}
	return nil
}

func isRegistryFile(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yml" || ext == ".yaml"
}

// LoadDir loads every .yml/.yaml file in dir, in lexical order.
func LoadDir(r *Registry, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read registry dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isRegistryFile(entry.Name()) {
			continue
		}
		if err := LoadFile(r, filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Watcher reloads registry files while the process is still assembling its
// configuration. Once the registry is finalized the watcher stops applying
// changes and only logs that a reload was skipped.
type Watcher struct {
	registry *Registry
	dir      string
	log      *logrus.Logger
	fsw      *fsnotify.Watcher
	done     chan struct{}
}

// NewWatcher watches dir for registry file changes.
func NewWatcher(r *Registry, dir string, log *logrus.Logger) (*Watcher, error) {
	if log == nil {
		log = logrus.New()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch registry dir: %w", err)
	}
	w := &Watcher{registry: r, dir: dir, log: log, fsw: fsw, done: make(chan struct{})}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !isRegistryFile(event.Name) {
				continue
			}
			if w.registry.Finalized() {
				w.log.WithField("file", event.Name).
					Warn("registry change ignored: registry already finalized")
				continue
			}
			if err := LoadFile(w.registry, event.Name); err != nil {
				w.log.WithError(err).WithField("file", event.Name).
					Error("failed to reload registry file")
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Error("registry watcher error")
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
