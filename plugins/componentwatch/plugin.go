// Package componentwatch drives component lifecycles from descriptor files.
// Every *.toml file in the watched directory describes one component; the
// plugin creates, activates, updates, deactivates and deletes components in
// the lifecycle registry as files appear, change and disappear.
//
// A descriptor that cannot be parsed marks its component FAILED. For a file
// seen for the first time the identity comes from a file name of the form
// <tenant>.<kind>.<id>.toml; other names are only logged.
package componentwatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/keystone/pkg/keystone"
	"github.com/bft-labs/keystone/pkg/lifecycle"
	"github.com/bft-labs/keystone/pkg/log"
)

const descriptorExt = ".toml"

// Config holds configuration options for the component watcher plugin.
type Config struct {
	// Dir is the directory holding component descriptors. The plugin is
	// disabled when empty.
	Dir string

	// DebounceDelay is how long to wait after the last file event before
	// reconciling the directory.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
	}
}

// tracked is the last descriptor applied from one file.
type tracked struct {
	identity lifecycle.Identity
	content  []byte
}

// Plugin watches a descriptor directory and mirrors it into the registry.
type Plugin struct {
	dir           string
	debounceDelay time.Duration

	registry *lifecycle.Registry
	logger   log.Logger
	watcher  *fsnotify.Watcher
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	// files and owners are only touched by Initialize and the watch loop.
	files  map[string]*tracked
	owners map[string]string
}

// New creates a new component watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		dir:           cfg.Dir,
		debounceDelay: cfg.DebounceDelay,
		files:         make(map[string]*tracked),
		owners:        make(map[string]string),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "componentwatch"
}

// Initialize reconciles the descriptors already present and starts
// watching the directory.
func (p *Plugin) Initialize(ctx context.Context, cfg keystone.PluginConfig) error {
	p.logger = log.With(log.OrNoop(cfg.Logger), log.String("plugin", p.Name()))
	p.registry = cfg.Registry

	if p.dir == "" {
		p.logger.Warn("component watcher disabled: no components directory configured")
		return nil
	}
	if p.registry == nil {
		return errors.New("componentwatch: registry is required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("componentwatch: create watcher: %w", err)
	}
	if err := watcher.Add(p.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("componentwatch: watch %s: %w", p.dir, err)
	}
	p.watcher = watcher

	p.reconcile()

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.watchLoop(watchCtx)

	p.logger.Info("component watcher started", log.String("dir", p.dir))
	return nil
}

// Shutdown stops the watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context) {
	defer p.wg.Done()
	defer p.watcher.Close()

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if !isDescriptor(event.Name) {
				continue
			}
			debounce = time.After(p.debounceDelay)

		case <-debounce:
			debounce = nil
			p.reconcile()

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("watcher error", log.Err(err))
		}
	}
}

// reconcile compares the directory with the descriptors applied so far
// and drives the registry accordingly.
func (p *Plugin) reconcile() {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		p.logger.Error("read components directory failed", log.Err(err))
		return
	}

	present := make(map[string]bool)
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !isDescriptor(e.Name()) {
			continue
		}
		path := filepath.Join(p.dir, e.Name())
		present[path] = true
		paths = append(paths, path)
	}

	var removed []string
	for path := range p.files {
		if !present[path] {
			removed = append(removed, path)
		}
	}
	sort.Strings(removed)
	for _, path := range removed {
		p.remove(path, "descriptor removed")
	}

	for _, path := range paths {
		p.sync(path)
	}
}

func (p *Plugin) sync(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			p.remove(path, "descriptor removed")
			return
		}
		p.logger.Error("read descriptor failed", log.String("file", path), log.Err(err))
		return
	}

	prev := p.files[path]
	if prev != nil && bytes.Equal(prev.content, data) {
		return
	}

	desc, err := ParseDescriptor(data)
	if err != nil {
		p.logger.Error("invalid component descriptor", log.String("file", path), log.Err(err))
		if prev != nil {
			prev.content = data
			p.fail(prev.identity, err)
			return
		}
		p.failNew(path, data, err)
		return
	}

	id := desc.Identity()
	if prev != nil && prev.identity != id {
		p.remove(path, "descriptor identity changed")
		prev = nil
	}
	if owner, ok := p.owners[id.Key()]; ok && owner != path {
		p.logger.Error("component already described by another file",
			log.String("file", path),
			log.String("owner", owner),
			log.Stringer("identity", id))
		return
	}

	p.files[path] = &tracked{identity: id, content: data}
	p.owners[id.Key()] = path

	reason := "descriptor added"
	if prev != nil {
		reason = "descriptor changed"
	}
	p.drive(id, desc.IsEnabled(), prev != nil, reason)
}

func (p *Plugin) drive(id lifecycle.Identity, enabled, changed bool, reason string) {
	current, known := p.registry.Status(id)
	if known && current == lifecycle.Deleted {
		p.logger.Warn("component was deleted and cannot be reused", log.Stringer("identity", id))
		return
	}

	for _, next := range steps(current, known, enabled, changed) {
		var err error
		if known {
			_, err = p.registry.TransitionFrom(id, current, next, reason)
		} else {
			_, err = p.registry.Transition(id, next, reason)
		}
		if err != nil {
			p.logger.Error("component transition rejected",
				log.Stringer("identity", id),
				log.Stringer("to", next),
				log.Err(err))
			return
		}
		current, known = next, true
	}
}

// failNew tracks an unparsable file under the identity its name encodes and
// creates the component directly in FAILED.
func (p *Plugin) failNew(path string, data []byte, cause error) {
	id, ok := identityFromFileName(path)
	if !ok {
		return
	}
	if owner, taken := p.owners[id.Key()]; taken && owner != path {
		return
	}

	p.files[path] = &tracked{identity: id, content: data}
	p.owners[id.Key()] = path

	if _, known := p.registry.Status(id); !known {
		if _, err := p.registry.Transition(id, lifecycle.Created, "descriptor added"); err != nil {
			p.logger.Error("component transition rejected",
				log.Stringer("identity", id),
				log.Stringer("to", lifecycle.Created),
				log.Err(err))
			return
		}
	}
	p.fail(id, cause)
}

func (p *Plugin) fail(id lifecycle.Identity, cause error) {
	current, known := p.registry.Status(id)
	if !known {
		return
	}
	if err := lifecycle.Validate(current, lifecycle.Failed); err != nil {
		p.logger.Warn("component cannot be marked failed",
			log.Stringer("identity", id),
			log.Stringer("status", current))
		return
	}
	if _, err := p.registry.TransitionFrom(id, current, lifecycle.Failed, "invalid descriptor: "+cause.Error()); err != nil {
		p.logger.Error("component transition rejected",
			log.Stringer("identity", id),
			log.Stringer("to", lifecycle.Failed),
			log.Err(err))
	}
}

func (p *Plugin) remove(path, reason string) {
	prev, ok := p.files[path]
	if !ok {
		return
	}
	delete(p.files, path)
	delete(p.owners, prev.identity.Key())

	current, known := p.registry.Status(prev.identity)
	if !known || current == lifecycle.Deleted {
		return
	}
	if _, err := p.registry.TransitionFrom(prev.identity, current, lifecycle.Deleted, reason); err != nil {
		p.logger.Error("component transition rejected",
			log.Stringer("identity", prev.identity),
			log.Stringer("to", lifecycle.Deleted),
			log.Err(err))
	}
}

// identityFromFileName maps <tenant>.<kind>.<id>.toml to an identity. The
// id may itself contain dots.
func identityFromFileName(path string) (lifecycle.Identity, bool) {
	base := strings.TrimSuffix(filepath.Base(path), descriptorExt)
	parts := strings.SplitN(base, ".", 3)
	if len(parts) != 3 {
		return lifecycle.Identity{}, false
	}
	id := lifecycle.Identity{Tenant: parts[0], Kind: parts[1], ID: parts[2]}
	if id.Validate() != nil {
		return lifecycle.Identity{}, false
	}
	return id, true
}

func isDescriptor(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(base, descriptorExt) && !strings.HasPrefix(base, ".")
}

// Ensure Plugin implements keystone.Plugin.
var _ keystone.Plugin = (*Plugin)(nil)
