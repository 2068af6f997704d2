// Package settings reloads voice and speed preferences while a
// session is running, so edits to the config file take effect without
// restarting playback.
package settings

import (
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Settings holds the preferences that may change mid-session.
type Settings struct {
	Voice string
	Speed float64
}

// Provider watches a config file and notifies listeners when the
// tunable settings in it change.
type Provider struct {
	mu       sync.Mutex
	path     string
	current  Settings
	onChange func(Settings)
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewProvider reads the initial settings from path. The file is not
// watched until Watch is called.
func NewProvider(path string, defaults Settings) *Provider {
	p := &Provider{
		path:    path,
		current: defaults,
		done:    make(chan struct{}),
	}
	if s, err := readFile(path, defaults); err == nil {
		p.current = s
	}
	return p
}

// Current returns the most recently loaded settings.
func (p *Provider) Current() Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// OnChange registers the callback invoked after each reload. Only one
// callback is supported; later calls replace earlier ones.
func (p *Provider) OnChange(fn func(Settings)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = fn
}

// Watch starts watching the config file's directory. Editors often
// replace files on save, so the directory is watched and events are
// filtered by name.
func (p *Provider) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(p.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	p.mu.Lock()
	p.watcher = watcher
	p.mu.Unlock()

	log.Debug("watching settings file", "path", p.path)
	go p.loop(watcher)
	return nil
}

// Close stops the watcher. Safe to call when Watch was never started.
func (p *Provider) Close() error {
	p.mu.Lock()
	watcher := p.watcher
	p.watcher = nil
	p.mu.Unlock()
	if watcher == nil {
		return nil
	}
	err := watcher.Close()
	<-p.done
	return err
}

func (p *Provider) loop(watcher *fsnotify.Watcher) {
	defer close(p.done)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(p.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			log.Debug("settings file changed", "file", event.Name, "event", event.Op)
			p.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Debug("settings watch error", "path", p.path, "error", err)
		}
	}
}

func (p *Provider) reload() {
	p.mu.Lock()
	prev := p.current
	p.mu.Unlock()

	s, err := readFile(p.path, prev)
	if err != nil {
		log.Error("could not reload settings", "path", p.path, "error", err)
		return
	}
	if s == prev {
		return
	}

	p.mu.Lock()
	p.current = s
	fn := p.onChange
	p.mu.Unlock()

	log.Info("settings reloaded", "voice", s.Voice, "speed", s.Speed)
	if fn != nil {
		fn(s)
	}
}

func readFile(path string, defaults Settings) (Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return defaults, err
	}

	s := defaults
	if v.IsSet("readaloud.voice") {
		s.Voice = v.GetString("readaloud.voice")
	}
	if v.IsSet("readaloud.speed") {
		s.Speed = v.GetFloat64("readaloud.speed")
	}
	if s.Speed < 0.25 || s.Speed > 4.0 {
		s.Speed = defaults.Speed
	}
	return s, nil
}
