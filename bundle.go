package tmplschema

import (
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tmplschema/tmplschema/infer"
	"github.com/tmplschema/tmplschema/shape"
	"github.com/tmplschema/tmplschema/template"
)

// Logger is used to print notifications and inference errors when using the
// "WatchFiles" feature.
var Logger = log.New(os.Stderr, "[tmplschema] ", 0)

// templateExts are the file suffixes AddTemplateDir picks up.
var templateExts = []string{".html", ".j2", ".jinja", ".jinja2", ".tmpl"}

type templateFile struct{ name, path, content string }

// Bundle is a collection of template sources.  It acts as input for the
// inference engine: every template in the bundle is analyzed, and the bundle
// itself resolves the templates they include, import or extend.
type Bundle struct {
	files           []templateFile
	config          *infer.Config
	err             error
	watcher         *fsnotify.Watcher
	reinferCallback func(map[string]*shape.Dict)
}

// NewBundle returns an empty bundle.
func NewBundle() *Bundle {
	return &Bundle{}
}

// WatchFiles tells the bundle to watch any template files added to it, re-run
// inference as necessary, and report the updated contexts through the
// callback set with SetReinferCallback.  It should be called once, before
// adding any files.
func (b *Bundle) WatchFiles(watch bool) *Bundle {
	if watch && b.err == nil && b.watcher == nil {
		b.watcher, b.err = fsnotify.NewWatcher()
	}
	return b
}

// AddTemplateDir adds all template files found within the given directory
// (including sub-directories) to the bundle.
func (b *Bundle) AddTemplateDir(root string) *Bundle {
	var err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		for _, ext := range templateExts {
			if strings.HasSuffix(path, ext) {
				b.AddTemplateFile(path)
				break
			}
		}
		return nil
	})
	if err != nil {
		b.err = err
	}
	return b
}

// AddTemplateFile adds the given template file to this bundle.
// If WatchFiles is on, it will be subsequently watched for updates.
func (b *Bundle) AddTemplateFile(filename string) *Bundle {
	content, err := ioutil.ReadFile(filename)
	if err != nil {
		b.err = err
	}
	if b.err == nil && b.watcher != nil {
		b.err = b.watcher.Add(filename)
	}
	b.files = append(b.files, templateFile{filepath.Base(filename), filename, string(content)})
	return b
}

// AddTemplateString adds the given template to the bundle.  The name is used
// both in error messages and to resolve includes of that name.
func (b *Bundle) AddTemplateString(name, content string) *Bundle {
	b.files = append(b.files, templateFile{name, "", content})
	return b
}

// SetConfig assigns the inference configuration used for every template in
// the bundle.  The bundle installs itself as the loader unless the
// configuration already carries one.
func (b *Bundle) SetConfig(cfg *infer.Config) *Bundle {
	b.config = cfg
	return b
}

// SetReinferCallback assigns the bundle a function to call with the fresh
// results after a watched file changes.
func (b *Bundle) SetReinferCallback(c func(map[string]*shape.Dict)) *Bundle {
	b.reinferCallback = c
	return b
}

// Infer parses all templates in this bundle and infers the context structure
// of each, resolving cross-template references within the bundle.  The result
// maps template name to its inferred context.
func (b *Bundle) Infer() (map[string]*shape.Dict, error) {
	if b.err != nil {
		return nil, b.err
	}

	var registry = &template.Registry{}
	for _, f := range b.files {
		if err := registry.Add(f.name, f.content); err != nil {
			return nil, err
		}
	}

	var cfg = b.config
	if cfg == nil {
		cfg = infer.DefaultConfig()
	}
	if cfg.Loader == nil {
		var copied = *cfg
		copied.Loader = registry.Source
		cfg = &copied
	}

	var results = make(map[string]*shape.Dict, len(registry.Templates))
	for _, t := range registry.Templates {
		d, err := infer.FromTemplate(t.Node, cfg)
		if err != nil {
			return nil, err
		}
		results[t.Name] = d
	}

	if b.watcher != nil {
		go b.reinferer()
	}
	return results, nil
}

func (b *Bundle) reinferer() {
	for {
		select {
		case ev, ok := <-b.watcher.Events:
			if !ok {
				return
			}
			// If it's a rename, then fsnotify has removed the watch.
			// Add it back, after a delay.
			if ev.Op&(fsnotify.Rename|fsnotify.Remove) != 0 {
				time.Sleep(10 * time.Millisecond)
				if err := b.watcher.Add(ev.Name); err != nil {
					Logger.Println(err)
				}
			}

			// Re-infer everything from the files on disk.
			var bundle = NewBundle().SetConfig(b.config)
			for _, f := range b.files {
				if f.path != "" {
					bundle.AddTemplateFile(f.path)
				} else {
					bundle.AddTemplateString(f.name, f.content)
				}
			}
			var results, err = bundle.Infer()
			if err != nil {
				Logger.Println(err)
				continue
			}

			if b.reinferCallback != nil {
				b.reinferCallback(results)
			}
			Logger.Printf("update successful (%v)", ev)

		case err, ok := <-b.watcher.Errors:
			if !ok {
				return
			}
			Logger.Println(err)
		}
	}
}
