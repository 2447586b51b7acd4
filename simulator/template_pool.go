package simulator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ahmetb/go-linq/v3"

	"github.com/arloliu/secs-simulator/sml"
)

// TemplateEvent is the kind of change notified to TemplatePool handlers.
type TemplateEvent int

const (
	// TemplateAdded is notified after a template is added.
	TemplateAdded TemplateEvent = iota
	// TemplateRemoved is notified after a template is removed.
	TemplateRemoved
)

func (e TemplateEvent) String() string {
	if e == TemplateAdded {
		return "added"
	}

	return "removed"
}

// TemplateChange describes a change of the TemplatePool.
type TemplateChange struct {
	Event TemplateEvent
	Alias string
}

// TemplatePool is a registry of SML message templates keyed by alias.
//
// Aliases are listed in insertion order. The pool also indexes templates by stream and by
// stream-function; the alias map and the indexes are updated under one lock.
type TemplatePool struct {
	mu       sync.RWMutex
	entries  map[string]*sml.Template
	order    []string
	byStream map[uint8]int
	bySF     map[uint16][]string
	handlers observers[TemplateChange]
}

// NewTemplatePool creates an empty template pool.
func NewTemplatePool() *TemplatePool {
	return &TemplatePool{
		entries:  make(map[string]*sml.Template),
		byStream: make(map[uint8]int),
		bySF:     make(map[uint16][]string),
	}
}

func sfKey(stream uint8, function uint8) uint16 {
	return uint16(stream)<<8 | uint16(function)
}

// Add registers tmpl under alias. It returns false, leaving the pool unchanged, if the alias is
// already registered.
func (p *TemplatePool) Add(alias string, tmpl *sml.Template) bool {
	p.mu.Lock()
	if _, ok := p.entries[alias]; ok {
		p.mu.Unlock()
		return false
	}

	p.entries[alias] = tmpl
	p.order = append(p.order, alias)
	p.byStream[tmpl.StreamCode()]++
	key := sfKey(tmpl.StreamCode(), tmpl.FunctionCode())
	p.bySF[key] = append(p.bySF[key], alias)
	p.mu.Unlock()

	p.handlers.notify(TemplateChange{Event: TemplateAdded, Alias: alias})

	return true
}

// AddSML parses text, which must hold exactly one SML message, and registers it under alias.
func (p *TemplatePool) AddSML(alias string, text string) error {
	tmpl, err := sml.NewTemplate(text)
	if err != nil {
		return err
	}

	if !p.Add(alias, tmpl) {
		return fmt.Errorf("%w: %s", ErrDuplicateAlias, alias)
	}

	return nil
}

// Remove unregisters alias. It returns false if the alias isn't registered.
func (p *TemplatePool) Remove(alias string) bool {
	p.mu.Lock()
	tmpl, ok := p.entries[alias]
	if !ok {
		p.mu.Unlock()
		return false
	}

	delete(p.entries, alias)
	p.order = removeString(p.order, alias)

	stream := tmpl.StreamCode()
	if p.byStream[stream]--; p.byStream[stream] == 0 {
		delete(p.byStream, stream)
	}

	key := sfKey(stream, tmpl.FunctionCode())
	if p.bySF[key] = removeString(p.bySF[key], alias); len(p.bySF[key]) == 0 {
		delete(p.bySF, key)
	}
	p.mu.Unlock()

	p.handlers.notify(TemplateChange{Event: TemplateRemoved, Alias: alias})

	return true
}

// Get returns the template registered under alias.
func (p *TemplatePool) Get(alias string) (*sml.Template, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	tmpl, ok := p.entries[alias]

	return tmpl, ok
}

// Aliases returns the registered aliases in insertion order.
func (p *TemplatePool) Aliases() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return append([]string(nil), p.order...)
}

// Len returns the number of registered templates.
func (p *TemplatePool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.order)
}

// HasStream reports whether any template of the stream is registered.
func (p *TemplatePool) HasStream(stream uint8) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.byStream[stream] > 0
}

// HasStreamFunction reports whether any template of the stream-function is registered.
func (p *TemplatePool) HasStreamFunction(stream uint8, function uint8) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.bySF[sfKey(stream, function)]) > 0
}

// AliasesFor returns the aliases of the templates of the stream-function, in insertion order.
func (p *TemplatePool) AliasesFor(stream uint8, function uint8) []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var aliases []string
	linq.From(p.order).
		WhereT(func(alias string) bool {
			tmpl := p.entries[alias]
			return tmpl.StreamCode() == stream && tmpl.FunctionCode() == function
		}).
		ToSlice(&aliases)

	return aliases
}

// OnlyOneMatching returns the template of the stream-function only if exactly one is registered.
// When none or several match, it returns false: the caller must not guess among candidates.
func (p *TemplatePool) OnlyOneMatching(stream uint8, function uint8) (*sml.Template, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	aliases := p.bySF[sfKey(stream, function)]
	if len(aliases) != 1 {
		return nil, false
	}

	return p.entries[aliases[0]], true
}

// AddHandler adds a handler notified after every add and remove. It returns a function removing
// the handler.
func (p *TemplatePool) AddHandler(handler func(TemplateChange)) (remove func()) {
	return p.handlers.add(handler)
}

// LoadFile parses an SML file and registers each of its messages.
//
// The alias of a message is its name. An unnamed message takes the file name without extension
// when it's the only message of the file, and "<file name>#<n>" otherwise, n counting from 1.
//
// The file is rejected as a whole if it can't be parsed or any of its aliases is already
// registered. It returns the added aliases.
func (p *TemplatePool) LoadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load SML file: %w", err)
	}

	templates, err := sml.ParseTemplates(string(data))
	if err != nil {
		return nil, fmt.Errorf("load SML file %s: %w", path, err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	aliases := make([]string, len(templates))
	seen := make(map[string]struct{}, len(templates))
	for i, tmpl := range templates {
		alias := tmpl.Name()
		switch {
		case alias != "":
		case len(templates) == 1:
			alias = base
		default:
			alias = fmt.Sprintf("%s#%d", base, i+1)
		}

		if _, ok := seen[alias]; ok {
			return nil, fmt.Errorf("%w: %s in %s", ErrDuplicateAlias, alias, path)
		}
		if _, ok := p.Get(alias); ok {
			return nil, fmt.Errorf("%w: %s in %s", ErrDuplicateAlias, alias, path)
		}
		seen[alias] = struct{}{}
		aliases[i] = alias
	}

	for i, tmpl := range templates {
		if !p.Add(aliases[i], tmpl) {
			return aliases[:i], fmt.Errorf("%w: %s in %s", ErrDuplicateAlias, aliases[i], path)
		}
	}

	return aliases, nil
}

func removeString(values []string, target string) []string {
	for i, v := range values {
		if v == target {
			return append(values[:i:i], values[i+1:]...)
		}
	}

	return values
}
