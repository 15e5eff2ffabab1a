package fsbackend

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/pitabwire/util"
	"golang.org/x/text/language"
)

// MessageStore lang -> namespace -> key -> message
type MessageStore map[string]map[string]map[string]string

// SaveMissingTo selects which languages receive a missing key.
type SaveMissingTo string

const (
	SaveMissingToFallback SaveMissingTo = "fallback"
	SaveMissingToCurrent  SaveMissingTo = "current"
	SaveMissingToAll      SaveMissingTo = "all"
)

// Config defines how a Bundle resolves keys.
type Config struct {
	// DefaultLang, e.g. "en"
	DefaultLang string
	// DefaultNamespace is used for keys without a "ns:" prefix.
	DefaultNamespace string
	// NSSeparator splits "ns:key". Defaults to ":".
	NSSeparator string

	// Fallbacks overrides the chain for a language, e.g.
	// "zh-CN": {"zh-CN", "zh", "en"}
	Fallbacks map[string][]string

	// SaveMissing reports keys not found anywhere in the chain to the backend.
	SaveMissing   bool
	SaveMissingTo SaveMissingTo
}

// Bundle holds the messages loaded through a Backend.
type Bundle struct {
	mu       sync.RWMutex
	backend  *Backend
	messages MessageStore
	config   Config
	sep      string

	reportedMu sync.Mutex
	reported   map[string]bool
}

// NewBundle creates a Bundle reading from backend.
func NewBundle(backend *Backend, cfg Config) *Bundle {
	if cfg.DefaultLang == "" {
		cfg.DefaultLang = "en"
	}
	if cfg.DefaultNamespace == "" {
		cfg.DefaultNamespace = "translation"
	}
	if cfg.NSSeparator == "" {
		cfg.NSSeparator = ":"
	}
	if cfg.SaveMissingTo == "" {
		cfg.SaveMissingTo = SaveMissingToFallback
	}
	if cfg.Fallbacks == nil {
		cfg.Fallbacks = make(map[string][]string)
	}

	sep := DefaultKeySeparator
	if backend != nil {
		sep = backend.Options().keySeparator()
	}
	return &Bundle{
		backend:  backend,
		messages: make(MessageStore),
		config:   cfg,
		sep:      sep,
		reported: make(map[string]bool),
	}
}

// RegisterMessages merges msgs into lang/ns; existing keys are overwritten,
// nothing is deleted.
func (b *Bundle) RegisterMessages(lang, ns string, msgs map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.messages[lang]; !ok {
		b.messages[lang] = make(map[string]map[string]string)
	}
	if _, ok := b.messages[lang][ns]; !ok {
		b.messages[lang][ns] = make(map[string]string)
	}
	for k, v := range msgs {
		b.messages[lang][ns][k] = v
	}
}

// Load reads every namespace for lang through the backend and replaces what
// was loaded before for those namespaces.
func (b *Bundle) Load(ctx context.Context, lang string, namespaces ...string) error {
	if b.backend == nil {
		return fmt.Errorf("bundle has no backend")
	}
	if len(namespaces) == 0 {
		namespaces = []string{b.config.DefaultNamespace}
	}

	for _, ns := range namespaces {
		res, err := b.backend.Read(ctx, lang, ns)
		if err != nil {
			return fmt.Errorf("load %s/%s: %w", lang, ns, err)
		}
		b.replaceMessages(lang, ns, res.Flatten(b.sep))
		util.Log(ctx).WithField("lng", lang).WithField("ns", ns).WithField("keys", len(res)).Debug("namespace loaded")
	}
	return nil
}

// LoadAll loads every namespace for every language in the default chain of each language.
func (b *Bundle) LoadAll(ctx context.Context, langs []string, namespaces ...string) error {
	seen := map[string]bool{}
	for _, lang := range langs {
		for _, l := range b.chain(lang) {
			if seen[l] {
				continue
			}
			seen[l] = true
			if err := b.Load(ctx, l, namespaces...); err != nil {
				return err
			}
		}
	}
	return nil
}

// replaceMessages swaps the whole namespace at once, so a concurrent lookup
// sees either the old or the new messages and never an empty namespace.
func (b *Bundle) replaceMessages(lang, ns string, msgs map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.messages[lang]; !ok {
		b.messages[lang] = make(map[string]map[string]string)
	}
	b.messages[lang][ns] = msgs
}

// Unload forgets lang/ns.
func (b *Bundle) Unload(lang, ns string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if nss, ok := b.messages[lang]; ok {
		delete(nss, ns)
	}
}

// Loaded lists the lang/ns pairs currently held.
func (b *Bundle) Loaded() []ResourceKey {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var keys []ResourceKey
	for lang, nss := range b.messages {
		for ns := range nss {
			keys = append(keys, ResourceKey{Language: lang, Namespace: ns})
		}
	}
	return keys
}

// Locale returns a view bound to the fallback chain of lang.
func (b *Bundle) Locale(lang string) *Locale {
	return &Locale{
		bundle: b,
		langs:  b.chain(lang),
	}
}

// chain: configured fallbacks > lang, its base language, default language.
func (b *Bundle) chain(lang string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if lang == "" {
		return []string{b.config.DefaultLang}
	}
	if fb, ok := b.config.Fallbacks[lang]; ok && len(fb) > 0 {
		return append([]string(nil), fb...)
	}

	chain := []string{lang}
	if tag, err := language.Parse(lang); err == nil {
		if base, conf := tag.Base(); conf != language.No && base.String() != lang {
			chain = append(chain, base.String())
		}
	}
	if b.config.DefaultLang != "" && !slices.Contains(chain, b.config.DefaultLang) {
		chain = append(chain, b.config.DefaultLang)
	}
	return chain
}

func (b *Bundle) lookup(lang, ns, key string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	msg, ok := b.messages[lang][ns][key]
	return msg, ok
}

// reportMissing hands a missing key to the backend once per target language.
func (b *Bundle) reportMissing(ctx context.Context, chain []string, ns, key string) {
	if !b.config.SaveMissing || b.backend == nil {
		return
	}

	var targets []string
	switch b.config.SaveMissingTo {
	case SaveMissingToCurrent:
		targets = chain[:1]
	case SaveMissingToAll:
		targets = chain
	default:
		targets = []string{b.config.DefaultLang}
	}

	b.reportedMu.Lock()
	var fresh []string
	for _, lang := range targets {
		id := lang + "\x00" + ns + "\x00" + key
		if b.reported[id] {
			continue
		}
		b.reported[id] = true
		fresh = append(fresh, lang)
	}
	b.reportedMu.Unlock()

	if len(fresh) == 0 {
		return
	}
	b.backend.Create(ctx, fresh, ns, key, key, func(err error) {
		if err != nil {
			util.Log(ctx).WithError(err).WithField("ns", ns).WithField("key", key).Warn("could not save missing key")
		}
	})
}
