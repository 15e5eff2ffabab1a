package fsbackend

import (
	"context"
	"strings"
)

// Locale is a lookup entry bound to a language fallback chain.
type Locale struct {
	bundle *Bundle
	langs  []string // lang fallback chain
}

// Languages returns the fallback chain.
func (l *Locale) Languages() []string {
	return append([]string(nil), l.langs...)
}

// T returns the message for key, which may carry a namespace prefix
// ("common:user.login"). Values are returned as stored; no formatting is applied.
// When no language of the chain has the key, the key itself is returned and,
// if the bundle saves missing keys, it is queued for creation.
func (l *Locale) T(ctx context.Context, key string) string {
	text, ok := l.Lookup(key)
	if ok {
		return text
	}
	if l.bundle != nil && len(l.langs) > 0 {
		ns, k := l.bundle.splitNamespace(key)
		l.bundle.reportMissing(ctx, l.langs, ns, k)
	}
	return key
}

// Lookup is T without the missing-key side effect.
func (l *Locale) Lookup(key string) (string, bool) {
	if l.bundle == nil {
		return key, false
	}
	ns, k := l.bundle.splitNamespace(key)
	for _, lang := range l.langs {
		if text, ok := l.bundle.lookup(lang, ns, k); ok {
			return text, true
		}
	}
	return key, false
}

func (b *Bundle) splitNamespace(key string) (string, string) {
	if ns, k, ok := strings.Cut(key, b.config.NSSeparator); ok && ns != "" {
		return ns, k
	}
	return b.config.DefaultNamespace, key
}
