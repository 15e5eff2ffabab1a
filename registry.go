package fsbackend

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

///////////////////////////////////////////////////////////////////////////////
// FORMATTER REGISTRY
///////////////////////////////////////////////////////////////////////////////

var formatterRegistry = map[string]FormatterFunc{}
var regMutex sync.RWMutex

// FormatterFunc transforms a path variable, e.g. {{lng | lower}}.
type FormatterFunc func(input string, arg string) (string, error)

// RegisterFormatter allows user to register custom path formatters.
func RegisterFormatter(name string, f FormatterFunc) {
	regMutex.Lock()
	defer regMutex.Unlock()
	formatterRegistry[name] = f
}

func lookupFormatter(name string) (FormatterFunc, bool) {
	regMutex.RLock()
	defer regMutex.RUnlock()
	f, ok := formatterRegistry[name]
	return f, ok
}

// applyRegisteredFormatter applies a formatter by name.
func applyRegisteredFormatter(v, name, arg string) (string, error) {
	f, ok := lookupFormatter(name)
	if !ok {
		return "", fmt.Errorf("unknown formatter: %s", name)
	}
	return f(v, arg)
}

///////////////////////////////////////////////////////////////////////////////
// DEFAULT FORMATTERS REGISTERED AT INIT
///////////////////////////////////////////////////////////////////////////////

func init() {
	RegisterFormatter("upper", func(v string, _ string) (string, error) {
		return strings.ToUpper(v), nil
	})
	RegisterFormatter("lower", func(v string, _ string) (string, error) {
		return strings.ToLower(v), nil
	})
	// zh-Hant-TW -> zh
	RegisterFormatter("base", func(v string, _ string) (string, error) {
		tag, err := language.Parse(v)
		if err != nil {
			return "", fmt.Errorf("base formatter: %w", err)
		}
		base, _ := tag.Base()
		return base.String(), nil
	})
	// en_us -> en-US
	RegisterFormatter("canonical", func(v string, _ string) (string, error) {
		tag, err := language.Parse(v)
		if err != nil {
			return "", fmt.Errorf("canonical formatter: %w", err)
		}
		return tag.String(), nil
	})
	// {{lng | replace:-:_}}
	RegisterFormatter("replace", func(v string, arg string) (string, error) {
		oldNew := strings.SplitN(arg, ":", 2)
		if len(oldNew) != 2 || oldNew[0] == "" {
			return "", fmt.Errorf("replace formatter: expected old:new, got %q", arg)
		}
		return strings.ReplaceAll(v, oldNew[0], oldNew[1]), nil
	})
}
