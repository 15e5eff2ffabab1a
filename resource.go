package fsbackend

import (
	"fmt"
	"sort"
	"strings"
)

// ResourceKey identifies one resource file through the path templates.
type ResourceKey struct {
	Language  string
	Namespace string
}

func (k ResourceKey) vars() map[string]string {
	return map[string]string{"lng": k.Language, "ns": k.Namespace}
}

func (k ResourceKey) String() string {
	return k.Language + "/" + k.Namespace
}

// Resource is the decoded content of one resource file. Values are usually
// strings; nested objects are kept as map[string]any.
type Resource map[string]any

// Set stores value under key. When sep is non-empty the key is split into a
// path and intermediate objects are created, replacing non-object values.
func (r Resource) Set(key string, value any, sep string) {
	if sep == "" || !strings.Contains(key, sep) {
		r[key] = value
		return
	}

	segs := strings.Split(key, sep)
	current := map[string]any(r)
	for _, seg := range segs[:len(segs)-1] {
		next, ok := asObject(current[seg])
		if !ok {
			next = map[string]any{}
			current[seg] = next
		}
		current = next
	}
	current[segs[len(segs)-1]] = value
}

// Get looks key up, following nested objects when sep is non-empty.
// A literal key containing sep takes precedence over the nested path.
func (r Resource) Get(key string, sep string) (any, bool) {
	if v, ok := r[key]; ok {
		return v, true
	}
	if sep == "" || !strings.Contains(key, sep) {
		return nil, false
	}

	var current any = map[string]any(r)
	for _, seg := range strings.Split(key, sep) {
		obj, ok := asObject(current)
		if !ok {
			return nil, false
		}
		if current, ok = obj[seg]; !ok {
			return nil, false
		}
	}
	return current, true
}

// Flatten returns every leaf as a string keyed by its sep-joined path.
func (r Resource) Flatten(sep string) map[string]string {
	if sep == "" {
		sep = "."
	}
	out := make(map[string]string)
	flattenInto(out, "", map[string]any(r), sep)
	return out
}

// Keys returns the flattened keys in sorted order.
func (r Resource) Keys(sep string) []string {
	flat := r.Flatten(sep)
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func flattenInto(out map[string]string, prefix string, obj map[string]any, sep string) {
	for k, v := range obj {
		full := k
		if prefix != "" {
			full = prefix + sep + k
		}
		if nested, ok := asObject(v); ok {
			flattenInto(out, full, nested, sep)
			continue
		}
		switch vv := v.(type) {
		case string:
			out[full] = vv
		case nil:
			out[full] = ""
		default:
			out[full] = fmt.Sprint(vv)
		}
	}
}

// asObject accepts the object shapes produced by the different codecs.
func asObject(v any) (map[string]any, bool) {
	switch o := v.(type) {
	case map[string]any:
		return o, true
	case Resource:
		return o, true
	default:
		return nil, false
	}
}
