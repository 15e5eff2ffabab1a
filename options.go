package fsbackend

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// CompletionPolicy decides how often a create callback shared by several
// languages is invoked.
type CompletionPolicy int

const (
	// CompletionPerPath invokes the callback once for every resolved file.
	CompletionPerPath CompletionPolicy = iota
	// CompletionAfterAll invokes the callback once, after every file settled.
	CompletionAfterAll
)

func (p CompletionPolicy) String() string {
	switch p {
	case CompletionPerPath:
		return "per-path"
	case CompletionAfterAll:
		return "after-all"
	default:
		return "unknown"
	}
}

// UnmarshalText lets the policy be read from the environment or a YAML file.
func (p *CompletionPolicy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "per-path":
		*p = CompletionPerPath
	case "after-all":
		*p = CompletionAfterAll
	default:
		return fmt.Errorf("unknown completion policy %q", text)
	}
	return nil
}

const (
	DefaultJSONIndent   = 2
	DefaultKeySeparator = "."
	DefaultDebounce     = 100 * time.Millisecond
	DefaultFlushWorkers = 4
)

// Options configures a Backend.
type Options struct {
	// LoadPath is the template files are read from, e.g. "/locales/{{lng}}/{{ns}}.json".
	LoadPath string `env:"I18N_LOAD_PATH" yaml:"load_path"`
	// AddPath is the template missing keys are written to. Defaults to LoadPath.
	AddPath string `env:"I18N_ADD_PATH" yaml:"add_path"`

	JSONIndent int `envDefault:"2" env:"I18N_JSON_INDENT" yaml:"json_indent"`
	// KeySeparator splits created keys into nested objects.
	KeySeparator string `envDefault:"."     env:"I18N_KEY_SEPARATOR" yaml:"key_separator"`
	// FlatKeys stores created keys verbatim, ignoring KeySeparator.
	FlatKeys bool `envDefault:"false" env:"I18N_FLAT_KEYS" yaml:"flat_keys"`

	Debounce     time.Duration    `envDefault:"100ms"    env:"I18N_WRITE_DEBOUNCE"    yaml:"debounce"`
	FlushWorkers int              `envDefault:"4"        env:"I18N_FLUSH_WORKERS"     yaml:"flush_workers"`
	Completion   CompletionPolicy `envDefault:"per-path" env:"I18N_CREATE_COMPLETION" yaml:"completion"`

	Codecs       map[string]Codec `yaml:"-"`
	Interpolator Interpolator     `yaml:"-"`
	FileSystem   FileSystem       `yaml:"-"`
}

// DefaultOptions returns the options every backend starts from.
func DefaultOptions() Options {
	return Options{
		JSONIndent:   DefaultJSONIndent,
		KeySeparator: DefaultKeySeparator,
		Debounce:     DefaultDebounce,
		FlushWorkers: DefaultFlushWorkers,
		Completion:   CompletionPerPath,
	}
}

// OptionsFromEnv reads Options from I18N_* environment variables.
func OptionsFromEnv() (Options, error) {
	return env.ParseAs[Options]()
}

// ReadOptionsFile overlays the YAML document at path onto opts. Keys absent
// from the file keep their current value, so env or defaults fill the rest.
func ReadOptionsFile(path string, opts *Options) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read options file: %w", err)
	}
	if err := yaml.Unmarshal(data, opts); err != nil {
		return &ConfigError{Field: "file", Reason: fmt.Sprintf("%s: %v", path, err)}
	}
	return nil
}

func (o Options) keySeparator() string {
	if o.FlatKeys {
		return ""
	}
	return o.KeySeparator
}

// Option mutates Options.
type Option func(*Options)

// WithOptions replaces all options, e.g. with the result of OptionsFromEnv.
func WithOptions(opts Options) Option {
	return func(o *Options) {
		*o = opts
	}
}

// WithLoadPath sets the template files are read from.
func WithLoadPath(tpl string) Option {
	return func(o *Options) {
		o.LoadPath = tpl
	}
}

// WithAddPath sets the template missing keys are written to.
func WithAddPath(tpl string) Option {
	return func(o *Options) {
		o.AddPath = tpl
	}
}

// WithJSONIndent sets the number of spaces used to indent written JSON.
func WithJSONIndent(n int) Option {
	return func(o *Options) {
		o.JSONIndent = n
	}
}

// WithKeySeparator sets the separator used to nest created keys.
func WithKeySeparator(sep string) Option {
	return func(o *Options) {
		o.KeySeparator = sep
	}
}

// WithFlatKeys stores created keys verbatim.
func WithFlatKeys() Option {
	return func(o *Options) {
		o.FlatKeys = true
	}
}

// WithDebounce sets the quiet period after the last create before a file is written.
func WithDebounce(d time.Duration) Option {
	return func(o *Options) {
		o.Debounce = d
	}
}

// WithFlushWorkers sets how many files may be written concurrently.
func WithFlushWorkers(n int) Option {
	return func(o *Options) {
		o.FlushWorkers = n
	}
}

// WithCompletion sets the completion policy for multi-language creates.
func WithCompletion(p CompletionPolicy) Option {
	return func(o *Options) {
		o.Completion = p
	}
}

// WithCodec registers a codec for a file extension such as ".json".
func WithCodec(ext string, c Codec) Option {
	return func(o *Options) {
		if o.Codecs == nil {
			o.Codecs = map[string]Codec{}
		}
		o.Codecs[ext] = c
	}
}

// WithInterpolator replaces the path template engine.
func WithInterpolator(i Interpolator) Option {
	return func(o *Options) {
		o.Interpolator = i
	}
}

// WithFileSystem replaces the file system.
func WithFileSystem(fsys FileSystem) Option {
	return func(o *Options) {
		o.FileSystem = fsys
	}
}

func (o Options) validate() error {
	if o.Debounce < 0 {
		return &ConfigError{Field: "Debounce", Reason: "must not be negative"}
	}
	if o.FlushWorkers <= 0 {
		return &ConfigError{Field: "FlushWorkers", Reason: "must be positive"}
	}
	if o.JSONIndent < 0 {
		return &ConfigError{Field: "JSONIndent", Reason: "must not be negative"}
	}
	return nil
}
