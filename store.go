package fsbackend

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/pitabwire/util"
)

const (
	filePerm = 0o644
	dirPerm  = 0o755
)

// Store resolves resource keys to files and moves Resources in and out of them.
// It keeps no cache: every Read goes to the file system.
type Store struct {
	loadPath     string
	addPath      string
	interpolator Interpolator
	codecs       map[string]Codec
	fs           FileSystem
}

// NewStore validates the path templates and builds a Store.
func NewStore(opts Options) (*Store, error) {
	if opts.LoadPath == "" {
		return nil, &ConfigError{Field: "LoadPath", Reason: "path template is required"}
	}
	if err := ValidateTemplate(opts.LoadPath, "lng", "ns"); err != nil {
		return nil, &ConfigError{Field: "LoadPath", Reason: err.Error()}
	}
	addPath := opts.AddPath
	if addPath == "" {
		addPath = opts.LoadPath
	}
	if err := ValidateTemplate(addPath, "lng", "ns"); err != nil {
		return nil, &ConfigError{Field: "AddPath", Reason: err.Error()}
	}

	codecs := DefaultCodecs(opts.JSONIndent)
	for ext, c := range opts.Codecs {
		codecs[ext] = c
	}
	if _, err := codecFor(codecs, opts.LoadPath); err != nil {
		return nil, &ConfigError{Field: "LoadPath", Reason: err.Error()}
	}
	addCodec, err := codecFor(codecs, addPath)
	if err != nil {
		return nil, &ConfigError{Field: "AddPath", Reason: err.Error()}
	}
	if _, err := addCodec.Stringify(Resource{}); errors.Is(err, ErrReadOnlyFormat) {
		return nil, &ConfigError{Field: "AddPath", Reason: "resource format cannot be written"}
	}

	interp := opts.Interpolator
	if interp == nil {
		interp = DefaultInterpolator
	}
	fsys := opts.FileSystem
	if fsys == nil {
		fsys = OSFileSystem{}
	}

	return &Store{
		loadPath:     opts.LoadPath,
		addPath:      addPath,
		interpolator: interp,
		codecs:       codecs,
		fs:           fsys,
	}, nil
}

// ResolvePath returns the file a (language, namespace) pair is read from.
func (s *Store) ResolvePath(lng, ns string) (string, error) {
	return s.resolve("LoadPath", s.loadPath, ResourceKey{Language: lng, Namespace: ns})
}

// ResolveAddPath returns the file missing keys for the pair are written to.
func (s *Store) ResolveAddPath(lng, ns string) (string, error) {
	return s.resolve("AddPath", s.addPath, ResourceKey{Language: lng, Namespace: ns})
}

func (s *Store) resolve(field, tpl string, key ResourceKey) (string, error) {
	if tpl == "" {
		return "", &ConfigError{Field: field, Reason: "path template is required"}
	}
	p, err := s.interpolator.Interpolate(tpl, key.vars())
	if err != nil {
		return "", &ConfigError{Field: field, Reason: err.Error()}
	}
	return p, nil
}

// Read loads the file at path. A missing file yields an empty Resource and no
// error; content that cannot be decoded yields nil and a *ResourceEvaluationError.
func (s *Store) Read(ctx context.Context, path string, key ResourceKey) (Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	codec, err := codecFor(s.codecs, path)
	if err != nil {
		return nil, err
	}

	data, err := s.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			util.Log(ctx).WithField("path", path).Debug("resource file not found, using empty resource")
			return Resource{}, nil
		}
		return nil, &FilesystemError{Op: "read", Path: path, Err: err}
	}

	res, err := codec.Parse(key, data)
	if err != nil {
		return nil, &ResourceEvaluationError{Path: path, Err: err}
	}
	return res, nil
}

// Write replaces the content of path with res, creating parent directories.
func (s *Store) Write(ctx context.Context, path string, res Resource) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	codec, err := codecFor(s.codecs, path)
	if err != nil {
		return err
	}

	data, err := codec.Stringify(res)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := s.fs.MkdirAll(dir, dirPerm); err != nil {
			return &FilesystemError{Op: "mkdir", Path: dir, Err: err}
		}
	}
	if err := s.fs.WriteFile(path, data, filePerm); err != nil {
		return &FilesystemError{Op: "write", Path: path, Err: err}
	}
	return nil
}
