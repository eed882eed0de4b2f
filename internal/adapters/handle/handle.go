// Package handle implements persistent references to user selected files.
//
// A Handle is opaque to callers. The filesystem implementation stores the
// absolute path together with the size and modification time observed when
// the handle was minted; a mismatch on resolve marks the handle stale.
package handle

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/bjjscore/pkg/logger"
)

const tokenVersion = 1

// Handle is an opaque storable file reference.
type Handle []byte

// Access is a scoped acquisition of a resolved file. Release must be called
// on every exit path; it is idempotent.
type Access struct {
	Path  string
	Stale bool

	once    sync.Once
	release func() error
}

// NewAccess wraps a resolved path with a release hook.
func NewAccess(path string, stale bool, release func() error) *Access {
	return &Access{Path: path, Stale: stale, release: release}
}

// Release ends the access.
func (a *Access) Release() {
	if a == nil {
		return
	}
	a.once.Do(func() {
		if a.release != nil {
			_ = a.release()
		}
	})
}

type token struct {
	Version int       `json:"v"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// FileResolver resolves handles against the local filesystem.
type FileResolver struct {
	logger logger.Logger
}

// NewFileResolver returns a filesystem resolver.
func NewFileResolver(l logger.Logger) *FileResolver {
	if l == nil {
		l = logger.Named("handle")
	}
	return &FileResolver{logger: l}
}

// Create mints a handle for path.
func (r *FileResolver) Create(ctx context.Context, path string) (Handle, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnresolvable, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnresolvable, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnresolvable, abs)
	}
	raw, err := json.Marshal(token{Version: tokenVersion, Path: abs, Size: info.Size(), ModTime: info.ModTime().UTC()})
	if err != nil {
		return nil, err
	}
	r.logger.Debug(ctx, "handle created", logger.String("path", abs))
	out := make([]byte, base64.RawURLEncoding.EncodedLen(len(raw)))
	base64.RawURLEncoding.Encode(out, raw)
	return out, nil
}

// Resolve opens the referenced file read-only for the lifetime of the
// returned Access.
func (r *FileResolver) Resolve(ctx context.Context, h Handle) (*Access, error) {
	tok, err := decode(h)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(tok.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnresolvable, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %w", ErrUnresolvable, err)
	}
	stale := info.Size() != tok.Size || !info.ModTime().Equal(tok.ModTime)
	if stale {
		r.logger.Info(ctx, "handle is stale", logger.String("path", tok.Path))
	}
	return NewAccess(tok.Path, stale, f.Close), nil
}

// Path returns the file path a handle refers to without touching the file.
func Path(h Handle) (string, error) {
	tok, err := decode(h)
	if err != nil {
		return "", err
	}
	return tok.Path, nil
}

// Filename returns the base name of the referenced file.
func Filename(h Handle) string {
	p, err := Path(h)
	if err != nil {
		return ""
	}
	return filepath.Base(p)
}

func decode(h Handle) (token, error) {
	if len(h) == 0 {
		return token{}, ErrEmptyHandle
	}
	raw := make([]byte, base64.RawURLEncoding.DecodedLen(len(h)))
	n, err := base64.RawURLEncoding.Decode(raw, h)
	if err != nil {
		return token{}, fmt.Errorf("%w: %w", ErrUnresolvable, err)
	}
	var tok token
	if err := json.Unmarshal(raw[:n], &tok); err != nil {
		return token{}, fmt.Errorf("%w: %w", ErrUnresolvable, err)
	}
	if tok.Path == "" {
		return token{}, fmt.Errorf("%w: token without path", ErrUnresolvable)
	}
	return tok, nil
}
