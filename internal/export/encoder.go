// Package export drives an external encoder through a single in-flight
// export: start, progress polling, cancellation and completion.
package export

import (
	"context"

	"github.com/okian/bjjscore/internal/adapters/handle"
	"github.com/okian/bjjscore/internal/composition"
)

// EncoderStatus mirrors the encoder's own lifecycle.
type EncoderStatus string

const (
	EncoderNotStarted EncoderStatus = "notStarted"
	EncoderRunning    EncoderStatus = "running"
	EncoderCompleted  EncoderStatus = "completed"
	EncoderFailed     EncoderStatus = "failed"
	EncoderCancelled  EncoderStatus = "cancelled"
)

// Encoder renders one export package. Done closes once the encoder reaches
// a terminal status, including after Cancel. Close releases every resource
// and is safe to call more than once.
type Encoder interface {
	Start(ctx context.Context) error
	Done() <-chan struct{}
	Status() EncoderStatus
	Progress() float64
	Destination() string
	FileKind() string
	Err() error
	Cancel()
	Close() error
}

// EncoderFactory creates encoders for export packages.
type EncoderFactory interface {
	NewEncoder(ctx context.Context, pkg *composition.Package) (Encoder, error)
}

// PackageBuilder turns a composition request into an export package.
type PackageBuilder interface {
	Build(ctx context.Context, req composition.Request) (*composition.Package, error)
}

// Resolver resolves stored source handles and mints fresh ones.
type Resolver interface {
	Resolve(ctx context.Context, h handle.Handle) (*handle.Access, error)
	Create(ctx context.Context, path string) (handle.Handle, error)
}
