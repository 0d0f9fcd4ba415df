//go:build tinygo || !cgo

package glrun

import (
	"context"
	"errors"

	"github.com/soypat/glvj/render"
)

func run(ctx context.Context, pl *render.Pipeline, cfg Config) error {
	return errors.New("glrun: rendering requires cgo")
}
