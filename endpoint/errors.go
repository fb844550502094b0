package endpoint

import (
	"fmt"

	"github.com/hupe1980/nodemesh/core"
)

// ErrClosed is returned by operations on a closed endpoint. It matches
// core.ErrClosed with errors.Is.
var ErrClosed = fmt.Errorf("endpoint %w", core.ErrClosed)
