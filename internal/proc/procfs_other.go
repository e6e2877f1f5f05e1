//go:build !linux

package proc

import (
	"fmt"

	"go.uber.org/zap"
)

func newProcfs(string, *zap.Logger) (Source, error) {
	return nil, fmt.Errorf("%s: %w", KindProcfs, ErrUnsupported)
}
