//go:build !linux

package capture

import "github.com/pkg/errors"

// NewX11Source is unavailable outside linux; callers should fall back to
// StubSource.
func NewX11Source(display string) (*StubSource, error) {
	return nil, errors.New("capture: no X11 backend built for this platform")
}
