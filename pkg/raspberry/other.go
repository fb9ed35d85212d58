//go:build !linux

package raspberry

// Open fails on systems without linux gpio support. Captures can still be
// decoded offline.
func Open(backend, chip string) (Chip, error) {
	return nil, ErrNotSupported
}
