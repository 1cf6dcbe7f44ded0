package logging

import (
	"fmt"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGelfWriter opens a UDP GELF writer to a Graylog input. The returned
// writer is usable as a zerolog sink.
func NewGelfWriter(address, facility string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, fmt.Errorf("connecting to graylog at %s: %w", address, err)
	}
	w.Facility = facility
	return w, nil
}
