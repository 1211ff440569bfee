package logging

import (
	"fmt"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGraylogWriter dials the GELF UDP endpoint at address. Each write
// becomes one GELF message tagged with the dmhelper facility.
func NewGraylogWriter(address string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, fmt.Errorf("graylog %s: %w", address, err)
	}
	w.Facility = "dmhelper"
	return w, nil
}
