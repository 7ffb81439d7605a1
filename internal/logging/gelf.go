package logging

import (
	"fmt"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// GraylogHandler ships records as JSON over GELF/UDP.
type GraylogHandler struct {
	slog.Handler
	writer *gelf.Writer
}

// NewGraylogHandler dials the GELF endpoint at address.
func NewGraylogHandler(address, level string) (*GraylogHandler, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, fmt.Errorf("connecting to graylog at %s: %w", address, err)
	}
	w.Facility = InstrumentationName
	return &GraylogHandler{
		Handler: slog.NewJSONHandler(w, HandlerOptions(level)),
		writer:  w,
	}, nil
}

// Close releases the UDP socket.
func (h *GraylogHandler) Close() error {
	return h.writer.Close()
}
