// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"strings"

	applog "bandfx/internal/log"
)

var logger = applog.For("transport")

// LoggingTransport implements the Transport interface by logging band
// frames at debug level.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	logger.Infof("using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data.
func (lt *LoggingTransport) Send(data any) error {
	if frame, ok := data.(BandFrame); ok {
		logger.Debugf("tick %d %s", frame.Tick, formatBands(frame.Bands[:]))
		return nil
	}
	logger.Debugf("received (%T): %+v", data, data)
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	logger.Debugf("LoggingTransport closed")
	return nil
}

func formatBands(bands []float64) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, v := range bands {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%.2f", v)
	}
	sb.WriteByte(']')
	return sb.String()
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
