package transport

import (
	applog "audiopipe/internal/log"
)

// LoggingTransport implements Transport by writing each record to the
// debug log. Useful when running headless without any network consumer.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: using logging transport")
	return &LoggingTransport{}
}

// Send logs the record at debug level. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	applog.Debugf("Transport: %+v", data)
	return nil
}

// Close is a no-op.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
