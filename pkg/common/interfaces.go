package common

import "context"

// LoggerInterface defines the logging interface used throughout the application
// This allows for dependency injection and better testability
type LoggerInterface interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// CommandRunner runs an external program to completion and reports its exit
// status. A non-nil error means the program could not be run at all.
type CommandRunner interface {
	Run(ctx context.Context, argv []string) (int, error)
}

// CertificateChecker answers whether certificate material exists for a host.
type CertificateChecker interface {
	Exists(host string) bool
}
