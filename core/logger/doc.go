// Package logger is a standardized event logging framework for job control
// in the shell. Every record is a flat JSON object with a session id, a
// timestamp and an event type.
package logger
