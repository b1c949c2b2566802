// Package logging provides the leveled logger used throughout the album
// generator.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information (task scheduling, staging paths)
//   - INFO: General operational messages
//   - WARN: Recoverable problems such as a corrupt configuration file
//   - ERROR: Failures reported to the user
//   - FATAL: Fatal errors that terminate the program
//
// The initial level comes from the DEBUG or LOG_LEVEL environment variables.
// The CLI may replace it with SetLevel after reading flags and configuration.
//
// Component is a small string type that prefixes messages with the name of
// the subsystem that produced them:
//
//	var log = logging.Component("tasks")
//	log.Debug("batch %d started with %d steps", id, steps)
package logging
