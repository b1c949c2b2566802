// Package publish uploads a generated album to S3 or an S3-compatible
// object store such as MinIO.
//
// Every file below the album directory becomes one object whose key is
// the file's relative path under an optional prefix. Uploads run as one
// background batch on a tasks.Orchestrator; failures are collected by the
// batch barrier and reported as a single message.
package publish
