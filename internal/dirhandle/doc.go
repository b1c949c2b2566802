// Package dirhandle keeps the album output directories open for the length
// of a generation and hands out /proc descriptor paths for writing into
// them.
package dirhandle
