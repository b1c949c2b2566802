package cli

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
)

// promptRenamer asks on the terminal for a new name for each photo whose
// name is already in the album. A blank answer drops the photo.
type promptRenamer struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func newPromptRenamer(in io.Reader, out io.Writer) *promptRenamer {
	return &promptRenamer{in: bufio.NewReader(in), out: out}
}

func (r *promptRenamer) Rename(path string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.out, "A photo named '%s' is already in the album.\n", filepath.Base(path))
	for {
		fmt.Fprintf(r.out, "New name for %s (blank to skip it): ", path)
		line, err := r.in.ReadString('\n')
		name := strings.TrimSpace(line)
		if name == "" {
			return "", false
		}
		if msg := checkName(name); msg != "" {
			fmt.Fprintln(r.out, msg)
			if err != nil {
				return "", false
			}
			continue
		}
		return name, true
	}
}

// checkName returns a complaint about name, or "" if it can be used as a
// photo name.
func checkName(name string) string {
	switch {
	case name == "." || name == "..":
		return "That name is reserved."
	case strings.ContainsAny(name, `/\`):
		return "Names cannot contain slashes."
	}
	return ""
}
