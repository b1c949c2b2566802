package generator

import (
	"sync"

	"dyphal/internal/photo"
)

// LogObserver reports session events through the logger and keeps every
// error message for later inspection.
type LogObserver struct {
	mu     sync.Mutex
	errors []string
	last   int
}

// NewLogObserver returns an empty LogObserver.
func NewLogObserver() *LogObserver {
	return &LogObserver{}
}

func (o *LogObserver) BusyChanged(busy bool) {
	if busy {
		log.Debug("background work started")
	} else {
		log.Debug("background work finished")
	}
}

func (o *LogObserver) ProgressChanged(done, total int) {
	if total == 0 {
		return
	}
	pct := done * 100 / total
	o.mu.Lock()
	report := pct >= o.last+10 || done == total
	if report {
		o.last = pct
	}
	if done == 0 {
		o.last = 0
	}
	o.mu.Unlock()
	if report {
		log.Info("progress: %d/%d steps", done, total)
	}
}

func (o *LogObserver) PhotoAdded(p *photo.Photo) {
	log.Debug("added %s", p.Name())
}

func (o *LogObserver) Error(message string) {
	o.mu.Lock()
	o.errors = append(o.errors, message)
	o.mu.Unlock()
	log.Error("%s", message)
}

// Errors returns every message passed to Error so far.
func (o *LogObserver) Errors() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.errors...)
}
