// Package testcond is a deterministic fault-injection layer. Pipeline stages
// consult named boolean conditions keyed by condition name and file index to
// force specific failure branches without a real scanner binary or a broken
// filesystem.
package testcond

import "sync"

// Condition names understood by the pipeline.
const (
	CondTempFileNotFound = "tempFileNotFound"
	CondScanError        = "scanError"
	CondInfected         = "infected"
)

// AnyIndex activates a condition for every file index.
const AnyIndex = -1

// Injector stores active conditions. The zero value is unusable; a nil
// *Injector is safe and reports every condition inactive.
type Injector struct {
	mu    sync.RWMutex
	conds map[string]map[int]bool
}

func New() *Injector {
	return &Injector{conds: make(map[string]map[int]bool)}
}

// Set activates the named condition for the given file index (or AnyIndex).
func (i *Injector) Set(name string, index int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.conds[name] == nil {
		i.conds[name] = make(map[int]bool)
	}
	i.conds[name][index] = true
}

// Unset deactivates the named condition for the given file index.
func (i *Injector) Unset(name string, index int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.conds[name] != nil {
		delete(i.conds[name], index)
	}
}

// Active reports whether the named condition fires for the given file index.
func (i *Injector) Active(name string, index int) bool {
	if i == nil {
		return false
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	byIndex := i.conds[name]
	return byIndex[index] || byIndex[AnyIndex]
}

// Clear deactivates everything.
func (i *Injector) Clear() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.conds = make(map[string]map[int]bool)
}
