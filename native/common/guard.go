package common

import "errors"

// ErrModulePaused is returned by Guard when the named module has been halted
// by the operator.
var ErrModulePaused = errors.New("module paused")

// Module names accepted by the pause switchboard.
const (
	ModuleToken   = "token"
	ModuleOracle  = "oracle"
	ModuleLending = "lending"
	ModuleVault   = "vault"
)

// PauseView exposes the pause state consulted before every mutating engine
// operation.
type PauseView interface {
	IsPaused(module string) bool
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// Pauses is a static PauseView for configurations that halt a fixed set of
// modules at startup.
type Pauses struct {
	modules map[string]bool
}

// NewPauses builds a PauseView halting each named module.
func NewPauses(halted ...string) *Pauses {
	set := make(map[string]bool, len(halted))
	for _, name := range halted {
		if name != "" {
			set[name] = true
		}
	}
	return &Pauses{modules: set}
}

func (p *Pauses) IsPaused(module string) bool {
	if p == nil {
		return false
	}
	return p.modules[module]
}
