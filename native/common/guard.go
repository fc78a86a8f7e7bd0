package common

import "errors"

// ErrModulePaused is returned when a mutating operation hits a paused module.
var ErrModulePaused = errors.New("module paused")

// PauseView reports the operational pause switches toggled by the operator.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the operation when the named module is paused. A nil view
// means no pause switches are configured.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
