package bootstrap

import "github.com/m3rciful/replybot/core/dispatch"

// Module adds handlers that cannot be expressed as static replies.
type Module interface {
	Register(reg *dispatch.Registry) error
}

// ModuleFunc adapts a bare function to the Module interface.
type ModuleFunc func(reg *dispatch.Registry) error

// Register executes the underlying function.
func (f ModuleFunc) Register(reg *dispatch.Registry) error {
	return f(reg)
}
