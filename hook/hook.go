package hook

// Hook is a single named handler attached to a Point.
type Hook interface {
	Name() string
	Execute(ctx *Context) (Result, error)
}

// Func adapts a plain function to the Hook interface.
type Func struct {
	HookName string
	Fn       func(ctx *Context) (Result, error)
}

func (f Func) Name() string { return f.HookName }

func (f Func) Execute(ctx *Context) (Result, error) { return f.Fn(ctx) }

// registration pairs a hook with its dispatch priority (lower runs first
// in Sequential/FirstMatch order).
type registration struct {
	hook     Hook
	priority int
}
