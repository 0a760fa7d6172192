package jit

// Dispatch is the single Go-side entry point every vtable call funnels
// through: the assembly shim in internal/jit/amd64 and internal/jit/arm64
// preserves the three reserved ABI registers, loads ctx from the fixed
// register, and calls this function; Dispatch switches on
// ctx.callSelector (set by the shim from the vtable slot it was invoked
// through) and runs the matching Context method.
//
// It is exported with a fixed, simple signature (*Context) int64 so the
// assembly side only ever needs to know one calling convention, no matter
// which of the four vtable slots is actually being invoked.
func Dispatch(ctx *Context) int64 {
	switch ctx.CallSelector {
	case callReadByte:
		ctx.CallResult = int64(ctx.readByte())

	case callWriteByte:
		ctx.writeByte(byte(ctx.CallArg0))
		ctx.CallResult = 0

	case callGrowTape:
		ctx.growTape(int(ctx.CallArg0))
		ctx.CallResult = int64(ctx.TapeBasePtr)

	case callInvokePromise:
		newDP := ctx.invokePromise(int(ctx.CallArg0), int(ctx.CallArg1))
		ctx.CallResult = int64(newDP)
	}

	if ctx.fatal != nil {
		ctx.HostFailed = 1
	}

	return ctx.CallResult
}

// Failed reports whether a prior Dispatch call recorded a fatal error.
func (c *Context) Failed() bool { return c.fatal != nil }

// Err returns the sticky fatal error recorded by a vtable callback, if
// any.
func (c *Context) Err() error { return c.fatal }
