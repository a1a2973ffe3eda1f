package irq

import "testing"

func TestDispatchInvokesRegisteredHandler(t *testing.T) {
	var got *Context
	HandleException(Breakpoint, func(ctx *Context) { got = ctx })

	ctx := &Context{SEpc: 0x1000}
	if !Dispatch(Breakpoint, ctx) {
		t.Fatal("expected dispatch to find a registered handler")
	}
	if got != ctx {
		t.Fatal("expected handler to receive the dispatched context")
	}
}

func TestDispatchReportsMissingHandler(t *testing.T) {
	if Dispatch(ExceptionNum(0xff), &Context{}) {
		t.Fatal("expected dispatch to report no handler found")
	}
}
