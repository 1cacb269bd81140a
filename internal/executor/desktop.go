package executor

import (
	"context"
	"fmt"

	"github.com/mkihara/aiops/internal/tool"
)

// DesktopResult is what a desktop backend returns for one action.
// Unsupported marks a capability absent on this platform; the agent sees a
// structured message instead of an error.
type DesktopResult struct {
	Content     string
	Err         error
	Unsupported bool
}

// Desktop is the capability surface for browser, application, clipboard and
// screen tools. One implementation per supported platform is selected at
// startup; UnsupportedDesktop is the default.
type Desktop interface {
	BrowserAction(ctx context.Context, p tool.BrowserActionParams) DesktopResult
	AppControl(ctx context.Context, p tool.AppControlParams) DesktopResult
	ClipboardRead(ctx context.Context) DesktopResult
	ClipboardWrite(ctx context.Context, text string) DesktopResult
	Screenshot(ctx context.Context, path string) DesktopResult
}

// UnsupportedDesktop reports every capability as unavailable.
type UnsupportedDesktop struct{}

func unsupported(capability string) DesktopResult {
	return DesktopResult{
		Content:     fmt.Sprintf("%s is not available on this platform", capability),
		Unsupported: true,
	}
}

func (UnsupportedDesktop) BrowserAction(context.Context, tool.BrowserActionParams) DesktopResult {
	return unsupported("browser automation")
}

func (UnsupportedDesktop) AppControl(context.Context, tool.AppControlParams) DesktopResult {
	return unsupported("application control")
}

func (UnsupportedDesktop) ClipboardRead(context.Context) DesktopResult {
	return unsupported("clipboard access")
}

func (UnsupportedDesktop) ClipboardWrite(context.Context, string) DesktopResult {
	return unsupported("clipboard access")
}

func (UnsupportedDesktop) Screenshot(context.Context, string) DesktopResult {
	return unsupported("screen capture")
}

// wrapDesktop folds a backend result into a tool outcome. Unsupported is
// not an error: the loop should continue with that information.
func wrapDesktop(inv tool.Invocation, res DesktopResult) tool.Outcome {
	if res.Err != nil {
		return tool.NewOutcome(inv, res.Err.Error(), true)
	}
	return tool.NewOutcome(inv, res.Content, false)
}
