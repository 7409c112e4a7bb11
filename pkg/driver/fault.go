package driver

import "fmt"

// Category groups faults by the subsystem that raised them.
type Category string

// Fault categories.
const (
	CategoryInput   Category = "input"
	CategoryWindow  Category = "window"
	CategoryBrowser Category = "browser"
	CategoryTimeout Category = "timeout"
)

// Fault is a structured step-level failure. Faults terminate the current
// run as failed; they never crash the process.
type Fault struct {
	Category Category
	Code     string         // Machine-readable code: element_not_found, wait_timeout, etc.
	Message  string         // Human-readable message
	Details  map[string]any // Additional context (selector, title, url)
	Cause    error          // Underlying error
}

// Error implements the error interface.
func (e *Fault) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Fault) Unwrap() error {
	return e.Cause
}

// Is matches faults by code so predefined faults work as sentinels even
// after WithCause/WithDetails copies.
func (e *Fault) Is(target error) bool {
	t, ok := target.(*Fault)
	return ok && t.Code == e.Code
}

// WithCause returns a copy of the fault with the given cause.
func (e *Fault) WithCause(cause error) *Fault {
	return &Fault{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the fault with a custom message.
func (e *Fault) WithMessage(msg string) *Fault {
	return &Fault{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the fault with additional details merged in.
func (e *Fault) WithDetails(details map[string]any) *Fault {
	merged := make(map[string]any)
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &Fault{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined faults.
var (
	ErrWindowNotFound = &Fault{
		Category: CategoryWindow,
		Code:     "window_not_found",
		Message:  "no window matches the given title",
	}
	ErrBrowserNotStarted = &Fault{
		Category: CategoryBrowser,
		Code:     "browser_not_started",
		Message:  "browser not started, open it with a browser_open step first",
	}
	ErrElementNotFound = &Fault{
		Category: CategoryBrowser,
		Code:     "element_not_found",
		Message:  "element not found",
	}
	ErrWaitTimeout = &Fault{
		Category: CategoryTimeout,
		Code:     "wait_timeout",
		Message:  "wait condition timed out",
	}
	ErrInputUnavailable = &Fault{
		Category: CategoryInput,
		Code:     "input_unavailable",
		Message:  "input driver unavailable",
	}
)

// NewFault creates a Fault with the given parameters.
func NewFault(category Category, code, message string) *Fault {
	return &Fault{
		Category: category,
		Code:     code,
		Message:  message,
	}
}
