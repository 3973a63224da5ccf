package backend

import "fmt"

// FaultCode distinguishes backend failure modes so the error taxonomy can
// classify them by code rather than by sniffing message text.
type FaultCode string

const (
	// FaultSafety: the model refused the request on content grounds.
	FaultSafety FaultCode = "safety_blocked"
	// FaultAuth: missing or rejected credentials, a deployment problem.
	FaultAuth FaultCode = "auth_invalid"
	// FaultNetwork: connectivity failure, timeout, or retry exhaustion.
	FaultNetwork FaultCode = "network"
	// FaultMalformed: the backend answered but the payload was unusable.
	FaultMalformed FaultCode = "malformed"
	// FaultInternal: anything the invoker could not attribute.
	FaultInternal FaultCode = "internal"
)

// Fault is the only error type the invoker returns for backend-reported
// failures. Detail is for server-side logs; it is never shown to callers.
type Fault struct {
	Code   FaultCode
	Status int // HTTP status when applicable, else 0
	Detail string
	Err    error
}

func (f *Fault) Error() string {
	if f.Status > 0 {
		return fmt.Sprintf("backend fault %s (status %d): %s", f.Code, f.Status, f.Detail)
	}
	return fmt.Sprintf("backend fault %s: %s", f.Code, f.Detail)
}

func (f *Fault) Unwrap() error { return f.Err }

func newFault(code FaultCode, status int, format string, args ...any) *Fault {
	return &Fault{Code: code, Status: status, Detail: fmt.Sprintf(format, args...)}
}
