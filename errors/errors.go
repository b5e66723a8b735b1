// Package errors provides the error type every package in this module
// builds its failures with: a message plus a captured stack trace, with
// optional wrapping so a transport failure surfaced deep inside a proxy's
// connection pool can carry the context of every layer it passed through
// on its way back to the client coordinator.
//
// It intentionally shadows the standard library's "errors" package name;
// every non-test error in this tree is constructed through New, Newf,
// Wrap, or Wrapf rather than fmt.Errorf, so that a failure surfaced by
// mcache.Client.Dump or a logged io-error always carries a stack.
package errors

import (
	"bytes"
	"fmt"
	"reflect"
	"runtime"
	"sync"
)

// DropboxError is the interface every error constructed by this package
// satisfies: the plain message, any wrapped cause, and the stack trace
// captured at construction time.
type DropboxError interface {
	// GetMessage returns the error's own message, excluding any wrapped
	// error's message and excluding the stack trace.
	GetMessage() string

	// GetInner returns the wrapped error, or nil if this error wraps
	// nothing.
	GetInner() error

	// Error implements the built-in error interface, concatenating this
	// error's message with every wrapped message beneath it.
	Error() string

	// StackAddrs renders the captured program-counter stack as a
	// space-separated list of hex addresses, without resolving symbol
	// names -- cheaper than StackFrames when only a crash-report blob is
	// needed.
	StackAddrs() string

	// StackFrames resolves the captured stack into symbol, file, and
	// line information. The result is cached after the first call.
	StackFrames() []StackFrame

	// GetStack renders StackFrames as a human-readable multi-line trace.
	GetStack() string
}

// StackFrame describes one resolved frame of a captured stack trace.
type StackFrame struct {
	PC         uintptr
	Func       *runtime.Func
	FuncName   string
	File       string
	LineNumber int
}

// dbxError is the concrete DropboxError every constructor in this file
// returns: an immutable message, an optional wrapped cause, and the raw
// program counters captured at construction, resolved into StackFrames
// lazily and only once.
type dbxError struct {
	message string
	cause   error

	pcs         []uintptr
	frameCache  sync.Once
	frames      []StackFrame
}

// stackDepth bounds how many call frames are captured; deep recursive
// retry loops in mcache never approach it.
const stackDepth = 200

// framesToSkip drops makeError, the exported constructor that called it,
// and runtime.Callers itself from the captured trace, so the trace starts
// at the caller's own call to New/Newf/Wrap/Wrapf.
const framesToSkip = 3

func makeError(cause error, message string) *dbxError {
	pcs := make([]uintptr, stackDepth)
	n := runtime.Callers(framesToSkip, pcs)
	return &dbxError{message: message, cause: cause, pcs: pcs[:n]}
}

// New builds a DropboxError carrying msg and a stack trace starting at
// the caller.
func New(msg string) DropboxError {
	return makeError(nil, msg)
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(format string, args ...interface{}) DropboxError {
	return makeError(nil, fmt.Sprintf(format, args...))
}

// Wrap builds a DropboxError carrying msg, with err as its wrapped cause.
func Wrap(err error, msg string) DropboxError {
	return makeError(err, msg)
}

// Wrapf is Wrap with fmt.Sprintf-style formatting.
func Wrapf(err error, format string, args ...interface{}) DropboxError {
	return makeError(err, fmt.Sprintf(format, args...))
}

func (e *dbxError) GetMessage() string { return e.message }
func (e *dbxError) GetInner() error    { return e.cause }

func (e *dbxError) Error() string {
	return renderChain(e, true)
}

func (e *dbxError) StackAddrs() string {
	var buf bytes.Buffer
	for i, pc := range e.pcs {
		if i > 0 {
			buf.WriteByte(' ')
		}
		fmt.Fprintf(&buf, "0x%x", pc)
	}
	return buf.String()
}

func (e *dbxError) StackFrames() []StackFrame {
	e.frameCache.Do(func() {
		e.frames = make([]StackFrame, 0, len(e.pcs))
		frames := runtime.CallersFrames(e.pcs)
		for more := len(e.pcs) > 0; more; {
			var fr runtime.Frame
			fr, more = frames.Next()
			e.frames = append(e.frames, StackFrame{
				PC: fr.PC, Func: fr.Func, FuncName: fr.Function, File: fr.File, LineNumber: fr.Line,
			})
		}
	})
	return e.frames
}

func (e *dbxError) GetStack() string {
	var buf bytes.Buffer
	for _, frame := range e.StackFrames() {
		buf.WriteString(frame.FuncName)
		buf.WriteByte('\n')
		fmt.Fprintf(&buf, "\t%s:%d +0x%x\n", frame.File, frame.LineNumber, frame.PC)
	}
	return buf.String()
}

// renderChain walks e and every wrapped DropboxError beneath it,
// concatenating their messages one per line; a non-DropboxError cause at
// the bottom of the chain contributes its own Error() text. When
// includeStack is true, the deepest error's resolved stack is appended.
func renderChain(e DropboxError, includeStack bool) string {
	var buf bytes.Buffer
	var deepest DropboxError = e

	cur := e
	for {
		deepest = cur
		buf.WriteString(cur.GetMessage())

		inner := cur.GetInner()
		if inner == nil {
			break
		}
		next, ok := inner.(DropboxError)
		if !ok {
			buf.WriteString("\n")
			buf.WriteString(inner.Error())
			break
		}
		buf.WriteString("\n")
		cur = next
	}

	if includeStack {
		buf.WriteString("\nORIGINAL STACK TRACE:\n")
		buf.WriteString(deepest.GetStack())
	}
	return buf.String()
}

// GetMessage returns err's message without its stack trace, handling
// DropboxError, runtime.Error, and plain error uniformly.
func GetMessage(err interface{}) string {
	switch e := err.(type) {
	case DropboxError:
		return renderChain(e, false)
	case runtime.Error:
		return e.Error()
	case error:
		return e.Error()
	default:
		return "Passed a non-error to GetMessage"
	}
}

// unwrapOne returns the error one level beneath ierr, or nil if there is
// none -- DropboxError via GetInner, anything else via reflection on a
// conventional "Err" field, the pattern every wrapped stdlib error (e.g.
// *net.OpError, *os.PathError) follows.
func unwrapOne(ierr error) (nerr error) {
	if dbxErr, ok := ierr.(DropboxError); ok {
		return dbxErr.GetInner()
	}
	if u, ok := ierr.(interface{ Unwrap() error }); ok {
		return u.Unwrap()
	}

	defer func() {
		if recover() != nil {
			nerr = nil
		}
	}()
	v := reflect.ValueOf(ierr)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return nil
	}
	f := v.Elem().FieldByName("Err")
	if !f.IsValid() {
		return nil
	}
	inner, ok := f.Interface().(error)
	if !ok {
		return nil
	}
	return inner
}

// maxUnwrapDepth bounds RootError's walk so a cyclic or pathological
// Unwrap chain fails loudly instead of looping forever.
const maxUnwrapDepth = 20

// RootError peels away every layer of wrapping -- DropboxError, stdlib
// Unwrap, or a conventional "Err" field -- until a primitive error with
// nothing left to unwrap is reached.
func RootError(ierr error) error {
	cur := ierr
	for i := 0; i < maxUnwrapDepth; i++ {
		next := unwrapOne(cur)
		if next == nil {
			return cur
		}
		cur = next
	}
	return Newf("too many iterations: %T", cur)
}

// RootDropboxError returns the innermost error in ierr's chain that still
// satisfies DropboxError -- unlike RootError, it stops at the boundary
// between DropboxError wrapping and whatever non-DropboxError cause sits
// beneath it, rather than unwrapping past that boundary.
func RootDropboxError(ierr error) error {
	dbxErr, ok := ierr.(DropboxError)
	if !ok {
		return ierr
	}
	for {
		inner := dbxErr.GetInner()
		if inner == nil {
			return dbxErr
		}
		next, ok := inner.(DropboxError)
		if !ok {
			return dbxErr
		}
		dbxErr = next
	}
}

// FindWrappedError walks err from outermost to innermost, calling
// classify(curErr, topErr) at each level -- topErr is always the original
// err passed in, curErr is the layer currently being examined. The walk
// stops at the first non-nil value classify returns, reporting it found;
// if classify never returns non-nil before the chain runs out, it
// returns the original err unchanged and reports not found. A nil err
// short-circuits to (nil, false) without ever calling classify.
func FindWrappedError(err error, classify func(curErr, topErr error) error) (foundErr error, found bool) {
	if err == nil {
		return nil, false
	}

	topErr := err
	cur := err
	for {
		if result := classify(cur, topErr); result != nil {
			return result, true
		}
		dbxErr, ok := cur.(DropboxError)
		if !ok {
			break
		}
		inner := dbxErr.GetInner()
		if inner == nil {
			break
		}
		cur = inner
	}
	return topErr, false
}

// IsError reports whether err and errConst are the same error, comparing
// by identity first and falling back to comparing their fully-unwrapped
// string forms -- useful when a sentinel error has been wrapped one or
// more times and pointer equality no longer holds.
func IsError(err, errConst error) bool {
	if err == errConst {
		return true
	}

	rootErrStr := ""
	if root := RootError(err); root != nil {
		rootErrStr = root.Error()
	}
	errConstStr := ""
	if errConst != nil {
		errConstStr = errConst.Error()
	}
	return rootErrStr == errConstStr
}
