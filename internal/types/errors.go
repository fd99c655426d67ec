package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

type ErrorKind string

const (
	ErrorKindConfiguration   ErrorKind = "configuration"
	ErrorKindResolution      ErrorKind = "resolution"
	ErrorKindFormat          ErrorKind = "format"
	ErrorKindConsentRequired ErrorKind = "consent required"
	ErrorKindMissingArtifact ErrorKind = "missing artifact"
	ErrorKindIntegrity       ErrorKind = "integrity"
	ErrorKindRewrite         ErrorKind = "rewrite"
)

// Error classifies a failure of a resolution or remap call. LayerIndex is
// -1 when the failure is not tied to a layer.
type Error struct {
	Kind       ErrorKind
	LayerIndex int
	LayerKind  LayerKind
	Path       string
	Line       int
	Err        error

	cause error
}

func (e *Error) Error() string {
	var builder strings.Builder
	builder.WriteString(string(e.Kind))
	builder.WriteString(" error")
	if e.LayerIndex >= 0 {
		fmt.Fprintf(&builder, " in layer %d (%s)", e.LayerIndex, e.LayerKind)
	}
	if e.Path != "" {
		builder.WriteString(" at ")
		builder.WriteString(e.Path)
		if e.Line > 0 {
			fmt.Fprintf(&builder, ":%d", e.Line)
		}
	} else if e.Line > 0 {
		fmt.Fprintf(&builder, " at line %d", e.Line)
	}
	if e.Err != nil {
		builder.WriteString(": ")
		builder.WriteString(e.Err.Error())
	}
	if e.cause != nil && (e.Err == nil || !strings.Contains(e.Err.Error(), e.cause.Error())) {
		builder.WriteString(": ")
		builder.WriteString(e.cause.Error())
	}
	return builder.String()
}

func (e *Error) Unwrap() []error {
	var errs []error
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind, true
	}
	return "", false
}

func IsKind(err error, kind ErrorKind) bool {
	got, ok := KindOf(err)
	return ok && got == kind
}

func newError(kind ErrorKind, code errbuilder.ErrCode, msg string, cause error) *Error {
	builder := errbuilder.New().WithCode(code).WithMsg(msg)
	if cause != nil {
		builder = builder.WithCause(cause)
	}
	return &Error{Kind: kind, LayerIndex: -1, Err: builder, cause: cause}
}

func ConfigurationError(msg string) error {
	return newError(ErrorKindConfiguration, errbuilder.CodeInvalidArgument, msg, nil)
}

// LayerConfigurationError reports an invalid layer spec.
func LayerConfigurationError(index int, kind LayerKind, msg string) error {
	err := newError(ErrorKindConfiguration, errbuilder.CodeInvalidArgument, msg, nil)
	err.LayerIndex = index
	err.LayerKind = kind
	return err
}

func ResolutionError(index int, kind LayerKind, msg string, cause error) error {
	err := newError(ErrorKindResolution, errbuilder.CodeNotFound, msg, cause)
	err.LayerIndex = index
	err.LayerKind = kind
	return err
}

func FormatError(path string, line int, msg string) error {
	err := newError(ErrorKindFormat, errbuilder.CodeInvalidArgument, msg, nil)
	err.Path = path
	err.Line = line
	return err
}

func ConsentRequiredError(index int, kind LayerKind, msg string) error {
	err := newError(ErrorKindConsentRequired, errbuilder.CodePermissionDenied, msg, nil)
	err.LayerIndex = index
	err.LayerKind = kind
	return err
}

func MissingArtifactError(path string, cause error) error {
	err := newError(ErrorKindMissingArtifact, errbuilder.CodeNotFound, "artifact does not exist", cause)
	err.Path = path
	return err
}

func IntegrityError(path string, msg string, cause error) error {
	err := newError(ErrorKindIntegrity, errbuilder.CodeInternal, msg, cause)
	err.Path = path
	return err
}

func RewriteError(path string, msg string, cause error) error {
	err := newError(ErrorKindRewrite, errbuilder.CodeInternal, msg, cause)
	err.Path = path
	return err
}

// AttachLayer tags err with the layer that produced it. Errors that are not
// already classified become resolution errors.
func AttachLayer(err error, index int, kind LayerKind) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		if typed.LayerIndex >= 0 {
			return err
		}
		copied := *typed
		copied.LayerIndex = index
		copied.LayerKind = kind
		return &copied
	}
	return ResolutionError(index, kind, "failed to resolve layer", err)
}
