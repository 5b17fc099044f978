// Package errors provides categorized errors with component context and an
// optional reporting hook for operational failures.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
)

// Category classifies an error for callers and reporting.
type Category string

const (
	CategoryValidation    Category = "validation"
	CategoryNotFound      Category = "not-found"
	CategoryDatabase      Category = "database"
	CategoryConfiguration Category = "configuration"
	CategoryMQTT          Category = "mqtt"
	CategoryNetwork       Category = "network"
	CategoryBroker        Category = "broker"
	CategoryNotification  Category = "notification"
	CategoryGeneric       Category = "generic"
)

// EnhancedError wraps an error with a component, a category and free-form context.
type EnhancedError struct {
	Err       error
	component string
	category  Category
	context   map[string]any
	timestamp time.Time
	stack     error
}

func (e *EnhancedError) Error() string {
	return e.Err.Error()
}

func (e *EnhancedError) Unwrap() error {
	return e.Err
}

// GetComponent returns the component that raised the error.
func (e *EnhancedError) GetComponent() string { return e.component }

// GetCategory returns the error category.
func (e *EnhancedError) GetCategory() Category { return e.category }

// GetContext returns a copy of the attached context.
func (e *EnhancedError) GetContext() map[string]any {
	return maps.Clone(e.context)
}

// GetTimestamp returns when the error was built.
func (e *EnhancedError) GetTimestamp() time.Time { return e.timestamp }

// StackError returns the error annotated with the stack captured at Build time.
func (e *EnhancedError) StackError() error { return e.stack }

// Reporter receives built errors in reportable categories.
type Reporter interface {
	Report(err *EnhancedError)
}

var (
	reporter   Reporter
	reporterMu sync.RWMutex
)

// SetReporter installs the process-wide reporter. nil disables reporting.
func SetReporter(r Reporter) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	reporter = r
}

func currentReporter() Reporter {
	reporterMu.RLock()
	defer reporterMu.RUnlock()
	return reporter
}

// ErrorBuilder assembles an EnhancedError.
type ErrorBuilder struct {
	err       error
	component string
	category  Category
	context   map[string]any
}

// New starts building an enhanced error around err.
func New(err error) *ErrorBuilder {
	if err == nil {
		err = stderrors.New("unknown error")
	}
	return &ErrorBuilder{err: err, category: CategoryGeneric}
}

// Newf starts building an enhanced error from a format string.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

func (b *ErrorBuilder) Component(name string) *ErrorBuilder {
	b.component = name
	return b
}

func (b *ErrorBuilder) Category(c Category) *ErrorBuilder {
	b.category = c
	return b
}

func (b *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if b.context == nil {
		b.context = make(map[string]any)
	}
	b.context[key] = value
	return b
}

// Build finalizes the error and hands reportable categories to the reporter.
func (b *ErrorBuilder) Build() *EnhancedError {
	ee := &EnhancedError{
		Err:       b.err,
		component: b.component,
		category:  b.category,
		context:   b.context,
		timestamp: time.Now(),
		stack:     pkgerrors.WithStack(b.err),
	}
	if isReportable(ee.category) {
		if r := currentReporter(); r != nil {
			r.Report(ee)
		}
	}
	return ee
}

func isReportable(c Category) bool {
	switch c {
	case CategoryValidation, CategoryNotFound:
		return false
	default:
		return true
	}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Join wraps multiple errors into one.
func Join(errs ...error) error { return stderrors.Join(errs...) }

// NewStd returns a plain error, for sentinels.
func NewStd(text string) error { return stderrors.New(text) }

// CategoryOf returns the category of the first EnhancedError in err's chain,
// or CategoryGeneric when there is none.
func CategoryOf(err error) Category {
	var ee *EnhancedError
	if stderrors.As(err, &ee) {
		return ee.category
	}
	return CategoryGeneric
}

func IsValidation(err error) bool { return err != nil && CategoryOf(err) == CategoryValidation }

func IsNotFound(err error) bool { return err != nil && CategoryOf(err) == CategoryNotFound }

// IsPersistence reports whether err is a storage failure.
func IsPersistence(err error) bool { return err != nil && CategoryOf(err) == CategoryDatabase }
