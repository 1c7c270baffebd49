package errors

// ErrorBuilder provides a fluent API for creating ClassifiedError instances.
type ErrorBuilder struct {
	category ErrorCategory
	severity ErrorSeverity
	message  string
	cause    error
	context  ErrorContext
}

// newError creates a new ErrorBuilder with the specified category and message.
func newError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError,
		message:  message,
		context:  make(ErrorContext),
	}
}

// WrapError creates a new ErrorBuilder that wraps an existing error.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	b := newError(category, message)
	b.cause = err
	return b
}

func (b *ErrorBuilder) withSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.severity = severity
	return b
}

func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.context = b.context.Set(key, value)
	return b
}

// WithCause attaches the underlying error.
func (b *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	b.cause = err
	return b
}

// Fatal marks the error as stopping the process.
func (b *ErrorBuilder) Fatal() *ErrorBuilder { return b.withSeverity(SeverityFatal) }

func (b *ErrorBuilder) warning() *ErrorBuilder { return b.withSeverity(SeverityWarning) }

// Build creates the final ClassifiedError.
func (b *ErrorBuilder) Build() *ClassifiedError {
	return &ClassifiedError{
		category: b.category,
		severity: b.severity,
		message:  b.message,
		cause:    b.cause,
		context:  b.context,
	}
}

// ConfigError creates a configuration error. Configuration errors abort before any step runs.
func ConfigError(message string) *ErrorBuilder {
	return newError(CategoryConfig, message).Fatal()
}

// ValidationError creates a validation error.
func ValidationError(message string) *ErrorBuilder {
	return newError(CategoryValidation, message).Fatal()
}

// GraphError creates an error that halts the enclosing graph invocation.
func GraphError(message string) *ErrorBuilder {
	return newError(CategoryGraph, message)
}

// ProcessingError creates a recoverable processing function error.
func ProcessingError(message string) *ErrorBuilder {
	return newError(CategoryProcessing, message).warning()
}

// FileSystemError creates an error for a failed read or write of build files.
func FileSystemError(message string) *ErrorBuilder {
	return newError(CategoryFileSystem, message)
}

// WatchError creates an error for a failed file watch setup.
func WatchError(message string) *ErrorBuilder {
	return newError(CategoryWatch, message)
}

func ServerError(message string) *ErrorBuilder {
	return newError(CategoryServer, message)
}

func InternalError(message string) *ErrorBuilder {
	return newError(CategoryInternal, message).Fatal()
}
