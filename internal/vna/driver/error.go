package driver

// ConnectionError is returned when the transport to the instrument cannot
// be opened. No later session step may run after it.
type ConnectionError struct {
	msg string
	err error
}

func NewConnectionError(msg string, err error) *ConnectionError {
	return &ConnectionError{msg, err}
}

func (e *ConnectionError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *ConnectionError) Unwrap() error {
	return e.err
}

// ConfigurationError is a custom error type for sweep table, unit and
// address errors
type ConfigurationError struct {
	msg string
}

func NewConfigurationError(msg string) *ConfigurationError {
	return &ConfigurationError{msg}
}

func (e *ConfigurationError) Error() string {
	return e.msg
}

// InstrumentError carries a SCPI level fault reported by the instrument's
// own error queue. It is never retried.
type InstrumentError struct {
	Command string
	Message string
}

func NewInstrumentError(command, message string) *InstrumentError {
	return &InstrumentError{Command: command, Message: message}
}

func (e *InstrumentError) Error() string {
	if e.Command == "" {
		return "instrument error: " + e.Message
	}
	return "instrument error after '" + e.Command + "': " + e.Message
}

// TransferError is returned when a file cannot be read back from the
// instrument storage.
type TransferError struct {
	File string
	err  error
}

func NewTransferError(file string, err error) *TransferError {
	return &TransferError{File: file, err: err}
}

func (e *TransferError) Error() string {
	if e.err == nil {
		return "transferring '" + e.File + "' failed"
	}
	return "transferring '" + e.File + "': " + e.err.Error()
}

func (e *TransferError) Unwrap() error {
	return e.err
}
