package driver

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorsUnwrapThroughWrapping(t *testing.T) {
	connErr := fmt.Errorf("opening session: %w", NewConnectionError("dial 10.0.0.1:5025", io.EOF))

	var ce *ConnectionError
	require.ErrorAs(t, connErr, &ce)
	assert.ErrorIs(t, connErr, io.EOF)
	assert.Equal(t, "opening session: dial 10.0.0.1:5025: EOF", connErr.Error())

	transferErr := fmt.Errorf("fetch: %w", NewTransferError("a.s2p", io.ErrUnexpectedEOF))

	var te *TransferError
	require.ErrorAs(t, transferErr, &te)
	assert.Equal(t, "a.s2p", te.File)
	assert.ErrorIs(t, transferErr, io.ErrUnexpectedEOF)
}

func TestErrorMessages(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want string
	}{
		{"connection without cause", NewConnectionError("no route", nil), "no route"},
		{"configuration", NewConfigurationError("unknown unit 'THz'"), "unknown unit 'THz'"},
		{"instrument with command", NewInstrumentError("BAND 1000", `-222,"Data out of range"`), `instrument error after 'BAND 1000': -222,"Data out of range"`},
		{"instrument without command", NewInstrumentError("", "-113"), "instrument error: -113"},
		{"transfer without cause", NewTransferError("x.s2p", nil), "transferring 'x.s2p' failed"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}

	var ie *InstrumentError
	assert.False(t, errors.As(NewConfigurationError("x"), &ie))
}
