package vna_test

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/roman-kulish/vna-sparams/internal/scpi/scpitest"
	"github.com/roman-kulish/vna-sparams/internal/sweep"
	"github.com/roman-kulish/vna-sparams/internal/vna"
	"github.com/roman-kulish/vna-sparams/internal/vna/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(srv *scpitest.Server, options ...func(*vna.Session)) []func(*vna.Session) {
	return append([]func(*vna.Session){
		vna.WithPort(srv.Port()),
		vna.WithIdentifyDelay(0),
		vna.WithSettleDelay(0),
	}, options...)
}

func verifiedSession(t *testing.T, srv *scpitest.Server, options ...func(*vna.Session)) *vna.Session {
	t.Helper()

	s := vna.NewSession(srv.Host(), testOptions(srv, options...)...)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.Connect(ctx))
	_, err := s.Verify(ctx)
	require.NoError(t, err)

	srv.Reset()

	return s
}

func wr75Table() sweep.Table {
	return sweep.Table{
		{Name: sweep.ParamFrequencyStart, Value: "9.9", Unit: sweep.GHz},
		{Name: sweep.ParamFrequencyStop, Value: "15.0", Unit: sweep.GHz},
		{Name: sweep.ParamPoints, Value: "1021", Unit: sweep.Unitless},
		{Name: sweep.ParamBandwidth, Value: "1", Unit: sweep.KHz},
		{Name: sweep.ParamPower, Value: "-10.0", Unit: sweep.DBm},
		{Name: sweep.ParamCalibration, Value: "WR75"},
	}
}

func measureCommands() []string {
	return []string{
		"OUTPut1:STATe ON",
		"OUTPut2:STATe ON",
		"CALCulate1:PARameter:SDEFine 'TRC1', 'S11'",
		"CALCulate1:PARameter:SDEFine 'TRC2', 'S21'",
		"CALCulate1:PARameter:SDEFine 'TRC3', 'S12'",
		"CALCulate1:PARameter:SDEFine 'TRC4', 'S22'",
		"CALCulate1:FORMat MLOGarithmic",
		"DISPlay:WINDow1:STATe ON",
		"DISPlay:WINDow1:TRACe1:FEED 'TRC1'",
		"DISPlay:WINDow1:TRACe2:FEED 'TRC2'",
		"DISPlay:WINDow1:TRACe3:FEED 'TRC3'",
		"DISPlay:WINDow1:TRACe4:FEED 'TRC4'",
		"INITiate1:IMMediate;*WAI",
		"INITiate1:CONTinuous OFF",
		"OUTPut1:STATe OFF",
		"OUTPut2:STATe OFF",
	}
}

func TestSession_Lifecycle(t *testing.T) {
	srv := scpitest.NewServer(t)
	ctx := context.Background()

	var states []vna.State
	s := vna.NewSession(srv.Host(), testOptions(srv, vna.WithStateObserver(func(st vna.State) {
		states = append(states, st)
	}))...)

	require.Equal(t, vna.StateDisconnected, s.State())
	require.NoError(t, s.Connect(ctx))
	assert.Equal(t, []string{"*CLS", "SYSTem:DISPlay:UPDate ON"}, srv.Commands())

	id, err := s.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, scpitest.DefaultIdentity, id)
	assert.Equal(t, id, s.Identity())

	srv.Reset()
	require.NoError(t, s.ConfigureTable(ctx, wr75Table()))
	assert.Equal(t, []string{
		"SOUR:POW1 -10",
		"FREQ:STAR 9900000000;*WAI",
		"FREQ:STOP 15000000000;*WAI",
		"SWE:POIN 1021",
		"BAND 1000",
		"MMEM:LOAD:CORR 1, 'WR75'",
	}, srv.Commands())

	srv.Reset()
	require.NoError(t, s.Measure(ctx))
	assert.Equal(t, measureCommands(), srv.Commands())

	srv.Reset()
	require.NoError(t, s.Save(ctx, "test.s2p"))
	assert.Equal(t, []string{`MMEMory:STORe:TRACe:PORTs 1, "test.s2p", COMPlex, 1, 2`}, srv.Commands())

	local := filepath.Join(t.TempDir(), "test.s2p")
	n, err := s.Fetch(ctx, "test.s2p", local)
	require.NoError(t, err)

	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, scpitest.DefaultTouchstone, string(data))
	assert.EqualValues(t, len(scpitest.DefaultTouchstone), n)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.Equal(t, []vna.State{
		vna.StateConnected,
		vna.StateVerified,
		vna.StateConfigured,
		vna.StateArmed,
		vna.StateMeasurementComplete,
		vna.StateClosed,
	}, states)
}

func TestSession_ConfigureWithoutCalibration(t *testing.T) {
	srv := scpitest.NewServer(t)
	s := verifiedSession(t, srv)

	table := wr75Table()
	table[5].Value = sweep.NoCalibration

	require.NoError(t, s.ConfigureTable(context.Background(), table))

	cmds := srv.Commands()
	assert.Len(t, cmds, 5)
	for _, cmd := range cmds {
		assert.NotContains(t, cmd, "MMEM:LOAD:CORR")
	}
}

func TestSession_ConfigureEmptyTable(t *testing.T) {
	srv := scpitest.NewServer(t)
	s := verifiedSession(t, srv)
	ctx := context.Background()

	require.NoError(t, s.ConfigureTable(ctx, nil))
	require.NoError(t, s.Configure(ctx, nil))
	assert.Empty(t, srv.Commands())
	assert.Equal(t, vna.StateVerified, s.State())

	// measuring with the instrument's own settings is allowed
	require.NoError(t, s.Measure(ctx))
	assert.Equal(t, vna.StateMeasurementComplete, s.State())
}

func TestSession_ConfigureInvalidTable(t *testing.T) {
	srv := scpitest.NewServer(t)
	s := verifiedSession(t, srv)

	table := wr75Table()
	table[0].Unit = "Hz"

	err := s.ConfigureTable(context.Background(), table)

	var ce *driver.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Empty(t, srv.Commands())
	assert.Equal(t, vna.StateVerified, s.State())
}

func TestSession_InstrumentErrorStopsSequence(t *testing.T) {
	srv := scpitest.NewServer(t)
	s := verifiedSession(t, srv)

	srv.FailOn("SWE:POIN", `-222,"Data out of range"`)

	err := s.ConfigureTable(context.Background(), wr75Table())

	var ie *driver.InstrumentError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "SWE:POIN 1021", ie.Command)
	assert.Contains(t, ie.Message, "Data out of range")

	cmds := srv.Commands()
	require.NotEmpty(t, cmds)
	assert.Equal(t, "SWE:POIN 1021", cmds[len(cmds)-1])
	assert.Equal(t, vna.StateVerified, s.State())
}

func TestSession_ConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	s := vna.NewSession("127.0.0.1", vna.WithPort(port), vna.WithIdentifyDelay(0))
	ctx := context.Background()

	err = s.Connect(ctx)

	var ce *driver.ConnectionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, vna.StateDisconnected, s.State())

	_, err = s.Verify(ctx)
	assert.ErrorIs(t, err, vna.ErrInvalidState)

	assert.NoError(t, s.Close())
	assert.Equal(t, vna.StateClosed, s.State())
}

func TestSession_InvalidState(t *testing.T) {
	srv := scpitest.NewServer(t)
	ctx := context.Background()

	s := vna.NewSession(srv.Host(), testOptions(srv)...)
	t.Cleanup(func() { _ = s.Close() })

	assert.ErrorIs(t, s.Measure(ctx), vna.ErrInvalidState)
	assert.ErrorIs(t, s.Configure(ctx, nil), vna.ErrInvalidState)

	require.NoError(t, s.Connect(ctx))
	assert.ErrorIs(t, s.Connect(ctx), vna.ErrInvalidState)
	assert.ErrorIs(t, s.Measure(ctx), vna.ErrInvalidState)

	_, err := s.Verify(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Save(ctx, "test.s2p"), vna.ErrInvalidState)

	require.NoError(t, s.Close())
	_, err = s.Fetch(ctx, "test.s2p", filepath.Join(t.TempDir(), "test.s2p"))
	assert.ErrorIs(t, err, vna.ErrInvalidState)
}

func TestSession_FetchMissingFile(t *testing.T) {
	srv := scpitest.NewServer(t)
	s := verifiedSession(t, srv)

	dir := t.TempDir()
	_, err := s.Fetch(context.Background(), "missing.s2p", filepath.Join(dir, "missing.s2p"))

	var te *driver.TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "missing.s2p", te.File)

	var ie *driver.InstrumentError
	assert.ErrorAs(t, err, &ie)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSession_SaveRejectsQuotes(t *testing.T) {
	srv := scpitest.NewServer(t)
	s := verifiedSession(t, srv)
	ctx := context.Background()

	require.NoError(t, s.Measure(ctx))
	srv.Reset()

	var ce *driver.ConfigurationError
	assert.ErrorAs(t, s.Save(ctx, `a"b.s2p`), &ce)
	assert.Empty(t, srv.Commands())
}

func TestSession_ConfigureRejectsQuotedCalibration(t *testing.T) {
	srv := scpitest.NewServer(t)
	s := verifiedSession(t, srv)

	table := wr75Table()
	table[5].Value = "WR75', 'x"

	var ce *driver.ConfigurationError
	assert.ErrorAs(t, s.ConfigureTable(context.Background(), table), &ce)
	assert.Empty(t, srv.Commands())

	c := &sweep.Config{FrequencyStart: 1e9, FrequencyStop: 2e9, Points: 11, Bandwidth: 1e3, CalibrationName: "cal\n*RST"}
	assert.ErrorAs(t, s.Configure(context.Background(), c), &ce)
	assert.Empty(t, srv.Commands())
}

func TestSession_VerifyChecksStatus(t *testing.T) {
	srv := scpitest.NewServer(t)
	srv.FailOn("*IDN?", `-100,"Command error"`)

	s := vna.NewSession(srv.Host(), testOptions(srv)...)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.Connect(ctx))

	_, err := s.Verify(ctx)

	var ie *driver.InstrumentError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "*IDN?", ie.Command)
	assert.Equal(t, vna.StateConnected, s.State())
}

func TestSession_FetchPreloadedFile(t *testing.T) {
	srv := scpitest.NewServer(t)
	s := verifiedSession(t, srv)

	srv.SetFile("old.s2p", []byte("payload"))

	local := filepath.Join(t.TempDir(), "old.s2p")
	n, err := s.Fetch(context.Background(), "old.s2p", local)
	require.NoError(t, err)
	assert.EqualValues(t, 7, n)

	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestSession_CancelledContext(t *testing.T) {
	srv := scpitest.NewServer(t)
	s := verifiedSession(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Measure(ctx)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}
