package hidtest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optoforge/go-stradus/hid"
	"github.com/optoforge/go-stradus/protocol"
)

// exchange writes one command and returns the decoded response frame.
func exchange(t *testing.T, e *Emulator, cmd byte, payload []byte) protocol.Frame {
	t.Helper()

	report, err := protocol.EncodeFrame(cmd, payload)
	require.NoError(t, err)
	require.NoError(t, e.Write(report))

	resp, err := e.Read(time.Second)
	require.NoError(t, err)

	frame, err := protocol.DecodeFrame(resp)
	require.NoError(t, err)
	return frame
}

func TestEmulatorEmissionControl(t *testing.T) {
	emu := NewEmulator()

	frame := exchange(t, emu, protocol.CmdLaserOn, nil)
	assert.Equal(t, []byte{protocol.StatusOK}, frame.Payload)
	assert.True(t, emu.Emitting())

	frame = exchange(t, emu, protocol.CmdLaserOff, nil)
	assert.Equal(t, []byte{protocol.StatusOK}, frame.Payload)
	assert.False(t, emu.Emitting())
}

func TestEmulatorInterlockBlocksEmission(t *testing.T) {
	emu := NewEmulator()
	emu.SetFaults(protocol.FaultInterlock)

	frame := exchange(t, emu, protocol.CmdLaserOn, nil)
	assert.Equal(t, []byte{protocol.StatusErrInterlock}, frame.Payload)
	assert.False(t, emu.Emitting())
}

func TestEmulatorSetPower(t *testing.T) {
	emu := NewEmulator()

	cmd, err := protocol.BuildSetPowerCmd(42.5, emu.info)
	require.NoError(t, err)

	frame := exchange(t, emu, cmd.Cmd, cmd.Payload)
	assert.Equal(t, []byte{protocol.StatusOK}, frame.Payload)
	assert.Equal(t, 42.5, emu.Power())

	// A request outside the envelope is refused without changing the
	// setpoint.
	over := make([]byte, 4)
	copy(over, cmd.Payload)
	over[3] = 0x47 // exponent bump, well past 100mW
	frame = exchange(t, emu, protocol.CmdSetPower, over)
	assert.Equal(t, []byte{protocol.StatusErrPowerRange}, frame.Payload)
	assert.Equal(t, 42.5, emu.Power())

	// Wrong payload length.
	frame = exchange(t, emu, protocol.CmdSetPower, []byte{1, 2})
	assert.Equal(t, []byte{protocol.StatusErrBadLength}, frame.Payload)
}

func TestEmulatorStatusReflectsState(t *testing.T) {
	emu := NewEmulator()

	exchange(t, emu, protocol.CmdLaserOn, nil)
	cmd, err := protocol.BuildSetPowerCmd(12.5, emu.info)
	require.NoError(t, err)
	exchange(t, emu, cmd.Cmd, cmd.Payload)
	emu.SetFaults(protocol.FaultOverTemp)

	frame := exchange(t, emu, protocol.CmdGetStatus, nil)
	status, err := protocol.ParseStatusResponse(frame.Payload)
	require.NoError(t, err)
	assert.True(t, status.Emission)
	assert.True(t, status.Faults.OverTemp())
	assert.InDelta(t, 12.5, status.PowerMilliwatts, 0.001)
}

func TestEmulatorInfoAndVersion(t *testing.T) {
	emu := NewEmulator()
	emu.SetLimits(5, 80)

	frame := exchange(t, emu, protocol.CmdGetInfo, nil)
	info, err := protocol.ParseInfoResponse(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, 5.0, info.MinPowerMilliwatts)
	assert.Equal(t, 80.0, info.MaxPowerMilliwatts)
	assert.Equal(t, 488.0, info.WavelengthNanometers)

	frame = exchange(t, emu, protocol.CmdGetVersion, nil)
	version, err := protocol.ParseVersionResponse(frame.Payload)
	require.NoError(t, err)
	assert.Equal(t, "3.1.2", version)
}

func TestEmulatorUnknownCommand(t *testing.T) {
	emu := NewEmulator()

	frame := exchange(t, emu, 0x7F, nil)
	assert.Equal(t, []byte{protocol.StatusErrUnknownCommand}, frame.Payload)
}

func TestEmulatorMalformedWriteProducesNoResponse(t *testing.T) {
	emu := NewEmulator()

	require.NoError(t, emu.Write([]byte{0xA1})) // shorter than a header

	_, err := emu.Read(time.Millisecond)
	assert.ErrorIs(t, err, hid.ErrReadTimeout)
	assert.Equal(t, 1, emu.Writes())
}

func TestEmulatorDropAndMangle(t *testing.T) {
	emu := NewEmulator()

	emu.DropResponses(1)
	report, err := protocol.EncodeFrame(protocol.CmdLaserOn, nil)
	require.NoError(t, err)

	// Dropped response: the command still took effect.
	require.NoError(t, emu.Write(report))
	_, err = emu.Read(time.Millisecond)
	assert.ErrorIs(t, err, hid.ErrReadTimeout)
	assert.True(t, emu.Emitting())

	// Mangle is one-shot.
	emu.MangleNext(func(resp []byte) []byte {
		resp[0] = 0xEE
		return resp
	})
	require.NoError(t, emu.Write(report))
	resp, err := emu.Read(time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, byte(0xEE), resp[0])

	frame := exchange(t, emu, protocol.CmdLaserOn, nil)
	assert.Equal(t, byte(protocol.CmdLaserOn), frame.Cmd)
}

func TestEmulatorClosedTransport(t *testing.T) {
	emu := NewEmulator()
	require.NoError(t, emu.Close())

	err := emu.Write([]byte{protocol.CmdLaserOn, 0})
	assert.ErrorIs(t, err, hid.ErrClosed)
	_, err = emu.Read(time.Millisecond)
	assert.ErrorIs(t, err, hid.ErrClosed)
}

func TestOpenerSelection(t *testing.T) {
	op := NewOpener()
	a := NewEmulator()
	b := NewEmulator()
	op.Add(hid.DeviceInfo{Path: "emu0", VendorID: 0x0C80, ProductID: 0x0001}, a)
	op.Add(hid.DeviceInfo{Path: "emu1", VendorID: 0x1234, ProductID: 0x0002}, b)
	op.AddFailing(hid.DeviceInfo{Path: "locked", VendorID: 0x0C80, ProductID: 0x0003}, hid.ErrAccessDenied)

	infos, err := op.Enumerate(0, 0)
	require.NoError(t, err)
	assert.Len(t, infos, 3)

	infos, err = op.Enumerate(0x0C80, 0)
	require.NoError(t, err)
	assert.Len(t, infos, 2)

	got, err := op.Open(hid.Selector{Path: "emu1"})
	require.NoError(t, err)
	assert.Same(t, hid.Transport(b), got)

	got, err = op.Open(hid.Selector{VendorID: 0x0C80, ProductID: 0x0001})
	require.NoError(t, err)
	assert.Same(t, hid.Transport(a), got)

	_, err = op.Open(hid.Selector{Path: "locked"})
	assert.ErrorIs(t, err, hid.ErrAccessDenied)

	_, err = op.Open(hid.Selector{Path: "missing"})
	assert.ErrorIs(t, err, hid.ErrDeviceNotFound)
}

func TestOpenerReopensClosedEmulator(t *testing.T) {
	op := NewOpener()
	emu := NewEmulator()
	op.Add(hid.DeviceInfo{Path: "emu0"}, emu)

	first, err := op.Open(hid.Selector{Path: "emu0"})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	// Re-acquiring the path yields a usable transport with no stale
	// responses queued.
	again, err := op.Open(hid.Selector{Path: "emu0"})
	require.NoError(t, err)
	_, err = again.Read(time.Millisecond)
	assert.ErrorIs(t, err, hid.ErrReadTimeout)
}

func TestPlaybackScript(t *testing.T) {
	pb := NewPlayback()
	pb.QueueTimeout()
	pb.QueueError(errors.New("bus reset"))
	pb.QueueReport([]byte{0x01, 0x00})

	require.NoError(t, pb.Write([]byte{0xAA}))

	_, err := pb.Read(time.Millisecond)
	assert.ErrorIs(t, err, hid.ErrReadTimeout)

	_, err = pb.Read(time.Millisecond)
	assert.EqualError(t, err, "bus reset")

	report, err := pb.Read(time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00}, report)

	// Script exhausted: subsequent reads time out.
	_, err = pb.Read(time.Millisecond)
	assert.ErrorIs(t, err, hid.ErrReadTimeout)

	assert.Equal(t, 1, pb.WriteCount())
	assert.Equal(t, [][]byte{{0xAA}}, pb.Writes())
}
