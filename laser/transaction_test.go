package laser

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optoforge/go-stradus/protocol"
)

func TestRetrySucceedsAfterDroppedResponses(t *testing.T) {
	// k dropped responses with k < maxRetries: success after exactly k+1
	// writes of the same request.
	for _, drops := range []int{0, 1, 2} {
		sess, emu := newTestSession(t, WithRetries(3))
		ctx := context.Background()

		require.NoError(t, sess.Open(ctx))

		emu.DropResponses(drops)
		base := emu.Writes()

		require.NoError(t, sess.LaserOn(ctx), "drops=%d", drops)
		assert.Equal(t, drops+1, emu.Writes()-base, "drops=%d", drops)
		assert.Equal(t, StateOpen, sess.State())
		assert.True(t, emu.Emitting())

		require.NoError(t, sess.Close())
	}
}

func TestTimeoutExhaustsRetryBudget(t *testing.T) {
	sess, emu := newTestSession(t, WithRetries(2))
	ctx := context.Background()

	require.NoError(t, sess.Open(ctx))
	defer sess.Close()

	emu.DropResponses(100)
	base := emu.Writes()

	err := sess.LaserOn(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)

	var terr *TimeoutError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 3, terr.Attempts)

	// maxRetries+1 writes, then Faulted.
	assert.Equal(t, 3, emu.Writes()-base)
	assert.Equal(t, StateFaulted, sess.State())
}

func TestWrongCommandEchoIsFatal(t *testing.T) {
	sess, emu := newTestSession(t, WithRetries(5))
	ctx := context.Background()

	require.NoError(t, sess.Open(ctx))
	defer sess.Close()

	emu.MangleNext(func(report []byte) []byte {
		report[0] = protocol.CmdGetStatus // echo for a different command
		return report
	})
	base := emu.Writes()

	err := sess.LaserOn(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocol)

	var mismatch *EchoMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, byte(protocol.CmdLaserOn), mismatch.Sent)
	assert.Equal(t, byte(protocol.CmdGetStatus), mismatch.Echoed)

	// Never retried: exactly one write, session Faulted.
	assert.Equal(t, 1, emu.Writes()-base)
	assert.Equal(t, StateFaulted, sess.State())
}

func TestCorruptDeclaredLengthIsFatal(t *testing.T) {
	sess, emu := newTestSession(t, WithRetries(5))
	ctx := context.Background()

	require.NoError(t, sess.Open(ctx))
	defer sess.Close()

	emu.MangleNext(func(report []byte) []byte {
		report[1] = 0xFF // declared length exceeds the report
		return report
	})
	base := emu.Writes()

	err := sess.LaserOn(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocol)
	assert.ErrorIs(t, err, protocol.ErrFrameTooShort)

	assert.Equal(t, 1, emu.Writes()-base)
	assert.Equal(t, StateFaulted, sess.State())
}

func TestTransportWriteFailure(t *testing.T) {
	sess, emu := newTestSession(t, WithRetries(1))
	ctx := context.Background()

	require.NoError(t, sess.Open(ctx))
	defer sess.Close()

	emu.FailWrites(errors.New("pipe broke"))

	err := sess.LaserOn(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransportWrite)
	assert.Equal(t, StateFaulted, sess.State())
}

func TestTransportReadFailure(t *testing.T) {
	sess, emu := newTestSession(t, WithRetries(1))
	ctx := context.Background()

	require.NoError(t, sess.Open(ctx))
	defer sess.Close()

	emu.FailReads(errors.New("device yanked"))

	err := sess.LaserOn(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransportRead)
	assert.Equal(t, StateFaulted, sess.State())
}

func TestOversizedPayloadFailsBeforeIO(t *testing.T) {
	sess, emu := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, sess.Open(ctx))
	defer sess.Close()

	base := emu.Writes()

	_, err := sess.transact(ctx, protocol.Frame{
		Cmd:     protocol.CmdSetPower,
		Payload: make([]byte, protocol.MaxPayloadSize+1),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, protocol.ErrPayloadTooLarge)

	// Framing failures are detected before any transport write.
	assert.Equal(t, base, emu.Writes())
	assert.Equal(t, StateOpen, sess.State())
}

func TestConsecutiveFailureCounterResets(t *testing.T) {
	sess, emu := newTestSession(t, WithRetries(3))
	ctx := context.Background()

	require.NoError(t, sess.Open(ctx))
	defer sess.Close()

	emu.DropResponses(2)
	require.NoError(t, sess.LaserOn(ctx))

	sess.stateMu.Lock()
	failures := sess.failures
	sess.stateMu.Unlock()
	assert.Zero(t, failures)
}

func TestCancelledBeforeWrite(t *testing.T) {
	sess, emu := newTestSession(t)

	require.NoError(t, sess.Open(context.Background()))
	defer sess.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	base := emu.Writes()

	err := sess.LaserOn(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, base, emu.Writes())
}
