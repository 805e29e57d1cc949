package integration

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkarsten/gatehouse/internal/models"
)

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

func lockAccount(t *testing.T, ctx context.Context, accountID string) {
	t.Helper()
	_, err := testDB.Pool.Exec(ctx,
		"UPDATE accounts SET locked = true, lock_expires_at = NOW() + INTERVAL '15 minutes' WHERE id = $1",
		accountID)
	require.NoError(t, err)
}

func TestOTPRecoveryFlow(t *testing.T) {
	ctx := context.Background()
	stack := BuildStack(testDB)
	email, username, password := TestAccount("recovery")
	accountID, err := CreateAccount(ctx, testDB, email, username, password)
	require.NoError(t, err)
	lockAccount(t, ctx, accountID)

	// Locked account cannot log in even with the right password
	_, err = stack.Auth.Login(ctx, email, password, "192.0.2.10", "test-agent")
	_, locked := models.AsLockedError(err)
	require.True(t, locked)

	// Generate delivers a 6-digit code
	require.NoError(t, stack.OTP.Generate(ctx, email))
	msg := stack.Notifier.LastMessage()
	require.NotNil(t, msg)
	assert.Equal(t, email, msg.Address)
	code := codePattern.FindString(msg.Body)
	require.NotEmpty(t, code, "no code found in message body: %s", msg.Body)

	// Verify unlocks
	require.NoError(t, stack.OTP.Verify(ctx, email, code))

	var lockedNow bool
	require.NoError(t, testDB.Pool.QueryRow(ctx,
		"SELECT locked FROM accounts WHERE id = $1", accountID).Scan(&lockedNow))
	assert.False(t, lockedNow)

	// Subsequent login with the correct password succeeds
	grant, err := stack.Auth.Login(ctx, email, password, "192.0.2.10", "test-agent")
	require.NoError(t, err)
	assert.NotEmpty(t, grant.AccessToken)

	// The code is single-use
	err = stack.OTP.Verify(ctx, email, code)
	assert.ErrorIs(t, err, models.ErrOTPInvalid)
}

func TestOTPGenerateRequiresLockedAccount(t *testing.T) {
	ctx := context.Background()
	stack := BuildStack(testDB)
	email, username, password := TestAccount("unlocked")
	_, err := CreateAccount(ctx, testDB, email, username, password)
	require.NoError(t, err)

	err = stack.OTP.Generate(ctx, email)
	assert.ErrorIs(t, err, models.ErrAccountNotLocked)
	assert.Nil(t, stack.Notifier.LastMessage())
}

func TestOTPWrongCodeLeavesLockInPlace(t *testing.T) {
	ctx := context.Background()
	stack := BuildStack(testDB)
	email, username, password := TestAccount("wrongcode")
	accountID, err := CreateAccount(ctx, testDB, email, username, password)
	require.NoError(t, err)
	lockAccount(t, ctx, accountID)

	require.NoError(t, stack.OTP.Generate(ctx, email))
	code := codePattern.FindString(stack.Notifier.LastMessage().Body)
	require.NotEmpty(t, code)

	wrong := "000000"
	if wrong == code {
		wrong = "111111"
	}
	err = stack.OTP.Verify(ctx, email, wrong)
	assert.ErrorIs(t, err, models.ErrOTPInvalid)

	var lockedNow bool
	require.NoError(t, testDB.Pool.QueryRow(ctx,
		"SELECT locked FROM accounts WHERE id = $1", accountID).Scan(&lockedNow))
	assert.True(t, lockedNow, "wrong code must not unlock")

	// The real code still works after a failed guess
	require.NoError(t, stack.OTP.Verify(ctx, email, code))
}
