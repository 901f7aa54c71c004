package repositories

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Dosada05/tournament-wallet/settlement"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifyPgError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"serialization failure", &pq.Error{Code: pgSerializationFailure}, ErrConflict},
		{"deadlock", &pq.Error{Code: pgDeadlockDetected}, ErrConflict},
		{"wrapped serialization failure", fmt.Errorf("commit: %w", &pq.Error{Code: pgSerializationFailure}), ErrConflict},
		{"idempotency key race", &pq.Error{Code: pgUniqueViolation, Constraint: "wallet_transactions_idempotency_key"}, ErrConflict},
		{"tournament id taken", &pq.Error{Code: pgUniqueViolation, Constraint: constraintTournamentPK}, ErrTournamentExists},
		{"negative balance", &pq.Error{Code: pgCheckViolation, Constraint: constraintBalanceNonNegative}, settlement.ErrInsufficientFunds},
		{"over capacity", &pq.Error{Code: pgCheckViolation, Constraint: constraintCapacity}, settlement.ErrTournamentFull},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, classifyPgError(tc.err), tc.want)
		})
	}

	plain := errors.New("connection refused")
	assert.Equal(t, plain, classifyPgError(plain))
	assert.NoError(t, classifyPgError(nil))
	assert.False(t, errors.Is(classifyPgError(&pq.Error{Code: pgForeignKeyViolation}), ErrConflict))
}
