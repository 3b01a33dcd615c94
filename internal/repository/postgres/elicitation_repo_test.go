package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/beamhq/beam-core/internal/errs"
	"github.com/beamhq/beam-core/internal/model"
)

func TestElicitationRepo_Transition_Pending(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewElicitationRepo(db)

	mock.ExpectExec(`UPDATE elicitation_requests SET status=\$2\s+WHERE id=\$1 AND status='pending'`).
		WithArgs("elic-1", "completed").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, r.Transition(context.Background(), "elic-1", model.ElicitationCompleted))
}

func TestElicitationRepo_Transition_AlreadyTerminal(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewElicitationRepo(db)

	mock.ExpectExec(`UPDATE elicitation_requests SET status=\$2\s+WHERE id=\$1 AND status='pending'`).
		WithArgs("elic-1", "completed").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	cols := []string{"id", "session_id", "photon_id", "provider", "required_scopes", "status",
		"redirect_uri", "code_verifier", "created_at", "expires_at"}
	mock.ExpectQuery(`SELECT id, session_id, photon_id, provider, required_scopes, status,\s+redirect_uri, code_verifier, created_at, expires_at\s+FROM elicitation_requests WHERE id=\$1`).
		WithArgs("elic-1").
		WillReturnRows(pgxmock.NewRows(cols).AddRow(
			"elic-1", "sess-1", "content-creator", "github", []byte(`["repo"]`), "cancelled",
			"https://beam.example.com/oauth/callback", "verifier", time.Now(), time.Now().Add(10*time.Minute)))

	err := r.Transition(context.Background(), "elic-1", model.ElicitationCompleted)
	require.ErrorIs(t, err, errs.ErrElicitationTerminal)
}

func TestElicitationRepo_Transition_Missing(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewElicitationRepo(db)

	mock.ExpectExec(`UPDATE elicitation_requests SET status=\$2\s+WHERE id=\$1 AND status='pending'`).
		WithArgs("ghost", "cancelled").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(`FROM elicitation_requests WHERE id=\$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	err := r.Transition(context.Background(), "ghost", model.ElicitationCancelled)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestElicitationRepo_Transition_RejectsNonTerminal(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewElicitationRepo(db)
	require.Error(t, r.Transition(context.Background(), "elic-1", model.ElicitationPending))
}

func TestElicitationRepo_SweepExpired(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewElicitationRepo(db)
	now := time.Now()

	mock.ExpectExec(`UPDATE elicitation_requests SET status='expired'\s+WHERE status='pending' AND expires_at < \$1`).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectExec(`DELETE FROM elicitation_requests\s+WHERE status <> 'pending' AND expires_at < \$1`).
		WithArgs(now.Add(-24 * time.Hour)).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))

	n, err := r.SweepExpired(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}
