package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"attendance-portal/internal/session"
)

func TestOpen_Memory(t *testing.T) {
	b, err := Open(context.Background(), "", "", "", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, b.Kind)
	assert.Equal(t, map[string]bool{"memory": true}, b.Healthy(context.Background()))
	assert.NoError(t, b.Close())
}

func TestOpen_Unknown(t *testing.T) {
	_, err := Open(context.Background(), "mongo", "", "", zap.NewNop())
	assert.Error(t, err)
}

func TestSweep_Postgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	pg := session.NewPostgres(db)
	b := &Backend{Kind: BackendPostgres, Sessions: pg, DB: &DB{Client: db}, postgres: pg}

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM web_sessions WHERE expires_at")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	b.sweep(context.Background(), zap.NewNop())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSweep_Memory(t *testing.T) {
	mem := session.NewMemory()
	b := &Backend{Kind: BackendMemory, Sessions: mem, memory: mem}
	require.NoError(t, mem.Save(context.Background(), &session.Data{ID: "x"}, -time.Second))
	b.sweep(context.Background(), zap.NewNop())
	assert.Equal(t, 0, mem.Len())
}

func TestJanitor_StopsOnCancel(t *testing.T) {
	mem := session.NewMemory()
	b := &Backend{Kind: BackendMemory, Sessions: mem, memory: mem}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Janitor(ctx, time.Millisecond, zap.NewNop())
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
