package auth

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vellum/internal/database"
)

func setupService(t *testing.T) *Service {
	t.Helper()

	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// An in-memory SQLite database lives and dies with its connection.
	db.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	require.NoError(t, InitSessionStore(strings.Repeat("k", 32)))

	return NewService(NewRepository(db))
}

func TestRegisterAndLogin(t *testing.T) {
	service := setupService(t)

	user, err := service.RegisterUser("alice", "Alice", "correct horse battery staple")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice", user.Username)

	// Duplicate usernames are rejected.
	_, err = service.RegisterUser("alice", "Alice Again", "hunter2")
	assert.Error(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/login", nil)
	loggedIn, err := service.Login(w, r, "alice", "correct horse battery staple")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	// Wrong password fails.
	_, err = service.Login(httptest.NewRecorder(), r, "alice", "wrong")
	assert.Error(t, err)
}

func TestInitSessionStoreRejectsShortKeys(t *testing.T) {
	assert.Error(t, InitSessionStore("too short"))
}
