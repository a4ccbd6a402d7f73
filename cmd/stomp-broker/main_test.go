package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/config"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/database"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "stomp-broker "+server.Version)
}

func TestServeWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broker.yaml")
	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--config", path})

	err := root.Execute()
	assert.ErrorIs(t, err, config.ErrConfigCreated)
	assert.FileExists(t, path)
}

func TestAddAndDeleteUser(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryUserStore()
	var out bytes.Buffer

	require.NoError(t, addUser(ctx, &out, store, "alice", "secret", []string{"/a/*"}, []string{"#"}))
	assert.Equal(t, "user alice saved\n", out.String())

	user, err := store.FindUser(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, user.CheckPassword("secret"))
	assert.Equal(t, []string{"/a/*"}, user.SendTopics)

	assert.ErrorIs(t, addUser(ctx, &out, store, "", "x", nil, nil), database.ErrLoginEmpty)

	out.Reset()
	require.NoError(t, deleteUser(ctx, &out, store, "alice"))
	assert.Equal(t, "user alice deleted\n", out.String())
	assert.ErrorIs(t, deleteUser(ctx, &out, store, "alice"), database.ErrUserNotFound)
}
