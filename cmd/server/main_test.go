package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"GreenCampusServer/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "migrate"}, names)
	assert.NotNil(t, root.RunE)
}

func TestOpenBackendsFallsBackToMemory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b, err := openBackends(context.Background(), config.Config{}, logger)
	require.NoError(t, err)
	defer b.close()

	require.NoError(t, b.ping(context.Background()))
	assert.NotNil(t, b.ledger)
	assert.NotNil(t, b.users)
}

func TestNotificationServiceWithoutSinks(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b, err := openBackends(context.Background(), config.Config{}, logger)
	require.NoError(t, err)

	svc, closeSinks := newNotificationService(context.Background(), config.Config{}, logger, b)
	defer closeSinks()
	assert.Nil(t, svc.Cache)
	assert.Nil(t, svc.Publisher)
	assert.Nil(t, svc.Sender)
}
