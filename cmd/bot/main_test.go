package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShutdownStopsServerBeforeRunner(t *testing.T) {
	var order []string
	stopServer := func(context.Context) error {
		order = append(order, "server")
		return nil
	}
	stopRunner := func() { order = append(order, "runner") }

	assert.NoError(t, shutdown(context.Background(), stopServer, stopRunner))
	assert.Equal(t, []string{"server", "runner"}, order)
}

func TestShutdownStopsRunnerWhenServerFails(t *testing.T) {
	stopped := false
	err := shutdown(context.Background(),
		func(context.Context) error { return errors.New("shutdown timed out") },
		func() { stopped = true })

	assert.EqualError(t, err, "shutdown timed out")
	assert.True(t, stopped)
}
