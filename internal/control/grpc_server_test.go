// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package control

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/pkg/errutil"
)

func startServer(t *testing.T) *GRPCServer {
	t.Helper()
	server := NewGRPCServer()
	_, err := server.Start("127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
	return server
}

func TestGRPCServer_StartsNotServing(t *testing.T) {
	server := startServer(t)

	status, err := CheckHealth(context.Background(), server.Addr(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "NOT_SERVING", status)
}

func TestGRPCServer_SetReady(t *testing.T) {
	server := startServer(t)

	server.SetReady(true)
	status, err := CheckHealth(context.Background(), server.Addr(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "SERVING", status)

	server.SetReady(false)
	status, err = CheckHealth(context.Background(), server.Addr(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "NOT_SERVING", status)
}

func TestGRPCServer_DoubleStart(t *testing.T) {
	server := startServer(t)

	_, err := server.Start("127.0.0.1:0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestGRPCServer_AddrBeforeStart(t *testing.T) {
	server := NewGRPCServer()
	assert.Empty(t, server.Addr())
}

func TestCheckHealth_Unreachable(t *testing.T) {
	server := startServer(t)
	addr := server.Addr()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, server.Stop(ctx))

	_, err := CheckHealth(context.Background(), addr, 200*time.Millisecond)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONTROL_UNREACHABLE")
}
