package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerRegister(t *testing.T) {
	s, err := NewServer("nats://localhost:4222")
	require.NoError(t, err)

	handler := func(context.Context, []byte) (interface{}, error) { return struct{}{}, nil }

	require.NoError(t, s.Register("interfaces", handler))
	require.NoError(t, s.Register("ping", handler))

	t.Run("duplicate method", func(t *testing.T) {
		err := s.Register("interfaces", handler)
		require.ErrorIs(t, err, errMethodRegistered)
	})

	t.Run("empty method", func(t *testing.T) {
		err := s.Register("", handler)
		require.ErrorIs(t, err, errEmptyMethod)
	})

	assert.ElementsMatch(t, []string{"interfaces", "ping"}, s.Methods())
}

func TestNewServerRequiresAddress(t *testing.T) {
	_, err := NewServer("")
	require.ErrorIs(t, err, errAddressRequired)
}

func TestStartWithoutMethods(t *testing.T) {
	s, err := NewServer("nats://localhost:4222")
	require.NoError(t, err)

	err = s.Start(context.Background())
	require.ErrorIs(t, err, errNoMethods)
}

func TestNewClientRequiresAddress(t *testing.T) {
	_, err := NewClient("")
	require.ErrorIs(t, err, errAddressRequired)
}

func TestClientCallRequiresConnection(t *testing.T) {
	c := &Client{prefix: "compdata"}

	err := c.Call(context.Background(), "interfaces", nil, nil)
	require.ErrorIs(t, err, errNotConnected)
}

func TestNewClientFromConnRequiresConn(t *testing.T) {
	_, err := NewClientFromConn(nil)
	require.ErrorIs(t, err, errNotConnected)
}
