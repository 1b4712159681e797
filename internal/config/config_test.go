package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRejectsBadPorts(t *testing.T) {
	for _, port := range []int{0, -1, 65536} {
		c := &Config{Bind: "0.0.0.0", Port: port}
		assert.Error(t, c.Validate(), "port %d", port)
	}

	c := &Config{Bind: "0.0.0.0", Port: 8765}
	assert.NoError(t, c.Validate())
}

func TestAddrJoinsHostAndPort(t *testing.T) {
	c := &Config{Bind: "127.0.0.1", Port: 8765}
	assert.Equal(t, "127.0.0.1:8765", c.Addr())
}
