package main

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/briangreenhill/recogateway/internal/config"
)

func TestRunRefusesEmptyLinkSecret(t *testing.T) {
	err := run(&config.Config{}, zerolog.Nop())
	assert.ErrorIs(t, err, config.ErrNoLinkSecret)
}
