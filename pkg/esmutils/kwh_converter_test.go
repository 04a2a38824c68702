package esmutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnergyConversions(t *testing.T) {
	assert.Equal(t, uint32(12345678), KwhToWh(12345.678))
	assert.Equal(t, uint32(0), KwhToWh(-1))
	assert.InDelta(t, 12345.678, WhToKwh(12345678), 1e-9)
}

func TestGasConversions(t *testing.T) {
	assert.Equal(t, uint32(4567891), M3ToDM3(4567.891))
	assert.Equal(t, uint32(0), M3ToDM3(-0.5))
	assert.InDelta(t, 4567.891, DM3ToM3(4567891), 1e-9)
}
