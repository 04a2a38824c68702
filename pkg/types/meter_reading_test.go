package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeterReadingJson(t *testing.T) {
	r := &MeterReading{
		Timestamp:                time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		TotalConsumptionDayKWH:   100.5,
		TotalConsumptionNightKWH: 200.25,
		MeterSerialGas:           "G123",
	}
	back := MeterReadingFromJsonBytes(r.ToJsonBytes())
	require.NotNil(t, back)
	assert.True(t, r.Timestamp.Equal(back.Timestamp))
	assert.Equal(t, "G123", back.MeterSerialGas)
	assert.InDelta(t, 300.75, back.TotalConsumptionKWH(), 1e-9)

	assert.Nil(t, MeterReadingFromJsonBytes([]byte("not json")))
}
