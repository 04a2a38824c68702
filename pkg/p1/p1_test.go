package p1

import (
	"bufio"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/NotCoffee418/esm_costs/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleLines = []string{
	`/FLU5\253770234_A`,
	``,
	`0-0:96.1.4(50217)`,
	`0-0:96.1.1(3153414731313030303037313930)`,
	`0-0:1.0.0(240301143015W)`,
	`1-0:1.8.1(000123.456*kWh)`,
	`1-0:1.8.2(000654.321*kWh)`,
	`1-0:2.8.1(000010.000*kWh)`,
	`1-0:2.8.2(000005.500*kWh)`,
	`0-0:96.14.0(0002)`,
	`1-0:1.7.0(00.512*kW)`,
	`1-0:2.7.0(00.000*kW)`,
	`1-0:21.7.0(00.512*kW)`,
	`1-0:32.7.0(231.4*V)`,
	`1-0:31.7.0(002.21*A)`,
	`0-0:96.3.10(1)`,
	`0-1:24.1.0(003)`,
	`0-1:96.1.1(37464C4F32313139303333373333)`,
	`0-1:24.4.0(1)`,
	`0-1:24.2.3(240301143000W)(01234.567*m3)`,
}

// Checksum computed independently for the lines above.
var sampleTelegram = strings.Join(sampleLines, "\r\n") + "\r\n!4FB9\r\n"

func TestValidateCRC(t *testing.T) {
	assert.True(t, ValidateCRC(sampleTelegram))
	assert.True(t, ValidateCRC(strings.Replace(sampleTelegram, "!4FB9", "!4fb9", 1)))
	assert.False(t, ValidateCRC(strings.Replace(sampleTelegram, "000123.456", "000123.457", 1)))
	assert.False(t, ValidateCRC(strings.Replace(sampleTelegram, "!4FB9", "!4F", 1)))
	assert.False(t, ValidateCRC("no terminator"))
}

func TestParseTelegram(t *testing.T) {
	reading, err := ParseTelegram(sampleTelegram)
	require.NoError(t, err)

	cet := time.FixedZone("CET", 3600)
	assert.True(t, reading.Timestamp.Equal(time.Date(2024, 3, 1, 14, 30, 15, 0, cet)))
	assert.Equal(t, 123.456, reading.TotalConsumptionDayKWH)
	assert.Equal(t, 654.321, reading.TotalConsumptionNightKWH)
	assert.Equal(t, 10.0, reading.TotalProductionDayKWH)
	assert.Equal(t, 5.5, reading.TotalProductionNightKWH)
	assert.Equal(t, 0.512, reading.CurrentConsumptionKW)
	assert.Equal(t, 0.512, reading.L1ConsumptionKW)
	assert.Equal(t, 231.4, reading.L1VoltageV)
	assert.Equal(t, 2.21, reading.L1CurrentA)
	assert.Equal(t, 2, reading.CurrentTariff)
	assert.Equal(t, 1, reading.SwitchElectricity)
	assert.Equal(t, 1, reading.SwitchGas)
	assert.Equal(t, 1234.567, reading.GasConsumptionM3)
	assert.Equal(t, "1SAG1100007190", reading.MeterSerialElectricity)
	assert.Equal(t, "7FLO2119033733", reading.MeterSerialGas)
}

func TestParseTelegramSummerTime(t *testing.T) {
	telegram := withCRC("/XMX5\r\n0-0:1.0.0(240701120000S)\r\n1-0:1.8.1(000001.000*kWh)\r\n")
	reading, err := ParseTelegram(telegram)
	require.NoError(t, err)
	assert.True(t, reading.Timestamp.Equal(time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)))
	assert.Empty(t, reading.MeterSerialGas)
}

func TestParseTelegramInvalidCRC(t *testing.T) {
	_, err := ParseTelegram(strings.Replace(sampleTelegram, "!4FB9", "!0000", 1))
	assert.ErrorIs(t, err, ErrInvalidCRC)
}

func TestReadTelegramSkipsPartialFrames(t *testing.T) {
	stream := "1-0:1.8.1(000001.000*kWh)\r\n!ABCD\r\n" + sampleTelegram + sampleTelegram
	r := bufio.NewReader(strings.NewReader(stream))

	first, err := ReadTelegram(r)
	require.NoError(t, err)
	assert.Equal(t, sampleTelegram, first)

	second, err := ReadTelegram(r)
	require.NoError(t, err)
	assert.Equal(t, sampleTelegram, second)

	_, err = ReadTelegram(r)
	assert.Error(t, err)

	_, err = ReadTelegram(nil)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestReadLoopStopsAfterConsecutiveErrors(t *testing.T) {
	retryDelay = time.Millisecond
	t.Cleanup(func() { retryDelay = time.Second })

	broken := strings.Replace(sampleTelegram, "!4FB9", "!0000", 1)
	stream := sampleTelegram + broken + sampleTelegram
	reader := NewReader("/dev/null", 115200, nil)

	var mu sync.Mutex
	var got []*types.MeterReading
	var wg sync.WaitGroup
	wg.Add(2)
	err := reader.readLoop(context.Background(), bufio.NewReader(strings.NewReader(stream)), func(r *types.MeterReading) {
		mu.Lock()
		got = append(got, r)
		mu.Unlock()
		wg.Done()
	})
	require.Error(t, err)
	wg.Wait()

	assert.Len(t, got, 2)
	require.NotNil(t, reader.Latest())
	assert.Equal(t, 123.456, reader.Latest().TotalConsumptionDayKWH)
}

func TestReadLoopHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reader := NewReader("/dev/null", 115200, nil)
	err := reader.readLoop(ctx, bufio.NewReader(strings.NewReader(sampleTelegram)), func(*types.MeterReading) {
		t.Error("no reading expected after cancel")
	})
	assert.NoError(t, err)
	assert.Nil(t, reader.Latest())
}

func withCRC(body string) string {
	data := body + "!"
	return data + strings.ToUpper(crcHex(data)) + "\r\n"
}

func crcHex(data string) string {
	var crc uint16
	for _, b := range []byte(data) {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	const digits = "0123456789ABCDEF"
	return string([]byte{digits[crc>>12], digits[crc>>8&0xF], digits[crc>>4&0xF], digits[crc&0xF]})
}
