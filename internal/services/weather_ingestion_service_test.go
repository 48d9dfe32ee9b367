package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeatherRow(t *testing.T) {
	obs, err := parseWeatherRow([]string{"2019-07-04", "0.12", "78.5", "91.0", "66.2"})
	require.NoError(t, err)

	assert.Equal(t, "2019-07-04", obs.Date.String())
	require.NotNil(t, obs.Precipitation)
	assert.InDelta(t, 0.12, *obs.Precipitation, 1e-9)
	require.NotNil(t, obs.TempMax)
	assert.InDelta(t, 91.0, *obs.TempMax, 1e-9)
}

func TestParseWeatherRow_EmptyCellsBecomeNull(t *testing.T) {
	obs, err := parseWeatherRow([]string{"2019-07-04", "", "78.5", "", " "})
	require.NoError(t, err)

	assert.Nil(t, obs.Precipitation)
	require.NotNil(t, obs.TempAvg)
	assert.Nil(t, obs.TempMax)
	assert.Nil(t, obs.TempMin)
}

func TestParseWeatherRow_BadData(t *testing.T) {
	_, err := parseWeatherRow([]string{"07/04/2019", "0.12", "78.5", "91.0", "66.2"})
	assert.Error(t, err)

	_, err = parseWeatherRow([]string{"2019-07-04", "trace", "78.5", "91.0", "66.2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "precipitation")
}
