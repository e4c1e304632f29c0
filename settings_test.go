package retryconn

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/retryconn/internal/testutils"
)

func TestSettingsApplyOrder(t *testing.T) {
	mock := testutils.NewConnMock()

	err := Settings{NoDelay: true, KeepAlive: 30 * time.Second}.apply(mock)
	require.NoError(t, err)
	assert.Equal(t, []string{"nodelay=true", "keepalive=on", "keepaliveperiod=30s"}, mock.SettingsCalls)
}

func TestSettingsApplyDisablesKeepAlive(t *testing.T) {
	mock := testutils.NewConnMock()

	err := Settings{}.apply(mock)
	require.NoError(t, err)
	assert.Equal(t, []string{"nodelay=false", "keepalive=off"}, mock.SettingsCalls)
}

func TestSettingsApplyStopsOnNoDelayError(t *testing.T) {
	mock := testutils.NewConnMock()
	mock.NoDelayErr = errors.New("setsockopt: bad file descriptor")

	err := Settings{NoDelay: true, KeepAlive: time.Minute}.apply(mock)
	require.Error(t, err)
	assert.Empty(t, mock.SettingsCalls)
}

func TestApplyKeepAliveNegativeDisables(t *testing.T) {
	mock := testutils.NewConnMock()

	require.NoError(t, applyKeepAlive(mock, -time.Second))
	assert.Equal(t, []string{"keepalive=off"}, mock.SettingsCalls)
}
