package audio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectSinkFromListDefault(t *testing.T) {
	sinks := []Sink{
		{ID: "alsa_output.pci-analog", Description: "Built-in Audio", Default: true},
		{ID: "bluez_sink.headphones", Description: "Sony WH-1000XM6"},
	}

	sink, err := selectSinkFromList(sinks, "")
	require.NoError(t, err)
	require.Equal(t, "alsa_output.pci-analog", sink.ID)

	sink, err = selectSinkFromList(sinks, "default")
	require.NoError(t, err)
	require.Equal(t, "alsa_output.pci-analog", sink.ID)
}

func TestSelectSinkFromListByTerm(t *testing.T) {
	sinks := []Sink{
		{ID: "alsa_output.pci-analog", Description: "Built-in Audio", Default: true},
		{ID: "bluez_sink.headphones", Description: "Sony WH-1000XM6"},
	}

	sink, err := selectSinkFromList(sinks, "Sony")
	require.NoError(t, err)
	require.Equal(t, "bluez_sink.headphones", sink.ID)
}

func TestSelectSinkFromListFailures(t *testing.T) {
	_, err := selectSinkFromList(nil, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no audio output sinks")

	_, err = selectSinkFromList([]Sink{{ID: "a"}}, "default")
	require.Error(t, err)
	require.Contains(t, err.Error(), "default audio sink is unavailable")

	_, err = selectSinkFromList([]Sink{{ID: "a", Default: true}}, "missing")
	require.Error(t, err)
	require.Contains(t, err.Error(), "did not match")
}

func TestSinkMatchesByIDAndDescription(t *testing.T) {
	sink := Sink{ID: "alsa_output.usb-headset", Description: "USB Headset Analog"}
	require.True(t, sinkMatches(sink, "headset"))
	require.True(t, sinkMatches(sink, "usb headset"))
	require.False(t, sinkMatches(sink, "missing"))
	require.False(t, sinkMatches(sink, ""))
}

func TestListDevicesFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := ListDevices(context.Background())
	require.Error(t, err)
}

func TestPulseDeviceOpenFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	stage := &fakeStage{}
	_, err := PulseDevice{}.Open(stage)
	require.Error(t, err)
	require.Contains(t, err.Error(), "connect pulse server")
}
