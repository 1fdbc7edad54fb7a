package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jfreymuth/pulse"
)

// Sink describes one Pulse output sink surfaced to narrator.
type Sink struct {
	ID          string
	Description string
	SampleRate  int
	Default     bool
}

// ListDevices returns available Pulse output sinks with the default marked.
func ListDevices(_ context.Context) ([]Sink, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	defaultSink, err := client.DefaultSink()
	if err != nil {
		return nil, fmt.Errorf("read default sink: %w", err)
	}
	defaultID := defaultSink.ID()

	sinks, err := client.ListSinks()
	if err != nil {
		return nil, fmt.Errorf("list sinks: %w", err)
	}

	devices := make([]Sink, 0, len(sinks))
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		devices = append(devices, Sink{
			ID:          sink.ID(),
			Description: sink.Name(),
			SampleRate:  sink.SampleRate(),
			Default:     sink.ID() == defaultID,
		})
	}
	return devices, nil
}

// SelectSink resolves the audio.sink preference against live sinks.
func SelectSink(ctx context.Context, want string) (Sink, error) {
	sinks, err := ListDevices(ctx)
	if err != nil {
		return Sink{}, err
	}
	return selectSinkFromList(sinks, want)
}

// selectSinkFromList applies selection policy to a pre-fetched sink list.
func selectSinkFromList(sinks []Sink, want string) (Sink, error) {
	if len(sinks) == 0 {
		return Sink{}, errors.New("no audio output sinks found")
	}

	want = strings.TrimSpace(strings.ToLower(want))
	if want == "" || want == "default" {
		for _, sink := range sinks {
			if sink.Default {
				return sink, nil
			}
		}
		return Sink{}, errors.New("default audio sink is unavailable")
	}

	for _, sink := range sinks {
		if sinkMatches(sink, want) {
			return sink, nil
		}
	}
	return Sink{}, fmt.Errorf("audio.sink %q did not match any sink", want)
}

// sinkMatches reports whether a search term matches a sink id or description.
func sinkMatches(sink Sink, term string) bool {
	if term == "" {
		return false
	}
	id := strings.ToLower(sink.ID)
	desc := strings.ToLower(sink.Description)
	return strings.Contains(id, term) || strings.Contains(desc, term)
}

// PulseDevice opens stereo 16-bit 44.1kHz playback streams on a Pulse server.
type PulseDevice struct {
	// Sink is a sink name or search term; empty plays on the server default.
	Sink string
}

// Open connects to Pulse and prepares a playback stream pulling from stage.
func (d PulseDevice) Open(stage Stage) (Output, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}

	opts := []pulse.PlaybackOption{
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(SampleRate),
		pulse.PlaybackLatency(0.05),
		pulse.PlaybackMediaName("narrator error cue"),
	}
	if want := strings.TrimSpace(d.Sink); want != "" && !strings.EqualFold(want, "default") {
		sink, err := resolveSink(client, want)
		if err != nil {
			client.Close()
			return nil, err
		}
		opts = append(opts, pulse.PlaybackSink(sink))
	}

	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		n, err := stage.ReadSamples(buf)
		if errors.Is(err, io.EOF) {
			return n, pulse.EndOfData
		}
		return n, err
	})

	stream, err := client.NewPlayback(reader, opts...)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create pulse playback stream: %w", err)
	}

	return &pulseOutput{
		client: client,
		stream: stream,
		closed: make(chan struct{}),
	}, nil
}

// resolveSink looks want up by exact sink name first, then by id/description match.
func resolveSink(client *pulse.Client, want string) (*pulse.Sink, error) {
	if sink, err := client.SinkByID(want); err == nil {
		return sink, nil
	}
	sinks, err := client.ListSinks()
	if err != nil {
		return nil, fmt.Errorf("list sinks: %w", err)
	}
	term := strings.ToLower(want)
	for _, sink := range sinks {
		if sink != nil && sinkMatches(Sink{ID: sink.ID(), Description: sink.Name()}, term) {
			return sink, nil
		}
	}
	return nil, fmt.Errorf("audio.sink %q did not match any sink", want)
}

// DeviceFunc adapts a function to Device.
type DeviceFunc func(stage Stage) (Output, error)

func (f DeviceFunc) Open(stage Stage) (Output, error) {
	return f(stage)
}

type pulseOutput struct {
	client *pulse.Client
	stream *pulse.PlaybackStream

	closeOnce sync.Once
	closed    chan struct{}
}

func (o *pulseOutput) Start() {
	o.stream.Start()
}

func (o *pulseOutput) Wait() error {
	drained := make(chan struct{})
	go func() {
		o.stream.Drain()
		close(drained)
	}()

	select {
	case <-drained:
		if err := o.stream.Error(); err != nil {
			return fmt.Errorf("play cue stream: %w", err)
		}
		return nil
	case <-o.closed:
		return nil
	}
}

func (o *pulseOutput) Close() error {
	o.closeOnce.Do(func() {
		close(o.closed)
		o.stream.Stop()
		o.stream.Close()
		o.client.Close()
	})
	return nil
}

func newClient() (*pulse.Client, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("narrator"),
		pulse.ClientApplicationIconName("dialog-error"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	return client, nil
}
