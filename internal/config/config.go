// Package config holds the compiled-in defaults for one server process
// and the flag surface that overrides them, following
// lanikai-alohartc's use of github.com/spf13/pflag for its daemon's CLI.
package config

import "github.com/spf13/pflag"

// Config is the full set of tunables for one server process. Field names
// mirror the compiled-in constants the daemon treats as its reference
// defaults.
type Config struct {
	TargetFPS      int
	BitrateKbps    int
	MaxClients     int
	HardwareEncode bool
	JPEGOnly       bool
	AudioEnabled   bool
	AudioSampleHz  int
	AudioChannels  int

	CaptureQueueCapacity int
	EncodeQueueCapacity  int
	AudioQueueCapacity   int

	VideoPort  int
	HealthPort int
	Display    string
}

// Default returns the reference configuration: fps=60, bitrate tuned for
// 1080p60 low-latency streaming, max 4 clients, HardwareEncode on,
// H.264 with JPEG fallback, audio on at 48kHz stereo, and
// tight-realtime queue sizing (capacity 3).
func Default() Config {
	return Config{
		TargetFPS:            60,
		BitrateKbps:          8000,
		MaxClients:           4,
		HardwareEncode:       true,
		JPEGOnly:             false,
		AudioEnabled:         true,
		AudioSampleHz:        48000,
		AudioChannels:        2,
		CaptureQueueCapacity: 3,
		EncodeQueueCapacity:  3,
		AudioQueueCapacity:   200,
		VideoPort:            9000,
		HealthPort:           80,
		Display:              ":0",
	}
}

// BindFlags registers c's fields on fs, defaulting to whatever c already
// holds (normally the result of Default()).
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.IntVar(&c.TargetFPS, "fps", c.TargetFPS, "target capture/encode frame rate")
	fs.IntVar(&c.BitrateKbps, "bitrate", c.BitrateKbps, "target video bitrate in kbps")
	fs.IntVar(&c.MaxClients, "max-clients", c.MaxClients, "maximum concurrent viewer sessions")
	fs.BoolVar(&c.HardwareEncode, "hardware-encode", c.HardwareEncode, "hardware H.264 encoder preference; the encoder cascade tries hardware encoders before software whatever this is set to")
	fs.BoolVar(&c.JPEGOnly, "jpeg-only", c.JPEGOnly, "skip H.264 entirely and encode every frame as JPEG")
	fs.BoolVar(&c.AudioEnabled, "audio", c.AudioEnabled, "capture and stream loopback audio")
	fs.IntVar(&c.AudioSampleHz, "audio-rate", c.AudioSampleHz, "audio sample rate in Hz")
	fs.IntVar(&c.AudioChannels, "audio-channels", c.AudioChannels, "audio channel count")
	fs.IntVar(&c.CaptureQueueCapacity, "capture-queue", c.CaptureQueueCapacity, "capture stage queue capacity")
	fs.IntVar(&c.EncodeQueueCapacity, "encode-queue", c.EncodeQueueCapacity, "encode stage queue capacity")
	fs.IntVar(&c.AudioQueueCapacity, "audio-queue", c.AudioQueueCapacity, "audio stage queue capacity")
	fs.IntVar(&c.VideoPort, "video-port", c.VideoPort, "port serving the /ws media session")
	fs.IntVar(&c.HealthPort, "health-port", c.HealthPort, "port serving the GET / health check")
	fs.StringVar(&c.Display, "display", c.Display, "X11 display to capture")
}
