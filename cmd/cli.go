// SPDX-License-Identifier: MIT
package cmd

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"audiopipe/internal/config"
	"audiopipe/pkg/build"
)

// Options is the parsed command line: the stream configuration plus the
// run-mode choices that live outside it.
type Options struct {
	Config *config.Config

	Command   string // one-off command ("list"), empty for normal runs
	InputFile string // analyze a WAV file instead of a capture device
	ToneFreq  float64 // synthesize a test tone instead of capturing, 0 = off
	Verbose   bool
}

// ParseArgs builds the runtime Options from a config file, environment
// overrides and command line flags, in that precedence order.
func ParseArgs() (*Options, error) {
	buildInfo := build.GetBuildFlags()
	options := &Options{}

	var (
		configPath string
		flagCfg    = config.NewConfig()
		record     bool
		outputFile string
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}

			// Explicit flags win over the file and the environment.
			flags := cmd.Flags()
			if flags.Changed("device") {
				cfg.DeviceID = flagCfg.DeviceID
			}
			if flags.Changed("channels") {
				cfg.Channels = flagCfg.Channels
			}
			if flags.Changed("sample-rate") {
				cfg.SampleRate = flagCfg.SampleRate
			}
			if flags.Changed("chunk-size") {
				cfg.ChunkSize = flagCfg.ChunkSize
			}
			if flags.Changed("buffer-capacity") {
				cfg.BufferCapacity = flagCfg.BufferCapacity
			}
			if flags.Changed("auto-gain") {
				cfg.AutoGain = flagCfg.AutoGain
			}
			if flags.Changed("target-rms") {
				cfg.TargetRMS = flagCfg.TargetRMS
			}
			if flags.Changed("overflow") {
				cfg.Overflow = flagCfg.Overflow
			}
			if flags.Changed("window") {
				cfg.Window = flagCfg.Window
			}
			if flags.Changed("low-latency") {
				cfg.LowLatency = flagCfg.LowLatency
				if cfg.LowLatency {
					cfg.ChunkSize = 512
					if flags.Changed("chunk-size") {
						cfg.ChunkSize = flagCfg.ChunkSize
					}
					cfg.BufferCapacity = config.DefaultBufferChunks * cfg.ChunkSize
				}
			}
			if flags.Changed("ws") {
				cfg.Transport.WebSocketEnabled = true
				cfg.Transport.WebSocketAddr = flagCfg.Transport.WebSocketAddr
			}
			if flags.Changed("udp") {
				cfg.Transport.UDPEnabled = true
				cfg.Transport.UDPTargetAddress = flagCfg.Transport.UDPTargetAddress
			}
			if record {
				cfg.Recording.Enabled = true
				cfg.Recording.Path = outputFile
			}
			if options.Verbose {
				cfg.LogLevel = "debug"
			}

			options.Config = cfg
			return cfg.Validate()
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio input devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	// Stream configuration
	rootCmd.Flags().IntVarP(&flagCfg.DeviceID, "device", "d", config.DefaultDeviceID,
		"Input device ID. Use 'list' command to see available devices.")
	rootCmd.Flags().IntVarP(&flagCfg.Channels, "channels", "c", config.DefaultChannels,
		"Number of channels to capture (1=mono, 2=stereo)")
	rootCmd.Flags().IntVarP(&flagCfg.SampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rootCmd.Flags().IntVarP(&flagCfg.ChunkSize, "chunk-size", "b", config.DefaultChunkSize,
		"Samples per analysis chunk, power of 2 (affects latency)")
	rootCmd.Flags().IntVar(&flagCfg.BufferCapacity, "buffer-capacity", config.DefaultBufferChunks*config.DefaultChunkSize,
		"Ring buffer capacity, in samples")
	rootCmd.Flags().BoolVarP(&flagCfg.LowLatency, "low-latency", "l", false,
		"Use the low latency preset (512 sample chunks)")
	rootCmd.Flags().StringVar(&flagCfg.Overflow, "overflow", config.OverflowOverwrite,
		"Ring overflow policy: overwrite (keep newest) or reject (keep oldest)")
	rootCmd.Flags().StringVarP(&flagCfg.Window, "window", "w", "hann",
		"FFT window function: hann, hamming, blackman or nuttall")

	// Gain control
	rootCmd.Flags().BoolVarP(&flagCfg.AutoGain, "auto-gain", "g", false,
		"Enable automatic gain control on the capture path")
	rootCmd.Flags().Float64Var(&flagCfg.TargetRMS, "target-rms", config.DefaultTargetRMS,
		"AGC target RMS level, (0,1]")

	// Sources other than a live device
	rootCmd.Flags().StringVarP(&options.InputFile, "file", "f", "",
		"Analyze a WAV file instead of capturing from a device")
	rootCmd.Flags().Float64VarP(&options.ToneFreq, "tone", "t", 0,
		"Synthesize a test tone at the given frequency instead of capturing")

	// Feature publishing
	rootCmd.Flags().StringVar(&flagCfg.Transport.WebSocketAddr, "ws", ":8080",
		"Broadcast feature records as JSON over WebSocket on this address")
	rootCmd.Flags().StringVar(&flagCfg.Transport.UDPTargetAddress, "udp", "127.0.0.1:9090",
		"Send binary feature packets over UDP to this address")

	// Recording
	rootCmd.Flags().BoolVarP(&record, "record", "r", false,
		"Archive the captured audio to a WAV file while analyzing")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "",
		"Recording file name. Default is recording-MM-DD-YYYY-HHMMSS.wav")

	rootCmd.Flags().StringVar(&configPath, "config", "",
		"Path to a YAML configuration file")
	rootCmd.Flags().BoolVarP(&options.Verbose, "verbose", "v", false,
		"Show verbose output")

	if outputFile == "" {
		outputFile = "recording-" +
			time.Now().UTC().Format("02-01-2006-150405") + ".wav"
	}

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	// One-off commands skip RunE, so the config may still be unset.
	if options.Config == nil {
		options.Config = config.NewConfig()
	}
	return options, nil
}
