package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"auralis/config"
	"auralis/logger"
	"auralis/playback"
	"auralis/spatial"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool

	toneFreq     float64
	toneDuration time.Duration
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "auralis [file]",
	Short: "Spatialized audio playback",
	Long: `Auralis plays queued audio between a movable 3D emitter and the
listener's two ears, re-panning the running stream as positions change.

Without a subcommand it decodes the given file (wav, mp3 or ogg),
appends it to a spatial sink and orbits the emitter around the listener
until the queue drains. With --tone a generated sine wave is played
instead of a file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlay,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Playback flags, shared with the render subcommand
	rootCmd.PersistentFlags().Int("sample-rate", 44100, "output sample rate in Hz")
	rootCmd.PersistentFlags().Duration("buffer", 100*time.Millisecond, "speaker buffer length")
	rootCmd.PersistentFlags().Float64("radius", 5, "orbit radius around the listener")
	rootCmd.PersistentFlags().Duration("period", 4*time.Second, "time for one full orbit")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().Float64Var(&toneFreq, "tone", 0, "play a sine tone at this frequency instead of a file")
	rootCmd.PersistentFlags().DurationVar(&toneDuration, "tone-duration", 5*time.Second, "length of the generated tone")

	// Bind flags to viper
	viper.BindPFlag("audio.sample_rate", rootCmd.PersistentFlags().Lookup("sample-rate"))
	viper.BindPFlag("audio.buffer", rootCmd.PersistentFlags().Lookup("buffer"))
	viper.BindPFlag("orbit.radius", rootCmd.PersistentFlags().Lookup("radius"))
	viper.BindPFlag("orbit.period", rootCmd.PersistentFlags().Lookup("period"))
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if verbose {
		viper.Set("logging.level", "debug")
	}
}

// runPlay plays the given source through the speakers while orbiting
// the emitter around the listener.
func runPlay(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	// Setup logging
	if err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	if len(args) == 0 && toneFreq == 0 {
		return fmt.Errorf("need an audio file or --tone")
	}

	sampleRate := beep.SampleRate(cfg.Audio.SampleRate)
	stream, err := playback.OpenSpeaker(sampleRate, cfg.Audio.Buffer)
	if err != nil {
		return err
	}
	defer stream.Close()

	// The listener faces -z with ears a unit apart on the x axis.
	sink, err := spatial.NewSink(stream,
		spatial.Vec3{0, 0, 0}, spatial.Vec3{-0.5, 0, 0}, spatial.Vec3{0.5, 0, 0})
	if err != nil {
		return fmt.Errorf("failed to create sink: %w", err)
	}

	log := logger.WithComponent("play")

	if toneFreq > 0 {
		tone, err := generators.SineTone(sampleRate, toneFreq)
		if err != nil {
			return fmt.Errorf("failed to generate tone: %w", err)
		}
		sink.Append(beep.Take(sampleRate.N(toneDuration), tone))
		log.Info("playing tone", slog.Float64("freq", toneFreq), slog.Duration("duration", toneDuration))
	} else {
		streamer, format, err := openSource(args[0])
		if err != nil {
			return err
		}
		defer streamer.Close()
		sink.AppendFormat(format, streamer)
		log.Info("playing file", slog.String("file", args[0]))
	}

	stopOrbit := startOrbit(sink, cfg.Orbit)
	defer stopOrbit()

	done := make(chan struct{})
	go func() {
		sink.SleepUntilEnd()
		close(done)
	}()

	// Setup graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-done:
		log.Info("queue drained")
	case sig := <-signalChan:
		log.Info("stopping", slog.String("signal", sig.String()))
		sink.Stop()
	}

	return nil
}

// openSource decodes path according to its extension.
func openSource(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return wav.Decode(f)
	case ".mp3":
		return mp3.Decode(f)
	case ".ogg":
		return vorbis.Decode(f)
	default:
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("unsupported audio format: %s", path)
	}
}

// startOrbit moves the emitter in a circle around the listener in the
// horizontal plane. The returned func stops the orbit.
func startOrbit(sink *spatial.Sink, orbit config.OrbitConfig) func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		start := time.Now()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				sink.SetEmitterPosition(orbitPosition(now.Sub(start).Seconds(), orbit))
			}
		}
	}()
	return func() { close(stop) }
}
