package cmd

import (
	"fmt"
	"log/slog"
	"math"
	"os"

	"auralis/config"
	"auralis/logger"
	"auralis/spatial"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
	"github.com/spf13/cobra"
)

// Frames rendered per encoder write.
const renderBlock = 512

var renderOut string

// renderCmd represents the render command
var renderCmd = &cobra.Command{
	Use:   "render [file]",
	Short: "Render a spatialized orbit to a WAV file",
	Long: `Render decodes the given file (or generates a sine wave with --tone),
moves the emitter around the listener per the orbit configuration and
writes the spatialized result as 16-bit stereo WAV, faster than real
time and without an audio device.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "out.wav", "output WAV path")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := logger.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	sampleRate := beep.SampleRate(cfg.Audio.SampleRate)

	var src beep.Streamer
	switch {
	case toneFreq > 0:
		tone, err := generators.SineTone(sampleRate, toneFreq)
		if err != nil {
			return fmt.Errorf("failed to generate tone: %w", err)
		}
		src = beep.Take(sampleRate.N(toneDuration), tone)
	case len(args) == 1:
		streamer, format, err := openSource(args[0])
		if err != nil {
			return err
		}
		defer streamer.Close()
		src = streamer
		if format.SampleRate != sampleRate {
			src = beep.Resample(4, format.SampleRate, sampleRate, streamer)
		}
	default:
		return fmt.Errorf("need an audio file or --tone")
	}

	out, err := os.Create(renderOut)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", renderOut, err)
	}
	defer out.Close()

	enc := wav.NewEncoder(out, int(sampleRate), 16, 2, 1)

	leftEar := spatial.Vec3{-0.5, 0, 0}
	rightEar := spatial.Vec3{0.5, 0, 0}
	panner := spatial.NewPanner(src, orbitPosition(0, cfg.Orbit), leftEar, rightEar)

	buf := make([][2]float64, renderBlock)
	ibuf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: int(sampleRate)},
		Data:           make([]int, renderBlock*2),
		SourceBitDepth: 16,
	}

	rendered := 0
	for {
		// Rendered time stands in for the wall clock the live path uses.
		panner.SetPositions(orbitPosition(sampleRate.D(rendered).Seconds(), cfg.Orbit), leftEar, rightEar)

		n, ok := panner.Stream(buf)
		if n > 0 {
			ibuf.Data = ibuf.Data[:n*2]
			for i, f := range buf[:n] {
				ibuf.Data[i*2] = int(clampSample(f[0]) * 32767)
				ibuf.Data[i*2+1] = int(clampSample(f[1]) * 32767)
			}
			if err := enc.Write(ibuf); err != nil {
				return fmt.Errorf("failed to write samples: %w", err)
			}
			rendered += n
		}
		if !ok {
			break
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", renderOut, err)
	}

	logger.WithComponent("render").Info("rendered",
		slog.String("out", renderOut),
		slog.Duration("length", sampleRate.D(rendered)))
	return nil
}

// orbitPosition returns the emitter position t seconds into the orbit.
func orbitPosition(t float64, orbit config.OrbitConfig) spatial.Vec3 {
	angle := 2 * math.Pi * t / orbit.Period.Seconds()
	return spatial.Vec3{
		float32(orbit.Radius * math.Cos(angle)),
		0,
		float32(orbit.Radius * math.Sin(angle)),
	}
}

// clampSample limits s to [-1, 1] before integer conversion.
func clampSample(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
