// Package main provides the entry point for the readaloud CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/readaloud/extract"
	"github.com/dgnsrekt/readaloud/internal/audio"
	"github.com/dgnsrekt/readaloud/internal/cache"
	"github.com/dgnsrekt/readaloud/playback"
	"github.com/dgnsrekt/readaloud/render"
	"github.com/dgnsrekt/readaloud/settings"
	"github.com/dgnsrekt/readaloud/synth"
	"github.com/dgnsrekt/readaloud/transport"
	"github.com/dgnsrekt/readaloud/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	engineName string
	voiceName  string
	speed      float64
	plain      bool
	exportWAV  string
	debug      bool

	rootCmd = &cobra.Command{
		Use:           "readaloud [FILE]",
		Short:         "Read markdown aloud with word-level highlighting",
		SilenceErrors: false,
		SilenceUsage:  true,
		Args:          cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLog()
		},
		RunE: execute,
	}
)

func execute(cmd *cobra.Command, args []string) error {
	source, title, err := readSource(args)
	if err != nil {
		return err
	}

	cfg, err := playback.LoadConfigFromViper()
	if err != nil {
		return err
	}
	if err := playback.ApplyEnvOverrides(&cfg); err != nil {
		return err
	}
	applyFlagOverrides(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	synthesizer, closeSynth, err := buildSynthesizer(cfg)
	if err != nil {
		return err
	}
	defer closeSynth()

	sink, otoSink, err := buildSink()
	if err != nil {
		return err
	}
	defer sink.Close() //nolint:errcheck

	bus := transport.NewBus()
	defer bus.Close()

	extractor := extract.NewMarkdownExtractor()

	// The displayed text must be the same extraction the timeline is
	// built from, so word indices line up.
	doc, err := extractor.Extract(ctx, source)
	if err != nil {
		return err
	}
	if doc.Title != "" {
		title = doc.Title
	}

	orch := playback.NewOrchestrator(extractor, synthesizer, sink, bus, cfg)
	defer orch.Close() //nolint:errcheck
	go orch.ListenControl(ctx)

	// Speed changes in the config file apply to the next synthesis
	// without a restart.
	provider := settings.NewProvider(configFile, settings.Settings{
		Voice: cfg.Voice,
		Speed: cfg.Speed,
	})
	provider.OnChange(func(s settings.Settings) {
		synthesizer.SetSpeed(s.Speed)
	})
	if err := provider.Watch(); err != nil {
		log.Debug("settings watch unavailable", "error", err)
	}
	defer provider.Close() //nolint:errcheck

	// Subscriptions go up before playback starts so the first state
	// broadcasts are not missed.
	if plain {
		states := bus.Subscribe(playback.TopicState)
		defer states.Close()
		go render.Listen(ctx, bus, newWordEcho(doc.Text))

		if err := orch.Play(ctx, source); err != nil {
			return err
		}
		return runPlain(states, otoSink)
	}

	model := ui.NewModel(title, doc.Text, bus, cfg.HighlightColor)
	if err := orch.Play(ctx, source); err != nil {
		return err
	}
	return runTUI(model, otoSink)
}

// applyFlagOverrides layers explicitly passed flags over the loaded config.
func applyFlagOverrides(cmd *cobra.Command, cfg *playback.Config) {
	if cmd.Flags().Changed("engine") {
		cfg.Engine = engineName
	}
	if cmd.Flags().Changed("voice") {
		cfg.Voice = voiceName
	}
	if cmd.Flags().Changed("speed") {
		cfg.Speed = speed
	}
}

// readSource loads the markdown to read, from the argument or stdin.
func readSource(args []string) (content, title string, err error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("unable to read from stdin: %w", err)
		}
		if len(b) == 0 {
			return "", "", errors.New("missing markdown source")
		}
		return string(b), "stdin", nil
	}

	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", fmt.Errorf("unable to open file: %w", err)
	}
	return string(b), filepath.Base(args[0]), nil
}

// buildSynthesizer assembles the synthesis chain: engine, piper-to-mock
// fallback, and the audio cache.
func buildSynthesizer(cfg playback.Config) (synth.Synthesizer, func(), error) {
	var engine synth.Synthesizer
	switch cfg.Engine {
	case "mock":
		engine = synth.NewMockSynthesizer()
	case "piper":
		piper, err := synth.NewPiperSynthesizer(synth.PiperConfig{
			Binary:    cfg.PiperBinary,
			ModelPath: cfg.PiperModel,
			Speed:     cfg.Speed,
		})
		if err != nil {
			log.Warn("piper unavailable, using mock engine", "error", err)
			engine = synth.NewMockSynthesizer()
			break
		}
		engine = synth.NewFallbackSynthesizer(piper, synth.NewMockSynthesizer(), 3)
	default:
		return nil, nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
	engine.SetSpeed(cfg.Speed)

	if !cfg.CacheEnabled {
		return engine, func() {}, nil
	}

	dir := cfg.CacheDir
	if dir == "" {
		userCache, err := os.UserCacheDir()
		if err != nil {
			return engine, func() {}, nil
		}
		dir = filepath.Join(userCache, "readaloud")
	}
	store, err := cache.NewManager(cache.DefaultConfig(dir))
	if err != nil {
		log.Warn("audio cache unavailable", "dir", dir, "error", err)
		return engine, func() {}, nil
	}
	return synth.NewCachedSynthesizer(engine, store), func() {
		if err := store.Close(); err != nil {
			log.Debug("error closing audio cache", "error", err)
		}
	}, nil
}

// buildSink creates the audio output, optionally teeing to a WAV file.
func buildSink() (audio.Sink, *audio.OtoSink, error) {
	oto := audio.NewOtoSink()
	if exportWAV == "" {
		return oto, oto, nil
	}
	return audio.NewCaptureSink(oto, exportWAV), oto, nil
}

func runTUI(model ui.Model, oto *audio.OtoSink) error {
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	oto.Drain(2 * time.Second)
	return nil
}

// runPlain plays without the TUI, blocking until playback ends.
func runPlain(states *transport.Subscription, oto *audio.OtoSink) error {
	for msg := range states.C() {
		sc, ok := msg.Payload.(playback.StateChangedMsg)
		if !ok || sc.State != playback.StateStopped {
			continue
		}
		fmt.Println()
		if sc.Reason != "complete" && sc.Reason != "stopped" {
			return errors.New(sc.Reason)
		}
		oto.Drain(2 * time.Second)
		return nil
	}
	return nil
}

// wordEcho prints each highlighted word on one overwritten line.
type wordEcho struct {
	renderer *render.TerminalRenderer
}

func newWordEcho(content string) *wordEcho {
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	return &wordEcho{renderer: render.NewTerminalRenderer(content, width, 1, "212")}
}

func (w *wordEcho) HighlightWord(index int) {
	w.renderer.HighlightWord(index)
	if word, ok := w.renderer.Word(index); ok {
		fmt.Printf("\r\033[K%s", word)
	}
}

func (w *wordEcho) ScrollToWord(int) {}

func (w *wordEcho) Reset() {
	fmt.Print("\r\033[K")
}

func setupLog() error {
	if debug {
		log.SetLevel(log.DebugLevel)
	}

	// In TUI mode logs would corrupt the screen, so they go to a file
	// when requested and are discarded otherwise.
	if path := os.Getenv("READALOUD_LOGFILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("unable to open log file: %w", err)
		}
		log.SetOutput(f)
		return nil
	}
	if !plain {
		log.SetOutput(io.Discard)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&engineName, "engine", "e", "", "speech engine (piper or mock)")
	rootCmd.Flags().StringVar(&voiceName, "voice", "", "voice or speaker name")
	rootCmd.Flags().Float64Var(&speed, "speed", 1.0, "speaking rate multiplier")
	rootCmd.Flags().BoolVarP(&plain, "plain", "p", false, "play without the full-screen reader")
	rootCmd.Flags().StringVar(&exportWAV, "export-wav", "", "also write the generated audio to a WAV file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	_ = viper.BindPFlag("readaloud.engine", rootCmd.Flags().Lookup("engine"))
	_ = viper.BindPFlag("readaloud.voice", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	playback.SetDefaults()

	rootCmd.AddCommand(configCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "readaloud")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "readaloud")}, dirs...)
	}

	if c := os.Getenv("READALOUD_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("readaloud")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("readaloud")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		configFile = used
		return
	}

	configFile = filepath.Join(dirs[0], "readaloud.yml")
}
