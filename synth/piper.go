package synth

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// piperChunkTimeout bounds a single sentence's synthesis. A hung piper
// process must not stall the whole stream.
const piperChunkTimeout = 30 * time.Second

// PiperSynthesizer runs the piper neural TTS binary, one fresh process per
// sentence. Piper writes raw mono 16-bit PCM to stdout with --output-raw;
// stdin is pre-configured with the sentence text before the process starts
// so piper never races our write.
type PiperSynthesizer struct {
	binary     string
	modelPath  string
	configPath string
	sampleRate int

	mu    sync.Mutex
	speed float64
}

// PiperConfig configures a PiperSynthesizer.
type PiperConfig struct {
	// Binary is the piper executable name or path. Defaults to "piper".
	Binary string
	// ModelPath is the .onnx voice model path. Required.
	ModelPath string
	// ConfigPath is the model's JSON config. Defaults to ModelPath with
	// a .json extension.
	ConfigPath string
	// SampleRate must match the model's output rate. Defaults to 22050.
	SampleRate int
	// Speed is the initial speaking rate multiplier. Defaults to 1.0.
	Speed float64
}

// NewPiperSynthesizer validates the model path and returns the engine.
func NewPiperSynthesizer(cfg PiperConfig) (*PiperSynthesizer, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("%w: piper model path is required", ErrEngineUnavailable)
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: model file: %v", ErrEngineUnavailable, err)
	}
	if cfg.Binary == "" {
		cfg.Binary = "piper"
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = strings.TrimSuffix(cfg.ModelPath, filepath.Ext(cfg.ModelPath)) + ".json"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 22050
	}
	if cfg.Speed == 0 {
		cfg.Speed = 1.0
	}
	return &PiperSynthesizer{
		binary:     cfg.Binary,
		modelPath:  cfg.ModelPath,
		configPath: cfg.ConfigPath,
		sampleRate: cfg.SampleRate,
		speed:      cfg.Speed,
	}, nil
}

// Name implements Synthesizer.
func (p *PiperSynthesizer) Name() string { return "piper" }

// Available implements Synthesizer: the binary must resolve and run.
func (p *PiperSynthesizer) Available() bool {
	path, err := exec.LookPath(p.binary)
	if err != nil {
		return false
	}
	return exec.Command(path, "--version").Run() == nil
}

// SetSpeed implements Synthesizer. Chunks started after the call use the
// new rate; piper itself cannot change rate mid-process.
func (p *PiperSynthesizer) SetSpeed(speed float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if speed > 0 {
		p.speed = speed
	}
}

// Synthesize implements Synthesizer. Chunks carry no phoneme transcription;
// piper does not expose per-word phonemes over its CLI, so word timing falls
// back to letter-count weighting downstream.
func (p *PiperSynthesizer) Synthesize(ctx context.Context, text string, opts Options) (<-chan Event, error) {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil, ErrEmptyText
	}
	if opts.Speed > 0 {
		p.SetSpeed(opts.Speed)
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		for i, sentence := range sentences {
			samples, err := p.synthesizeSentence(ctx, sentence, opts.Voice)
			if err != nil {
				events <- Event{Kind: KindError, Err: err}
				return
			}
			chunk := &Chunk{
				Text:       sentence,
				Samples:    samples,
				SampleRate: p.sampleRate,
			}
			select {
			case events <- Event{Kind: KindChunk, Chunk: chunk}:
			case <-ctx.Done():
				events <- Event{Kind: KindError, Err: ctx.Err()}
				return
			}
			events <- Event{Kind: KindProgress, Progress: (i + 1) * 100 / len(sentences)}
		}
		events <- Event{Kind: KindDone}
	}()
	return events, nil
}

// synthesizeSentence runs one piper process and returns its raw PCM output.
func (p *PiperSynthesizer) synthesizeSentence(ctx context.Context, sentence, voice string) ([]byte, error) {
	p.mu.Lock()
	speed := p.speed
	p.mu.Unlock()

	// Piper expresses rate as a length scale, the inverse of speed.
	args := []string{
		"--model", p.modelPath,
		"--config", p.configPath,
		"--output-raw",
		"--length-scale", fmt.Sprintf("%.2f", 1.0/speed),
	}
	if voice != "" {
		args = append(args, "--speaker", voice)
	}

	ctx, cancel := context.WithTimeout(ctx, piperChunkTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.binary, args...)
	cmd.Stdin = strings.NewReader(sentence)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("piper: synthesis cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("piper: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	pcm := stdout.Bytes()
	if len(pcm) == 0 {
		return nil, fmt.Errorf("piper: no audio produced (stderr: %s)", strings.TrimSpace(stderr.String()))
	}
	log.Debug("piper chunk synthesized",
		"chars", len(sentence), "bytes", len(pcm), "took", time.Since(start))
	return pcm, nil
}

var _ Synthesizer = (*PiperSynthesizer)(nil)
