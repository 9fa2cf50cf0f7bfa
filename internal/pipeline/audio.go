package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/apresai/paperpod/internal/assembly"
	"github.com/apresai/paperpod/internal/discover"
	"github.com/apresai/paperpod/internal/progress"
	"github.com/apresai/paperpod/internal/script"
	"github.com/apresai/paperpod/internal/tts"
)

var tracer = otel.Tracer("paperpod/pipeline")

// ErrNoAudio is returned when every turn failed to synthesize.
var ErrNoAudio = errors.New("no audio was produced for any turn")

// AudioResult describes a written episode.
type AudioResult struct {
	Path         string
	Turns        int
	EmptyTurns   int
	Assembler    string
	SizeBytes    int
	FirstSpeaker string
}

// voiceFor maps a host to the provider voice: the roster's first persona
// gets Primary, the other Secondary.
func voiceFor(persona script.Persona, roster script.Roster, voices tts.VoiceMap) tts.Voice {
	if persona.Name == roster.A.Name {
		return voices.Primary
	}
	return voices.Secondary
}

// Audio voices every turn of the script at scriptPath and joins the clips
// into one MP3. Turns are synthesized one at a time, in order. A turn that
// still fails after retries becomes silence; if every turn fails nothing is
// written and ErrNoAudio is returned. An empty output means
// {AudioDir}/{script stem}.mp3.
func (p *Pipeline) Audio(ctx context.Context, scriptPath, output string) (*AudioResult, error) {
	if err := p.require(StageAudio, p.deps.TTS != nil, "speech provider"); err != nil {
		return nil, err
	}
	logger := p.deps.Logger.With("stage", StageAudio, "script", scriptPath)
	roster := p.settings.Roster

	s, err := script.LoadScript(scriptPath, roster)
	if err != nil {
		return nil, &PipelineError{Stage: StageAudio, Message: "failed to load script", Err: err}
	}
	if !s.Tagged {
		logger.WarnContext(ctx, "script name has no first-speaker tag", "assumed_first", s.First.Name)
	}

	voices := p.deps.TTS.Voices()
	logger.InfoContext(ctx, "synthesizing", "turns", len(s.Turns), "tts", p.deps.TTS.Name(),
		"first_speaker", s.First.Name, "primary_voice", voices.Primary.Name, "secondary_voice", voices.Secondary.Name)

	var limiter *rate.Limiter
	if rpm := p.settings.RequestsPerMinute; rpm > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60), 1)
	}

	clips := make([]assembly.Clip, len(s.Turns))
	empty := 0
	for i, turn := range s.Turns {
		p.emit(progress.StepEvent(progress.StageAudio, fmt.Sprintf("Voicing %s", turn.Speaker.Name), i+1, len(s.Turns)))
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, &PipelineError{Stage: StageAudio, Message: "interrupted", Err: err}
			}
		}

		clip, err := p.synthesizeTurn(ctx, turn, voiceFor(turn.Speaker, roster, voices))
		if err != nil {
			return nil, err
		}
		if len(clip.Data) == 0 {
			empty++
		}
		clips[i] = clip
	}

	if empty == len(clips) {
		return nil, &PipelineError{Stage: StageAudio, Message: "synthesis failed", Err: ErrNoAudio}
	}

	asm := p.deps.Assembler
	if asm == nil {
		asm = assembly.ConcatAssembler{}
	}
	if _, isConcat := asm.(assembly.ConcatAssembler); isConcat && assembly.NeedsTranscode(clips) {
		logger.InfoContext(ctx, "provider returns raw audio, switching to ffmpeg assembly")
		asm = assembly.NewFFmpegAssembler()
	}

	if output == "" {
		output = discover.DefaultOutput(scriptPath, p.settings.AudioDir, "", ".mp3")
	}
	p.emit(progress.Event{Stage: progress.StageAssembly, Message: "Assembling episode", Percent: 1})
	if err := asm.Assemble(ctx, clips, output); err != nil {
		return nil, &PipelineError{Stage: StageAudio, Message: "failed to assemble episode", Err: err}
	}

	size := 0
	for _, c := range clips {
		size += len(c.Data)
	}
	logger.InfoContext(ctx, "episode written", "path", output, "assembler", asm.Name(), "empty_turns", empty)
	p.deps.Catalog.Record(ctx, StageAudio, output)

	return &AudioResult{
		Path:         output,
		Turns:        len(clips),
		EmptyTurns:   empty,
		Assembler:    asm.Name(),
		SizeBytes:    size,
		FirstSpeaker: s.First.Name,
	}, nil
}

// synthesizeTurn voices one turn under the audio retry policy. It returns an
// empty clip when the policy degrades and an error only when the run must
// stop.
func (p *Pipeline) synthesizeTurn(ctx context.Context, turn script.Turn, voice tts.Voice) (assembly.Clip, error) {
	ctx, span := tracer.Start(ctx, "audio.turn")
	defer span.End()
	span.SetAttributes(
		attribute.Int("turn.index", turn.Index),
		attribute.String("turn.speaker", turn.Speaker.Name),
		attribute.String("turn.voice", voice.ID),
		attribute.Int("turn.chars", len(turn.Text)),
	)

	var res tts.AudioResult
	policy := p.settings.AudioPolicy
	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		r, err := p.deps.TTS.Synthesize(ctx, turn.Text, voice)
		if err != nil {
			p.deps.Logger.WarnContext(ctx, "synthesis attempt failed",
				"turn", turn.Index, "speaker", turn.Speaker.Name, "attempt", attempt, "error", err)
			return err
		}
		res = r
		return nil
	})
	if err == nil {
		return assembly.Clip{Data: res.Data, Format: assembly.Format(res.Format)}, nil
	}

	span.RecordError(err)
	if ctx.Err() != nil {
		return assembly.Clip{}, &PipelineError{Stage: StageAudio, Message: "interrupted", Err: ctx.Err()}
	}
	if !policy.Degrade {
		return assembly.Clip{}, &PipelineError{Stage: StageAudio, Message: fmt.Sprintf("turn %d failed", turn.Index), Err: err}
	}
	p.deps.Logger.ErrorContext(ctx, "turn left silent after retries",
		"turn", turn.Index, "speaker", turn.Speaker.Name, "error", err)
	return assembly.Clip{}, nil
}
