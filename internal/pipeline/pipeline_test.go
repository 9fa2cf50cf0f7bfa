package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/paperpod/internal/assembly"
	"github.com/apresai/paperpod/internal/llm"
	"github.com/apresai/paperpod/internal/progress"
	"github.com/apresai/paperpod/internal/retry"
	"github.com/apresai/paperpod/internal/script"
	"github.com/apresai/paperpod/internal/tts"
)

type fakeLLM struct {
	mu      sync.Mutex
	calls   []llm.Request
	respond func(call int, req llm.Request) (string, error)
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	return f.respond(len(f.calls), req)
}

type fakeTTS struct {
	calls []string
	voice []string
	fail  func(call int, text string) error
}

func (f *fakeTTS) Name() string { return "fake-tts" }

func (f *fakeTTS) Voices() tts.VoiceMap {
	return tts.VoiceMap{Primary: tts.Voice{ID: "p", Name: "Primary"}, Secondary: tts.Voice{ID: "s", Name: "Secondary"}}
}

func (f *fakeTTS) Synthesize(_ context.Context, text string, voice tts.Voice) (tts.AudioResult, error) {
	f.calls = append(f.calls, text)
	f.voice = append(f.voice, voice.ID)
	if f.fail != nil {
		if err := f.fail(len(f.calls), text); err != nil {
			return tts.AudioResult{}, err
		}
	}
	return tts.AudioResult{Data: []byte("[" + voice.ID + ":" + text + "]"), Format: tts.FormatMP3}, nil
}

func (f *fakeTTS) Close() error { return nil }

type recorder struct {
	pauses []time.Duration
	events []progress.Event
}

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.pauses = append(r.pauses, d)
	return nil
}

func (r *recorder) progress(e progress.Event) { r.events = append(r.events, e) }

func writeDoc(t *testing.T, dir string) string {
	t.Helper()
	var paras []string
	for i := 0; i < 6; i++ {
		paras = append(paras, strings.Repeat("finding ", 20)+string(rune('A'+i)))
	}
	path := filepath.Join(dir, "Self_Reflection_2504.04022.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(paras, "\n\n")), 0644))
	return path
}

func segmentReplies(call int, _ llm.Request) (string, error) {
	switch call {
	case 1:
		return "Welcome to the show! I'm Alex, and with me today is Vic.\n\nHi everyone!", nil
	case 4:
		return "Thanks for joining us.\n\nUntil next time!", nil
	default:
		return "Segment body alpha.\n\nSegment body beta.", nil
	}
}

func newTestPipeline(t *testing.T, settings Settings, deps Deps) (*Pipeline, *recorder) {
	t.Helper()
	rec := &recorder{}
	deps.Sleep = rec.sleep
	deps.Progress = rec.progress
	if deps.IntN == nil {
		deps.IntN = func(int) int { return 1 }
	}
	if settings.Pause == 0 {
		settings.Pause = 3 * time.Second
	}
	if settings.ScriptPolicy.MaxAttempts == 0 {
		settings.ScriptPolicy = retry.Policy{MaxAttempts: 2, Degrade: true}
	}
	if settings.AudioPolicy.MaxAttempts == 0 {
		settings.AudioPolicy = retry.Policy{MaxAttempts: 2, Degrade: true, Retryable: retry.IsRetryable}
	}
	return New(settings, deps), rec
}

func TestScript_WritesTaggedArtifact(t *testing.T) {
	dir := t.TempDir()
	input := writeDoc(t, dir)
	out := filepath.Join(dir, "scripts") + string(os.PathSeparator)
	client := &fakeLLM{respond: segmentReplies}
	p, rec := newTestPipeline(t, Settings{}, Deps{LLM: client})

	res, err := p.Script(context.Background(), input, out)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "scripts", "Self_Reflection_2504.04022_Alex_first.txt"), res.Path)
	assert.Equal(t, "Alex", res.First.Name)
	assert.Equal(t, script.MatchUnique, res.Match)
	assert.Zero(t, res.EmptySegments)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	var outputs []string
	for i := 1; i <= 4; i++ {
		o, _ := segmentReplies(i, llm.Request{})
		outputs = append(outputs, o)
	}
	assert.Equal(t, script.AssembleScript(outputs), string(data))

	assert.Equal(t, []time.Duration{3 * time.Second, 3 * time.Second, 3 * time.Second, 3 * time.Second}, rec.pauses)
	require.Len(t, client.calls, 4)
	assert.Contains(t, client.calls[0].User, "Alex")
	assert.Contains(t, client.calls[1].User, "Hi everyone!", "history carries the previous segment")
	assert.Contains(t, client.calls[3].User, "Self Reflection")
}

func TestScript_DegradedSegmentStillWritten(t *testing.T) {
	dir := t.TempDir()
	input := writeDoc(t, dir)
	client := &fakeLLM{respond: func(call int, req llm.Request) (string, error) {
		// the second segment fails on both attempts
		if call == 2 || call == 3 {
			return "", errors.New("503 service unavailable")
		}
		if call > 3 {
			call -= 1
		}
		return segmentReplies(call, req)
	}}
	p, rec := newTestPipeline(t, Settings{}, Deps{LLM: client})

	res, err := p.Script(context.Background(), input, filepath.Join(dir, "ep.txt"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.EmptySegments)
	assert.Equal(t, filepath.Join(dir, "ep_Alex_first.txt"), res.Path)
	assert.Len(t, rec.pauses, 4, "the pause follows failed segments too")
	assert.NotEmpty(t, res.Issues)
}

func TestScript_StrictFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	input := writeDoc(t, dir)
	client := &fakeLLM{respond: func(int, llm.Request) (string, error) { return "", errors.New("bad key") }}
	p, _ := newTestPipeline(t, Settings{ScriptPolicy: retry.Policy{MaxAttempts: 1}}, Deps{LLM: client})

	_, err := p.Script(context.Background(), input, filepath.Join(dir, "out")+string(os.PathSeparator))
	var pe *PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StageScript, pe.Stage)
	_, statErr := os.Stat(filepath.Join(dir, "out"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestScript_NoIntroductionFallsBackToAlex(t *testing.T) {
	dir := t.TempDir()
	input := writeDoc(t, dir)
	client := &fakeLLM{respond: func(int, llm.Request) (string, error) { return "Just talk.", nil }}
	p, _ := newTestPipeline(t, Settings{Opener: "Vic"}, Deps{LLM: client})

	res, err := p.Script(context.Background(), input, filepath.Join(dir, "x.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Alex", res.First.Name)
	assert.Equal(t, script.MatchNone, res.Match)
	assert.Contains(t, client.calls[0].User, "I'm Vic", "configured opener is used in the prompt")
}

func TestScript_ExtractionErrorIsFatal(t *testing.T) {
	client := &fakeLLM{respond: segmentReplies}
	p, _ := newTestPipeline(t, Settings{}, Deps{LLM: client})

	_, err := p.Script(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), "")
	assert.Error(t, err)
	assert.Empty(t, client.calls)
}

func TestScript_CancelledDuringPause(t *testing.T) {
	dir := t.TempDir()
	input := writeDoc(t, dir)
	p := New(Settings{Pause: time.Hour}, Deps{LLM: &fakeLLM{respond: segmentReplies}, IntN: func(int) int { return 0 }})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Script(ctx, input, filepath.Join(dir, "x.txt"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChooseOpener(t *testing.T) {
	p := New(Settings{}, Deps{IntN: func(int) int { return 0 }})
	assert.Equal(t, "Vic", p.chooseOpener().Name)

	p = New(Settings{Opener: "random"}, Deps{IntN: func(int) int { return 1 }})
	assert.Equal(t, "Alex", p.chooseOpener().Name)

	p = New(Settings{Opener: "Alex"}, Deps{IntN: func(int) int { return 0 }})
	assert.Equal(t, "Alex", p.chooseOpener().Name)
}

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestAudio_AlternatesVoicesFromTaggedSpeaker(t *testing.T) {
	scriptPath := writeScript(t, "ep_Alex_first.txt", "\n\nHello, I'm Alex.\n\nI'm Vic.\n\n\n\nBye.\n")
	out := filepath.Join(t.TempDir(), "ep.mp3")
	speech := &fakeTTS{}
	p, rec := newTestPipeline(t, Settings{}, Deps{TTS: speech})

	res, err := p.Audio(context.Background(), scriptPath, out)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Turns)
	assert.Equal(t, "Alex", res.FirstSpeaker)
	assert.Equal(t, "concat", res.Assembler)

	// Alex is the roster's second host, so turn 0 uses the secondary voice.
	assert.Equal(t, []string{"s", "p", "s"}, speech.voice)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "[s:Hello, I'm Alex.][p:I'm Vic.][s:Bye.]", string(data))
	assert.NotEmpty(t, rec.events)
}

func TestAudio_UntaggedScriptStartsWithAlex(t *testing.T) {
	scriptPath := writeScript(t, "notes.txt", "One.\n\nTwo.")
	speech := &fakeTTS{}
	p, _ := newTestPipeline(t, Settings{AudioDir: t.TempDir()}, Deps{TTS: speech})

	res, err := p.Audio(context.Background(), scriptPath, "")
	require.NoError(t, err)
	assert.Equal(t, "Alex", res.FirstSpeaker)
	assert.Equal(t, "notes.mp3", filepath.Base(res.Path))
}

func TestAudio_FailedTurnBecomesSilence(t *testing.T) {
	scriptPath := writeScript(t, "ep_Vic_first.txt", "A.\n\nB.\n\nC.")
	out := filepath.Join(t.TempDir(), "ep.mp3")
	speech := &fakeTTS{fail: func(_ int, text string) error {
		if text == "B." {
			return errors.New("voice not found")
		}
		return nil
	}}
	p, _ := newTestPipeline(t, Settings{}, Deps{TTS: speech})

	res, err := p.Audio(context.Background(), scriptPath, out)
	require.NoError(t, err)
	assert.Equal(t, 1, res.EmptyTurns)
	assert.Len(t, speech.calls, 3, "non-retryable errors are not retried")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "[p:A.][p:C.]", string(data))
}

func TestAudio_RetriesTransientErrors(t *testing.T) {
	scriptPath := writeScript(t, "ep_Vic_first.txt", "A.")
	speech := &fakeTTS{fail: func(call int, _ string) error {
		if call == 1 {
			return &retry.RetryableError{StatusCode: 429}
		}
		return nil
	}}
	p, _ := newTestPipeline(t, Settings{}, Deps{TTS: speech})

	res, err := p.Audio(context.Background(), scriptPath, filepath.Join(t.TempDir(), "ep.mp3"))
	require.NoError(t, err)
	assert.Zero(t, res.EmptyTurns)
	assert.Len(t, speech.calls, 2)
}

func TestAudio_AllTurnsFail(t *testing.T) {
	scriptPath := writeScript(t, "ep_Vic_first.txt", "A.\n\nB.")
	out := filepath.Join(t.TempDir(), "ep.mp3")
	speech := &fakeTTS{fail: func(int, string) error { return errors.New("401 unauthorized") }}
	p, _ := newTestPipeline(t, Settings{}, Deps{TTS: speech})

	_, err := p.Audio(context.Background(), scriptPath, out)
	assert.ErrorIs(t, err, ErrNoAudio)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestAudio_EmptyScript(t *testing.T) {
	scriptPath := writeScript(t, "ep_Vic_first.txt", "\n\n\n")
	p, _ := newTestPipeline(t, Settings{}, Deps{TTS: &fakeTTS{}})

	_, err := p.Audio(context.Background(), scriptPath, filepath.Join(t.TempDir(), "ep.mp3"))
	assert.ErrorIs(t, err, ErrNoAudio)
}

func TestAudio_StrictPolicyStops(t *testing.T) {
	scriptPath := writeScript(t, "ep_Vic_first.txt", "A.\n\nB.")
	speech := &fakeTTS{fail: func(int, string) error { return errors.New("boom") }}
	p, _ := newTestPipeline(t, Settings{AudioPolicy: retry.Policy{MaxAttempts: 1}}, Deps{TTS: speech})

	_, err := p.Audio(context.Background(), scriptPath, filepath.Join(t.TempDir(), "ep.mp3"))
	var pe *PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Message, "turn 0")
	assert.Len(t, speech.calls, 1)
}

func TestAudio_UsesConfiguredAssembler(t *testing.T) {
	scriptPath := writeScript(t, "ep_Vic_first.txt", "A.")
	asm := &recordingAssembler{}
	p, _ := newTestPipeline(t, Settings{}, Deps{TTS: &fakeTTS{}, Assembler: asm})

	res, err := p.Audio(context.Background(), scriptPath, filepath.Join(t.TempDir(), "ep.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "recording", res.Assembler)
	assert.Len(t, asm.clips, 1)
}

type recordingAssembler struct{ clips []assembly.Clip }

func (r *recordingAssembler) Name() string { return "recording" }

func (r *recordingAssembler) Assemble(_ context.Context, clips []assembly.Clip, _ string) error {
	r.clips = clips
	return nil
}

func TestMetadata_WritesArtifactAndNotes(t *testing.T) {
	scriptPath := writeScript(t, "Self_Reflection_Vic_first.txt", "I'm Vic.\n\nI'm Alex.")
	dir := t.TempDir()
	client := &fakeLLM{respond: func(call int, _ llm.Request) (string, error) {
		if call == 1 {
			return `"Thinking Twice"`, nil
		}
		return "P1.\n\nP2.", nil
	}}
	p, _ := newTestPipeline(t, Settings{MetadataDir: dir, HTML: true}, Deps{LLM: client})

	res, err := p.Metadata(context.Background(), scriptPath, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Self_Reflection_Vic_first_metadata.txt"), res.Path)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, "Title: Thinking Twice\n\nDescription:\nP1.\n\nP2.", string(data))
	assert.Contains(t, client.calls[0].User, "Self Reflection")
	assert.Contains(t, client.calls[0].User, "Hosts: Vic and Alex")

	html, err := os.ReadFile(res.HTMLPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<h1>Thinking Twice</h1>")
}

func TestStagesNeedTheirClients(t *testing.T) {
	p := New(Settings{}, Deps{})
	_, err := p.Script(context.Background(), "a.pdf", "")
	assert.ErrorContains(t, err, "language model is not configured")
	_, err = p.Metadata(context.Background(), "a.txt", "")
	assert.ErrorContains(t, err, "language model is not configured")
	_, err = p.Audio(context.Background(), "a.txt", "")
	assert.ErrorContains(t, err, "speech provider is not configured")
}

func TestPipelineError(t *testing.T) {
	err := &PipelineError{Stage: "audio", Message: "synthesis failed", Err: ErrNoAudio}
	assert.Equal(t, "[audio] synthesis failed: no audio was produced for any turn", err.Error())
	assert.ErrorIs(t, err, ErrNoAudio)
	assert.Equal(t, "[script] x", (&PipelineError{Stage: "script", Message: "x"}).Error())
}
