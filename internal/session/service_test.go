package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thereallemon/colonychat/internal/domain"
	"github.com/thereallemon/colonychat/internal/hooks"
	"github.com/thereallemon/colonychat/internal/llm"
	"github.com/thereallemon/colonychat/internal/logging"
	"github.com/thereallemon/colonychat/internal/memory"
	"github.com/thereallemon/colonychat/internal/prompt"
	"github.com/thereallemon/colonychat/internal/state"
	"github.com/thereallemon/colonychat/internal/world"
)

// syncLoop runs everything inline so tests are deterministic.
type syncLoop struct{}

func (syncLoop) Post(fn func()) { fn() }
func (syncLoop) Call(fn func()) { fn() }

// syncWorker runs dispatched tasks inline.
type syncWorker struct{}

func (syncWorker) Submit(task func()) bool {
	task()
	return true
}

// fakeNotifier records delivered lines and state syncs per player.
type fakeNotifier struct {
	delivered []string
	syncs     []bool
}

func (n *fakeNotifier) Deliver(playerID, text string) {
	n.delivered = append(n.delivered, text)
}

func (n *fakeNotifier) SyncState(playerID string, npcID int, active bool) {
	n.syncs = append(n.syncs, active)
}

type fixture struct {
	svc      *Service
	mgr      *state.Manager
	mirror   *world.Mirror
	client   *llm.MockClient
	notifier *fakeNotifier
	mem      *memory.InMemory
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	log := logging.New(nil, "silent", "json")
	hk := hooks.NewManager(log)
	mirror := world.NewMirror(nil, log)
	mgr := state.NewManager(mirror, hk, 40, log)
	client := &llm.MockClient{}
	mem := memory.NewInMemory(5)

	if opts.Model == "" {
		opts.Model = "anthropic/claude-3-haiku"
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 150
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	if opts.ExitWords == nil {
		opts.ExitWords = []string{"goodbye", "bye", "cya", "exit", "stop", "later"}
	}

	notifier := &fakeNotifier{}
	svc := NewService(mgr, mirror, client, prompt.NewBuilder("", 5), mem,
		syncLoop{}, syncWorker{}, notifier, hk, opts, log)
	return &fixture{svc: svc, mgr: mgr, mirror: mirror, client: client, notifier: notifier, mem: mem}
}

func (f *fixture) addPair(npcID int, playerID string) {
	f.mirror.ApplyUpdate(domain.WorldUpdate{
		NPCs: []domain.NPCSnapshot{{
			ID: npcID, Name: "Greta", Job: "com.minecolonies.job.builder",
			ColonyName: "Riverholm", Happiness: 8, Saturation: 14,
			Position: domain.Position{X: 0, Y: 64, Z: 0},
		}},
		Players: []domain.PlayerSnapshot{{
			ID: playerID, Name: "Lemon",
			Position: domain.Position{X: 3, Y: 64, Z: 0},
		}},
	})
}

func TestService_Start_SendsGreetingWithoutLLM(t *testing.T) {
	f := newFixture(t, Options{StartDistance: 10})
	f.addPair(7, "p1")

	require.NoError(t, f.svc.Start("p1", 7))

	assert.Equal(t, 0, f.client.Calls)
	require.Len(t, f.notifier.delivered, 1)
	assert.Contains(t, f.notifier.delivered[0], "Hello Lemon!")
	assert.Equal(t, []bool{true}, f.notifier.syncs)
	assert.Equal(t, 1, f.svc.ActiveCount())
}

func TestService_Start_TooFar(t *testing.T) {
	f := newFixture(t, Options{StartDistance: 10})
	f.addPair(7, "p1")
	f.mirror.ApplyUpdate(domain.WorldUpdate{
		Players: []domain.PlayerSnapshot{{
			ID: "p1", Name: "Lemon",
			Position: domain.Position{X: 20, Y: 64, Z: 0},
		}},
	})

	err := f.svc.Start("p1", 7)
	assert.ErrorIs(t, err, ErrTooFar)
	assert.Equal(t, 0, f.svc.ActiveCount())
}

func TestService_Start_UnknownEntities(t *testing.T) {
	f := newFixture(t, Options{StartDistance: 10})
	err := f.svc.Start("p1", 7)
	assert.ErrorIs(t, err, state.ErrEntityGone)
}

func TestService_Message_RoundTrip(t *testing.T) {
	f := newFixture(t, Options{StartDistance: 10})
	f.addPair(7, "p1")
	f.client.CompleteFunc = func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		// System prompt carries the NPC's identity.
		if !strings.Contains(req.System, "Greta") {
			return nil, errors.New("system prompt missing npc name")
		}
		return &llm.CompletionResponse{Content: "The new warehouse is coming along."}, nil
	}

	require.NoError(t, f.svc.Start("p1", 7))
	handled := f.svc.Message("p1", "How is the build going?")

	assert.True(t, handled)
	assert.Equal(t, 1, f.client.Calls)
	require.Len(t, f.notifier.delivered, 2) // greeting + reply
	assert.Equal(t, "The new warehouse is coming along.", f.notifier.delivered[1])
}

func TestService_Message_NoSession(t *testing.T) {
	f := newFixture(t, Options{StartDistance: 10})
	f.addPair(7, "p1")

	assert.False(t, f.svc.Message("p1", "hello?"))
	assert.Equal(t, 0, f.client.Calls)
}

func TestService_Message_ExitWordEndsWithoutLLM(t *testing.T) {
	f := newFixture(t, Options{StartDistance: 10})
	f.addPair(7, "p1")

	require.NoError(t, f.svc.Start("p1", 7))
	handled := f.svc.Message("p1", "  Goodbye  ")

	assert.True(t, handled)
	assert.Equal(t, 0, f.client.Calls)
	assert.Equal(t, 0, f.svc.ActiveCount())
	assert.Equal(t, []bool{true, false}, f.notifier.syncs)
	// Farewell line after the greeting.
	require.Len(t, f.notifier.delivered, 2)
	assert.Contains(t, f.notifier.delivered[1], "goodbye")
}

func TestService_Message_LLMFailureKeepsSessionOpen(t *testing.T) {
	f := newFixture(t, Options{StartDistance: 10})
	f.addPair(7, "p1")
	f.client.CompleteFunc = func(_ context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, &llm.Error{Exhausted: true, Attempts: 4, Err: errors.New("upstream down")}
	}

	require.NoError(t, f.svc.Start("p1", 7))
	f.svc.Message("p1", "hello")

	assert.Equal(t, 1, f.svc.ActiveCount())
	require.Len(t, f.notifier.delivered, 2)
	assert.Contains(t, f.notifier.delivered[1], "lost in thought")

	// The player can try again on the same session.
	f.client.CompleteFunc = nil
	f.svc.Message("p1", "are you there?")
	assert.Equal(t, "mock reply", f.notifier.delivered[2])
}

func TestService_End_SummarizesConversation(t *testing.T) {
	f := newFixture(t, Options{StartDistance: 10})
	f.addPair(7, "p1")
	f.client.CompleteFunc = func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if strings.Contains(req.System, "Summarize") {
			return &llm.CompletionResponse{Content: "Told Lemon about the warehouse build."}, nil
		}
		return &llm.CompletionResponse{Content: "Work is good."}, nil
	}

	require.NoError(t, f.svc.Start("p1", 7))
	f.svc.Message("p1", "how is work?")
	require.True(t, f.svc.End("p1"))

	assert.Equal(t, 0, f.svc.ActiveCount())
	assert.Equal(t, []string{"Told Lemon about the warehouse build."}, f.mem.Get(7))
}

func TestService_End_NoExchangesSkipsSummary(t *testing.T) {
	f := newFixture(t, Options{StartDistance: 10})
	f.addPair(7, "p1")

	require.NoError(t, f.svc.Start("p1", 7))
	require.True(t, f.svc.End("p1"))

	assert.Equal(t, 0, f.client.Calls)
	assert.Empty(t, f.mem.Get(7))
}

func TestService_End_SummaryFallbackOnFailure(t *testing.T) {
	f := newFixture(t, Options{StartDistance: 10})
	f.addPair(7, "p1")
	var failSummaries bool
	f.client.CompleteFunc = func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if failSummaries && strings.Contains(req.System, "Summarize") {
			return nil, errors.New("upstream down")
		}
		return &llm.CompletionResponse{Content: "Work is good."}, nil
	}

	require.NoError(t, f.svc.Start("p1", 7))
	f.svc.Message("p1", "how is work?")
	failSummaries = true
	require.True(t, f.svc.End("p1"))

	assert.Equal(t, []string{"Had a chat with Lemon."}, f.mem.Get(7))
}

func TestService_End_NoSession(t *testing.T) {
	f := newFixture(t, Options{StartDistance: 10})
	assert.False(t, f.svc.End("p1"))
}

func TestService_EndForNPC(t *testing.T) {
	f := newFixture(t, Options{StartDistance: 10})
	f.addPair(7, "p1")

	require.NoError(t, f.svc.Start("p1", 7))
	assert.True(t, f.svc.EndForNPC(7, domain.ReasonNPCGone))
	assert.Equal(t, 0, f.svc.ActiveCount())
	assert.False(t, f.svc.EndForNPC(7, domain.ReasonNPCGone))
}

func TestService_Status(t *testing.T) {
	f := newFixture(t, Options{StartDistance: 10})
	f.addPair(7, "p1")

	require.NoError(t, f.svc.Start("p1", 7))
	status := f.svc.Status()

	assert.Equal(t, "anthropic/claude-3-haiku", status["model"])
	assert.Equal(t, 1, status["active"])
}
