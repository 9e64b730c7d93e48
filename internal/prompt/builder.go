// Package prompt renders system prompts for NPC conversations from a
// configurable template, past-conversation memories, and recent colony
// events.
package prompt

import (
	"fmt"
	"math"
	"strings"

	"github.com/thereallemon/colonychat/internal/domain"
)

// MaxEvents caps how many recent colony events are included in a prompt.
const MaxEvents = 8

// DefaultTemplate is the out-of-the-box persona template.
const DefaultTemplate = "You are {name}, a {job} in the colony of {colony_name}. " +
	"You are speaking with {player_name}. " +
	"Your happiness is {happiness}/10. " +
	"Be friendly, stay in character, and keep responses brief (1-3 sentences). " +
	"Speak naturally about your work, the colony, your feelings, and recent events. " +
	"You're aware of births, deaths, and construction happening in the colony."

// Builder assembles system prompts. It is a pure function of its inputs;
// it performs no network or storage access.
type Builder struct {
	template    string
	maxMemories int
}

// NewBuilder creates a Builder. An empty template selects DefaultTemplate;
// a non-positive maxMemories disables the memory block.
func NewBuilder(template string, maxMemories int) *Builder {
	if template == "" {
		template = DefaultTemplate
	}
	return &Builder{template: template, maxMemories: maxMemories}
}

// Build renders the system prompt for one turn. Memories arrive
// most-recent-first (the store's order) and are rendered chronologically.
func (b *Builder) Build(npc domain.NPCSnapshot, player domain.PlayerSnapshot, memories []string, events []domain.WorldEvent) string {
	base := strings.NewReplacer(
		"{name}", npc.Name,
		"{job}", jobName(npc),
		"{colony_name}", npc.ColonyName,
		"{player_name}", player.Name,
		"{happiness}", fmt.Sprintf("%d", happinessLevel(npc)),
		"{saturation}", fmt.Sprintf("%.1f", npc.Saturation),
		"{skills}", skillsSummary(npc),
	).Replace(b.template)

	return base + b.memoryBlock(player, memories) + eventsBlock(events)
}

// Greeting builds the deterministic opening line an NPC says when a
// session starts. No LLM call is involved.
func Greeting(npc domain.NPCSnapshot, player domain.PlayerSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s! ", player.Name)
	if npc.Job != "" {
		fmt.Fprintf(&b, "I'm busy with my work as a %s. ", jobName(npc))
	} else {
		b.WriteString("I'm looking for work. ")
	}
	b.WriteString("What can I help you with?")
	return b.String()
}

// memoryBlock lists the retained window of past-conversation summaries,
// oldest first so the narrative reads forward in time.
func (b *Builder) memoryBlock(player domain.PlayerSnapshot, memories []string) string {
	if len(memories) == 0 || b.maxMemories <= 0 {
		return ""
	}
	window := memories
	if len(window) > b.maxMemories {
		window = window[:b.maxMemories]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "\n\nYour memories of past conversations with %s:\n", player.Name)
	for i := len(window) - 1; i >= 0; i-- {
		sb.WriteString("- ")
		sb.WriteString(window[i])
		sb.WriteString("\n")
	}
	sb.WriteString("\nUse these memories to maintain continuity in your conversation. ")
	sb.WriteString("If the player asks you something you should know from a previous conversation, refer to your memories.")
	return sb.String()
}

// eventsBlock renders up to MaxEvents of the most recent colony events.
// Events arrive oldest-first; the tail of the slice is the recent window.
func eventsBlock(events []domain.WorldEvent) string {
	if len(events) == 0 {
		return ""
	}
	if len(events) > MaxEvents {
		events = events[len(events)-MaxEvents:]
	}

	var sb strings.Builder
	sb.WriteString("\n\nRecent colony events you're aware of:\n")
	for _, ev := range events {
		sb.WriteString("- ")
		sb.WriteString(describeEvent(ev))
		sb.WriteString("\n")
	}
	sb.WriteString("\nYou can naturally mention these events in conversation if relevant.")
	return sb.String()
}

// describeEvent turns one event into a natural-language line, with an
// exhaustive match over the event variants.
func describeEvent(ev domain.WorldEvent) string {
	name := strings.ToLower(ev.Name)
	switch ev.Kind {
	case domain.EventNPC:
		switch {
		case strings.Contains(name, "born"):
			return ev.Subject + " was born in the colony"
		case strings.Contains(name, "died"):
			return ev.Subject + " passed away"
		case strings.Contains(name, "spawn"):
			return ev.Subject + " joined the colony"
		case strings.Contains(name, "grown"):
			return ev.Subject + " grew up"
		default:
			return ev.Name + ": " + ev.Subject
		}
	case domain.EventBuilding:
		switch {
		case strings.Contains(name, "built"):
			return "A new " + ev.Subject + " was built"
		case strings.Contains(name, "upgrade"):
			return fmt.Sprintf("The %s was upgraded to level %d", ev.Subject, ev.Level)
		case strings.Contains(name, "repair"):
			return "The " + ev.Subject + " was repaired"
		case strings.Contains(name, "deconstructed"), strings.Contains(name, "removed"):
			return "The " + ev.Subject + " was removed"
		default:
			return fmt.Sprintf("%s: %s (level %d)", ev.Name, ev.Subject, ev.Level)
		}
	default:
		return ev.Name
	}
}

// jobName normalizes the host-reported job id. Registry-style ids like
// "job.minecolonies.builder" reduce to their last segment.
func jobName(npc domain.NPCSnapshot) string {
	if npc.Job == "" {
		return "unemployed resident"
	}
	parts := strings.Split(npc.Job, ".")
	return parts[len(parts)-1]
}

// happinessLevel rounds the raw happiness to the 0-10 scale the template
// promises.
func happinessLevel(npc domain.NPCSnapshot) int {
	h := int(math.Round(npc.Happiness))
	if h < 0 {
		return 0
	}
	if h > 10 {
		return 10
	}
	return h
}

func skillsSummary(npc domain.NPCSnapshot) string {
	if npc.Skills == "" {
		return "My skills: still learning"
	}
	return "My skills: " + npc.Skills
}
