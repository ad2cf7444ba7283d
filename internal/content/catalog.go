// internal/content/catalog.go
package content

import (
	"fmt"
	"strings"
)

// Category describes how prompts for one game mode are requested and what to
// fall back to when the model is unavailable.
type Category struct {
	Name string
	// Instruction is the model request; %s is replaced with the player list.
	Instruction string
	// Fallbacks are used in rotation; %s is replaced with a player name.
	Fallbacks []string
}

// DefaultInstruction is used for categories missing from the catalogue.
const DefaultInstruction = "Write one short, fun prompt that a group of friends can answer in a sentence."

// DefaultFallback is used for categories missing from the catalogue.
const DefaultFallback = "Create something fun and creative!"

// Categories is the built-in catalogue, keyed by name.
var Categories = map[string]Category{
	"caption-this": {
		Name:        "caption-this",
		Instruction: "Describe one funny, vivid scene that players could write a caption for. Reply with the description only.",
		Fallbacks: []string{
			"A cat in sunglasses and a tiny hat, typing at a keyboard with great focus.",
			"A goose standing at a podium, addressing a room full of serious businesspeople.",
			"A toddler in a hard hat inspecting a collapsed sandcastle.",
		},
	},
	"acronyms": {
		Name:        "acronyms",
		Instruction: "Give one well-known acronym and its real expansion as \"ACRONYM - Expansion\". Reply with that line only.",
		Fallbacks: []string{
			"NASA - National Aeronautics and Space Administration",
			"SCUBA - Self-Contained Underwater Breathing Apparatus",
			"LASER - Light Amplification by Stimulated Emission of Radiation",
		},
	},
	"is-that-a-fact": {
		Name:        "is-that-a-fact",
		Instruction: "State one surprising but true fact about a single subject. Reply with the fact only.",
		Fallbacks: []string{
			"Octopuses have three hearts and blue blood.",
			"Honey found in ancient tombs is still edible.",
			"A group of flamingos is called a flamboyance.",
		},
	},
	"truth-comes-out": {
		Name:        "truth-comes-out",
		Instruction: "Ask one personal but harmless question about a specific player by name. Players: %s. Reply with the question only.",
		Fallbacks: []string{
			"What is %s's shoe size?",
			"What did %s eat for breakfast today?",
			"What is %s's most-used emoji?",
		},
	},
	"search-history": {
		Name:        "search-history",
		Instruction: "Write the start of a funny web search that players will complete, like \"why do cats...\". Reply with the unfinished search only.",
		Fallbacks: []string{
			"how to explain to your boss that...",
			"why does my neighbor keep...",
			"is it normal to...",
		},
	},
	"ice-breaker": {
		Name:        "ice-breaker",
		Instruction: "Ask one fun get-to-know-you question, optionally about a player. Players: %s. Reply with the question only.",
		Fallbacks: []string{
			"What would you name %s if you were their parent?",
			"What job would %s be surprisingly good at?",
			"What is the most useless talent you have?",
		},
	},
	"naked-truth": {
		Name:        "naked-truth",
		Instruction: "Ask one cheeky adults-only question about a specific player by name. Players: %s. Reply with the question only.",
		Fallbacks: []string{
			"What is %s's guilty pleasure?",
			"What is the worst date %s has ever been on?",
			"What would %s never admit to their parents?",
		},
	},
	"who-among-us": {
		Name:        "who-among-us",
		Instruction: "Ask one \"Who among us...\" question. Players: %s. Reply with the question only.",
		Fallbacks: []string{
			"Who among us is most likely to become a millionaire?",
			"Who among us would survive longest on a desert island?",
			"Who among us is secretly a morning person?",
		},
	},
}

// Known reports whether name is in the catalogue.
func Known(name string) bool {
	_, ok := Categories[name]
	return ok
}

// instructionFor renders the model request for category.
func instructionFor(category string, names []string) string {
	c, ok := Categories[category]
	if !ok {
		return DefaultInstruction
	}
	if strings.Contains(c.Instruction, "%s") {
		return fmt.Sprintf(c.Instruction, strings.Join(names, ", "))
	}
	return c.Instruction
}
