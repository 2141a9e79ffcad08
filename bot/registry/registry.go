// Package registry holds the fixed table of tiny agents. The table is built
// once at init and never mutated; there is no runtime registration.
package registry

import (
	contractx "github.com/tinyagents/tinyagents-bot/bot/contract"
)

var order = []string{"meme_persona", "viral_pitch", "roast_generator"}

var agents = map[string]contractx.Agent{
	"meme_persona": {
		Name:        "meme_persona",
		Description: "Turn your idea into a caption for a viral meme.",
		Instruction: "You are a meme generator. Given an idea, write a short, funny, viral-style meme caption. Add 3-5 relevant trending hashtags. Reply with the caption and hashtags only.",
	},
	"viral_pitch": {
		Name:        "viral_pitch",
		Description: "Write a concise cold pitch for LinkedIn.",
		Instruction: "You are a LinkedIn copywriting expert. Write a direct message of at most 50 words based on the user's idea. The tone must be professional but catchy. The goal is to get a reply.",
	},
	"roast_generator": {
		Name:        "roast_generator",
		Description: "Give me a topic and I will roast it, kindly.",
		Instruction: "You are a comedian specialized in roasts. Given a word or phrase, write a funny, sharp joke that is never offensive or vulgar. Be creative and unexpected.",
	},
}

// Lookup resolves a command keyword to its agent definition.
func Lookup(name string) (contractx.Agent, bool) {
	a, ok := agents[name]
	return a, ok
}

// All returns the agent definitions in stable display order.
func All() []contractx.Agent {
	out := make([]contractx.Agent, 0, len(order))
	for _, name := range order {
		out = append(out, agents[name])
	}
	return out
}
