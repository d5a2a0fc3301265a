package chat

import (
	"unicode/utf8"

	"github.com/safeboy/safeboy/internal/infra/llm"
)

const (
	charsPerToken      = 4
	perMessageOverhead = 4
)

// EstimateTokens approximates the token count of s at four characters per token.
func EstimateTokens(s string) int {
	n := utf8.RuneCountInString(s)
	return (n + charsPerToken - 1) / charsPerToken
}

func estimateMessages(msgs []llm.Message) int {
	total := 0
	for _, m := range msgs {
		total += EstimateTokens(m.Content) + perMessageOverhead
	}
	return total
}

// TrimToBudget drops the oldest history entries until msgs fits budget tokens. The first
// (system) and last (current user) messages are always kept, even if they alone exceed
// the budget. A budget <= 0 disables trimming.
func TrimToBudget(msgs []llm.Message, budget int) []llm.Message {
	if budget <= 0 || len(msgs) <= 2 {
		return msgs
	}
	total := estimateMessages(msgs)
	drop := 0
	history := msgs[1 : len(msgs)-1]
	for total > budget && drop < len(history) {
		total -= EstimateTokens(history[drop].Content) + perMessageOverhead
		drop++
	}
	if drop == 0 {
		return msgs
	}
	out := make([]llm.Message, 0, len(msgs)-drop)
	out = append(out, msgs[0])
	out = append(out, history[drop:]...)
	return append(out, msgs[len(msgs)-1])
}
