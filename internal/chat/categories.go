package chat

import "strings"

// Category is one of a fixed closed set of response classes.
type Category string

const (
	CategoryGreetings         Category = "greetings"
	CategoryPersonalQuestions Category = "personal_questions"
	CategoryCompliments       Category = "compliments"
	CategoryQuestions         Category = "questions"
	CategoryHelpRequests      Category = "help_requests"
	CategoryGoodbye           Category = "goodbye"
	CategoryWeather           Category = "weather"
	CategoryTime              Category = "time"
	CategoryAppreciation      Category = "appreciation"
	CategoryDefault           Category = "default"
)

// categoryOrder is the declared enumeration order. Ties in keyword
// scoring resolve to the earliest category in this list, which makes
// categorization deterministic regardless of map iteration.
var categoryOrder = []Category{
	CategoryGreetings,
	CategoryPersonalQuestions,
	CategoryCompliments,
	CategoryQuestions,
	CategoryHelpRequests,
	CategoryGoodbye,
	CategoryWeather,
	CategoryTime,
	CategoryAppreciation,
}

// keywords maps each category to the literal substrings that vote for it.
// Matching is substring containment on the lowercased message, not
// tokenized matching, so "what time" scores both "what" and "what time".
var keywords = map[Category][]string{
	CategoryGreetings:         {"hello", "hi", "hey", "greetings", "good morning", "good afternoon", "good evening"},
	CategoryPersonalQuestions: {"who are you", "what are you", "tell me about yourself", "your name"},
	CategoryCompliments:       {"thank you", "thanks", "good job", "well done", "excellent", "amazing", "awesome"},
	CategoryQuestions:         {"what", "how", "why", "when", "where", "who", "?"},
	CategoryHelpRequests:      {"help", "assist", "support", "can you", "could you", "would you"},
	CategoryGoodbye:           {"bye", "goodbye", "see you", "farewell", "later", "take care"},
	CategoryWeather:           {"weather", "temperature", "rain", "sunny", "cloudy", "storm"},
	CategoryTime:              {"time", "clock", "hour", "minute", "what time"},
	CategoryAppreciation:      {"thank you", "thanks", "appreciate", "grateful"},
}

// helpWords back the zero-score fallthrough after the "?" heuristic.
var helpWords = []string{"help", "assist", "support"}

var responses = map[Category][]string{
	CategoryGreetings: {
		"Hello! It's great to see you. How can I help today?",
		"Hi there! What's on your mind?",
		"Hey! Welcome back. What would you like to talk about?",
	},
	CategoryPersonalQuestions: {
		"That's a thoughtful question about me. I'm a small assistant built to chat with the people it recognizes.",
		"I'm mostly here to listen. What I enjoy is learning about whoever is in front of the camera.",
	},
	CategoryCompliments: {
		"Thank you, that's very kind of you to say.",
		"You're too kind! I'm just glad I can be useful.",
	},
	CategoryQuestions: {
		"That's a fascinating question. Let me think about that for a moment.",
		"Good question! Happy to dig into that with you.",
		"Interesting, that's worth exploring.",
	},
	CategoryHelpRequests: {
		"I'm here to help. What specifically can I do for you?",
		"Of course, I'd be glad to help with that.",
	},
	CategoryGoodbye: {
		"Goodbye! It was lovely chatting with you.",
		"Take care! Come back anytime.",
		"See you later, thanks for the chat.",
	},
	CategoryWeather: {
		"I don't have live weather data here; a weather app will know better than I do.",
		"For up-to-date weather you'll want your local forecast, not a chat window.",
	},
	CategoryTime: {
		"I don't keep a clock you can trust; your device's is much better.",
		"For the current time, check the corner of your screen.",
	},
	CategoryAppreciation: {
		"You're very welcome, glad I could help.",
		"My pleasure, that's what I'm here for.",
	},
	CategoryDefault: {
		"That's interesting, tell me more about what you're thinking.",
		"I'd love to hear more about that. What's your perspective?",
		"Hmm, that's worth exploring. What's your experience with it?",
	},
}

// Categorize assigns one category to free text by counting keyword hits.
// Zero hits fall through to a question-mark heuristic, then a help-word
// heuristic, then the default category.
func Categorize(text string) Category {
	message := strings.ToLower(strings.TrimSpace(text))

	best := CategoryDefault
	bestScore := 0
	for _, category := range categoryOrder {
		score := 0
		for _, kw := range keywords[category] {
			if strings.Contains(message, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = category, score
		}
	}
	if bestScore > 0 {
		return best
	}

	if strings.Contains(message, "?") {
		return CategoryQuestions
	}
	for _, word := range helpWords {
		if strings.Contains(message, word) {
			return CategoryHelpRequests
		}
	}
	return CategoryDefault
}
