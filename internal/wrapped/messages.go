package wrapped

import "strings"

// toolMessages maps the remote model's tool identifiers to short progress
// strings. Repeated invocations of the same tool rotate through the list
// so the client doesn't see the same line over and over.
var toolMessages = map[string][]string{
	"x_keyword_search": {
		"🔍 Diving into your posts...",
		"📜 Scrolling through your timeline...",
		"🕵️ Finding your hidden gems...",
		"✨ Uncovering your best moments...",
	},
	"x_semantic_search": {
		"🧠 Understanding your vibes...",
		"💭 Reading between the lines...",
		"🎯 Finding posts that hit different...",
	},
	"x_user_search": {
		"👤 Looking up your profile...",
		"🔎 Finding your account...",
	},
	"x_thread_fetch": {
		"🧵 Pulling up your threads...",
		"📖 Reading your stories...",
	},
	"code_execution": {
		"🧮 Crunching the numbers...",
		"📊 Calculating your stats...",
		"💯 Running the math...",
		"📈 Analyzing your data...",
	},
	"view_x_video": {
		"🎬 Watching your videos...",
		"📹 Reviewing your clips...",
	},
	"view_image": {
		"🖼️ Checking out your pics...",
		"📸 Admiring your photos...",
	},
	"web_search": {
		"🌐 Searching the web...",
		"🔗 Finding more context...",
	},
	"browse_page": {
		"📄 Reading more details...",
		"🔍 Digging deeper...",
	},
}

// messageRotator tracks per-tool invocation counts for a single run.
// Counts are never shared across runs; each request starts from index 0.
type messageRotator struct {
	counts map[string]int
}

func newMessageRotator() *messageRotator {
	return &messageRotator{counts: make(map[string]int)}
}

// Next returns the progress message for the next invocation of tool,
// rotating through the tool's message list. Unknown tools get a generic
// message derived from the identifier.
func (r *messageRotator) Next(tool string) string {
	messages, ok := toolMessages[tool]
	if !ok {
		return "🔄 " + titleCase(tool) + "..."
	}
	n := r.counts[tool]
	r.counts[tool] = n + 1
	return messages[n%len(messages)]
}

// titleCase turns a tool identifier like "foo_bar" into "Foo Bar".
func titleCase(tool string) string {
	words := strings.Split(strings.ReplaceAll(tool, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
