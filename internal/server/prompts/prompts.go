// Package prompts holds the fixed instructions seeded into every new
// conversation.
package prompts

import (
	_ "embed"
	"strings"
)

//go:embed chef.txt
var chef string

// ChefSystemPrompt is the content of the system turn that opens each
// user's conversation.
var ChefSystemPrompt = strings.TrimSpace(chef)
