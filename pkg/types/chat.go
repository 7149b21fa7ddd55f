package types

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// GenerationConfig holds the sampling parameters sent with every request.
// Fixed for the lifetime of the process; not user-editable.
type GenerationConfig struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP"`
	TopK        int     `json:"topK"`
}

// DefaultGenerationConfig keeps replies focused and short.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{Temperature: 0.3, TopP: 0.8, TopK: 40}
}

// SafetySetting is one category/threshold pair applied to every request.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

const blockMediumAndAbove = "BLOCK_MEDIUM_AND_ABOVE"

func DefaultSafetySettings() []SafetySetting {
	return []SafetySetting{
		{Category: "HARM_CATEGORY_HARASSMENT", Threshold: blockMediumAndAbove},
		{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: blockMediumAndAbove},
		{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: blockMediumAndAbove},
		{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: blockMediumAndAbove},
	}
}
