package engine

// Config holds configuration for the orchestration engine.
type Config struct {
	// Model is the model identifier sent with every backend request.
	Model string

	// SystemPrompt, when non-empty, seeds the conversation with a
	// leading system message.
	SystemPrompt string

	// MaxTurns is the maximum number of model calls within a single
	// conversation turn before the loop gives up waiting for a final
	// answer. Zero or negative means use the default of 10.
	MaxTurns int

	// Temperature, TopP and MaxTokens are passed through to the
	// backend when set.
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// maxTurns returns the effective max turns value, defaulting to 10.
func (c Config) maxTurns() int {
	if c.MaxTurns <= 0 {
		return 10
	}
	return c.MaxTurns
}
