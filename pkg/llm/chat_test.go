package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xhad/paperqa/pkg/llm"
)

func TestNewWithConfig(t *testing.T) {
	config := llm.ChatConfig{
		Model:       "llama3",
		Temperature: 0,
		MaxTokens:   1000,
		BaseURL:     "http://localhost:11434",
	}
	engine, err := llm.NewWithConfig(config)
	assert.NoError(t, err)
	assert.NotNil(t, engine)
}

func TestNewWithConfig_RejectsBadTemperature(t *testing.T) {
	_, err := llm.NewWithConfig(llm.ChatConfig{Temperature: 2.5})
	assert.Error(t, err)

	_, err = llm.NewWithConfig(llm.ChatConfig{Temperature: -0.1})
	assert.Error(t, err)
}

func TestNewWithConfig_RejectsNegativeMaxTokens(t *testing.T) {
	_, err := llm.NewWithConfig(llm.ChatConfig{MaxTokens: -1})
	assert.Error(t, err)
}
