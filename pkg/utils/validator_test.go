package utils

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name    string `validate:"required,max=3"`
	Rollout int    `validate:"min=0,max=100"`
}

func TestFormatValidationError(t *testing.T) {
	v := validator.New()

	err := v.Struct(sample{Rollout: 101})
	msg := FormatValidationError(err)
	assert.Contains(t, msg, "field 'Name' is required")
	assert.Contains(t, msg, "field 'Rollout' must be at most 100")
	assert.NotContains(t, msg, "characters")

	err = v.Struct(sample{Name: "toolong"})
	assert.Equal(t, "field 'Name' must be at most 3 characters", FormatValidationError(err))
}

func TestFormatJSONErrors(t *testing.T) {
	var out struct {
		Rollout int `json:"rollout"`
	}
	err := json.Unmarshal([]byte(`{"rollout":"all"}`), &out)
	assert.Equal(t, "field 'rollout' should be int", FormatValidationError(err))

	err = json.Unmarshal([]byte(`{`), &out)
	assert.Equal(t, "invalid JSON format", FormatValidationError(fmt.Errorf("bind: %w", err)))

	assert.Empty(t, FormatValidationError(nil))
}
