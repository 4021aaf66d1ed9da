package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverridesWithMaxAppendsOnlyWhenFlagSet(t *testing.T) {
	prevMax := maxUpdateFlag
	defer func() { maxUpdateFlag = prevMax }()

	maxUpdateFlag = ""
	assert.Equal(t, []string{"a=b"}, overridesWithMax([]string{"a=b"}))

	maxUpdateFlag = "5s"
	assert.Equal(t, []string{"a=b", "max_update_interval=5s"}, overridesWithMax([]string{"a=b"}))
}

func TestOverridesWithMaxDoesNotMutateInputSlice(t *testing.T) {
	prevMax := maxUpdateFlag
	defer func() { maxUpdateFlag = prevMax }()
	maxUpdateFlag = "10s"

	original := []string{"x=y"}
	_ = overridesWithMax(original)
	assert.Equal(t, []string{"x=y"}, original)
}
