package main

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExplainExecFailureHintsOnNotExist(t *testing.T) {
	err := explainExecFailure("not-a-real-program", os.ErrNotExist)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "command not found")
}

func TestExplainExecFailureHintsOnPermission(t *testing.T) {
	err := explainExecFailure("./script.sh", os.ErrPermission)
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Contains(t, err.Error(), "chmod +x")
}

func TestExplainExecFailureFallsBackForOtherErrors(t *testing.T) {
	other := errors.New("boom")
	err := explainExecFailure("prog", other)
	assert.ErrorIs(t, err, other)
	assert.Contains(t, err.Error(), "start prog")
}
