package main

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var exampleFlag = regexp.MustCompile(`--([a-z][a-z-]*)`)

func TestScanHelpExamplesUseDefinedFlags(t *testing.T) {
	used := exampleFlag.FindAllStringSubmatch(scanCmd.Long, -1)
	assert.NotEmpty(t, used)
	for _, m := range used {
		assert.NotNil(t, scanCmd.Flags().Lookup(m[1]), "unknown flag --%s in help", m[1])
	}
}
