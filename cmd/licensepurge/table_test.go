package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Package", "Action"}, [][]string{{"7", "remove"}, {"1324901"}}, []columnAlignment{alignRight})

	lines := strings.Split(out, "\n")
	assert.True(t, strings.HasPrefix(lines[0], "╭"))
	assert.Contains(t, out, "PACKAGE")
	assert.Contains(t, out, "1324901")

	var short string
	for _, l := range lines {
		if strings.Contains(l, "remove") {
			short = l
		}
	}
	// right-aligned: padding sits before the id
	assert.Contains(t, short, "       7 │")
}

func TestRenderTableNoColumns(t *testing.T) {
	assert.Empty(t, renderTable(nil, [][]string{{"x"}}, nil))
}
