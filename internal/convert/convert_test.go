package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapToXML(t *testing.T) {
	out, err := MapToXML("message", map[string]any{
		"to":      "kunde@example.com",
		"subject": "Tee & Kaffee <3",
		"html":    "",
		"meta":    map[string]any{"retries": 2, "urgent": false},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`<?xml version="1.0" encoding="UTF-8"?>`+"\n"+
			`<message><meta><retries>2</retries><urgent>false</urgent></meta><subject>Tee &amp; Kaffee &lt;3</subject><to>kunde@example.com</to></message>`,
		string(out))
}

func TestMapToXMLUnsupported(t *testing.T) {
	_, err := MapToXML("message", map[string]any{"fn": func() {}})
	assert.Error(t, err)
}
