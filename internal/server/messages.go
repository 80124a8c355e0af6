package server

import (
	"encoding/json"

	"github.com/EdNutting/autocue/internal/config"
)

// Wire shapes shared between the HTTP handlers and the WebSocket push path.
// Field names match the keys the web frontend expects.

type initMessage struct {
	Type       string               `json:"type"`
	Script     string               `json:"script"`
	ScriptHTML string               `json:"scriptHtml"`
	Settings   config.DisplayConfig `json:"settings"`
}

type scriptMessage struct {
	Type       string `json:"type,omitempty"`
	Script     string `json:"script"`
	ScriptHTML string `json:"scriptHtml"`
}

type settingsMessage struct {
	Type     string               `json:"type"`
	Settings config.DisplayConfig `json:"settings"`
}

type eventMessage struct {
	Type string `json:"type"`
}

type jumpMessage struct {
	Type      string `json:"type"`
	WordIndex int    `json:"wordIndex"`
}

type positionMessage struct {
	Type        string  `json:"type"`
	WordIndex   int     `json:"wordIndex"`
	LineIndex   int     `json:"lineIndex"`
	WordOffset  int     `json:"wordOffset"`
	Confidence  float64 `json:"confidence"`
	IsBacktrack bool    `json:"isBacktrack"`
	Transcript  string  `json:"transcript"`
	Progress    float64 `json:"progress"`
}

// clientMessage is the envelope for messages received from a display.
// Settings is left raw so partial updates can be merged over the current
// values.
type clientMessage struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Settings  json.RawMessage `json:"settings"`
	WordIndex int             `json:"wordIndex"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
