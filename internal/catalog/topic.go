package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Topic is one of the three analytical lenses every document is read through.
type Topic string

const (
	Forces       Topic = "forces"
	Faiblesses   Topic = "faiblesses"
	Propositions Topic = "propositions"
)

// Topics lists the closed set in display order.
var Topics = []Topic{Forces, Faiblesses, Propositions}

var ErrUnknownTopic = errors.New("unknown topic")

func ParseTopic(raw string) (Topic, error) {
	topic := Topic(strings.ToLower(strings.TrimSpace(raw)))
	if !topic.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownTopic, raw)
	}
	return topic, nil
}

func (t Topic) Valid() bool {
	switch t {
	case Forces, Faiblesses, Propositions:
		return true
	}
	return false
}

func (t Topic) String() string {
	return string(t)
}
