// Package ident generates the prefixed identifiers used for stored
// frictions and saved analyses.
package ident

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const idLength = 10

const (
	FrictionPrefix = "FR"
	AnalysisPrefix = "AN"
)

// NewFrictionID generates a friction ID in format FR-{nanoid(10)}.
func NewFrictionID() (string, error) {
	return newID(FrictionPrefix)
}

// NewAnalysisID generates an analysis ID in format AN-{nanoid(10)}.
func NewAnalysisID() (string, error) {
	return newID(AnalysisPrefix)
}

func newID(prefix string) (string, error) {
	id, err := gonanoid.New(idLength)
	if err != nil {
		return "", fmt.Errorf("generate %s id: %w", prefix, err)
	}
	return fmt.Sprintf("%s-%s", prefix, id), nil
}

// HasPrefix reports whether id looks like one of ours with the given prefix.
func HasPrefix(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix+"-")
	return ok && len(rest) == idLength
}
