package extract

import (
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// Extraction failures abort the whole request. No partial topology is
// ever returned alongside one of these.
var (
	// ErrEmptyInput is returned for blank configuration content.
	ErrEmptyInput = errors.New("empty configuration", j.C("ERR_9f2c41d07ab8e315"))

	// ErrUnrecognizedFormat is returned when content doesn't resemble
	// its declared or sniffed type.
	ErrUnrecognizedFormat = errors.New("invalid format", j.C("ERR_5d80ca6219f4b7e2"))

	// ErrMalformedDocument is returned when a JSON configuration fails
	// to parse.
	ErrMalformedDocument = errors.New("invalid JSON", j.C("ERR_31b6e98d54c2f077"))
)
