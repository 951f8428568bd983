// Package app is the root package of all domain related packages.
//
// All entity types are defined in this package.
package app

import "errors"

// Settings keys
const (
	SettingAnimations = "AppKeyAnimations"
)

// Defaults
const (
	ConfigPageURL     = "http://oddbloke.github.io/steelers-pebble-face/"
	DefaultAnimations = "1"
)

var (
	ErrCanceled = errors.New("configuration canceled")
	ErrDelivery = errors.New("message not delivered")
	ErrNotFound = errors.New("object not found")
	ErrParse    = errors.New("malformed configuration response")
)
