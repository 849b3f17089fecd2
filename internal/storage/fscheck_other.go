//go:build !darwin && !linux

package storage

import "errors"

var errUnsupported = errors.New("filesystem detection unsupported")

func statFilesystem(string) (string, error) {
	return "", errUnsupported
}
