package adapters

import "prospero/internal/ports"

var _ ports.CreationTimePort = CreationTimeAdapter{}

type CreationTimeAdapter struct{}

func NewCreationTimeAdapter() CreationTimeAdapter {
	return CreationTimeAdapter{}
}
