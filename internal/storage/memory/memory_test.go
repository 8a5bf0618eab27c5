package memory

import (
	"testing"

	"cjw/internal/storage"
	"cjw/internal/storage/storagetest"
)

func TestBackend(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Backend {
		return New()
	})
}
