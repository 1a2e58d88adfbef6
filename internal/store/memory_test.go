package store_test

import (
	"testing"

	"github.com/aischool/aischool-backend/internal/store"
	"github.com/aischool/aischool-backend/internal/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, store.NewMemory())
}
