package memory_test

import (
	"testing"

	"github.com/warp/punchclock/store"
	"github.com/warp/punchclock/store/memory"
	"github.com/warp/punchclock/store/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return memory.New()
	})
}
