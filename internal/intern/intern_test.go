package intern_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/exc-lang/exc/internal/intern"
)

func TestInternRoundTrip(t *testing.T) {
	var table intern.Table

	a := table.Intern("input.ex")
	b := table.Intern("import_1.ex")
	c := table.Intern("input.ex")

	assert.Equal(t, a, c, "interning the same string twice must yield the same id")
	assert.NotEqual(t, a, b)
	assert.Equal(t, "input.ex", table.Value(a))
	assert.Equal(t, "import_1.ex", table.Value(b))
}

func TestInternEmptyStringIsZero(t *testing.T) {
	var table intern.Table
	assert.Equal(t, intern.ID(0), table.Intern(""))
	assert.Equal(t, "", table.Value(0))
}

func TestInternConcurrent(t *testing.T) {
	var table intern.Table
	var wg sync.WaitGroup

	ids := make([]intern.ID, 64)
	for i := 0; i < 64; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i] = table.Intern("shared.ex")
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}
