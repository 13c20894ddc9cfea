package utils_test

import (
	"strconv"
	"testing"

	"github.com/glycoshape/glyco/pkg/cmp"
	"github.com/glycoshape/glyco/pkg/utils"
)

func TestMap(t *testing.T) {
	actual := utils.Map([]int{1, 2, 3}, strconv.Itoa)
	if !cmp.SliceEq(actual, []string{"1", "2", "3"}) {
		t.Errorf("unmatch: %v", actual)
	}
}

func TestFilter(t *testing.T) {
	t.Run("it keeps matching elements in order", func(t *testing.T) {
		actual := utils.Filter([]string{"a", "", "b", ""}, func(s string) bool { return s != "" })
		if !cmp.SliceEq(actual, []string{"a", "b"}) {
			t.Errorf("unmatch: %v", actual)
		}
	})
	t.Run("it returns empty (not nil) slice for nil", func(t *testing.T) {
		actual := utils.Filter[int](nil, func(int) bool { return true })
		if actual == nil || len(actual) != 0 {
			t.Errorf("unexpected: %#v", actual)
		}
	})
}

func TestApplyAll(t *testing.T) {
	type opt struct{ n int }
	inc := func(o *opt) *opt { o.n += 1; return o }
	actual := utils.ApplyAll(&opt{}, inc, inc, inc)
	if actual.n != 3 {
		t.Errorf("unmatch: %d", actual.n)
	}
}

func TestMapUntilError(t *testing.T) {
	t.Run("it maps all when no error", func(t *testing.T) {
		actual, err := utils.MapUntilError([]string{"1", "2"}, strconv.Atoi)
		if err != nil {
			t.Fatal(err)
		}
		if !cmp.SliceEq(actual, []int{1, 2}) {
			t.Errorf("unmatch: %v", actual)
		}
	})
	t.Run("it stops at the first error", func(t *testing.T) {
		called := 0
		_, err := utils.MapUntilError([]string{"1", "x", "2"}, func(s string) (int, error) {
			called += 1
			return strconv.Atoi(s)
		})
		if err == nil {
			t.Error("no error")
		}
		if called != 2 {
			t.Errorf("mapper is called %d times", called)
		}
	})
}
