package regmap

import "testing"

func TestCyclerRotation(t *testing.T) {
	c := NewCycler(2, 3)
	want := []uint64{2, 3, 2, 3, 2}
	for i, w := range want {
		v, ok := c.Next()
		if !ok || v != w {
			t.Fatalf("Next #%d: got %d,%v want %d", i, v, ok, w)
		}
	}
	if c.Len() != 2 {
		t.Fatalf("Len: got %d", c.Len())
	}
}

func TestCyclerEmpty(t *testing.T) {
	var nilC *Cycler
	if _, ok := nilC.Next(); ok {
		t.Fatal("nil Cycler yielded a value")
	}
	if nilC.Len() != 0 {
		t.Fatal("nil Cycler has nonzero length")
	}
	if _, ok := NewCycler().Next(); ok {
		t.Fatal("empty Cycler yielded a value")
	}
}
