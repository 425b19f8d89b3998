package render

import "testing"

func TestScaleMilliIsStableAcrossFloatConversions(t *testing.T) {
	cases := []struct {
		scale float64
		want  uint32
	}{
		{1.0, 1000},
		{0.1 + 0.2, 300}, // float noise must not leak into keys
		{1.2345, 1235},
		{2.5, 2500},
		{-0.5, 0},
		{0, 0},
	}
	for _, c := range cases {
		if got := ScaleMilli(c.scale); got != c.want {
			t.Fatalf("ScaleMilli(%v) = %d, want %d", c.scale, got, c.want)
		}
	}
}

func TestPageKeyEqualityWhenScaleMilliAgrees(t *testing.T) {
	a := NewPageKey(7, 3, 0.3)
	b := NewPageKey(7, 3, 0.1+0.2)
	if a != b {
		t.Fatalf("keys differ despite equal scale_milli: %+v vs %+v", a, b)
	}
}

func TestPriorityOrdering(t *testing.T) {
	critical := Priority{Class: CriticalCurrent}
	guard := Priority{Class: GuardReverse}
	lead1 := Priority{Class: DirectionalLead, Depth: 1}
	lead2 := Priority{Class: DirectionalLead, Depth: 2}
	bg := Priority{Class: Background}

	order := []Priority{critical, guard, lead1, lead2, bg}
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			if !order[i].Beats(order[j]) {
				t.Fatalf("%+v should beat %+v", order[i], order[j])
			}
			if order[j].Beats(order[i]) {
				t.Fatalf("%+v should not beat %+v", order[j], order[i])
			}
		}
		if order[i].Beats(order[i]) {
			t.Fatalf("%+v must not beat itself", order[i])
		}
	}
}
