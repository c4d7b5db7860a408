package display

import "testing"

func TestTransform_RotateRoundTrip(t *testing.T) {
	base := FromParts(true, 90)
	for k := -3; k <= 3; k++ {
		rotated, err := base.Rotate(k * 90)
		if err != nil {
			t.Fatalf("rotate(%d): %v", k*90, err)
		}
		back, err := rotated.Rotate(-k * 90)
		if err != nil {
			t.Fatalf("rotate back: %v", err)
		}
		if !back.Equal(base) {
			t.Fatalf("k=%d: rotate then unrotate = %v, want %v", k, back, base)
		}
	}
}

func TestTransform_RotateInvalidDelta(t *testing.T) {
	if _, err := IdentityTransform().Rotate(45); err == nil {
		t.Fatal("expected InvalidRotation error")
	}
}

func TestTransform_ReflectXTwiceIsIdentityModuloRotation(t *testing.T) {
	r := IdentityTransform().ReflectX().ReflectX()
	if !r.Equal(IdentityTransform()) {
		t.Fatalf("reflect_x twice = %v, want identity", r)
	}
}

func TestTransform_ReflectYDefinition(t *testing.T) {
	got := IdentityTransform().ReflectY()
	want := IdentityTransform().ReflectX().MustRotate(180)
	if !got.Equal(want) {
		t.Fatalf("reflect_y = %v, want %v", got, want)
	}
}

func TestTransform_ApplyToSizeMatchesInverted(t *testing.T) {
	for _, rot := range []int{0, 90, 180, 270} {
		tr := FromParts(false, rot)
		size := tr.ApplyToSize(Pair{X: 100, Y: 50})
		if tr.Inverted() {
			if size != (Pair{X: 50, Y: 100}) {
				t.Fatalf("rot=%d inverted size=%v", rot, size)
			}
		} else {
			if size != (Pair{X: 100, Y: 50}) {
				t.Fatalf("rot=%d non-inverted size=%v", rot, size)
			}
		}
	}
}

func TestDirection_InverseInvolution(t *testing.T) {
	for d := DirNone; d <= DirUnder; d++ {
		if d.Inverse().Inverse() != d {
			t.Fatalf("inverse(inverse(%v)) = %v, want %v", d, d.Inverse().Inverse(), d)
		}
	}
	if DirNone.Inverse() != DirNone {
		t.Fatalf("inverse(none) = %v, want none", DirNone.Inverse())
	}
}
