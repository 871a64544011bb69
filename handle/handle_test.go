package handle

import "testing"

func TestHandleZeroIsNeverAlive(t *testing.T) {
	var h Handle
	if !h.IsZero() {
		t.Fatalf("zero value Handle should report IsZero")
	}
	h2 := New(0, 1, Buffer)
	if h2.IsZero() {
		t.Fatalf("index 0, generation 1 should not equal the zero Handle")
	}
}

func TestHandleAccessors(t *testing.T) {
	h := New(42, 7, Image)
	if h.Index() != 42 || h.Generation() != 7 || h.Kind() != Image {
		t.Fatalf("unexpected accessors: %+v", h)
	}
}

func TestUniqueTakeTwicePanics(t *testing.T) {
	u := NewUnique(New(1, 1, Buffer))
	u.Take()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on double Take")
		}
	}()
	u.Take()
}

func TestUsageUnionAndHas(t *testing.T) {
	u := ColorAttachment.Union(SampledImage)
	if !u.Has(ColorAttachment) || !u.Has(SampledImage) {
		t.Fatalf("union missing bits: %v", u)
	}
	if u.Has(DepthAttachment) {
		t.Fatalf("unexpected bit set: %v", u)
	}
}

func TestKindIsVirtual(t *testing.T) {
	if !VirtualBuffer.IsVirtual() || !VirtualImage.IsVirtual() {
		t.Fatalf("virtual kinds misreported")
	}
	if Buffer.IsVirtual() || Image.IsVirtual() {
		t.Fatalf("concrete kinds misreported as virtual")
	}
}
