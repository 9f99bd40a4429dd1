package chip8

import "testing"

func TestPlaneShift(t *testing.T) {
	p := newPlane(8, 8)
	p.set(4, 4, 0x8)

	p.Shift(2, 0)
	if p.At(6, 4) != 0x8 || p.At(4, 4) != 0 {
		t.Errorf("shift right should move content and vacate the source")
	}

	p.Shift(0, -3)
	if p.At(6, 1) != 0x8 {
		t.Errorf("shift up should move content")
	}

	// content shifted past the edge is lost
	p.Shift(0, -4)
	for i, v := range p.Pix {
		if v != 0 {
			t.Errorf("pixel %d should be empty after shifting off-screen", i)
		}
	}
}

func TestPlaneResizeClears(t *testing.T) {
	p := newPlane(4, 4)
	p.set(1, 1, 0x8)

	p.Resize(8, 8)
	if p.W != 8 || p.H != 8 {
		t.Errorf("resize should change the geometry")
	}
	for i, v := range p.Pix {
		if v != 0 {
			t.Errorf("pixel %d should be cleared by resize", i)
		}
	}
}

func TestXorPixelCollision(t *testing.T) {
	p := newPlane(4, 4)

	if p.xorPixel(2, 2, 0x8) {
		t.Errorf("lighting a dark pixel is not a collision")
	}
	if !p.xorPixel(2, 2, 0x8) {
		t.Errorf("unlighting a lit pixel is a collision")
	}
}

func TestTrailDecay(t *testing.T) {
	p := newPlane(2, 1)
	p.set(0, 0, 0x8)

	p.decayTrails()
	if p.At(0, 0) != 0xC {
		t.Errorf("a lit pixel should grow a trail, got %#x", p.At(0, 0))
	}

	p.set(0, 0, p.At(0, 0)&^0x8) // turn it off, keep the trail
	p.decayTrails()
	p.decayTrails()
	if p.At(0, 0)&0x8 != 0 {
		t.Errorf("the lit bit must stay off while the trail fades")
	}
	if p.At(0, 0) != 0x1 {
		t.Errorf("the trail should decay, got %#x", p.At(0, 0))
	}
}

func TestBitDup8(t *testing.T) {
	tests := []struct {
		in   byte
		want uint32
	}{
		{0x00, 0x0000},
		{0xFF, 0xFFFF},
		{0x80, 0xC000},
		{0x0F, 0x00FF},
		{0xA5, 0xCC33},
	}

	for _, tt := range tests {
		if got := bitDup8(tt.in); got != tt.want {
			t.Errorf("bitDup8(%#x) should be %#x, got %#x", tt.in, tt.want, got)
		}
	}
}

func TestCompositeBlend(t *testing.T) {
	red := rgba(0xFF, 0, 0, 0xFF)
	gray := rgba(0x80, 0x80, 0x80, 0xFF)

	// full opacity alpha blend replaces the destination
	if got := compositeBlend(red, gray, BlendAlpha, 0xFF); got != red {
		t.Errorf("opaque alpha blend should take the source, got %#x", got)
	}

	// zero opacity keeps the destination
	if got := compositeBlend(red, gray, BlendAlpha, 0x00); got != gray {
		t.Errorf("transparent blend should keep the destination, got %#x", got)
	}

	// linear dodge saturates instead of wrapping
	bright := rgba(0xF0, 0xF0, 0xF0, 0xFF)
	got := compositeBlend(bright, bright, BlendLinearDodge, 0xFF)
	if got != rgba(0xFF, 0xFF, 0xFF, 0xFF) {
		t.Errorf("linear dodge should clamp at white, got %#x", got)
	}

	// multiply of black is black
	black := rgba(0, 0, 0, 0xFF)
	if got := compositeBlend(black, gray, BlendMultiply, 0xFF); got != black {
		t.Errorf("multiply by black should be black, got %#x", got)
	}
}

func TestSurfaceShiftAndCopy(t *testing.T) {
	s := newSurface(4, 4)
	s.set(1, 1, 0xAABBCCFF)

	s.Shift(1, 2)
	if s.at(2, 3) != 0xAABBCCFF || s.at(1, 1) != 0 {
		t.Errorf("surface shift should move content and vacate the source")
	}

	d := newSurface(4, 4)
	d.CopyFrom(s)
	if d.at(2, 3) != 0xAABBCCFF {
		t.Errorf("copy should duplicate the content")
	}
}

func TestPalette332(t *testing.T) {
	if palette332(0xFF) != rgb(255, 255, 255) {
		t.Errorf("index 0xFF should be white")
	}
	if palette332(0x00) != rgb(0, 0, 0) {
		t.Errorf("index 0x00 should be black")
	}
	if palette332(0xE0) != rgb(255, 0, 0) {
		t.Errorf("index 0xE0 should be pure red")
	}
}
