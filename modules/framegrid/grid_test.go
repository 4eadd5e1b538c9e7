package framegrid

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"testing"
	"unsafe"
)

// TestReshape_Property_FlattenRoundTrip validates flatten(reshape(buf)) == buf
// for random geometries.
func TestReshape_Property_FlattenRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	channels := []int{1, 3, 4}

	for i := 0; i < 200; i++ {
		g := Geometry{
			Width:    1 + rng.Intn(64),
			Height:   1 + rng.Intn(64),
			Channels: channels[rng.Intn(len(channels))],
		}
		buf := make([]byte, g.Size())
		rng.Read(buf)
		orig := append([]byte(nil), buf...)

		grid, err := Reshape(buf, g)
		if err != nil {
			t.Fatalf("Reshape(%s) failed: %v", g, err)
		}

		if !bytes.Equal(grid.Flatten(), orig) {
			t.Fatalf("flatten(reshape(buf)) != buf for %s", g)
		}

		// Zero-copy: the grid aliases the input
		if &grid.Flatten()[0] != &buf[0] {
			t.Fatalf("Reshape copied the buffer for %s", g)
		}
	}

	t.Logf("✅ 200 random geometries round-tripped without copying")
}

func TestReshape_SizeMismatch(t *testing.T) {
	g := Geometry{Width: 16, Height: 16, Channels: 1}

	testCases := []struct {
		name string
		n    int
	}{
		{"short", g.Size() - 1},
		{"long", g.Size() + 1},
		{"empty", 0},
		{"wrong_channels", 16 * 16 * 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Reshape(make([]byte, tc.n), g)
			if !errors.Is(err, ErrGeometry) {
				t.Errorf("Expected ErrGeometry for %d samples, got %v", tc.n, err)
			}
		})
	}
}

func TestGeometry_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		g       Geometry
		wantErr bool
	}{
		{"gray", Geometry{600, 400, 1}, false},
		{"rgb", Geometry{640, 480, 3}, false},
		{"rgba", Geometry{1024, 1024, 4}, false},
		{"zero_width", Geometry{0, 10, 1}, true},
		{"negative_height", Geometry{10, -1, 1}, true},
		{"two_channels", Geometry{10, 10, 2}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.g.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestFromPointer_WritesVisibleToOwner(t *testing.T) {
	g := Geometry{Width: 4, Height: 3, Channels: 4}
	owner := make([]byte, g.Size())

	grid, err := FromPointer(unsafe.Pointer(&owner[0]), g)
	if err != nil {
		t.Fatalf("FromPointer failed: %v", err)
	}

	grid.Set(2, 1, 10, 20, 30, 40)

	off := 1*g.Stride() + 2*g.Channels
	if got := owner[off : off+4]; !bytes.Equal(got, []byte{10, 20, 30, 40}) {
		t.Errorf("Write not visible through owner memory: got %v", got)
	}
}

func TestView_InvalidInput(t *testing.T) {
	if _, err := View(nil, 10); err == nil {
		t.Error("Expected error for nil pointer")
	}

	b := make([]byte, 1)
	if _, err := View(unsafe.Pointer(&b[0]), 0); err == nil {
		t.Error("Expected error for zero count")
	}
}

func TestGrid_RowAndClone(t *testing.T) {
	g := Geometry{Width: 3, Height: 2, Channels: 1}
	grid, _ := Reshape([]byte{1, 2, 3, 4, 5, 6}, g)

	if row := grid.Row(1); !bytes.Equal(row, []byte{4, 5, 6}) {
		t.Errorf("Row(1) = %v, want [4 5 6]", row)
	}

	clone := grid.Clone()
	clone.Set(0, 0, 99)
	if grid.At(0, 0)[0] != 1 {
		t.Error("Clone shares memory with the original")
	}
}

func TestGrid_Reshape(t *testing.T) {
	grid, _ := Reshape(make([]byte, 24), Geometry{Width: 2, Height: 3, Channels: 4})

	if _, err := grid.Reshape(Geometry{Width: 4, Height: 2, Channels: 3}); err != nil {
		t.Errorf("Same-size reshape failed: %v", err)
	}
	if _, err := grid.Reshape(Geometry{Width: 4, Height: 4, Channels: 3}); !errors.Is(err, ErrGeometry) {
		t.Errorf("Expected ErrGeometry, got %v", err)
	}
}

func TestGrid_Image(t *testing.T) {
	t.Run("gray_shares_memory", func(t *testing.T) {
		grid, _ := Reshape(make([]byte, 6), Geometry{Width: 3, Height: 2, Channels: 1})
		img, ok := grid.Image().(*image.Gray)
		if !ok {
			t.Fatalf("Expected *image.Gray, got %T", grid.Image())
		}
		img.SetGray(1, 1, color.Gray{Y: 200})
		if grid.At(1, 1)[0] != 200 {
			t.Error("Gray image does not alias the grid")
		}
	})

	t.Run("rgb_expands_to_opaque_nrgba", func(t *testing.T) {
		grid, _ := Reshape([]byte{1, 2, 3, 4, 5, 6}, Geometry{Width: 2, Height: 1, Channels: 3})
		img, ok := grid.Image().(*image.NRGBA)
		if !ok {
			t.Fatalf("Expected *image.NRGBA, got %T", grid.Image())
		}
		want := []byte{1, 2, 3, 255, 4, 5, 6, 255}
		if !bytes.Equal(img.Pix, want) {
			t.Errorf("NRGBA pix = %v, want %v", img.Pix, want)
		}
	})

	t.Run("rgba_keeps_straight_alpha", func(t *testing.T) {
		buf := []byte{10, 20, 30, 0, 200, 100, 50, 128}
		grid, _ := Reshape(buf, Geometry{Width: 2, Height: 1, Channels: 4})
		img, ok := grid.Image().(*image.NRGBA)
		if !ok {
			t.Fatalf("Expected *image.NRGBA, got %T", grid.Image())
		}
		if &img.Pix[0] != &buf[0] {
			t.Error("Expected NRGBA image to share the grid samples")
		}
		if c := img.NRGBAAt(1, 0); c != (color.NRGBA{R: 200, G: 100, B: 50, A: 128}) {
			t.Errorf("NRGBAAt(1,0) = %v", c)
		}
	})
}

func TestFromImage_RoundTrip(t *testing.T) {
	for _, ch := range []int{1, 3, 4} {
		g := Geometry{Width: 5, Height: 4, Channels: ch}
		buf := make([]byte, g.Size())
		for i := range buf {
			buf[i] = byte(i * 7)
		}

		grid, _ := Reshape(buf, g)
		back, err := FromImage(grid.Image(), ch)
		if err != nil {
			t.Fatalf("FromImage(%d channels) failed: %v", ch, err)
		}
		if !bytes.Equal(back.Pix, buf) {
			t.Errorf("%d channels: round trip mismatch", ch)
		}
	}
}
