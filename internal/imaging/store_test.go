package imaging

import (
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDiskStore_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "generated_images")
	store := NewDiskStore(dir)
	data := encodeTestPNG(t, 8, 8, color.Black)

	path, err := store.Save("generated", data, "image/png")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !filepath.IsAbs(path) {
		t.Errorf("path should be absolute: %s", path)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "generated_") || !strings.HasSuffix(base, ".png") {
		t.Errorf("unexpected file name %s", base)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("stored bytes differ from input")
	}

	again, err := store.Save("generated", data, "image/png")
	if err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if again != path {
		t.Errorf("identical content should map to the same path: %s vs %s", again, path)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 file, found %d", len(entries))
	}
}
