package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStorage_SaveRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	st, err := NewLocalStorage(dir, "/uploads/")
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}

	url, err := st.Save(context.Background(), "maquina_abc.jpg", []byte("data"), "image/jpeg")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if url != "/uploads/maquina_abc.jpg" {
		t.Fatalf("url = %q", url)
	}
	b, err := os.ReadFile(filepath.Join(dir, "maquina_abc.jpg"))
	if err != nil || string(b) != "data" {
		t.Fatalf("file content = %q, %v", b, err)
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected exactly one file, got %d", len(entries))
	}

	if err := st.Remove(context.Background(), url); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "maquina_abc.jpg")); !os.IsNotExist(err) {
		t.Fatalf("file still present: %v", err)
	}
	// Removing twice is fine.
	if err := st.Remove(context.Background(), url); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	st, err := NewLocalStorage(t.TempDir(), "/uploads")
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	for _, name := range []string{"../evil.jpg", "a/b.jpg", "..", ""} {
		if _, err := st.Save(context.Background(), name, []byte("x"), ""); err == nil {
			t.Fatalf("Save(%q) should fail", name)
		}
	}
	if err := st.Remove(context.Background(), "/elsewhere/x.jpg"); err == nil {
		t.Fatalf("Remove outside base URL should fail")
	}
	if err := st.Remove(context.Background(), "/uploads/.."); err == nil {
		t.Fatalf("Remove of parent should fail")
	}
}

func TestNewLocalStorage_EmptyDir(t *testing.T) {
	if _, err := NewLocalStorage("  ", ""); err == nil {
		t.Fatalf("expected error for empty dir")
	}
}
