package media

import (
	"context"
	"os"
	"testing"
)

// Runs only against a real server: TEST_MINIO_ENDPOINT=localhost:9000 with
// TEST_MINIO_ACCESS_KEY / TEST_MINIO_SECRET_KEY.
func TestMinIOStorage_Integration(t *testing.T) {
	endpoint := os.Getenv("TEST_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("TEST_MINIO_ENDPOINT not set")
	}
	ctx := context.Background()
	st, err := NewMinIOStorage(ctx, MinIOOptions{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("TEST_MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("TEST_MINIO_SECRET_KEY"),
		Bucket:    "classifieds-test",
	})
	if err != nil {
		t.Fatalf("NewMinIOStorage: %v", err)
	}

	url, err := st.Save(ctx, "maquina_test.jpg", []byte("jpeg"), "image/jpeg")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := st.Remove(ctx, url); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := st.Save(ctx, "../x.jpg", []byte("x"), ""); err == nil {
		t.Fatalf("expected invalid name error")
	}
}
