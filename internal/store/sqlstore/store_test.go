package sqlstore

import (
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/linechat/linechat/internal/auth"
)

var testStore *SQLStore

func SetupTestDB(t *testing.T) {
	var err error
	testStore, err = New(":memory:", auth.FNVHasher{})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
}

func TeardownTestDB() {
	testStore.Close()
}
