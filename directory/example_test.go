package directory_test

import (
	"context"
	"fmt"
	"path/filepath"
	"os"

	"github.com/jonwraymond/tokenauth/auth"
	"github.com/jonwraymond/tokenauth/directory"
)

func ExampleSQLDirectory() {
	ctx := context.Background()
	dir, _ := os.MkdirTemp("", "tokenauth")
	defer os.RemoveAll(dir)

	db, err := directory.Open(ctx, directory.DriverSQLite, filepath.Join(dir, "accounts.db"))
	if err != nil {
		fmt.Println(err)
		return
	}
	defer db.Close()

	if err := directory.Migrate(ctx, db, directory.DriverSQLite); err != nil {
		fmt.Println(err)
		return
	}
	store, _ := directory.NewSQLDirectory(db, directory.DriverSQLite)

	_ = store.Upsert(ctx, &auth.Account{
		ID:           "alice",
		PasswordHash: "$2a$12$...",
		Active:       true,
		Attributes:   map[string]string{"roles": "admin"},
	})

	acct, _ := store.Lookup(ctx, "alice")
	fmt.Println(acct.ID, acct.Active, acct.Roles())

	_, err = store.Lookup(ctx, "Alice")
	fmt.Println(err)
	// Output:
	// alice true [admin]
	// auth: account not found
}
