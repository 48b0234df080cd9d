// Package main is the operator CLI: schema migrations, admin accounts and queue inspection.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
