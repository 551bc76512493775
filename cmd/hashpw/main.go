// Command hashpw prints the bcrypt hash of a staff password for use in
// STAFF_USERS.
//
//	go run ./cmd/hashpw 'correct horse battery staple'
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/guest-pass/internal/config"
	"github.com/iliyamo/guest-pass/internal/utils"
)

func main() {
	if len(os.Args) != 2 || os.Args[1] == "" {
		fmt.Fprintln(os.Stderr, "usage: hashpw <password>")
		os.Exit(2)
	}
	_ = godotenv.Load()

	hash, err := utils.HashPassword(os.Args[1], config.BcryptCost())
	if err != nil {
		logrus.WithError(err).Fatal("hash password")
	}
	fmt.Println(hash)
}
