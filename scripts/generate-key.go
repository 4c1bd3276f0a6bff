// Package main is a development utility for generating a JWT signing secret.
// It prints a random 48-byte secret in base64url, ready to export as
// LMS_JWT_SECRET or paste into the auth.jwt_secret config key. Do not reuse a
// development secret in production — rotate per environment.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
)

func main() {
	randomBytes := make([]byte, 48)
	_, err := rand.Read(randomBytes)
	if err != nil {
		log.Fatal(err)
	}

	secret := base64.RawURLEncoding.EncodeToString(randomBytes)

	fmt.Println("==========================================================")
	fmt.Println("JWT Secret Generated")
	fmt.Println("==========================================================")
	fmt.Printf("\nSecret: %s\n", secret)
	fmt.Println("\n==========================================================")
	fmt.Println("Usage:")
	fmt.Println("==========================================================")
	fmt.Printf("\nexport LMS_JWT_SECRET=%s\n", secret)
	fmt.Println("\nor in config.yaml:")
	fmt.Println("\nauth:")
	fmt.Println("  jwt_secret: \"${JWT_SECRET}\"")
	fmt.Println("\n==========================================================")
}
