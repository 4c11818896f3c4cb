// Command hashtoken gera o valor de TOKEN_API_HASH para um token de API.
//
//	go run ./cmd/hashtoken <token>
package main

import (
	"fmt"
	"os"

	"github.com/cleberrangel/asana-portfolio-api/internal/middleware"
)

func main() {
	if len(os.Args) != 2 || os.Args[1] == "" {
		fmt.Fprintln(os.Stderr, "uso: hashtoken <token>")
		os.Exit(2)
	}

	hash, err := middleware.HashToken(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "erro ao gerar hash: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}
