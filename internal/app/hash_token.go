package app

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"horse.fit/celltrans/internal/auth"
)

func runHashToken(args []string) int {
	fs := flag.NewFlagSet("hash-token", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	generate := fs.Bool("generate", false, "Generate a random token and print it with its hash")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	token := ""
	if *generate {
		generated, err := auth.GenerateToken()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		token = generated
	} else {
		read, err := readToken(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read token from stdin: %v\n", err)
			return 1
		}
		token = read
	}

	hash, err := auth.HashToken(token)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if *generate {
		fmt.Printf("token=%s\n", token)
	}
	fmt.Printf("CELLTRANS_ADMIN_TOKEN_HASH=%s\n", hash)
	return 0
}

// readToken reads the first line of r.
func readToken(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
