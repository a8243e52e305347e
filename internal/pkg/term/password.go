package term

import (
	"os"

	"golang.org/x/term"
)

func termReadPassword() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}
