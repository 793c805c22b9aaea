package cli

import (
	"fmt"
	"io"
)

// Version is the current version of rbrefactor
const Version = "0.1.0"

// ShowVersion writes the version information to w
func ShowVersion(w io.Writer) {
	fmt.Fprintf(w, "rbrefactor version %s\n", Version)
}
