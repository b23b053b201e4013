package main

import (
	"errors"
	"fmt"
	"os"
)

// FormatUserError turns an error into the message printed to the user.
// Missing raw-socket privilege gets its own remediation hint, since the fix
// differs from every other failure.
func FormatUserError(err error) string {
	if errors.Is(err, os.ErrPermission) {
		return fmt.Sprintf("%s\nTry running \"sudo setcap 'cap_net_raw,cap_net_admin+eip' %s\"",
			err, os.Args[0])
	}
	return err.Error()
}
