// Package appfs embeds static assets shipped with the binary.
package appfs

import "embed"

//go:embed migrations
var FS embed.FS

//go:embed assets/common-passwords.txt.gz
var CommonPasswords []byte
