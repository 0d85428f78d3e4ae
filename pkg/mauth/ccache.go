package mauth

import (
	"fmt"
	"os"
	"strings"

	"github.com/jcmturner/gokrb5/v8/credentials"
)

// ccachePath resolves the Kerberos credential cache location the way the
// MIT tools lay it out: KRB5CCNAME (with its optional FILE: prefix), then
// the per-uid default.
func ccachePath() string {
	if v := os.Getenv("KRB5CCNAME"); v != "" {
		return strings.TrimPrefix(v, "FILE:")
	}
	return fmt.Sprintf("/tmp/krb5cc_%d", os.Getuid())
}

func loadCCache() (*credentials.CCache, error) {
	return credentials.LoadCCache(ccachePath())
}
