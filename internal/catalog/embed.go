// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	_ "embed"
	"fmt"
)

//go:embed ros_distros.yaml
var embeddedCatalog []byte

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := parse(embeddedCatalog)
	if err != nil {
		// The embedded catalog is validated by tests; a parse failure here
		// means a broken binary.
		panic(fmt.Sprintf("embedded ros distro catalog is invalid: %v", err))
	}
	return c
}
