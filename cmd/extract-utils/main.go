// Command extract-utils extracts, pins, and packages proprietary Android
// device blobs from a factory image or device dump into a vendor tree.
package main

import (
	"github.com/LineageOS/android-tools-extract-utils/internal/cmd"
)

func main() {
	cmd.Execute()
}
