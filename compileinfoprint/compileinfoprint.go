// Package compileinfoprint is imported for the side effect of printing the
// compileinfo of a bids2nda binary to os.Stderr when it starts.
package compileinfoprint

import "github.com/WillForan/bids2nda/compileinfo"

func init() {
	compileinfo.PrintToStdErr()
}
