package main

import (
	"os"
	"strings"

	"github.com/carbocation/pfx"
)

// ExpandArgFiles replaces every argument of the form @path with the
// whitespace-separated words of that file. Expansion is not recursive.
func ExpandArgFiles(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if !strings.HasPrefix(arg, "@") || len(arg) == 1 {
			out = append(out, arg)
			continue
		}

		b, err := os.ReadFile(arg[1:])
		if err != nil {
			return nil, pfx.Err(err)
		}
		out = append(out, strings.Fields(string(b))...)
	}

	return out, nil
}
