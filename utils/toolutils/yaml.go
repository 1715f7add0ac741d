package toolutils

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// ReadYaml reads the YAML file at path into out, exiting on failure.
// Meant for tool startup where a bad config file is fatal.
func ReadYaml(out any, path string) {
	file, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to open %s: %v\n", path, err)
		os.Exit(1)
	}
	defer file.Close()

	dec := yaml.NewDecoder(file, yaml.Strict())
	if err := dec.Decode(out); err != nil {
		fmt.Fprintf(os.Stderr, "Unable to parse %s: %v\n", path, err)
		os.Exit(1)
	}
}
