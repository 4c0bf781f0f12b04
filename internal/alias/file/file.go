package file

import (
	"os"

	"github.com/DMarby/stockphotos/internal/alias"
)

// New loads an alias table from a YAML file on disk
func New(path string) (alias.Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return alias.Parse(data)
}
