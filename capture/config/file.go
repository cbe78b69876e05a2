/*
DESCRIPTION
  file.go provides loading of config variables from a YAML file.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Read decodes a YAML mapping of variable names to scalar values from r and
// returns it in the form accepted by Update. An empty document gives an
// empty map.
func Read(r io.Reader) (map[string]string, error) {
	var raw map[string]interface{}
	err := yaml.NewDecoder(r).Decode(&raw)
	if errors.Is(err, io.EOF) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}

	vars := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v.(type) {
		case nil:
			vars[k] = ""
		case map[string]interface{}, []interface{}:
			return nil, fmt.Errorf("value of %s is not a scalar", k)
		default:
			vars[k] = fmt.Sprint(v)
		}
	}
	return vars, nil
}

// ReadFile is Read on the named file.
func ReadFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}
